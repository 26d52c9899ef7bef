package pricing

import (
	"math"
	"time"
)

// Aggregates are the derived metrics for one DailySet. They are computed on
// demand from the set and never stored independently, so they cannot go
// stale relative to the records they summarise. Nil fields mean "unknown".
type Aggregates struct {
	Current          *Record  `json:"current,omitempty"`
	CurrentEstimated bool     `json:"current_estimated,omitempty"`
	Min              *float64 `json:"min,omitempty"`
	Max              *float64 `json:"max,omitempty"`
	MinWithVAT       *float64 `json:"min_with_vat,omitempty"`
	MaxWithVAT       *float64 `json:"max_with_vat,omitempty"`
}

// AggregateAt computes the current/min/max metrics for the set as of now.
// An empty set yields all-nil aggregates. Ties on min/max go to the
// earliest timestamp. When now falls on the set's day but inside no
// interval (clock skew, gap in the data) the last record of the day is
// reported with CurrentEstimated set, matching the upstream convention of
// never surfacing an error for a momentary gap.
func (s DailySet) AggregateAt(now time.Time) Aggregates {
	var agg Aggregates
	if s.Empty() {
		return agg
	}

	for i := range s.Records {
		r := &s.Records[i]
		if agg.Min == nil || r.Price < *agg.Min {
			agg.Min = ptr(r.Price)
		}
		if agg.Max == nil || r.Price > *agg.Max {
			agg.Max = ptr(r.Price)
		}
		if agg.MinWithVAT == nil || r.PriceWithVAT < *agg.MinWithVAT {
			agg.MinWithVAT = ptr(r.PriceWithVAT)
		}
		if agg.MaxWithVAT == nil || r.PriceWithVAT > *agg.MaxWithVAT {
			agg.MaxWithVAT = ptr(r.PriceWithVAT)
		}
	}

	if SameDay(now, s.Day) {
		for i := range s.Records {
			if s.Records[i].Covers(now) {
				agg.Current = &s.Records[i]
				return agg
			}
		}
		// No interval matched; fall back to the last record of the day.
		agg.Current = &s.Records[len(s.Records)-1]
		agg.CurrentEstimated = true
	}

	return agg
}

// ApplyVAT returns price with the VAT rate applied, rounded to the source's
// five-decimal precision. rate is fractional, e.g. 0.23 for 23%.
func ApplyVAT(price, rate float64) float64 {
	return Round5(price * (1 + rate))
}

// Round5 rounds to five decimal places, the precision the source publishes.
func Round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

func ptr(v float64) *float64 { return &v }

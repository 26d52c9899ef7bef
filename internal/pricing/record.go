// Package pricing holds the domain model for quarter-hourly electricity
// tariff prices: individual price records, per-day record sets and the
// aggregates derived from them.
package pricing

import (
	"sort"
	"time"
)

// IntervalLength is the duration of a single price interval in the source
// table. The upstream CSV publishes 96 quarter-hour intervals per day.
const IntervalLength = 15 * time.Minute

// RecordsPerDay is the number of intervals in a complete day.
const RecordsPerDay = 96

// Record is a single quarter-hour price entry. Immutable once parsed.
type Record struct {
	Timestamp    time.Time `json:"datetime"`
	Interval     string    `json:"interval"`
	Price        float64   `json:"price"`
	PriceWithVAT float64   `json:"price_w_vat"`
	MarketPrice  float64   `json:"market_price"`
	TariffCost   float64   `json:"tar_cost"`
}

// Covers reports whether t falls inside this record's interval,
// [Timestamp, Timestamp+IntervalLength).
func (r Record) Covers(t time.Time) bool {
	return !t.Before(r.Timestamp) && t.Before(r.Timestamp.Add(IntervalLength))
}

// DailySet is an ordered sequence of records for one calendar date and one
// provider/tariff pair. All records share the set's calendar date in the
// source timezone; duplicate timestamps are rejected on construction,
// first occurrence wins.
type DailySet struct {
	Day      time.Time `json:"day"`
	Provider string    `json:"provider"`
	Tariff   string    `json:"tariff"`
	Records  []Record  `json:"records"`
}

// NewDailySet builds a DailySet from records, keeping only those whose
// timestamp falls on day (in day's location), sorted by timestamp with
// duplicates dropped.
func NewDailySet(day time.Time, provider, tariff string, records []Record) DailySet {
	day = Midnight(day)

	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if SameDay(r.Timestamp, day) {
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp.Before(kept[j].Timestamp)
	})

	// Drop duplicate timestamps, first wins.
	deduped := kept[:0]
	var last time.Time
	for _, r := range kept {
		if len(deduped) > 0 && r.Timestamp.Equal(last) {
			continue
		}
		deduped = append(deduped, r)
		last = r.Timestamp
	}

	return DailySet{
		Day:      day,
		Provider: provider,
		Tariff:   tariff,
		Records:  deduped,
	}
}

// Empty reports whether the set has no records. Callers must treat an empty
// set as "no data published yet", not as a failure.
func (s DailySet) Empty() bool {
	return len(s.Records) == 0
}

// Len returns the number of records in the set.
func (s DailySet) Len() int {
	return len(s.Records)
}

// Complete reports whether the set holds a full day of intervals.
func (s DailySet) Complete() bool {
	return len(s.Records) >= RecordsPerDay
}

// Midnight truncates t to the start of its calendar day, preserving location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date in b's
// location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

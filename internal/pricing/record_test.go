package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lisbon = mustLoad("Europe/Lisbon")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func rec(day time.Time, hour, minute int, price float64) Record {
	ts := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	return Record{
		Timestamp:    ts,
		Interval:     ts.Format("[15:04-") + ts.Add(IntervalLength).Format("15:04["),
		Price:        price,
		PriceWithVAT: ApplyVAT(price, 0.23),
	}
}

func TestNewDailySetFiltersToDay(t *testing.T) {
	day := time.Date(2025, 11, 20, 0, 0, 0, 0, lisbon)
	other := day.AddDate(0, 0, 1)

	set := NewDailySet(day, "Coopérnico Base", TariffSimple, []Record{
		rec(other, 0, 0, 0.2),
		rec(day, 13, 0, 0.12),
		rec(day, 0, 0, 0.1),
	})

	require.Equal(t, 2, set.Len())
	assert.True(t, set.Records[0].Timestamp.Before(set.Records[1].Timestamp), "records must be ordered")
	assert.Equal(t, 0.1, set.Records[0].Price)
}

func TestNewDailySetRejectsDuplicateTimestamps(t *testing.T) {
	day := time.Date(2025, 11, 20, 0, 0, 0, 0, lisbon)

	first := rec(day, 9, 0, 0.11)
	dup := rec(day, 9, 0, 0.99)

	set := NewDailySet(day, "Coopérnico Base", TariffSimple, []Record{first, dup})

	require.Equal(t, 1, set.Len())
	assert.Equal(t, 0.11, set.Records[0].Price, "first occurrence wins")
}

func TestRecordCovers(t *testing.T) {
	day := time.Date(2025, 11, 20, 0, 0, 0, 0, lisbon)
	r := rec(day, 13, 0, 0.12)

	assert.True(t, r.Covers(time.Date(2025, 11, 20, 13, 0, 0, 0, lisbon)))
	assert.True(t, r.Covers(time.Date(2025, 11, 20, 13, 14, 59, 0, lisbon)))
	assert.False(t, r.Covers(time.Date(2025, 11, 20, 13, 15, 0, 0, lisbon)), "interval end is exclusive")
	assert.False(t, r.Covers(time.Date(2025, 11, 20, 12, 59, 59, 0, lisbon)))
}

func TestCompleteness(t *testing.T) {
	day := time.Date(2025, 11, 20, 0, 0, 0, 0, lisbon)

	records := make([]Record, 0, RecordsPerDay)
	for i := 0; i < RecordsPerDay; i++ {
		records = append(records, rec(day, i/4, (i%4)*15, 0.1))
	}

	set := NewDailySet(day, "Coopérnico Base", TariffSimple, records)
	assert.True(t, set.Complete())

	partial := NewDailySet(day, "Coopérnico Base", TariffSimple, records[:40])
	assert.False(t, partial.Complete())
	assert.False(t, partial.Empty())
}

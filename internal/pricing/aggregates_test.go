package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateAtEmptySet(t *testing.T) {
	day := time.Date(2025, 11, 20, 0, 0, 0, 0, lisbon)
	set := NewDailySet(day, "Coopérnico Base", TariffSimple, nil)

	agg := set.AggregateAt(day.Add(10 * time.Hour))

	assert.Nil(t, agg.Current)
	assert.Nil(t, agg.Min)
	assert.Nil(t, agg.Max)
	assert.Nil(t, agg.MinWithVAT)
	assert.Nil(t, agg.MaxWithVAT)
}

func TestAggregateAtCurrentWithinRange(t *testing.T) {
	day := time.Date(2025, 11, 20, 0, 0, 0, 0, lisbon)
	set := NewDailySet(day, "Coopérnico Base", TariffSimple, []Record{
		rec(day, 12, 45, 0.08),
		rec(day, 13, 0, 0.12),
		rec(day, 13, 15, 0.15),
	})

	now := time.Date(2025, 11, 20, 13, 7, 0, 0, lisbon)
	agg := set.AggregateAt(now)

	require.NotNil(t, agg.Current)
	assert.Equal(t, 0.12, agg.Current.Price)
	assert.False(t, agg.CurrentEstimated)

	// min <= current <= max must hold whenever current resolves in range.
	require.NotNil(t, agg.Min)
	require.NotNil(t, agg.Max)
	assert.LessOrEqual(t, *agg.Min, agg.Current.Price)
	assert.GreaterOrEqual(t, *agg.Max, agg.Current.Price)
	assert.LessOrEqual(t, *agg.MinWithVAT, agg.Current.PriceWithVAT)
	assert.GreaterOrEqual(t, *agg.MaxWithVAT, agg.Current.PriceWithVAT)
}

func TestAggregateAtGapFallsBackToLastRecord(t *testing.T) {
	day := time.Date(2025, 11, 20, 0, 0, 0, 0, lisbon)
	set := NewDailySet(day, "Coopérnico Base", TariffSimple, []Record{
		rec(day, 0, 0, 0.10),
		rec(day, 0, 15, 0.11),
	})

	now := time.Date(2025, 11, 20, 18, 0, 0, 0, lisbon)
	agg := set.AggregateAt(now)

	require.NotNil(t, agg.Current)
	assert.True(t, agg.CurrentEstimated)
	assert.Equal(t, 0.11, agg.Current.Price)
}

func TestAggregateAtOtherDayHasNoCurrent(t *testing.T) {
	day := time.Date(2025, 11, 21, 0, 0, 0, 0, lisbon)
	set := NewDailySet(day, "Coopérnico Base", TariffSimple, []Record{
		rec(day, 0, 0, 0.10),
	})

	// Tomorrow's set queried during today: min/max known, current unknown.
	now := time.Date(2025, 11, 20, 10, 0, 0, 0, lisbon)
	agg := set.AggregateAt(now)

	assert.Nil(t, agg.Current)
	require.NotNil(t, agg.Min)
	assert.Equal(t, 0.10, *agg.Min)
}

func TestAggregateMinMaxTieBreaksToEarliest(t *testing.T) {
	day := time.Date(2025, 11, 20, 0, 0, 0, 0, lisbon)
	set := NewDailySet(day, "Coopérnico Base", TariffSimple, []Record{
		rec(day, 0, 0, 0.10),
		rec(day, 0, 15, 0.10),
		rec(day, 0, 30, 0.20),
		rec(day, 0, 45, 0.20),
	})

	agg := set.AggregateAt(day.Add(time.Minute))
	assert.Equal(t, 0.10, *agg.Min)
	assert.Equal(t, 0.20, *agg.Max)
}

func TestApplyVAT(t *testing.T) {
	assert.InDelta(t, 0.1476, ApplyVAT(0.12, 0.23), 1e-9)
	assert.InDelta(t, 0.09, ApplyVAT(0.09, 0), 1e-9)
	assert.Equal(t, 0.12346, Round5(0.123456789))
}

func TestInstanceKey(t *testing.T) {
	assert.Equal(t, "coopérnico_base/simple", InstanceKey("Coopérnico Base", "SIMPLE"))
	assert.Equal(t, "edp_indexada_horária/bihorario_semanal",
		InstanceKey(" EDP Indexada Horária ", "BIHORARIO_SEMANAL"))
}

func TestTariffCatalog(t *testing.T) {
	assert.True(t, ValidTariff(TariffSimple))
	assert.False(t, ValidTariff("FLAT"))
	assert.True(t, ValidProvider("Coopérnico Base"))
	assert.False(t, ValidProvider("Acme Power"))
	assert.Equal(t, "Simples", TariffLabel(TariffSimple))
	assert.Equal(t, "Custom Label", TariffLabel("Custom Label"))
	assert.Len(t, TariffCodes(), 7)
}

package csv

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarifario/price-tracker/internal/pricing"
)

var lisbon, _ = time.LoadLocation("Europe/Lisbon")

const sampleHeader = "dia,intervalo,tarifario,opcao,col,omie,tar\n"

func sampleCSV(rows ...string) []byte {
	return []byte(sampleHeader + strings.Join(rows, "\n") + "\n")
}

func TestParseFiltersProviderAndTariff(t *testing.T) {
	content := sampleCSV(
		"20/11/2025,[13:00-13:15[,Coopérnico Base,Simples,0.1200,0.0900,0.0300",
		"20/11/2025,[13:00-13:15[,Coopérnico Base,Bi-horário - Ciclo Diário,0.2000,0.0900,0.0300",
		"20/11/2025,[13:00-13:15[,Repsol Leve Sem Mais,Simples,0.3000,0.0900,0.0300",
	)

	p := NewParser(DefaultOptions(), lisbon)
	records, result, err := p.Parse(content, "Coopérnico Base", pricing.TariffSimple, 0.23)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 1, result.MatchedRows)
	assert.Equal(t, 1, result.ValidRows)
	assert.Equal(t, 0.12, records[0].Price)
}

func TestParseAppliesVAT(t *testing.T) {
	content := sampleCSV(
		"20/11/2025,[13:00-13:15[,Coopérnico Base,Simples,0.1200,0.0900,0.0300",
	)

	p := NewParser(DefaultOptions(), lisbon)
	records, _, err := p.Parse(content, "Coopérnico Base", pricing.TariffSimple, 0.23)

	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.InDelta(t, 0.1476, r.PriceWithVAT, 1e-9)
	assert.Equal(t, 0.09, r.MarketPrice)
	assert.Equal(t, 0.03, r.TariffCost)
	assert.Equal(t, "[13:00-13:15[", r.Interval)

	want := time.Date(2025, 11, 20, 13, 0, 0, 0, lisbon)
	assert.True(t, r.Timestamp.Equal(want))
}

func TestParseStripsBOM(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, sampleCSV(
		"20/11/2025,[00:00-00:15[,Coopérnico Base,Simples,0.1,0.09,0.03",
	)...)

	p := NewParser(DefaultOptions(), lisbon)
	records, _, err := p.Parse(content, "Coopérnico Base", pricing.TariffSimple, 0.23)

	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseSkipsBadRowsWithoutAborting(t *testing.T) {
	content := sampleCSV(
		"20/11/2025,[00:00-00:15[,Coopérnico Base,Simples,0.10,0.09,0.03",
		"garbage-date,[00:15-00:30[,Coopérnico Base,Simples,0.10,0.09,0.03",
		"20/11/2025,no-interval,Coopérnico Base,Simples,0.10,0.09,0.03",
		"20/11/2025,[00:45-01:00[,Coopérnico Base,Simples,not-a-number,0.09,0.03",
		"20/11/2025,[01:00-01:15[,Coopérnico Base,Simples,0.11,0.09,0.03",
	)

	p := NewParser(DefaultOptions(), lisbon)
	records, result, err := p.Parse(content, "Coopérnico Base", pricing.TariffSimple, 0.23)

	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 5, result.MatchedRows)
	assert.Equal(t, 2, result.ValidRows)
	assert.Len(t, result.Errors, 3)
}

func TestParseMissingValuesCountedAsNaN(t *testing.T) {
	content := sampleCSV(
		"21/11/2025,[00:00-00:15[,Coopérnico Base,Simples,0.10,0.09,0.03",
		"21/11/2025,[00:15-00:30[,Coopérnico Base,Simples,,,",
		"21/11/2025,[00:30-00:45[,Coopérnico Base,Simples,0.12,,0.03",
	)

	p := NewParser(DefaultOptions(), lisbon)
	records, result, err := p.Parse(content, "Coopérnico Base", pricing.TariffSimple, 0.23)

	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 2, result.SkippedNaN)
	assert.Empty(t, result.Errors, "missing values are not row errors")
}

func TestParseNoMatchingRowsIsNotAnError(t *testing.T) {
	content := sampleCSV(
		"20/11/2025,[00:00-00:15[,Repsol Leve Sem Mais,Simples,0.10,0.09,0.03",
	)

	p := NewParser(DefaultOptions(), lisbon)
	records, result, err := p.Parse(content, "Coopérnico Base", pricing.TariffSimple, 0.23)

	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, result.MatchedRows)
}

func TestParseMissingRequiredColumn(t *testing.T) {
	content := []byte("dia,intervalo,tarifario\n20/11/2025,[00:00-00:15[,Coopérnico Base\n")

	p := NewParser(DefaultOptions(), lisbon)
	_, _, err := p.Parse(content, "Coopérnico Base", pricing.TariffSimple, 0.23)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opcao")
}

func TestDetectDelimiter(t *testing.T) {
	comma := "a,b,c\n1,2,3\n4,5,6"
	semicolon := "a;b;c\n1;2;3\n4;5;6"

	assert.Equal(t, DelimiterComma, DetectDelimiter(comma))
	assert.Equal(t, DelimiterSemicolon, DetectDelimiter(semicolon))
}

func TestSplitLineQuotes(t *testing.T) {
	fields := SplitLine(`"Bi-horário, Diário",0.12,"say ""hi"""`, ',', '"')
	assert.Equal(t, []string{"Bi-horário, Diário", "0.12", `say "hi"`}, fields)
}

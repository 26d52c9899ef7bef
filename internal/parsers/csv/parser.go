// Package csv parses the upstream quarter-hourly tariff price table into
// pricing records. The table carries every provider/tariff combination in
// one document; the parser filters to a single pair per call.
package csv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tarifario/price-tracker/internal/parsers/charset"
	"github.com/tarifario/price-tracker/internal/pricing"
)

// Source column names, fixed upstream.
const (
	colDay      = "dia"       // DD/MM/YYYY
	colInterval = "intervalo" // [HH:MM-HH:MM[
	colProvider = "tarifario"
	colTariff   = "opcao"
	colPrice    = "col"  // final price without VAT
	colMarket   = "omie" // wholesale market price
	colTarCost  = "tar"  // regulated tariff cost
)

var intervalStart = regexp.MustCompile(`\[(\d{2}):(\d{2})-`)

// Parser parses the tariff price CSV with encoding detection and row-level
// error recovery.
type Parser struct {
	options  Options
	location *time.Location
}

// NewParser creates a parser. Timestamps are built in loc, the source's
// reference timezone.
func NewParser(options Options, loc *time.Location) *Parser {
	if options.QuoteChar == 0 {
		options.QuoteChar = '"'
	}
	if loc == nil {
		loc = time.Local
	}
	return &Parser{options: options, location: loc}
}

// Parse decodes content and returns the price records matching provider and
// tariff (a tariff cycle code or a raw CSV label). Rows that fail numeric or
// date parsing are skipped and reported in the Result, never aborting the
// whole parse. VAT is applied per record: price * (1 + vatRate).
func (p *Parser) Parse(content []byte, provider, tariff string, vatRate float64) ([]pricing.Record, *Result, error) {
	decoded, err := charset.Decode(content, "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode content: %w", err)
	}

	opts := p.options
	if opts.Delimiter == "" {
		opts.Delimiter = DetectDelimiter(decoded)
	}

	tariffLabel := pricing.TariffLabel(tariff)

	lines := splitLines(decoded)
	if len(lines) == 0 {
		return nil, &Result{}, nil
	}

	delimRune := rune(opts.Delimiter[0])

	header := SplitLine(lines[0], delimRune, opts.QuoteChar)
	indices, err := p.buildColumnIndices(header)
	if err != nil {
		return nil, nil, err
	}

	result := &Result{}
	records := make([]pricing.Record, 0, pricing.RecordsPerDay*2)

	for i := 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			if !opts.SkipEmptyRows {
				result.TotalRows++
			}
			continue
		}

		rowNumber := i + 1
		result.TotalRows++

		fields := SplitLine(line, delimRune, opts.QuoteChar)
		get := func(col string) string {
			idx, ok := indices[col]
			if !ok || idx >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[idx])
		}

		if get(colProvider) != provider || get(colTariff) != tariffLabel {
			continue
		}
		result.MatchedRows++

		record, rowErr := p.parseRow(get, rowNumber, vatRate)
		if rowErr != nil {
			if rowErr.Message == msgMissingValue {
				result.SkippedNaN++
			} else {
				log.Warn().
					Int("row", rowNumber).
					Str("field", rowErr.Field).
					Str("value", rowErr.OriginalValue).
					Msg("Skipping unparseable price row")
				result.Errors = append(result.Errors, *rowErr)
			}
			continue
		}

		records = append(records, *record)
		result.ValidRows++
	}

	if result.SkippedNaN > 0 {
		log.Info().
			Int("count", result.SkippedNaN).
			Str("provider", provider).
			Str("tariff", tariffLabel).
			Msg("Skipped rows with missing price values")
	}

	return records, result, nil
}

const msgMissingValue = "missing price value"

func (p *Parser) parseRow(get func(string) string, rowNumber int, vatRate float64) (*pricing.Record, *RowError) {
	dayStr := get(colDay)
	day, err := time.ParseInLocation("02/01/2006", dayStr, p.location)
	if err != nil {
		return nil, &RowError{RowNumber: rowNumber, Field: colDay, Message: "invalid date", OriginalValue: dayStr}
	}

	interval := get(colInterval)
	m := intervalStart.FindStringSubmatch(interval)
	if m == nil {
		return nil, &RowError{RowNumber: rowNumber, Field: colInterval, Message: "invalid interval", OriginalValue: interval}
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return nil, &RowError{RowNumber: rowNumber, Field: colInterval, Message: "interval out of range", OriginalValue: interval}
	}

	priceStr := get(colPrice)
	marketStr := get(colMarket)
	tarStr := get(colTarCost)

	// Upstream publishes empty cells for intervals not yet priced.
	if priceStr == "" || marketStr == "" || tarStr == "" {
		return nil, &RowError{RowNumber: rowNumber, Field: colPrice, Message: msgMissingValue}
	}

	price, err := parseDecimal(priceStr)
	if err != nil {
		return nil, &RowError{RowNumber: rowNumber, Field: colPrice, Message: "invalid price", OriginalValue: priceStr}
	}
	market, err := parseDecimal(marketStr)
	if err != nil {
		return nil, &RowError{RowNumber: rowNumber, Field: colMarket, Message: "invalid price", OriginalValue: marketStr}
	}
	tarCost, err := parseDecimal(tarStr)
	if err != nil {
		return nil, &RowError{RowNumber: rowNumber, Field: colTarCost, Message: "invalid price", OriginalValue: tarStr}
	}

	ts := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, p.location)

	return &pricing.Record{
		Timestamp:    ts,
		Interval:     interval,
		Price:        pricing.Round5(price),
		PriceWithVAT: pricing.ApplyVAT(price, vatRate),
		MarketPrice:  pricing.Round5(market),
		TariffCost:   pricing.Round5(tarCost),
	}, nil
}

// buildColumnIndices resolves the fixed source columns against the header.
func (p *Parser) buildColumnIndices(header []string) (map[string]int, error) {
	indices := make(map[string]int, len(header))
	for i, h := range header {
		indices[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for _, required := range []string{colDay, colInterval, colProvider, colTariff, colPrice} {
		if _, ok := indices[required]; !ok {
			return nil, fmt.Errorf("required column %q not found in header", required)
		}
	}

	return indices, nil
}

// parseDecimal parses a price cell. The source uses a dot decimal separator;
// NaN markers and stray text are rejected.
func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

// splitLines splits content into lines handling different line endings
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.Split(content, "\n")
}

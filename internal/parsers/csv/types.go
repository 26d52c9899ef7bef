package csv

import "strconv"

// Delimiter represents supported CSV delimiters
type Delimiter string

const (
	DelimiterComma     Delimiter = ","
	DelimiterSemicolon Delimiter = ";"
	DelimiterTab       Delimiter = "\t"
)

// Options represents parser options for the tariff price table.
type Options struct {
	// Delimiter is detected from the content when empty.
	Delimiter Delimiter `json:"delimiter,omitempty"`
	// QuoteChar defaults to '"'.
	QuoteChar rune `json:"quoteChar,omitempty"`
	// SkipEmptyRows drops blank lines instead of counting them as errors.
	SkipEmptyRows bool `json:"skipEmptyRows,omitempty"`
}

// DefaultOptions returns the parser defaults for the upstream table.
func DefaultOptions() Options {
	return Options{
		Delimiter:     DelimiterComma,
		QuoteChar:     '"',
		SkipEmptyRows: true,
	}
}

// RowError describes a single row that failed to parse. Row errors never
// abort a parse; the row is skipped and reported here.
type RowError struct {
	RowNumber     int    `json:"rowNumber"`
	Field         string `json:"field,omitempty"`
	Message       string `json:"message"`
	OriginalValue string `json:"originalValue,omitempty"`
}

func (e RowError) Error() string {
	if e.Field != "" {
		return "row " + strconv.Itoa(e.RowNumber) + " field " + e.Field + ": " + e.Message
	}
	return "row " + strconv.Itoa(e.RowNumber) + ": " + e.Message
}

// Result holds the outcome of parsing one CSV document for one
// provider/tariff pair.
type Result struct {
	TotalRows   int        `json:"totalRows"`
	MatchedRows int        `json:"matchedRows"`
	ValidRows   int        `json:"validRows"`
	SkippedNaN  int        `json:"skippedNaN"`
	Errors      []RowError `json:"errors,omitempty"`
}

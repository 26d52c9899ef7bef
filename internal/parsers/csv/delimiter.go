package csv

import (
	"strings"
	"unicode/utf8"
)

// DetectDelimiter detects the CSV delimiter by analyzing the first few lines
func DetectDelimiter(content string) Delimiter {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return DelimiterComma
	}

	// Take first 5 non-empty lines
	sampleLines := make([]string, 0, 5)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			sampleLines = append(sampleLines, trimmed)
			if len(sampleLines) >= 5 {
				break
			}
		}
	}

	if len(sampleLines) == 0 {
		return DelimiterComma
	}

	delimiters := []Delimiter{DelimiterComma, DelimiterSemicolon, DelimiterTab}
	bestDelimiter := DelimiterComma
	maxConsistency := 0.0

	for _, delim := range delimiters {
		delimStr := string(delim)
		counts := make([]int, 0, len(sampleLines))

		for _, line := range sampleLines {
			counts = append(counts, strings.Count(line, delimStr))
		}

		// All lines should have similar counts for the true delimiter.
		sum := 0
		for _, c := range counts {
			sum += c
		}
		avgCount := float64(sum) / float64(len(counts))

		if avgCount == 0 {
			continue
		}

		variance := 0.0
		for _, c := range counts {
			diff := float64(c) - avgCount
			variance += diff * diff
		}
		variance /= float64(len(counts))

		consistency := avgCount / (1.0 + variance)
		if consistency > maxConsistency {
			maxConsistency = consistency
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// SplitLine splits a CSV line handling quoted fields
func SplitLine(line string, delimiter rune, quoteChar rune) []string {
	fields := make([]string, 0, 8)
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		r, width := utf8.DecodeRuneInString(line[i:])
		i += width - 1

		if inQuotes {
			if r == quoteChar {
				// Check for escaped quote (double quote)
				if i+1 < len(line) {
					nextR, _ := utf8.DecodeRuneInString(line[i+1:])
					if nextR == quoteChar {
						current.WriteRune(quoteChar)
						i++
						continue
					}
				}
				inQuotes = false
				continue
			}
			current.WriteRune(r)
			continue
		}

		if r == quoteChar {
			inQuotes = true
			continue
		}

		if r == delimiter {
			fields = append(fields, current.String())
			current.Reset()
			continue
		}

		current.WriteRune(r)
	}

	fields = append(fields, current.String())

	return fields
}

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// commitRef is the slice element returned by the commits listing API.
type commitRef struct {
	SHA string `json:"sha"`
}

// fetchHistorical retrieves the tariff file as it existed for a past
// date, via the first commit touching the file on or after that date.
func (f *Fetcher) fetchHistorical(ctx context.Context, day time.Time) ([]byte, error) {
	commitsURL := fmt.Sprintf("%s/commits?%s", f.config.APIBaseURL, url.Values{
		"path":     {f.config.FilePath},
		"since":    {day.Format(time.RFC3339)},
		"per_page": {"1"},
	}.Encode())

	body, err := f.client.GetBytes(ctx, commitsURL)
	if err != nil {
		return nil, &NetworkError{URL: commitsURL, Err: err}
	}

	var commits []commitRef
	if err := json.Unmarshal(body, &commits); err != nil {
		return nil, fmt.Errorf("failed to decode commit listing: %w", err)
	}
	if len(commits) == 0 {
		return nil, &NotFoundError{URL: commitsURL, Day: day}
	}

	fileURL := fmt.Sprintf("%s/%s/%s", f.config.RawBaseURL, commits[0].SHA, f.config.FilePath)
	content, err := f.client.GetBytes(ctx, fileURL)
	if err != nil {
		return nil, &NetworkError{URL: fileURL, Err: err}
	}

	f.logger.Info().
		Str("date", day.Format("2006-01-02")).
		Str("commit", commits[0].SHA).
		Int("bytes", len(content)).
		Msg("Fetched historical tariff file")

	return content, nil
}

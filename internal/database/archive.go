package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tarifario/price-tracker/internal/pricing"
)

// PriceDay is one archived day of records for a provider/tariff pair.
type PriceDay struct {
	ID          string           `json:"id"` // day_{uuid}
	Provider    string           `json:"provider"`
	Tariff      string           `json:"tariff"`
	Day         time.Time        `json:"day"`
	Records     []pricing.Record `json:"records"`
	RecordCount int              `json:"record_count"`
	Checksum    string           `json:"checksum"` // SHA-256 of the records JSON
	FetchedAt   time.Time        `json:"fetched_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ErrArchiveDisabled is returned by reads when no pool is configured.
var ErrArchiveDisabled = errors.New("price archive disabled: no database configured")

// PriceArchive persists fetched days to Postgres. A nil pool disables it
// without affecting polling.
type PriceArchive struct{}

// NewPriceArchive creates an archive backed by the package pool.
func NewPriceArchive() *PriceArchive {
	return &PriceArchive{}
}

// Enabled reports whether a database pool is available.
func (a *PriceArchive) Enabled() bool {
	return Pool() != nil
}

// Migrate creates the price_days table if it does not exist.
func Migrate(ctx context.Context) error {
	pool := Pool()
	if pool == nil {
		return ErrArchiveDisabled
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS price_days (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			tariff TEXT NOT NULL,
			day DATE NOT NULL,
			records JSONB NOT NULL,
			record_count INT NOT NULL,
			checksum TEXT NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (provider, tariff, day)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create price_days table: %w", err)
	}
	return nil
}

// ArchiveDay upserts a day's records. A row is only replaced when the
// new set holds strictly more records, mirroring the disk cache rule.
// With no pool configured this is a no-op.
func (a *PriceArchive) ArchiveDay(ctx context.Context, set pricing.DailySet) error {
	pool := Pool()
	if pool == nil || set.Empty() {
		return nil
	}

	recordsJSON, err := json.Marshal(set.Records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO price_days (
			id, provider, tariff, day, records, record_count,
			checksum, fetched_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $9
		)
		ON CONFLICT (provider, tariff, day) DO UPDATE SET
			records = EXCLUDED.records,
			record_count = EXCLUDED.record_count,
			checksum = EXCLUDED.checksum,
			fetched_at = EXCLUDED.fetched_at,
			updated_at = EXCLUDED.updated_at
		WHERE EXCLUDED.record_count > price_days.record_count
	`

	_, err = pool.Exec(ctx, query,
		GeneratePriceDayID(), set.Provider, set.Tariff, set.Day,
		recordsJSON, set.Len(), CalculateChecksum(recordsJSON), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to archive day %s: %w", set.Day.Format("2006-01-02"), err)
	}
	return nil
}

// GetPriceDay retrieves an archived day, or nil when absent.
func (a *PriceArchive) GetPriceDay(ctx context.Context, provider, tariff string, day time.Time) (*PriceDay, error) {
	pool := Pool()
	if pool == nil {
		return nil, ErrArchiveDisabled
	}

	query := `
		SELECT id, provider, tariff, day, records, record_count,
			checksum, fetched_at, created_at, updated_at
		FROM price_days
		WHERE provider = $1 AND tariff = $2 AND day = $3
	`

	row := pool.QueryRow(ctx, query, provider, tariff, day)

	var pd PriceDay
	var recordsJSON []byte
	err := row.Scan(
		&pd.ID, &pd.Provider, &pd.Tariff, &pd.Day, &recordsJSON,
		&pd.RecordCount, &pd.Checksum, &pd.FetchedAt, &pd.CreatedAt, &pd.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(recordsJSON, &pd.Records); err != nil {
		return nil, fmt.Errorf("failed to decode archived records: %w", err)
	}
	return &pd, nil
}

// ListPriceDays retrieves archived days for an instance, newest first.
func (a *PriceArchive) ListPriceDays(ctx context.Context, provider, tariff string, limit, offset int) ([]PriceDay, error) {
	pool := Pool()
	if pool == nil {
		return nil, ErrArchiveDisabled
	}

	query := `
		SELECT id, provider, tariff, day, record_count,
			checksum, fetched_at, created_at, updated_at
		FROM price_days
		WHERE provider = $1 AND tariff = $2
		ORDER BY day DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := pool.Query(ctx, query, provider, tariff, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]PriceDay, 0)
	for rows.Next() {
		var pd PriceDay
		err := rows.Scan(
			&pd.ID, &pd.Provider, &pd.Tariff, &pd.Day, &pd.RecordCount,
			&pd.Checksum, &pd.FetchedAt, &pd.CreatedAt, &pd.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		days = append(days, pd)
	}

	return days, rows.Err()
}

// DeletePriceDaysBefore removes archived days older than cutoff and
// returns the number of rows removed.
func (a *PriceArchive) DeletePriceDaysBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	pool := Pool()
	if pool == nil {
		return 0, ErrArchiveDisabled
	}

	tag, err := pool.Exec(ctx, `DELETE FROM price_days WHERE day < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CalculateChecksum calculates SHA-256 checksum for data
func CalculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// GeneratePriceDayID generates a new row ID with day_ prefix
func GeneratePriceDayID() string {
	return fmt.Sprintf("day_%s", uuid.New().String())
}

// Package normalizer provides the override store for user explanation corrections.
package normalizer

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Match types accepted by ExplanationOverride.MatchType.
const (
	MatchExact    = "exact"
	MatchContains = "contains"
	MatchRegex    = "regex"
)

// ExplanationOverride replaces the default explanation for matching line-item descriptions.
type ExplanationOverride struct {
	ID            uuid.UUID  `json:"id"`
	MatchPattern  string     `json:"match_pattern"`
	MatchType     string     `json:"match_type"` // "exact", "contains", "regex"
	Explanation   string     `json:"explanation"`
	MatchCount    int        `json:"match_count"`
	LastMatchedAt *time.Time `json:"last_matched_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Matches reports whether the override applies to description.
func (o ExplanationOverride) Matches(description string) bool {
	switch o.MatchType {
	case MatchExact:
		return strings.EqualFold(strings.TrimSpace(description), strings.TrimSpace(o.MatchPattern))
	case MatchRegex:
		re, err := regexp.Compile(o.MatchPattern)
		if err != nil {
			return false
		}
		return re.MatchString(Fold(description))
	default:
		return strings.Contains(Fold(description), Fold(o.MatchPattern))
	}
}

// DB is the subset of pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OverrideStore manages explanation overrides in the database
type OverrideStore struct {
	db DB
}

// NewOverrideStore creates a new override store
func NewOverrideStore(db DB) *OverrideStore {
	return &OverrideStore{db: db}
}

// SaveOverride creates or updates an override keyed by its pattern
func (s *OverrideStore) SaveOverride(ctx context.Context, override ExplanationOverride) (*ExplanationOverride, error) {
	query := `
		INSERT INTO explanation_overrides (match_pattern, match_type, explanation)
		VALUES ($1, $2, $3)
		ON CONFLICT (match_pattern) DO UPDATE SET
			match_type = EXCLUDED.match_type,
			explanation = EXCLUDED.explanation,
			updated_at = now()
		RETURNING id, match_pattern, match_type, explanation, match_count,
			last_matched_at, created_at, updated_at
	`

	matchType := override.MatchType
	if matchType == "" {
		matchType = MatchContains
	}

	var result ExplanationOverride
	err := s.db.QueryRow(ctx, query,
		override.MatchPattern,
		matchType,
		override.Explanation,
	).Scan(
		&result.ID, &result.MatchPattern, &result.MatchType, &result.Explanation,
		&result.MatchCount, &result.LastMatchedAt, &result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListOverrides returns all overrides, most used first
func (s *OverrideStore) ListOverrides(ctx context.Context) ([]ExplanationOverride, error) {
	query := `
		SELECT id, match_pattern, match_type, explanation, match_count,
			last_matched_at, created_at, updated_at
		FROM explanation_overrides
		ORDER BY match_count DESC, updated_at DESC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []ExplanationOverride
	for rows.Next() {
		var o ExplanationOverride
		err := rows.Scan(
			&o.ID, &o.MatchPattern, &o.MatchType, &o.Explanation,
			&o.MatchCount, &o.LastMatchedAt, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// FindMatchingOverride returns the first override that applies to description, or nil
func (s *OverrideStore) FindMatchingOverride(ctx context.Context, description string) (*ExplanationOverride, error) {
	overrides, err := s.ListOverrides(ctx)
	if err != nil {
		return nil, err
	}
	return FirstMatching(overrides, description), nil
}

// RecordMatch bumps the usage counter of an override
func (s *OverrideStore) RecordMatch(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE explanation_overrides
		SET match_count = match_count + 1, last_matched_at = now()
		WHERE id = $1
	`
	_, err := s.db.Exec(ctx, query, id)
	return err
}

// DeleteOverride removes an override
func (s *OverrideStore) DeleteOverride(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM explanation_overrides WHERE id = $1`
	result, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// FirstMatching returns the first override that applies to description, or
// nil. Overrides are checked in slice order.
func FirstMatching(overrides []ExplanationOverride, description string) *ExplanationOverride {
	for i := range overrides {
		if overrides[i].Matches(description) {
			return &overrides[i]
		}
	}
	return nil
}

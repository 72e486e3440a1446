package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/logging"
	"EditaisScanner/internal/ports"
)

// SourceRepository reads the externally managed sources table.
type SourceRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ ports.SourceRegistry = (*SourceRepository)(nil)

// NewSourceRepository wires a sqlx.DB implementation.
func NewSourceRepository(db *sqlx.DB, logger *slog.Logger) *SourceRepository {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SourceRepository{db: db, logger: logger}
}

type sourceRow struct {
	ID         int64        `db:"id"`
	Name       string       `db:"name"`
	URL        string       `db:"url"`
	Type       string       `db:"type"`
	Active     bool         `db:"active"`
	Config     []byte       `db:"config"`
	LastScrape sql.NullTime `db:"last_scrape"`
}

// ListActiveSources returns active sources ordered by id. A malformed config column is
// treated as an empty config.
func (r *SourceRepository) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := psql.
		Select("id", "name", "url", "type", "active", "config", "last_scrape").
		From("sources").
		Where(sq.Eq{"active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []sourceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}

	sources := make([]domain.Source, 0, len(rows))
	for _, row := range rows {
		src := domain.Source{
			ID:     row.ID,
			Name:   row.Name,
			URL:    row.URL,
			Kind:   domain.SourceKind(row.Type),
			Active: row.Active,
			Config: domain.SourceConfig{},
		}
		if len(row.Config) > 0 {
			if err := json.Unmarshal(row.Config, &src.Config); err != nil {
				r.logger.Warn("ignoring malformed source config", "source", row.Name, "source_id", row.ID, "error", err)
				src.Config = domain.SourceConfig{}
			}
		}
		if row.LastScrape.Valid {
			t := row.LastScrape.Time
			src.LastRunAt = &t
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// MarkLastRun stamps the source's last completed pass.
func (r *SourceRepository) MarkLastRun(ctx context.Context, sourceID int64, at time.Time) error {
	query, args, err := psql.
		Update("sources").
		Set("last_scrape", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": sourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark last run %d: %w", sourceID, err)
	}
	return nil
}

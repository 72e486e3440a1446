package storage

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/ports"
)

const uniqueViolation = "23505"

// PostgresRepository persists discovered editais into Postgres. It runs on a DB handle or
// inside a transaction.
type PostgresRepository struct {
	db sqlx.ExtContext
}

var _ ports.EditalStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sqlx handle (*sqlx.DB or *sqlx.Tx).
func NewPostgresRepository(db sqlx.ExtContext) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ExistsByLink reports whether an edital with link is already stored.
func (r *PostgresRepository) ExistsByLink(ctx context.Context, link string) (bool, error) {
	query, args, err := psql.
		Select("1").
		From("editais").
		Where(sq.Eq{"link": link}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by link: %w", err)
	}
	return exists, nil
}

// Insert stores a new edital. A link that is already taken yields *domain.ConflictError.
func (r *PostgresRepository) Insert(ctx context.Context, e domain.Edital) error {
	query, args, err := psql.
		Insert("editais").
		Columns("nome", "link", "data_publicacao", "data_vencimento", "categoria", "descricao", "fonte", "created_at").
		Values(e.Title, e.Link, e.PublishedAt, e.Deadline, e.Category, e.Description, e.SourceName, e.CreatedAt).
		Suffix("ON CONFLICT (link) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return &domain.ConflictError{Link: e.Link}
		}
		return fmt.Errorf("insert edital: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &domain.ConflictError{Link: e.Link}
	}
	return nil
}

// DistinctCategories lists the categories already assigned to stored editais.
func (r *PostgresRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	query, args, err := psql.
		Select("DISTINCT categoria").
		From("editais").
		Where(sq.NotEq{"categoria": nil}).
		OrderBy("categoria").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var categories []string
	if err := sqlx.SelectContext(ctx, r.db, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	return categories, nil
}

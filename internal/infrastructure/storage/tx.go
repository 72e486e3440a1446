package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"EditaisScanner/internal/ports"
)

// TxManager scopes each source batch in its own transaction.
type TxManager struct {
	db *sqlx.DB
}

var _ ports.UnitOfWork = (*TxManager)(nil)

// NewTxManager wires the database used for batch transactions.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinSource commits when fn returns nil and rolls back otherwise.
func (m *TxManager) WithinSource(ctx context.Context, fn func(ctx context.Context, store ports.EditalStore) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(ctx, NewPostgresRepository(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

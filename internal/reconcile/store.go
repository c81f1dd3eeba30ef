package reconcile

import (
	"context"
	"time"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// Store opens batch transactions on the canonical record store.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one batch transaction. Nothing written through a Tx is visible to
// other readers until Commit returns nil.
//
// Savepoints isolate a single row: a failed statement is undone with
// RollbackToSavepoint without discarding earlier rows.
type Tx interface {
	// FindBySourceID returns domain.ErrBetNotFound when no record matches.
	FindBySourceID(ctx context.Context, src domain.Source, originalID string) (*domain.Bet, error)
	// FindByDescription returns every src record with the exact description
	// whose placement time lies in [from, to).
	FindByDescription(ctx context.Context, src domain.Source, description string, from, to time.Time) ([]*domain.Bet, error)
	// SourcesForSportsbook lists the distinct sources holding records for book.
	SourcesForSportsbook(ctx context.Context, book string) ([]domain.Source, error)

	Insert(ctx context.Context, b *domain.Bet) error
	Update(ctx context.Context, b *domain.Bet) error

	Savepoint(ctx context.Context) error
	RollbackToSavepoint(ctx context.Context) error
	ReleaseSavepoint(ctx context.Context) error

	Commit() error
	Rollback() error
}

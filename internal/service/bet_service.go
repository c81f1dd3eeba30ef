package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/metrics"
	"github.com/Apsteward8/my-bet-tracker/internal/repository"
)

// BetStore is the read and verification surface of the canonical store.
// Implemented by repository.BetRepository.
type BetStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Bet, error)
	List(ctx context.Context, f repository.BetFilter) ([]*domain.Bet, error)
	Count(ctx context.Context, f repository.BetFilter) (int, error)
	MarkVerified(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

const (
	// MaxVerifyBatch caps one bulk verification request.
	MaxVerifyBatch = 100

	defaultPageSize = 50
	maxPageSize     = 500
)

// Page is one slice of a paginated bet listing.
type Page struct {
	Bets     []*domain.Bet `json:"bets"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// paginate clamps page and size and applies them to f.
func paginate(f *repository.BetFilter, page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	f.Limit = size
	f.Offset = (page - 1) * size
	return page, size
}

// ──────────────────────────────────────────────────────────────────────────────
// BetService
// ──────────────────────────────────────────────────────────────────────────────

// BetService serves canonical bets and the operator verification workflow.
type BetService struct {
	bets BetStore
	log  *zap.Logger
}

// NewBetService creates a BetService.
func NewBetService(bets BetStore, log *zap.Logger) *BetService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BetService{bets: bets, log: log}
}

// Get returns one bet.
func (s *BetService) Get(ctx context.Context, id uuid.UUID) (*domain.Bet, error) {
	b, err := s.bets.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("bet_service.Get: %w", err)
	}
	return b, nil
}

// List returns one page of bets matching f. f.Limit and f.Offset are
// overwritten from page and size.
func (s *BetService) List(ctx context.Context, f repository.BetFilter, page, size int) (*Page, error) {
	page, size = paginate(&f, page, size)
	bets, err := s.bets.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("bet_service.List: %w", err)
	}
	total, err := s.bets.Count(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("bet_service.List: %w", err)
	}
	if bets == nil {
		bets = []*domain.Bet{}
	}
	return &Page{Bets: bets, Total: total, Page: page, PageSize: size}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Verification
// ──────────────────────────────────────────────────────────────────────────────

// UnverifiedQuery narrows the verification queue.
type UnverifiedQuery struct {
	Sportsbook string
	Status     domain.BetStatus // "" = any graded status
	Page       int
	PageSize   int
}

// ListUnverified returns the graded manual bets still awaiting an operator,
// most recently placed first.
func (s *BetService) ListUnverified(ctx context.Context, q UnverifiedQuery) (*Page, error) {
	unverified := false
	f := repository.BetFilter{
		Source:     domain.SourceOddsJam,
		Sportsbook: q.Sportsbook,
		Verified:   &unverified,
		Statuses:   []domain.BetStatus{domain.BetStatusWon, domain.BetStatusLost, domain.BetStatusRefunded},
	}
	if q.Status != "" {
		if !q.Status.IsTerminal() {
			return nil, fmt.Errorf("bet_service.ListUnverified: status %q is not graded: %w", q.Status, domain.ErrInvalidStatusFilter)
		}
		f.Statuses = []domain.BetStatus{q.Status}
	}
	return s.List(ctx, f, q.Page, q.PageSize)
}

// Verify marks one manual bet as checked. Verifying an already verified bet
// succeeds without a write. Bets from an auto-verified source are rejected.
func (s *BetService) Verify(ctx context.Context, id uuid.UUID) (*domain.Bet, error) {
	b, err := s.bets.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("bet_service.Verify: %w", err)
	}
	if b.Source.AutoVerified() {
		return nil, domain.ErrAutoVerifiedSource
	}
	if b.Verified {
		return b, nil
	}
	if _, err := s.bets.MarkVerified(ctx, []uuid.UUID{id}); err != nil {
		return nil, fmt.Errorf("bet_service.Verify: %w", err)
	}
	b.Verified = true
	s.log.Info("bet verified", zap.String("bet_id", id.String()), zap.String("sportsbook", b.Sportsbook))
	return b, nil
}

// VerifyResult reports a bulk verification.
type VerifyResult struct {
	Requested int         `json:"requested"`
	Verified  []uuid.UUID `json:"verified"`
}

// VerifyMany marks up to MaxVerifyBatch manual bets as checked. Ids that are
// unknown, already verified or from an auto-verified source are left alone
// and absent from the result.
func (s *BetService) VerifyMany(ctx context.Context, ids []uuid.UUID) (*VerifyResult, error) {
	switch {
	case len(ids) == 0:
		return nil, domain.ErrNoIDs
	case len(ids) > MaxVerifyBatch:
		return nil, domain.ErrTooManyIDs
	}

	seen := make(map[uuid.UUID]bool, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	changed, err := s.bets.MarkVerified(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("bet_service.VerifyMany: %w", err)
	}
	if changed == nil {
		changed = []uuid.UUID{}
	}
	s.log.Info("bets verified", zap.Int("requested", len(unique)), zap.Int("verified", len(changed)))
	return &VerifyResult{Requested: len(unique), Verified: changed}, nil
}

// VerificationStats computes coverage across the whole store.
func (s *BetService) VerificationStats(ctx context.Context) (metrics.VerificationStats, error) {
	bets, err := s.bets.List(ctx, repository.BetFilter{})
	if err != nil {
		return metrics.VerificationStats{}, fmt.Errorf("bet_service.VerificationStats: %w", err)
	}
	return metrics.Verification(bets), nil
}

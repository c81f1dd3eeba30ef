// Package reconcile merges source exports into the canonical bet store.
//
// One call imports one batch inside one transaction. Rows that cannot be
// mapped or stored are counted and sampled in the BatchReport; they never
// abort the batch. Only a source conflict, a cancelled context or a failed
// commit discards the batch, and then nothing from it is persisted.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Apsteward8/my-bet-tracker/internal/authority"
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/mapping"
)

// DefaultErrorSamples is the number of row error messages kept per report.
const DefaultErrorSamples = 10

// Engine reconciles typed source rows against a Store.
type Engine struct {
	store      Store
	books      *authority.Table
	mapper     *mapping.Mapper
	log        *zap.Logger
	maxSamples int
	now        func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithErrorSamples caps the error samples kept per report.
func WithErrorSamples(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxSamples = n
		}
	}
}

// WithClock replaces the clock used for record bookkeeping timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an Engine. books decides which rows each source may
// write; mapper turns rows into canonical records.
func NewEngine(store Store, books *authority.Table, mapper *mapping.Mapper, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		store:      store,
		books:      books,
		mapper:     mapper,
		log:        log,
		maxSamples: DefaultErrorSamples,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// row is the source-independent view of one input line.
type row struct {
	index      int
	sportsbook string
	mapRow     func() (*domain.Bet, error)
}

// ImportOddsJam reconciles an OddsJam export.
func (e *Engine) ImportOddsJam(ctx context.Context, rows []mapping.OddsJamRow) (domain.BatchReport, error) {
	in := make([]row, len(rows))
	for i := range rows {
		r := rows[i]
		in[i] = row{index: i, sportsbook: r.Sportsbook, mapRow: func() (*domain.Bet, error) { return e.mapper.OddsJam(r) }}
	}
	return e.run(ctx, domain.SourceOddsJam, in)
}

// ImportPikkit reconciles a Pikkit export.
func (e *Engine) ImportPikkit(ctx context.Context, rows []mapping.PikkitRow) (domain.BatchReport, error) {
	in := make([]row, len(rows))
	for i := range rows {
		r := rows[i]
		in[i] = row{index: i, sportsbook: r.Sportsbook, mapRow: func() (*domain.Bet, error) { return e.mapper.Pikkit(r) }}
	}
	return e.run(ctx, domain.SourcePikkit, in)
}

// ──────────────────────────────────────────────────────────────────────────────
// Batch
// ──────────────────────────────────────────────────────────────────────────────

type outcome int

const (
	outcomeInserted outcome = iota
	outcomeUpdated
	outcomeUnchanged
	outcomeSkipped
	outcomeFailed
)

// batch carries per-run state.
type batch struct {
	tx      Tx
	src     domain.Source
	claimed map[uuid.UUID]bool // records already matched by an earlier row
	books   map[string]bool    // sportsbooks that passed the conflict check
}

func (e *Engine) run(ctx context.Context, src domain.Source, rows []row) (domain.BatchReport, error) {
	report := domain.NewBatchReport(src, len(rows))
	log := e.log.With(zap.String("source", string(src)), zap.String("run_id", report.RunID.String()))

	fail := func(tx Tx, cause error) (domain.BatchReport, error) {
		if tx != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("rollback failed", zap.Error(rbErr))
			}
		}
		report.Fail(cause)
		report.FinishedAt = e.now()
		log.Error("batch discarded", zap.Error(cause), zap.Int("rows", report.Rows))
		return report, fmt.Errorf("reconcile.Import: %w", cause)
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return fail(nil, fmt.Errorf("begin: %w", err))
	}

	b := &batch{tx: tx, src: src, claimed: map[uuid.UUID]bool{}, books: map[string]bool{}}
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return fail(tx, err)
		}
		out, lowConf, rowErr, fatal := e.reconcileRow(ctx, b, r)
		if fatal != nil {
			return fail(tx, fatal)
		}
		switch out {
		case outcomeInserted:
			report.Inserted++
		case outcomeUpdated:
			report.Updated++
		case outcomeUnchanged:
			report.Unchanged++
		case outcomeSkipped:
			report.Skipped++
		case outcomeFailed:
			report.AddRowError(rowErr, e.maxSamples)
			log.Warn("row rejected",
				zap.Int("row", rowErr.Row),
				zap.String("kind", string(rowErr.Kind)),
				zap.Error(rowErr.Err))
		}
		if lowConf && (out == outcomeInserted || out == outcomeUpdated || out == outcomeUnchanged) {
			report.LowConfidence++
		}
	}

	if err := tx.Commit(); err != nil {
		return fail(tx, fmt.Errorf("%w: %v", domain.ErrCommitFailed, err))
	}

	report.FinishedAt = e.now()
	log.Info("batch reconciled",
		zap.Int("rows", report.Rows),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", report.Errors),
		zap.Int("unknown_status", report.UnknownStatus),
		zap.Int("low_confidence", report.LowConfidence))
	return report, nil
}

// reconcileRow applies one row. fatal is non-nil only for conditions that
// must discard the whole batch.
func (e *Engine) reconcileRow(ctx context.Context, b *batch, r row) (out outcome, lowConf bool, rowErr *domain.RowError, fatal error) {
	rowFailed := func(kind domain.RowErrorKind, err error) (outcome, bool, *domain.RowError, error) {
		return outcomeFailed, false, &domain.RowError{Row: r.index, Kind: kind, Err: err}, nil
	}

	// Authority first: rows for books owned by the other feed are ignored
	// before any parsing happens.
	if book := e.books.Canonical(r.sportsbook); book != "" && !e.books.Owns(b.src, book) {
		return outcomeSkipped, false, nil, nil
	}

	bet, err := safeMap(r.mapRow)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownStatus) {
			return rowFailed(domain.RowErrorUnknownStatus, err)
		}
		return rowFailed(domain.RowErrorParse, err)
	}

	if !b.books[bet.Sportsbook] {
		sources, err := b.tx.SourcesForSportsbook(ctx, bet.Sportsbook)
		if err != nil {
			return outcomeFailed, false, nil, fmt.Errorf("check sportsbook %q: %w", bet.Sportsbook, err)
		}
		for _, s := range sources {
			if s != b.src {
				return outcomeFailed, false, nil, fmt.Errorf("%w: %s holds %s records", domain.ErrSourceConflict, bet.Sportsbook, s)
			}
		}
		b.books[bet.Sportsbook] = true
	}

	if err := b.tx.Savepoint(ctx); err != nil {
		return outcomeFailed, false, nil, fmt.Errorf("savepoint: %w", err)
	}
	out, err = e.apply(ctx, b, bet)
	if err != nil {
		if rbErr := b.tx.RollbackToSavepoint(ctx); rbErr != nil {
			return outcomeFailed, false, nil, fmt.Errorf("rollback to savepoint: %w", rbErr)
		}
		return rowFailed(domain.RowErrorStore, err)
	}
	if err := b.tx.ReleaseSavepoint(ctx); err != nil {
		return outcomeFailed, false, nil, fmt.Errorf("release savepoint: %w", err)
	}
	return out, bet.LowConfidence, nil, nil
}

func safeMap(fn func() (*domain.Bet, error)) (bet *domain.Bet, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("mapping panic: %v", p)
		}
	}()
	return fn()
}

// apply inserts or merges one mapped record.
func (e *Engine) apply(ctx context.Context, b *batch, fresh *domain.Bet) (outcome, error) {
	existing, err := e.lookup(ctx, b, fresh)
	if err != nil {
		return outcomeFailed, err
	}

	now := e.now()
	if existing == nil {
		fresh.ID = uuid.New()
		fresh.Verified = b.src.AutoVerified()
		fresh.CreatedAt = now
		fresh.UpdatedAt = now
		if err := b.tx.Insert(ctx, fresh); err != nil {
			return outcomeFailed, fmt.Errorf("insert %s: %w", fresh.MatchKey(), err)
		}
		b.claimed[fresh.ID] = true
		return outcomeInserted, nil
	}

	b.claimed[existing.ID] = true
	next := Merge(existing, fresh)
	if existing.SameContent(next) && existing.Verified == next.Verified {
		return outcomeUnchanged, nil
	}
	next.UpdatedAt = now
	if err := b.tx.Update(ctx, next); err != nil {
		return outcomeFailed, fmt.Errorf("update %s: %w", next.MatchKey(), err)
	}
	return outcomeUpdated, nil
}

// lookup finds the stored record for fresh, or nil.
func (e *Engine) lookup(ctx context.Context, b *batch, fresh *domain.Bet) (*domain.Bet, error) {
	if fresh.Source == domain.SourcePikkit {
		existing, err := b.tx.FindBySourceID(ctx, fresh.Source, fresh.OriginalID)
		if errors.Is(err, domain.ErrBetNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", fresh.MatchKey(), err)
		}
		return existing, nil
	}

	key := fresh.MatchKey()
	from := key.PlacedMinute.Add(-domain.MatchTolerance)
	to := key.PlacedMinute.Add(domain.MatchTolerance + time.Minute)
	candidates, err := b.tx.FindByDescription(ctx, fresh.Source, key.Description, from, to)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", key, err)
	}
	return closestUnclaimed(candidates, key.PlacedMinute, fresh.OriginalID, b.claimed), nil
}

// closestUnclaimed picks the candidate placed nearest to minute that no
// earlier row of the batch has matched. Two identical wagers in one export
// therefore stay two records. Ties prefer the record that last occupied the
// same export position.
func closestUnclaimed(candidates []*domain.Bet, minute time.Time, position string, claimed map[uuid.UUID]bool) *domain.Bet {
	distance := func(b *domain.Bet) time.Duration {
		d := b.TimePlaced.Truncate(time.Minute).Sub(minute)
		if d < 0 {
			return -d
		}
		return d
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := distance(candidates[i]), distance(candidates[j])
		if di != dj {
			return di < dj
		}
		pi, pj := candidates[i].OriginalID == position, candidates[j].OriginalID == position
		if pi != pj {
			return pi
		}
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})
	for _, c := range candidates {
		if !claimed[c.ID] && distance(c) <= domain.MatchTolerance {
			return c
		}
	}
	return nil
}

// Merge returns the record that results from applying fresh on top of
// existing. The newer export wins on every mutable field with two
// exceptions: verification never regresses, and a graded record never
// returns to pending.
func Merge(existing, fresh *domain.Bet) *domain.Bet {
	next := *fresh
	next.ID = existing.ID
	next.Source = existing.Source
	next.CreatedAt = existing.CreatedAt
	next.UpdatedAt = existing.UpdatedAt
	next.Verified = existing.Verified || fresh.Verified

	if existing.Source == domain.SourceOddsJam {
		// Keep the stored identity when the placement time drifted within
		// tolerance.
		next.Description = existing.Description
		next.TimePlaced = existing.TimePlaced
	}

	if existing.Status.IsTerminal() && !fresh.Status.IsTerminal() {
		next.Status = existing.Status
		next.TimeSettled = existing.TimeSettled
		next.Profit = existing.Profit
	}
	return &next
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/reconcile"
)

const betColumns = `id, source, original_id, sportsbook, bet_kind, strategy, status,
	odds, closing_line, stake, profit, time_placed, time_settled, description,
	selection, market, matchup, sport, league, tags, verified, low_confidence,
	created_at, updated_at`

// BetRepository handles all database operations for canonical bets.
type BetRepository struct {
	db  *sqlx.DB
	loc *time.Location
}

// NewBetRepository creates a new BetRepository. Timestamps read back are
// expressed in loc.
func NewBetRepository(db *sqlx.DB, loc *time.Location) *BetRepository {
	return &BetRepository{db: db, loc: loc}
}

// localize moves every timestamp of bets into the canonical zone.
func localize(loc *time.Location, bets ...*domain.Bet) {
	for _, b := range bets {
		b.TimePlaced = b.TimePlaced.In(loc)
		if b.TimeSettled != nil {
			t := b.TimeSettled.In(loc)
			b.TimeSettled = &t
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// BetFilter narrows List and Count. Zero fields do not filter.
type BetFilter struct {
	Source     domain.Source
	Sportsbook string
	Sport      string
	Statuses   []domain.BetStatus
	Verified   *bool
	From       time.Time // COALESCE(time_settled, time_placed) >= From
	To         time.Time // ... < To
	Limit      int
	Offset     int
}

func (f BetFilter) where() (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Source != "" {
		add("source = $%d", string(f.Source))
	}
	if f.Sportsbook != "" {
		add("lower(sportsbook) = lower($%d)", f.Sportsbook)
	}
	if f.Sport != "" {
		add("lower(sport) = lower($%d)", f.Sport)
	}
	if len(f.Statuses) > 0 {
		ss := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			ss[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(ss))
	}
	if f.Verified != nil {
		add("verified = $%d", *f.Verified)
	}
	if !f.From.IsZero() {
		add("COALESCE(time_settled, time_placed) >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("COALESCE(time_settled, time_placed) < $%d", f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetByID fetches a bet by its primary key.
func (r *BetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bet, error) {
	var b domain.Bet
	err := r.db.GetContext(ctx, &b, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBetNotFound
		}
		return nil, fmt.Errorf("bet_repo.GetByID: %w", err)
	}
	localize(r.loc, &b)
	return &b, nil
}

// List returns the bets matching f, most recently placed first.
func (r *BetRepository) List(ctx context.Context, f BetFilter) ([]*domain.Bet, error) {
	where, args := f.where()
	query := `SELECT ` + betColumns + ` FROM bets` + where + ` ORDER BY time_placed DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	var bets []*domain.Bet
	if err := r.db.SelectContext(ctx, &bets, query, args...); err != nil {
		return nil, fmt.Errorf("bet_repo.List: %w", err)
	}
	localize(r.loc, bets...)
	return bets, nil
}

// Count returns how many bets match f, ignoring pagination.
func (r *BetRepository) Count(ctx context.Context, f BetFilter) (int, error) {
	where, args := f.where()
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM bets`+where, args...); err != nil {
		return 0, fmt.Errorf("bet_repo.Count: %w", err)
	}
	return n, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Verification
// ──────────────────────────────────────────────────────────────────────────────

// MarkVerified flags every unverified manual bet among ids and returns the
// ids that changed.
func (r *BetRepository) MarkVerified(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	var changed []uuid.UUID
	err := r.db.SelectContext(ctx, &changed, `
		UPDATE bets
		SET verified   = TRUE,
		    updated_at = now()
		WHERE id = ANY($1::uuid[])
		  AND source   = $2
		  AND verified = FALSE
		RETURNING id`,
		pq.Array(strIDs), string(domain.SourceOddsJam))
	if err != nil {
		return nil, fmt.Errorf("bet_repo.MarkVerified: %w", err)
	}
	return changed, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Batch transactions (reconcile.Store)
// ──────────────────────────────────────────────────────────────────────────────

// Begin opens a batch transaction for the reconciliation engine.
func (r *BetRepository) Begin(ctx context.Context) (reconcile.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.Begin: %w", err)
	}
	return &betTx{tx: tx, loc: r.loc}, nil
}

const insertBetQuery = `
	INSERT INTO bets (` + betColumns + `)
	VALUES
		(:id, :source, :original_id, :sportsbook, :bet_kind, :strategy, :status,
		 :odds, :closing_line, :stake, :profit, :time_placed, :time_settled, :description,
		 :selection, :market, :matchup, :sport, :league, :tags, :verified, :low_confidence,
		 :created_at, :updated_at)`

const updateBetQuery = `
	UPDATE bets
	SET original_id    = :original_id,
	    sportsbook     = :sportsbook,
	    bet_kind       = :bet_kind,
	    strategy       = :strategy,
	    status         = :status,
	    odds           = :odds,
	    closing_line   = :closing_line,
	    stake          = :stake,
	    profit         = :profit,
	    time_placed    = :time_placed,
	    time_settled   = :time_settled,
	    description    = :description,
	    selection      = :selection,
	    market         = :market,
	    matchup        = :matchup,
	    sport          = :sport,
	    league         = :league,
	    tags           = :tags,
	    verified       = verified OR :verified,
	    low_confidence = :low_confidence,
	    updated_at     = :updated_at
	WHERE id = :id`

type betTx struct {
	tx  *sqlx.Tx
	loc *time.Location
}

func (t *betTx) FindBySourceID(ctx context.Context, src domain.Source, originalID string) (*domain.Bet, error) {
	var b domain.Bet
	err := t.tx.GetContext(ctx, &b,
		`SELECT `+betColumns+` FROM bets WHERE source = $1 AND original_id = $2`,
		string(src), originalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBetNotFound
		}
		return nil, fmt.Errorf("bet_repo.FindBySourceID: %w", err)
	}
	localize(t.loc, &b)
	return &b, nil
}

func (t *betTx) FindByDescription(ctx context.Context, src domain.Source, desc string, from, to time.Time) ([]*domain.Bet, error) {
	var bets []*domain.Bet
	err := t.tx.SelectContext(ctx, &bets, `
		SELECT `+betColumns+`
		FROM bets
		WHERE source = $1
		  AND description = $2
		  AND time_placed >= $3
		  AND time_placed <  $4
		FOR UPDATE`,
		string(src), desc, from, to)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.FindByDescription: %w", err)
	}
	localize(t.loc, bets...)
	return bets, nil
}

func (t *betTx) SourcesForSportsbook(ctx context.Context, book string) ([]domain.Source, error) {
	var sources []domain.Source
	err := t.tx.SelectContext(ctx, &sources,
		`SELECT DISTINCT source FROM bets WHERE sportsbook = $1`, book)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.SourcesForSportsbook: %w", err)
	}
	return sources, nil
}

func (t *betTx) Insert(ctx context.Context, b *domain.Bet) error {
	if _, err := t.tx.NamedExecContext(ctx, insertBetQuery, b); err != nil {
		return fmt.Errorf("bet_repo.Insert: %w", err)
	}
	return nil
}

// Update overwrites every mutable field of b. Verification is OR-ed so an
// update never clears it.
func (t *betTx) Update(ctx context.Context, b *domain.Bet) error {
	res, err := t.tx.NamedExecContext(ctx, updateBetQuery, b)
	if err != nil {
		return fmt.Errorf("bet_repo.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBetNotFound
	}
	return nil
}

func (t *betTx) Savepoint(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `SAVEPOINT reconcile_row`)
	return err
}

// RollbackToSavepoint undoes the current row and drops its savepoint so
// failed rows do not accumulate savepoints on the transaction.
func (t *betTx) RollbackToSavepoint(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT reconcile_row`); err != nil {
		return err
	}
	return t.ReleaseSavepoint(ctx)
}

func (t *betTx) ReleaseSavepoint(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `RELEASE SAVEPOINT reconcile_row`)
	return err
}

func (t *betTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("bet_repo.Commit: %w", err)
	}
	return nil
}

func (t *betTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("bet_repo.Rollback: %w", err)
	}
	return nil
}

package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/Apsteward8/my-bet-tracker/internal/authority"
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/mapping"
	"github.com/Apsteward8/my-bet-tracker/internal/reconcile"
)

func newEngine(t *testing.T, store reconcile.Store) *reconcile.Engine {
	t.Helper()
	loc, err := time.LoadLocation(mapping.DefaultTimezone)
	if err != nil {
		t.Fatal(err)
	}
	books := authority.Default()
	return reconcile.NewEngine(store, books, mapping.NewMapper(books, loc), zaptest.NewLogger(t))
}

func pikkit(id, status string) mapping.PikkitRow {
	return mapping.PikkitRow{
		BetID:       id,
		Sportsbook:  "FanDuel",
		Type:        "straight",
		Status:      status,
		Odds:        "1.91",
		ClosingLine: "1.80",
		Amount:      "10",
		Profit:      "9.1",
		TimePlaced:  "05/29/2025 21:56:40 GMT",
		BetInfo:     "Lakers -4.5 Spread Lakers vs Celtics",
	}
}

func oddsjam(index int, stake string) mapping.OddsJamRow {
	return mapping.OddsJamRow{
		Index:      index,
		Sportsbook: "Bovada",
		EventName:  "Lakers vs Celtics",
		BetName:    "Lakers -4.5",
		MarketName: "Spread",
		Odds:       "-110",
		CLV:        "-118",
		Stake:      stake,
		BetProfit:  "0",
		Status:     "pending",
		BetType:    "positive_ev",
		CreatedAt:  "03/16/2025, 22:13 EDT",
	}
}

func wantCounts(t *testing.T, r domain.BatchReport, inserted, updated, unchanged, skipped, errs int) {
	t.Helper()
	if r.Inserted != inserted || r.Updated != updated || r.Unchanged != unchanged || r.Skipped != skipped || r.Errors != errs {
		t.Errorf("report = ins %d upd %d unch %d skip %d err %d; want %d %d %d %d %d",
			r.Inserted, r.Updated, r.Unchanged, r.Skipped, r.Errors,
			inserted, updated, unchanged, skipped, errs)
	}
	if r.Accounted() != r.Rows {
		t.Errorf("accounted %d of %d rows", r.Accounted(), r.Rows)
	}
}

func TestImportPikkit_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := reconcile.NewMemoryStore()
	e := newEngine(t, store)
	rows := []mapping.PikkitRow{pikkit("abc123", "SETTLED_WIN"), pikkit("def456", "PLACED")}

	first, err := e.ImportPikkit(ctx, rows)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	wantCounts(t, first, 2, 0, 0, 0, 0)

	second, err := e.ImportPikkit(ctx, rows)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	wantCounts(t, second, 0, 0, 2, 0, 0)

	bets := store.All()
	if len(bets) != 2 {
		t.Fatalf("store holds %d records, want 2", len(bets))
	}
	for _, b := range bets {
		if !b.Verified {
			t.Errorf("%s should be verified", b.OriginalID)
		}
	}
}

func TestImportOddsJam_CorrectionKeepsVerification(t *testing.T) {
	ctx := context.Background()
	store := reconcile.NewMemoryStore()
	e := newEngine(t, store)

	if _, err := e.ImportOddsJam(ctx, []mapping.OddsJamRow{oddsjam(0, "10")}); err != nil {
		t.Fatal(err)
	}
	stored := store.All()[0]
	stored.Verified = true
	store.Seed(stored)

	report, err := e.ImportOddsJam(ctx, []mapping.OddsJamRow{oddsjam(0, "12.50")})
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, report, 0, 1, 0, 0, 0)

	got := store.All()
	if len(got) != 1 {
		t.Fatalf("store holds %d records, want 1", len(got))
	}
	if !got[0].Stake.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("stake = %s, want 12.50", got[0].Stake)
	}
	if !got[0].Verified {
		t.Error("verification must survive a correction")
	}
	if got[0].ID != stored.ID {
		t.Error("correction must update the existing record, not replace it")
	}
}

func TestImport_AuthorityExclusive(t *testing.T) {
	ctx := context.Background()
	store := reconcile.NewMemoryStore()
	e := newEngine(t, store)

	oj := oddsjam(0, "10")
	oj.Sportsbook = "Fanduel Sportsbook"
	report, err := e.ImportOddsJam(ctx, []mapping.OddsJamRow{oj})
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, report, 0, 0, 0, 1, 0)

	pk := pikkit("x1", "PLACED")
	pk.Sportsbook = "Bovada"
	report, err = e.ImportPikkit(ctx, []mapping.PikkitRow{pk})
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, report, 0, 0, 0, 1, 0)

	if n := len(store.All()); n != 0 {
		t.Errorf("store holds %d records, want 0", n)
	}
}

func TestImport_BadRowsDoNotAbort(t *testing.T) {
	store := reconcile.NewMemoryStore()
	e := newEngine(t, store)

	bad := pikkit("bad", "SETTLED_WIN")
	bad.Odds = "evens"
	unknown := pikkit("weird", "SETTLED_HALF_WIN")
	rows := []mapping.PikkitRow{pikkit("a", "SETTLED_WIN"), bad, unknown, pikkit("b", "SETTLED_LOSS")}

	report, err := e.ImportPikkit(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, report, 2, 0, 0, 0, 1)
	if report.UnknownStatus != 1 {
		t.Errorf("unknown_status = %d, want 1", report.UnknownStatus)
	}
	if len(report.ErrorSamples) != 2 {
		t.Errorf("error samples = %v, want 2 entries", report.ErrorSamples)
	}
	if n := len(store.All()); n != 2 {
		t.Errorf("store holds %d records, want 2", n)
	}
}

func TestImport_CommitFailureDiscardsBatch(t *testing.T) {
	store := reconcile.NewMemoryStore()
	e := newEngine(t, store)
	store.FailNextCommit(errors.New("disk full"))

	report, err := e.ImportPikkit(context.Background(), []mapping.PikkitRow{pikkit("a", "SETTLED_WIN")})
	if !errors.Is(err, domain.ErrCommitFailed) {
		t.Fatalf("err = %v, want ErrCommitFailed", err)
	}
	if !report.Failed || report.FailureReason == "" {
		t.Errorf("report should be marked failed: %+v", report)
	}
	if report.Inserted != 0 {
		t.Errorf("failed batch reports %d inserts", report.Inserted)
	}
	if n := len(store.All()); n != 0 {
		t.Errorf("store holds %d records after failed commit", n)
	}
}

func TestImport_SourceConflictIsFatal(t *testing.T) {
	store := reconcile.NewMemoryStore()
	store.Seed(&domain.Bet{Source: domain.SourcePikkit, OriginalID: "legacy", Sportsbook: "Bovada", Status: domain.BetStatusWon})
	e := newEngine(t, store)

	report, err := e.ImportOddsJam(context.Background(), []mapping.OddsJamRow{oddsjam(0, "10")})
	if !errors.Is(err, domain.ErrSourceConflict) {
		t.Fatalf("err = %v, want ErrSourceConflict", err)
	}
	if !report.Failed {
		t.Error("report should be marked failed")
	}
	if n := len(store.All()); n != 1 {
		t.Errorf("store holds %d records, want only the seed", n)
	}
}

func TestImport_StatusNeverRegresses(t *testing.T) {
	ctx := context.Background()
	store := reconcile.NewMemoryStore()
	e := newEngine(t, store)

	if _, err := e.ImportPikkit(ctx, []mapping.PikkitRow{pikkit("a", "SETTLED_WIN")}); err != nil {
		t.Fatal(err)
	}
	stale := pikkit("a", "PLACED")
	stale.Amount = "11"
	if _, err := e.ImportPikkit(ctx, []mapping.PikkitRow{stale}); err != nil {
		t.Fatal(err)
	}

	got := store.All()[0]
	if got.Status != domain.BetStatusWon {
		t.Errorf("status = %s, want won", got.Status)
	}
	if !got.Stake.Equal(decimal.NewFromInt(11)) {
		t.Errorf("stake = %s, want 11 (other fields still update)", got.Stake)
	}
}

func TestImportOddsJam_MinuteTolerance(t *testing.T) {
	ctx := context.Background()
	store := reconcile.NewMemoryStore()
	e := newEngine(t, store)

	if _, err := e.ImportOddsJam(ctx, []mapping.OddsJamRow{oddsjam(0, "10")}); err != nil {
		t.Fatal(err)
	}

	drift := oddsjam(3, "10")
	drift.CreatedAt = "03/16/2025, 22:14 EDT"
	report, err := e.ImportOddsJam(ctx, []mapping.OddsJamRow{drift})
	if err != nil {
		t.Fatal(err)
	}
	// Only the positional id moved.
	wantCounts(t, report, 0, 1, 0, 0, 0)

	far := oddsjam(0, "10")
	far.CreatedAt = "03/16/2025, 22:16 EDT"
	report, err = e.ImportOddsJam(ctx, []mapping.OddsJamRow{far})
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, report, 1, 0, 0, 0, 0)
}

func TestImportOddsJam_IdenticalWagersStayDistinct(t *testing.T) {
	ctx := context.Background()
	store := reconcile.NewMemoryStore()
	e := newEngine(t, store)
	rows := []mapping.OddsJamRow{oddsjam(0, "10"), oddsjam(1, "10")}

	first, err := e.ImportOddsJam(ctx, rows)
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, first, 2, 0, 0, 0, 0)

	second, err := e.ImportOddsJam(ctx, rows)
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, second, 0, 0, 2, 0, 0)
}

// failingStore rejects inserts for one original id.
type failingStore struct {
	*reconcile.MemoryStore
	failID string
}

func (s failingStore) Begin(ctx context.Context) (reconcile.Tx, error) {
	tx, err := s.MemoryStore.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return failingTx{Tx: tx, failID: s.failID}, nil
}

type failingTx struct {
	reconcile.Tx
	failID string
}

func (t failingTx) Insert(ctx context.Context, b *domain.Bet) error {
	if b.OriginalID == t.failID {
		return errors.New("constraint violation")
	}
	return t.Tx.Insert(ctx, b)
}

func TestImport_StoreErrorIsolatedToRow(t *testing.T) {
	mem := reconcile.NewMemoryStore()
	e := newEngine(t, failingStore{MemoryStore: mem, failID: "b"})

	rows := []mapping.PikkitRow{pikkit("a", "SETTLED_WIN"), pikkit("b", "SETTLED_WIN"), pikkit("c", "SETTLED_WIN")}
	report, err := e.ImportPikkit(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, report, 2, 0, 0, 0, 1)
	if n := len(mem.All()); n != 2 {
		t.Errorf("store holds %d records, want 2", n)
	}
}

func TestImport_CancelledContext(t *testing.T) {
	store := reconcile.NewMemoryStore()
	e := newEngine(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := e.ImportPikkit(ctx, []mapping.PikkitRow{pikkit("a", "SETTLED_WIN")})
	if err == nil || !report.Failed {
		t.Errorf("cancelled import should fail, got err=%v report=%+v", err, report)
	}
}

func TestMerge(t *testing.T) {
	settled := time.Date(2025, 3, 17, 20, 0, 0, 0, time.UTC)
	existing := &domain.Bet{
		Source:      domain.SourceOddsJam,
		Description: "Lakers -4.5",
		TimePlaced:  time.Date(2025, 3, 16, 21, 13, 0, 0, time.UTC),
		Status:      domain.BetStatusWon,
		TimeSettled: &settled,
		Profit:      decimal.RequireFromString("9.09"),
		Verified:    true,
	}
	fresh := &domain.Bet{
		Source:      domain.SourceOddsJam,
		Description: "Lakers -4.5",
		TimePlaced:  time.Date(2025, 3, 16, 21, 14, 0, 0, time.UTC),
		Status:      domain.BetStatusPending,
		Stake:       decimal.NewFromInt(10),
	}

	got := reconcile.Merge(existing, fresh)
	if got.Status != domain.BetStatusWon || got.TimeSettled == nil || !got.Profit.Equal(existing.Profit) {
		t.Errorf("graded outcome regressed: %s %v %s", got.Status, got.TimeSettled, got.Profit)
	}
	if !got.Verified {
		t.Error("verification regressed")
	}
	if !got.TimePlaced.Equal(existing.TimePlaced) {
		t.Errorf("time_placed = %s, want stored %s", got.TimePlaced, existing.TimePlaced)
	}
	if !got.Stake.Equal(fresh.Stake) {
		t.Errorf("stake = %s, want %s", got.Stake, fresh.Stake)
	}
}

//go:build integration

// Run against a disposable database:
//
//	TEST_DATABASE_DSN="postgres://localhost/bet_tracker_test?sslmode=disable" go test -tags integration ./internal/repository/
package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.sql"))
	if err != nil || len(files) == 0 {
		t.Fatalf("migrations: %v", err)
	}
	sort.Strings(files)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := db.Exec(string(data)); err != nil {
			t.Fatalf("apply %s: %v", f, err)
		}
	}
	if _, err := db.Exec(`TRUNCATE bets, import_runs`); err != nil {
		t.Fatal(err)
	}
	return db
}

func oddsJamBet(desc string, placed time.Time) *domain.Bet {
	now := time.Now().UTC()
	return &domain.Bet{
		ID:          uuid.New(),
		Source:      domain.SourceOddsJam,
		OriginalID:  "0",
		Sportsbook:  "Bovada",
		Kind:        domain.BetKindStraight,
		Status:      domain.BetStatusPending,
		Odds:        -110,
		Stake:       decimal.NewFromInt(10),
		Profit:      decimal.Zero,
		TimePlaced:  placed,
		Description: desc,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestBetTx_SavepointIsolatesRow(t *testing.T) {
	repo := NewBetRepository(testDB(t), time.UTC)
	ctx := context.Background()
	placed := time.Date(2025, 3, 16, 21, 13, 0, 0, time.UTC)

	tx, err := repo.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	kept := oddsJamBet("Lakers -4.5 Spread Lakers vs Celtics", placed)
	if err := tx.Savepoint(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Insert(ctx, kept); err != nil {
		t.Fatal(err)
	}
	if err := tx.ReleaseSavepoint(ctx); err != nil {
		t.Fatal(err)
	}

	// A duplicate primary key fails; rolling back to the savepoint keeps the
	// transaction usable.
	if err := tx.Savepoint(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Insert(ctx, kept); err == nil {
		t.Fatal("duplicate insert should fail")
	}
	if err := tx.RollbackToSavepoint(ctx); err != nil {
		t.Fatalf("RollbackToSavepoint() error = %v", err)
	}

	found, err := tx.FindByDescription(ctx, domain.SourceOddsJam, kept.Description, placed.Add(-time.Minute), placed.Add(time.Minute))
	if err != nil {
		t.Fatalf("FindByDescription() after rollback error = %v", err)
	}
	if len(found) != 1 || found[0].ID != kept.ID {
		t.Fatalf("found = %v, want the first insert", found)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.GetByID(ctx, kept.ID); err != nil {
		t.Errorf("GetByID() after commit error = %v", err)
	}
}

func TestBetTx_UpdateKeepsVerification(t *testing.T) {
	repo := NewBetRepository(testDB(t), time.UTC)
	ctx := context.Background()
	b := oddsJamBet("Over 220.5 Total Points Knicks at Heat", time.Date(2025, 3, 17, 1, 0, 0, 0, time.UTC))

	tx, err := repo.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Insert(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if changed, err := repo.MarkVerified(ctx, []uuid.UUID{b.ID}); err != nil || len(changed) != 1 {
		t.Fatalf("MarkVerified() = %v, %v", changed, err)
	}

	tx, err = repo.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	b.Stake = decimal.RequireFromString("12.50")
	b.Verified = false
	if err := tx.Update(ctx, b); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := tx.Update(ctx, oddsJamBet("missing", b.TimePlaced)); !errors.Is(err, domain.ErrBetNotFound) {
		t.Errorf("Update() of an unknown id err = %v, want ErrBetNotFound", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Verified || !got.Stake.Equal(b.Stake) {
		t.Errorf("after update verified=%v stake=%s, want true and 12.50", got.Verified, got.Stake)
	}
}

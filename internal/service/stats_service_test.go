package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/metrics"
	"github.com/Apsteward8/my-bet-tracker/internal/service"
)

func TestStatsService_Summary(t *testing.T) {
	store, _ := betFixture()
	svc := service.NewStatsService(store, time.UTC)

	report, err := svc.Summary(context.Background(), metrics.Filter{Source: domain.SourceOddsJam})
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if report.Overall.All.Count != 4 {
		t.Errorf("overall count = %d, want 4 oddsjam bets", report.Overall.All.Count)
	}
	// won 9 + lost -10 + won 4; the pending bet has no profit
	if !report.Overall.All.Profit.Equal(decimal.NewFromInt(3)) {
		t.Errorf("profit = %s, want 3", report.Overall.All.Profit)
	}
}

func TestStatsService_Calendar(t *testing.T) {
	store, _ := betFixture()
	svc := service.NewStatsService(store, time.UTC)

	month, err := svc.Calendar(context.Background(), 2025, time.March)
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	if len(month.Days) != 5 || month.Summary.Count != 5 {
		t.Errorf("march = %d days, %d bets; want 5 and 5", len(month.Days), month.Summary.Count)
	}

	empty, err := svc.Calendar(context.Background(), 2025, time.April)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Days) != 0 {
		t.Errorf("april days = %d, want 0", len(empty.Days))
	}

	if _, err := svc.Calendar(context.Background(), 2025, time.Month(13)); err == nil {
		t.Error("month 13 should be rejected")
	}
}

func TestStatsService_Day(t *testing.T) {
	store, named := betFixture()
	svc := service.NewStatsService(store, time.UTC)

	day, err := svc.Day(context.Background(), placedAt(2, 0))
	if err != nil {
		t.Fatalf("Day() error = %v", err)
	}
	if len(day.Bets) != 1 || day.Bets[0].ID != named["oj-lost"].ID {
		t.Errorf("day bets = %+v", day.Bets)
	}
	if day.BiggestLoss == nil || day.BiggestLoss.ID != named["oj-lost"].ID {
		t.Error("biggest loss should be the only lost bet")
	}
}

func TestStatsService_Analysis(t *testing.T) {
	store, _ := betFixture()
	svc := service.NewStatsService(store, time.UTC)

	rows, err := svc.Analysis(context.Background(), metrics.Filter{Sportsbook: "FanDuel"})
	if err != nil {
		t.Fatalf("Analysis() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Category != metrics.EVNoCLV {
		t.Errorf("analysis = %+v, want one bet without closing line", rows)
	}
}

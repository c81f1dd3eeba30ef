package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/metrics"
	"github.com/Apsteward8/my-bet-tracker/internal/repository"
)

// BetLister is the read side StatsService needs.
type BetLister interface {
	List(ctx context.Context, f repository.BetFilter) ([]*domain.Bet, error)
}

// StatsService computes performance metrics over the canonical store.
// Storage filters only narrow the rows loaded; metrics.Filter decides what
// each report covers.
type StatsService struct {
	bets   BetLister
	engine *metrics.Engine
	loc    *time.Location
}

// NewStatsService creates a StatsService bucketing days in loc.
func NewStatsService(bets BetLister, loc *time.Location) *StatsService {
	return &StatsService{bets: bets, engine: metrics.NewEngine(loc), loc: loc}
}

// Location returns the zone used for day buckets.
func (s *StatsService) Location() *time.Location { return s.loc }

func (s *StatsService) load(ctx context.Context, f metrics.Filter) ([]*domain.Bet, error) {
	bets, err := s.bets.List(ctx, repository.BetFilter{
		Source:     f.Source,
		Sportsbook: f.Sportsbook,
		Sport:      f.Sport,
		From:       f.From,
		To:         f.To,
	})
	if err != nil {
		return nil, err
	}
	return bets, nil
}

// Summary returns the grouped report for f.
func (s *StatsService) Summary(ctx context.Context, f metrics.Filter) (metrics.Report, error) {
	bets, err := s.load(ctx, f)
	if err != nil {
		return metrics.Report{}, fmt.Errorf("stats_service.Summary: %w", err)
	}
	return s.engine.Summarize(bets, f), nil
}

// Analysis returns the per-bet EV analysis for f.
func (s *StatsService) Analysis(ctx context.Context, f metrics.Filter) ([]metrics.Analysis, error) {
	bets, err := s.load(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("stats_service.Analysis: %w", err)
	}
	return s.engine.AnalyzeAll(bets, f), nil
}

// Calendar returns the month view.
func (s *StatsService) Calendar(ctx context.Context, year int, month time.Month) (metrics.Month, error) {
	if month < time.January || month > time.December {
		return metrics.Month{}, fmt.Errorf("stats_service.Calendar: month %d out of range", month)
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	bets, err := s.load(ctx, metrics.Filter{From: from, To: from.AddDate(0, 1, 0)})
	if err != nil {
		return metrics.Month{}, fmt.Errorf("stats_service.Calendar: %w", err)
	}
	return s.engine.Calendar(bets, year, month), nil
}

// Day returns the bets of one calendar day. Only the date part of date is used.
func (s *StatsService) Day(ctx context.Context, date time.Time) (metrics.DayDetail, error) {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc)
	bets, err := s.load(ctx, metrics.Filter{From: from, To: from.AddDate(0, 0, 1)})
	if err != nil {
		return metrics.DayDetail{}, fmt.Errorf("stats_service.Day: %w", err)
	}
	return s.engine.Day(bets, date), nil
}

package metrics_test

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apsteward8/my-bet-tracker/internal/authority"
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/mapping"
	"github.com/Apsteward8/my-bet-tracker/internal/metrics"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func fixture() []*domain.Bet {
	return []*domain.Bet{
		{
			Source: domain.SourcePikkit, OriginalID: "a", Sportsbook: "FanDuel", Sport: "Basketball",
			Status: domain.BetStatusWon, Odds: -110, ClosingLine: -125,
			Stake: dec("10"), Profit: dec("9.10"),
			TimePlaced: at(16, 20), TimeSettled: ptr(at(17, 3)), Verified: true,
		},
		{
			Source: domain.SourceOddsJam, OriginalID: "0", Sportsbook: "Bovada", Sport: "Football",
			Status: domain.BetStatusLost, Odds: 150, ClosingLine: 160,
			Stake: dec("20"), Profit: dec("-20"),
			TimePlaced: at(16, 18), TimeSettled: ptr(at(16, 23)),
		},
		{
			Source: domain.SourceOddsJam, OriginalID: "1", Sportsbook: "Bovada", Sport: "Football",
			Status: domain.BetStatusPending, Odds: 120,
			Stake: dec("5"), Profit: decimal.Zero,
			TimePlaced: at(18, 1),
		},
	}
}

func TestAnalyze_EVSign(t *testing.T) {
	good := metrics.Analyze(&domain.Bet{Odds: 150, ClosingLine: 120, Stake: dec("100")})
	if good.EV <= 0 || !good.BeatCLV {
		t.Errorf("+150 vs close +120: ev=%f beat=%v, want positive and beat", good.EV, good.BeatCLV)
	}
	if good.Category != metrics.EVHigh {
		t.Errorf("category = %s, want high", good.Category)
	}
	if !good.ExpectedProfit.Equal(dec("13.64")) {
		t.Errorf("expected profit = %s, want 13.64", good.ExpectedProfit)
	}

	bad := metrics.Analyze(&domain.Bet{Odds: 120, ClosingLine: 150, Stake: dec("100")})
	if bad.EV >= 0 || bad.BeatCLV {
		t.Errorf("+120 vs close +150: ev=%f beat=%v, want negative and not beat", bad.EV, bad.BeatCLV)
	}
	if bad.Category != metrics.EVLow {
		t.Errorf("category = %s, want low", bad.Category)
	}
}

func TestAnalyze_NoCLV(t *testing.T) {
	for _, b := range []*domain.Bet{
		{Odds: -110, ClosingLine: 0, Stake: dec("10")},
		{Odds: 0, ClosingLine: -110, Stake: dec("10")},
	} {
		a := metrics.Analyze(b)
		if a.HasCLV || a.Category != metrics.EVNoCLV || !a.ExpectedProfit.IsZero() {
			t.Errorf("Analyze(%d/%d) = %+v, want no CLV", b.Odds, b.ClosingLine, a)
		}
	}
}

func TestAnalyze_MediumCategory(t *testing.T) {
	a := metrics.Analyze(&domain.Bet{Odds: -110, ClosingLine: -125, Stake: dec("10")})
	if math.Abs(a.EV-0.0606) > 0.001 {
		t.Errorf("ev = %f, want ~0.0606", a.EV)
	}
	if a.Category != metrics.EVMedium {
		t.Errorf("category = %s, want medium", a.Category)
	}
}

func TestSummarize_Overall(t *testing.T) {
	r := metrics.NewEngine(time.UTC).Summarize(fixture(), metrics.Filter{})
	all := r.Overall.All

	if all.Count != 3 || all.Won != 1 || all.Lost != 1 || all.Pending != 1 {
		t.Errorf("counts = %+v", all)
	}
	if !all.Stake.Equal(dec("35")) || !all.Profit.Equal(dec("-10.90")) {
		t.Errorf("stake/profit = %s / %s, want 35 / -10.90", all.Stake, all.Profit)
	}
	if all.ROI != -36.33 {
		t.Errorf("roi = %v, want -36.33", all.ROI)
	}
	if all.WinRate != 50 {
		t.Errorf("win rate = %v, want 50", all.WinRate)
	}
	if !all.ExpectedProfit.Equal(dec("-0.16")) {
		t.Errorf("expected profit = %s, want -0.16", all.ExpectedProfit)
	}

	clv := r.Overall.ValidCLV
	if clv.Count != 2 || !clv.Stake.Equal(dec("30")) {
		t.Errorf("valid clv = %d bets / %s stake, want 2 / 30", clv.Count, clv.Stake)
	}
	if clv.AvgEV != all.AvgEV {
		t.Errorf("avg EV should only cover the CLV subset: %v vs %v", clv.AvgEV, all.AvgEV)
	}
	if r.Overall.BeatCLVRate != 50 {
		t.Errorf("beat clv rate = %v, want 50", r.Overall.BeatCLVRate)
	}
}

func TestSummarize_Groups(t *testing.T) {
	r := metrics.NewEngine(time.UTC).Summarize(fixture(), metrics.Filter{})

	if len(r.BySportsbook) != 2 || r.BySportsbook[0].Key != "FanDuel" {
		t.Fatalf("by sportsbook = %+v, want FanDuel first", r.BySportsbook)
	}
	if r.BySportsbook[1].All.Count != 2 {
		t.Errorf("Bovada count = %d, want 2", r.BySportsbook[1].All.Count)
	}

	// Settled bets bucket on settlement day, pending on placement day.
	wantDays := []string{"2025-03-16", "2025-03-17", "2025-03-18"}
	if len(r.ByDay) != len(wantDays) {
		t.Fatalf("by day = %d groups, want %d", len(r.ByDay), len(wantDays))
	}
	for i, d := range wantDays {
		if r.ByDay[i].Key != d {
			t.Errorf("day[%d] = %s, want %s", i, r.ByDay[i].Key, d)
		}
	}

	if r.ByStatus[0].Key != string(domain.BetStatusPending) {
		t.Errorf("status groups should start with pending, got %s", r.ByStatus[0].Key)
	}
	if len(r.BySource) != 2 || r.BySource[0].Key != string(domain.SourceOddsJam) {
		t.Errorf("by source = %+v", r.BySource)
	}
	if len(r.ByEVCategory) != 3 {
		t.Errorf("ev categories = %d, want 3 (medium, low, no_clv)", len(r.ByEVCategory))
	}
}

func TestFilter(t *testing.T) {
	e := metrics.NewEngine(time.UTC)
	cases := []struct {
		name string
		f    metrics.Filter
		want int
	}{
		{"exclude pending", metrics.Filter{ExcludePending: true}, 2},
		{"sportsbook", metrics.Filter{Sportsbook: "bovada"}, 2},
		{"sport", metrics.Filter{Sport: "Basketball"}, 1},
		{"source", metrics.Filter{Source: domain.SourcePikkit}, 1},
		{"date range", metrics.Filter{From: at(17, 0), To: at(18, 0)}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Summarize(fixture(), tc.f).Overall.All.Count; got != tc.want {
				t.Errorf("count = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCalendar(t *testing.T) {
	bets := append(fixture(), &domain.Bet{
		Source: domain.SourceOddsJam, Status: domain.BetStatusWon,
		Stake: dec("10"), Profit: dec("10"), TimePlaced: time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC),
	})
	m := metrics.NewEngine(time.UTC).Calendar(bets, 2025, time.March)

	if len(m.Days) != 3 {
		t.Fatalf("days = %d, want 3", len(m.Days))
	}
	if m.Summary.Count != 3 {
		t.Errorf("month count = %d, want 3", m.Summary.Count)
	}
	if !m.Summary.Profit.Equal(dec("-10.90")) {
		t.Errorf("month profit = %s, want -10.90", m.Summary.Profit)
	}
	if m.Days[2].Totals.Pending != 1 || !m.Days[2].Totals.Profit.IsZero() {
		t.Errorf("pending day = %+v", m.Days[2].Totals)
	}
}

func TestCalendar_PendingBetOnEventDay(t *testing.T) {
	loc, err := time.LoadLocation(mapping.DefaultTimezone)
	if err != nil {
		t.Fatal(err)
	}
	b, err := mapping.NewMapper(authority.Default(), loc).OddsJam(mapping.OddsJamRow{
		Sportsbook:     "Bovada",
		EventName:      "Lakers vs Celtics",
		BetName:        "Lakers -4.5",
		MarketName:     "Spread",
		Odds:           "-110",
		Stake:          "10",
		Status:         "pending",
		CreatedAt:      "03/16/2025, 22:13 EDT",
		EventStartDate: "03/23/2025, 19:30 EDT",
	})
	if err != nil {
		t.Fatalf("OddsJam() error = %v", err)
	}

	e := metrics.NewEngine(loc)
	if got := e.DayKey(b); got != "2025-03-23" {
		t.Errorf("DayKey() = %s, want the event day 2025-03-23", got)
	}
	m := e.Calendar([]*domain.Bet{b}, 2025, time.March)
	if len(m.Days) != 1 || m.Days[0].Date != "2025-03-23" || m.Days[0].Totals.Pending != 1 {
		t.Errorf("calendar days = %+v, want one pending bet on 2025-03-23", m.Days)
	}
}

func TestDay(t *testing.T) {
	bets := fixture()
	bets = append(bets, &domain.Bet{
		Source: domain.SourceOddsJam, OriginalID: "2", Status: domain.BetStatusPending,
		Stake: dec("1"), TimePlaced: at(16, 10),
	}, &domain.Bet{
		Source: domain.SourceOddsJam, OriginalID: "3", Status: domain.BetStatusLost,
		Stake: dec("3"), Profit: dec("-3"), TimePlaced: at(16, 9),
	})

	d := metrics.NewEngine(time.UTC).Day(bets, at(16, 0))
	if d.Date != "2025-03-16" {
		t.Errorf("date = %s", d.Date)
	}
	if len(d.Bets) != 3 {
		t.Fatalf("bets = %d, want 3", len(d.Bets))
	}
	if d.Bets[0].Status != domain.BetStatusPending {
		t.Errorf("pending bet should be listed first, got %s", d.Bets[0].Status)
	}
	if d.Bets[1].OriginalID != "0" {
		t.Errorf("settled bets should be newest first, got %s", d.Bets[1].OriginalID)
	}
	if d.BiggestLoss == nil || d.BiggestLoss.OriginalID != "0" {
		t.Errorf("biggest loss = %+v, want bet 0", d.BiggestLoss)
	}
	if d.BiggestWin != nil {
		t.Errorf("no wins on this day, got %+v", d.BiggestWin)
	}
}

func TestVerification(t *testing.T) {
	s := metrics.Verification(fixture())
	if s.Total != 3 || s.Verified != 1 {
		t.Errorf("total/verified = %d/%d, want 3/1", s.Total, s.Verified)
	}
	if s.UnverifiedSettled != 1 {
		t.Errorf("unverified settled = %d, want 1", s.UnverifiedSettled)
	}
	if got := s.BySource[domain.SourceOddsJam]; got.Total != 2 || got.Unverified != 2 {
		t.Errorf("oddsjam coverage = %+v", got)
	}
	if s.Coverage != 33.33 {
		t.Errorf("coverage = %v, want 33.33", s.Coverage)
	}
}

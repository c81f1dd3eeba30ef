package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Totals is the shared metric shape for any set of bets.
//
// Profit only counts graded bets. ROI divides it by the stake of graded bets;
// ExpectedROI divides expected profit by the full stake.
type Totals struct {
	Count          int             `json:"count"`
	Won            int             `json:"won"`
	Lost           int             `json:"lost"`
	Pending        int             `json:"pending"`
	Refunded       int             `json:"refunded"`
	Stake          decimal.Decimal `json:"total_stake"`
	SettledStake   decimal.Decimal `json:"settled_stake"`
	Profit         decimal.Decimal `json:"total_profit"`
	ExpectedProfit decimal.Decimal `json:"expected_profit"`
	ROI            float64         `json:"roi"`
	ExpectedROI    float64         `json:"expected_roi"`
	WinRate        float64         `json:"win_rate"`
	AvgEV          float64         `json:"avg_ev"` // percent, over bets with a closing line
	CLVCount       int             `json:"clv_count"`

	evSum float64
}

func newTotals() Totals {
	return Totals{Stake: decimal.Zero, SettledStake: decimal.Zero, Profit: decimal.Zero, ExpectedProfit: decimal.Zero}
}

func (t *Totals) add(a Analysis) {
	b := a.Bet
	t.Count++
	t.Stake = t.Stake.Add(b.Stake)
	switch b.Status {
	case domain.BetStatusWon:
		t.Won++
	case domain.BetStatusLost:
		t.Lost++
	case domain.BetStatusPending:
		t.Pending++
	case domain.BetStatusRefunded:
		t.Refunded++
	}
	if b.Status.IsTerminal() {
		t.SettledStake = t.SettledStake.Add(b.Stake)
		t.Profit = t.Profit.Add(b.Profit)
	}
	if a.HasCLV {
		t.CLVCount++
		t.evSum += a.EV
		t.ExpectedProfit = t.ExpectedProfit.Add(a.ExpectedProfit)
	}
}

// finish derives the ratio fields once every bet has been added.
func (t *Totals) finish() {
	t.Profit = domain.RoundCurrency(t.Profit)
	t.ExpectedProfit = domain.RoundCurrency(t.ExpectedProfit)
	t.ROI = percent(t.Profit, t.SettledStake)
	t.ExpectedROI = percent(t.ExpectedProfit, t.Stake)
	if graded := t.Won + t.Lost; graded > 0 {
		t.WinRate = round2(float64(t.Won) / float64(graded) * 100)
	}
	if t.CLVCount > 0 {
		t.AvgEV = round2(t.evSum / float64(t.CLVCount) * 100)
	}
}

func percent(num, den decimal.Decimal) float64 {
	if !den.IsPositive() {
		return 0
	}
	return num.Div(den).Mul(hundred).Round(2).InexactFloat64()
}

func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

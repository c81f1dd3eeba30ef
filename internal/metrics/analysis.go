// Package metrics computes read-only performance statistics over canonical
// bets: expected value against the closing line, grouped totals, calendar
// views and verification coverage. Nothing here touches storage.
package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/odds"
)

// EVCategory buckets a bet by its expected value.
type EVCategory string

const (
	EVHigh   EVCategory = "high"   // EV ≥ 10%
	EVMedium EVCategory = "medium" // EV ≥ 5%
	EVLow    EVCategory = "low"
	EVNoCLV  EVCategory = "no_clv"
)

// EVCategories lists the categories in display order.
var EVCategories = []EVCategory{EVHigh, EVMedium, EVLow, EVNoCLV}

const (
	highEV   = 0.10
	mediumEV = 0.05
)

// Analysis is the closing-line evaluation of one bet.
type Analysis struct {
	Bet                *domain.Bet     `json:"bet"`
	HasCLV             bool            `json:"has_clv"`
	ImpliedProb        float64         `json:"implied_prob"`
	ClosingImpliedProb float64         `json:"closing_implied_prob"`
	EV                 float64         `json:"ev"` // fraction, 0.05 = 5%
	ExpectedProfit     decimal.Decimal `json:"expected_profit"`
	BeatCLV            bool            `json:"beat_clv"`
	Category           EVCategory      `json:"ev_category"`
}

// Analyze evaluates b against its closing line. Bets without both prices
// are categorised EVNoCLV and contribute nothing to expected profit.
func Analyze(b *domain.Bet) Analysis {
	a := Analysis{Bet: b, Category: EVNoCLV, ExpectedProfit: decimal.Zero}
	if b.Odds == 0 || b.ClosingLine == 0 {
		return a
	}
	ip := odds.ImpliedProbability(b.Odds)
	cp := odds.ImpliedProbability(b.ClosingLine)
	if ip == 0 || cp == 0 {
		return a
	}

	a.HasCLV = true
	a.ImpliedProb = ip
	a.ClosingImpliedProb = cp
	a.EV = cp/ip - 1
	a.ExpectedProfit = domain.RoundCurrency(b.Stake.Mul(decimal.NewFromFloat(a.EV)))
	a.BeatCLV = b.Odds > b.ClosingLine

	switch {
	case a.EV >= highEV:
		a.Category = EVHigh
	case a.EV >= mediumEV:
		a.Category = EVMedium
	default:
		a.Category = EVLow
	}
	return a
}

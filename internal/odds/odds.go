// Package odds converts between decimal and American price formats.
//
// Every function is total: impossible inputs yield 0, which the rest of the
// system reads as "odds unknown".
package odds

import "math"

// MaxAmerican bounds representable American prices. Conversions whose result
// would exceed it in magnitude return 0.
const MaxAmerican = 1_000_000

// DecimalToAmerican converts decimal odds to the nearest American integer.
//
//	2.50 → +150
//	1.91 → -110
//
// Prices at or below 1.0 have no American equivalent and return 0, as do
// prices too far from even money to fit MaxAmerican.
func DecimalToAmerican(dec float64) int {
	if dec <= 1 || math.IsNaN(dec) || math.IsInf(dec, 0) {
		return 0
	}
	var american float64
	if dec >= 2 {
		american = math.Round((dec - 1) * 100)
	} else {
		american = math.Round(-100 / (dec - 1))
	}
	if math.Abs(american) > MaxAmerican {
		return 0
	}
	return int(american)
}

// AmericanToDecimal converts American odds to decimal odds. 0 returns 0.
func AmericanToDecimal(american int) float64 {
	switch {
	case american > 0:
		return float64(american)/100 + 1
	case american < 0:
		return 100/float64(-american) + 1
	}
	return 0
}

// ImpliedProbability returns the break-even win probability of an American
// price, in [0, 1]. 0 returns 0.
func ImpliedProbability(american int) float64 {
	if american > 0 {
		return 100 / (float64(american) + 100)
	}
	a := math.Abs(float64(american))
	if a+100 == 0 {
		return 0
	}
	return a / (a + 100)
}

package utils

import "math"

// RoundPrice rounds a price to the instrument's natural precision: whole
// currency units at or above 1000, two decimals below. Signal generation and
// P&L calculation must share this rule or realized profit drifts.
func RoundPrice(price float64) float64 {
	if price >= 1000 {
		return math.Round(price)
	}
	return math.Round(price*100) / 100
}

// ProfitPercent returns the percentage change from entry to exit, rounded to
// two decimals.
func ProfitPercent(entryPrice, exitPrice float64) float64 {
	if entryPrice == 0 {
		return 0
	}
	return math.Round((exitPrice-entryPrice)/entryPrice*10000) / 100
}

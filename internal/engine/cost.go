package engine

import "math"

// CostModel sizes orders in board lots and charges a proportional
// commission with a floor.
type CostModel struct {
	Rate          float64
	MinCommission float64
	LotSize       int64
}

// DefaultCostModel is 0.026% with a 5-unit minimum, traded in lots of 100.
func DefaultCostModel() CostModel {
	return CostModel{Rate: 0.00026, MinCommission: 5, LotSize: 100}
}

// Commission returns max(notional × rate, minimum).
func (c CostModel) Commission(notional float64) float64 {
	return math.Max(notional*c.Rate, c.MinCommission)
}

// LotShares returns the largest whole number of lots cash can buy at price.
// The result is a non-negative multiple of the lot size and may be zero.
func (c CostModel) LotShares(cash, price float64) int64 {
	lot := c.LotSize
	if lot < 1 {
		lot = 1
	}
	if price <= 0 || cash <= 0 {
		return 0
	}
	return int64(math.Floor(cash/price/float64(lot))) * lot
}

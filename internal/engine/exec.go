package engine

import "math"

// FillBuy computes the share count and total cash cost of a buy order. The
// effective price is the quoted price marked up by slippage; the whole-share
// count is floored into the budget and commission is charged on the gross.
// A budget too small for one share returns (0, 0) rather than an error.
//
// Pure and deterministic: identical inputs always produce identical outputs.
func FillBuy(price, budget, slippage, commission float64) (shares int64, totalCost float64) {
	if price <= 0 || budget <= 0 {
		return 0, 0
	}
	effective := price * (1 + slippage)
	shares = int64(math.Floor(budget / effective))
	if shares <= 0 {
		return 0, 0
	}
	totalCost = float64(shares) * effective * (1 + commission)
	return shares, totalCost
}

// FillSell computes the net cash proceeds of selling shares at the quoted
// price: slippage marks the price down, commission is deducted from the gross.
func FillSell(shares int64, price, slippage, commission float64) float64 {
	if shares <= 0 || price <= 0 {
		return 0
	}
	effective := price * (1 - slippage)
	return float64(shares) * effective * (1 - commission)
}

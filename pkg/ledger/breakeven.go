package ledger

// BreakEven returns the sell price at which liquidating the whole position
// nets exactly costBasis after sell-side fees. When the proportional
// commission at that price falls under the floor, the price is solved once
// more with the flat minimum commission; the second result is not re-checked.
func BreakEven(holdings int64, costBasis float64, settings FeeSettings) float64 {
	if holdings <= 0 {
		return 0
	}
	q := float64(holdings)
	denominator := q * (1 - (settings.CommissionRate + settings.StampDutyRate + settings.TransferFeeRate))
	if denominator <= 0 {
		return 0
	}
	price := costBasis / denominator

	if settings.MinFiveYuan && price*q*settings.CommissionRate < MinCommission {
		denominator = q * (1 - settings.StampDutyRate - settings.TransferFeeRate)
		if denominator <= 0 {
			return 0
		}
		price = (costBasis + MinCommission) / denominator
	}
	return price
}

// FloatingPnL returns the unrealized profit if the position were sold at
// markPrice, net of the simulated sell fees.
func FloatingPnL(markPrice float64, holdings int64, costBasis float64, settings FeeSettings) float64 {
	if holdings <= 0 {
		return 0
	}
	marketValue := markPrice * float64(holdings)
	fees := FeeBreakdownFor(Sell, markPrice, holdings, settings).Total()
	return marketValue - fees - costBasis
}

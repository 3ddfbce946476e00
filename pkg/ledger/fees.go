package ledger

import "github.com/shopspring/decimal"

// MinCommission is the commission floor applied when FeeSettings.MinFiveYuan is set.
const MinCommission = 5.0

// FeeBreakdown itemises the fees of one trade before rounding.
type FeeBreakdown struct {
	Commission  float64 `json:"commission"`
	StampDuty   float64 `json:"stamp_duty"`
	TransferFee float64 `json:"transfer_fee"`
}

// Total returns the unrounded sum of all components.
func (b FeeBreakdown) Total() float64 {
	return b.Commission + b.StampDuty + b.TransferFee
}

// FeeBreakdownFor computes each fee component of a trade.
// Stamp duty is charged on sells only.
func FeeBreakdownFor(t TransactionType, price float64, quantity int64, settings FeeSettings) FeeBreakdown {
	amount := price * float64(quantity)
	commission := amount * settings.CommissionRate
	if settings.MinFiveYuan && commission < MinCommission {
		commission = MinCommission
	}
	var stampDuty float64
	if t == Sell {
		stampDuty = amount * settings.StampDutyRate
	}
	return FeeBreakdown{
		Commission:  commission,
		StampDuty:   stampDuty,
		TransferFee: amount * settings.TransferFeeRate,
	}
}

// CalculateFees returns the total fee of a trade rounded to cents.
func CalculateFees(t TransactionType, price float64, quantity int64, settings FeeSettings) float64 {
	return Round2(FeeBreakdownFor(t, price, quantity, settings).Total())
}

// Round2 rounds half away from zero to two decimals.
func Round2(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

package ledger

import "fmt"

// ValidLotSize reports whether quantity is a positive multiple of LotSize.
func ValidLotSize(quantity int64) bool {
	return quantity >= LotSize && quantity%LotSize == 0
}

// Validate checks a candidate transaction against the stock's existing log.
// Cash sufficiency is not checked for buys.
func Validate(tx Transaction, existing []Transaction) ValidationResult {
	if tx.Price < 0 {
		return ValidationResult{
			Code:    CodeInvalidPrice,
			Message: fmt.Sprintf("price must not be negative, got %.2f", tx.Price),
		}
	}
	if tx.Quantity < LotSize {
		return ValidationResult{
			Code:    CodeInvalidQuantity,
			Message: fmt.Sprintf("minimum quantity is %d shares", LotSize),
		}
	}
	if tx.Quantity%LotSize != 0 {
		return ValidationResult{
			Code:    CodeInvalidQuantity,
			Message: fmt.Sprintf("quantity must be a multiple of %d shares", LotSize),
		}
	}
	if tx.Type != Sell {
		return ValidationResult{Valid: true}
	}

	ceiling := MaxSellable(tx.Timestamp, existing, tx.ID)
	if tx.Quantity > ceiling {
		return ValidationResult{
			Code:        CodeInsufficientShares,
			Message:     fmt.Sprintf("insufficient settled shares (T+1), sellable now: %d", ceiling),
			MaxSellable: &ceiling,
		}
	}
	return ValidationResult{Valid: true, MaxSellable: &ceiling}
}

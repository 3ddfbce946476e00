package tradelog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stocklog/pkg/ledger"
)

// GetFeeSettings returns the persisted fee settings, or the defaults when
// none were saved.
func (c *Core) GetFeeSettings() (ledger.FeeSettings, error) {
	return getFeeSettings(c.db)
}

func getFeeSettings(q queryer) (ledger.FeeSettings, error) {
	var s ledger.FeeSettings
	var minFive int
	err := q.QueryRow(`
		SELECT commission_rate, min_five_yuan, stamp_duty_rate, transfer_fee_rate
		FROM fee_settings
		WHERE id = 1
	`).Scan(&s.CommissionRate, &minFive, &s.StampDutyRate, &s.TransferFeeRate)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.DefaultFeeSettings(), nil
	}
	if err != nil {
		return ledger.FeeSettings{}, WrapError(ErrCodeDatabase, "query fee settings", err)
	}
	s.MinFiveYuan = minFive != 0
	return s, nil
}

func validateFeeSettings(s ledger.FeeSettings) error {
	rates := []struct {
		name  string
		value float64
	}{
		{"commission_rate", s.CommissionRate},
		{"stamp_duty_rate", s.StampDutyRate},
		{"transfer_fee_rate", s.TransferFeeRate},
	}
	for _, r := range rates {
		if r.value < 0 || r.value >= 1 {
			return NewError(ErrCodeInvalidInput, fmt.Sprintf("%s must be in [0, 1), got %v", r.name, r.value))
		}
	}
	return nil
}

// SetFeeSettings persists new fee settings. Stored transactions keep the fees
// computed when they were recorded.
func (c *Core) SetFeeSettings(s ledger.FeeSettings) (ledger.FeeSettings, error) {
	if err := validateFeeSettings(s); err != nil {
		return ledger.FeeSettings{}, err
	}
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := saveFeeSettings(tx, s); err != nil {
			return err
		}
		_, err := addOperationLog(tx, OperationLog{
			Operation: OpUpdateFees,
			Details: detailsf("commission=%g min5=%t stamp=%g transfer=%g",
				s.CommissionRate, s.MinFiveYuan, s.StampDutyRate, s.TransferFeeRate),
		})
		return err
	})
	if err != nil {
		return ledger.FeeSettings{}, dbError("save fee settings", err)
	}
	return s, nil
}

func saveFeeSettings(tx execer, s ledger.FeeSettings) error {
	minFive := 0
	if s.MinFiveYuan {
		minFive = 1
	}
	_, err := tx.Exec(`
		INSERT INTO fee_settings (id, commission_rate, min_five_yuan, stamp_duty_rate, transfer_fee_rate, updated_at)
		VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			commission_rate = excluded.commission_rate,
			min_five_yuan = excluded.min_five_yuan,
			stamp_duty_rate = excluded.stamp_duty_rate,
			transfer_fee_rate = excluded.transfer_fee_rate,
			updated_at = CURRENT_TIMESTAMP
	`, s.CommissionRate, minFive, s.StampDutyRate, s.TransferFeeRate)
	return err
}

// PreviewFees returns the fee breakdown of a prospective trade under the
// current settings.
func (c *Core) PreviewFees(t ledger.TransactionType, price float64, quantity int64) (ledger.FeeBreakdown, float64, error) {
	if !t.Valid() {
		return ledger.FeeBreakdown{}, 0, NewError(ErrCodeInvalidInput, fmt.Sprintf("invalid transaction type: %s", t))
	}
	settings, err := c.GetFeeSettings()
	if err != nil {
		return ledger.FeeBreakdown{}, 0, err
	}
	return ledger.FeeBreakdownFor(t, price, quantity, settings), ledger.CalculateFees(t, price, quantity, settings), nil
}

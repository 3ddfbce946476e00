package tradelog

import (
	"testing"

	"stocklog/pkg/ledger"
)

func TestGetFeeSettingsDefaults(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	s, err := core.GetFeeSettings()
	assertNoError(t, err, "get settings")
	if s != ledger.DefaultFeeSettings() {
		t.Fatalf("expected defaults, got %+v", s)
	}
}

func TestSetFeeSettings(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	custom := ledger.FeeSettings{CommissionRate: 0.0003, MinFiveYuan: false, StampDutyRate: 0.001, TransferFeeRate: 0}
	_, err := core.SetFeeSettings(custom)
	assertNoError(t, err, "set settings")

	got, err := core.GetFeeSettings()
	assertNoError(t, err, "get settings")
	if got != custom {
		t.Fatalf("got %+v, want %+v", got, custom)
	}

	// Saving twice updates the single row.
	custom.MinFiveYuan = true
	_, err = core.SetFeeSettings(custom)
	assertNoError(t, err, "update settings")
	got, err = core.GetFeeSettings()
	assertNoError(t, err, "get updated settings")
	if !got.MinFiveYuan {
		t.Fatalf("expected min five yuan after update")
	}

	logs, err := core.GetOperationLogs(1, 0)
	assertNoError(t, err, "get logs")
	if logs[0].Operation != OpUpdateFees {
		t.Fatalf("expected UPDATE_FEE_SETTINGS log, got %s", logs[0].Operation)
	}
}

func TestSetFeeSettingsRejectsBadRates(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	tests := []struct {
		name string
		s    ledger.FeeSettings
	}{
		{"negative commission", ledger.FeeSettings{CommissionRate: -0.1}},
		{"stamp duty of one", ledger.FeeSettings{StampDutyRate: 1}},
		{"transfer above one", ledger.FeeSettings{TransferFeeRate: 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := core.SetFeeSettings(tc.s)
			assertErrorCode(t, err, ErrCodeInvalidInput, tc.name)
		})
	}
}

func TestSettingsChangeKeepsRecordedFees(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	stock := testStock(t, core, "600519", "贵州茅台")
	buy := testBuy(t, core, stock.ID, marketTime(4, 10, 0), 10, 1000)
	useZeroFees(t, core)

	stored, err := core.GetTransaction(buy.ID)
	assertNoError(t, err, "get transaction")
	assertFloatEquals(t, stored.Fees, 5.10, "recorded fees")
}

func TestPreviewFees(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	breakdown, total, err := core.PreviewFees(ledger.Sell, 11, 1000)
	assertNoError(t, err, "preview")
	assertFloatEquals(t, breakdown.Commission, 5, "commission floor")
	assertFloatEquals(t, breakdown.StampDuty, 5.5, "stamp duty")
	assertFloatEquals(t, breakdown.TransferFee, 0.11, "transfer fee")
	assertFloatEquals(t, total, 10.61, "total")

	breakdown, _, err = core.PreviewFees(ledger.Buy, 11, 1000)
	assertNoError(t, err, "preview buy")
	assertFloatEquals(t, breakdown.StampDuty, 0, "no stamp duty on buys")

	_, _, err = core.PreviewFees("hold", 1, 100)
	assertErrorCode(t, err, ErrCodeInvalidInput, "bad type")
}

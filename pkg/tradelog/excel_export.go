package tradelog

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"stocklog/pkg/ledger"
)

var historyHeaders = []any{
	"Time", "Type", "Price", "Quantity", "Fees", "Total Amount",
	"Holdings", "Avg Cost", "Trade P&L", "Position", "T-Trade", "T-Trade Profit", "Cycle P&L",
}

// ExportHistoryExcel writes a stock's enriched history as an .xlsx workbook.
func (c *Core) ExportHistoryExcel(stockID string, w io.Writer) error {
	history, err := c.GetStockHistory(stockID, false)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			c.logger.Warn("close workbook failed", "err", err)
		}
	}()

	sheet := history.Stock.Code
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return WrapError(ErrCodeInternal, "rename sheet", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &historyHeaders); err != nil {
		return WrapError(ErrCodeInternal, "write header", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", "M1", style)
	}
	_ = f.SetColWidth(sheet, "A", "A", 20)
	_ = f.SetColWidth(sheet, "B", "M", 13)

	for i, e := range history.History {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return WrapError(ErrCodeInternal, "cell name", err)
		}
		row := historyRow(e)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return WrapError(ErrCodeInternal, "write row", err)
		}
	}

	summaryRow := len(history.History) + 3
	summary := [][]any{
		{"Holdings", history.Summary.TotalHoldings},
		{"Avg Cost", ledger.Round2(history.Summary.AvgCost)},
		{"Realized P&L", ledger.Round2(history.Summary.TotalRealizedPnL)},
		{"Break-even", ledger.Round2(history.BreakEvenPrice)},
		{"Floating P&L", ledger.Round2(history.FloatingPnL)},
	}
	for i, pair := range summary {
		cell := fmt.Sprintf("A%d", summaryRow+i)
		if err := f.SetSheetRow(sheet, cell, &pair); err != nil {
			return WrapError(ErrCodeInternal, "write summary", err)
		}
	}

	if err := f.Write(w); err != nil {
		return WrapError(ErrCodeInternal, "write workbook", err)
	}
	return nil
}

func historyRow(e ledger.EnrichedTransaction) []any {
	row := []any{
		e.Timestamp.In(ledger.MarketLocation()).Format("2006-01-02 15:04"),
		string(e.Type),
		e.Price,
		e.Quantity,
		e.Fees,
		e.TotalAmount,
		e.RunningHoldings,
		ledger.Round2(e.RunningAvgCost),
		"",
		string(e.PositionTag),
		"",
		"",
		"",
	}
	if e.TradePnL != nil {
		row[8] = ledger.Round2(*e.TradePnL)
	}
	if e.IsTTrade {
		row[10] = "yes"
	}
	if e.TTradeDetail != nil {
		row[10] = fmt.Sprintf("%s #%d (%s)", e.TTradeDetail.Kind, e.TTradeDetail.Index, e.TTradeDetail.TimeInterval)
		row[11] = ledger.Round2(e.TTradeDetail.Profit)
	}
	if e.CycleStats != nil {
		row[12] = ledger.Round2(e.CycleStats.TotalRealizedPnL)
	}
	return row
}

package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerline/invoicing_backend/config"
	"github.com/ledgerline/invoicing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ProfitByCode aggregates per project/training code: invoiced income
// minus bills and expenses tagged with the same code. Draft invoices are
// excluded; income counts from Sent onward.
type ProfitByCode struct {
	CodeId   int             `json:"code_id"`
	Code     string          `json:"code"`
	CodeName string          `json:"code_name"`
	Income   decimal.Decimal `json:"income"`
	Cost     decimal.Decimal `json:"cost"`
	Profit   decimal.Decimal `json:"profit"`
}

func GetProfitByCode(ctx context.Context, fromDate time.Time, toDate time.Time) ([]*ProfitByCode, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if toDate.Before(fromDate) {
		return nil, errors.New("to date cannot be before from date")
	}

	db := config.GetDB()

	var results []*ProfitByCode

	query := db.WithContext(ctx).Raw(`
		SELECT
			codes.id AS code_id,
			codes.code AS code,
			codes.name AS code_name,
			COALESCE(inv.income, 0) AS income,
			COALESCE(bil.cost, 0) + COALESCE(exp.cost, 0) AS cost,
			COALESCE(inv.income, 0) - COALESCE(bil.cost, 0) - COALESCE(exp.cost, 0) AS profit
		FROM codes
		LEFT JOIN (
			SELECT code_id, SUM(total_amount) AS income
			FROM invoices
			WHERE business_id = ?
				AND current_status != 'Draft'
				AND invoice_date >= ? AND invoice_date <= ?
			GROUP BY code_id
		) AS inv ON inv.code_id = codes.id
		LEFT JOIN (
			SELECT code_id, SUM(total_amount) AS cost
			FROM bills
			WHERE business_id = ?
				AND bill_date >= ? AND bill_date <= ?
			GROUP BY code_id
		) AS bil ON bil.code_id = codes.id
		LEFT JOIN (
			SELECT code_id, SUM(amount) AS cost
			FROM expenses
			WHERE business_id = ?
				AND expense_date >= ? AND expense_date <= ?
			GROUP BY code_id
		) AS exp ON exp.code_id = codes.id
		WHERE codes.business_id = ?
		ORDER BY codes.code;
	`,
		businessId, fromDate, toDate,
		businessId, fromDate, toDate,
		businessId, fromDate, toDate,
		businessId,
	)

	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

// ExportProfitByCodeExcel renders the report as an xlsx workbook and
// returns the serialized bytes for the HTTP layer to stream out.
func ExportProfitByCodeExcel(ctx context.Context, fromDate time.Time, toDate time.Time) ([]byte, error) {
	data, err := GetProfitByCode(ctx, fromDate, toDate)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}

	// Add headers
	f.SetCellValue(sheet, "A1", "Code")
	f.SetCellValue(sheet, "B1", "Name")
	f.SetCellValue(sheet, "C1", "Income")
	f.SetCellValue(sheet, "D1", "Cost")
	f.SetCellValue(sheet, "E1", "Profit")

	// Add data
	for i, d := range data {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheet, "A"+row, d.Code)
		f.SetCellValue(sheet, "B"+row, d.CodeName)
		f.SetCellValue(sheet, "C"+row, d.Income.InexactFloat64())
		f.SetCellValue(sheet, "D"+row, d.Cost.InexactFloat64())
		f.SetCellValue(sheet, "E"+row, d.Profit.InexactFloat64())
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package excel

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

const (
	paymentsSheet = "Payments"
	summarySheet  = "Summary"
)

var paymentColumns = []string{
	"tx_ref", "user_email", "business_name", "plan", "amount", "currency",
	"status", "gateway_transaction_id", "failure_reason", "created_at", "verified_at",
}

// Service builds admin spreadsheets
type Service struct {
	now func() time.Time
}

// NewExcelService creates a new Excel service instance
func NewExcelService() *Service {
	return &Service{now: time.Now}
}

// ReportFilename names a payment report generated now
func (s *Service) ReportFilename() string {
	return fmt.Sprintf("payments_report_%s.xlsx", s.now().Format("2006-01-02"))
}

// PaymentReport writes one row per payment and a per-status summary
func (s *Service) PaymentReport(payments []models.Payment) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), paymentsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	f.SetActiveSheet(0)

	for i, col := range paymentColumns {
		f.SetCellValue(paymentsSheet, cellName(i+1, 1), col)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"1F4E79"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err == nil {
		f.SetCellStyle(paymentsSheet, "A1", cellName(len(paymentColumns), 1), headerStyle)
	}

	// Status colours
	failedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"F8CBAD"}, Pattern: 1},
	})
	pendingStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFF2CC"}, Pattern: 1},
	})
	amountStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4})

	for i, col := range paymentColumns {
		width := 18.0
		switch col {
		case "tx_ref", "user_email", "business_name":
			width = 32.0
		case "failure_reason":
			width = 45.0
		case "plan", "currency", "status":
			width = 12.0
		}
		colLetter := columnToLetter(i + 1)
		f.SetColWidth(paymentsSheet, colLetter, colLetter, width)
	}

	type totals struct {
		count  int
		amount float64
	}
	byStatus := map[string]*totals{}

	for j, p := range payments {
		row := j + 2
		values := []interface{}{
			p.TxRef, p.User.Email, p.User.BusinessName, p.Plan, p.Amount, p.Currency,
			p.Status, p.GatewayTransactionID, p.FailureReason,
			p.CreatedAt.UTC().Format(time.RFC3339), "",
		}
		if p.VerifiedAt != nil {
			values[10] = p.VerifiedAt.UTC().Format(time.RFC3339)
		}
		for i, v := range values {
			f.SetCellValue(paymentsSheet, cellName(i+1, row), v)
		}
		f.SetCellStyle(paymentsSheet, cellName(5, row), cellName(5, row), amountStyle)

		switch strings.ToUpper(p.Status) {
		case models.PaymentFailed:
			f.SetCellStyle(paymentsSheet, cellName(7, row), cellName(7, row), failedStyle)
		case models.PaymentPending:
			f.SetCellStyle(paymentsSheet, cellName(7, row), cellName(7, row), pendingStyle)
		}

		t, ok := byStatus[p.Status]
		if !ok {
			t = &totals{}
			byStatus[p.Status] = t
		}
		t.count++
		t.amount += p.Amount
	}
	if len(payments) == 0 {
		f.SetCellValue(paymentsSheet, "A2", "no payments found for this period")
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	f.SetSheetRow(summarySheet, "A1", &[]interface{}{"status", "payments", "amount"})
	if headerStyle != 0 {
		f.SetCellStyle(summarySheet, "A1", "C1", headerStyle)
	}
	row := 2
	for _, status := range []string{models.PaymentCompleted, models.PaymentPending, models.PaymentFailed} {
		t := byStatus[status]
		if t == nil {
			t = &totals{}
		}
		f.SetSheetRow(summarySheet, "A"+strconv.Itoa(row), &[]interface{}{status, t.count, t.amount})
		row++
	}
	f.SetColWidth(summarySheet, "A", "C", 16)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	return columnToLetter(col) + strconv.Itoa(row)
}

// Helper function to convert column number to Excel column letter
func columnToLetter(col int) string {
	var result string
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

func TestPaymentReport(t *testing.T) {
	created := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	payments := []models.Payment{
		{TxRef: "tx-1", Plan: models.PlanStarter, Amount: 5000, Currency: "NGN", Status: models.PaymentCompleted, CreatedAt: created,
			User: models.User{Email: "a@acme.test", BusinessName: "Acme"}},
		{TxRef: "tx-2", Plan: models.PlanBusiness, Amount: 15000, Currency: "NGN", Status: models.PaymentFailed, FailureReason: "amount mismatch", CreatedAt: created},
		{TxRef: "tx-3", Plan: models.PlanStarter, Amount: 5000, Currency: "NGN", Status: models.PaymentCompleted, CreatedAt: created},
	}

	data, err := NewExcelService().PaymentReport(payments)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{paymentsSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(paymentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, paymentColumns, rows[0])
	assert.Equal(t, "tx-1", rows[1][0])
	assert.Equal(t, "a@acme.test", rows[1][1])
	assert.Equal(t, "amount mismatch", rows[2][8])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{models.PaymentCompleted, "2", "10000"}, summary[1])
	assert.Equal(t, []string{models.PaymentFailed, "1", "15000"}, summary[3])
}

func TestEmptyPaymentReport(t *testing.T) {
	data, err := NewExcelService().PaymentReport(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(paymentsSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "no payments found for this period", v)
}

func TestColumnToLetter(t *testing.T) {
	assert.Equal(t, "A", columnToLetter(1))
	assert.Equal(t, "Z", columnToLetter(26))
	assert.Equal(t, "AA", columnToLetter(27))
}

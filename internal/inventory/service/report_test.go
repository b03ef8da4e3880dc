package service_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/medstock/medstock-backend/internal/inventory/repository"
	"github.com/medstock/medstock-backend/internal/inventory/service"
	"github.com/medstock/medstock-backend/pkg/errors"
	"github.com/medstock/medstock-backend/pkg/testutil"
)

func tx(itemID int64, item string, batchID *int64, batch *string, txType string, change int, at time.Time) *repository.Transaction {
	return &repository.Transaction{
		ItemID:         itemID,
		ItemName:       item,
		BatchID:        batchID,
		BatchNumber:    batch,
		Type:           txType,
		QuantityChange: change,
		Date:           at,
	}
}

func TestAggregate(t *testing.T) {
	b1, b2 := int64(10), int64(11)
	n1, n2 := "BATCH-PARA-1", "BATCH-PARA-2"
	day := func(d int) time.Time { return time.Date(2025, time.March, d, 9, 0, 0, 0, time.UTC) }

	rows := service.Aggregate([]*repository.Transaction{
		// out of order on purpose
		tx(1, "Paracetamol", &b1, &n1, repository.TransactionRemove, -4, day(3)),
		tx(1, "Paracetamol", &b1, &n1, repository.TransactionAdd, 10, day(1)),
		tx(1, "Paracetamol", &b2, &n2, repository.TransactionAdd, 5, day(2)),
		tx(1, "Paracetamol", nil, nil, repository.TransactionRemove, -2, day(4)),
		tx(1, "Paracetamol", &b1, &n1, repository.TransactionUpdate, 3, day(5)),
		tx(2, "Gauze", nil, nil, repository.TransactionAdd, 7, day(6)),
	})

	require.Len(t, rows, 4)
	assert.Equal(t, service.ReportRow{ItemName: "Paracetamol", BatchName: n1, BatchQuantity: 10, TotalDisbursed: 4, TotalRemaining: 6}, rows[0])
	assert.Equal(t, service.ReportRow{ItemName: "Paracetamol", BatchName: n2, BatchQuantity: 5, TotalDisbursed: 0, TotalRemaining: 5}, rows[1])
	assert.Equal(t, service.ReportRow{ItemName: "Paracetamol", BatchName: "N/A", BatchQuantity: 0, TotalDisbursed: 2, TotalRemaining: -2}, rows[2])
	assert.Equal(t, service.ReportRow{ItemName: "Gauze", BatchName: "N/A", BatchQuantity: 7, TotalDisbursed: 0, TotalRemaining: 7}, rows[3])
}

func TestAggregate_Empty(t *testing.T) {
	rows := service.Aggregate(nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestMonthlyRange(t *testing.T) {
	start, end := service.MonthlyRange(2024, 2)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 59, 999999999, time.UTC), end)

	start, end = service.MonthlyRange(2024, 12)
	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.December, 31, 23, 59, 59, 999999999, time.UTC), end)
}

func TestYearlyRange(t *testing.T) {
	start, end := service.YearlyRange(2023)
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2023, time.December, 31, 23, 59, 59, 999999999, time.UTC), end)
}

func TestReport_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     service.ReportRequest
		message string
	}{
		{"monthly without month", service.ReportRequest{Type: "monthly", Year: 2024}, "Year and month are required for monthly reports."},
		{"monthly with bad month", service.ReportRequest{Type: "monthly", Year: 2024, Month: 13}, "Year and month are required for monthly reports."},
		{"yearly without year", service.ReportRequest{Type: "yearly"}, "Year is required for yearly reports."},
		{"unknown type", service.ReportRequest{Type: "weekly", Year: 2024}, "Invalid report type."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.Report(context.Background(), tt.req)
			require.Error(t, err)

			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestReport_Monthly(t *testing.T) {
	f := newFixture(t)
	start, end := service.MonthlyRange(2025, 1)
	b1, n1 := int64(10), "BATCH-PARA-1"

	f.db.ExpectQuery("WHERE t.date >= $1 AND t.date <= $2").
		WithArgs(start, end).
		WillReturnRows(testutil.MockRows("id", "inventory_item_id", "batch_id", "transaction_type", "quantity_change",
			"date", "remarks", "patient_name", "item_name", "item_quantity", "batch_number").
			AddRow(1, 1, b1, "ADD", 10, start, "New batch added", nil, "Paracetamol", 6, n1).
			AddRow(2, 1, nil, "REMOVE", -4, start.Add(time.Hour), "Stock reduced", "Jane", "Paracetamol", 6, nil))
	f.db.ExpectQuery("i.quantity_in_stock <= i.min_stock_level").WillReturnRows(testutil.MockRows(itemCols...))
	f.db.ExpectQuery("b.expiry_date <= $1").
		WithArgs(fixedNow.AddDate(0, 0, 30)).
		WillReturnRows(testutil.MockRows(batchCols...))

	report, err := f.svc.Report(context.Background(), service.ReportRequest{Type: "Monthly", Year: 2025, Month: 1})
	require.NoError(t, err)
	assert.Equal(t, service.ReportMonthly, report.Type)
	require.Len(t, report.Data, 2)
	assert.Equal(t, 10, report.Data[0].BatchQuantity)
	assert.Equal(t, "N/A", report.Data[1].BatchName)
	assert.Equal(t, 4, report.Data[1].TotalDisbursed)
	assert.Empty(t, report.LowStockItems)
	assert.Empty(t, report.ExpiringBatches)
}

func TestWriteReportXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := service.WriteReportXLSX(&buf, &service.Report{Data: []service.ReportRow{
		{ItemName: "Paracetamol", BatchName: "BATCH-PARA-1", BatchQuantity: 10, TotalDisbursed: 4, TotalRemaining: 6},
	}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, service.ReportSheet, f.GetSheetName(0))
	rows, err := f.GetRows(service.ReportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Item", "Batch", "Batch Quantity", "Disbursed", "Remaining"}, rows[0])
	assert.Equal(t, []string{"Paracetamol", "BATCH-PARA-1", "10", "4", "6"}, rows[1])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, stderrors.New("disk full") }

func TestWriteReportXLSX_WriterError(t *testing.T) {
	err := service.WriteReportXLSX(failingWriter{}, &service.Report{Data: []service.ReportRow{
		{ItemName: "Paracetamol", BatchName: "BATCH-PARA-1", BatchQuantity: 10, TotalDisbursed: 4, TotalRemaining: 6},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestWriteReportXLSX_HeaderStyled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, service.WriteReportXLSX(&buf, &service.Report{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	for _, cell := range []string{"A1", "E1"} {
		styleID, err := f.GetCellStyle(service.ReportSheet, cell)
		require.NoError(t, err)
		style, err := f.GetStyle(styleID)
		require.NoError(t, err)
		require.NotNil(t, style.Font)
		assert.True(t, style.Font.Bold, cell)
	}
	width, err := f.GetColWidth(service.ReportSheet, "A")
	require.NoError(t, err)
	assert.Equal(t, 28.0, width)
}

package service_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/medstock/medstock-backend/internal/inventory/repository"
	"github.com/medstock/medstock-backend/internal/inventory/service"
	"github.com/medstock/medstock-backend/pkg/errors"
	"github.com/medstock/medstock-backend/pkg/logger"
	"github.com/medstock/medstock-backend/pkg/messaging"
	"github.com/medstock/medstock-backend/pkg/testutil"
)

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseImportDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2026-03-31", "2026-03-31"},
		{"03/31/2026", "2026-03-31"},
		{"31.03.2026", "2026-03-31"},
		{"46112", "2026-03-31"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := service.ParseImportDate(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}

	_, err := service.ParseImportDate("soon")
	assert.Error(t, err)
}

func TestImport_UnreadableFile(t *testing.T) {
	f := newFixture(t)
	im := service.NewImporter(f.svc, logger.Nop())

	_, err := im.Import(context.Background(), strings.NewReader("not a workbook"), "stock.xlsx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDependency))
}

func TestImport_RowErrorsDoNotFailTheFile(t *testing.T) {
	f := newFixture(t)
	im := service.NewImporter(f.svc, logger.Nop())

	buf := workbook(t,
		[]interface{}{"Name", "Category", "Min_Stock_Level", "Unit_Price", "Reorder_Level", "Quantity"},
		[]interface{}{"Gauze", "Dressings", 5, "", 3, 10},
		[]interface{}{" "},
		[]interface{}{"Syringe", "Consumables", "lots", "0.40", 3},
	)

	result, err := im.Import(context.Background(), buf, "stock.xlsx")
	require.NoError(t, err)
	assert.Empty(t, result.Success)
	require.Len(t, result.Errors, 2)

	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Equal(t, "Gauze", result.Errors[0].Name)
	assert.Contains(t, result.Errors[0].Error, "unit_price")

	assert.Equal(t, 4, result.Errors[1].Row)
	assert.Contains(t, result.Errors[1].Error, "min_stock_level")

	completed := f.pub.Events(messaging.EventImportCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, messaging.ImportCompletedEvent{FileName: "stock.xlsx", Succeeded: 0, Failed: 2}, completed[0].Payload)
	assert.Equal(t, 0, f.queue.count())
}

func TestImport_CreatesCategoryItemAndBatch(t *testing.T) {
	f := newFixture(t)
	im := service.NewImporter(f.svc, logger.Nop())

	buf := workbook(t,
		[]interface{}{"name", "category", "min_stock_level", "unit_price", "reorder_level", "quantity", "supplier"},
		[]interface{}{"Gauze", "Dressings", 5, "1.25", 3, 12, "Acme"},
	)

	f.db.ExpectBegin()
	f.db.ExpectQuery("FROM categories WHERE name = $1").
		WithArgs("Dressings").
		WillReturnRows(testutil.MockRows("id", "name", "description", "is_active", "created_at", "updated_at"))
	f.db.ExpectQuery("INSERT INTO categories").
		WithArgs("Dressings", "").
		WillReturnRows(testutil.MockRows("id", "is_active", "created_at", "updated_at").AddRow(3, true, fixedNow, fixedNow))
	f.db.ExpectQuery("WHERE i.name = $1").
		WithArgs("Gauze").
		WillReturnRows(testutil.MockRows(itemCols...))
	f.db.ExpectQuery("INSERT INTO inventory_items").
		WillReturnRows(testutil.MockRows("id", "is_active", "created_at", "updated_at").AddRow(7, true, fixedNow, fixedNow))
	f.db.ExpectQuery("FOR UPDATE OF i").
		WithArgs(int64(7)).
		WillReturnRows(testutil.MockRows(itemCols...).
			AddRow(7, "Gauze", 3, "Dressings", "", 0, 5, "1.25", 3, true, fixedNow, fixedNow))
	f.db.ExpectQuery("SELECT EXISTS").
		WithArgs("BATCH-GAUZ-20250115103000").
		WillReturnRows(testutil.MockRows("exists").AddRow(false))
	f.db.ExpectQuery("INSERT INTO batches").
		WithArgs(int64(7), "BATCH-GAUZ-20250115103000", 12, nil, "Acme", fixedNow).
		WillReturnRows(testutil.MockRows("id", "is_active", "created_at", "updated_at").AddRow(20, true, fixedNow, fixedNow))
	f.db.ExpectQuery("INSERT INTO transactions").
		WithArgs(int64(7), int64(20), repository.TransactionAdd, 12, fixedNow, "Batch added from Excel import: BATCH-GAUZ-20250115103000", nil).
		WillReturnRows(testutil.MockRows("id").AddRow(200))
	f.db.ExpectQuery("SELECT COALESCE(SUM(quantity), 0)").
		WillReturnRows(testutil.MockRows("coalesce").AddRow(12))
	f.db.ExpectExec("UPDATE inventory_items SET quantity_in_stock").
		WithArgs(int64(7), 12).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.db.ExpectQuery("INSERT INTO transactions").
		WithArgs(int64(7), nil, repository.TransactionAdd, 0, fixedNow, "New item added from Excel import", nil).
		WillReturnRows(testutil.MockRows("id").AddRow(201))
	f.db.ExpectCommit()

	result, err := im.Import(context.Background(), buf, "stock.xlsx")
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.Success, 1)
	assert.Equal(t, "BATCH-GAUZ-20250115103000", result.Success[0].BatchNumber)
	assert.Equal(t, "Processed successfully", result.Success[0].Message)
	assert.Equal(t, 1, f.queue.count())
}

package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock-backend/pkg/database"
	"github.com/medstock/medstock-backend/pkg/testutil"
)

func TestWithTx_Commit(t *testing.T) {
	mockDB := testutil.NewMockDB(t)

	mockDB.ExpectBegin()
	mockDB.ExpectExec("UPDATE inventory_items SET quantity_in_stock = $1 WHERE id = $2").
		WithArgs(5, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	err := mockDB.DB.WithTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, database.InTx(ctx))
		_, err := mockDB.DB.Q(ctx).ExecContext(ctx, "UPDATE inventory_items SET quantity_in_stock = $1 WHERE id = $2", 5, int64(1))
		return err
	})
	require.NoError(t, err)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	mockDB := testutil.NewMockDB(t)

	mockDB.ExpectBegin()
	mockDB.ExpectRollback()

	boom := errors.New("boom")
	err := mockDB.DB.WithTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	mockDB := testutil.NewMockDB(t)

	mockDB.ExpectBegin()
	mockDB.ExpectRollback()

	assert.Panics(t, func() {
		_ = mockDB.DB.WithTx(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	mockDB := testutil.NewMockDB(t)

	// A single begin/commit pair proves the inner call did not open its own.
	mockDB.ExpectBegin()
	mockDB.ExpectCommit()

	err := mockDB.DB.WithTx(context.Background(), func(ctx context.Context) error {
		return mockDB.DB.WithTx(ctx, func(inner context.Context) error {
			assert.Equal(t, mockDB.DB.Q(ctx), mockDB.DB.Q(inner))
			return nil
		})
	})
	require.NoError(t, err)
}

func TestQ_OutsideTransactionUsesPool(t *testing.T) {
	mockDB := testutil.NewMockDB(t)

	assert.False(t, database.InTx(context.Background()))
	assert.Equal(t, database.Querier(mockDB.DB.DB), mockDB.DB.Q(context.Background()))
}

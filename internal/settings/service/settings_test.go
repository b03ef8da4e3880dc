package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock-backend/internal/settings/repository"
	"github.com/medstock/medstock-backend/internal/settings/service"
	"github.com/medstock/medstock-backend/pkg/errors"
	"github.com/medstock/medstock-backend/pkg/logger"
	"github.com/medstock/medstock-backend/pkg/testutil"
)

func newService(t *testing.T) (*service.SettingsService, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	return service.NewSettingsService(mockDB.DB, repository.NewSettingsRepository(mockDB.DB), logger.Nop()), mockDB
}

func TestGetAll(t *testing.T) {
	svc, mockDB := newService(t)
	mockDB.ExpectQuery("SELECT key, value FROM settings").
		WillReturnRows(testutil.MockRows("key", "value").AddRow("clinic_name", "MinSU Clinic").AddRow("low_stock_email", "on"))

	got, err := svc.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"clinic_name": "MinSU Clinic", "low_stock_email": "on"}, got)
}

func TestSave_UpsertsInOneTransaction(t *testing.T) {
	svc, mockDB := newService(t)

	mockDB.ExpectBegin()
	mockDB.ExpectExec("INSERT INTO settings").WithArgs("a_key", "1").WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("INSERT INTO settings").WithArgs("b_key", "2").WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("SELECT key, value FROM settings").
		WillReturnRows(testutil.MockRows("key", "value").AddRow("a_key", "1").AddRow("b_key", "2").AddRow("c_key", "old"))
	mockDB.ExpectCommit()

	got, err := svc.Save(context.Background(), map[string]string{"b_key": "2", "a_key": "1"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSave_RollsBackOnFailure(t *testing.T) {
	svc, mockDB := newService(t)

	mockDB.ExpectBegin()
	mockDB.ExpectExec("INSERT INTO settings").WithArgs("a_key", "1").WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("INSERT INTO settings").WithArgs("b_key", "2").WillReturnError(assert.AnError)
	mockDB.ExpectRollback()

	_, err := svc.Save(context.Background(), map[string]string{"a_key": "1", "b_key": "2"})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSave_RejectsBadKeys(t *testing.T) {
	svc, _ := newService(t)

	for _, key := range []string{"", "   ", strings.Repeat("k", 101)} {
		_, err := svc.Save(context.Background(), map[string]string{key: "v"})
		assert.True(t, errors.Is(err, errors.ErrValidation), "key %q", key)
	}
}

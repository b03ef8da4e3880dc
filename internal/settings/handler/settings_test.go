package handler_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/medstock/medstock-backend/internal/settings/handler"
	"github.com/medstock/medstock-backend/internal/settings/repository"
	"github.com/medstock/medstock-backend/internal/settings/service"
	"github.com/medstock/medstock-backend/pkg/logger"
	"github.com/medstock/medstock-backend/pkg/testutil"
)

func newRouter(t *testing.T) (http.Handler, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	svc := service.NewSettingsService(mockDB.DB, repository.NewSettingsRepository(mockDB.DB), logger.Nop())

	r := chi.NewRouter()
	r.Route("/api/settings", handler.NewSettingsHandler(svc, logger.Nop()).Mount)
	return r, mockDB
}

func TestGetSettings(t *testing.T) {
	router, mockDB := newRouter(t)
	mockDB.ExpectQuery("SELECT key, value FROM settings").
		WillReturnRows(testutil.MockRows("key", "value").AddRow("clinic_name", "MinSU Clinic"))

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/api/settings/get", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	var got map[string]string
	testutil.ParseData(t, rr, &got)
	assert.Equal(t, "MinSU Clinic", got["clinic_name"])
}

func TestSaveSettings(t *testing.T) {
	router, mockDB := newRouter(t)
	mockDB.ExpectBegin()
	mockDB.ExpectExec("INSERT INTO settings").WithArgs("clinic_name", "New Name").WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("SELECT key, value FROM settings").
		WillReturnRows(testutil.MockRows("key", "value").AddRow("clinic_name", "New Name"))
	mockDB.ExpectCommit()

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPost, "/api/settings/save",
		map[string]string{"clinic_name": "New Name"}))

	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestSaveSettings_NonStringValues(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/settings/save", bytes.NewBufferString(`{"count": 3}`))
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

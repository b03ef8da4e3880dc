package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/medstock/medstock-backend/internal/auth/handler"
	"github.com/medstock/medstock-backend/internal/auth/jwt"
	"github.com/medstock/medstock-backend/internal/auth/repository"
	"github.com/medstock/medstock-backend/internal/auth/service"
	"github.com/medstock/medstock-backend/pkg/config"
	"github.com/medstock/medstock-backend/pkg/httputil"
	"github.com/medstock/medstock-backend/pkg/logger"
	"github.com/medstock/medstock-backend/pkg/testutil"
)

func newRouter(t *testing.T) (http.Handler, *testutil.MockDB, *jwt.Manager) {
	mockDB := testutil.NewMockDB(t)
	tokens := jwt.NewManager(&config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Hour, Issuer: "medstock"})
	svc := service.NewAuthService(mockDB.DB, repository.NewAdminRepository(mockDB.DB), tokens, nil, logger.Nop()).
		WithHashCost(bcrypt.MinCost)

	r := chi.NewRouter()
	r.Route("/api/auth", handler.NewAuthHandler(svc, logger.Nop()).Mount)
	r.With(httputil.Authenticate(tokens)).Get("/api/inventory/items", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, httputil.GetAdminEmail(r.Context()))
	})
	return r, mockDB, tokens
}

func TestLogin_Validation(t *testing.T) {
	router, _, _ := newRouter(t)

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPost, "/api/auth/login",
		map[string]string{"email": "nope", "password": ""}))

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	assert.Equal(t, "VALIDATION_ERROR", testutil.ErrorCode(t, rr))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	router, mockDB, _ := newRouter(t)
	mockDB.ExpectQuery("FROM admins WHERE email = $1").
		WillReturnRows(testutil.MockRows("id", "email", "password", "voucher", "created_at", "updated_at"))

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPost, "/api/auth/login",
		map[string]string{"email": "admin@clinic.test", "password": "whatever"}))

	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	assert.Equal(t, "INVALID_CREDENTIALS", testutil.ErrorCode(t, rr))
}

func TestHasAdmins(t *testing.T) {
	router, mockDB, _ := newRouter(t)
	mockDB.ExpectQuery("WHERE password IS NULL").WillReturnRows(testutil.MockRows("exists").AddRow(false))

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/api/auth/has-admins", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	var body map[string]bool
	testutil.ParseData(t, rr, &body)
	assert.False(t, body["hasAdminWithNullPassword"])
}

func TestSetPassword_RequiresSetupToken(t *testing.T) {
	router, _, tokens := newRouter(t)

	access, err := tokens.IssueAccessToken(1, "admin@clinic.test")
	assert.NoError(t, err)

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPost, "/api/auth/set-password",
		map[string]string{"setup_token": access.Token, "password": "correct horse"}))

	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	assert.Equal(t, "TOKEN_INVALID", testutil.ErrorCode(t, rr))
}

func TestAuthenticate(t *testing.T) {
	router, _, tokens := newRouter(t)

	t.Run("missing token", func(t *testing.T) {
		rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/api/inventory/items", nil))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("valid token", func(t *testing.T) {
		tok, err := tokens.IssueAccessToken(1, "admin@clinic.test")
		assert.NoError(t, err)

		req := testutil.NewHTTPRequest(http.MethodGet, "/api/inventory/items", nil)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		rr := testutil.ExecuteRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		var email string
		testutil.ParseData(t, rr, &email)
		assert.Equal(t, "admin@clinic.test", email)
	})
}

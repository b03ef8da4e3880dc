package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medstock/medstock-backend/internal/auth/events"
	"github.com/medstock/medstock-backend/internal/auth/jwt"
	"github.com/medstock/medstock-backend/internal/auth/repository"
	"github.com/medstock/medstock-backend/internal/auth/service"
	"github.com/medstock/medstock-backend/pkg/config"
	"github.com/medstock/medstock-backend/pkg/errors"
	"github.com/medstock/medstock-backend/pkg/logger"
	"github.com/medstock/medstock-backend/pkg/messaging"
	"github.com/medstock/medstock-backend/pkg/testutil"
)

var adminCols = []string{"id", "email", "password", "voucher", "created_at", "updated_at"}

type fixture struct {
	svc    *service.AuthService
	db     *testutil.MockDB
	pub    *testutil.MockPublisher
	tokens *jwt.Manager
}

func newFixture(t *testing.T) *fixture {
	mockDB := testutil.NewMockDB(t)
	pub := testutil.NewMockPublisher()
	tokens := jwt.NewManager(&config.JWTConfig{Secret: "test-secret", AccessExpiry: 24 * time.Hour, Issuer: "medstock"})
	svc := service.NewAuthService(
		mockDB.DB,
		repository.NewAdminRepository(mockDB.DB),
		tokens,
		events.NewWithPublisher(pub, logger.Nop()),
		logger.Nop(),
	).WithHashCost(bcrypt.MinCost)
	return &fixture{svc: svc, db: mockDB, pub: pub, tokens: tokens}
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestVerifyVoucher(t *testing.T) {
	t.Run("redeems once and issues a setup token", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now()

		f.db.ExpectBegin()
		f.db.ExpectQuery("FROM admins WHERE voucher = $1 FOR UPDATE").
			WithArgs("v-123").
			WillReturnRows(testutil.MockRows(adminCols...).AddRow(1, "admin@clinic.test", nil, "v-123", now, now))
		f.db.ExpectExec("UPDATE admins SET voucher = NULL").
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.db.ExpectCommit()

		resp, err := f.svc.VerifyVoucher(context.Background(), " v-123 ")
		require.NoError(t, err)
		assert.Equal(t, "admin@clinic.test", resp.Email)
		assert.Equal(t, "Voucher validated. Please set a password.", resp.Message)

		claims, err := f.tokens.Validate(resp.SetupToken, jwt.PurposeSetup)
		require.NoError(t, err)
		assert.Equal(t, "admin@clinic.test", claims.Email)
	})

	t.Run("unknown voucher", func(t *testing.T) {
		f := newFixture(t)

		f.db.ExpectBegin()
		f.db.ExpectQuery("FROM admins WHERE voucher = $1").
			WithArgs("nope").
			WillReturnRows(testutil.MockRows(adminCols...))
		f.db.ExpectRollback()

		_, err := f.svc.VerifyVoucher(context.Background(), "nope")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrValidation))

		var appErr *errors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "Invalid voucher.", appErr.Message)
	})

	t.Run("empty voucher never hits the database", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.VerifyVoucher(context.Background(), "  ")
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})
}

func TestSetPassword(t *testing.T) {
	t.Run("stores a bcrypt hash", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now()

		f.db.ExpectQuery("FROM admins WHERE email = $1").
			WithArgs("admin@clinic.test").
			WillReturnRows(testutil.MockRows(adminCols...).AddRow(1, "admin@clinic.test", nil, nil, now, now))
		f.db.ExpectExec("UPDATE admins SET password = $2").
			WithArgs(int64(1), testutil.AnyString{}).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, f.svc.SetPassword(context.Background(), "admin@clinic.test", "correct horse"))
	})

	t.Run("short password", func(t *testing.T) {
		f := newFixture(t)

		err := f.svc.SetPassword(context.Background(), "admin@clinic.test", "short")
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("unknown admin", func(t *testing.T) {
		f := newFixture(t)

		f.db.ExpectQuery("FROM admins WHERE email = $1").WillReturnRows(testutil.MockRows(adminCols...))

		err := f.svc.SetPassword(context.Background(), "ghost@clinic.test", "correct horse")
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestCompleteSetup_RejectsAccessToken(t *testing.T) {
	f := newFixture(t)

	access, err := f.tokens.IssueAccessToken(1, "admin@clinic.test")
	require.NoError(t, err)

	err = f.svc.CompleteSetup(context.Background(), access.Token, "correct horse")
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}

func TestLogin(t *testing.T) {
	now := time.Now()

	t.Run("valid password", func(t *testing.T) {
		f := newFixture(t)
		f.db.ExpectQuery("FROM admins WHERE email = $1").
			WithArgs("admin@clinic.test").
			WillReturnRows(testutil.MockRows(adminCols...).AddRow(1, "admin@clinic.test", hash(t, "correct horse"), nil, now, now))

		resp, err := f.svc.Login(context.Background(), "admin@clinic.test", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, "Login successful.", resp.Message)

		email, err := f.tokens.VerifyToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "admin@clinic.test", email)
	})

	tests := []struct {
		name     string
		rows     *sqlmock.Rows
		password string
	}{
		{"wrong password", testutil.MockRows(adminCols...).AddRow(1, "admin@clinic.test", hash(t, "correct horse"), nil, now, now), "battery staple"},
		{"password never set", testutil.MockRows(adminCols...).AddRow(1, "admin@clinic.test", nil, "v-1", now, now), "anything"},
		{"unknown email", testutil.MockRows(adminCols...), "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.db.ExpectQuery("FROM admins WHERE email = $1").WillReturnRows(tt.rows)

			_, err := f.svc.Login(context.Background(), "admin@clinic.test", tt.password)
			assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
		})
	}
}

func TestHasUnprovisionedAdmin(t *testing.T) {
	f := newFixture(t)
	f.db.ExpectQuery("WHERE password IS NULL").WillReturnRows(testutil.MockRows("exists").AddRow(true))

	ok, err := f.svc.HasUnprovisionedAdmin(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIssueVoucher(t *testing.T) {
	t.Run("publishes the voucher", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now()

		f.db.ExpectQuery("INSERT INTO admins").
			WithArgs("admin@clinic.test", testutil.AnyString{}).
			WillReturnRows(testutil.MockRows("id", "created_at", "updated_at").AddRow(1, now, now))

		issued, err := f.svc.IssueVoucher(context.Background(), "admin@clinic.test")
		require.NoError(t, err)
		assert.True(t, issued.Delivered)
		assert.Len(t, issued.Voucher, 36)

		published := f.pub.Events(messaging.EventVoucherIssued)
		require.Len(t, published, 1)
		assert.Equal(t, messaging.VoucherIssuedEvent{Email: "admin@clinic.test", Voucher: issued.Voucher}, published[0].Payload)
	})

	t.Run("rejects a malformed email", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.IssueVoucher(context.Background(), "not-an-email")
		assert.True(t, errors.Is(err, errors.ErrValidation))
		f.pub.AssertNoEventsPublished(t)
	})
}

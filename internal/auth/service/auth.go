package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/medstock/medstock-backend/internal/auth/events"
	"github.com/medstock/medstock-backend/internal/auth/jwt"
	"github.com/medstock/medstock-backend/internal/auth/repository"
	"github.com/medstock/medstock-backend/pkg/database"
	"github.com/medstock/medstock-backend/pkg/errors"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// MinPasswordLength is the shortest accepted admin password
const MinPasswordLength = 8

var validate = validator.New()

// AuthService handles the admin voucher, password and login flows
type AuthService struct {
	db         *database.DB
	admins     *repository.AdminRepository
	jwtManager *jwt.Manager
	publisher  *events.AuthEventPublisher
	hashCost   int
	logger     *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	db *database.DB,
	admins *repository.AdminRepository,
	jwtManager *jwt.Manager,
	publisher *events.AuthEventPublisher,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		db:         db,
		admins:     admins,
		jwtManager: jwtManager,
		publisher:  publisher,
		hashCost:   bcrypt.DefaultCost,
		logger:     log.WithComponent("auth"),
	}
}

// WithHashCost overrides the bcrypt cost
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.hashCost = cost
	return s
}

// VoucherLoginResponse carries the token that authorizes setting a password
type VoucherLoginResponse struct {
	Email      string    `json:"email"`
	SetupToken string    `json:"setup_token"`
	ExpiresAt  time.Time `json:"expires_at"`
	Message    string    `json:"message"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Message   string    `json:"message"`
}

// IssuedVoucher is the result of provisioning an admin
type IssuedVoucher struct {
	Email     string
	Voucher   string
	Delivered bool
}

// VerifyVoucher redeems a one-time voucher. The voucher is cleared in the
// same transaction, so it can only be used once.
func (s *AuthService) VerifyVoucher(ctx context.Context, voucher string) (*VoucherLoginResponse, error) {
	voucher = strings.TrimSpace(voucher)
	if voucher == "" {
		return nil, errors.Invalid("Invalid voucher.")
	}

	var admin *repository.Admin
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		var err error
		admin, err = s.admins.GetByVoucher(ctx, voucher)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.Invalid("Invalid voucher.")
			}
			return err
		}
		return s.admins.ClearVoucher(ctx, admin.ID)
	})
	if err != nil {
		return nil, err
	}

	token, err := s.jwtManager.IssueSetupToken(admin.ID, admin.Email)
	if err != nil {
		return nil, errors.Internal("failed to issue setup token")
	}

	s.logger.Info().Int64("admin_id", admin.ID).Msg("voucher redeemed")

	return &VoucherLoginResponse{
		Email:      admin.Email,
		SetupToken: token.Token,
		ExpiresAt:  token.ExpiresAt,
		Message:    "Voucher validated. Please set a password.",
	}, nil
}

// CompleteSetup sets the password of the admin a setup token was issued to
func (s *AuthService) CompleteSetup(ctx context.Context, setupToken, password string) error {
	claims, err := s.jwtManager.Validate(setupToken, jwt.PurposeSetup)
	if err != nil {
		return err
	}
	return s.SetPassword(ctx, claims.Email, password)
}

// SetPassword hashes and stores a new admin password
func (s *AuthService) SetPassword(ctx context.Context, email, password string) error {
	if len(password) < MinPasswordLength {
		return errors.Validation(map[string]string{"password": "must be at least 8 characters"})
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return errors.Internal("failed to hash password")
	}

	if err := s.admins.SetPassword(ctx, admin.ID, string(hash)); err != nil {
		return err
	}

	s.logger.Info().Int64("admin_id", admin.ID).Msg("admin password set")
	return nil
}

// Login checks the admin's password and issues a bearer token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	admin, err := s.admins.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InvalidCredentials()
		}
		return nil, err
	}

	if admin.Password == nil {
		return nil, errors.InvalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*admin.Password), []byte(password)); err != nil {
		return nil, errors.InvalidCredentials()
	}

	token, err := s.jwtManager.IssueAccessToken(admin.ID, admin.Email)
	if err != nil {
		return nil, errors.Internal("failed to generate token")
	}

	return &LoginResponse{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		Message:   "Login successful.",
	}, nil
}

// HasUnprovisionedAdmin reports whether an admin is still waiting for a password
func (s *AuthService) HasUnprovisionedAdmin(ctx context.Context) (bool, error) {
	return s.admins.HasUnprovisioned(ctx)
}

// IssueVoucher creates the admin, or resets an existing one, with a fresh
// voucher and hands it to the mailer.
func (s *AuthService) IssueVoucher(ctx context.Context, email string) (*IssuedVoucher, error) {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, errors.Validation(map[string]string{"email": "must be a valid email address"})
	}

	voucher := uuid.New().String()
	if _, err := s.admins.UpsertVoucher(ctx, email, voucher); err != nil {
		return nil, err
	}

	issued := &IssuedVoucher{Email: email, Voucher: voucher}
	if s.publisher != nil {
		if err := s.publisher.PublishVoucherIssued(ctx, email, voucher); err != nil {
			s.logger.Warn().Err(err).Str("email", email).Msg("failed to publish voucher")
		} else {
			issued.Delivered = true
		}
	}

	return issued, nil
}

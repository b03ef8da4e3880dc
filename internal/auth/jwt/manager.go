package jwt

import (
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medstock/medstock-backend/pkg/config"
	"github.com/medstock/medstock-backend/pkg/errors"
)

// Token purposes
const (
	PurposeAccess = "access"
	PurposeSetup  = "setup"
)

// SetupExpiry bounds the window between redeeming a voucher and setting a password
const SetupExpiry = 15 * time.Minute

// Claims represents the JWT claims
type Claims struct {
	jwt.RegisteredClaims
	AdminID int64  `json:"admin_id"`
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

// Token is a signed token and its expiry
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager handles JWT operations
type Manager struct {
	config *config.JWTConfig
	now    func() time.Time
}

// NewManager creates a new JWT manager
func NewManager(cfg *config.JWTConfig) *Manager {
	return &Manager{config: cfg, now: time.Now}
}

// WithClock overrides the time source
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// IssueAccessToken signs a bearer token for the admin
func (m *Manager) IssueAccessToken(adminID int64, email string) (*Token, error) {
	return m.issue(adminID, email, PurposeAccess, m.config.AccessExpiry)
}

// IssueSetupToken signs a short-lived token that only authorizes setting a password
func (m *Manager) IssueSetupToken(adminID int64, email string) (*Token, error) {
	return m.issue(adminID, email, PurposeSetup, SetupExpiry)
}

func (m *Manager) issue(adminID int64, email, purpose string, ttl time.Duration) (*Token, error) {
	now := m.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		AdminID: adminID,
		Email:   email,
		Purpose: purpose,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.Secret))
	if err != nil {
		return nil, err
	}
	return &Token{Token: signed, ExpiresAt: expiresAt}, nil
}

// Validate parses a token and checks that it was issued for purpose
func (m *Manager) Validate(tokenString, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.TokenInvalid()
		}
		return []byte(m.config.Secret), nil
	},
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Purpose != purpose {
		return nil, errors.TokenInvalid()
	}

	return claims, nil
}

// VerifyToken validates a bearer token and returns the admin email
func (m *Manager) VerifyToken(tokenString string) (string, error) {
	claims, err := m.Validate(tokenString, PurposeAccess)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}

// AccessExpiry returns the access token lifetime
func (m *Manager) AccessExpiry() time.Duration {
	return m.config.AccessExpiry
}

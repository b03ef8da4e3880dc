package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medstock/medstock-backend/internal/auth/service"
	"github.com/medstock/medstock-backend/pkg/httputil"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	service *service.AuthService
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: svc,
		logger:  log,
	}
}

// Mount registers the public auth routes
func (h *AuthHandler) Mount(r chi.Router) {
	r.Post("/voucher-login", h.VoucherLogin)
	r.Post("/set-password", h.SetPassword)
	r.Post("/login", h.Login)
	r.Get("/has-admins", h.HasAdmins)
}

// VoucherLoginRequest redeems a setup voucher
type VoucherLoginRequest struct {
	Voucher string `json:"voucher" validate:"required"`
}

// SetPasswordRequest sets the admin password after a voucher login
type SetPasswordRequest struct {
	SetupToken string `json:"setup_token" validate:"required"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VoucherLogin redeems a voucher and returns a setup token
func (h *AuthHandler) VoucherLogin(w http.ResponseWriter, r *http.Request) {
	var req VoucherLoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	resp, err := h.service.VerifyVoucher(r.Context(), req.Voucher)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// SetPassword sets the password of the admin the setup token belongs to
func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	if err := h.service.CompleteSetup(r.Context(), req.SetupToken, req.Password); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "Password set successfully."})
}

// Login handles admin login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	resp, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// HasAdmins tells the login page whether first-time setup is pending
func (h *AuthHandler) HasAdmins(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.HasUnprovisionedAdmin(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]bool{"hasAdminWithNullPassword": pending})
}

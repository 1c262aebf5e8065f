package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/shelfd/shelf/internal/server/middleware"
	"github.com/shelfd/shelf/internal/service"
)

// AdminHandler serves admin account registration, login, and session
// introspection.
type AdminHandler struct {
	authSvc *service.AuthService
	logger  *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(authSvc *service.AuthService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{authSvc: authSvc, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the payload for a successful login.
type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	AdminID   int64  `json:"admin_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// Register creates a new admin account.
// POST /api/admin/register
func (h *AdminHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	admin, err := h.authSvc.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, "Admin already exists")
		default:
			h.logger.Error("register admin", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to register admin")
		}
		return
	}

	h.logger.Info("admin registered", "id", admin.ID, "email", admin.Email)
	writeJSON(w, http.StatusCreated, admin)
}

// Login authenticates an admin and returns a bearer token.
// POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	admin, token, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// Same message for unknown email and wrong password.
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, "Authentication error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(h.authSvc.TokenTTL().Seconds()),
		AdminID:   admin.ID,
		Email:     admin.Email,
		Name:      admin.Name,
	})
}

// Profile returns the authenticated admin's account, password hash excluded
// by the model's JSON tags.
// GET /api/admin/profile
func (h *AdminHandler) Profile(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdmin(r.Context())
	if admin == nil {
		writeError(w, http.StatusNotFound, "Admin not found")
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

// Verify confirms the bearer token is valid and echoes the admin identity.
// GET /api/admin/verify
func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdmin(r.Context())
	if admin == nil {
		writeError(w, http.StatusNotFound, "Admin not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Token is valid",
		"admin": map[string]interface{}{
			"id":    admin.ID,
			"email": admin.Email,
		},
	})
}

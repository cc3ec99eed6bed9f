package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/middleware"
	api "parkingapp/pkg/contracts/api/v1"
)

// AuthHandler handles sign-in, sign-up, password reset and sign-out
type AuthHandler struct {
	service      AuthService
	requests     *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthService, requests *middleware.RequestValidator, errorHandler *apierrors.ErrorHandler) *AuthHandler {
	return &AuthHandler{
		service:      service,
		requests:     requests,
		errorHandler: errorHandler,
	}
}

// Routes returns the auth routes. Sign-out and the session lookup go
// through requireSession; the rest are open.
func (h *AuthHandler) Routes(requireSession func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.Post("/signup", h.Signup)
	r.Post("/password-reset", h.PasswordReset)

	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Post("/logout", h.Logout)
		r.Get("/session", h.Session)
	})
	return r
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := h.requests.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, h.errorHandler, h.service.Login(r.Context(), req.ToDomain()), http.StatusOK)
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if err := h.requests.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, h.errorHandler, h.service.Signup(r.Context(), req.ToDomain()), http.StatusCreated)
}

// PasswordReset handles POST /api/auth/password-reset. The reply is the same
// whether or not the address has an account.
func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req api.PasswordResetRequest
	if err := h.requests.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, h.errorHandler, h.service.RequestPasswordReset(r.Context(), req.Email), http.StatusAccepted)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.errorHandler, h.service.Logout(r.Context()), http.StatusOK)
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.errorHandler, h.service.CurrentSession(r.Context()), http.StatusOK)
}

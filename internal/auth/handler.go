package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatewarden/gatewarden/internal/authz"
	"github.com/gatewarden/gatewarden/internal/platform/httpx"
	"github.com/gatewarden/gatewarden/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	issuer    *TokenIssuer
	verifier  *TokenVerifier
	revoker   *RevocationList
	limiter   *LoginLimiter
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. revoker and limiter may be nil.
func NewHandler(logger *slog.Logger, service *Service, issuer *TokenIssuer, verifier *TokenVerifier, revoker *RevocationList, limiter *LoginLimiter) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		issuer:    issuer,
		verifier:  verifier,
		revoker:   revoker,
		limiter:   limiter,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router. Register and
// login are public through their requiresAuth=false permission rows; logout
// requires a valid token.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u *User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"user": toUserResponse(user)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(r.Context(), req.Email)
		if err != nil {
			h.logger.Error("login limiter", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		if !allowed {
			httpx.RespondError(w, shared.ErrTooManyAttempts)
			return
		}
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.limiter != nil {
			if lerr := h.limiter.RecordFailure(r.Context(), req.Email); lerr != nil {
				h.logger.Warn("record login failure", slog.Any("error", lerr))
			}
		}
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	if h.limiter != nil {
		if err := h.limiter.Reset(r.Context(), req.Email); err != nil {
			h.logger.Warn("reset login limiter", slog.Any("error", err))
		}
	}

	token, err := h.issuer.Issue(user.ID)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Token: token, User: toUserResponse(user)})
}

// handleLogout revokes the presented token's id until the token would have
// expired anyway. The route sits behind the authorization gate, so the token
// has already been verified once by the time we get here.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := authz.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	claims, err := h.verifier.Claims(r.Context(), token)
	if err != nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	if h.revoker != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if err := h.revoker.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			h.logger.Error("revoke token", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func validationDetail(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "fill all required fields"
	}
	names := make([]string, 0, len(verrs))
	for _, fieldErr := range verrs {
		names = append(names, fieldErr.Field())
	}
	return "invalid fields: " + strings.Join(names, ", ")
}

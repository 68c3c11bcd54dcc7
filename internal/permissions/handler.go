package permissions

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatewarden/gatewarden/internal/authz"
	"github.com/gatewarden/gatewarden/internal/platform/httpx"
	"github.com/gatewarden/gatewarden/internal/shared"
)

// Handler manages the permission registry endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	audit     *shared.AuditLogger
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit *shared.AuditLogger) *Handler {
	return &Handler{logger: logger, service: service, audit: audit, validator: validator.New()}
}

// MountRoutes registers permission registry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
	r.Post("/", h.createPermission)
	r.Get("/{id}", h.getPermission)
	r.Put("/{id}", h.updatePermission)
	r.Delete("/{id}", h.deletePermission)
}

type permissionPayload struct {
	Name         string `json:"name" validate:"required"`
	Route        string `json:"route" validate:"required"`
	Method       string `json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE"`
	RequiresAuth *bool  `json:"requiresAuth"`
}

type permissionResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Route        string    `json:"route"`
	Method       string    `json:"method"`
	RequiresAuth bool      `json:"requiresAuth"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toResponse(p Permission) permissionResponse {
	return permissionResponse{
		ID:           p.ID,
		Name:         p.Name,
		Route:        p.Route,
		Method:       p.Method,
		RequiresAuth: p.RequiresAuth,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, toResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	perm, err := h.service.GetPermission(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*perm))
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	requiresAuth := true
	if payload.RequiresAuth != nil {
		requiresAuth = *payload.RequiresAuth
	}
	perm, err := h.service.CreatePermission(r.Context(), payload.Name, payload.Route, payload.Method, requiresAuth)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.recordAudit(r, "permission.create", perm.ID)
	httpx.JSON(w, http.StatusCreated, toResponse(*perm))
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	requiresAuth := true
	if payload.RequiresAuth != nil {
		requiresAuth = *payload.RequiresAuth
	}
	perm, err := h.service.UpdatePermission(r.Context(), id, payload.Name, payload.Route, payload.Method, requiresAuth)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.recordAudit(r, "permission.update", perm.ID)
	httpx.JSON(w, http.StatusOK, toResponse(*perm))
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.recordAudit(r, "permission.delete", id)
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "permission deleted"})
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (permissionPayload, bool) {
	var payload permissionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return payload, false
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "name, route and a valid method are required")
		return payload, false
	}
	return payload, true
}

func (h *Handler) recordAudit(r *http.Request, action string, entityID int64) {
	if h.audit == nil {
		return
	}
	var actorID int64
	if p := authz.PrincipalFromContext(r.Context()); p != nil {
		actorID = p.ID
	}
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "permission",
		EntityID: strconv.FormatInt(entityID, 10),
	}); err != nil {
		h.logger.Warn("record audit log", slog.Any("error", err))
	}
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

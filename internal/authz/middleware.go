package authz

import (
	"log/slog"
	"net/http"

	"github.com/gatewarden/gatewarden/internal/platform/httpx"
	"github.com/gatewarden/gatewarden/internal/shared"
)

// DecisionRecorder observes decision outcomes, typically for metrics.
type DecisionRecorder interface {
	RecordDecision(outcome string)
}

// Middleware guards an HTTP subtree with the authorization engine.
//
// ResolvePattern maps the incoming request to the route pattern permissions
// are registered under (e.g. /api/admin/users/{id}); the app layer builds it
// from the router so the engine never sees a framework request type.
type Middleware struct {
	Engine         *Engine
	Logger         *slog.Logger
	ResolvePattern func(r *http.Request) string
	Recorder       DecisionRecorder
}

// Guard authorizes every request before it reaches the wrapped handler.
func (m Middleware) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pattern := r.URL.Path
		if m.ResolvePattern != nil {
			if p := m.ResolvePattern(r); p != "" {
				pattern = p
			}
		}

		decision, err := m.Engine.Authorize(r.Context(), Input{
			RoutePattern:        pattern,
			Method:              r.Method,
			AuthorizationHeader: r.Header.Get("Authorization"),
		})
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("authorize request",
					slog.String("route", pattern),
					slog.String("method", r.Method),
					slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}

		if m.Recorder != nil {
			m.Recorder.RecordDecision(decision.Outcome.String())
		}

		switch decision.Outcome {
		case OutcomeAllowed:
			if decision.Principal != nil {
				r = r.WithContext(ContextWithPrincipal(r.Context(), decision.Principal))
			}
			next.ServeHTTP(w, r)
		case OutcomeRouteNotRegistered:
			httpx.RespondError(w, shared.ErrRouteNotRegistered)
		case OutcomeUnauthenticated:
			httpx.RespondError(w, shared.ErrUnauthenticated)
		case OutcomeForbidden:
			httpx.RespondError(w, shared.ErrForbidden)
		default:
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
	})
}

package middleware

import (
	"context"
	"net/http"
	"strconv"
)

// Authentication is handled upstream; by the time a request reaches these
// handlers the gateway has validated the session and stamped the tenant and
// actor headers. RequireWorkspace enforces their presence and parks the
// values in the request context.

type contextKey string

const (
	workspaceKey contextKey = "workspace_id"
	userIDKey    contextKey = "user_id"
	usernameKey  contextKey = "username"
)

const (
	headerWorkspace = "X-Workspace-ID"
	headerUserID    = "X-User-ID"
	headerUsername  = "X-Username"
)

// RequireWorkspace rejects requests without a valid workspace header.
func RequireWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workspaceID, err := strconv.ParseInt(r.Header.Get(headerWorkspace), 10, 64)
		if err != nil || workspaceID <= 0 {
			http.Error(w, "missing or invalid workspace", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), workspaceKey, workspaceID)
		if userID, err := strconv.ParseInt(r.Header.Get(headerUserID), 10, 64); err == nil {
			ctx = context.WithValue(ctx, userIDKey, userID)
		}
		if username := r.Header.Get(headerUsername); username != "" {
			ctx = context.WithValue(ctx, usernameKey, username)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WorkspaceID returns the tenant id stamped on the request.
func WorkspaceID(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(workspaceKey).(int64)
	return id, ok
}

// ActorID returns the acting user's id, or 0 when absent.
func ActorID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

// ActorUsername returns the acting user's name, or "unknown" when absent.
func ActorUsername(r *http.Request) string {
	if name, ok := r.Context().Value(usernameKey).(string); ok {
		return name
	}
	return "unknown"
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/dhruvshah/sunbeam/internal/middleware"
	"github.com/dhruvshah/sunbeam/internal/model"
	"github.com/dhruvshah/sunbeam/internal/store"
)

type WorkspaceHandler struct {
	workspaces *store.WorkspaceStore
	users      *store.UserStore
	logger     *slog.Logger
}

func NewWorkspaceHandler(ws *store.WorkspaceStore, us *store.UserStore, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: ws, users: us, logger: logger}
}

// Me returns the acting user and their workspace, for the dashboard header.
func (h *WorkspaceHandler) Me(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.WorkspaceID(r)

	workspace, err := h.workspaces.GetByID(workspaceID)
	if err != nil {
		h.logger.Error("get workspace", "workspace_id", workspaceID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load workspace")
		return
	}
	if workspace == nil {
		writeError(w, http.StatusNotFound, "workspace not found")
		return
	}

	var user *model.User
	if actorID := middleware.ActorID(r); actorID != 0 {
		user, err = h.users.GetByID(actorID, workspaceID)
		if err != nil {
			h.logger.Error("get user", "user_id", actorID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load user")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"workspace": workspace,
		"user":      user,
	})
}

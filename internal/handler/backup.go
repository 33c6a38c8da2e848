package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dhruvshah/sunbeam/internal/archive"
	"github.com/dhruvshah/sunbeam/internal/backup"
	"github.com/dhruvshah/sunbeam/internal/middleware"
	"github.com/dhruvshah/sunbeam/internal/model"
	"github.com/dhruvshah/sunbeam/internal/store"
)

type BackupHandler struct {
	service *backup.Service
	logs    *store.BackupLogStore
	logger  *slog.Logger
}

func NewBackupHandler(svc *backup.Service, logs *store.BackupLogStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{service: svc, logs: logs, logger: logger}
}

func (h *BackupHandler) actor(r *http.Request) backup.Actor {
	return backup.Actor{
		ID:       middleware.ActorID(r),
		Username: middleware.ActorUsername(r),
	}
}

// Download builds the backup archive for a completed customer, archives the
// customer, and streams the zip. An optional passphrase in the request body
// encrypts the archive for off-site storage.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.WorkspaceID(r)

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	arch, err := h.service.DownloadBackup(r.Context(), id, workspaceID, h.actor(r))
	if err != nil {
		h.writeBackupError(w, err, id)
		return
	}

	data := arch.Data
	filename := arch.Filename
	if req.Passphrase != "" {
		data, err = archive.Encrypt(data, req.Passphrase)
		if err != nil {
			h.logger.Error("encrypt archive", "customer_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to encrypt archive")
			return
		}
		filename += ".enc"
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// Cleanup irreversibly deletes an archived customer's documents. The body
// must carry an explicit confirmation; the upstream UI shows the usage
// numbers first.
func (h *BackupHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.WorkspaceID(r)

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Confirm {
		writeError(w, http.StatusBadRequest, "cleanup requires explicit confirmation")
		return
	}

	result, err := h.service.CleanupStorage(r.Context(), id, workspaceID, h.actor(r))
	if err != nil {
		h.writeBackupError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Usage reports document count and total bytes for the cleanup confirmation
// dialog.
func (h *BackupHandler) Usage(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.WorkspaceID(r)

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	usage, err := h.service.StorageUsage(r.Context(), id, workspaceID)
	if err != nil {
		h.writeBackupError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

// History lists the workspace's backup audit log.
func (h *BackupHandler) History(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.WorkspaceID(r)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.logs.ListByWorkspace(workspaceID, limit)
	if err != nil {
		h.logger.Error("list backup logs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backup history")
		return
	}
	if entries == nil {
		entries = []model.BackupLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *BackupHandler) writeBackupError(w http.ResponseWriter, err error, customerID int64) {
	switch {
	case errors.Is(err, backup.ErrNotFound):
		writeError(w, http.StatusNotFound, "customer not found")
	case errors.Is(err, backup.ErrInvalidState):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("backup operation failed", "customer_id", customerID, "error", err)
		writeError(w, http.StatusInternalServerError, "backup operation failed")
	}
}

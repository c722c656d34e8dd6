package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/dukerupert/larder/internal/backup"
	"github.com/dukerupert/larder/internal/model"
)

// BackupManager runs and serves database backups.
type BackupManager interface {
	Enabled() bool
	Status() backup.Status
	List() ([]model.Backup, error)
	RunNow(ctx context.Context) (*model.Backup, error)
	Download(ctx context.Context, id int64) (io.ReadCloser, *model.Backup, error)
}

type BackupHandler struct {
	manager BackupManager
	logger  *slog.Logger
}

func NewBackupHandler(m BackupManager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, logger: logger}
}

type backupListResponse struct {
	Status  backup.Status  `json:"status"`
	Backups []model.Backup `json:"backups"`
}

// List handles GET /api/admin/backups
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	resp := backupListResponse{Status: h.manager.Status(), Backups: []model.Backup{}}
	if h.manager.Enabled() {
		backups, err := h.manager.List()
		if err != nil {
			h.logger.Error("list backups", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list backups")
			return
		}
		if backups != nil {
			resp.Backups = backups
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Run handles POST /api/admin/backups
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	record, err := h.manager.RunNow(r.Context())
	switch {
	case errors.Is(err, backup.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "backups not configured")
		return
	case errors.Is(err, backup.ErrRunning):
		writeError(w, http.StatusConflict, "a backup is already running")
		return
	case err != nil:
		h.logger.Error("run backup", "error", err)
		writeError(w, http.StatusBadGateway, "backup failed")
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// Download handles GET /api/admin/backups/{id}/download
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	body, record, err := h.manager.Download(r.Context(), id)
	switch {
	case errors.Is(err, backup.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "backups not configured")
		return
	case errors.Is(err, backup.ErrNotFound):
		writeError(w, http.StatusNotFound, "backup not found")
		return
	case err != nil:
		h.logger.Error("download backup", "backup_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch backup")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(record.ObjectKey)+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(record.SizeBytes, 10))
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream backup", "backup_id", id, "error", err)
	}
}

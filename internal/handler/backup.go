package handler

import (
	"log/slog"
	"net/http"

	"github.com/leadbox/leadbox/internal/server/middleware"
)

// BackupTrigger starts a backup without waiting for it.
type BackupTrigger interface {
	TriggerBackup()
}

// BackupKeyChecker verifies the pre-shared backup key.
type BackupKeyChecker interface {
	VerifyBackupKey(key string) bool
}

// BackupHandler starts email backups on request.
type BackupHandler struct {
	keys    BackupKeyChecker
	trigger BackupTrigger
	logger  *slog.Logger
}

// NewBackupHandler creates a new BackupHandler.
func NewBackupHandler(keys BackupKeyChecker, trigger BackupTrigger, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{keys: keys, trigger: trigger, logger: logger}
}

// Trigger starts a backup when ?key= matches and returns immediately.
// GET /admin/backup
func (h *BackupHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if !h.keys.VerifyBackupKey(queryString(r, "key")) {
		h.logger.Warn("backup trigger rejected", "remote_addr", r.RemoteAddr, "request_id", middleware.GetRequestID(r.Context()))
		writeText(w, http.StatusForbidden, "Unauthorized")
		return
	}

	h.trigger.TriggerBackup()
	writeText(w, http.StatusOK, "Backup triggered")
}

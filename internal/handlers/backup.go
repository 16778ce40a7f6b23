package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/go-eventdesk/httpx"
	"github.com/diewo77/go-eventdesk/internal/services"
)

type BackupHandler struct {
	responder
	backups *services.BackupService
}

func NewBackupHandler(backups *services.BackupService, log *zap.Logger) *BackupHandler {
	return &BackupHandler{responder: newResponder(log), backups: backups}
}

func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.backups.Export(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="eventdesk-backup-`+doc.ExportedAt.Format("20060102-150405")+`.json"`)
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	var doc services.Backup
	if err := httpx.DecodeJSON(r, &doc); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.backups.Import(r.Context(), caller(r), &doc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("backup imported",
		zap.Uint("user_id", caller(r)),
		zap.String("export_id", doc.ExportID),
		zap.Int("polls", res.Polls),
		zap.Int("venues", res.Venues),
		zap.Any("skipped", res.Skipped))
	httpx.JSON(w, http.StatusOK, res)
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"finmail/internal/http/respond"
	"finmail/internal/mailsync"
)

// SyncScheduler runs mail syncs and reports on them.
type SyncScheduler interface {
	mailsync.Syncer
	Status() mailsync.Status
}

type SyncHandler struct {
	sched  SyncScheduler
	logger *slog.Logger
}

func NewSyncHandler(sched SyncScheduler, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{sched: sched, logger: logger}
}

func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	res, err := h.sched.Sync(r.Context())
	if errors.Is(err, mailsync.ErrSyncInProgress) {
		respond.Error(w, http.StatusConflict, "A sync is already running")
		return
	}
	if err != nil {
		writeStoreError(w, r, h.logger, err, "sync")
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.sched.Status())
}

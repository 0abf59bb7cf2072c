package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"finmail/internal/export"
	"finmail/internal/http/middleware"
)

type ExportHandler struct {
	store  EmailStore
	now    func() time.Time
	logger *slog.Logger
}

func NewExportHandler(store EmailStore, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{store: store, now: time.Now, logger: logger}
}

// CSV streams every email matching the list filters as a CSV download.
// limit and offset are ignored.
func (h *ExportHandler) CSV(w http.ResponseWriter, r *http.Request) {
	f, err := parseEmailFilter(r.URL.Query())
	if err != nil {
		writeStoreError(w, r, h.logger, err, "query")
		return
	}

	emails, err := h.store.ListAllEmails(r.Context(), f)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.CSVFilename(h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteEmailsCSV(w, emails); err != nil {
		// Headers are gone; all that is left is to record the failure.
		h.logger.Error("csv export interrupted",
			"request_id", middleware.GetRequestID(r.Context()),
			"rows", len(emails),
			"error", err,
		)
	}
}

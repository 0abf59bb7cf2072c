package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finmail/internal/db"
	"finmail/internal/http/respond"
)

const defaultVolumeMonths = 6

// DashboardHandler serves the aggregate views: summary cards, charts and
// the contact list.
type DashboardHandler struct {
	store  DashboardStore
	now    func() time.Time
	logger *slog.Logger
}

func NewDashboardHandler(store DashboardStore, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{store: store, now: time.Now, logger: logger}
}

func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.DashboardMetrics(r.Context(), h.now())
	if err != nil {
		writeStoreError(w, r, h.logger, err, "metrics")
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

func (h *DashboardHandler) ExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.ExpensesByCategory(r.Context(), h.now())
	if err != nil {
		writeStoreError(w, r, h.logger, err, "expenses")
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// Volume reports per-month totals for ?months=N trailing months.
func (h *DashboardHandler) Volume(w http.ResponseWriter, r *http.Request) {
	months := defaultVolumeMonths
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > db.MaxVolumeMonths {
			respond.ValidationError(w, "Invalid query data", []db.FieldError{{
				Field:   "months",
				Message: "must be between 1 and " + strconv.Itoa(db.MaxVolumeMonths),
			}})
			return
		}
		months = n
	}

	out, err := h.store.MonthlyVolume(r.Context(), h.now(), months)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "volume")
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) Contacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.store.Contacts(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")))
	if err != nil {
		writeStoreError(w, r, h.logger, err, "contacts")
		return
	}
	respond.JSON(w, http.StatusOK, contacts)
}

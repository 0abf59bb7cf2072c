package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"finmail/internal/db"
	"finmail/internal/http/middleware"
	"finmail/internal/http/respond"
	"finmail/internal/models"
	"finmail/internal/security"
)

// EmailStore is the storage the email, attachment and export handlers use.
type EmailStore interface {
	ListEmails(ctx context.Context, f models.EmailFilter) ([]models.EmailWithLabels, error)
	ListAllEmails(ctx context.Context, f models.EmailFilter) ([]models.EmailWithLabels, error)
	GetEmail(ctx context.Context, id string) (*models.EmailWithLabels, error)
	CreateEmail(ctx context.Context, in models.EmailInput) (*models.Email, error)
	UpdateEmail(ctx context.Context, id string, p models.EmailPatch) (*models.Email, error)
	DeleteEmail(ctx context.Context, id string) error
	MarkExported(ctx context.Context, id, fileID, fileURL string) (*models.Email, error)
	AddEmailLabel(ctx context.Context, emailID string, labelID int64) error
	RemoveEmailLabel(ctx context.Context, emailID string, labelID int64) error
	CreateAttachment(ctx context.Context, emailID string, in models.AttachmentInput) (*models.Attachment, error)
	ListAttachments(ctx context.Context, emailID string) ([]models.Attachment, error)
}

type LabelStore interface {
	ListLabels(ctx context.Context) ([]models.Label, error)
	CreateLabel(ctx context.Context, in models.LabelInput) (*models.Label, error)
	UpdateLabel(ctx context.Context, id int64, p models.LabelPatch) (*models.Label, error)
	DeleteLabel(ctx context.Context, id int64) error
}

// DashboardStore serves the read-only aggregate views.
type DashboardStore interface {
	DashboardMetrics(ctx context.Context, now time.Time) (*models.DashboardMetrics, error)
	ExpensesByCategory(ctx context.Context, now time.Time) ([]models.CategoryExpense, error)
	MonthlyVolume(ctx context.Context, now time.Time, months int) ([]models.MonthlyVolume, error)
	Contacts(ctx context.Context, search string) ([]models.Contact, error)
}

// writeStoreError maps storage and auth errors onto HTTP responses. what
// names the resource in not-found and validation messages.
func writeStoreError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, what string) {
	var verr *db.ValidationError
	switch {
	case errors.Is(err, db.ErrNotFound):
		respond.Error(w, http.StatusNotFound, strings.ToUpper(what[:1])+what[1:]+" not found")
	case errors.As(err, &verr):
		respond.ValidationError(w, "Invalid "+what+" data", verr.Fields)
	case errors.Is(err, security.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, security.ErrUnauthenticated):
		respond.Error(w, http.StatusUnauthorized, "Authentication required")
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

// pathInt64 reads a numeric route variable. The router constrains these
// to digits, so only overflow can fail here.
func pathInt64(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil
}

// Pinger is satisfied by the database handle.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

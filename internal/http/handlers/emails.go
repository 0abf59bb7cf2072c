package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"finmail/internal/export"
	"finmail/internal/http/respond"
	"finmail/internal/models"
)

type EmailHandler struct {
	store    EmailStore
	exporter export.DocumentExporter
	logger   *slog.Logger
}

func NewEmailHandler(store EmailStore, exporter export.DocumentExporter, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{
		store:    store,
		exporter: exporter,
		logger:   logger,
	}
}

func (h *EmailHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseEmailFilter(r.URL.Query())
	if err != nil {
		writeStoreError(w, r, h.logger, err, "query")
		return
	}

	emails, err := h.store.ListEmails(r.Context(), f)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}
	respond.JSON(w, http.StatusOK, emails)
}

func (h *EmailHandler) Get(w http.ResponseWriter, r *http.Request) {
	email, err := h.store.GetEmail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}
	respond.JSON(w, http.StatusOK, email)
}

func (h *EmailHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.EmailInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}
	in.Subject = plainText(in.Subject)
	in.Snippet = plainText(in.Snippet)
	in.SenderName = plainText(in.SenderName)
	in.Category = plainText(in.Category)
	in.Status = plainText(in.Status)
	if err := validateInput(&in); err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}

	email, err := h.store.CreateEmail(r.Context(), in)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}
	respond.JSON(w, http.StatusCreated, email)
}

// Update applies a partial update; absent fields keep their values.
func (h *EmailHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p models.EmailPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}
	plainTextPtr(p.Subject)
	plainTextPtr(p.Snippet)
	plainTextPtr(p.SenderName)
	plainTextPtr(p.Category)
	plainTextPtr(p.Status)
	if err := validateInput(&p); err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}

	email, err := h.store.UpdateEmail(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}
	respond.JSON(w, http.StatusOK, email)
}

func (h *EmailHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteEmail(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportPDF renders the email through the document exporter and records
// the resulting file on the email.
func (h *EmailHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	email, err := h.store.GetEmail(ctx, id)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}

	ref, err := h.exporter.ExportEmail(ctx, email.Email)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}
	if _, err := h.store.MarkExported(ctx, id, ref.FileID, ref.FileURL); err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}

	h.logger.Info("email exported", "email_id", id, "file_id", ref.FileID)
	respond.JSON(w, http.StatusOK, ref)
}

// AddLabel links the label named in the body and returns the email.
func (h *EmailHandler) AddLabel(w http.ResponseWriter, r *http.Request) {
	var in models.EmailLabelInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeStoreError(w, r, h.logger, err, "label")
		return
	}
	if err := validateInput(&in); err != nil {
		writeStoreError(w, r, h.logger, err, "label")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.store.AddEmailLabel(r.Context(), id, in.LabelID); err != nil {
		writeStoreError(w, r, h.logger, err, "email or label")
		return
	}
	email, err := h.store.GetEmail(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}
	respond.JSON(w, http.StatusOK, email)
}

func (h *EmailHandler) RemoveLabel(w http.ResponseWriter, r *http.Request) {
	labelID, ok := pathInt64(r, "labelId")
	if !ok {
		respond.Error(w, http.StatusNotFound, "Label not found")
		return
	}
	if err := h.store.RemoveEmailLabel(r.Context(), mux.Vars(r)["id"], labelID); err != nil {
		writeStoreError(w, r, h.logger, err, "email or label")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EmailHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	attachments, err := h.store.ListAttachments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}
	respond.JSON(w, http.StatusOK, attachments)
}

func (h *EmailHandler) CreateAttachment(w http.ResponseWriter, r *http.Request) {
	var in models.AttachmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeStoreError(w, r, h.logger, err, "attachment")
		return
	}
	in.Filename = plainText(in.Filename)
	if err := validateInput(&in); err != nil {
		writeStoreError(w, r, h.logger, err, "attachment")
		return
	}

	a, err := h.store.CreateAttachment(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "email")
		return
	}
	respond.JSON(w, http.StatusCreated, a)
}

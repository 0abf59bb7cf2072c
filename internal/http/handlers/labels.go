package handlers

import (
	"log/slog"
	"net/http"

	"finmail/internal/http/respond"
	"finmail/internal/models"
)

type LabelHandler struct {
	store  LabelStore
	logger *slog.Logger
}

func NewLabelHandler(store LabelStore, logger *slog.Logger) *LabelHandler {
	return &LabelHandler{store: store, logger: logger}
}

func (h *LabelHandler) List(w http.ResponseWriter, r *http.Request) {
	labels, err := h.store.ListLabels(r.Context())
	if err != nil {
		writeStoreError(w, r, h.logger, err, "label")
		return
	}
	respond.JSON(w, http.StatusOK, labels)
}

func (h *LabelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.LabelInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeStoreError(w, r, h.logger, err, "label")
		return
	}
	in.Name = plainText(in.Name)
	in.Description = plainText(in.Description)
	if err := validateInput(&in); err != nil {
		writeStoreError(w, r, h.logger, err, "label")
		return
	}

	label, err := h.store.CreateLabel(r.Context(), in)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "label")
		return
	}
	respond.JSON(w, http.StatusCreated, label)
}

func (h *LabelHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		respond.Error(w, http.StatusNotFound, "Label not found")
		return
	}

	var p models.LabelPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeStoreError(w, r, h.logger, err, "label")
		return
	}
	plainTextPtr(p.Name)
	plainTextPtr(p.Description)
	if err := validateInput(&p); err != nil {
		writeStoreError(w, r, h.logger, err, "label")
		return
	}

	label, err := h.store.UpdateLabel(r.Context(), id, p)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "label")
		return
	}
	respond.JSON(w, http.StatusOK, label)
}

func (h *LabelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		respond.Error(w, http.StatusNotFound, "Label not found")
		return
	}
	if err := h.store.DeleteLabel(r.Context(), id); err != nil {
		writeStoreError(w, r, h.logger, err, "label")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

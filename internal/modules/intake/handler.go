package intake

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes intake distribution HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/intake", func(r chi.Router) {
		r.Post("/validate", h.validate)
		r.Post("/commit", h.commit)
	})
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var req DistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.service.Validate(r.Context(), req); err != nil {
		h.writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	var req DistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.service.Commit(r.Context(), req); err != nil {
		h.writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "distribution committed"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var lineErr *LineError
	switch {
	case errors.As(err, &lineErr):
		respond(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"valid":       false,
			"status":      lineErr.Status,
			"product_id":  lineErr.ProductID,
			"distributed": lineErr.Distributed,
			"required":    lineErr.Required,
			"error":       lineErr.Error(),
		})
	case errors.Is(err, ErrNoShopsConfigured),
		errors.Is(err, ErrNegativeAllocation),
		errors.Is(err, ErrUnknownShop),
		errors.Is(err, ErrUnknownLineItem),
		errors.Is(err, ErrNonPositiveRequired):
		respond(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		})
	default:
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

package stock

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes stock level HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/stock", func(r chi.Router) {
		r.Get("/shops/{shop_id}", h.shopLevels)
		r.Get("/shops/{shop_id}/products/{product_id}", h.productLevel)
	})
}

func (h *Handler) shopLevels(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shop_id")
	items, err := h.service.ShopLevels(r.Context(), shopID)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if items == nil {
		items = []*InventoryItem{}
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) productLevel(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shop_id")
	productID := chi.URLParam(r, "product_id")
	item, err := h.service.ProductLevel(r.Context(), shopID, productID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrItemNotFound) {
			status = http.StatusNotFound
		}
		respond(w, status, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, item)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

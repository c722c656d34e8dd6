package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

type PantryHandler struct {
	pantry *store.PantryStore
	logger *slog.Logger
}

func NewPantryHandler(pantry *store.PantryStore, logger *slog.Logger) *PantryHandler {
	return &PantryHandler{pantry: pantry, logger: logger}
}

func (h *PantryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.pantry.List(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list pantry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pantry")
		return
	}
	if items == nil {
		items = []model.PantryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

type pantryToggleRequest struct {
	Ingredient string `json:"ingredient"`
}

// Toggle marks the ingredient as always on hand, or unmarks it.
func (h *PantryHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req pantryToggleRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	key := grocery.Normalize(req.Ingredient)
	if strings.TrimSpace(key) == "" {
		writeError(w, http.StatusBadRequest, "ingredient is required")
		return
	}

	inPantry, err := h.pantry.Toggle(auth.HouseholdID(r.Context()), req.Ingredient)
	if err != nil {
		h.logger.Error("toggle pantry", "ingredient", key, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update pantry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ingredient": key,
		"in_pantry":  inPantry,
	})
}

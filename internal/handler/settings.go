package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/store"
)

type SettingsHandler struct {
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewSettingsHandler(settings *store.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

type shoppingSettings struct {
	UnitSystem  grocery.System `json:"unit_system"`
	ShowSources bool           `json:"show_sources"`
	StoreMode   bool           `json:"store_mode"`
}

func (h *SettingsHandler) loadShopping(householdID int64) (shoppingSettings, error) {
	var s shoppingSettings
	var err error
	if s.UnitSystem, err = h.settings.UnitSystem(householdID); err != nil {
		return s, err
	}
	if s.ShowSources, err = h.settings.ShowSources(householdID); err != nil {
		return s, err
	}
	s.StoreMode, err = h.settings.StoreMode(householdID)
	return s, err
}

func (h *SettingsHandler) GetShopping(w http.ResponseWriter, r *http.Request) {
	s, err := h.loadShopping(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("get shopping settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type shoppingSettingsRequest struct {
	UnitSystem  *string `json:"unit_system"`
	ShowSources *bool   `json:"show_sources"`
	StoreMode   *bool   `json:"store_mode"`
}

// UpdateShopping sets whichever shopping preferences the body names.
func (h *SettingsHandler) UpdateShopping(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())

	var req shoppingSettingsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	updates := make(map[string]string)
	if req.UnitSystem != nil {
		sys, ok := grocery.ParseSystem(*req.UnitSystem)
		if !ok {
			writeError(w, http.StatusBadRequest, "unit_system must be metric or imperial")
			return
		}
		updates[store.KeyUnitSystem] = string(sys)
	}
	if req.ShowSources != nil {
		updates[store.KeyShowSources] = strconv.FormatBool(*req.ShowSources)
	}
	if req.StoreMode != nil {
		updates[store.KeyStoreMode] = strconv.FormatBool(*req.StoreMode)
	}

	for key, value := range updates {
		if err := h.settings.Set(hh, key, value); err != nil {
			h.logger.Error("update setting", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update settings")
			return
		}
	}

	s, err := h.loadShopping(hh)
	if err != nil {
		h.logger.Error("get shopping settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type categoryOrderResponse struct {
	Order  []grocery.Category `json:"order"`
	Custom bool               `json:"custom"`
}

func (h *SettingsHandler) writeOrder(w http.ResponseWriter, householdID int64) {
	stored, err := h.settings.CategoryOrder(householdID)
	if err != nil {
		h.logger.Error("get category order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get category order")
		return
	}
	writeJSON(w, http.StatusOK, categoryOrderResponse{
		Order:  grocery.EffectiveOrder(stored),
		Custom: stored != nil,
	})
}

func (h *SettingsHandler) GetCategoryOrder(w http.ResponseWriter, r *http.Request) {
	h.writeOrder(w, auth.HouseholdID(r.Context()))
}

type categoryOrderRequest struct {
	Order []grocery.Category `json:"order"`
}

// UpdateCategoryOrder replaces the stored order wholesale.
func (h *SettingsHandler) UpdateCategoryOrder(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())

	var req categoryOrderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Order == nil {
		writeError(w, http.StatusBadRequest, "order is required")
		return
	}

	if err := h.settings.SetCategoryOrder(hh, req.Order); err != nil {
		if errors.Is(err, store.ErrInvalidOrder) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("set category order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set category order")
		return
	}
	h.writeOrder(w, hh)
}

type moveCategoryRequest struct {
	Category    string `json:"category"`
	TargetIndex *int   `json:"target_index"`
	Before      string `json:"before"`
	After       string `json:"after"`
}

// MoveCategory moves one category within the effective order, either to
// target_index or next to another category named by before or after.
func (h *SettingsHandler) MoveCategory(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())

	var req moveCategoryRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	category, ok := grocery.ParseCategory(req.Category)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	stored, err := h.settings.CategoryOrder(hh)
	if err != nil {
		h.logger.Error("get category order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get category order")
		return
	}
	current := grocery.EffectiveOrder(stored)

	var next []grocery.Category
	switch {
	case req.TargetIndex != nil:
		next = grocery.Reorder(current, category, *req.TargetIndex)
	case req.Before != "":
		target, ok := grocery.ParseCategory(req.Before)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown before category")
			return
		}
		next = grocery.MoveBefore(current, category, target)
	case req.After != "":
		target, ok := grocery.ParseCategory(req.After)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown after category")
			return
		}
		next = grocery.MoveAfter(current, category, target)
	default:
		writeError(w, http.StatusBadRequest, "target_index, before or after is required")
		return
	}

	if err := h.settings.SetCategoryOrder(hh, next); err != nil {
		h.logger.Error("set category order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set category order")
		return
	}
	h.writeOrder(w, hh)
}

// ResetCategoryOrder drops the override so store-flow order applies again.
func (h *SettingsHandler) ResetCategoryOrder(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())
	if err := h.settings.ResetCategoryOrder(hh); err != nil {
		h.logger.Error("reset category order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset category order")
		return
	}
	h.writeOrder(w, hh)
}

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/barcode"
	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/shoplist"
	"github.com/dukerupert/larder/internal/store"
)

const dateLayout = "2006-01-02"

// ProductLookup resolves a scanned barcode to a product.
type ProductLookup interface {
	Lookup(ctx context.Context, code string) (*barcode.Product, error)
}

type ShoppingHandler struct {
	items    *store.ShoppingStore
	pantry   *store.PantryStore
	settings *store.SettingsStore
	products ProductLookup
	hub      Broadcaster
	logger   *slog.Logger
}

func NewShoppingHandler(items *store.ShoppingStore, pantry *store.PantryStore, settings *store.SettingsStore, products ProductLookup, hub Broadcaster, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{
		items:    items,
		pantry:   pantry,
		settings: settings,
		products: products,
		hub:      hub,
		logger:   logger,
	}
}

type shoppingItemRequest struct {
	Ingredient string `json:"ingredient"`
	Quantity   string `json:"quantity"`
	Unit       string `json:"unit"`
	Category   string `json:"category"`
}

func (h *ShoppingHandler) broadcast(householdID int64, typ shoplist.EventType, items ...model.ShoppingListItem) {
	for _, item := range items {
		h.hub.Broadcast(householdID, shoplist.Event{Type: typ, Item: item})
	}
}

func (h *ShoppingHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())
	items, err := h.items.ListItems(hh)
	if err != nil {
		h.logger.Error("list shopping items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.ShoppingListItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// View returns the grouped, ordered and decorated list. Query parameters:
// store_mode=1 (defaults to the store_mode setting), focus=<category>,
// expand=<category> (repeatable) and hide_pantry=1.
func (h *ShoppingHandler) View(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())
	q := r.URL.Query()

	items, err := h.items.ListItems(hh)
	if err != nil {
		h.logger.Error("list shopping items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	opts, err := h.viewOptions(hh)
	if err != nil {
		h.logger.Error("load view options", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	opts.HidePantry = isTruthy(q.Get("hide_pantry"))

	active := opts.StoreMode.Active
	if q.Has("store_mode") {
		active = isTruthy(q.Get("store_mode"))
	}
	if active {
		sm := shoplist.StoreMode{Active: true}
		if c, ok := grocery.ParseCategory(q.Get("focus")); ok {
			sm.Focused = c
		}
		for _, raw := range q["expand"] {
			if c, ok := grocery.ParseCategory(raw); ok {
				sm = sm.Expand(c)
			}
		}
		opts.StoreMode = sm
	} else {
		opts.StoreMode = shoplist.StoreMode{}
	}

	writeJSON(w, http.StatusOK, shoplist.BuildView(items, opts))
}

func (h *ShoppingHandler) viewOptions(householdID int64) (shoplist.Options, error) {
	var opts shoplist.Options
	var err error
	if opts.CategoryOrder, err = h.settings.CategoryOrder(householdID); err != nil {
		return opts, err
	}
	if opts.Pantry, err = h.pantry.Keys(householdID); err != nil {
		return opts, err
	}
	if opts.UnitSystem, err = h.settings.UnitSystem(householdID); err != nil {
		return opts, err
	}
	if opts.ShowSources, err = h.settings.ShowSources(householdID); err != nil {
		return opts, err
	}
	if opts.StoreMode.Active, err = h.settings.StoreMode(householdID); err != nil {
		return opts, err
	}
	return opts, nil
}

func (h *ShoppingHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())

	var req shoppingItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Ingredient = strings.TrimSpace(req.Ingredient)
	if req.Ingredient == "" {
		writeError(w, http.StatusBadRequest, "ingredient is required")
		return
	}

	item, err := h.items.CreateItem(hh, req.Ingredient, strings.TrimSpace(req.Quantity), strings.TrimSpace(req.Unit), grocery.Category(req.Category))
	if err != nil {
		h.logger.Error("create shopping item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.broadcast(hh, shoplist.EventInsert, *item)
	writeJSON(w, http.StatusCreated, item)
}

type barcodeRequest struct {
	Barcode  string `json:"barcode"`
	Quantity string `json:"quantity"`
}

// AddBarcode looks up a scanned product and adds it as an item.
func (h *ShoppingHandler) AddBarcode(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())

	var req barcodeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	product, err := h.products.Lookup(r.Context(), req.Barcode)
	switch {
	case errors.Is(err, barcode.ErrInvalidBarcode):
		writeError(w, http.StatusBadRequest, "invalid barcode")
		return
	case errors.Is(err, barcode.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
		return
	case err != nil:
		h.logger.Error("barcode lookup", "barcode", req.Barcode, "error", err)
		writeError(w, http.StatusBadGateway, "product lookup failed")
		return
	}

	quantity := strings.TrimSpace(req.Quantity)
	if quantity == "" {
		quantity = product.Quantity
	}
	item, err := h.items.CreateItem(hh, product.Name, quantity, "", product.Category)
	if err != nil {
		h.logger.Error("create shopping item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.broadcast(hh, shoplist.EventInsert, *item)
	writeJSON(w, http.StatusCreated, item)
}

type generateRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Generate adds one item per ingredient of every recipe planned between from
// and to inclusive. Ingredients already on the list for the same recipe are
// skipped.
func (h *ShoppingHandler) Generate(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())

	var req generateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	from, err := time.Parse(dateLayout, req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse(dateLayout, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	items, err := h.items.GenerateFromMealPlan(hh, req.From, req.To)
	if err != nil {
		h.logger.Error("generate shopping list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate list")
		return
	}

	h.broadcast(hh, shoplist.EventInsert, items...)
	writeJSON(w, http.StatusCreated, items)
}

func (h *ShoppingHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.items.GetItem(hh, id)
	if err != nil {
		h.logger.Error("get shopping item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	var req shoppingItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Ingredient = strings.TrimSpace(req.Ingredient)
	if req.Ingredient == "" {
		writeError(w, http.StatusBadRequest, "ingredient is required")
		return
	}

	category := grocery.Category(req.Category)
	if req.Category == "" && strings.EqualFold(req.Ingredient, existing.Ingredient) {
		category = existing.Category
	}

	item, err := h.items.UpdateItem(hh, id, req.Ingredient, strings.TrimSpace(req.Quantity), strings.TrimSpace(req.Unit), category)
	if err != nil {
		h.logger.Error("update shopping item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.broadcast(hh, shoplist.EventUpdate, *item)
	writeJSON(w, http.StatusOK, item)
}

type checkRequest struct {
	Checked *bool `json:"checked"`
}

// Check sets the checked flag from the body, or toggles it when the body
// is empty.
func (h *ShoppingHandler) Check(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req checkRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var item *model.ShoppingListItem
	if req.Checked != nil {
		item, err = h.items.SetChecked(hh, id, *req.Checked)
	} else {
		item, err = h.items.ToggleChecked(hh, id)
	}
	if err != nil {
		h.logger.Error("check shopping item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.broadcast(hh, shoplist.EventUpdate, *item)
	writeJSON(w, http.StatusOK, item)
}

type substituteRequest struct {
	Ingredient string `json:"ingredient"`
}

// Substitute swaps the item's ingredient, remembering the first original.
func (h *ShoppingHandler) Substitute(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req substituteRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Ingredient = strings.TrimSpace(req.Ingredient)
	if req.Ingredient == "" {
		writeError(w, http.StatusBadRequest, "ingredient is required")
		return
	}

	item, err := h.items.Substitute(hh, id, req.Ingredient)
	if err != nil {
		h.logger.Error("substitute shopping item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to substitute item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.broadcast(hh, shoplist.EventUpdate, *item)
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.items.GetItem(hh, id)
	if err != nil {
		h.logger.Error("get shopping item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := h.items.DeleteItem(hh, id); err != nil {
		h.logger.Error("delete shopping item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.broadcast(hh, shoplist.EventDelete, *existing)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShoppingHandler) ClearChecked(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())
	h.writeBulkDelete(w, hh, "clear checked", func() ([]model.ShoppingListItem, error) {
		return h.items.ClearChecked(hh)
	})
}

func (h *ShoppingHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())
	h.writeBulkDelete(w, hh, "clear list", func() ([]model.ShoppingListItem, error) {
		return h.items.ClearAll(hh)
	})
}

// DeleteRecipe removes every item generated from the recipe.
func (h *ShoppingHandler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())
	recipeID, err := parsePathInt(r, "recipe_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipe_id")
		return
	}
	h.writeBulkDelete(w, hh, "delete recipe items", func() ([]model.ShoppingListItem, error) {
		return h.items.DeleteByRecipe(hh, recipeID)
	})
}

func (h *ShoppingHandler) writeBulkDelete(w http.ResponseWriter, householdID int64, op string, del func() ([]model.ShoppingListItem, error)) {
	deleted, err := del()
	if err != nil {
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete items")
		return
	}
	h.broadcast(householdID, shoplist.EventDelete, deleted...)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": len(deleted)})
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

package shoplist

import (
	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/model"
)

// Options are the inputs besides the items that shape a View.
type Options struct {
	// CategoryOrder is the stored override; nil means store-flow order.
	CategoryOrder []grocery.Category
	// Pantry holds normalized ingredient keys the household always has.
	Pantry map[string]bool
	// UnitSystem converts display quantities; empty leaves them as stored.
	UnitSystem  grocery.System
	ShowSources bool
	// HidePantry omits pantry items instead of flagging them.
	HidePantry bool
	StoreMode  StoreMode
}

// ItemView is an item decorated for display. The embedded item is a copy.
type ItemView struct {
	model.ShoppingListItem
	DisplayQuantity string `json:"display_quantity"`
	IsInPantry      bool   `json:"is_in_pantry"`
	Source          string `json:"source,omitempty"`
}

type GroupView struct {
	Category grocery.Category `json:"category"`
	Items    []ItemView       `json:"items"`
	Counts   Counts           `json:"counts"`
	Complete bool             `json:"complete"`
	Expanded bool             `json:"expanded"`
}

// View is the render-ready shopping list.
type View struct {
	Order      []grocery.Category `json:"order"`
	Groups     []GroupView        `json:"groups"`
	Remaining  []grocery.Category `json:"remaining"`
	Counts     Counts             `json:"counts"`
	Percentage int                `json:"percentage"`
	StoreMode  StoreMode          `json:"store_mode"`
}

// BuildView groups, orders and decorates items. It is pure: items and opts
// are not modified.
func BuildView(items []model.ShoppingListItem, opts Options) View {
	order := grocery.EffectiveOrder(opts.CategoryOrder)

	visible := make([]ItemView, 0, len(items))
	for _, item := range items {
		iv := ItemView{ShoppingListItem: item}
		iv.Category = ResolveCategory(item)
		iv.IsInPantry = len(opts.Pantry) > 0 && opts.Pantry[grocery.Normalize(item.Ingredient)]
		if iv.IsInPantry && opts.HidePantry {
			continue
		}
		iv.DisplayQuantity = displayQuantity(item, opts.UnitSystem)
		if opts.ShowSources && item.RecipeTitle != nil {
			iv.Source = *item.RecipeTitle
		}
		visible = append(visible, iv)
	}

	byCat := make(map[grocery.Category][]ItemView)
	for _, iv := range visible {
		byCat[iv.Category] = append(byCat[iv.Category], iv)
	}

	v := View{Order: order, Groups: []GroupView{}, Remaining: []grocery.Category{}}
	for _, c := range order {
		bucket := byCat[c]
		if len(bucket) == 0 {
			continue
		}
		g := GroupView{Category: c, Items: bucket}
		for _, iv := range bucket {
			g.Counts.add(iv.ShoppingListItem)
			v.Counts.add(iv.ShoppingListItem)
		}
		g.Complete = g.Counts.Complete()
		if !g.Complete {
			v.Remaining = append(v.Remaining, c)
		}
		v.Groups = append(v.Groups, g)
	}
	v.Percentage = v.Counts.Percentage()

	v.StoreMode = opts.StoreMode.Advance(order, v.Remaining)
	for i := range v.Groups {
		v.Groups[i].Expanded = v.StoreMode.IsExpanded(v.Groups[i].Category)
	}
	return v
}

func displayQuantity(item model.ShoppingListItem, sys grocery.System) string {
	if sys == "" {
		return joinQuantity(item.Quantity, item.Unit)
	}
	return grocery.ConvertItem(item.Quantity, item.Unit, sys)
}

func joinQuantity(quantity, unit string) string {
	switch {
	case quantity == "":
		return unit
	case unit == "":
		return quantity
	}
	return quantity + " " + unit
}

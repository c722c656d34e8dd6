// Package shoplist turns a flat list of shopping-list items into the grouped,
// ordered view a shopper works through.
package shoplist

import (
	"math"
	"strings"

	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/model"
)

// ResolveCategory returns the category an item is grouped under. Stored
// categories are not trusted: an empty category is inferred from the
// ingredient and anything outside the enumeration becomes Other.
func ResolveCategory(item model.ShoppingListItem) grocery.Category {
	if item.Category.Valid() {
		return item.Category
	}
	if strings.TrimSpace(string(item.Category)) == "" {
		return grocery.Categorize(item.Ingredient)
	}
	if c, ok := grocery.ParseCategory(string(item.Category)); ok {
		return c
	}
	return grocery.Other
}

// GroupByCategory buckets items by resolved category, preserving input order
// within each bucket. The input is not modified.
func GroupByCategory(items []model.ShoppingListItem) map[grocery.Category][]model.ShoppingListItem {
	groups := make(map[grocery.Category][]model.ShoppingListItem)
	for _, item := range items {
		c := ResolveCategory(item)
		groups[c] = append(groups[c], item)
	}
	return groups
}

// Group is one non-empty category bucket.
type Group struct {
	Category grocery.Category         `json:"category"`
	Items    []model.ShoppingListItem `json:"items"`
}

// Groups returns the non-empty buckets in the effective order for the stored
// override.
func Groups(items []model.ShoppingListItem, stored []grocery.Category) []Group {
	byCat := GroupByCategory(items)
	var out []Group
	for _, c := range grocery.EffectiveOrder(stored) {
		if bucket := byCat[c]; len(bucket) > 0 {
			out = append(out, Group{Category: c, Items: bucket})
		}
	}
	return out
}

// Counts tallies checked items against the total.
type Counts struct {
	Checked int `json:"checked"`
	Total   int `json:"total"`
}

// Percentage is the rounded share of checked items, 0 for an empty list.
func (c Counts) Percentage() int {
	if c.Total == 0 {
		return 0
	}
	return int(math.Round(float64(c.Checked) / float64(c.Total) * 100))
}

// Complete reports whether there is at least one item and all are checked.
func (c Counts) Complete() bool {
	return c.Total > 0 && c.Checked == c.Total
}

func (c Counts) Unchecked() int {
	return c.Total - c.Checked
}

func (c *Counts) add(item model.ShoppingListItem) {
	c.Total++
	if item.IsChecked {
		c.Checked++
	}
}

func CountByCategory(items []model.ShoppingListItem) map[grocery.Category]Counts {
	counts := make(map[grocery.Category]Counts)
	for _, item := range items {
		c := ResolveCategory(item)
		n := counts[c]
		n.add(item)
		counts[c] = n
	}
	return counts
}

func CountAll(items []model.ShoppingListItem) Counts {
	var n Counts
	for _, item := range items {
		n.add(item)
	}
	return n
}

package grocery

import "strings"

// Category is one of a fixed set of grocery store sections.
type Category string

const (
	Produce      Category = "Produce"
	MeatSeafood  Category = "Meat & Seafood"
	Dairy        Category = "Dairy"
	Bakery       Category = "Bakery"
	Pantry       Category = "Pantry"
	Frozen       Category = "Frozen"
	Beverages    Category = "Beverages"
	Snacks       Category = "Snacks"
	Household    Category = "Household"
	PersonalCare Category = "Personal Care"
	Other        Category = "Other"
)

// storeFlow approximates the walk through a typical grocery store.
var storeFlow = []Category{
	Produce,
	MeatSeafood,
	Dairy,
	Bakery,
	Pantry,
	Frozen,
	Beverages,
	Snacks,
	Household,
	PersonalCare,
	Other,
}

// Valid reports whether c is a member of the category enumeration.
func (c Category) Valid() bool {
	for _, cat := range storeFlow {
		if c == cat {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory matches s against the enumeration, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, cat := range storeFlow {
		if strings.EqualFold(s, string(cat)) {
			return cat, true
		}
	}
	return "", false
}

// DefaultOrder returns the store-flow category sequence. The returned slice is
// a fresh copy and may be modified by the caller.
func DefaultOrder() []Category {
	out := make([]Category, len(storeFlow))
	copy(out, storeFlow)
	return out
}

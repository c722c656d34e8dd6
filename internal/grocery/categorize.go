package grocery

import (
	"sort"
	"strings"
	"unicode"
)

// Categorize returns the grocery category for the given ingredient name.
// It performs case-insensitive matching: exact match first, then keyword match.
// Keywords only match at the start of a word and longer keywords are tried
// first. Falls back to Other if nothing matches.
func Categorize(ingredient string) Category {
	name := strings.ToLower(strings.Join(strings.Fields(ingredient), " "))
	if name == "" {
		return Other
	}

	// Phase 1: exact match
	if cat, ok := exactMatch[name]; ok {
		return cat
	}

	// Phase 2: keyword match
	for _, entry := range keywordMatches {
		if containsWordPrefix(name, entry.keyword) {
			return entry.category
		}
	}

	return Other
}

// containsWordPrefix reports whether keyword occurs in name starting at a word
// boundary. The keyword may run into a longer word ("egg" matches "eggs").
func containsWordPrefix(name, keyword string) bool {
	for offset := 0; offset <= len(name)-len(keyword); {
		i := strings.Index(name[offset:], keyword)
		if i < 0 {
			return false
		}
		i += offset
		if i == 0 || !isWordRune(rune(name[i-1])) {
			return true
		}
		offset = i + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

var exactMatch = map[string]Category{
	// Produce
	"apple":        Produce,
	"apples":       Produce,
	"banana":       Produce,
	"bananas":      Produce,
	"orange":       Produce,
	"oranges":      Produce,
	"lemon":        Produce,
	"lemons":       Produce,
	"lime":         Produce,
	"limes":        Produce,
	"avocado":      Produce,
	"avocados":     Produce,
	"tomato":       Produce,
	"tomatoes":     Produce,
	"potato":       Produce,
	"potatoes":     Produce,
	"onion":        Produce,
	"onions":       Produce,
	"garlic":       Produce,
	"lettuce":      Produce,
	"spinach":      Produce,
	"kale":         Produce,
	"broccoli":     Produce,
	"carrots":      Produce,
	"celery":       Produce,
	"cucumber":     Produce,
	"cucumbers":    Produce,
	"peppers":      Produce,
	"mushrooms":    Produce,
	"corn":         Produce,
	"grapes":       Produce,
	"strawberries": Produce,
	"blueberries":  Produce,
	"raspberries":  Produce,
	"watermelon":   Produce,
	"pineapple":    Produce,
	"mango":        Produce,
	"peach":        Produce,
	"peaches":      Produce,
	"pear":         Produce,
	"pears":        Produce,
	"cilantro":     Produce,
	"basil":        Produce,
	"parsley":      Produce,
	"ginger":       Produce,
	"jalapeño":     Produce,
	"jalapeno":     Produce,
	"zucchini":     Produce,
	"asparagus":    Produce,
	"green beans":  Produce,
	"eggplant":     Produce,
	"shallot":      Produce,
	"shallots":     Produce,
	"scallions":    Produce,

	// Dairy
	"milk":           Dairy,
	"eggs":           Dairy,
	"butter":         Dairy,
	"cheese":         Dairy,
	"yogurt":         Dairy,
	"cream cheese":   Dairy,
	"sour cream":     Dairy,
	"heavy cream":    Dairy,
	"half and half":  Dairy,
	"cottage cheese": Dairy,
	"parmesan":       Dairy,
	"mozzarella":     Dairy,

	// Meat & Seafood
	"chicken":       MeatSeafood,
	"beef":          MeatSeafood,
	"pork":          MeatSeafood,
	"turkey":        MeatSeafood,
	"bacon":         MeatSeafood,
	"sausage":       MeatSeafood,
	"ham":           MeatSeafood,
	"steak":         MeatSeafood,
	"salmon":        MeatSeafood,
	"shrimp":        MeatSeafood,
	"tuna":          MeatSeafood,
	"fish":          MeatSeafood,
	"ground beef":   MeatSeafood,
	"ground turkey": MeatSeafood,
	"hot dogs":      MeatSeafood,
	"deli meat":     MeatSeafood,
	"lamb":          MeatSeafood,
	"crab":          MeatSeafood,
	"lobster":       MeatSeafood,
	"tilapia":       MeatSeafood,

	// Bakery
	"bread":      Bakery,
	"bagels":     Bakery,
	"tortillas":  Bakery,
	"rolls":      Bakery,
	"buns":       Bakery,
	"muffins":    Bakery,
	"croissants": Bakery,
	"pita":       Bakery,

	// Pantry
	"rice":            Pantry,
	"pasta":           Pantry,
	"flour":           Pantry,
	"sugar":           Pantry,
	"salt":            Pantry,
	"pepper":          Pantry,
	"black pepper":    Pantry,
	"oil":             Pantry,
	"olive oil":       Pantry,
	"vinegar":         Pantry,
	"soy sauce":       Pantry,
	"ketchup":         Pantry,
	"mustard":         Pantry,
	"mayonnaise":      Pantry,
	"honey":           Pantry,
	"peanut butter":   Pantry,
	"jelly":           Pantry,
	"jam":             Pantry,
	"cereal":          Pantry,
	"oatmeal":         Pantry,
	"canned beans":    Pantry,
	"canned tomatoes": Pantry,
	"soup":            Pantry,
	"broth":           Pantry,
	"beans":           Pantry,
	"lentils":         Pantry,
	"nuts":            Pantry,
	"almonds":         Pantry,
	"spaghetti":       Pantry,
	"noodles":         Pantry,
	"maple syrup":     Pantry,
	"hot sauce":       Pantry,
	"salsa":           Pantry,
	"baking soda":     Pantry,
	"baking powder":   Pantry,
	"cornstarch":      Pantry,

	// Frozen
	"ice cream":      Frozen,
	"frozen pizza":   Frozen,
	"frozen veggies": Frozen,
	"frozen fruit":   Frozen,
	"frozen waffles": Frozen,
	"popsicles":      Frozen,

	// Beverages
	"water":           Beverages,
	"juice":           Beverages,
	"coffee":          Beverages,
	"tea":             Beverages,
	"soda":            Beverages,
	"beer":            Beverages,
	"wine":            Beverages,
	"kombucha":        Beverages,
	"lemonade":        Beverages,
	"sparkling water": Beverages,

	// Snacks
	"chips":        Snacks,
	"crackers":     Snacks,
	"cookies":      Snacks,
	"popcorn":      Snacks,
	"pretzels":     Snacks,
	"granola bars": Snacks,
	"trail mix":    Snacks,
	"candy":        Snacks,
	"chocolate":    Snacks,
	"fruit snacks": Snacks,

	// Household
	"paper towels":      Household,
	"toilet paper":      Household,
	"trash bags":        Household,
	"dish soap":         Household,
	"laundry detergent": Household,
	"sponges":           Household,
	"aluminum foil":     Household,
	"plastic wrap":      Household,
	"zip bags":          Household,
	"ziplock bags":      Household,
	"light bulbs":       Household,
	"batteries":         Household,
	"napkins":           Household,
	"cleaning spray":    Household,
	"bleach":            Household,

	// Personal Care
	"shampoo":     PersonalCare,
	"conditioner": PersonalCare,
	"soap":        PersonalCare,
	"body wash":   PersonalCare,
	"toothpaste":  PersonalCare,
	"toothbrush":  PersonalCare,
	"deodorant":   PersonalCare,
	"lotion":      PersonalCare,
	"sunscreen":   PersonalCare,
	"floss":       PersonalCare,
	"razors":      PersonalCare,
	"tissues":     PersonalCare,
	"band-aids":   PersonalCare,
}

type keywordEntry struct {
	keyword  string
	category Category
}

// keywordTerms holds the curated per-category keyword lists.
var keywordTerms = map[Category][]string{
	Produce: {
		"salad mix", "baby spinach", "green onion", "sweet potato", "bell pepper",
		"cherry tomato", "romaine", "arugula", "cabbage", "cauliflower", "squash",
		"melon", "berry", "berries", "fruit", "herb", "lettuce", "spinach", "kale",
		"apple", "banana", "tomato", "potato", "onion", "pepper", "carrot", "celery",
		"garlic", "lemon", "lime", "avocado", "cucumber", "mushroom", "zucchini",
		"eggplant", "broccoli", "ginger", "cilantro", "parsley", "basil", "scallion",
		"shallot", "leek", "radish", "beet", "jalapeño", "jalapeno", "corn",
		"watermelon",
	},
	MeatSeafood: {
		"chicken breast", "chicken thigh", "chicken wing", "ground beef",
		"ground turkey", "ground pork", "deli meat", "pork chop", "hot dog",
		"chicken", "beef", "pork", "turkey", "bacon", "sausage", "steak", "salmon",
		"shrimp", "tuna", "cod", "tilapia", "lamb", "crab", "lobster", "prosciutto",
		"ham", "fish",
	},
	Dairy: {
		"cream cheese", "sour cream", "heavy cream", "cottage cheese",
		"half and half", "greek yogurt", "almond milk", "oat milk", "yogurt",
		"cheese", "cheddar", "parmesan", "mozzarella", "feta", "milk", "butter",
		"cream", "egg",
	},
	Bakery: {
		"hamburger bun", "hot dog bun", "sourdough", "whole wheat", "bread", "bagel", "tortilla", "bun", "roll",
		"muffin", "croissant", "baguette", "pita",
	},
	Pantry: {
		"peanut butter", "olive oil", "coconut oil", "vegetable oil", "maple syrup",
		"hot sauce", "soy sauce", "pasta sauce", "tomato sauce", "tomato paste",
		"chicken broth", "chicken stock", "beef broth", "vegetable broth",
		"black pepper", "baking soda", "baking powder", "cornstarch", "canned",
		"cereal", "oatmeal", "oats", "granola", "rice", "pasta", "spaghetti",
		"noodle", "flour", "sugar", "salt", "spice", "seasoning", "cumin",
		"paprika", "cinnamon", "oregano", "vanilla", "vinegar", "oil", "honey",
		"sauce", "broth", "stock", "soup", "bean", "lentil", "chickpea", "nut",
		"almond",
	},
	Frozen: {
		"frozen", "ice cream", "popsicle",
	},
	Beverages: {
		"sparkling water", "orange juice", "apple juice", "coffee", "tea",
		"juice", "soda", "water", "beer", "wine", "drink",
	},
	Snacks: {
		"granola bar", "trail mix", "fruit snack", "chip", "cracker", "cookie",
		"popcorn", "pretzel", "candy", "chocolate", "snack",
	},
	Household: {
		"paper towel", "toilet paper", "trash bag", "garbage bag", "dish soap",
		"laundry", "detergent", "cleaner", "cleaning", "sponge", "foil",
		"plastic wrap", "ziplock", "battery", "batteries", "light bulb",
	},
	PersonalCare: {
		"body wash", "shampoo", "conditioner", "toothpaste", "toothbrush",
		"deodorant", "lotion", "sunscreen", "razor", "tissue", "band-aid",
	},
}

// keywordMatches flattens keywordTerms longest keyword first. Ties keep
// store-flow category order, then list order.
var keywordMatches = buildKeywordMatches()

func buildKeywordMatches() []keywordEntry {
	var entries []keywordEntry
	for _, cat := range storeFlow {
		for _, kw := range keywordTerms[cat] {
			entries = append(entries, keywordEntry{keyword: kw, category: cat})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].keyword) > len(entries[j].keyword)
	})
	return entries
}

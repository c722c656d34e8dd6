package grocery

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Tomatoes", "tomato"},
		{"tomato", "tomato"},
		{"Garlic", "garlic"},
		{"garlic, minced", "garlic"},
		{"Fresh Basil Leaves", "basil leaf"},
		{"diced onions", "onion"},
		{"Strawberries (hulled)", "strawberry"},
		{"2 large eggs", "egg"},
		{"peaches", "peach"},
		{"radishes", "radish"},
		{"Extra-Virgin Olive Oil", "olive oil"},
		{"hummus", "hummus"},
		{"asparagus", "asparagus"},
		{"molasses", "molasses"},
		{"cookies", "cookie"},
		{"sizes", "size"},
		{"shoes", "shoe"},
		{"toes", "toe"},
		{"potatoes", "potato"},
		{"boxes", "box"},
		{"buzzes", "buzz"},
		{"pizzas", "pizza"},
		{"  GREEN   beans ", "green bean"},
		{"fresh", "fresh"},
		{"", ""},
	}
	for _, tt := range tests {
		got := Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizePluralInsensitive(t *testing.T) {
	if Normalize("Tomatoes") != Normalize("tomato") {
		t.Errorf("Normalize(Tomatoes) = %q, Normalize(tomato) = %q", Normalize("Tomatoes"), Normalize("tomato"))
	}
}

func TestNormalizeStable(t *testing.T) {
	inputs := []string{
		"Tomatoes", "berries", "Fresh Basil Leaves", "dresses", "glasses",
		"boxes", "chives", "shoes", "texas toast", "diced", "fresh chopped",
		"(just parens)", "anchovies", "potatoes, peeled", "ties", "Jalapeños",
		"100% whole wheat flour", "half-and-half", "sizes", "buzzes", "toes",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not stable for %q: %q then %q", in, once, twice)
		}
	}
}

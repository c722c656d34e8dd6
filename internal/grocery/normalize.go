package grocery

import (
	"strings"
	"unicode"
)

// Normalize reduces an ingredient name to the canonical key used for pantry
// matching. "Fresh Tomatoes (diced)" and "tomato" share the key "tomato".
// Normalize(Normalize(x)) == Normalize(x) for every input.
func Normalize(ingredient string) string {
	name := strings.ToLower(ingredient)
	name = stripParens(name)
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}

	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, name)

	var words []string
	for _, w := range strings.Fields(name) {
		if isNumeric(w) {
			continue
		}
		words = append(words, singularize(w))
	}

	kept := words[:0:0]
	for _, w := range words {
		if !qualifiers[w] {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		kept = words
	}
	return strings.Join(kept, " ")
}

// stripParens removes parenthesised text. An unbalanced "(" drops the rest of
// the string.
func stripParens(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNumeric(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// singularize strips English plural endings from a single lowercase word. The
// result never ends in a strippable plural suffix, which keeps Normalize stable.
func singularize(w string) string {
	if s, ok := irregularPlurals[w]; ok {
		return s
	}
	if invariantWords[w] || len(w) <= 3 {
		return w
	}

	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "oes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "sses"),
		strings.HasSuffix(w, "ches"),
		strings.HasSuffix(w, "shes"),
		strings.HasSuffix(w, "xes"),
		strings.HasSuffix(w, "zzes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"),
		strings.HasSuffix(w, "us"),
		strings.HasSuffix(w, "is"):
		return w
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}

var irregularPlurals = map[string]string{
	"leaves":   "leaf",
	"loaves":   "loaf",
	"halves":   "half",
	"knives":   "knife",
	"cookies":  "cookie",
	"brownies": "brownie",
	"veggies":  "veggie",
	"pies":     "pie",
	"calves":   "calf",
	"geese":    "goose",
	"mice":     "mouse",
	"shoes":    "shoe",
	"toes":     "toe",
	"canoes":   "canoe",
}

var invariantWords = map[string]bool{
	"molasses":  true,
	"hummus":    true,
	"couscous":  true,
	"asparagus": true,
	"swiss":     true,
	"grits":     true,
	"oats":      true,
	"series":    true,
	"species":   true,
}

// qualifiers describe preparation or grade, not the ingredient itself.
var qualifiers = map[string]bool{
	"fresh":       true,
	"freshly":     true,
	"diced":       true,
	"chopped":     true,
	"minced":      true,
	"sliced":      true,
	"grated":      true,
	"shredded":    true,
	"crushed":     true,
	"peeled":      true,
	"seeded":      true,
	"cubed":       true,
	"julienned":   true,
	"large":       true,
	"medium":      true,
	"small":       true,
	"organic":     true,
	"ripe":        true,
	"finely":      true,
	"roughly":     true,
	"thinly":      true,
	"boneless":    true,
	"skinless":    true,
	"unsalted":    true,
	"optional":    true,
	"softened":    true,
	"melted":      true,
	"whole":       true,
	"extra":       true,
	"virgin":      true,
	"to":          true,
	"taste":       true,
	"of":          true,
	"room":        true,
	"temperature": true,
}

package grocery

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// System is a measurement system used to display quantities.
type System string

const (
	Metric   System = "metric"
	Imperial System = "imperial"
)

// ParseSystem matches s against the supported measurement systems.
func ParseSystem(s string) (System, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "metric":
		return Metric, true
	case "imperial":
		return Imperial, true
	}
	return "", false
}

type dimension int

const (
	volume dimension = iota
	mass
)

type unitDef struct {
	system System
	dim    dimension
	// factor converts one of this unit to millilitres or grams.
	factor decimal.Decimal
}

var (
	mlPerTsp    = decimal.RequireFromString("4.92892159375")
	mlPerTbsp   = decimal.RequireFromString("14.78676478125")
	mlPerFlOz   = decimal.RequireFromString("29.5735295625")
	mlPerCup    = decimal.RequireFromString("236.5882365")
	mlPerPint   = decimal.RequireFromString("473.176473")
	mlPerQuart  = decimal.RequireFromString("946.352946")
	mlPerGallon = decimal.RequireFromString("3785.411784")
	gPerOz      = decimal.RequireFromString("28.349523125")
	gPerLb      = decimal.RequireFromString("453.59237")
	thousand    = decimal.NewFromInt(1000)
	hundred     = decimal.NewFromInt(100)
)

var units = map[string]unitDef{}

func register(def unitDef, names ...string) {
	for _, n := range names {
		units[n] = def
	}
}

func init() {
	register(unitDef{Imperial, volume, mlPerTsp}, "tsp", "tsps", "teaspoon", "teaspoons")
	register(unitDef{Imperial, volume, mlPerTbsp}, "tbsp", "tbsps", "tbs", "tablespoon", "tablespoons")
	register(unitDef{Imperial, volume, mlPerFlOz}, "fl oz", "fl. oz", "fluid ounce", "fluid ounces")
	register(unitDef{Imperial, volume, mlPerCup}, "cup", "cups")
	register(unitDef{Imperial, volume, mlPerPint}, "pint", "pints", "pt")
	register(unitDef{Imperial, volume, mlPerQuart}, "quart", "quarts", "qt")
	register(unitDef{Imperial, volume, mlPerGallon}, "gallon", "gallons", "gal")
	register(unitDef{Imperial, mass, gPerOz}, "oz", "ounce", "ounces")
	register(unitDef{Imperial, mass, gPerLb}, "lb", "lbs", "pound", "pounds")

	register(unitDef{Metric, volume, decimal.NewFromInt(1)}, "ml", "milliliter", "milliliters", "millilitre", "millilitres")
	register(unitDef{Metric, volume, decimal.NewFromInt(10)}, "cl", "centiliter", "centiliters")
	register(unitDef{Metric, volume, decimal.NewFromInt(100)}, "dl", "deciliter", "deciliters")
	register(unitDef{Metric, volume, thousand}, "l", "liter", "liters", "litre", "litres")
	register(unitDef{Metric, mass, decimal.RequireFromString("0.001")}, "mg", "milligram", "milligrams")
	register(unitDef{Metric, mass, decimal.NewFromInt(1)}, "g", "gram", "grams")
	register(unitDef{Metric, mass, thousand}, "kg", "kilogram", "kilograms")
}

// ConvertQuantity rewrites a "<number> <unit>" string in the target system,
// e.g. "2 cups" becomes "473 ml". Input that is already in the target system,
// uses an unknown unit, or does not have exactly that shape ("2-3 cups",
// "a pinch", "1 lb 4 oz") is returned unchanged.
func ConvertQuantity(s string, target System) string {
	if target != Metric && target != Imperial {
		return s
	}
	qty, unit, ok := parseQuantity(s)
	if !ok {
		return s
	}
	def, ok := units[unit]
	if !ok || def.system == target {
		return s
	}

	base := qty.Mul(def.factor)
	var out string
	if target == Metric {
		out = formatMetric(base, def.dim)
	} else {
		out = formatImperial(base, def.dim)
	}
	if out == "" {
		return s
	}
	return out
}

// ConvertItem converts a quantity and unit stored as separate fields and
// returns the display string.
func ConvertItem(quantity, unit string, target System) string {
	s := strings.TrimSpace(strings.TrimSpace(quantity) + " " + strings.TrimSpace(unit))
	if strings.TrimSpace(quantity) == "" || strings.TrimSpace(unit) == "" {
		return s
	}
	return ConvertQuantity(s, target)
}

func parseQuantity(s string) (decimal.Decimal, string, bool) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return decimal.Zero, "", false
	}

	qty, ok := parseNumber(fields[0])
	if !ok {
		return decimal.Zero, "", false
	}
	rest := fields[1:]
	if isInteger(fields[0]) {
		if frac, ok := parseFraction(rest[0]); ok && len(rest) > 1 {
			qty = qty.Add(frac)
			rest = rest[1:]
		}
	}
	if len(rest) > 2 {
		return decimal.Zero, "", false
	}

	unit := strings.ToLower(strings.Join(rest, " "))
	unit = strings.TrimSuffix(unit, ".")
	if !qty.IsPositive() {
		return decimal.Zero, "", false
	}
	return qty, unit, true
}

var (
	decimalRe  = regexp.MustCompile(`^(\d+(\.\d+)?|\.\d+)$`)
	integerRe  = regexp.MustCompile(`^\d+$`)
	fractionRe = regexp.MustCompile(`^(\d+)/(\d+)$`)
)

var vulgarFractions = map[rune]decimal.Decimal{
	'¼': decimal.RequireFromString("0.25"),
	'½': decimal.RequireFromString("0.5"),
	'¾': decimal.RequireFromString("0.75"),
	'⅓': decimal.NewFromInt(1).Div(decimal.NewFromInt(3)),
	'⅔': decimal.NewFromInt(2).Div(decimal.NewFromInt(3)),
	'⅛': decimal.RequireFromString("0.125"),
	'⅜': decimal.RequireFromString("0.375"),
	'⅝': decimal.RequireFromString("0.625"),
	'⅞': decimal.RequireFromString("0.875"),
}

func isInteger(tok string) bool {
	return integerRe.MatchString(tok)
}

func parseNumber(tok string) (decimal.Decimal, bool) {
	if decimalRe.MatchString(tok) {
		d, err := decimal.NewFromString(tok)
		return d, err == nil
	}
	if f, ok := parseFraction(tok); ok {
		return f, true
	}

	// Mixed number written without a space, e.g. "1½".
	last, size := utf8.DecodeLastRuneInString(tok)
	frac, ok := vulgarFractions[last]
	if !ok {
		return decimal.Zero, false
	}
	whole := tok[:len(tok)-size]
	if !isInteger(whole) {
		return decimal.Zero, false
	}
	w, err := decimal.NewFromString(whole)
	if err != nil {
		return decimal.Zero, false
	}
	return w.Add(frac), true
}

func parseFraction(tok string) (decimal.Decimal, bool) {
	if r, size := utf8.DecodeRuneInString(tok); size == len(tok) {
		if f, ok := vulgarFractions[r]; ok {
			return f, true
		}
	}
	m := fractionRe.FindStringSubmatch(tok)
	if m == nil {
		return decimal.Zero, false
	}
	num, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, false
	}
	den, err := decimal.NewFromString(m[2])
	if err != nil || den.IsZero() {
		return decimal.Zero, false
	}
	return num.Div(den), true
}

func formatMetric(base decimal.Decimal, dim dimension) string {
	small, large := "ml", "l"
	if dim == mass {
		small, large = "g", "kg"
	}
	if base.GreaterThanOrEqual(thousand) {
		return base.Div(thousand).Round(2).String() + " " + large
	}
	if base.GreaterThanOrEqual(hundred) {
		return base.Round(0).String() + " " + small
	}
	v := base.Round(2)
	if v.IsZero() {
		return ""
	}
	return v.String() + " " + small
}

type imperialUnit struct {
	singular, plural string
	size             decimal.Decimal
}

// Largest first; the first unit the quantity reaches is used.
var (
	imperialVolume = []imperialUnit{
		{"gallon", "gallons", mlPerGallon},
		{"cup", "cups", mlPerCup.Div(decimal.NewFromInt(4))},
		{"tbsp", "tbsp", mlPerTbsp},
		{"tsp", "tsp", decimal.Zero},
	}
	imperialMass = []imperialUnit{
		{"lb", "lb", gPerLb},
		{"oz", "oz", decimal.Zero},
	}
)

func formatImperial(base decimal.Decimal, dim dimension) string {
	table := imperialVolume
	if dim == mass {
		table = imperialMass
	}

	var u imperialUnit
	for _, cand := range table {
		if base.GreaterThanOrEqual(cand.size) {
			u = cand
			break
		}
	}

	var per decimal.Decimal
	switch u.singular {
	case "cup":
		per = mlPerCup
	case "tsp":
		per = mlPerTsp
	case "oz":
		per = gPerOz
	default:
		per = u.size
	}

	value := base.Div(per)
	text := cookingFraction(value)
	if text == "" {
		return ""
	}
	label := u.plural
	if text == "1" || value.LessThan(decimal.NewFromInt(1)) {
		label = u.singular
	}
	return text + " " + label
}

type fractionGlyph struct {
	value decimal.Decimal
	glyph string
}

var commonFractions = []fractionGlyph{
	{decimal.RequireFromString("0.125"), "⅛"},
	{decimal.RequireFromString("0.25"), "¼"},
	{decimal.NewFromInt(1).Div(decimal.NewFromInt(3)), "⅓"},
	{decimal.RequireFromString("0.375"), "⅜"},
	{decimal.RequireFromString("0.5"), "½"},
	{decimal.RequireFromString("0.625"), "⅝"},
	{decimal.NewFromInt(2).Div(decimal.NewFromInt(3)), "⅔"},
	{decimal.RequireFromString("0.75"), "¾"},
	{decimal.RequireFromString("0.875"), "⅞"},
}

var fractionTolerance = decimal.RequireFromString("0.02")

// cookingFraction renders v as a whole number plus a common cooking fraction
// when one is within tolerance, else as a decimal with at most two places.
func cookingFraction(v decimal.Decimal) string {
	whole := v.Floor()
	frac := v.Sub(whole)

	if frac.LessThanOrEqual(fractionTolerance) && whole.IsPositive() {
		return whole.String()
	}
	if decimal.NewFromInt(1).Sub(frac).LessThanOrEqual(fractionTolerance) {
		return whole.Add(decimal.NewFromInt(1)).String()
	}
	for _, f := range commonFractions {
		if frac.Sub(f.value).Abs().LessThanOrEqual(fractionTolerance) {
			if whole.IsZero() {
				return f.glyph
			}
			return whole.String() + f.glyph
		}
	}

	r := v.Round(2)
	if r.IsZero() {
		return ""
	}
	return r.String()
}

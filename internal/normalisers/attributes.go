package normalisers

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// dimension is one measurement an attribute can describe
type dimension int

const (
	dimNone dimension = iota
	dimWeight
	dimWidth
	dimHeight
	dimLength
)

// Keyword sets are matched against accent-folded, lower-cased attribute names.
// Order matters: the first dimension whose keyword appears in the name wins.
var dimensionKeywords = []struct {
	dim      dimension
	keywords []string
}{
	{dimWeight, []string{"peso", "weight"}},
	{dimWidth, []string{"largura", "width"}},
	{dimHeight, []string{"altura", "height"}},
	{dimLength, []string{"comprimento", "length", "profundidade"}},
}

// measurePattern matches a decimal number (dot or comma separator) followed by a unit.
// Longer unit alternatives come first so "mm" is not read as "m".
var measurePattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(kg|kilos?|gramas?|gr|g|mm|cm|m)\b`)

// Extract parses free-text attributes into weight and dimensions.
// Unrecognized names or values are ignored. When several attributes describe
// the same dimension the last one wins.
func Extract(attrs []domain.Attribute) domain.Measurements {
	var m domain.Measurements
	for _, attr := range attrs {
		dim := classify(attr.Name)
		if dim == dimNone {
			continue
		}
		value, unit, ok := parseMeasure(attr.Value)
		if !ok {
			continue
		}
		m = m.Override(convert(dim, value, unit))
	}
	return m
}

// NormalizeDimensions converts the structured shipping and package data of an
// item into measurements. Package values take precedence over shipping.
func NormalizeDimensions(shipping *domain.Shipping, pkg *domain.PackageDimensions) domain.Measurements {
	var m domain.Measurements
	if shipping != nil {
		m = m.Override(parseShippingDimensions(shipping.Dimensions))
	}
	if pkg != nil {
		m = m.Override(packageMeasurements(pkg))
	}
	return m
}

// parseShippingDimensions reads the "HxWxL,weight" format, centimetres and grams
func parseShippingDimensions(s string) domain.Measurements {
	var m domain.Measurements
	s = strings.TrimSpace(s)
	if s == "" {
		return m
	}

	sizes, weight, hasWeight := strings.Cut(s, ",")
	parts := strings.Split(sizes, "x")
	if len(parts) == 3 {
		targets := []**float64{&m.HeightCm, &m.WidthCm, &m.LengthCm}
		for i, part := range parts {
			if v, ok := parseNumber(part); ok {
				*targets[i] = ptr(v)
			}
		}
	}
	if hasWeight {
		if v, ok := parseNumber(weight); ok {
			m = m.Override(convert(dimWeight, v, "g"))
		}
	}
	return m
}

func packageMeasurements(pkg *domain.PackageDimensions) domain.Measurements {
	var m domain.Measurements
	for _, entry := range []struct {
		dim     dimension
		measure *domain.Measure
	}{
		{dimHeight, pkg.Height},
		{dimWidth, pkg.Width},
		{dimLength, pkg.Length},
		{dimWeight, pkg.Weight},
	} {
		if entry.measure == nil {
			continue
		}
		unit := strings.ToLower(strings.TrimSpace(entry.measure.Unit))
		m = m.Override(convert(entry.dim, entry.measure.Value, unit))
	}
	return m
}

// convert maps a value and unit into the measurement fields of dim.
// A unit of the wrong kind for dim yields no values.
func convert(dim dimension, value float64, unit string) domain.Measurements {
	var m domain.Measurements
	switch dim {
	case dimWeight:
		var grams float64
		switch unit {
		case "kg", "kilo", "kilos":
			grams = value * 1000
			m.WeightKg = ptr(round3(value))
			m.WeightG = ptr(round3(grams))
			return m
		case "g", "gr", "grama", "gramas":
			grams = value
		default:
			return m
		}
		m.WeightG = ptr(round3(grams))
		m.WeightKg = ptr(round3(grams / 1000))
	case dimWidth, dimHeight, dimLength:
		var cm float64
		switch unit {
		case "mm":
			cm = value / 10
		case "cm":
			cm = value
		case "m":
			cm = value * 100
		default:
			return m
		}
		switch dim {
		case dimWidth:
			m.WidthCm = ptr(round3(cm))
		case dimHeight:
			m.HeightCm = ptr(round3(cm))
		default:
			m.LengthCm = ptr(round3(cm))
		}
	}
	return m
}

func classify(name string) dimension {
	folded := Fold(name)
	for _, entry := range dimensionKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(folded, kw) {
				return entry.dim
			}
		}
	}
	return dimNone
}

func parseMeasure(s string) (float64, string, bool) {
	match := measurePattern.FindStringSubmatch(s)
	if match == nil {
		return 0, "", false
	}
	v, ok := parseNumber(match[1])
	if !ok {
		return 0, "", false
	}
	return v, strings.ToLower(match[2]), true
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Fold lower-cases s and strips diacritics ("Dimensões" -> "dimensoes")
func Fold(s string) string {
	// Transformers keep state; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func ptr(v float64) *float64 {
	return &v
}

package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // Annual Income (k$)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // Weight [kg]
	{regexp.MustCompile(`^(.*?)[_\s-]+(%|kg|cm|km|usd|eur|k\$)$`), 2},
}

// splitUnits separates a trailing unit annotation from a header.
func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}

var missingTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "null": true, "none": true, "-": true, "?": true,
}

func isMissingToken(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

// commaGroups and dotGroups match integers written with thousands
// separators only, e.g. "1,500", "1,234,567" or "1.234.567". A single
// dot group such as "1.500" stays a decimal.
var (
	commaGroups = regexp.MustCompile(`^[+-]?[1-9]\d{0,2}(,\d{3})+$`)
	dotGroups   = regexp.MustCompile(`^[+-]?[1-9]\d{0,2}(\.\d{3}){2,}$`)
)

// parseNumeric accepts plain numbers, percentages and locale formatted values
// such as "1.234,5". A zero dec auto-detects the decimal separator from the
// last separator present.
func parseNumeric(s string, dec, thou rune) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0 && commaGroups.MatchString(raw):
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		case dotGroups.MatchString(raw):
			dec, thou = ',', '.'
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	for _, r := range raw {
		// ParseFloat also takes "inf", "nan" and hex floats; none are data.
		if !(r >= '0' && r <= '9' || r == '.' || r == '-' || r == '+' || r == 'e' || r == 'E') {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

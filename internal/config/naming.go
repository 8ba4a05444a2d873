package config

import (
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
)

// hungarianPrefixes are the type prefixes Source 2 puts after "m_".
var hungarianPrefixes = []string{
	"psz", "vec", "ang", "clr", "str", "arr", "map",
	"sz", "fl", "nm", "sb",
	"n", "b", "h", "i", "u", "e", "f", "p", "v", "q", "s",
}

// TrimHungarian strips a Source 2 style member prefix: m_nFlags gives Flags.
// Keys without the m_ marker are returned unchanged.
func TrimHungarian(key string) string {
	rest, ok := strings.CutPrefix(key, "m_")
	if !ok || rest == "" {
		return key
	}
	for _, prefix := range hungarianPrefixes {
		tail, ok := strings.CutPrefix(rest, prefix)
		if ok && tail != "" && unicode.IsUpper([]rune(tail)[0]) {
			return tail
		}
	}
	return rest
}

// GetFieldName returns the Go field name for a KV3 key, applying naming rules
func (c *Config) GetFieldName(key string) string {
	if mapped, exists := c.Naming.FieldMappings[key]; exists {
		return mapped
	}

	name := key
	if c.Naming.TrimHungarian {
		name = TrimHungarian(name)
	}
	if c.Naming.PascalCaseFields {
		name = strcase.ToCamel(name)
	}
	return goIdentifier(name)
}

// goIdentifier makes name usable as an exported Go identifier.
func goIdentifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || strings.Trim(out, "_") == "" {
		return "Field"
	}
	first := []rune(out)[0]
	if !unicode.IsLetter(first) {
		return "F" + out
	}
	if !unicode.IsUpper(first) {
		return string(unicode.ToUpper(first)) + string([]rune(out)[1:])
	}
	return out
}

// knownSingulars maps irregular plurals, matched as name suffixes.
var knownSingulars = map[string]string{
	"series":   "series",
	"status":   "status",
	"analysis": "analysis",
	"species":  "species",
	"children": "child",
	"people":   "person",
	"data":     "data",
	"media":    "media",
	"vertices": "vertex",
	"indices":  "index",
	"matrices": "matrix",
	"axes":     "axis",
}

// Singularize attempts to convert a plural name to a singular one. Compound
// names such as RootTypeChildren are singularized on their last word.
func Singularize(plural string) string {
	lower := strings.ToLower(plural)
	for p, singular := range knownSingulars {
		if !strings.HasSuffix(lower, p) {
			continue
		}
		head := plural[:len(plural)-len(p)]
		tail := plural[len(plural)-len(p):]
		// Preserve the capital of a word boundary
		if tail[0] >= 'A' && tail[0] <= 'Z' {
			singular = strings.ToUpper(singular[:1]) + singular[1:]
		}
		return head + singular
	}

	if strings.HasSuffix(lower, "ies") && len(lower) > 3 {
		return plural[:len(plural)-3] + "y"
	}

	// Avoid removing 's' from words like 'class', 'status', 'basis'
	if strings.HasSuffix(lower, "ss") ||
		strings.HasSuffix(lower, "us") ||
		strings.HasSuffix(lower, "is") {
		return plural
	}

	for _, suffix := range []string{"sses", "shes", "ches", "xes"} {
		if strings.HasSuffix(lower, suffix) {
			return plural[:len(plural)-2]
		}
	}

	if strings.HasSuffix(lower, "s") && len(lower) > 1 {
		return plural[:len(plural)-1]
	}

	return plural
}

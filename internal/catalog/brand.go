package catalog

import (
	"regexp"
	"strings"
	"unicode"
)

var capitalizedWord = regexp.MustCompile(`[A-Z][a-z]+`)

// ExtractBrand guesses a brand from a product name: the text before the first
// whitespace run that is followed by a capital letter, or the whole name when
// there is none. Products with a structured brand should not use this.
func ExtractBrand(name string) string {
	if prefix := strings.TrimSpace(prefixBeforeCapital(name)); prefix != "" {
		return prefix
	}
	if m := capitalizedWord.FindString(name); m != "" {
		return m
	}
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return "Unknown"
}

func prefixBeforeCapital(name string) string {
	runes := []rune(name)
	for i := 0; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) {
			continue
		}
		j := i
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j < len(runes) && unicode.IsUpper(runes[j]) {
			return string(runes[:i])
		}
		i = j - 1
	}
	return name
}

// BrandOf prefers the structured brand and falls back to the name heuristic.
func BrandOf(brand, name string) string {
	if b := strings.TrimSpace(brand); b != "" {
		return b
	}
	return ExtractBrand(name)
}

package textutil

import (
	"regexp"
	"strings"
)

var localePattern = regexp.MustCompile(`^[a-z]{2}(-[a-z]{2})?$`)

// NormalizeLocale canonicalises a locale code (`PT_BR` -> `pt-br`). Invalid
// codes normalise to the empty string.
func NormalizeLocale(code string) string {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(code)), "_", "-")
	if !localePattern.MatchString(normalized) {
		return ""
	}
	return normalized
}

// NormalizeLocales normalises every code, drops invalid entries and removes
// duplicates while keeping first-seen order.
func NormalizeLocales(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		normalized := NormalizeLocale(code)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// SplitList splits a comma separated flag value, trimming blanks.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

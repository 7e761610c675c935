package textutil

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Placeholders returns the distinct `{{name}}` tokens found in text, in order.
func Placeholders(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// SamePlaceholders reports whether both texts carry the same placeholder set.
func SamePlaceholders(source, translated string) bool {
	left := Placeholders(source)
	right := Placeholders(translated)
	if len(left) != len(right) {
		return false
	}
	set := make(map[string]struct{}, len(left))
	for _, name := range left {
		set[name] = struct{}{}
	}
	for _, name := range right {
		if _, ok := set[name]; !ok {
			return false
		}
	}
	return true
}

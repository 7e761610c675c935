package translations

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-locsync/internal/textutil"
)

const (
	MaxTitleLength       = 60
	MaxDescriptionLength = 160
	MaxKeywords          = 10
)

// QualityAlerts runs the placeholder parity check and, when includeSEO is
// set, the SEO length checks for the given field.
func QualityAlerts(field, sourceText, text string, includeSEO bool) []Alert {
	var alerts []Alert
	if includeSEO {
		if alert, ok := seoAlert(field, text); ok {
			alerts = append(alerts, alert)
		}
	}
	if sourceText != "" && !textutil.SamePlaceholders(sourceText, text) {
		alerts = append(alerts, Alert{
			Type:    AlertPlaceholderMismatch,
			Field:   field,
			Message: fmt.Sprintf("placeholders differ: source %v, translation %v", textutil.Placeholders(sourceText), textutil.Placeholders(text)),
		})
	}
	return alerts
}

func seoAlert(field, text string) (Alert, bool) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "title":
		if n := utf8.RuneCountInString(text); n > MaxTitleLength {
			return Alert{Type: AlertSEOLength, Field: field, Message: fmt.Sprintf("title is %d characters, max %d", n, MaxTitleLength)}, true
		}
	case "description":
		if n := utf8.RuneCountInString(text); n > MaxDescriptionLength {
			return Alert{Type: AlertSEOLength, Field: field, Message: fmt.Sprintf("description is %d characters, max %d", n, MaxDescriptionLength)}, true
		}
	case "keywords":
		if n := countKeywords(text); n > MaxKeywords {
			return Alert{Type: AlertSEOLength, Field: field, Message: fmt.Sprintf("keywords has %d entries, max %d", n, MaxKeywords)}, true
		}
	}
	return Alert{}, false
}

func countKeywords(text string) int {
	count := 0
	for _, part := range strings.Split(text, ",") {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}

func mergeAlerts(groups ...[]Alert) []Alert {
	var out []Alert
	seen := map[Alert]struct{}{}
	for _, group := range groups {
		for _, alert := range group {
			if _, ok := seen[alert]; ok {
				continue
			}
			seen[alert] = struct{}{}
			out = append(out, alert)
		}
	}
	return out
}

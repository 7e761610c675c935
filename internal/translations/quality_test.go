package translations

import (
	"strings"
	"testing"
)

func TestQualityAlertsSEOLimits(t *testing.T) {
	cases := []struct {
		field string
		text  string
		want  bool
	}{
		{"title", strings.Repeat("é", 60), false},
		{"title", strings.Repeat("é", 61), true},
		{"description", strings.Repeat("a", 160), false},
		{"description", strings.Repeat("a", 161), true},
		{"keywords", "a,b,c,d,e,f,g,h,i,j", false},
		{"keywords", "a,b,c,d,e,f,g,h,i,j,k", true},
		{"keywords", "a,,b, ,c", false},
		{"label", strings.Repeat("a", 500), false},
	}
	for _, tc := range cases {
		alerts := QualityAlerts(tc.field, "", tc.text, true)
		got := len(alerts) == 1 && alerts[0].Type == AlertSEOLength
		if got != tc.want {
			t.Fatalf("%s (%d chars): expected seo alert %v, got %+v", tc.field, len(tc.text), tc.want, alerts)
		}
	}
}

func TestQualityAlertsSkipSEOWhenDisabled(t *testing.T) {
	if alerts := QualityAlerts("title", "", strings.Repeat("a", 100), false); len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %+v", alerts)
	}
}

func TestQualityAlertsPlaceholderParity(t *testing.T) {
	if alerts := QualityAlerts("label", "Bonjour {{name}}", "Hello {{ name }}", false); len(alerts) != 0 {
		t.Fatalf("expected matching placeholders, got %+v", alerts)
	}
	alerts := QualityAlerts("label", "Bonjour {{name}}", "Hello", false)
	if len(alerts) != 1 || alerts[0].Type != AlertPlaceholderMismatch || alerts[0].Field != "label" {
		t.Fatalf("expected placeholder mismatch, got %+v", alerts)
	}
}

func TestMergeAlertsDeduplicates(t *testing.T) {
	a := Alert{Type: AlertSEOLength, Field: "title", Message: "too long"}
	merged := mergeAlerts([]Alert{a}, []Alert{a, {Type: "custom"}})
	if len(merged) != 2 {
		t.Fatalf("expected two alerts, got %+v", merged)
	}
}

func TestNormalizeVector(t *testing.T) {
	got := NormalizeVector([]float32{3, 4})
	if len(got) != 2 || got[0] != 0.6 || got[1] != 0.8 {
		t.Fatalf("unexpected normalized vector %v", got)
	}
	if NormalizeVector([]float32{0, 0, 0}) != nil {
		t.Fatalf("expected zero vector to normalize to nil")
	}
	if NormalizeVector(nil) != nil {
		t.Fatalf("expected empty vector to normalize to nil")
	}
}

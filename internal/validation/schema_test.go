package validation

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync/internal/domain"
)

func TestValidatePromptTemplate(t *testing.T) {
	if err := ValidatePromptTemplate(map[string]any{"tone": "formal", "max_length": 80, "instructions": "keep it short"}); err != nil {
		t.Fatalf("expected valid template, got %v", err)
	}
	if err := ValidatePromptTemplate(nil); err != nil {
		t.Fatalf("expected empty template to be valid, got %v", err)
	}

	err := ValidatePromptTemplate(map[string]any{"tone": "formal", "max_length": 0, "style": "x"})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if !domain.HasTextCode(err, domain.TextCodeValidationFailed) {
		t.Fatalf("expected validation text code, got %v", err)
	}
	var typed *goerrors.Error
	if !errors.As(err, &typed) || len(typed.ValidationErrors) < 2 {
		t.Fatalf("expected a field error per issue, got %+v", typed)
	}
}

func TestCheckSyncTask(t *testing.T) {
	if err := Check(SchemaSyncTask, map[string]any{"job_id": "6f1c2a3e-6a0b-4d57-9c41-0a6ad7f3a0d2", "tenant_id": "acme"}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	for name, payload := range map[string]map[string]any{
		"missing job": {"tenant_id": "acme"},
		"bad uuid":    {"job_id": "not-a-uuid"},
		"nil":         nil,
	} {
		if err := Check(SchemaSyncTask, payload); !goerrors.IsCategory(err, goerrors.CategoryValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestCheckVectorizeTaskAcceptsGoSlices(t *testing.T) {
	if err := Check(SchemaVectorizeTask, map[string]any{"tenant_id": "acme", "scopes": []string{"product"}}); err != nil {
		t.Fatalf("expected []string scopes to validate, got %v", err)
	}
	if err := Check(SchemaVectorizeTask, map[string]any{"tenant_id": "acme", "scopes": []any{"product", 3}}); err == nil {
		t.Fatal("expected non-string scope to fail")
	}
}

func TestCheckUnknownSchema(t *testing.T) {
	if err := Check("nope", map[string]any{}); !errors.Is(err, ErrSchemaUnknown) {
		t.Fatalf("expected ErrSchemaUnknown, got %v", err)
	}
}

func TestCompileRejectsBrokenSchema(t *testing.T) {
	if _, err := compile("broken", `{"type": 12}`); !errors.Is(err, ErrSchemaInvalid) {
		t.Fatalf("expected ErrSchemaInvalid, got %v", err)
	}
}

func TestFieldName(t *testing.T) {
	cases := map[string]string{"": "$", "/max_length": "max_length", "/scopes/1": "scopes.1"}
	for in, want := range cases {
		if got := fieldName(in); got != want {
			t.Fatalf("fieldName(%q) = %q, want %q", in, got, want)
		}
	}
}

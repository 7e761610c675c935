package tenant

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := WithID(context.Background(), " acme ")
	got, ok := FromContext(ctx)
	if !ok || got != "acme" {
		t.Fatalf("expected acme, got %q (%v)", got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected missing tenant on bare context")
	}
	if Resolve(ctx, "") != "acme" {
		t.Fatalf("expected context fallback")
	}
	if Resolve(ctx, "t1") != "t1" {
		t.Fatalf("expected explicit tenant to win")
	}
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"t1", "acme-corp", "Tenant_01.eu"} {
		if err := ValidateID(id); err != nil {
			t.Fatalf("expected %q to be valid: %v", id, err)
		}
	}
	for _, id := range []string{"", "-leading", "with space", "x/y"} {
		err := ValidateID(id)
		if err == nil {
			t.Fatalf("expected %q to be rejected", id)
		}
		if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
			t.Fatalf("expected validation category for %q, got %v", id, err)
		}
	}
}

package keys

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/textutil"
	"github.com/google/uuid"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	return NewService(NewMemoryRepository(), WithNow(func() time.Time { return now }))
}

func TestCreateComputesChecksumAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	key, err := svc.Create(ctx, CreateKeyInput{TenantID: "t1", Scope: "glossary", Key: "label", IsBlocking: true})
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	if key.Checksum != textutil.Checksum("glossary:label") {
		t.Fatalf("unexpected checksum %s", key.Checksum)
	}
	if !key.IsBlocking {
		t.Fatalf("expected blocking flag to persist")
	}

	_, err = svc.Create(ctx, CreateKeyInput{TenantID: "t1", Scope: "glossary", Key: "label"})
	if domain.Message(err) != MessageKeyExists {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryConflict) {
		t.Fatalf("expected conflict category, got %v", err)
	}

	if _, err := svc.Create(ctx, CreateKeyInput{TenantID: "t2", Scope: "glossary", Key: "label"}); err != nil {
		t.Fatalf("expected same natural key in another tenant to succeed: %v", err)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.Create(ctx, CreateKeyInput{TenantID: "bad tenant", Scope: "s", Key: "k"}); domain.Message(err) != "Invalid tenant_id format" {
		t.Fatalf("expected tenant format error, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateKeyInput{TenantID: "t1", Scope: " ", Key: "k"}); !domain.IsValidation(err) {
		t.Fatalf("expected scope validation error, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateKeyInput{
		TenantID:       "t1",
		Scope:          "s",
		Key:            "k",
		PromptTemplate: map[string]any{"tone": "formal", "colour": "blue"},
	}); !domain.IsValidation(err) {
		t.Fatalf("expected prompt template validation error, got %v", err)
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	first, created, err := svc.GetOrCreate(ctx, CreateKeyInput{TenantID: "t1", Scope: "menu", Key: "title"})
	if err != nil || !created {
		t.Fatalf("expected creation, got created=%v err=%v", created, err)
	}
	second, created, err := svc.GetOrCreate(ctx, CreateKeyInput{TenantID: "t1", Scope: "menu", Key: "title"})
	if err != nil || created {
		t.Fatalf("expected existing key, got created=%v err=%v", created, err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected stable id")
	}
}

func TestListByScopeMatchesDescendantsAndFields(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	for _, input := range []CreateKeyInput{
		{TenantID: "t1", Scope: "glossary", Key: "label"},
		{TenantID: "t1", Scope: "glossary", Key: "definition"},
		{TenantID: "t1", Scope: "glossary", Key: "notes"},
		{TenantID: "t1", Scope: "glossary:terms", Key: "label"},
		{TenantID: "t1", Scope: "glossary_old", Key: "label"},
		{TenantID: "t2", Scope: "glossary", Key: "label"},
	} {
		if _, err := svc.Create(ctx, input); err != nil {
			t.Fatalf("create %s:%s: %v", input.Scope, input.Key, err)
		}
	}

	all, err := svc.ListByScope(ctx, "t1", "glossary", nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 keys in glossary tree, got %d", len(all))
	}

	restricted, err := svc.ListByScope(ctx, "t1", "glossary", []string{"label", "definition", " "})
	if err != nil {
		t.Fatalf("list restricted: %v", err)
	}
	if len(restricted) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(restricted))
	}
	for _, key := range restricted {
		if key.Key == "notes" {
			t.Fatalf("expected fields to exclude notes")
		}
	}
}

func TestGetEnforcesTenant(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	key, err := svc.Create(ctx, CreateKeyInput{TenantID: "t1", Scope: "s", Key: "k"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Get(ctx, "t2", key.ID); !goerrors.IsNotFound(err) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}
	if _, err := svc.Get(ctx, "t1", uuid.New()); !goerrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	many, err := svc.GetMany(ctx, "t1", []uuid.UUID{key.ID, key.ID, uuid.New()})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(many) != 1 {
		t.Fatalf("expected deduplicated single key, got %d", len(many))
	}
}

func TestUpdatePromptTemplate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	key, err := svc.Create(ctx, CreateKeyInput{TenantID: "t1", Scope: "s", Key: "k"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := svc.UpdatePromptTemplate(ctx, "t1", key.ID, map[string]any{"tone": "friendly", "max_length": 40})
	if err != nil {
		t.Fatalf("update template: %v", err)
	}
	if updated.Template().Tone != "friendly" || updated.Template().MaxLength != 40 {
		t.Fatalf("unexpected template %+v", updated.PromptTemplate)
	}
	if updated.Scope != "s" || updated.Key != "k" {
		t.Fatalf("expected identity fields to stay unchanged")
	}

	cleared, err := svc.UpdatePromptTemplate(ctx, "t1", key.ID, nil)
	if err != nil {
		t.Fatalf("clear template: %v", err)
	}
	if cleared.PromptTemplate != nil {
		t.Fatalf("expected template to be cleared")
	}
}

func TestScopeFilterMatches(t *testing.T) {
	filter := ScopeFilter{Scope: "app"}
	if !filter.Matches(&TranslatableKey{Scope: "app:menu"}) {
		t.Fatalf("expected descendant match")
	}
	if filter.Matches(&TranslatableKey{Scope: "application"}) {
		t.Fatalf("expected sibling prefix to be excluded")
	}
}

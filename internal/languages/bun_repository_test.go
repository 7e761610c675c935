package languages

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-locsync/internal/identity"
	"github.com/goliatone/go-locsync/pkg/testsupport"
	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

func newTestDB(t *testing.T, name string) *bun.DB {
	t.Helper()
	db, err := testsupport.NewBunSQLite(context.Background(), name, (*Language)(nil))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBunLanguageRepositoryBackedService(t *testing.T) {
	ctx := context.Background()
	repo := NewBunLanguageRepository(newTestDB(t, "languages_service"))
	svc := NewService(repo)

	if _, err := svc.Create(ctx, CreateLanguageInput{Code: "fr", Name: "Français", IsDefault: true}); err != nil {
		t.Fatalf("create fr: %v", err)
	}
	if _, err := svc.Create(ctx, CreateLanguageInput{Code: "en", Priority: 1}); err != nil {
		t.Fatalf("create en: %v", err)
	}

	got, err := repo.GetByCode(ctx, "fr")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if got.Name != "Français" || !got.IsDefault {
		t.Fatalf("unexpected record %+v", got)
	}
	if _, err := repo.GetByCode(ctx, "de"); err == nil {
		t.Fatalf("expected not found")
	} else {
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("expected NotFoundError, got %T", err)
		}
	}

	if svc.Default(ctx) != "fr" {
		t.Fatalf("expected default fr")
	}
	active := svc.Active(ctx)
	if len(active) != 2 || active[0] != "fr" || active[1] != "en" {
		t.Fatalf("unexpected active languages %v", active)
	}
}

func TestBunLanguageRepositoryWithCache(t *testing.T) {
	ctx := context.Background()
	cfg := repocache.DefaultConfig()
	cacheService, err := repocache.NewCacheService(cfg)
	if err != nil {
		t.Fatalf("cache service: %v", err)
	}
	repo := NewBunLanguageRepositoryWithCache(newTestDB(t, "languages_cached"), cacheService, repocache.NewDefaultKeySerializer())

	lang := &Language{ID: identity.LanguageUUID("es"), Code: "es", Name: "Español", IsActive: true}
	if _, err := repo.Create(ctx, lang); err != nil {
		t.Fatalf("create: %v", err)
	}
	first, err := repo.GetByID(ctx, lang.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := repo.GetByID(ctx, lang.ID)
	if err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if first.Code != second.Code {
		t.Fatalf("expected cached record to match")
	}
}

package languages

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewLanguageRepository creates a generic repository for language records.
func NewLanguageRepository(db *bun.DB) repository.Repository[*Language] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Language]{
		NewRecord: func() *Language { return &Language{} },
		GetID: func(lang *Language) uuid.UUID {
			return lang.ID
		},
		SetID: func(lang *Language, id uuid.UUID) {
			lang.ID = id
		},
		GetIdentifier: func() string {
			return "code"
		},
		GetIdentifierValue: func(lang *Language) string {
			return lang.Code
		},
	})
}

// BunLanguageRepository implements LanguageRepository with optional caching.
type BunLanguageRepository struct {
	repo repository.Repository[*Language]
}

// NewBunLanguageRepository creates a language repository without caching.
func NewBunLanguageRepository(db *bun.DB) *BunLanguageRepository {
	return NewBunLanguageRepositoryWithCache(db, nil, nil)
}

// NewBunLanguageRepositoryWithCache creates a language repository with caching support.
func NewBunLanguageRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunLanguageRepository {
	base := NewLanguageRepository(db)
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
	}
	return &BunLanguageRepository{repo: base}
}

func (r *BunLanguageRepository) Create(ctx context.Context, lang *Language) (*Language, error) {
	return r.repo.Create(ctx, lang)
}

func (r *BunLanguageRepository) Update(ctx context.Context, lang *Language) (*Language, error) {
	return r.repo.Update(ctx, lang,
		repository.UpdateByID(lang.ID.String()),
		repository.UpdateColumns(
			"name",
			"is_active",
			"is_default",
			"priority",
			"updated_at",
		),
	)
}

func (r *BunLanguageRepository) GetByID(ctx context.Context, id uuid.UUID) (*Language, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "language", id.String())
	}
	return record, nil
}

func (r *BunLanguageRepository) GetByCode(ctx context.Context, code string) (*Language, error) {
	record, err := r.repo.GetByIdentifier(ctx, code)
	if err != nil {
		return nil, mapRepositoryError(err, "language", code)
	}
	return record, nil
}

func (r *BunLanguageRepository) List(ctx context.Context) ([]*Language, error) {
	records, _, err := r.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("?TableAlias.priority ASC, ?TableAlias.code ASC")
	}))
	return records, err
}

func (r *BunLanguageRepository) ListActive(ctx context.Context) ([]*Language, error) {
	records, _, err := r.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.is_active = TRUE").
			OrderExpr("?TableAlias.priority ASC, ?TableAlias.code ASC")
	}))
	return records, err
}

func (r *BunLanguageRepository) GetDefault(ctx context.Context) (*Language, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.is_default = TRUE")
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Resource: "language", Key: "default"}
	}
	return records[0], nil
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if errors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: resource, Key: key}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}

package keys

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync/internal/textutil"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewKeyRepository creates a generic repository for translatable keys.
func NewKeyRepository(db *bun.DB) repository.Repository[*TranslatableKey] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*TranslatableKey]{
		NewRecord: func() *TranslatableKey { return &TranslatableKey{} },
		GetID: func(key *TranslatableKey) uuid.UUID {
			return key.ID
		},
		SetID: func(key *TranslatableKey, id uuid.UUID) {
			key.ID = id
		},
		GetIdentifier: func() string {
			return "checksum"
		},
		GetIdentifierValue: func(key *TranslatableKey) string {
			return key.Checksum
		},
	})
}

// BunKeyRepository implements KeyRepository with optional caching.
type BunKeyRepository struct {
	repo repository.Repository[*TranslatableKey]
}

// NewBunKeyRepository creates a key repository without caching.
func NewBunKeyRepository(db *bun.DB) *BunKeyRepository {
	return NewBunKeyRepositoryWithCache(db, nil, nil)
}

// NewBunKeyRepositoryWithCache creates a key repository with caching support.
func NewBunKeyRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunKeyRepository {
	base := NewKeyRepository(db)
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
	}
	return &BunKeyRepository{repo: base}
}

func (r *BunKeyRepository) Create(ctx context.Context, key *TranslatableKey) (*TranslatableKey, error) {
	record, err := r.repo.Create(ctx, key)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{TenantID: key.TenantID, Scope: key.Scope, Key: key.Key}
		}
		return nil, err
	}
	return record, nil
}

func (r *BunKeyRepository) UpdatePromptTemplate(ctx context.Context, key *TranslatableKey) (*TranslatableKey, error) {
	updated, err := r.repo.Update(ctx, key,
		repository.UpdateByID(key.ID.String()),
		repository.UpdateColumns("prompt_template", "updated_at"),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "translatable key", key.ID.String())
	}
	return updated, nil
}

func (r *BunKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*TranslatableKey, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "translatable key", id.String())
	}
	return record, nil
}

func (r *BunKeyRepository) GetByNaturalKey(ctx context.Context, tenantID, scope, key string) (*TranslatableKey, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.tenant_id = ?", tenantID).
				Where("?TableAlias.scope = ?", scope).
				Where("?TableAlias.key = ?", key)
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "translatable key", scope+":"+key)
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Resource: "translatable key", Key: scope + ":" + key}
	}
	return records[0], nil
}

func (r *BunKeyRepository) ListByIDs(ctx context.Context, tenantID string, ids []uuid.UUID) ([]*TranslatableKey, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	records, _, err := r.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.tenant_id = ?", tenantID).
			Where("?TableAlias.id IN (?)", bun.In(ids)).
			OrderExpr("?TableAlias.scope ASC, ?TableAlias.key ASC")
	}))
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *BunKeyRepository) ListByScope(ctx context.Context, tenantID string, filter ScopeFilter) ([]*TranslatableKey, error) {
	scope := strings.TrimSpace(filter.Scope)
	records, _, err := r.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("?TableAlias.tenant_id = ?", tenantID)
		if scope != "" {
			q = q.WhereGroup(" AND ", func(g *bun.SelectQuery) *bun.SelectQuery {
				return g.Where("?TableAlias.scope = ?", scope).
					WhereOr("?TableAlias.scope LIKE ? ESCAPE '!'", textutil.ChildScopePattern(scope))
			})
		}
		if len(filter.Fields) > 0 {
			q = q.Where("?TableAlias.key IN (?)", bun.In(filter.Fields))
		}
		return q.OrderExpr("?TableAlias.scope ASC, ?TableAlias.key ASC")
	}))
	if err != nil {
		return nil, err
	}
	return records, nil
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

func isUniqueViolation(err error) bool {
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") || strings.Contains(message, "duplicate key")
}

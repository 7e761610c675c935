package translations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync/internal/textutil"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewTranslationRepository creates a generic repository for translation rows.
func NewTranslationRepository(db *bun.DB) repository.Repository[*Translation] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Translation]{
		NewRecord: func() *Translation { return &Translation{} },
		GetID: func(tr *Translation) uuid.UUID {
			return tr.ID
		},
		SetID: func(tr *Translation, id uuid.UUID) {
			tr.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(tr *Translation) string {
			return tr.ID.String()
		},
	})
}

// BunTranslationRepository implements TranslationRepository on bun. Natural
// key lookups and sweeps use bun queries directly.
type BunTranslationRepository struct {
	db   *bun.DB
	repo repository.Repository[*Translation]
}

// NewBunTranslationRepository creates a translation repository.
func NewBunTranslationRepository(db *bun.DB) *BunTranslationRepository {
	return &BunTranslationRepository{db: db, repo: NewTranslationRepository(db)}
}

func (r *BunTranslationRepository) Create(ctx context.Context, tr *Translation) (*Translation, error) {
	created, err := r.repo.Create(ctx, tr)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{KeyID: tr.KeyID, Language: tr.Language, TenantID: tr.TenantID}
		}
		return nil, fmt.Errorf("translation repository error: %w", err)
	}
	return created, nil
}

func (r *BunTranslationRepository) Update(ctx context.Context, tr *Translation) (*Translation, error) {
	expected := tr.Version - 1
	updated, err := r.repo.Update(ctx, tr,
		repository.UpdateByID(tr.ID.String()),
		repository.UpdateRawProcessor(func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Where("?TableAlias.version = ?", expected)
		}),
		repository.UpdateColumns(
			"text",
			"version",
			"origin",
			"source_checksum",
			"alerts",
			"embedding",
			"reviewer",
			"updated_at",
		),
	)
	if err != nil {
		if repository.IsSQLExpectedCountViolation(err) {
			current, getErr := r.GetByID(ctx, tr.ID)
			if getErr != nil {
				return nil, getErr
			}
			return nil, &VersionConflictError{ID: tr.ID, Expected: expected, Actual: current.Version}
		}
		return nil, mapRepositoryError(err, "translation", tr.ID.String())
	}
	return updated, nil
}

func (r *BunTranslationRepository) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	record := &Translation{ID: id, Embedding: embedding, UpdatedAt: time.Now().UTC()}
	res, err := r.db.NewUpdate().
		Model(record).
		Column("embedding", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("translation repository error: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return &NotFoundError{Resource: "translation", Key: id.String()}
	}
	return nil
}

func (r *BunTranslationRepository) GetByID(ctx context.Context, id uuid.UUID) (*Translation, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "translation", id.String())
	}
	return record, nil
}

func (r *BunTranslationRepository) Get(ctx context.Context, tenantID string, keyID uuid.UUID, language string) (*Translation, error) {
	record := new(Translation)
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.tenant_id = ?", tenantID).
		Where("?TableAlias.key_id = ?", keyID).
		Where("?TableAlias.language = ?", language).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "translation", Key: keyID.String() + ":" + language}
		}
		return nil, fmt.Errorf("translation repository error: %w", err)
	}
	return record, nil
}

func (r *BunTranslationRepository) List(ctx context.Context, tenantID string, filter ListFilter) ([]*Translation, error) {
	var records []*Translation
	q := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.tenant_id = ?", tenantID)
	if filter.Language != "" {
		q = q.Where("?TableAlias.language = ?", filter.Language)
	}
	if len(filter.KeyIDs) > 0 {
		q = q.Where("?TableAlias.key_id IN (?)", bun.In(filter.KeyIDs))
	}
	if filter.MissingEmbedding {
		q = q.Where("?TableAlias.embedding IS NULL")
	}
	if len(filter.Scopes) > 0 {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			for _, scope := range filter.Scopes {
				sq = sq.WhereOr("?TableAlias.scope = ?", scope).
					WhereOr("?TableAlias.scope LIKE ? ESCAPE '!'", textutil.ChildScopePattern(scope))
			}
			return sq
		})
	}
	q = q.OrderExpr("?TableAlias.scope ASC, ?TableAlias.created_at ASC, ?TableAlias.id ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("translation repository error: %w", err)
	}
	return records, nil
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: resource, Key: key}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") || strings.Contains(message, "duplicate key")
}

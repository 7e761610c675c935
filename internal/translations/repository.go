package translations

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// TranslationRepository persists translation rows.
type TranslationRepository interface {
	Create(ctx context.Context, tr *Translation) (*Translation, error)
	// Update replaces the row only while its stored version is tr.Version-1
	// and returns a VersionConflictError otherwise.
	Update(ctx context.Context, tr *Translation) (*Translation, error)
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	GetByID(ctx context.Context, id uuid.UUID) (*Translation, error)
	Get(ctx context.Context, tenantID string, keyID uuid.UUID, language string) (*Translation, error)
	List(ctx context.Context, tenantID string, filter ListFilter) ([]*Translation, error)
}

// ListFilter narrows List results. Zero values do not filter.
type ListFilter struct {
	KeyIDs           []uuid.UUID
	Language         string
	Scopes           []string
	MissingEmbedding bool
	Limit            int
}

// Matches applies the filter to a single row.
func (f ListFilter) Matches(tr *Translation) bool {
	if tr == nil {
		return false
	}
	if f.Language != "" && tr.Language != f.Language {
		return false
	}
	if f.MissingEmbedding && tr.Embedding != nil {
		return false
	}
	if len(f.KeyIDs) > 0 {
		found := false
		for _, id := range f.KeyIDs {
			if id == tr.KeyID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Scopes) > 0 {
		matched := false
		for _, scope := range f.Scopes {
			if tr.Scope == scope || strings.HasPrefix(tr.Scope, scope+":") {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// NotFoundError is returned when a translation cannot be located.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// ConflictError is returned when a live row already exists for the key,
// language and tenant.
type ConflictError struct {
	KeyID    uuid.UUID
	Language string
	TenantID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("translation for key %s [%s] already exists for tenant %s", e.KeyID, e.Language, e.TenantID)
}

// VersionConflictError is returned by Update when another write bumped the
// row first.
type VersionConflictError struct {
	ID       uuid.UUID
	Expected int
	Actual   int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("translation %s is at version %d, expected %d", e.ID, e.Actual, e.Expected)
}

func sortTranslations(records []*Translation) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Scope != records[j].Scope {
			return records[i].Scope < records[j].Scope
		}
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID.String() < records[j].ID.String()
	})
}

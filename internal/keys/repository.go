package keys

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// KeyRepository exposes persistence operations for translatable keys.
type KeyRepository interface {
	Create(ctx context.Context, key *TranslatableKey) (*TranslatableKey, error)
	UpdatePromptTemplate(ctx context.Context, key *TranslatableKey) (*TranslatableKey, error)
	GetByID(ctx context.Context, id uuid.UUID) (*TranslatableKey, error)
	GetByNaturalKey(ctx context.Context, tenantID, scope, key string) (*TranslatableKey, error)
	ListByIDs(ctx context.Context, tenantID string, ids []uuid.UUID) ([]*TranslatableKey, error)
	ListByScope(ctx context.Context, tenantID string, filter ScopeFilter) ([]*TranslatableKey, error)
}

// ScopeFilter selects keys by scope. A scope matches itself and every
// descendant scope:*. Fields, when set, restricts the key column.
type ScopeFilter struct {
	Scope  string
	Fields []string
}

// Matches reports whether the key satisfies the filter.
func (f ScopeFilter) Matches(key *TranslatableKey) bool {
	if key == nil {
		return false
	}
	scope := strings.TrimSpace(f.Scope)
	if scope != "" && key.Scope != scope && !strings.HasPrefix(key.Scope, scope+":") {
		return false
	}
	if len(f.Fields) == 0 {
		return true
	}
	for _, field := range f.Fields {
		if key.Key == field {
			return true
		}
	}
	return false
}

// NotFoundError is returned when a key cannot be located.
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

// ConflictError is returned when the natural key is already taken.
type ConflictError struct {
	TenantID string
	Scope    string
	Key      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("key %s:%s already exists for tenant %s", e.Scope, e.Key, e.TenantID)
}

func sortKeys(records []*TranslatableKey) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Scope == records[j].Scope {
			return records[i].Key < records[j].Key
		}
		return records[i].Scope < records[j].Scope
	})
}

package languages

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// LanguageRepository exposes persistence operations for languages.
type LanguageRepository interface {
	Create(ctx context.Context, lang *Language) (*Language, error)
	Update(ctx context.Context, lang *Language) (*Language, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Language, error)
	GetByCode(ctx context.Context, code string) (*Language, error)
	List(ctx context.Context) ([]*Language, error)
	ListActive(ctx context.Context) ([]*Language, error)
	GetDefault(ctx context.Context) (*Language, error)
}

// NotFoundError is returned when a language cannot be located.
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

// sortByPriority orders languages by ascending priority, then code.
func sortByPriority(records []*Language) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Priority == records[j].Priority {
			return records[i].Code < records[j].Code
		}
		return records[i].Priority < records[j].Priority
	})
}

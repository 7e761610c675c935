package translations

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]*Translation
	byNatural map[string]uuid.UUID
}

// NewMemoryRepository constructs an in-memory translation repository.
func NewMemoryRepository() TranslationRepository {
	return &memoryRepository{
		byID:      make(map[uuid.UUID]*Translation),
		byNatural: make(map[string]uuid.UUID),
	}
}

func naturalKey(tenantID string, keyID uuid.UUID, language string) string {
	return tenantID + "\x00" + keyID.String() + "\x00" + language
}

func (m *memoryRepository) Create(_ context.Context, tr *Translation) (*Translation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	natural := naturalKey(tr.TenantID, tr.KeyID, tr.Language)
	if _, exists := m.byNatural[natural]; exists {
		return nil, &ConflictError{KeyID: tr.KeyID, Language: tr.Language, TenantID: tr.TenantID}
	}
	if _, exists := m.byID[tr.ID]; exists {
		return nil, &ConflictError{KeyID: tr.KeyID, Language: tr.Language, TenantID: tr.TenantID}
	}
	cloned := cloneTranslation(tr)
	m.byID[cloned.ID] = cloned
	m.byNatural[natural] = cloned.ID
	return cloneTranslation(cloned), nil
}

func (m *memoryRepository) Update(_ context.Context, tr *Translation) (*Translation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byID[tr.ID]
	if !ok {
		return nil, &NotFoundError{Resource: "translation", Key: tr.ID.String()}
	}
	if current.Version != tr.Version-1 {
		return nil, &VersionConflictError{ID: tr.ID, Expected: tr.Version - 1, Actual: current.Version}
	}
	cloned := cloneTranslation(tr)
	m.byID[cloned.ID] = cloned
	return cloneTranslation(cloned), nil
}

func (m *memoryRepository) UpdateEmbedding(_ context.Context, id uuid.UUID, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byID[id]
	if !ok {
		return &NotFoundError{Resource: "translation", Key: id.String()}
	}
	if embedding == nil {
		record.Embedding = nil
		return nil
	}
	record.Embedding = append([]float32(nil), embedding...)
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Translation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.byID[id]
	if !ok {
		return nil, &NotFoundError{Resource: "translation", Key: id.String()}
	}
	return cloneTranslation(record), nil
}

func (m *memoryRepository) Get(_ context.Context, tenantID string, keyID uuid.UUID, language string) (*Translation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byNatural[naturalKey(tenantID, keyID, language)]
	if !ok {
		return nil, &NotFoundError{Resource: "translation", Key: keyID.String() + ":" + language}
	}
	return cloneTranslation(m.byID[id]), nil
}

func (m *memoryRepository) List(_ context.Context, tenantID string, filter ListFilter) ([]*Translation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Translation
	for _, record := range m.byID {
		if record.TenantID != tenantID || !filter.Matches(record) {
			continue
		}
		out = append(out, cloneTranslation(record))
	}
	sortTranslations(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

package keys

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]*TranslatableKey
	byNatural map[string]uuid.UUID
}

// NewMemoryRepository constructs an in-memory key repository.
func NewMemoryRepository() KeyRepository {
	return &memoryRepository{
		byID:      make(map[uuid.UUID]*TranslatableKey),
		byNatural: make(map[string]uuid.UUID),
	}
}

func naturalKey(tenantID, scope, key string) string {
	return tenantID + "\x00" + scope + "\x00" + key
}

func (m *memoryRepository) Create(_ context.Context, key *TranslatableKey) (*TranslatableKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	natural := naturalKey(key.TenantID, key.Scope, key.Key)
	if _, exists := m.byNatural[natural]; exists {
		return nil, &ConflictError{TenantID: key.TenantID, Scope: key.Scope, Key: key.Key}
	}
	cloned := cloneKey(key)
	m.byID[cloned.ID] = cloned
	m.byNatural[natural] = cloned.ID
	return cloneKey(cloned), nil
}

func (m *memoryRepository) UpdatePromptTemplate(_ context.Context, key *TranslatableKey) (*TranslatableKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.byID[key.ID]
	if !ok {
		return nil, &NotFoundError{Resource: "translatable key", Key: key.ID.String()}
	}
	updated := cloneKey(existing)
	if key.PromptTemplate != nil {
		tpl := *key.PromptTemplate
		updated.PromptTemplate = &tpl
	} else {
		updated.PromptTemplate = nil
	}
	updated.UpdatedAt = key.UpdatedAt
	m.byID[updated.ID] = updated
	return cloneKey(updated), nil
}

func (m *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*TranslatableKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.byID[id]
	if !ok {
		return nil, &NotFoundError{Resource: "translatable key", Key: id.String()}
	}
	return cloneKey(record), nil
}

func (m *memoryRepository) GetByNaturalKey(_ context.Context, tenantID, scope, key string) (*TranslatableKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byNatural[naturalKey(tenantID, scope, key)]
	if !ok {
		return nil, &NotFoundError{Resource: "translatable key", Key: scope + ":" + key}
	}
	return cloneKey(m.byID[id]), nil
}

func (m *memoryRepository) ListByIDs(_ context.Context, tenantID string, ids []uuid.UUID) ([]*TranslatableKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*TranslatableKey, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		record, ok := m.byID[id]
		if !ok || record.TenantID != tenantID {
			continue
		}
		records = append(records, cloneKey(record))
	}
	sortKeys(records)
	return records, nil
}

func (m *memoryRepository) ListByScope(_ context.Context, tenantID string, filter ScopeFilter) ([]*TranslatableKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*TranslatableKey, 0)
	for _, record := range m.byID {
		if record.TenantID != tenantID || !filter.Matches(record) {
			continue
		}
		records = append(records, cloneKey(record))
	}
	sortKeys(records)
	return records, nil
}

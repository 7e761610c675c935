package languages

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Language
	byCode map[string]uuid.UUID
}

// NewMemoryRepository constructs an in-memory language repository.
func NewMemoryRepository() LanguageRepository {
	return &memoryRepository{
		byID:   make(map[uuid.UUID]*Language),
		byCode: make(map[string]uuid.UUID),
	}
}

func (m *memoryRepository) Create(_ context.Context, lang *Language) (*Language, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := cloneLanguage(lang)
	m.byID[cloned.ID] = cloned
	m.byCode[cloned.Code] = cloned.ID
	return cloneLanguage(cloned), nil
}

func (m *memoryRepository) Update(_ context.Context, lang *Language) (*Language, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[lang.ID]; !ok {
		return nil, &NotFoundError{Resource: "language", Key: lang.ID.String()}
	}
	cloned := cloneLanguage(lang)
	m.byID[cloned.ID] = cloned
	m.byCode[cloned.Code] = cloned.ID
	return cloneLanguage(cloned), nil
}

func (m *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Language, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.byID[id]
	if !ok {
		return nil, &NotFoundError{Resource: "language", Key: id.String()}
	}
	return cloneLanguage(record), nil
}

func (m *memoryRepository) GetByCode(_ context.Context, code string) (*Language, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byCode[code]
	if !ok {
		return nil, &NotFoundError{Resource: "language", Key: code}
	}
	return cloneLanguage(m.byID[id]), nil
}

func (m *memoryRepository) List(_ context.Context) ([]*Language, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*Language, 0, len(m.byID))
	for _, record := range m.byID {
		records = append(records, cloneLanguage(record))
	}
	sortByPriority(records)
	return records, nil
}

func (m *memoryRepository) ListActive(_ context.Context) ([]*Language, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*Language, 0, len(m.byID))
	for _, record := range m.byID {
		if record == nil || !record.IsActive {
			continue
		}
		records = append(records, cloneLanguage(record))
	}
	sortByPriority(records)
	return records, nil
}

func (m *memoryRepository) GetDefault(_ context.Context) (*Language, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, record := range m.byID {
		if record != nil && record.IsDefault {
			return cloneLanguage(record), nil
		}
	}
	return nil, &NotFoundError{Resource: "language", Key: "default"}
}

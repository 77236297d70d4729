package repository

import (
	"context"
	"sync"

	"github.com/ricirt/pulse/internal/domain"
)

// MemorySubjectRepository keeps subjects in a map. Callers receive copies,
// so nothing outside the repository can mutate stored subjects.
type MemorySubjectRepository struct {
	mu       sync.RWMutex
	subjects map[string]*domain.Subject

	// Optional error override, set in tests to simulate an unavailable directory.
	GetByIDErr error
}

func NewMemorySubjectRepository() *MemorySubjectRepository {
	return &MemorySubjectRepository{subjects: make(map[string]*domain.Subject)}
}

func (m *MemorySubjectRepository) GetByID(_ context.Context, id string) (*domain.Subject, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneSubject(s), nil
}

func (m *MemorySubjectRepository) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subjects), nil
}

func (m *MemorySubjectRepository) Seed(_ context.Context, subjects []domain.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range subjects {
		if _, exists := m.subjects[subjects[i].ID]; exists {
			continue
		}
		m.subjects[subjects[i].ID] = cloneSubject(&subjects[i])
	}
	return nil
}

func cloneSubject(s *domain.Subject) *domain.Subject {
	clone := *s
	clone.Hobbies = append([]string(nil), s.Hobbies...)
	return &clone
}

var _ SubjectRepository = (*MemorySubjectRepository)(nil)

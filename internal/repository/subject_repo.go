package repository

import (
	"context"

	"github.com/ricirt/pulse/internal/domain"
)

// SubjectRepository is the subject lookup the core consumes.
// The pgx implementation is in pg_subject_repo.go; the in-memory one in
// memory_subject_repo.go serves deployments without a database and tests.
type SubjectRepository interface {
	// GetByID returns domain.ErrNotFound when no subject has the given ID.
	GetByID(ctx context.Context, id string) (*domain.Subject, error)
	Count(ctx context.Context) (int, error)
	// Seed stores subjects, leaving existing IDs untouched.
	Seed(ctx context.Context, subjects []domain.Subject) error
}

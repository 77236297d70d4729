package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ricirt/pulse/internal/domain"
)

type pgSubjectRepository struct {
	pool *pgxpool.Pool
}

// NewPgSubjectRepository returns a SubjectRepository backed by PostgreSQL.
// The subjects table is created by the migrations in migrations/.
func NewPgSubjectRepository(pool *pgxpool.Pool) SubjectRepository {
	return &pgSubjectRepository{pool: pool}
}

func (r *pgSubjectRepository) GetByID(ctx context.Context, id string) (*domain.Subject, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, avatar, age, nationality, hobbies
		FROM subjects WHERE id = $1`, id)

	var s domain.Subject
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Avatar, &s.Age, &s.Nationality, &s.Hobbies)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return &s, nil
}

func (r *pgSubjectRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM subjects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subjects: %w", err)
	}
	return n, nil
}

// Seed inserts all subjects in one batch round trip; existing IDs are skipped.
func (r *pgSubjectRepository) Seed(ctx context.Context, subjects []domain.Subject) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, s := range subjects {
		batch.Queue(`
			INSERT INTO subjects (id, name, email, avatar, age, nationality, hobbies)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO NOTHING`,
			s.ID, s.Name, s.Email, s.Avatar, s.Age, s.Nationality, s.Hobbies,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert subjects: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit subjects: %w", err)
	}
	return nil
}

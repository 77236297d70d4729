package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/ricirt/pulse/internal/domain"
	"github.com/ricirt/pulse/internal/repository"
)

func TestMemorySubjectRepository_GetByID(t *testing.T) {
	repo := repository.NewMemorySubjectRepository()
	ctx := context.Background()

	_ = repo.Seed(ctx, []domain.Subject{{ID: "u1", Name: "Ada", Hobbies: []string{"Chess"}}})

	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Ada" {
		t.Fatalf("expected Ada, got %q", got.Name)
	}

	// Callers get copies.
	got.Hobbies[0] = "Mutated"
	again, _ := repo.GetByID(ctx, "u1")
	if again.Hobbies[0] != "Chess" {
		t.Fatal("stored subject was mutated through a returned copy")
	}
}

func TestMemorySubjectRepository_NotFound(t *testing.T) {
	repo := repository.NewMemorySubjectRepository()
	if _, err := repo.GetByID(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemorySubjectRepository_SeedKeepsExisting(t *testing.T) {
	repo := repository.NewMemorySubjectRepository()
	ctx := context.Background()

	_ = repo.Seed(ctx, []domain.Subject{{ID: "u1", Name: "first"}})
	_ = repo.Seed(ctx, []domain.Subject{{ID: "u1", Name: "second"}, {ID: "u2"}})

	got, _ := repo.GetByID(ctx, "u1")
	if got.Name != "first" {
		t.Fatalf("expected existing subject to win, got %q", got.Name)
	}
	if n, _ := repo.Count(ctx); n != 2 {
		t.Fatalf("expected 2 subjects, got %d", n)
	}
}

func TestGenerateSubjects(t *testing.T) {
	subjects := repository.GenerateSubjects(gofakeit.New(1), 50)
	if len(subjects) != 50 {
		t.Fatalf("expected 50 subjects, got %d", len(subjects))
	}

	ids := make(map[string]struct{})
	for _, s := range subjects {
		if s.ID == "" || s.Name == "" || s.Nationality == "" {
			t.Fatalf("incomplete subject: %+v", s)
		}
		if s.Age < 18 || s.Age > 80 {
			t.Fatalf("age out of range: %d", s.Age)
		}
		if len(s.Hobbies) < 2 || len(s.Hobbies) > 5 {
			t.Fatalf("expected 2-5 hobbies, got %d", len(s.Hobbies))
		}
		seen := make(map[string]bool)
		for _, h := range s.Hobbies {
			if seen[h] {
				t.Fatalf("duplicate hobby %q in %v", h, s.Hobbies)
			}
			seen[h] = true
		}
		ids[s.ID] = struct{}{}
	}
	if len(ids) != 50 {
		t.Fatalf("expected unique ids, got %d", len(ids))
	}
}

func TestSeedIfEmpty(t *testing.T) {
	repo := repository.NewMemorySubjectRepository()
	ctx := context.Background()

	n, err := repository.SeedIfEmpty(ctx, repo, gofakeit.New(1), 10)
	if err != nil || n != 10 {
		t.Fatalf("first seed: n=%d err=%v", n, err)
	}

	n, err = repository.SeedIfEmpty(ctx, repo, gofakeit.New(2), 10)
	if err != nil || n != 0 {
		t.Fatalf("second seed should be a no-op: n=%d err=%v", n, err)
	}
	if count, _ := repo.Count(ctx); count != 10 {
		t.Fatalf("expected 10 subjects, got %d", count)
	}
}

package repository

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/ricirt/pulse/internal/domain"
)

var hobbyList = []string{
	"Reading", "Gaming", "Cooking", "Photography", "Hiking", "Swimming",
	"Cycling", "Yoga", "Painting", "Music", "Gardening", "Dancing",
	"Writing", "Traveling", "Fishing", "Camping", "Running", "Chess",
	"Knitting", "Pottery", "Woodworking", "Bird Watching", "Astronomy",
	"Archery", "Rock Climbing", "Surfing", "Skateboarding", "Martial Arts",
}

var nationalityList = []string{
	"American", "British", "Canadian", "Australian", "German", "French",
	"Japanese", "Korean", "Chinese", "Indian", "Brazilian", "Mexican",
	"Italian", "Spanish", "Dutch", "Swedish", "Norwegian", "Danish",
	"Polish", "Russian", "Turkish", "Greek", "Egyptian", "South African",
}

// GenerateSubjects fabricates n demo subjects. The same seed yields the same subjects.
func GenerateSubjects(faker *gofakeit.Faker, n int) []domain.Subject {
	subjects := make([]domain.Subject, n)
	for i := range subjects {
		subjects[i] = domain.Subject{
			ID:          faker.UUID(),
			Name:        faker.Name(),
			Email:       faker.Email(),
			Age:         faker.Number(18, 80),
			Nationality: faker.RandomString(nationalityList),
			Hobbies:     pickHobbies(faker, faker.Number(2, 5)),
		}
		subjects[i].Avatar = fmt.Sprintf("https://i.pravatar.cc/150?u=%s", subjects[i].ID)
	}
	return subjects
}

func pickHobbies(faker *gofakeit.Faker, n int) []string {
	idx := make([]int, len(hobbyList))
	for i := range idx {
		idx[i] = i
	}
	faker.ShuffleAnySlice(idx)

	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = hobbyList[idx[i]]
	}
	return out
}

// SeedIfEmpty fills an empty directory with generated subjects and reports
// how many were written (zero when the directory already had data).
func SeedIfEmpty(ctx context.Context, repo SubjectRepository, faker *gofakeit.Faker, n int) (int, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 || n <= 0 {
		return 0, nil
	}
	if err := repo.Seed(ctx, GenerateSubjects(faker, n)); err != nil {
		return 0, fmt.Errorf("seed subjects: %w", err)
	}
	return n, nil
}

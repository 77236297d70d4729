package db_test

import (
	"testing"

	"github.com/ricirt/pulse/internal/db"
)

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/pulse?sslmode=disable", "pgx5://u:p@localhost:5432/pulse?sslmode=disable"},
		{"postgresql://u:p@db/pulse", "pgx5://u:p@db/pulse"},
		{"pgx5://u:p@db/pulse", "pgx5://u:p@db/pulse"},
		{"u:p@db/pulse", "pgx5://u:p@db/pulse"},
	}

	for _, tc := range tests {
		if got := db.MigrationURL(tc.in); got != tc.want {
			t.Errorf("MigrationURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

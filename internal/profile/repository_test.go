package profile

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drshelkeabhijeet/Studentattendance/internal/model"
)

func openTestDB(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("PROFILE_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("PROFILE_TEST_DB or DATABASE_URL not set")
		return nil
	}
	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	return pool
}

func TestInsertAndGet(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	repo := NewPGRepository(pool)
	ctx := context.Background()

	id := uuid.NewString()
	studentID := "STU-2026-1001"
	record := model.Profile{
		ID:         id,
		Email:      "it." + id[:8] + "@example.local",
		FullName:   "Integration Test",
		Role:       model.RoleStudent,
		StudentID:  &studentID,
		Department: "Management Science",
	}
	if err := repo.Insert(ctx, record); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.GetByIdentityID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != record.Email || got.Role != model.RoleStudent {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.StudentID == nil || *got.StudentID != studentID {
		t.Fatalf("expected student id %s, got %v", studentID, got.StudentID)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	if err := repo.Insert(ctx, record); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on second insert, got %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	repo := NewPGRepository(pool)
	_, err := repo.GetByIdentityID(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

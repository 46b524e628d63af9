package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"finances/internal/core"
)

func TestMemoryStoreCategories(t *testing.T) {
	s := New("A", "B", "A", " ")
	cats, err := s.ListCategories(context.Background())
	if err != nil || len(cats) != 2 {
		t.Fatalf("unexpected list: cats=%v err=%v", cats, err)
	}

	err = s.CreateCategory(context.Background(), core.Category{ID: "x", Title: "A"})
	if !errors.Is(err, core.ErrCategoryExists) {
		t.Fatalf("expected ErrCategoryExists, got %v", err)
	}

	created, err := s.CreateCategories(context.Background(), []core.Category{
		{ID: "1", Title: "B"},
		{ID: "2", Title: "C"},
	})
	if err != nil || len(created) != 1 || created[0].Title != "C" {
		t.Fatalf("unexpected created: %v err=%v", created, err)
	}

	found, _ := s.GetCategoriesByTitles(context.Background(), []string{"A", "C", "A", "Z"})
	if len(found) != 2 {
		t.Fatalf("expected 2 categories, got %v", found)
	}

	if _, err := s.GetCategoryByTitle(context.Background(), "Z"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreTransactions(t *testing.T) {
	ctx := context.Background()
	s := New("Job")
	job, _ := s.GetCategoryByTitle(ctx, "Job")

	tx := core.Transaction{
		ID: "t1", Title: "Salary", Type: core.Income, Value: core.Money{Cents: 500000},
		CategoryID: job.ID, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateTransaction(ctx, core.Transaction{ID: "bad", Type: core.Income}); err == nil {
		t.Fatalf("expected validation error for empty title")
	}

	got, err := s.GetTransaction(ctx, "t1")
	if err != nil || got.CategoryTitle() != "Job" {
		t.Fatalf("unexpected get: %+v err=%v", got, err)
	}

	if err := s.DeleteTransaction(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	list, _ := s.ListTransactions(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %v", list)
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	cats, _ := s.ListCategories(context.Background())
	if len(cats) != 0 {
		t.Fatalf("expected no categories when file missing, got %v", cats)
	}

	content := "# header\nFood\nRent\nFood\n\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	s = NewFromFiles(dir)
	cats, _ = s.ListCategories(context.Background())
	if len(cats) != 2 || cats[0].Title != "Food" || cats[1].Title != "Rent" {
		t.Fatalf("unexpected cats: %v", cats)
	}
}

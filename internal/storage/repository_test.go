package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finances/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "finances.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func newCategory(title string) core.Category {
	now := time.Now().UTC()
	return core.Category{ID: uuid.NewString(), Title: title, CreatedAt: now, UpdatedAt: now}
}

func newTransaction(title string, typ core.TransactionType, cents int64, categoryID string) core.Transaction {
	now := time.Now().UTC()
	return core.Transaction{
		ID: uuid.NewString(), Title: title, Type: typ, Value: core.Money{Cents: cents},
		CategoryID: categoryID, CreatedAt: now, UpdatedAt: now,
	}
}

func TestMigrationsApplied(t *testing.T) {
	_, path := newTestRepo(t)

	version, dirty, err := MigrationVersion(DSN(path))
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// Running again is a no-op.
	require.NoError(t, RunMigrations(DSN(path)))
}

func TestCategoryUniqueTitle(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	food := newCategory("Food")
	require.NoError(t, repo.CreateCategory(ctx, food))

	err := repo.CreateCategory(ctx, newCategory("Food"))
	assert.ErrorIs(t, err, core.ErrCategoryExists)

	got, err := repo.GetCategoryByTitle(ctx, "Food")
	require.NoError(t, err)
	assert.Equal(t, food.ID, got.ID)

	_, err = repo.GetCategoryByTitle(ctx, "food")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateCategoriesSkipsExisting(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateCategory(ctx, newCategory("Job")))

	created, err := repo.CreateCategories(ctx, []core.Category{newCategory("Job"), newCategory("Housing")})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Housing", created[0].Title)

	found, err := repo.GetCategoriesByTitles(ctx, []string{"Job", "Housing", "Missing"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	all, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Housing", all[0].Title)
}

func TestGetCategoriesByTitlesChunks(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	var cats []core.Category
	var titles []string
	for i := 0; i < maxInParams+10; i++ {
		c := newCategory(uuid.NewString())
		cats = append(cats, c)
		titles = append(titles, c.Title)
	}
	_, err := repo.CreateCategories(ctx, cats)
	require.NoError(t, err)

	found, err := repo.GetCategoriesByTitles(ctx, titles)
	require.NoError(t, err)
	assert.Len(t, found, len(titles))
}

func TestTransactionLifecycle(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	job := newCategory("Job")
	require.NoError(t, repo.CreateCategory(ctx, job))

	salary := newTransaction("Salary", core.Income, 500000, job.ID)
	require.NoError(t, repo.CreateTransaction(ctx, salary))

	got, err := repo.GetTransaction(ctx, salary.ID)
	require.NoError(t, err)
	assert.Equal(t, "Salary", got.Title)
	assert.Equal(t, core.Income, got.Type)
	assert.Equal(t, int64(500000), got.Value.Cents)
	assert.Equal(t, "Job", got.CategoryTitle())
	assert.True(t, salary.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, repo.DeleteTransaction(ctx, salary.ID))
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, salary.ID), core.ErrNotFound)

	_, err = repo.GetTransaction(ctx, salary.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateTransactionsBatchIsAtomic(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	housing := newCategory("Housing")
	require.NoError(t, repo.CreateCategory(ctx, housing))

	batch := []core.Transaction{
		newTransaction("Rent", core.Outcome, 120000, housing.ID),
		newTransaction("Broken", "transfer", 1, housing.ID),
	}
	require.Error(t, repo.CreateTransactions(ctx, batch))

	list, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	batch[1].Type = core.Income
	require.NoError(t, repo.CreateTransactions(ctx, batch))

	list, err = repo.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Rent", list[0].Title)
	assert.Equal(t, "Housing", list[1].CategoryTitle())
}

func TestTransactionRejectsUnknownCategory(t *testing.T) {
	repo, _ := newTestRepo(t)
	err := repo.CreateTransaction(context.Background(), newTransaction("Orphan", core.Income, 1, "no-such-id"))
	assert.Error(t, err)
}

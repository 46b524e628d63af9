package services

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finances/internal/cache"
	"finances/internal/core"
	"finances/internal/storage/memory"
)

type recordingPublisher struct {
	mu      sync.Mutex
	created []string
	deleted []string
	err     error
}

func (p *recordingPublisher) PublishTransactionCreated(_ context.Context, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, t.ID)
	return p.err
}

func (p *recordingPublisher) PublishTransactionDeleted(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
	return p.err
}

type fixture struct {
	store    *memory.Store
	events   *recordingPublisher
	balance  *BalanceService
	resolver *CategoryResolver
	create   *CreateTransactionService
	delete   *DeleteTransactionService
	importer *ImportTransactionsService
	dir      string
}

func newFixture(t *testing.T, seed ...string) *fixture {
	t.Helper()
	store := memory.New(seed...)
	events := &recordingPublisher{}
	balance := NewBalanceService(store)
	resolver := NewCategoryResolver(store, cache.NewLRUCache[core.Category](16, time.Minute))
	dir := t.TempDir()
	return &fixture{
		store:    store,
		events:   events,
		balance:  balance,
		resolver: resolver,
		create:   NewCreateTransactionService(balance, resolver, store, events),
		delete:   NewDeleteTransactionService(store, events),
		importer: NewImportTransactionsService(dir, resolver, store, events),
		dir:      dir,
	}
}

func (f *fixture) writeCSV(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o644))
}

func mustMoney(t *testing.T, s string) core.Money {
	t.Helper()
	m, err := core.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func TestGetBalanceEmptyStore(t *testing.T) {
	f := newFixture(t)
	b, err := f.balance.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.Balance{}, b)
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tx, err := f.create.Execute(ctx, CreateTransactionRequest{
		Title: " Salary ", Type: "income", Value: mustMoney(t, "5000"), Category: "Job",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "Salary", tx.Title)
	assert.Equal(t, "Job", tx.CategoryTitle())
	assert.Equal(t, []string{tx.ID}, f.events.created)

	b, err := f.balance.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), b.Total.Cents)
}

func TestCreateOutcomeRespectsBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.create.Execute(ctx, CreateTransactionRequest{Title: "Salary", Type: "income", Value: mustMoney(t, "100"), Category: "Job"})
	require.NoError(t, err)

	_, err = f.create.Execute(ctx, CreateTransactionRequest{Title: "TV", Type: "outcome", Value: mustMoney(t, "100.01"), Category: "Home"})
	require.Error(t, err)
	var appErr *core.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Negative balance", appErr.Message)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)

	list, _ := f.store.ListTransactions(ctx)
	assert.Len(t, list, 1)

	_, err = f.create.Execute(ctx, CreateTransactionRequest{Title: "Rent", Type: "outcome", Value: mustMoney(t, "100"), Category: "Home"})
	require.NoError(t, err)

	b, _ := f.balance.GetBalance(ctx)
	assert.Equal(t, int64(0), b.Total.Cents)
	total, err := b.Income.Sub(b.Outcome)
	require.NoError(t, err)
	assert.Equal(t, total, b.Total)
}

func TestCreateNearMaximumValues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	big := mustMoney(t, "46116860184273879.03")

	for i := 0; i < 2; i++ {
		_, err := f.create.Execute(ctx, CreateTransactionRequest{Title: "Windfall", Type: "income", Value: big, Category: "Job"})
		require.NoError(t, err)
	}

	_, err := f.create.Execute(ctx, CreateTransactionRequest{Title: "Windfall", Type: "income", Value: big, Category: "Job"})
	var appErr *core.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Balance limit exceeded", appErr.Message)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)

	_, err = f.create.Execute(ctx, CreateTransactionRequest{Title: "Coffee", Type: "outcome", Value: mustMoney(t, "1.00"), Category: "Food"})
	require.NoError(t, err)

	b, err := f.balance.GetBalance(ctx)
	require.NoError(t, err)
	assert.False(t, b.Total.IsNegative())
	assert.Equal(t, int64(2*4611686018427387903-100), b.Total.Cents)
}

func TestGetBalanceReportsOverflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	big := mustMoney(t, "46116860184273879.03")
	now := time.Now().UTC()

	var txs []core.Transaction
	for i := 0; i < 3; i++ {
		txs = append(txs, core.Transaction{ID: defaultID(), Title: "Windfall", Type: core.Income, Value: big, CreatedAt: now, UpdatedAt: now})
	}
	require.NoError(t, f.store.CreateTransactions(ctx, txs))

	_, err := f.balance.GetBalance(ctx)
	assert.ErrorIs(t, err, core.ErrAmountOverflow)
	_, err = f.balance.Overview(ctx)
	assert.ErrorIs(t, err, core.ErrAmountOverflow)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	cases := map[string]CreateTransactionRequest{
		"empty title":    {Title: " ", Type: "income", Value: mustMoney(t, "1"), Category: "Job"},
		"bad type":       {Title: "x", Type: "transfer", Value: mustMoney(t, "1"), Category: "Job"},
		"negative value": {Title: "x", Type: "income", Value: core.Money{Cents: -1}, Category: "Job"},
		"no category":    {Title: "x", Type: "income", Value: mustMoney(t, "1"), Category: " "},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.create.Execute(context.Background(), req)
			assert.Equal(t, http.StatusBadRequest, core.StatusOf(err))
		})
	}
	cats, _ := f.store.ListCategories(context.Background())
	assert.Empty(t, cats)
}

func TestCreateReusesExistingCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "Job")
	existing, _ := f.store.GetCategoryByTitle(ctx, "Job")

	tx, err := f.create.Execute(ctx, CreateTransactionRequest{Title: "Salary", Type: "income", Value: mustMoney(t, "1"), Category: "Job"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, tx.CategoryID)

	cats, _ := f.store.ListCategories(ctx)
	assert.Len(t, cats, 1)
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	_, err := f.create.Execute(context.Background(), CreateTransactionRequest{Title: "Salary", Type: "income", Value: mustMoney(t, "1"), Category: "Job"})
	assert.NoError(t, err)
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.delete.Execute(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, core.StatusOf(err))
	assert.ErrorIs(t, err, core.ErrNotFound)

	income, err := f.create.Execute(ctx, CreateTransactionRequest{Title: "Salary", Type: "income", Value: mustMoney(t, "50"), Category: "Job"})
	require.NoError(t, err)
	_, err = f.create.Execute(ctx, CreateTransactionRequest{Title: "Food", Type: "outcome", Value: mustMoney(t, "20"), Category: "Food"})
	require.NoError(t, err)

	require.NoError(t, f.delete.Execute(ctx, income.ID))
	assert.Equal(t, []string{income.ID}, f.events.deleted)

	// Deleting is allowed even though the total is now negative.
	b, _ := f.balance.GetBalance(ctx)
	assert.Equal(t, int64(0), b.Income.Cents)
	assert.Equal(t, int64(-2000), b.Total.Cents)
}

func TestResolveConcurrentSameTitle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := f.resolver.Resolve(ctx, "Groceries")
			if err == nil {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	cats, _ := f.store.ListCategories(ctx)
	assert.Len(t, cats, 1)
}

// conflictStore reports a title as absent on the first lookup, as if another
// process inserted it between the lookup and the insert.
type conflictStore struct {
	*memory.Store
	hideOnce sync.Once
}

func (s *conflictStore) GetCategoryByTitle(ctx context.Context, title string) (core.Category, error) {
	hidden := false
	s.hideOnce.Do(func() { hidden = true })
	if hidden {
		return core.Category{}, core.ErrNotFound
	}
	return s.Store.GetCategoryByTitle(ctx, title)
}

func TestResolveRefetchesOnConflict(t *testing.T) {
	ctx := context.Background()
	store := &conflictStore{Store: memory.New("Job")}
	want, _ := store.Store.GetCategoryByTitle(ctx, "Job")

	r := NewCategoryResolver(store, nil)
	got, err := r.Resolve(ctx, "Job")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
}

func TestResolveAllDeduplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "Job")

	got, err := f.resolver.ResolveAll(ctx, []string{"Food", "Job", "Food", " Food "})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	cats, _ := f.store.ListCategories(ctx)
	assert.Len(t, cats, 2)

	_, err = f.resolver.ResolveAll(ctx, []string{"Food", ""})
	assert.Equal(t, http.StatusBadRequest, core.StatusOf(err))
}

func TestImportCreatesTransactionsAndCategories(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.writeCSV(t, "upload.csv", "title,type,value,category\nSalary,income,5000,Job\nRent,outcome,1200,Housing\n")

	txs, err := f.importer.Execute(ctx, ImportRequest{Filename: "upload.csv"})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "Salary", txs[0].Title)
	assert.Equal(t, "Housing", txs[1].CategoryTitle())

	cats, _ := f.store.ListCategories(ctx)
	assert.Len(t, cats, 2)

	b, _ := f.balance.GetBalance(ctx)
	assert.Equal(t, core.Balance{
		Income:  core.Money{Cents: 500000},
		Outcome: core.Money{Cents: 120000},
		Total:   core.Money{Cents: 380000},
	}, b)

	_, err = os.Stat(filepath.Join(f.dir, "upload.csv"))
	assert.True(t, os.IsNotExist(err), "source file should be removed")
	assert.Len(t, f.events.created, 2)
}

func TestImportSharedNewCategoryCreatedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.writeCSV(t, "a.csv", "title,type,value,category\nLunch,income,10,Food\nDinner,outcome,5,Food\n")

	txs, err := f.importer.Execute(ctx, ImportRequest{Filename: "a.csv"})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, txs[0].CategoryID, txs[1].CategoryID)

	cats, _ := f.store.ListCategories(ctx)
	assert.Len(t, cats, 1)
}

func TestImportSkipsRowWithoutValue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.writeCSV(t, "b.csv", "title,type,value,category\nSalary,income,,Job\nBonus,income,10,Job\n")

	txs, err := f.importer.Execute(ctx, ImportRequest{Filename: "b.csv"})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Bonus", txs[0].Title)
}

func TestImportMissingFile(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"nope.csv", "", "../nope.csv"} {
		_, err := f.importer.Execute(context.Background(), ImportRequest{Filename: name})
		assert.Equal(t, http.StatusNotFound, core.StatusOf(err), name)
	}
	require.NoError(t, os.Mkdir(filepath.Join(f.dir, "sub"), 0o755))
	_, err := f.importer.Execute(context.Background(), ImportRequest{Filename: "sub"})
	assert.Equal(t, http.StatusNotFound, core.StatusOf(err))
}

func TestImportMalformedCSVPersistsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.writeCSV(t, "bad.csv", "title,type,value,category\nOk,income,1,Job\n\"broken,income,1,Job\n")

	_, err := f.importer.Execute(ctx, ImportRequest{Filename: "bad.csv"})
	assert.Equal(t, http.StatusBadRequest, core.StatusOf(err))

	list, _ := f.store.ListTransactions(ctx)
	assert.Empty(t, list)
	cats, _ := f.store.ListCategories(ctx)
	assert.Empty(t, cats)
}

func TestImportDoesNotCheckBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.writeCSV(t, "c.csv", "title,type,value,category\nRent,outcome,1200,Housing\n")

	txs, err := f.importer.Execute(ctx, ImportRequest{Filename: "c.csv"})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	b, _ := f.balance.GetBalance(ctx)
	assert.Equal(t, int64(-120000), b.Total.Cents)
}

type failingBatchStore struct {
	*memory.Store
}

func (failingBatchStore) CreateTransactions(context.Context, []core.Transaction) error {
	return errors.New("disk full")
}

func TestImportTransactionFailureKeepsCategoriesAndFile(t *testing.T) {
	ctx := context.Background()
	store := failingBatchStore{Store: memory.New()}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.csv"), []byte("title,type,value,category\nSalary,income,1,Job\n"), 0o644))

	importer := NewImportTransactionsService(dir, NewCategoryResolver(store, nil), store, nil)
	_, err := importer.Execute(ctx, ImportRequest{Filename: "d.csv"})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, core.StatusOf(err))

	cats, _ := store.ListCategories(ctx)
	assert.Len(t, cats, 1)
	_, statErr := os.Stat(filepath.Join(dir, "d.csv"))
	assert.NoError(t, statErr)
}

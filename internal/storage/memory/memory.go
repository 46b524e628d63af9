package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finances/internal/core"
)

// Store keeps categories and transactions in process memory. It enforces the
// same title uniqueness and not-found semantics as the SQLite repository.
type Store struct {
	mu      sync.Mutex
	cats    []core.Category
	byTitle map[string]int
	items   []core.Transaction
}

func New(categories ...string) *Store {
	s := &Store{byTitle: make(map[string]int)}
	now := time.Now().UTC()
	for _, title := range dedupe(categories) {
		s.insertCategory(core.Category{ID: uuid.NewString(), Title: title, CreatedAt: now, UpdatedAt: now})
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt, one title per line.
// Blank lines and lines starting with # are ignored; a missing file yields an empty store.
func NewFromFiles(base string) *Store {
	return New(readLines(filepath.Join(base, "seed_categories.txt"))...)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) GetCategoryByTitle(_ context.Context, title string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byTitle[title]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return s.cats[i], nil
}

func (s *Store) GetCategoriesByTitles(_ context.Context, titles []string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	seen := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		if i, ok := s.byTitle[title]; ok {
			out = append(out, s.cats[i])
		}
	}
	return out, nil
}

func (s *Store) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.cats...), nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.insertCategory(c) {
		return core.ErrCategoryExists
	}
	return nil
}

func (s *Store) CreateCategories(_ context.Context, categories []core.Category) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var created []core.Category
	for _, c := range categories {
		if s.insertCategory(c) {
			created = append(created, c)
		}
	}
	return created, nil
}

func (s *Store) ListTransactions(context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.items))
	for i, t := range s.items {
		out[i] = s.withCategory(t)
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id {
			return s.withCategory(t), nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Category = nil
	s.items = append(s.items, t)
	return nil
}

// CreateTransactions appends the batch only if every transaction is valid.
func (s *Store) CreateTransactions(_ context.Context, transactions []core.Transaction) error {
	for _, t := range transactions {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range transactions {
		t.Category = nil
		s.items = append(s.items, t)
	}
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

// insertCategory must be called with mu held.
func (s *Store) insertCategory(c core.Category) bool {
	if _, ok := s.byTitle[c.Title]; ok {
		return false
	}
	s.byTitle[c.Title] = len(s.cats)
	s.cats = append(s.cats, c)
	return true
}

// withCategory must be called with mu held.
func (s *Store) withCategory(t core.Transaction) core.Transaction {
	for i := range s.cats {
		if s.cats[i].ID == t.CategoryID {
			c := s.cats[i]
			t.Category = &c
			break
		}
	}
	return t
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

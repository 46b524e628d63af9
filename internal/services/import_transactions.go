package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finances/internal/core"
	"finances/internal/csvimport"
	"finances/internal/log"
)

type ImportRequest struct {
	// Filename is the base name of a file inside the upload directory.
	Filename string
}

type categoryBatchResolver interface {
	ResolveAll(ctx context.Context, titles []string) (map[string]core.Category, error)
}

// ImportTransactionsService turns an uploaded CSV file into transactions.
//
// The file is parsed completely before any store call. Categories are then
// resolved in one batch and the transactions written in one batch. The two
// writes are not atomic together: if the transaction batch fails, categories
// created by the first batch stay in the store and are reused next time.
// The source file is removed after a successful write.
type ImportTransactionsService struct {
	uploadDir  string
	categories categoryBatchResolver
	store      TransactionStore
	events     EventPublisher
	now        clockFunc
	newID      idFunc
}

func NewImportTransactionsService(uploadDir string, categories categoryBatchResolver, store TransactionStore, events EventPublisher) *ImportTransactionsService {
	return &ImportTransactionsService{
		uploadDir:  uploadDir,
		categories: categories,
		store:      store,
		events:     events,
		now:        defaultClock,
		newID:      defaultID,
	}
}

// UploadDir is where Execute looks for request filenames.
func (s *ImportTransactionsService) UploadDir() string {
	return s.uploadDir
}

func (s *ImportTransactionsService) Execute(ctx context.Context, req ImportRequest) ([]core.Transaction, error) {
	start := time.Now()

	path, err := s.resolvePath(req.Filename)
	if err != nil {
		return nil, err
	}

	parsed, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	for _, skipped := range parsed.Skipped {
		slog.DebugContext(ctx, "CSV row skipped",
			"file", req.Filename, "line", skipped.Line, "reason", skipped.Reason)
	}

	resolved, err := s.categories.ResolveAll(ctx, parsed.Categories())
	if err != nil {
		return nil, fmt.Errorf("resolve categories: %w", err)
	}

	now := s.now()
	txs := make([]core.Transaction, 0, len(parsed.Records))
	for _, rec := range parsed.Records {
		category, ok := resolved[rec.Category]
		if !ok {
			return nil, fmt.Errorf("category %q missing after resolution", rec.Category)
		}
		txs = append(txs, core.Transaction{
			ID:         s.newID(),
			Title:      rec.Title,
			Type:       rec.Type,
			Value:      rec.Value,
			CategoryID: category.ID,
			Category:   &category,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if err := s.store.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("save transactions: %w", err)
	}

	if err := os.Remove(path); err != nil {
		slog.WarnContext(ctx, "Failed to remove imported file", "path", path, "error", err)
	}

	log.NewStructuredLogger(log.FromContext(ctx).With(log.FieldDuration, time.Since(start).Milliseconds())).
		LogImportCompleted(ctx, req.Filename, len(txs), len(parsed.Skipped))

	publishCreated(ctx, s.events, txs...)
	return txs, nil
}

// resolvePath confines name to the upload directory and checks it is a regular file.
func (s *ImportTransactionsService) resolvePath(name string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	if name == "" || base == "/" || base == "." {
		return "", uploadNotFound(nil)
	}
	path := filepath.Join(s.uploadDir, base)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", uploadNotFound(err)
	}
	if err != nil {
		return "", fmt.Errorf("stat upload: %w", err)
	}
	if info.IsDir() {
		return "", uploadNotFound(nil)
	}
	return path, nil
}

func parseFile(path string) (csvimport.Result, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return csvimport.Result{}, uploadNotFound(err)
	}
	if err != nil {
		return csvimport.Result{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	res, err := csvimport.Parse(f)
	if errors.Is(err, csvimport.ErrMalformed) {
		return csvimport.Result{}, core.NewValidationError("Invalid CSV file").WithCause(err)
	}
	if err != nil {
		return csvimport.Result{}, fmt.Errorf("parse upload: %w", err)
	}
	return res, nil
}

func uploadNotFound(cause error) *core.AppError {
	err := core.NewNotFoundError("Unable to find uploaded file")
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}

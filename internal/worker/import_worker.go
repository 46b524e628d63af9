package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"finances/internal/amqp"
	"finances/internal/core"
	"finances/internal/log"
	"finances/internal/services"
)

type importer interface {
	Execute(ctx context.Context, req services.ImportRequest) ([]core.Transaction, error)
	UploadDir() string
}

// ImportWorker runs queued CSV imports.
type ImportWorker struct {
	importer importer
}

func NewImportWorker(importer importer) *ImportWorker {
	return &ImportWorker{importer: importer}
}

// HandleImportRequest returns nil when the upload is gone (nothing left to do),
// an amqp.ErrDrop error when the file can never be imported, and any other
// error to have the request redelivered.
func (w *ImportWorker) HandleImportRequest(ctx context.Context, msg *amqp.ImportRequestMessage) error {
	// Carry the originating HTTP request id into the import's log lines
	fields := log.NewFields().WithOperation(log.OpImport)
	if msg.RequestID != "" {
		fields = fields.WithRequestID(msg.RequestID)
	}
	ctx = log.NewContext(ctx, log.FromContext(ctx).WithComponent(log.ComponentWorker).With(fields.ToSlice()...))

	slog.InfoContext(ctx, "Processing import request",
		"filename", msg.Filename,
		"request_id", msg.RequestID,
		"queued_at", msg.Timestamp)

	txs, err := w.importer.Execute(ctx, services.ImportRequest{Filename: msg.Filename})
	if err != nil {
		switch core.StatusOf(err) {
		case http.StatusNotFound:
			slog.WarnContext(ctx, "Upload no longer available, dropping import request",
				"filename", msg.Filename, "error", err)
			return nil
		case http.StatusBadRequest:
			w.discard(ctx, msg.Filename)
			return amqp.Drop(fmt.Errorf("import %s: %w", msg.Filename, err))
		default:
			return fmt.Errorf("import %s: %w", msg.Filename, err)
		}
	}

	slog.InfoContext(ctx, "Import request completed",
		"filename", msg.Filename,
		"imported", len(txs))
	return nil
}

// discard removes an upload that can never be imported.
func (w *ImportWorker) discard(ctx context.Context, filename string) {
	path := filepath.Join(w.importer.UploadDir(), filepath.Base(filepath.Clean("/"+filename)))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.WarnContext(ctx, "Failed to remove rejected upload", "path", path, "error", err)
	}
}

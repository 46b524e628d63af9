package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finances/internal/amqp"
	"finances/internal/core"
	"finances/internal/sheets"
)

type transactionGetter interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
}

// MirrorWorker replays transaction events onto the spreadsheet mirror.
type MirrorWorker struct {
	store  transactionGetter
	mirror sheets.TransactionMirror
}

// NewMirrorWorker accepts a nil store; created events are then mirrored from
// the snapshot carried in the message.
func NewMirrorWorker(store transactionGetter, mirror sheets.TransactionMirror) *MirrorWorker {
	return &MirrorWorker{store: store, mirror: mirror}
}

func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	slog.InfoContext(ctx, "Processing transaction event", "event", msg.Event, "id", msg.ID)

	switch msg.Event {
	case amqp.EventTransactionCreated:
		return w.handleCreated(ctx, msg)
	case amqp.EventTransactionDeleted:
		if err := w.mirror.DeleteTransaction(ctx, msg.ID); err != nil {
			return fmt.Errorf("delete mirrored transaction: %w", err)
		}
		return nil
	default:
		return amqp.Drop(fmt.Errorf("unknown event %q", msg.Event))
	}
}

func (w *MirrorWorker) handleCreated(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	var t core.Transaction
	var err error
	if w.store != nil {
		t, err = w.store.GetTransaction(ctx, msg.ID)
		if errors.Is(err, core.ErrNotFound) {
			slog.InfoContext(ctx, "Transaction deleted before it was mirrored", "id", msg.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
	} else {
		t, err = msg.Transaction()
		if err != nil {
			return amqp.Drop(err)
		}
	}

	if _, err := w.mirror.AppendTransaction(ctx, t); err != nil {
		return fmt.Errorf("append mirrored transaction: %w", err)
	}
	return nil
}

package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finances/internal/core"
)

const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
)

// ImportRequestMessage asks a worker to import a CSV file already stored in the upload directory.
type ImportRequestMessage struct {
	Filename  string    `json:"filename"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewImportRequestMessage(filename, requestID string) *ImportRequestMessage {
	return &ImportRequestMessage{
		Filename:  filename,
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}

func (m *ImportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportRequestMessageFromJSON(data []byte) (*ImportRequestMessage, error) {
	var msg ImportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Filename == "" {
		return nil, errors.New("import request without filename")
	}
	return &msg, nil
}

// TransactionEventMessage carries a full snapshot for created events and only
// the id for deleted events.
type TransactionEventMessage struct {
	Event     string    `json:"event"`
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Type      string    `json:"type,omitempty"`
	Value     string    `json:"value,omitempty"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionCreatedMessage(t core.Transaction) *TransactionEventMessage {
	return &TransactionEventMessage{
		Event:     EventTransactionCreated,
		ID:        t.ID,
		Title:     t.Title,
		Type:      t.Type.String(),
		Value:     t.Value.String(),
		Category:  t.CategoryTitle(),
		CreatedAt: t.CreatedAt,
		Timestamp: time.Now(),
	}
}

func NewTransactionDeletedMessage(id string) *TransactionEventMessage {
	return &TransactionEventMessage{
		Event:     EventTransactionDeleted,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("transaction event without id")
	}
	switch msg.Event {
	case EventTransactionCreated, EventTransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event %q", msg.Event)
	}
	return &msg, nil
}

// Transaction rebuilds the domain value carried by a created event.
func (m *TransactionEventMessage) Transaction() (core.Transaction, error) {
	typ, err := core.ParseTransactionType(m.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("event %s: %w", m.ID, err)
	}
	value, err := core.ParseMoney(m.Value)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("event %s: %w", m.ID, err)
	}
	t := core.Transaction{
		ID:        m.ID,
		Title:     m.Title,
		Type:      typ,
		Value:     value,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.CreatedAt,
	}
	if m.Category != "" {
		t.Category = &core.Category{Title: m.Category}
	}
	return t, nil
}

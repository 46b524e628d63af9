package http

import (
	"encoding/json"
	"strings"
	"time"

	"finances/internal/core"
	"finances/internal/services"
)

type transactionResponse struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Type       string      `json:"type"`
	Value      json.Number `json:"value"`
	CategoryID string      `json:"category_id"`
	Category   string      `json:"category,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

type balanceResponse struct {
	Income  json.Number `json:"income"`
	Outcome json.Number `json:"outcome"`
	Total   json.Number `json:"total"`
}

type overviewResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Balance      balanceResponse       `json:"balance"`
}

type categoryResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type importAcceptedResponse struct {
	Filename string `json:"filename"`
}

// money renders cents as an exact JSON number, e.g. 1200.00.
func money(m core.Money) json.Number {
	return json.Number(m.String())
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:         t.ID,
		Title:      t.Title,
		Type:       t.Type.String(),
		Value:      money(t.Value),
		CategoryID: t.CategoryID,
		Category:   t.CategoryTitle(),
		CreatedAt:  t.CreatedAt,
	}
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

func toBalanceResponse(b core.Balance) balanceResponse {
	return balanceResponse{
		Income:  money(b.Income),
		Outcome: money(b.Outcome),
		Total:   money(b.Total),
	}
}

func toOverviewResponse(ov services.Overview) overviewResponse {
	return overviewResponse{
		Transactions: toTransactionResponses(ov.Transactions),
		Balance:      toBalanceResponse(ov.Balance),
	}
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

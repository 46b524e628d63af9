package google

import (
	"fmt"
	"strings"
	"time"

	"finances/internal/core"
)

func headerRow() []any {
	return []any{"id", "created_at", "title", "type", "value", "category"}
}

// transactionRow formats t in column order. The value is written as a plain
// decimal string so USER_ENTERED stores it as a number.
func transactionRow(t core.Transaction) []any {
	return []any{
		t.ID,
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.Title,
		t.Type.String(),
		t.Value.String(),
		t.CategoryTitle(),
	}
}

// findRowByID returns the zero-based row index whose first cell equals id, or -1.
func findRowByID(values [][]any, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i
		}
	}
	return -1
}

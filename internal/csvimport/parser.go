// Package csvimport reads transaction rows from an uploaded CSV file.
//
// The expected layout is a header row followed by rows of
// title,type,value,category. Every cell is trimmed. Rows without a title,
// type or value, or with a type or value that does not parse, are skipped
// and reported in Result.Skipped rather than failing the whole file.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"finances/internal/core"
)

// ErrMalformed is returned when the file is not valid CSV.
var ErrMalformed = errors.New("malformed csv")

const (
	colTitle = iota
	colType
	colValue
	colCategory
)

// Record is one accepted row.
type Record struct {
	Line     int
	Title    string
	Type     core.TransactionType
	Value    core.Money
	Category string
}

// SkippedRow describes a row that was not turned into a Record.
type SkippedRow struct {
	Line   int
	Reason string
}

type Result struct {
	Records []Record
	Skipped []SkippedRow
}

// Categories returns the category titles referenced by the accepted rows,
// in row order, duplicates included.
func (r Result) Categories() []string {
	out := make([]string, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.Category
	}
	return out
}

// Parse consumes the whole reader before returning; nothing is persisted here.
func Parse(in io.Reader) (Result, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	var res Result
	header := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if header {
			header = false
			continue
		}

		line, _ := reader.FieldPos(0)
		rec, reason := parseRow(row)
		if reason != "" {
			res.Skipped = append(res.Skipped, SkippedRow{Line: line, Reason: reason})
			continue
		}
		rec.Line = line
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func parseRow(row []string) (Record, string) {
	title := cell(row, colTitle)
	rawType := cell(row, colType)
	rawValue := cell(row, colValue)
	if title == "" || rawType == "" || rawValue == "" {
		return Record{}, "missing title, type or value"
	}

	typ, err := core.ParseTransactionType(rawType)
	if err != nil {
		return Record{}, fmt.Sprintf("invalid type %q", rawType)
	}
	value, err := core.ParseMoney(rawValue)
	if err != nil {
		return Record{}, fmt.Sprintf("invalid value %q", rawValue)
	}

	category := cell(row, colCategory)
	if category == "" {
		category = core.DefaultCategoryTitle
	}

	rec := Record{Title: title, Type: typ, Value: value, Category: category}
	if err := (core.Transaction{Title: rec.Title, Type: rec.Type, Value: rec.Value}).Validate(); err != nil {
		return Record{}, err.Error()
	}
	return rec, ""
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"finances/internal/core"
	"finances/internal/services"
)

// maxJSONBody bounds POST /transactions bodies.
const maxJSONBody = 1 << 20

// uploadField is the multipart field carrying the CSV file.
const uploadField = "file"

var errBadJSON = errors.New("invalid JSON body")

// createTransactionPayload is the POST /transactions body. Value may be a JSON
// number or a decimal string ("12.34" or "12,34").
type createTransactionPayload struct {
	Title    string          `json:"title"`
	Type     string          `json:"type"`
	Value    json.RawMessage `json:"value"`
	Category string          `json:"category"`
}

// parseCreateTransaction decodes the body into a service request. Failures are
// 400 AppErrors.
func parseCreateTransaction(w http.ResponseWriter, r *http.Request) (services.CreateTransactionRequest, error) {
	var p createTransactionPayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return services.CreateTransactionRequest{}, core.NewValidationError("Invalid request body").WithCause(fmt.Errorf("%w: %v", errBadJSON, err))
	}

	value, err := parseValue(p.Value)
	if err != nil {
		return services.CreateTransactionRequest{}, core.NewValidationError("Value must be a non-negative number").WithCause(err)
	}

	return services.CreateTransactionRequest{
		Title:    sanitizeInput(p.Title),
		Type:     sanitizeInput(p.Type),
		Value:    value,
		Category: sanitizeInput(p.Category),
	}, nil
}

// parseValue reads a JSON number or string without going through float64.
func parseValue(raw json.RawMessage) (core.Money, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return core.Money{}, core.ErrInvalidAmount
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return core.Money{}, core.ErrInvalidAmount
		}
		return core.ParseMoney(s)
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return core.Money{}, core.ErrInvalidAmount
	}
	return core.ParseMoney(n.String())
}

// saveUpload copies the multipart file field into dir under a random name and
// returns that name. The body is capped at maxBytes.
func saveUpload(w http.ResponseWriter, r *http.Request, dir string, maxBytes int64) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", core.NewAppError("Uploaded file is too large", http.StatusRequestEntityTooLarge).WithCause(err)
		}
		return "", core.NewValidationError("Invalid multipart form").WithCause(err)
	}
	defer r.MultipartForm.RemoveAll()

	src, _, err := r.FormFile(uploadField)
	if err != nil {
		return "", core.NewValidationError("Missing file field").WithCause(err)
	}
	defer src.Close()

	name := uuid.NewString() + ".csv"

	dst, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return name, nil
}

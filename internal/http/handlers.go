package http

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"finances/internal/log"
	"finances/internal/middleware/trace"
	"finances/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports 503 until the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"rate_limiter": map[string]any{
			"active_clients": s.limiter.ActiveClients(),
			"rejected":       s.limiter.Rejected(),
		},
	}
	if s.deps.Store == nil {
		checks["store"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		checks["store"] = "failed"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ov, err := s.deps.Balance.Overview(r.Context())
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(toOverviewResponse(ov)).Write(w)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Balance.GetBalance(r.Context())
	if err != nil {
		writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toBalanceResponse(b)).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Categories.List(r.Context())
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, Title: c.Title})
	}
	NewJSONResponse().Body(map[string]any{"categories": out}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := parseCreateTransaction(w, r)
	if err != nil {
		writeServiceError(w, r, log.OpValidate, err)
		return
	}

	t, err := s.deps.Creator.Execute(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/transactions/"+t.ID).
		Body(toTransactionResponse(t)).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Deleter.Execute(r.Context(), id); err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleImport stores the uploaded CSV and either imports it now or queues it.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filename, err := saveUpload(w, r, s.deps.Importer.UploadDir(), s.deps.MaxUploadBytes)
	if err != nil {
		writeServiceError(w, r, log.OpImport, err)
		return
	}

	if s.deps.ImportQueue != nil {
		if err := s.deps.ImportQueue.PublishImportRequest(ctx, filename, trace.GetRequestID(ctx)); err != nil {
			_ = os.Remove(filepath.Join(s.deps.Importer.UploadDir(), filename))
			writeServiceError(w, r, log.OpImport, err)
			return
		}
		s.logger.InfoContext(ctx, "Import queued", log.FieldFilename, filename)
		NewJSONResponse().
			Status(http.StatusAccepted).
			Body(importAcceptedResponse{Filename: filename}).
			Write(w)
		return
	}

	txs, err := s.deps.Importer.Execute(ctx, services.ImportRequest{Filename: filename})
	if err != nil {
		_ = os.Remove(filepath.Join(s.deps.Importer.UploadDir(), filename))
		writeServiceError(w, r, log.OpImport, err)
		return
	}

	NewJSONResponse().
		Body(map[string]any{"transactions": toTransactionResponses(txs)}).
		Write(w)
}

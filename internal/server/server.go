// Package server exposes the evaluation service over HTTP. Responses
// carry only the sanitized external shape; internal verdict details
// stay on the audit side of the boundary.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/kalkan-ai/kalkan/internal/guard"
	"github.com/kalkan-ai/kalkan/internal/oplog"
	"github.com/kalkan-ai/kalkan/internal/summary"
)

// Server wraps the HTTP components of the gateway.
type Server struct {
	mux     *http.ServeMux
	svc     *guard.Service
	maxBody int64
}

// New builds the server around an evaluation service. maxBody bounds
// the request body read; requests above it are rejected before any
// analysis.
func New(svc *guard.Service, maxBody int64) *Server {
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	s := &Server{
		mux:     http.NewServeMux(),
		svc:     svc,
		maxBody: maxBody,
	}
	s.mux.HandleFunc("/v1/evaluate", s.handleEvaluate)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type evaluateRequest struct {
	Text string `json:"text"`
}

// evaluateResponse is the external wire shape. Internal violation
// identifiers and layer detail never appear here.
type evaluateResponse struct {
	Status  string           `json:"status"`
	Content string           `json:"content"`
	AuditID string           `json:"audit_id"`
	Summary summary.External `json:"summary"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	var req evaluateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	res := s.svc.Evaluate(r.Context(), req.Text)

	resp := evaluateResponse{
		Status:  string(res.Status),
		Content: res.Content,
		AuditID: res.AuditID,
		Summary: res.Summary,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		oplog.Logf("server: failed to write evaluate response: %v", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

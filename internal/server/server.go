// Package server runs copy invocations from raw events, either over HTTP or
// from a caller such as the Lambda runtime.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/copier"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/event"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/logging"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/metrics"
)

// maxEventBytes bounds the request body of one invocation.
const maxEventBytes = 4 << 20

// Handler copies a batch of parsed object references.
type Handler interface {
	Handle(ctx context.Context, refs []copier.ObjectRef) ([]copier.CopyResult, error)
}

// Invoke parses a raw event and hands it to h. Every error, including a
// malformed event, is returned as a *copier.CopyRequestError.
func Invoke(ctx context.Context, h Handler, data []byte) ([]copier.CopyResult, error) {
	refs, err := event.Parse(data)
	if err != nil {
		if m := metrics.Get(); m != nil {
			m.IncInvocations("rejected")
		}
		return nil, &copier.CopyRequestError{Err: err}
	}
	return h.Handle(ctx, refs)
}

// Server exposes invocations over HTTP.
type Server struct {
	handler Handler
	mux     *http.ServeMux
	log     *slog.Logger
}

// New creates a Server with the invoke, health and metrics routes.
func New(h Handler) *Server {
	s := &Server{
		handler: h,
		mux:     http.NewServeMux(),
		log:     slog.With("component", "server"),
	}
	s.mux.HandleFunc("POST /invoke", s.handleInvoke)
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.mux.Handle("GET /metrics", metrics.Handler())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get("X-Request-Id")
	if id == "" {
		id = uuid.NewString()
	}
	ctx := logging.WithCorrelationID(r.Context(), id)
	w.Header().Set("X-Request-Id", id)

	data, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	results, err := Invoke(ctx, s.handler, data)
	if err != nil {
		code := http.StatusInternalServerError
		var inErr *copier.InputError
		var synErr *json.SyntaxError
		if errors.As(err, &inErr) || errors.As(err, &synErr) {
			code = http.StatusBadRequest
		}
		s.log.Warn("invocation failed", "correlation_id", id, "status", code, "error", err)
		writeJSON(w, code, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

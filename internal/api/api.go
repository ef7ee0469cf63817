// Package api provides the HTTP surface of PromptStudio.
//
// It exposes RESTful endpoints for application settings, the guided
// interview, the editing engine, and prompt export. The API integrates with
// the genai, interview, editor, and store modules.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/promptsmith/PromptStudio/internal/editor"
	"github.com/promptsmith/PromptStudio/internal/genai"
	"github.com/promptsmith/PromptStudio/internal/interview"
	"github.com/promptsmith/PromptStudio/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// DefaultShutdownTimeout bounds graceful shutdown on Stop.
const DefaultShutdownTimeout = 10 * time.Second

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server wires the HTTP endpoints to the application modules.
type Server struct {
	addr      string
	st        store.Store
	client    *genai.Client
	interview *interview.Session
	editor    *editor.Engine
	httpSrv   *http.Server
}

// NewServer constructs the API server around an AI client and a settings
// store. The interview session and editor engine are owned by the server
// for the lifetime of the process.
func NewServer(client *genai.Client, st store.Store, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	s := &Server{
		addr:      cfg.Addr,
		st:        st,
		client:    client,
		interview: interview.NewSession(client),
		editor:    editor.NewEngine(client),
	}
	slog.Debug("api.NewServer: server created", "addr", s.addr)
	return s
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Server.Run: PromptStudio API listening", "addr", s.addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run API server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	slog.Info("Server.Stop: shutting down API server")
	s.editor.Close()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.healthHandler)

	mux.HandleFunc("/settings", s.settingsHandler)

	mux.HandleFunc("/interview/start", s.interviewStartHandler)
	mux.HandleFunc("/interview/turn", s.interviewTurnHandler)
	mux.HandleFunc("/interview/finalize", s.interviewFinalizeHandler)
	mux.HandleFunc("/interview/transcript", s.interviewTranscriptHandler)

	mux.HandleFunc("/editor/state", s.editorStateHandler)
	mux.HandleFunc("/editor/document", s.editorDocumentHandler)
	mux.HandleFunc("/editor/context", s.editorContextHandler)
	mux.HandleFunc("/editor/undo", s.editorUndoHandler)
	mux.HandleFunc("/editor/scan", s.editorScanHandler)
	mux.HandleFunc("/editor/suggestions/", s.editorSuggestionHandler)
	mux.HandleFunc("/editor/feedback", s.editorFeedbackHandler)
	mux.HandleFunc("/editor/feedback/apply", s.editorFeedbackApplyHandler)
	mux.HandleFunc("/editor/feedback/dismiss", s.editorFeedbackDismissHandler)
	mux.HandleFunc("/editor/locks", s.editorLocksHandler)
	mux.HandleFunc("/editor/locks/", s.editorLockHandler)
	mux.HandleFunc("/editor/reconstruct", s.editorReconstructHandler)
	mux.HandleFunc("/editor/reverse", s.editorReverseHandler)

	mux.HandleFunc("/export", s.exportHandler)
	mux.HandleFunc("/share", s.shareHandler)
}

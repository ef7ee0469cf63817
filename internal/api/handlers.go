// Package api provides HTTP handlers for PromptStudio endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/promptsmith/PromptStudio/internal/editor"
	"github.com/promptsmith/PromptStudio/internal/export"
	"github.com/promptsmith/PromptStudio/internal/models"
)

// editorErrorStatus maps engine errors onto HTTP status codes.
func editorErrorStatus(err error) int {
	switch {
	case errors.Is(err, editor.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, editor.ErrSuggestionStale):
		return http.StatusConflict
	case errors.Is(err, editor.ErrUnknownID):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrNoFeedback),
		errors.Is(err, editor.ErrEmptyLock),
		errors.Is(err, editor.ErrDuplicateLock),
		errors.Is(err, editor.ErrInvalidRange):
		return http.StatusBadRequest
	}
	var cfgErr *models.ConfigurationError
	if errors.As(err, &cfgErr) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

// healthHandler provides a health check endpoint for monitoring.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// settingsHandler serves GET and PUT /settings. Updates are validated,
// persisted, and pushed into the AI client atomically from the caller's
// point of view: a rejected update leaves the previous settings in force.
func (s *Server) settingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, models.Success(s.client.Settings()))
	case http.MethodPut:
		var settings models.Settings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			slog.Warn("Server.settingsHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if err := settings.Validate(); err != nil {
			slog.Warn("Server.settingsHandler: validation failed", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		if err := s.st.SaveSettings(&settings); err != nil {
			slog.Error("Server.settingsHandler: failed to persist settings", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save settings"))
			return
		}
		s.client.UpdateSettings(&settings)
		slog.Info("Server.settingsHandler: settings updated", "provider", settings.ActiveProvider, "models", len(settings.Models))
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Settings updated", nil))
	default:
		w.Header().Set("Allow", "GET, PUT")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type interviewStartRequest struct {
	Language models.Language `json:"language"`
}

// interviewStartHandler starts (or restarts) the interview session.
func (s *Server) interviewStartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req interviewStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Language == "" {
		req.Language = models.LanguageEnglish
	}
	if err := s.interview.Restart(req.Language); err != nil {
		slog.Error("Server.interviewStartHandler: failed to start session", "error", err)
		writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Interview started", nil))
}

type interviewTurnRequest struct {
	Text string `json:"text"`
}

// interviewTurnHandler relays one user answer and returns the structured
// next question.
func (s *Server) interviewTurnHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req interviewTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: text"))
		return
	}
	reply, err := s.interview.SendTurn(r.Context(), req.Text)
	if err != nil {
		slog.Error("Server.interviewTurnHandler: turn failed", "error", err)
		writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(reply))
}

type interviewFinalizeRequest struct {
	Language models.Language `json:"language"`
}

// interviewFinalizeHandler closes the interview and hands the consolidated
// prompt to the editor as its new document.
func (s *Server) interviewFinalizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req interviewFinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Language == "" {
		req.Language = models.LanguageEnglish
	}
	prompt, err := s.interview.Finalize(r.Context(), req.Language)
	if err != nil {
		slog.Error("Server.interviewFinalizeHandler: finalize failed", "error", err)
		writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
		return
	}
	s.editor.SetDocument(prompt)
	slog.Info("Server.interviewFinalizeHandler: interview finalized", "promptLength", len(prompt))
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"prompt": prompt}))
}

// interviewTranscriptHandler returns the append-only conversation log.
func (s *Server) interviewTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.interview.Transcript()))
}

// editorStateHandler returns a full snapshot of the editing state.
func (s *Server) editorStateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.editor.Snapshot()))
}

type textRequest struct {
	Text string `json:"text"`
}

// editorDocumentHandler replaces the prompt document (a manual edit).
func (s *Server) editorDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", http.MethodPut)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	s.editor.SetDocument(req.Text)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Document updated", nil))
}

// editorContextHandler replaces the background context text.
func (s *Server) editorContextHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", http.MethodPut)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	s.editor.SetContext(req.Text)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Context updated", nil))
}

// editorUndoHandler restores the last AI-applied change.
func (s *Server) editorUndoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	restored := s.editor.Undo()
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"restored": restored,
		"document": s.editor.Document(),
	}))
}

// editorScanHandler runs a deep critique scan.
func (s *Server) editorScanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	suggestions, err := s.editor.DeepScan(r.Context())
	if err != nil {
		slog.Error("Server.editorScanHandler: scan failed", "error", err)
		writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(suggestions))
}

// editorSuggestionHandler serves /editor/suggestions/{id} and
// /editor/suggestions/{id}/apply.
func (s *Server) editorSuggestionHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/editor/suggestions/")
	segments := strings.Split(path, "/")
	if segments[0] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Missing suggestion id"))
		return
	}
	id := segments[0]

	switch {
	case len(segments) == 2 && segments[1] == "apply" && r.Method == http.MethodPost:
		if err := s.editor.ApplySuggestion(id); err != nil {
			slog.Warn("Server.editorSuggestionHandler: apply failed", "id", id, "error", err)
			writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"document": s.editor.Document()}))
	case len(segments) == 1 && r.Method == http.MethodDelete:
		if err := s.editor.DismissSuggestion(id); err != nil {
			writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Suggestion dismissed", nil))
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown suggestion endpoint"))
	}
}

// editorFeedbackHandler requests a mentor tip on demand (POST) or returns
// the pending one (GET).
func (s *Server) editorFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"feedback": s.editor.Feedback()}))
	case http.MethodPost:
		tip, err := s.editor.RequestFeedback(r.Context())
		if err != nil {
			slog.Warn("Server.editorFeedbackHandler: request failed", "error", err)
			writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"feedback": tip}))
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// editorFeedbackApplyHandler applies the pending mentor tip.
func (s *Server) editorFeedbackApplyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	doc, err := s.editor.ApplyFeedback(r.Context())
	if err != nil {
		slog.Warn("Server.editorFeedbackApplyHandler: apply failed", "error", err)
		writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"document": doc}))
}

// editorFeedbackDismissHandler dismisses the pending tip and returns the
// replacement.
func (s *Server) editorFeedbackDismissHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tip, err := s.editor.DismissFeedback(r.Context())
	if err != nil {
		writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"feedback": tip}))
}

// editorLocksHandler lists (GET) or adds (POST) locked segments.
func (s *Server) editorLocksHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, models.Success(s.editor.Locks()))
	case http.MethodPost:
		var req textRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		lock, err := s.editor.AddLock(req.Text)
		if err != nil {
			writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
			return
		}
		writeJSONResponse(w, http.StatusCreated, models.Success(lock))
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// editorLockHandler removes one locked segment (DELETE /editor/locks/{id}).
func (s *Server) editorLockHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", http.MethodDelete)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/editor/locks/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown lock endpoint"))
		return
	}
	if err := s.editor.RemoveLock(id); err != nil {
		writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Lock removed", nil))
}

type reconstructRequest struct {
	Range *editor.Range `json:"range,omitempty"`
}

// editorReconstructHandler rewrites the whole document, or only the
// selection when a range is provided.
func (s *Server) editorReconstructHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req reconstructRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	var (
		doc string
		err error
	)
	if req.Range != nil {
		doc, err = s.editor.ReconstructPartial(r.Context(), req.Range.Start, req.Range.End)
	} else {
		doc, err = s.editor.ReconstructFull(r.Context())
	}
	if err != nil {
		slog.Error("Server.editorReconstructHandler: reconstruction failed", "error", err, "partial", req.Range != nil)
		writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"document": doc}))
}

type reverseRequest struct {
	ExampleOutput string `json:"exampleOutput"`
}

// editorReverseHandler infers a prompt from an example output.
func (s *Server) editorReverseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req reverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.ExampleOutput) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: exampleOutput"))
		return
	}
	doc, err := s.editor.ReverseEngineer(r.Context(), req.ExampleOutput)
	if err != nil {
		slog.Error("Server.editorReverseHandler: inference failed", "error", err)
		writeJSONResponse(w, editorErrorStatus(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"document": doc}))
}

// exportHandler renders the current document (GET /export?format=markdown|json).
func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	doc := s.editor.Document()
	contextText := s.editor.Context()

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(export.Markdown(doc, contextText))); err != nil {
			slog.Error("Server.exportHandler: failed to write markdown", "error", err)
		}
	case "json":
		data, err := export.JSON(doc, contextText, time.Now())
		if err != nil {
			slog.Error("Server.exportHandler: failed to render JSON export", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to render export"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			slog.Error("Server.exportHandler: failed to write JSON export", "error", err)
		}
	default:
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Unknown export format: "+format))
	}
}

// shareHandler encodes the current document into a share token (GET
// /share) or decodes a token into the editor (POST /share?token=...).
func (s *Server) shareHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		token, err := export.EncodeShare(s.editor.Document(), s.editor.Context())
		if err != nil {
			slog.Error("Server.shareHandler: failed to encode share token", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to encode share token"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"token": token}))
	case http.MethodPost:
		token := r.URL.Query().Get("token")
		if token == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: token"))
			return
		}
		prompt, contextText, err := export.DecodeShare(token)
		if err != nil {
			slog.Warn("Server.shareHandler: failed to decode share token", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid share token"))
			return
		}
		s.editor.SetDocument(prompt)
		s.editor.SetContext(contextText)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Shared prompt loaded", nil))
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"gridsight/internal/config"
	"gridsight/internal/contract"
	"gridsight/internal/faults"
	"gridsight/internal/journal"
	"gridsight/internal/logging"
	"gridsight/internal/pipeline"
	"gridsight/internal/session"
	"gridsight/internal/vision"
)

const shutdownTimeout = 5 * time.Second

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", requireToken(token, srv.handleStatus))
	mux.HandleFunc("/api/import", requireToken(token, srv.handleImport))
	mux.HandleFunc("/api/sessions", requireToken(token, srv.handleSessions))
	mux.HandleFunc("/api/sessions/", requireToken(token, srv.handleSession))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	payload := statusResponse{
		Running:      status.Running,
		PID:          status.PID,
		Workers:      status.Workers,
		QueueDepth:   status.QueueDepth,
		JournalPath:  status.JournalPath,
		LockFilePath: status.LockFilePath,
	}
	if snap, ok := s.daemon.Manager().Current(); ok {
		view := sessionViewFromSnapshot(snap)
		payload.Session = &view
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	path := strings.TrimSpace(req.ImagePath)
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "image_path is required")
		return
	}

	input, err := vision.NewRawInput(path)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	raw, err := contract.Normalize(input)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snap, err := s.daemon.Manager().StartImport(context.WithoutCancel(r.Context()), raw)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, sessionViewFromSnapshot(snap))
}

func (s *apiServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	records, err := s.daemon.Journal().ListSessions(r.Context(), 0)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]sessionView, 0, len(records))
	for _, rec := range records {
		views = append(views, sessionViewFromRecord(rec))
	}
	s.writeJSON(w, http.StatusOK, sessionListResponse{Sessions: views})
}

// handleSession routes /api/sessions/{id} and the crop/review/cancel
// actions beneath it.
func (s *apiServer) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || strings.Contains(action, "/") {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.describeSession(w, r, id)
	case "crop":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.daemon.Manager().SubmitManualCrop(r.Context(), id, payload); err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, actionResponse{OK: true})
	case "review":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req reviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.daemon.Manager().ApproveReview(r.Context(), id, req.Result); err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, actionResponse{OK: true})
	case "cancel":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := s.daemon.Manager().CancelSession(id); err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, actionResponse{OK: true})
	default:
		s.writeError(w, http.StatusNotFound, "session not found")
	}
}

func (s *apiServer) describeSession(w http.ResponseWriter, r *http.Request, id string) {
	if snap, ok := s.daemon.Manager().Get(id); ok {
		s.writeJSON(w, http.StatusOK, sessionViewFromSnapshot(snap))
		return
	}
	rec, err := s.daemon.Journal().GetSession(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	view := sessionViewFromRecord(rec)
	transitions, err := s.daemon.Journal().Transitions(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, tr := range transitions {
		view.Transitions = append(view.Transitions, transitionView{
			From:  tr.From,
			To:    tr.To,
			Stage: tr.Stage,
			At:    tr.At,
		})
	}
	s.writeJSON(w, http.StatusOK, view)
}

// writeFailure maps pipeline errors onto HTTP statuses.
func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	var transition *session.InvalidTransitionError
	switch {
	case errors.Is(err, pipeline.ErrUnknownSession), errors.Is(err, journal.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "session not found")
	case contract.IsViolation(err):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &transition):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, faults.ErrBusy):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, faults.ErrUnavailable), errors.Is(err, pipeline.ErrManagerClosed):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("api response encode failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

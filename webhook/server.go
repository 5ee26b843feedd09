// Package webhook exposes the HTTP trigger surface: a push endpoint that
// starts pipeline runs, superseding any in-flight run on the same branch.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/conveyci/convey/observe"
)

// Runner starts one pipeline run for a push. It blocks until the run
// reaches a terminal state and returns the run number.
type Runner func(ctx context.Context, branch, commit string) (int, error)

// PushRequest is the payload of POST /hooks/push.
type PushRequest struct {
	Branch string `json:"branch"`
	Commit string `json:"commit"`
}

// PushResponse acknowledges an accepted push.
type PushResponse struct {
	DeliveryID string `json:"delivery_id"`
	Branch     string `json:"branch"`
	Commit     string `json:"commit"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port   int
	Runner Runner
	Logger observe.Logger
}

type inflight struct {
	deliveryID string
	cancel     context.CancelFunc
	done       chan struct{}
}

// Server accepts push deliveries and dispatches runs. At most one run per
// branch is in flight: a newer push cancels the older run, which finishes
// as Aborted before the replacement starts.
type Server struct {
	port   int
	runner Runner
	logger observe.Logger

	mu       sync.Mutex
	inflight map[string]*inflight
	base     context.Context
	wg       sync.WaitGroup

	srv *http.Server
}

// NewServer creates a webhook server.
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		port:     cfg.Port,
		runner:   cfg.Runner,
		logger:   cfg.Logger,
		inflight: make(map[string]*inflight),
		base:     context.Background(),
	}
}

// Handler returns the server's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /hooks/push", s.handlePush)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

// Start begins serving HTTP. It blocks until the context is cancelled or
// an error occurs. In-flight runs are cancelled on shutdown and allowed
// to finish releasing their environments.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}

	go func() {
		<-ctx.Done()
		s.srv.Shutdown(context.Background()) //nolint:errcheck
	}()

	s.logInfo("webhook listener started", map[string]any{"addr": ln.Addr().String()})

	if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	s.wg.Wait()
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// Wait blocks until all dispatched runs have finished.
func (s *Server) Wait() { s.wg.Wait() }

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var req PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "parse error: "+err.Error())
		return
	}
	if req.Branch == "" || req.Commit == "" {
		writeError(w, http.StatusBadRequest, "branch and commit are required")
		return
	}

	deliveryID := uuid.New().String()
	s.dispatch(deliveryID, req.Branch, req.Commit)

	writeJSON(w, http.StatusAccepted, PushResponse{
		DeliveryID: deliveryID,
		Branch:     req.Branch,
		Commit:     req.Commit,
	})
}

// dispatch starts a run for the push, cancelling any in-flight run on the
// same branch first. The new run does not start until the superseded run
// has returned, so its environments are released before work begins.
func (s *Server) dispatch(deliveryID, branch, commit string) {
	s.mu.Lock()
	prev := s.inflight[branch]
	if prev != nil {
		s.logInfo("superseding in-flight run", map[string]any{
			"branch":   branch,
			"previous": prev.deliveryID,
		})
		prev.cancel()
	}
	runCtx, cancel := context.WithCancel(s.base)
	cur := &inflight{deliveryID: deliveryID, cancel: cancel, done: make(chan struct{})}
	s.inflight[branch] = cur
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			close(cur.done)
			s.mu.Lock()
			if s.inflight[branch] == cur {
				delete(s.inflight, branch)
			}
			s.mu.Unlock()
			cancel()
		}()

		if prev != nil {
			<-prev.done
		}

		number, err := s.runner(runCtx, branch, commit)
		fields := map[string]any{
			"delivery": deliveryID,
			"branch":   branch,
			"commit":   commit,
			"run":      number,
		}
		if err != nil {
			fields["error"] = err.Error()
			s.logWarn("run finished with error", fields)
			return
		}
		s.logInfo("run finished", fields)
	}()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
}

func (s *Server) logInfo(msg string, fields map[string]any) {
	if s.logger != nil {
		s.logger.Info(msg, fields)
	}
}

func (s *Server) logWarn(msg string, fields map[string]any) {
	if s.logger != nil {
		s.logger.Warn(msg, fields)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

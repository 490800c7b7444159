// Package server exposes the dashboard HTTP API: thin CRUD over the
// database plus the agent-backed parse and approval-check endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"

	"github.com/missionctl/missionctl/internal/agent"
	"github.com/missionctl/missionctl/internal/calendar"
	"github.com/missionctl/missionctl/internal/cron"
	"github.com/missionctl/missionctl/internal/database"
	"github.com/missionctl/missionctl/internal/gateway"
	"github.com/missionctl/missionctl/internal/interpret"
	"github.com/missionctl/missionctl/internal/metrics"
	"github.com/missionctl/missionctl/internal/repos"
	"github.com/missionctl/missionctl/internal/stream"
	"github.com/missionctl/missionctl/internal/vitals"
)

// TaskParser parses natural-language task prompts.
type TaskParser interface {
	Parse(ctx context.Context, input string) interpret.TaskDraft
}

// EventParser parses natural-language event prompts.
type EventParser interface {
	Parse(ctx context.Context, input string) interpret.EventDraft
}

// ApprovalChecker classifies action risk.
type ApprovalChecker interface {
	Check(ctx context.Context, action string, actionCtx map[string]interface{}) (*interpret.Decision, error)
}

// Deps carries everything the server composes.
type Deps struct {
	Store    *database.Store
	Tasks    TaskParser
	Events   EventParser
	Approver ApprovalChecker
	Cron     *cron.Manager
	Gateway  *gateway.Client
	Vitals   *vitals.Prober
	Repos    *repos.Client
	Calendar *calendar.Syncer
	Broker   *stream.Broker
	Log      logr.Logger
}

// Server is the dashboard HTTP API.
type Server struct {
	router *mux.Router
	log    logr.Logger
	deps   Deps
}

// New creates the server and registers all routes.
func New(deps Deps) *Server {
	s := &Server{
		router: mux.NewRouter(),
		log:    deps.Log.WithName("http"),
		deps:   deps,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(s.instrument)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	r.HandleFunc("/api/tasks", s.handleListTasks).Methods("GET")
	r.HandleFunc("/api/tasks", s.handleCreateTask).Methods("POST")
	r.HandleFunc("/api/tasks/parse", s.handleParseTask).Methods("POST")
	r.HandleFunc("/api/tasks/{id}", s.handleUpdateTask).Methods("PUT")
	r.HandleFunc("/api/tasks/{id}", s.handleDeleteTask).Methods("DELETE")

	r.HandleFunc("/api/events", s.handleListEvents).Methods("GET")
	r.HandleFunc("/api/events", s.handleCreateEvent).Methods("POST")
	r.HandleFunc("/api/events/parse", s.handleParseEvent).Methods("POST")
	r.HandleFunc("/api/calendar/sync", s.handleCalendarSync).Methods("POST")

	r.HandleFunc("/api/approvals", s.handleListApprovals).Methods("GET")
	r.HandleFunc("/api/approvals", s.handleCreateApproval).Methods("POST")
	r.HandleFunc("/api/approvals/check", s.handleCheckApproval).Methods("POST")
	r.HandleFunc("/api/approvals/{id}", s.handleGetApproval).Methods("GET")
	r.HandleFunc("/api/approvals/{id}", s.handleRespondApproval).Methods("PUT")

	r.HandleFunc("/api/people", s.handleListPeople).Methods("GET")
	r.HandleFunc("/api/people", s.handleCreatePerson).Methods("POST")
	r.HandleFunc("/api/people/{id}", s.handleUpdatePerson).Methods("PUT")
	r.HandleFunc("/api/people/{id}", s.handleDeletePerson).Methods("DELETE")

	r.HandleFunc("/api/cron", s.handleCronList).Methods("GET")
	r.HandleFunc("/api/cron/add", s.handleCronAdd).Methods("POST")
	r.HandleFunc("/api/cron/update", s.handleCronUpdate).Methods("POST")
	r.HandleFunc("/api/cron/remove", s.handleCronRemove).Methods("POST")
	r.HandleFunc("/api/cron/run", s.handleCronRun).Methods("POST")

	r.HandleFunc("/api/system", s.handleSystem).Methods("GET")
	r.HandleFunc("/api/gateway/status", s.handleGatewayStatus).Methods("GET")
	r.HandleFunc("/api/gateway/sessions", s.handleGatewaySessions).Methods("GET")
	r.HandleFunc("/api/gateway/restart", s.handleGatewayRestart).Methods("POST")

	r.HandleFunc("/api/repos", s.handleListRepos).Methods("GET")
	r.HandleFunc("/api/repos/{owner}/{repo}/issues", s.handleRepoIssues).Methods("GET")
	r.HandleFunc("/api/repos/{owner}/{repo}/pulls", s.handleRepoPulls).Methods("GET")
	r.HandleFunc("/api/repos/{owner}/{repo}/commits", s.handleRepoCommits).Methods("GET")
	r.HandleFunc("/api/repos/{owner}/{repo}/contributors", s.handleRepoContributors).Methods("GET")

	if s.deps.Broker != nil {
		r.Handle("/api/stream", s.deps.Broker).Methods("GET")
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the server wrapped as an http.Handler for mounting.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// instrument records per-route request counters.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.ObserveRequest(route, fmt.Sprint(rec.status))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working behind the instrumentation wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeClassifiedError maps the agent error taxonomy onto HTTP statuses.
func writeClassifiedError(w http.ResponseWriter, err error) {
	var cerr *agent.ClassifiedError
	if !errors.As(err, &cerr) {
		cerr = agent.Classify(err)
	}

	status := http.StatusInternalServerError
	switch cerr.Kind {
	case agent.KindAgentUnavailable:
		status = http.StatusServiceUnavailable
	case agent.KindTimeout:
		status = http.StatusGatewayTimeout
	case agent.KindMalformedResponse:
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{
		"error": cerr.Message,
		"kind":  string(cerr.Kind),
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) publish(eventType string, data map[string]interface{}) {
	if s.deps.Broker != nil {
		s.deps.Broker.Publish(eventType, data)
	}
}

func parseTimeParam(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Vitals.Collect(r.Context()))
}

func (s *Server) handleGatewayStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Gateway.Status(r.Context())
	if err != nil {
		s.log.Error(err, "gateway status probe failed")
		writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleGatewaySessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.deps.Gateway.Sessions(r.Context())
	if err != nil {
		s.log.Error(err, "gateway session listing failed")
		writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGatewayRestart(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Gateway.Restart(r.Context()); err != nil {
		writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Gateway restart initiated",
		"timestamp": time.Now().UnixMilli(),
	})
}

func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Repos.ListRepos(r.Context()))
}

func repoParams(r *http.Request) (owner, repo string, limit int) {
	vars := mux.Vars(r)
	limit = 10
	if parsed, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && parsed > 0 {
		limit = parsed
	}
	return vars["owner"], vars["repo"], limit
}

func (s *Server) handleRepoIssues(w http.ResponseWriter, r *http.Request) {
	owner, repo, limit := repoParams(r)
	writeJSON(w, http.StatusOK, s.deps.Repos.Issues(r.Context(), owner, repo, limit))
}

func (s *Server) handleRepoPulls(w http.ResponseWriter, r *http.Request) {
	owner, repo, limit := repoParams(r)
	writeJSON(w, http.StatusOK, s.deps.Repos.PullRequests(r.Context(), owner, repo, limit))
}

func (s *Server) handleRepoCommits(w http.ResponseWriter, r *http.Request) {
	owner, repo, limit := repoParams(r)
	writeJSON(w, http.StatusOK, s.deps.Repos.Commits(r.Context(), owner, repo, limit))
}

func (s *Server) handleRepoContributors(w http.ResponseWriter, r *http.Request) {
	owner, repo, limit := repoParams(r)
	writeJSON(w, http.StatusOK, s.deps.Repos.Contributors(r.Context(), owner, repo, limit))
}

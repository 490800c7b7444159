package server

import (
	"net/http"

	"github.com/missionctl/missionctl/internal/cron"
)

func (s *Server) handleCronList(w http.ResponseWriter, r *http.Request) {
	env, err := s.deps.Cron.List(r.Context())
	if err != nil {
		s.log.Error(err, "failed to list cron jobs")
		writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleCronAdd(w http.ResponseWriter, r *http.Request) {
	var job cron.Job
	if err := decodeBody(r, &job); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.deps.Cron.Add(r.Context(), job)
	if err != nil {
		s.log.Error(err, "failed to add cron job", "name", job.Name)
		writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": out})
}

func (s *Server) handleCronUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID string `json:"jobId"`
		cron.JobUpdate
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.deps.Cron.Update(r.Context(), req.JobID, req.JobUpdate)
	if err != nil {
		s.log.Error(err, "failed to update cron job", "jobId", req.JobID)
		writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": out})
}

func (s *Server) handleCronRemove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID string `json:"jobId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	env, err := s.deps.Cron.Remove(r.Context(), req.JobID)
	if err != nil {
		s.log.Error(err, "failed to remove cron job", "jobId", req.JobID)
		writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleCronRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID string `json:"jobId"`
		Mode  string `json:"mode"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	env, err := s.deps.Cron.Run(r.Context(), req.JobID, req.Mode)
	if err != nil {
		s.log.Error(err, "failed to run cron job", "jobId", req.JobID)
		writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

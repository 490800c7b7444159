package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/missionctl/missionctl/internal/database"
	"github.com/missionctl/missionctl/internal/interpret"
)

type taskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"dueDate"`
	AssignedTo  string   `json:"assignedTo"`
	Tags        []string `json:"tags"`
	ProjectID   string   `json:"projectId"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := s.deps.Store.ListTasks(r.Context(), database.TaskFilter{
		Status:    q.Get("status"),
		Priority:  q.Get("priority"),
		ProjectID: q.Get("projectId"),
		Search:    q.Get("search"),
	})
	if err != nil {
		s.log.Error(err, "failed to list tasks")
		writeError(w, http.StatusInternalServerError, "failed to fetch tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	task := database.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    string(interpret.NormalizePriority(req.Priority)),
		AssignedTo:  req.AssignedTo,
		ProjectID:   req.ProjectID,
	}
	if task.Status == "" {
		task.Status = "todo"
	}
	if req.DueDate != "" {
		if due := parseTimeParam(req.DueDate); !due.IsZero() {
			task.DueDate = &due
		}
	}
	if len(req.Tags) > 0 {
		encoded, _ := json.Marshal(req.Tags)
		task.Tags = string(encoded)
	}

	if err := s.deps.Store.CreateTask(r.Context(), &task); err != nil {
		s.log.Error(err, "failed to create task")
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	s.publish("task.created", map[string]interface{}{"id": task.ID, "title": task.Title})
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	task, err := s.deps.Store.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req taskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Title != "" {
		task.Title = req.Title
	}
	if req.Description != "" {
		task.Description = req.Description
	}
	if req.Status != "" {
		task.Status = req.Status
	}
	if req.Priority != "" {
		task.Priority = string(interpret.NormalizePriority(req.Priority))
	}
	if req.AssignedTo != "" {
		task.AssignedTo = req.AssignedTo
	}
	if req.ProjectID != "" {
		task.ProjectID = req.ProjectID
	}
	if req.DueDate != "" {
		if due := parseTimeParam(req.DueDate); !due.IsZero() {
			task.DueDate = &due
		}
	}
	if req.Tags != nil {
		encoded, _ := json.Marshal(req.Tags)
		task.Tags = string(encoded)
	}

	if err := s.deps.Store.UpdateTask(r.Context(), task); err != nil {
		s.log.Error(err, "failed to update task", "id", id)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	s.publish("task.updated", map[string]interface{}{"id": task.ID})
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.deps.Store.DeleteTask(r.Context(), id); err != nil {
		s.log.Error(err, "failed to delete task", "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	s.publish("task.deleted", map[string]interface{}{"id": id})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleParseTask turns a prompt into a task draft. The parser never fails,
// so from the client's point of view this endpoint always succeeds.
func (s *Server) handleParseTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	start := time.Now()
	draft := s.deps.Tasks.Parse(r.Context(), req.Prompt)
	s.log.V(1).Info("parsed task prompt", "duration", time.Since(start))
	writeJSON(w, http.StatusOK, draft)
}

package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/missionctl/missionctl/internal/database"
)

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	approvals, err := s.deps.Store.ListApprovals(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.log.Error(err, "failed to list approvals")
		writeError(w, http.StatusInternalServerError, "failed to fetch approvals")
		return
	}
	writeJSON(w, http.StatusOK, approvals)
}

func (s *Server) handleCreateApproval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string                 `json:"title"`
		Description string                 `json:"description"`
		RequestedBy string                 `json:"requestedBy"`
		Metadata    map[string]interface{} `json:"metadata"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	approval := database.Approval{
		Title:       req.Title,
		Description: req.Description,
		RequestedBy: req.RequestedBy,
	}
	if req.Metadata != nil {
		encoded, _ := json.Marshal(req.Metadata)
		approval.Metadata = string(encoded)
	}

	if err := s.deps.Store.CreateApproval(r.Context(), &approval); err != nil {
		s.log.Error(err, "failed to create approval")
		writeError(w, http.StatusInternalServerError, "failed to create approval")
		return
	}

	s.publish("approval.created", map[string]interface{}{"id": approval.ID, "title": approval.Title})
	writeJSON(w, http.StatusCreated, approval)
}

func (s *Server) handleGetApproval(w http.ResponseWriter, r *http.Request) {
	approval, err := s.deps.Store.GetApproval(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "approval not found")
		return
	}
	writeJSON(w, http.StatusOK, approval)
}

func (s *Server) handleRespondApproval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status   string `json:"status"`
		Response string `json:"response"`
		Notes    string `json:"notes"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch req.Status {
	case database.ApprovalPending, database.ApprovalApproved, database.ApprovalDenied:
	default:
		writeError(w, http.StatusBadRequest, "status must be pending, approved or denied")
		return
	}

	id := mux.Vars(r)["id"]
	approval, err := s.deps.Store.RespondToApproval(r.Context(), id, req.Status, req.Response, req.Notes)
	if err != nil {
		s.log.Error(err, "failed to respond to approval", "id", id)
		writeError(w, http.StatusNotFound, "approval not found")
		return
	}

	s.publish("approval.responded", map[string]interface{}{"id": approval.ID, "status": approval.Status})
	writeJSON(w, http.StatusOK, approval)
}

// handleCheckApproval asks the agent whether an action needs sign off and,
// when it does, persists the decision as an approval record. Unlike the
// parse endpoints this one surfaces agent failures to the caller: a risk
// check that cannot be performed must not look like "no approval needed".
func (s *Server) handleCheckApproval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action  string                 `json:"action"`
		Context map[string]interface{} `json:"context"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}
	if req.Context == nil {
		req.Context = map[string]interface{}{}
	}

	decision, err := s.deps.Approver.Check(r.Context(), req.Action, req.Context)
	if err != nil {
		s.log.Error(err, "approval check failed", "action", req.Action)
		writeClassifiedError(w, err)
		return
	}

	if !decision.RequiresApproval {
		writeJSON(w, http.StatusOK, decision)
		return
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"context":   req.Context,
		"riskLevel": decision.RiskLevel,
		"category":  decision.Category,
	})
	approval := database.Approval{
		Title:       req.Action,
		Description: decision.Reason,
		RequestedBy: "mission-control",
		Metadata:    string(metadata),
	}
	if err := s.deps.Store.CreateApproval(r.Context(), &approval); err != nil {
		s.log.Error(err, "failed to persist approval record", "action", req.Action)
		writeError(w, http.StatusInternalServerError, "failed to record approval request")
		return
	}

	s.publish("approval.created", map[string]interface{}{"id": approval.ID, "title": approval.Title})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requiresApproval": decision.RequiresApproval,
		"reason":           decision.Reason,
		"riskLevel":        decision.RiskLevel,
		"category":         decision.Category,
		"approvalId":       approval.ID,
	})
}

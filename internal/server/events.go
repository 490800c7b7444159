package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/missionctl/missionctl/internal/calendar"
	"github.com/missionctl/missionctl/internal/database"
)

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := s.deps.Store.ListEvents(r.Context(),
		parseTimeParam(q.Get("from")), parseTimeParam(q.Get("to")))
	if err != nil {
		s.log.Error(err, "failed to list events")
		writeError(w, http.StatusInternalServerError, "failed to fetch events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		StartTime   string   `json:"startTime"`
		EndTime     string   `json:"endTime"`
		Location    string   `json:"location"`
		Attendees   []string `json:"attendees"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := parseTimeParam(req.StartTime)
	end := parseTimeParam(req.EndTime)
	if strings.TrimSpace(req.Title) == "" || start.IsZero() || end.IsZero() {
		writeError(w, http.StatusBadRequest, "title, startTime and endTime are required")
		return
	}

	event := database.CalendarEvent{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   start,
		EndTime:     end,
		Location:    req.Location,
	}
	if len(req.Attendees) > 0 {
		encoded, _ := json.Marshal(req.Attendees)
		event.Attendees = string(encoded)
	}

	if err := s.deps.Store.CreateEvent(r.Context(), &event); err != nil {
		s.log.Error(err, "failed to create event")
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	s.publish("event.created", map[string]interface{}{"id": event.ID, "title": event.Title})
	writeJSON(w, http.StatusCreated, event)
}

// handleParseEvent turns a prompt into an event draft; like task parsing it
// always succeeds from the client's point of view.
func (s *Server) handleParseEvent(w http.ResponseWriter, r *http.Request) {
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

	draft := s.deps.Events.Parse(r.Context(), req.Prompt)
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleCalendarSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action    string                 `json:"action"`
		EventData map[string]interface{} `json:"eventData"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Action {
	case "sync":
		synced, err := s.deps.Calendar.Sync(r.Context())
		if err != nil {
			s.log.Error(err, "calendar sync failed", "synced", synced)
			writeError(w, http.StatusInternalServerError, "failed to sync calendar")
			return
		}
		s.publish("calendar.synced", map[string]interface{}{"synced": synced})
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"synced":  synced,
			"message": fmt.Sprintf("Synced %d events from the calendar provider", synced),
		})

	case "create":
		var create calendar.CreateRequest
		if err := remarshal(req.EventData, &create); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		event, err := s.deps.Calendar.Create(r.Context(), create)
		if err != nil {
			s.log.Error(err, "calendar create failed")
			writeError(w, http.StatusInternalServerError, "failed to create calendar event")
			return
		}
		s.publish("event.created", map[string]interface{}{"id": event.ID, "title": event.Title})
		writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "event": event})

	case "update":
		var update struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		}
		if err := remarshal(req.EventData, &update); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		event, err := s.deps.Store.GetEvent(r.Context(), update.ID)
		if err != nil {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		if err := s.deps.Calendar.UpdateTitle(r.Context(), event, update.Title); err != nil {
			s.log.Error(err, "calendar update failed", "id", update.ID)
			writeError(w, http.StatusInternalServerError, "failed to update calendar event")
			return
		}
		s.publish("event.updated", map[string]interface{}{"id": event.ID})
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "event": event})

	case "delete":
		var del struct {
			ID string `json:"id"`
		}
		if err := remarshal(req.EventData, &del); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		event, err := s.deps.Store.GetEvent(r.Context(), del.ID)
		if err != nil {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		if err := s.deps.Calendar.Delete(r.Context(), event); err != nil {
			s.log.Error(err, "calendar delete failed", "id", del.ID)
			writeError(w, http.StatusInternalServerError, "failed to delete calendar event")
			return
		}
		s.publish("event.deleted", map[string]interface{}{"id": del.ID})
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeError(w, http.StatusBadRequest, "invalid action")
	}
}

// remarshal converts a decoded JSON map into a typed request struct.
func remarshal(data map[string]interface{}, v interface{}) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("invalid event data: %w", err)
	}
	if err := json.Unmarshal(encoded, v); err != nil {
		return fmt.Errorf("invalid event data: %w", err)
	}
	return nil
}

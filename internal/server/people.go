package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/missionctl/missionctl/internal/database"
)

type personRequest struct {
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	Tags        []string          `json:"tags"`
	SocialLinks map[string]string `json:"socialLinks"`
	Notes       string            `json:"notes"`
	LastContact string            `json:"lastContact"`
}

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.deps.Store.ListPeople(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.log.Error(err, "failed to list people")
		writeError(w, http.StatusInternalServerError, "failed to fetch people")
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	person := database.Person{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Notes: req.Notes,
	}
	if len(req.Tags) > 0 {
		encoded, _ := json.Marshal(req.Tags)
		person.Tags = string(encoded)
	}
	if len(req.SocialLinks) > 0 {
		encoded, _ := json.Marshal(req.SocialLinks)
		person.SocialLinks = string(encoded)
	}
	if req.LastContact != "" {
		if t := parseTimeParam(req.LastContact); !t.IsZero() {
			person.LastContact = &t
		}
	}

	if err := s.deps.Store.CreatePerson(r.Context(), &person); err != nil {
		s.log.Error(err, "failed to create person")
		writeError(w, http.StatusInternalServerError, "failed to create person")
		return
	}
	writeJSON(w, http.StatusCreated, person)
}

func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	person, err := s.deps.Store.GetPerson(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "person not found")
		return
	}

	var req personRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name != "" {
		person.Name = req.Name
	}
	if req.Email != "" {
		person.Email = req.Email
	}
	if req.Phone != "" {
		person.Phone = req.Phone
	}
	if req.Notes != "" {
		person.Notes = req.Notes
	}
	if req.Tags != nil {
		encoded, _ := json.Marshal(req.Tags)
		person.Tags = string(encoded)
	}
	if req.SocialLinks != nil {
		encoded, _ := json.Marshal(req.SocialLinks)
		person.SocialLinks = string(encoded)
	}
	if req.LastContact != "" {
		if t := parseTimeParam(req.LastContact); !t.IsZero() {
			person.LastContact = &t
		}
	}

	if err := s.deps.Store.UpdatePerson(r.Context(), person); err != nil {
		s.log.Error(err, "failed to update person", "id", id)
		writeError(w, http.StatusInternalServerError, "failed to update person")
		return
	}
	writeJSON(w, http.StatusOK, person)
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.deps.Store.DeletePerson(r.Context(), id); err != nil {
		s.log.Error(err, "failed to delete person", "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete person")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

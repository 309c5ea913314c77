package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/steveyegge/tracker/internal/types"
)

type createUserRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	TeamID *int64 `json:"teamId,omitempty"`
}

// handleUsers serves the /api/users collection.
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		defer r.Body.Close() // nolint:errcheck
		var req createUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSONError(w, http.StatusBadRequest, "decode payload", err.Error())
			return
		}
		user := &types.User{
			Email:  strings.TrimSpace(req.Email),
			Name:   strings.TrimSpace(req.Name),
			TeamID: req.TeamID,
		}
		if err := s.store.CreateUser(r.Context(), user); err != nil {
			writeStorageError(w, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/api/users/%d", user.ID))
		writeJSON(w, http.StatusCreated, user)
	case http.MethodGet:
		users, err := s.store.ListUsers(r.Context())
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleUserByID serves /api/users/{id}.
func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := pathID(r, "/api/users/")
	if !ok || tail != "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		user, err := s.store.GetUser(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := s.store.DeleteUser(r.Context(), id); err != nil {
			writeStorageError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTeams serves POST /api/teams.
func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close() // nolint:errcheck

	var team types.Team
	if err := json.NewDecoder(r.Body).Decode(&team); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "decode payload", err.Error())
		return
	}
	team.Name = strings.TrimSpace(team.Name)
	if err := s.store.CreateTeam(r.Context(), &team); err != nil {
		writeStorageError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/teams/%d", team.ID))
	writeJSON(w, http.StatusCreated, team)
}

// handleTeamByID serves /api/teams/{id}.
func (s *Server) handleTeamByID(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := pathID(r, "/api/teams/")
	if !ok || tail != "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		team, err := s.store.GetTeam(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	case http.MethodDelete:
		if err := s.store.DeleteTeam(r.Context(), id); err != nil {
			writeStorageError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

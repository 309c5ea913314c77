package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/steveyegge/tracker/internal/types"
)

type createProjectRequest struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	TeamID *int64 `json:"teamId,omitempty"`
}

// handleProjects serves the /api/projects collection.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createProject(w, r)
	case http.MethodGet:
		projects, err := s.store.ListProjects(r.Context())
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close() // nolint:errcheck

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "decode payload", err.Error())
		return
	}

	project := &types.Project{
		Key:    strings.TrimSpace(req.Key),
		Name:   strings.TrimSpace(req.Name),
		Status: types.ProjectStatus(req.Status),
		TeamID: req.TeamID,
	}
	if err := s.store.CreateProject(r.Context(), project); err != nil {
		writeStorageError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/projects/%d", project.ID))
	writeJSON(w, http.StatusCreated, project)
}

// handleProjectByID serves /api/projects/{id}. A non-numeric segment is
// treated as a project key, so GET /api/projects/PROJ works too.
func (s *Server) handleProjectByID(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := pathID(r, "/api/projects/")
	if !ok {
		key := strings.TrimPrefix(r.URL.Path, "/api/projects/")
		if r.Method == http.MethodGet && !strings.Contains(key, "/") && key != "" {
			project, err := s.store.GetProjectByKey(r.Context(), key)
			if err != nil {
				writeStorageError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, project)
			return
		}
		http.NotFound(w, r)
		return
	}
	if tail != "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		project, err := s.store.GetProject(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, project)
	case http.MethodPatch:
		defer r.Body.Close() // nolint:errcheck
		var updates map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			WriteJSONError(w, http.StatusBadRequest, "decode payload", err.Error())
			return
		}
		if err := s.store.UpdateProject(r.Context(), id, updates); err != nil {
			writeStorageError(w, err)
			return
		}
		project, err := s.store.GetProject(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, project)
	case http.MethodDelete:
		if err := s.store.DeleteProject(r.Context(), id); err != nil {
			writeStorageError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

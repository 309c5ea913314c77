package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/steveyegge/tracker/internal/types"
)

type createItemRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	ProjectID   int64      `json:"projectId"`
	ParentID    *int64     `json:"parentId,omitempty"`
	AssigneeID  *int64     `json:"assigneeId,omitempty"`
	ReporterID  *int64     `json:"reporterId,omitempty"`
	ExternalID  string     `json:"externalId,omitempty"`
	Estimate    *float64   `json:"estimate,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

type moveItemRequest struct {
	ParentID *int64 `json:"parentId"`
}

type addCommentRequest struct {
	Content string `json:"content"`
}

// handleItems serves the /api/items collection: create and filtered listing.
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createItem(w, r)
	case http.MethodGet:
		filter, err := filterFromQuery(r)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "bad filter", err.Error())
			return
		}
		items, err := s.store.ListWorkItems(r.Context(), filter)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close() // nolint:errcheck

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "decode payload", err.Error())
		return
	}

	item := &types.WorkItem{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Type:        types.ItemType(req.Type),
		Status:      types.Status(req.Status),
		Priority:    types.Priority(req.Priority),
		ProjectID:   req.ProjectID,
		ParentID:    req.ParentID,
		AssigneeID:  req.AssigneeID,
		ReporterID:  req.ReporterID,
		ExternalID:  strings.TrimSpace(req.ExternalID),
		Estimate:    req.Estimate,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if err := s.store.CreateWorkItem(r.Context(), item, actorID(r)); err != nil {
		writeStorageError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/items/%d", item.ID))
	writeJSON(w, http.StatusCreated, item)
}

// handleItemSubtree serves /api/items/{id} and its sub-resources:
// move, children, history, comments, attachments. A non-numeric ID
// segment is treated as an external identifier for GET.
func (s *Server) handleItemSubtree(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := pathID(r, "/api/items/")
	if !ok {
		externalID := strings.TrimPrefix(r.URL.Path, "/api/items/")
		if r.Method == http.MethodGet && !strings.Contains(externalID, "/") && externalID != "" {
			item, err := s.store.GetWorkItemByExternalID(r.Context(), externalID)
			if err != nil {
				writeStorageError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, item)
			return
		}
		http.NotFound(w, r)
		return
	}

	switch tail {
	case "":
		s.handleItem(w, r, id)
	case "move":
		s.moveItem(w, r, id)
	case "children":
		s.getCollection(w, r, func() (interface{}, error) {
			children, err := s.store.GetChildren(r.Context(), id)
			return map[string]interface{}{"children": children}, err
		})
	case "history":
		s.getCollection(w, r, func() (interface{}, error) {
			history, err := s.store.GetHistory(r.Context(), id)
			return map[string]interface{}{"history": history}, err
		})
	case "comments":
		s.handleItemComments(w, r, id)
	case "attachments":
		s.handleItemAttachments(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		item, err := s.store.GetWorkItem(r.Context(), id, expandFromQuery(r))
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodPatch:
		defer r.Body.Close() // nolint:errcheck
		var updates map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			WriteJSONError(w, http.StatusBadRequest, "decode payload", err.Error())
			return
		}
		if err := s.store.UpdateWorkItem(r.Context(), id, updates, actorID(r)); err != nil {
			writeStorageError(w, err)
			return
		}
		item, err := s.store.GetWorkItem(r.Context(), id, types.ExpandOptions{})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		if err := s.store.DeleteWorkItem(r.Context(), id); err != nil {
			writeStorageError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) moveItem(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close() // nolint:errcheck

	var req moveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "decode payload", err.Error())
		return
	}
	if err := s.store.MoveWorkItem(r.Context(), id, req.ParentID, actorID(r)); err != nil {
		writeStorageError(w, err)
		return
	}
	item, err := s.store.GetWorkItem(r.Context(), id, types.ExpandOptions{})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) getCollection(w http.ResponseWriter, r *http.Request, load func() (interface{}, error)) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	payload, err := load()
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleItemComments(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodPost:
		defer r.Body.Close() // nolint:errcheck
		var req addCommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSONError(w, http.StatusBadRequest, "decode payload", err.Error())
			return
		}
		comment, err := s.store.AddComment(r.Context(), id, actorID(r), req.Content)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, comment)
	case http.MethodGet:
		comments, err := s.store.GetComments(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleItemAttachments(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodPost:
		defer r.Body.Close() // nolint:errcheck
		var meta types.FileMeta
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
			WriteJSONError(w, http.StatusBadRequest, "decode payload", err.Error())
			return
		}
		attachment, err := s.store.AddAttachment(r.Context(), id, actorID(r), meta)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, attachment)
	case http.MethodGet:
		attachments, err := s.store.GetAttachments(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"attachments": attachments})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCommentByID serves DELETE /api/comments/{id}.
func (s *Server) handleCommentByID(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, "/api/comments/", s.store.DeleteComment)
}

// handleAttachmentByID serves DELETE /api/attachments/{id}.
func (s *Server) handleAttachmentByID(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, "/api/attachments/", s.store.DeleteAttachment)
}

func (s *Server) deleteByID(w http.ResponseWriter, r *http.Request, prefix string, del func(ctx context.Context, id int64) error) {
	id, tail, ok := pathID(r, prefix)
	if !ok || tail != "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := del(r.Context(), id); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// expandFromQuery parses ?expand=children,history,comments,attachments.
// "all" expands everything; unknown names are ignored.
func expandFromQuery(r *http.Request) types.ExpandOptions {
	var opts types.ExpandOptions
	for _, raw := range strings.Split(r.URL.Query().Get("expand"), ",") {
		switch strings.TrimSpace(raw) {
		case "children":
			opts.Children = true
		case "history":
			opts.History = true
		case "comments":
			opts.Comments = true
		case "attachments":
			opts.Attachments = true
		case "all":
			return types.ExpandOptions{Children: true, History: true, Comments: true, Attachments: true}
		}
	}
	return opts
}

// filterFromQuery builds an ItemFilter from list query parameters.
func filterFromQuery(r *http.Request) (types.ItemFilter, error) {
	var filter types.ItemFilter
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  **int64
	}{
		{"projectId", &filter.ProjectID},
		{"assigneeId", &filter.AssigneeID},
		{"parentId", &filter.ParentID},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid %s %q", p.name, raw)
		}
		*p.dst = &id
	}

	if raw := q.Get("status"); raw != "" {
		status := types.Status(raw)
		if !status.IsValid() {
			return filter, fmt.Errorf("invalid status %q", raw)
		}
		filter.Status = &status
	}
	if raw := q.Get("type"); raw != "" {
		itemType := types.ItemType(raw)
		if !itemType.IsValid() {
			return filter, fmt.Errorf("invalid type %q", raw)
		}
		filter.Type = &itemType
	}
	return filter, nil
}

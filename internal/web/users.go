package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"confagenda/internal/attendee"
	appLog "confagenda/internal/log"
	"confagenda/internal/model"
)

func (s *Server) directory(w http.ResponseWriter) (Directory, bool) {
	if s.deps.Directory == nil {
		writeError(w, http.StatusServiceUnavailable, "no attendee mirror configured")
		return nil, false
	}
	return s.deps.Directory, true
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.directory(w)
	if !ok {
		return
	}
	users, err := dir.AllUsers(r.Context())
	if err != nil {
		appLog.Error("list users failed", err, "request_id", requestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Total int          `json:"total"`
		Users []model.User `json:"users"`
	}{len(users), nonNil(users)})
}

// handleCreateUser adds one attendee. A missing breakout group is derived as
// management.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.directory(w)
	if !ok {
		return
	}
	var u model.User
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u.PegaID, u.Email = strings.TrimSpace(u.PegaID), strings.TrimSpace(u.Email)
	if u.PegaID == "" && u.Email == "" {
		writeError(w, http.StatusBadRequest, "Email or Pega ID is required")
		return
	}
	if u.BreakoutGroup == "" {
		u.BreakoutGroup = attendee.GroupManagement
	}
	if err := dir.CreateUser(r.Context(), u); err != nil {
		appLog.Error("create user failed", err, "request_id", requestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		User model.User `json:"user"`
	}{u})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.directory(w)
	if !ok {
		return
	}
	var patch model.UserPatch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := dir.UpdateUser(r.Context(), r.PathValue("id"), patch)
	switch {
	case errors.Is(err, attendee.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case err != nil:
		appLog.Error("update user failed", err, "request_id", requestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to update user")
	default:
		writeJSON(w, http.StatusOK, struct {
			User model.User `json:"user"`
		}{u})
	}
}

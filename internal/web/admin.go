package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/jsonc"

	"confagenda/internal/attendee"
	appLog "confagenda/internal/log"
	"confagenda/internal/model"
)

const (
	maxBodyBytes  = 8 << 20
	inspectSample = 5
)

type userLookupRequest struct {
	Input string `json:"input"`
}

type userLookupResponse struct {
	User   model.User `json:"user"`
	Source string     `json:"source"`
}

func (s *Server) handleUserLookup(w http.ResponseWriter, r *http.Request) {
	var req userLookupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input := strings.TrimSpace(req.Input)
	if input == "" {
		writeError(w, http.StatusBadRequest, "Email or Pega ID is required")
		return
	}

	u, source, err := s.lookup(r, input)
	switch {
	case errors.Is(err, attendee.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case err != nil:
		appLog.Error("user lookup failed", err, "request_id", requestID(r.Context()))
		writeError(w, http.StatusServiceUnavailable, "attendee lookup is unavailable")
	default:
		writeJSON(w, http.StatusOK, userLookupResponse{User: u, Source: source})
	}
}

type connectionResponse struct {
	Connected bool   `json:"connected"`
	UserCount int    `json:"user_count"`
	Source    string `json:"source"`
	Message   string `json:"message"`
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	store := s.deps.Store
	if store == nil {
		writeJSON(w, http.StatusServiceUnavailable, connectionResponse{
			Source:  "none",
			Message: "no attendee backend configured",
		})
		return
	}
	n, err := store.Count(r.Context())
	if err != nil {
		appLog.Error("attendee backend check failed", err, "source", store.Name())
		writeJSON(w, http.StatusServiceUnavailable, connectionResponse{
			Source:  store.Name(),
			Message: "attendee backend is unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, connectionResponse{
		Connected: true,
		UserCount: n,
		Source:    store.Name(),
		Message:   "attendee backend is connected",
	})
}

type inspectResponse struct {
	Source      string       `json:"source"`
	Total       int          `json:"total"`
	SampleUsers []model.User `json:"sample_users"`
	MirrorTotal *int         `json:"mirror_total,omitempty"`
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	store := s.deps.Store
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "no attendee backend configured")
		return
	}
	ctx := r.Context()
	n, err := store.Count(ctx)
	if err != nil {
		appLog.Error("inspect count failed", err, "source", store.Name())
		writeError(w, http.StatusServiceUnavailable, "failed to inspect attendee backend")
		return
	}
	sample, err := store.Sample(ctx, inspectSample)
	if err != nil {
		appLog.Error("inspect sample failed", err, "source", store.Name())
		writeError(w, http.StatusServiceUnavailable, "failed to inspect attendee backend")
		return
	}
	resp := inspectResponse{Source: store.Name(), Total: n, SampleUsers: sample}
	if s.deps.Mirror != nil {
		if m, err := s.deps.Mirror.Count(ctx); err == nil {
			resp.MirrorTotal = &m
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type migrateResponse struct {
	Migrated int    `json:"migrated"`
	Total    int    `json:"total"`
	Source   string `json:"source"`
}

// handleMigrateUsers replaces the mirror with the posted users, or with the
// static users file when the body is empty.
func (s *Server) handleMigrateUsers(w http.ResponseWriter, r *http.Request) {
	mirror := s.deps.Mirror
	if mirror == nil {
		writeError(w, http.StatusServiceUnavailable, "no attendee mirror configured")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var (
		users  []model.User
		source = "request"
	)
	if len(strings.TrimSpace(string(body))) == 0 {
		static, err := attendee.LoadStatic(s.deps.UsersPath)
		if err != nil {
			appLog.Error("migrate: load users file failed", err, "path", s.deps.UsersPath)
			writeError(w, http.StatusInternalServerError, "failed to load users file")
			return
		}
		users, source = static.Users(), "users_file"
	} else {
		var payload struct {
			Users []model.User `json:"users"`
		}
		if err := json.Unmarshal(jsonc.ToJSON(body), &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid users payload")
			return
		}
		users = payload.Users
	}
	if len(users) == 0 {
		writeError(w, http.StatusBadRequest, "no users to migrate")
		return
	}

	ctx := r.Context()
	if err := mirror.ReplaceAll(ctx, users); err != nil {
		appLog.Error("migrate: replace failed", err, "count", len(users))
		writeError(w, http.StatusInternalServerError, "failed to migrate users")
		return
	}
	total, err := mirror.Count(ctx)
	if err != nil {
		total = len(users)
	}
	appLog.Info("attendee mirror replaced", "source", source, "count", len(users),
		"request_id", requestID(ctx))
	writeJSON(w, http.StatusOK, migrateResponse{Migrated: len(users), Total: total, Source: source})
}

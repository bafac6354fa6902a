package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"confagenda/internal/agenda"
	"confagenda/internal/attendee"
	"confagenda/internal/config"
	appLog "confagenda/internal/log"
	"confagenda/internal/model"
)

const shutdownTimeout = 10 * time.Second

// Inspector is the read-only admin view of an attendee backend.
type Inspector interface {
	Name() string
	Count(ctx context.Context) (int, error)
	Sample(ctx context.Context, limit int) ([]model.User, error)
}

// Mirror is the writable local attendee copy.
type Mirror interface {
	Count(ctx context.Context) (int, error)
	ReplaceAll(ctx context.Context, users []model.User) error
}

// Directory is the editable attendee list behind the admin user routes.
type Directory interface {
	AllUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, u model.User) error
	UpdateUser(ctx context.Context, identifier string, patch model.UserPatch) (model.User, error)
}

// Deps are the collaborators a Server renders from.
type Deps struct {
	Engine *agenda.Engine

	// Attendees answers sign-in lookups. Usually an *attendee.Chain.
	Attendees attendee.Provider
	// Store backs the connection and inspection endpoints. nil reports
	// the backend as unavailable.
	Store Inspector
	// Mirror receives /api/migrate-users. nil disables the endpoint.
	Mirror Mirror
	// Directory backs /api/users. nil disables those routes.
	Directory Directory

	// UsersPath is the static users file used when a migration request has
	// no body.
	UsersPath string

	// Now is the clock used to pick the current day. nil uses time.Now.
	Now func() time.Time
}

// Server serves the agenda pages and the JSON API.
type Server struct {
	cfg  *config.Config
	deps Deps
	mux  *http.ServeMux

	regional map[string]bool

	// Exported calendars are cached briefly; DTSTAMP is the only part that
	// changes between requests.
	calMu    sync.RWMutex
	calCache map[string]calendarCache
}

//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if deps.Engine == nil {
		deps.Engine = agenda.New(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		mux:      http.NewServeMux(),
		regional: make(map[string]bool, len(cfg.RegionalSessionIDs)),
		calCache: make(map[string]calendarCache),
	}
	for _, id := range cfg.RegionalSessionIDs {
		s.regional[id] = true
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return requestLogger(s.mux)
}

// ListenAndServe binds cfg.Listen and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String(),
		"basic_auth", s.basicAuthEnabled())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /static/{file}", s.staticFileServer())

	// Pages.
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /lookup", s.handleLookupForm)
	s.mux.HandleFunc("POST /lookup", s.handleLookupSubmit)
	s.mux.HandleFunc("POST /signout", s.handleSignOut)
	s.mux.HandleFunc("GET /{group}", s.handleGroup)
	s.mux.HandleFunc("GET /{group}/{day}", s.handleDay)

	// Agenda API.
	s.mux.HandleFunc("GET /api/conference", s.handleConference)
	s.mux.HandleFunc("GET /api/groups", s.handleGroups)
	s.mux.HandleFunc("GET /api/days", s.handleDays)
	s.mux.HandleFunc("GET /api/agenda", s.handleAgenda)
	s.mux.HandleFunc("GET /api/featured", s.handleFeatured)
	s.mux.HandleFunc("GET /api/timeslots", s.handleTimeSlots)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/tags", s.handleTags)
	s.mux.HandleFunc("GET /api/tags/{tag}", s.handleTag)
	s.mux.HandleFunc("GET /api/rooms/{id}", s.handleRoom)
	s.mux.HandleFunc("GET /api/speakers/{id}", s.handleSpeaker)
	s.mux.HandleFunc("GET /api/current-day", s.handleCurrentDay)
	s.mux.HandleFunc("GET /api/calendar/{group}/{day}", s.handleCalendar)

	// Attendee API.
	s.mux.HandleFunc("POST /api/user-lookup", s.handleUserLookup)
	s.mux.HandleFunc("GET /api/test-connection", s.handleTestConnection)
	s.mux.Handle("GET /api/inspect-db", s.adminOnly(http.HandlerFunc(s.handleInspect)))
	s.mux.Handle("POST /api/migrate-users", s.adminOnly(http.HandlerFunc(s.handleMigrateUsers)))
	s.mux.Handle("GET /api/users", s.adminOnly(http.HandlerFunc(s.handleListUsers)))
	s.mux.Handle("POST /api/users", s.adminOnly(http.HandlerFunc(s.handleCreateUser)))
	s.mux.Handle("PATCH /api/users/{id}", s.adminOnly(http.HandlerFunc(s.handleUpdateUser)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// adminOnly wraps next with HTTP Basic Auth when credentials are configured.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	if !s.basicAuthEnabled() {
		return next
	}
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="confagenda", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// staticFileServer serves the embedded stylesheet and assets.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

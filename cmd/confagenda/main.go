package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"confagenda/internal/agenda"
	"confagenda/internal/attendee"
	"confagenda/internal/attendee/mongo"
	"confagenda/internal/attendee/sqlite"
	"confagenda/internal/capture"
	"confagenda/internal/config"
	"confagenda/internal/dataset"
	appLog "confagenda/internal/log"
	"confagenda/internal/schedule"
	"confagenda/internal/web"
)

const version = "0.3.0"

type flagConfig struct {
	configPath  string
	envPath     string
	listen      string
	snapshotDir string
	check       bool
}

func main() {
	flags := parseFlags()
	if err := run(flags); err != nil {
		appLog.Error("confagenda failed", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Sync()
}

func parseFlags() flagConfig {
	var f flagConfig
	pflag.StringVarP(&f.configPath, "config", "c", "config.yaml", "Path to config file (created with defaults if missing)")
	pflag.StringVar(&f.envPath, "env", ".env", "Path to a .env file with CONFAGENDA_* overrides")
	pflag.StringVarP(&f.listen, "listen", "l", "", "HTTP listen address (overrides config if set)")
	pflag.StringVar(&f.snapshotDir, "snapshot", "", "Write a PNG of every group/day page to this directory and exit")
	pflag.BoolVar(&f.check, "check", false, "Validate the dataset and exit")
	pflag.Parse()
	return f
}

func run(flags flagConfig) error {
	if err := config.LoadDotEnv(flags.envPath); err != nil {
		return fmt.Errorf("load %s: %w", flags.envPath, err)
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if flags.listen != "" {
		cfg.Listen = flags.listen
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	appLog.Info("confagenda starting",
		"version", version,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"dataset", cfg.DatasetPath,
		"attendee_backend", cfg.Attendee.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ds, err := dataset.Open(ctx, cfg.DatasetPath, cfg.DatasetCacheDir)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	issues := agenda.Check(ds)
	for _, is := range issues {
		appLog.Info("dataset issue", "issue", is.String())
	}
	if flags.check {
		if len(issues) > 0 {
			return fmt.Errorf("dataset has %d issue(s)", len(issues))
		}
		appLog.Info("dataset ok")
		return nil
	}
	engine := agenda.New(ds, agenda.WithLocation(cfg.Location()))

	att, err := openAttendees(ctx, cfg)
	if err != nil {
		return err
	}
	defer att.close()

	srv := web.NewServer(cfg, att.deps(engine, cfg.UsersPath))

	if flags.snapshotDir != "" {
		return snapshot(ctx, srv, engine, flags.snapshotDir)
	}

	sched := schedule.New(cfg.Location())
	if job := att.syncJob(cfg); job != nil {
		if err := sched.Add("attendee-sync", cfg.Attendee.SyncCron, job); err != nil {
			return err
		}
		sched.RunNow("attendee-sync", job)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	err = g.Wait()
	appLog.Info("confagenda exiting")
	return err
}

// attendees holds the opened attendee backends.
type attendees struct {
	static    *attendee.Static
	sqlite    *sqlite.Store
	mongo     *mongo.Store
	usersFile string
}

func openAttendees(ctx context.Context, cfg *config.Config) (*attendees, error) {
	a := &attendees{usersFile: cfg.UsersPath}

	static, err := attendee.LoadStatic(cfg.UsersPath)
	if err != nil {
		// The users file is only a fallback when another backend is set.
		if cfg.Attendee.Backend == config.BackendStatic {
			return nil, fmt.Errorf("load users: %w", err)
		}
		appLog.Error("users file unavailable; continuing without fallback", err, "path", cfg.UsersPath)
		static = nil
	}
	a.static = static

	switch cfg.Attendee.Backend {
	case config.BackendSQLite:
		st, err := sqlite.Open(cfg.Attendee.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open attendee mirror: %w", err)
		}
		a.sqlite = st
	case config.BackendMongo:
		st, err := mongo.Connect(ctx, cfg.Attendee.MongoURI, cfg.Attendee.MongoDatabase, cfg.Attendee.MongoCollection)
		if err != nil {
			appLog.Error("attendee store unreachable; using local data", err)
		} else {
			a.mongo = st
		}
		// The mirror answers whenever the store is down, at startup or later.
		if cfg.Attendee.SQLitePath != "" {
			mirror, err := sqlite.Open(cfg.Attendee.SQLitePath)
			if err != nil {
				appLog.Error("attendee mirror unavailable", err, "path", cfg.Attendee.SQLitePath)
			} else {
				a.sqlite = mirror
			}
		}
	}
	return a, nil
}

// chain orders the backends store, mirror, users file. Absent backends are
// left out so no typed nil reaches the chain.
func (a *attendees) chain() *attendee.Chain {
	var ps []attendee.Provider
	if a.mongo != nil {
		ps = append(ps, a.mongo)
	}
	if a.sqlite != nil {
		ps = append(ps, a.sqlite)
	}
	if a.static != nil {
		ps = append(ps, a.static)
	}
	return attendee.NewChain(ps...)
}

func (a *attendees) deps(engine *agenda.Engine, usersPath string) web.Deps {
	d := web.Deps{
		Engine:    engine,
		Attendees: a.chain(),
		UsersPath: usersPath,
	}
	switch {
	case a.mongo != nil:
		d.Store = a.mongo
	case a.sqlite != nil:
		d.Store = a.sqlite
	case a.static != nil:
		d.Store = a.static
	}
	if a.sqlite != nil {
		d.Mirror = a.sqlite
		d.Directory = a.sqlite
	}
	return d
}

// syncJob refreshes the SQLite mirror from the remote store, or from the
// users file when SQLite is the primary backend.
func (a *attendees) syncJob(cfg *config.Config) schedule.Job {
	if a.sqlite == nil || cfg.Attendee.SyncCron == "" {
		return nil
	}
	if cfg.Attendee.Backend == config.BackendMongo {
		if a.mongo == nil {
			return nil
		}
		return schedule.MirrorFromRecords(a.mongo, a.sqlite)
	}
	return schedule.MirrorFromFile(a.usersFile, a.sqlite)
}

func (a *attendees) close() {
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			appLog.Error("mongo disconnect failed", err)
		}
	}
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			appLog.Error("sqlite close failed", err)
		}
	}
}

// snapshot serves the site on a loopback port, captures every group/day
// page into dir and shuts the server down.
func snapshot(ctx context.Context, srv *web.Server, engine *agenda.Engine, dir string) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}

	var groups []string
	for _, gs := range engine.Groups() {
		groups = append(groups, gs.Key)
	}
	targets := capture.Targets(groups, engine.DayKeys)
	if len(targets) == 0 {
		_ = ln.Close()
		return errors.New("snapshot: no group/day pages to capture")
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServe := context.WithCancel(gctx)
	g.Go(func() error { return srv.Serve(serveCtx, ln) })
	g.Go(func() error {
		defer stopServe()
		files, err := capture.All(gctx, "http://"+ln.Addr().String(), dir, targets, capture.Options{})
		if err != nil {
			return err
		}
		appLog.Info("snapshot complete", "dir", dir, "pages", len(files))
		return nil
	})
	return g.Wait()
}

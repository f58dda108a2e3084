package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"jobpulse-engine/internal/config"
	"jobpulse-engine/internal/dashboard"
	"jobpulse-engine/internal/events"
	"jobpulse-engine/internal/httpapi"
	"jobpulse-engine/internal/logging"
	"jobpulse-engine/internal/ratelimit"
	"jobpulse-engine/internal/scheduler"
	"jobpulse-engine/internal/search"
	"jobpulse-engine/internal/secrets"
	"jobpulse-engine/internal/store"
	"jobpulse-engine/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "engine:", err)
		os.Exit(1)
	}
}

func run() error {
	// The desktop shell passes its app data dir; default to the working dir.
	dataDir := envOr("JOBPULSE_DATA_DIR", ".")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("another engine is already using %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	userCfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		return fmt.Errorf("config bootstrap failed: %w", err)
	}
	loadCfg := func() (config.Config, error) { return loadConfig(userCfgPath) }
	cfg, err := loadCfg()
	if err != nil {
		return err
	}
	var cfgVal atomic.Value // stores config.Config
	cfgVal.Store(cfg)

	log := logging.New(envOr("JOBPULSE_LOG_LEVEL", cfg.App.LogLevel))
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath := filepath.Join(dataDir, "jobpulse.db")
	db, err := store.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("close db", "err", err)
		}
	}()

	// Search: one limiter per provider host feeds the retrying transport.
	hosts := ratelimit.NewHostLimiter(cfg.HTTP.MinInterval())
	tr := transport.New(hosts.ForURL(cfg.Provider.BaseURL), transport.Config{
		Timeout:    cfg.HTTP.Timeout(),
		MaxRetries: cfg.HTTP.MaxRetries,
		BaseDelay:  cfg.HTTP.BackoffBase(),
		MaxDelay:   cfg.HTTP.BackoffMax(),
	}, transport.WithLogger(log))

	clientOpts := []search.Option{search.WithLogger(log)}
	if cfg.Provider.UseToken {
		clientOpts = append(clientOpts, search.WithToken(secrets.GetProviderToken))
	}
	client := search.NewClient(search.Config{
		BaseURL:         cfg.Provider.BaseURL,
		SearchPath:      cfg.Provider.SearchPath,
		SiteURL:         cfg.Provider.SiteURL,
		UserAgent:       cfg.Provider.UserAgent,
		PageSizes:       cfg.Search.PageSizes,
		DefaultPageSize: cfg.Search.DefaultPageSize,
	}, tr, clientOpts...)
	session := search.NewSession(client, cfg.Search.CacheTTL(), search.WithSessionLogger(log))

	tracker := store.NewTracker(db, store.WithLogger(log))
	agg := dashboard.NewAggregator(tracker, cfg.Dashboard.RecentLimit)

	hub := events.NewHub(16)
	publisher := events.Multi{hub}
	if cfg.Events.RedisURL != "" {
		rdb, err := events.NewRedisClient(ctx, cfg.Events.RedisURL)
		if err != nil {
			log.Warn("redis mirror disabled", "err", err)
		} else {
			defer func() { _ = rdb.Close() }()
			publisher = append(publisher, events.NewRedisMirror(rdb, cfg.Events.Channel, log))
		}
	}

	sched := scheduler.New(ctx, log)
	if err := sched.Add("wal-checkpoint", cfg.Maintenance.CheckpointSchedule, db.Checkpoint); err != nil {
		return err
	}
	if err := sched.Add("search-cache-purge", cfg.Maintenance.CachePurgeSchedule, func(context.Context) error {
		if n := session.Purge(); n > 0 {
			log.Debug("search cache purged", "entries", n)
		}
		return nil
	}); err != nil {
		return err
	}
	sched.Start()

	mux := httpapi.NewMux(httpapi.Deps{
		Log:         log,
		Searcher:    session,
		Tracker:     tracker,
		Dashboard:   agg,
		Hub:         hub,
		Publisher:   publisher,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
	})
	token := uuid.NewString()
	mux.HandleFunc("/shutdown", shutdownHandler(token, stop))

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.RequestID,
			httpapi.Recover(log),
			httpapi.AccessLog(log),
			httpapi.Cors,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// The desktop shell reads this line to find the engine and stop it later.
	_ = json.NewEncoder(os.Stdout).Encode(map[string]any{
		"addr":           "http://" + ln.Addr().String(),
		"shutdown_token": token,
	})
	log.Info("engine listening", "addr", ln.Addr().String(), "db", dbPath, "config", userCfgPath)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// open SSE streams never go idle
			_ = srv.Close()
		}
		return nil
	})
	err = g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sched.Stop(stopCtx)
	if cerr := db.Checkpoint(stopCtx); cerr != nil {
		log.Warn("final checkpoint", "err", cerr)
	}
	log.Info("engine stopped")
	return err
}

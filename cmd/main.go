package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ResteasyAPI/internal/auth"
	"ResteasyAPI/internal/config"
	"ResteasyAPI/internal/db"
	"ResteasyAPI/internal/handler"
	"ResteasyAPI/internal/logger"
	"ResteasyAPI/internal/model"
	"ResteasyAPI/internal/pager"
	"ResteasyAPI/internal/processor"
	"ResteasyAPI/internal/request"
	"ResteasyAPI/internal/router"

	"github.com/alecthomas/kong"
	"github.com/cheynewallace/tabby"
)

var CLI struct {
	Debug bool `short:"d" help:"Enable debug logging."`

	Serve   ServeCmd   `cmd:"" help:"Start the API server." default:"1"`
	Routes  RoutesCmd  `cmd:"" help:"Print the route table."`
	Migrate MigrateCmd `cmd:"" help:"Apply or roll back the SQL migrations (postgres)."`
	Cache   CacheCmd   `cmd:"" help:"Manage the count cache."`
}

type ServeCmd struct {
	Port string `help:"Listen port (overrides PORT)."`
}

type RoutesCmd struct{}

type MigrateCmd struct {
	Direction string `arg:"" optional:"" enum:"up,down" default:"up" help:"up applies every pending migration, down rolls back one."`
}

type CacheCmd struct {
	Flush CacheFlushCmd `cmd:"" help:"Drop every cached count from redis."`
}

type CacheFlushCmd struct{}

// app is everything a command needs once the store and registry are up.
type app struct {
	cfg   *config.Config
	sess  db.Session
	reg   *model.Registry
	cache pager.CountCache
	mgr   *handler.Manager
}

func (a *app) close() {
	if a.sess != nil {
		a.sess.Close()
	}
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	excludes, err := config.ParseExcludes(cfg.API.GlobalExcludes)
	if err != nil {
		return nil, err
	}

	sess, err := db.Open(ctx, cfg.StoreDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("store_connected", map[string]any{"driver": sess.Dialect().Name})
	a := &app{cfg: cfg, sess: sess}

	a.reg, err = model.Load(ctx, cfg.ResourcesDir, model.Options{
		ConfigOptions: model.ConfigOptions{
			DefaultConvention: cfg.API.DefaultConvention,
			DefaultMethods:    cfg.API.DefaultMethods,
			MaxPerPage:        cfg.API.MaxPerPage,
			GlobalExcludes:    excludes,
		},
		Introspector: model.IntrospectorFunc(func(ctx context.Context, table string) (map[string]string, error) {
			return db.Columns(ctx, sess, sess.Dialect(), table)
		}),
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load resources: %w", err)
	}

	a.cache, err = countCache(ctx, cfg.CountCache)
	if err != nil {
		a.close()
		return nil, err
	}

	proc := processor.New(sess, a.reg, a.cache)
	a.mgr = handler.NewManager(a.reg, proc, handler.Options{
		Prefix: cfg.API.Prefix,
		Parser: request.Options{DefaultPerPage: cfg.API.DefaultPerPage},
	})
	return a, nil
}

func countCache(ctx context.Context, cfg config.CountCacheConfig) (pager.CountCache, error) {
	switch strings.ToLower(cfg.Mode) {
	case "", "off":
		return pager.NopCache{}, nil
	case "memory":
		return pager.NewMemoryCache(cfg.TTL, cfg.MaxEntries), nil
	case "redis":
		rdb := db.InitRedis(cfg.RedisAddr)
		if err := db.PingRedis(ctx, rdb); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return pager.NewRedisCache(rdb, cfg.TTL), nil
	}
	return nil, fmt.Errorf("unknown COUNT_CACHE mode %q (off, memory, redis)", cfg.Mode)
}

func (s *ServeCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	port := a.cfg.Port
	if s.Port != "" {
		port = s.Port
	}

	opts := router.Options{
		CORS:    a.cfg.CORS,
		Metrics: a.cfg.Metrics,
		Health:  a.sess.Ping,
	}
	if a.cfg.Auth.Enabled {
		v, err := auth.NewJWTValidator(a.cfg.Auth.JWT)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		opts.Auth = v.Middleware
		logger.Info("auth_enabled", map[string]any{"alg": a.cfg.Auth.JWT.ValidationType})
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router.New(a.mgr, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_start", map[string]any{"port": port, "resources": len(a.reg.Resources())})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", map[string]any{"error": err.Error()})
			return err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server_shutdown_failed", map[string]any{"error": err.Error()})
			return err
		}
		logger.Info("server_stopped", nil)
	}
	return nil
}

func (r *RoutesCmd) Run() error {
	a, err := setup(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	t := tabby.New()
	t.AddHeader("Endpoint", "Method", "Path")
	for _, rt := range a.mgr.Routes() {
		t.AddLine(rt.Name, rt.Method, rt.Path)
	}
	t.Print()
	return nil
}

func (m *MigrateCmd) Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if strings.HasPrefix(cfg.StoreDriver, "sqlite") {
		return fmt.Errorf("migrations target postgres, STORE_DRIVER is %q", cfg.StoreDriver)
	}
	return db.Migrate(cfg.PostgresDSN, cfg.MigrationsDir, m.Direction == "up")
}

func (c *CacheFlushCmd) Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	rdb := db.InitRedis(cfg.CountCache.RedisAddr)
	defer rdb.Close()
	if err := db.PingRedis(ctx, rdb); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return pager.NewRedisCache(rdb, cfg.CountCache.TTL).Flush(ctx)
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("resteasy"),
		kong.Description("REST API over YAML-declared resources."),
	)

	if err := logger.Init("."); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	logger.SetDebug(CLI.Debug)
	defer logger.Sync()

	if err := kctx.Run(); err != nil {
		logger.Error("command_failed", map[string]any{"command": kctx.Command(), "error": err.Error()})
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

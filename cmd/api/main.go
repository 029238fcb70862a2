package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Overland-East-Bay/terreiro-api/internal/adapters/httpapi"
	memeventrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/eventrepo"
	memmemberrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/adapters/storage"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/syncer"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/terreiro"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/platform/auth/magiclink"
	platformclock "github.com/Overland-East-Bay/terreiro-api/internal/platform/clock"
	"github.com/Overland-East-Bay/terreiro-api/internal/platform/config"
	"github.com/Overland-East-Bay/terreiro-api/internal/platform/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clk := platformclock.NewSystemClockIn(loc)

	st, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	sync := syncer.New(syncer.Config{
		Store:        st.Tables,
		Clock:        clk,
		Logger:       logger,
		Metrics:      m,
		WriteTimeout: cfg.SyncWriteTimeout,
	})

	deps := terreiro.Deps{
		Members: memmemberrepo.NewRepo(),
		Events:  memeventrepo.NewRepo(),
		Clock:   clk,
		Syncer:  sync,
		Logger:  logger,
		Metrics: m,
	}
	if cfg.HouseLeaderID > 0 {
		id := domain.MemberID(cfg.HouseLeaderID)
		deps.HouseLeader = &id
	}
	app := terreiro.New(deps)
	if err := app.Restore(ctx, st.Tables); err != nil {
		_ = sync.Close(context.Background())
		return err
	}

	api := httpapi.NewServer(app.Members, app.Gira, app.Carpool, app.Boats, app.Celebrations, st.Idem)
	api.Sync = sync
	api.Logger = logger.With("component", "http")

	var authMW func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case config.AuthModeMagicLink:
		auth, err := magiclink.New(magiclink.Config{
			Secret:     []byte(cfg.MagicLinkSecret),
			Issuer:     cfg.TokenIssuer,
			LinkTTL:    cfg.MagicLinkTTL,
			SessionTTL: cfg.SessionTTL,
			ClockSkew:  cfg.ClockSkew,
		}, clk)
		if err != nil {
			return err
		}
		api.Auth = auth
		api.SubjectAllowed = cfg.SubjectAllowed
		api.PublicBaseURL = cfg.PublicBaseURL
		authMW = httpapi.NewAuthMiddleware(auth)
	case config.AuthModeNone:
		logger.Warn("authentication disabled")
		authMW = httpapi.NewAnonymousMiddleware()
	default:
		logger.Warn("dev auth enabled; X-Debug-Subject is trusted", "default_subject", cfg.DevSubject)
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	}

	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", srv.Addr, "storage", cfg.StorageBackend, "auth", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if st.Sweep != nil {
		go st.Sweep(ctx)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = sync.Close(context.Background())
			return err
		}
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	if err := sync.Flush(shutdownCtx); err != nil {
		logger.Warn("pending snapshots not written", "err", err)
	}
	return sync.Close(shutdownCtx)
}

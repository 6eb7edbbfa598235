package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	mfamodule "github.com/dmitrymomot/restauth/modules/mfa"
	"github.com/dmitrymomot/restauth/pkg/audit"
	"github.com/dmitrymomot/restauth/pkg/auth"
	"github.com/dmitrymomot/restauth/pkg/config"
	"github.com/dmitrymomot/restauth/pkg/credential"
	"github.com/dmitrymomot/restauth/pkg/httpserver"
	"github.com/dmitrymomot/restauth/pkg/logger"
	"github.com/dmitrymomot/restauth/pkg/metrics"
	"github.com/dmitrymomot/restauth/pkg/mfa"
	"github.com/dmitrymomot/restauth/pkg/requestmeta"
)

func main() {
	config.LoadEnv()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log, err := logger.NewFromConfig(logCfg, logger.WithContextExtractors(requestmeta.LogExtractors()...))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	if err := run(context.Background(), log); err != nil {
		log.Error("restauth stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		mfaCfg    mfa.Config
		credCfg   credential.Config
		serverCfg httpserver.Config
		moduleCfg mfamodule.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&mfaCfg) },
		func() error { return config.Load(&credCfg) },
		func() error { return config.Load(&serverCfg) },
		func() error { return config.Load(&moduleCfg) },
	} {
		if err := load(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	deps := newDependencies(log)
	defer deps.close()

	store, err := deps.mfaStore(ctx, mfaCfg.Store)
	if err != nil {
		return err
	}
	creds, err := deps.credentials(ctx, credCfg)
	if err != nil {
		return err
	}
	limiter, err := deps.rateLimiter(ctx)
	if err != nil {
		return err
	}

	sink := audit.NewAsyncStorage(audit.MultiStorage{audit.NewSlogStorage(log)}, audit.AsyncOptions{
		BufferSize:     1024,
		BatchSize:      50,
		BatchTimeout:   time.Second,
		StorageTimeout: 5 * time.Second,
		Logger:         log,
	})
	deps.onClose(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sink.Close(ctx); err != nil {
			log.Warn("audit sink close", logger.Error(err))
		}
	})
	auditLog := audit.NewLogger(sink,
		audit.WithUserIDExtractor(credential.UserID),
		audit.WithRequestIDExtractor(requestmeta.RequestID),
		audit.WithIPExtractor(requestmeta.IP),
		audit.WithUserAgentExtractor(requestmeta.UserAgent),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc, err := mfa.NewService(mfaCfg, store, creds,
		mfa.WithLogger(log),
		mfa.WithAuditLogger(auditLog),
		mfa.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("mfa service: %w", err)
	}

	users := auth.NewPasswordService(auth.NewMemoryStorage(), auth.WithPasswordLogger(log))

	mod, err := mfamodule.New(mfamodule.Options{
		Config:      moduleCfg,
		Service:     svc,
		Credentials: creds,
		Users:       users,
		Limiter:     limiter,
		Metrics:     m,
		Readiness:   deps.checks,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	log.Info("starting restauth",
		slog.String("mfa_store", mfaCfg.Store),
		slog.String("auth_mode", string(credCfg.Mode)),
		slog.String("addr", serverCfg.Addr),
	)
	return httpserver.NewFromConfig(serverCfg, httpserver.WithLogger(log)).Run(ctx, mod.Handle())
}

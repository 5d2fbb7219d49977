// Command vaultd serves the vault ledger over HTTP: instruction submission,
// cached read views, audits and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/api/http/cache"
	"github.com/rexbrahh/lp-vault/audit"
	"github.com/rexbrahh/lp-vault/events"
	"github.com/rexbrahh/lp-vault/genesis"
	"github.com/rexbrahh/lp-vault/instruction"
	"github.com/rexbrahh/lp-vault/ledger"
	"github.com/rexbrahh/lp-vault/logger"
	"github.com/rexbrahh/lp-vault/payments"
	natsx "github.com/rexbrahh/lp-vault/sinks/nats"
	"github.com/rexbrahh/lp-vault/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	_ = godotenv.Load()
	log := logger.InitializeFromEnv().With().Str("service", "vaultd").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Fatal().Err(err).Msg("vaultd failed")
	}
	log.Info().Msg("shutdown complete")
}

func run(ctx context.Context, log zerolog.Logger) error {
	ledgerCfg, err := ledger.FromEnv()
	if err != nil {
		return err
	}
	storeCfg, err := store.FromEnv()
	if err != nil {
		return err
	}
	st, err := store.Open(storeCfg)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info().Stringer("store", storeCfg).Stringer("program", ledgerCfg.ProgramID).Msg("ledger store ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sinks := events.Multi{events.NewLogSink(log)}
	if os.Getenv("NATS_URL") != "" {
		natsCfg, err := natsx.FromEnv()
		if err != nil {
			return err
		}
		pub, err := natsx.NewPublisher(natsCfg, natsx.WithLogger(log), natsx.WithMetricsRegisterer(reg))
		if err != nil {
			return err
		}
		defer pub.Close()
		if err := pub.EnsureStream(); err != nil {
			return err
		}
		sinks = append(sinks, pub)
		log.Info().Str("stream", natsCfg.Stream).Str("subject_root", natsCfg.SubjectRoot).Msg("publishing events to jetstream")
	}

	deriver := address.NewDeriver(ledgerCfg.ProgramID)
	bank := payments.NewBank(deriver)
	engine := ledger.New(st, bank, deriver,
		ledger.WithSink(sinks),
		ledger.WithLogger(log),
		ledger.WithMetricsRegisterer(reg),
	)

	if path := os.Getenv("GENESIS_PATH"); path != "" {
		gen, err := genesis.Load(path)
		if err != nil {
			return err
		}
		applied, err := gen.Apply(ctx, engine, bank)
		if err != nil {
			return err
		}
		log.Info().Bool("applied", applied).Int("balances", len(gen.Balances)).Str("path", path).Msg("genesis processed")
	}

	auditCfg, err := audit.FromEnv()
	if err != nil {
		return err
	}
	auditor, err := audit.New(auditCfg, engine, audit.WithLogger(log), audit.WithMetricsRegisterer(reg))
	if err != nil {
		return err
	}

	cacheCfg, err := cache.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	cacheClient, err := cache.New(cacheCfg)
	if err != nil {
		return err
	}
	defer cacheClient.Close()
	if !cacheCfg.Enabled {
		log.Info().Msg("redis cache disabled: API_REDIS_ADDR not set")
	}

	server := NewServer(Deps{
		Engine:    engine,
		Processor: instruction.NewProcessor(engine, instruction.WithCloseVault(ledgerCfg.EnableCloseVault), instruction.WithLogger(log)),
		Bank:      bank,
		Auditor:   auditor,
		Cache:     cacheClient,
		Logger:    log,
		Registry:  reg,
	})

	addr := os.Getenv("API_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

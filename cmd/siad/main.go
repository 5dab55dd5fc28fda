package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Leptons1618/sia-proto/internal/analyzer"
	"github.com/Leptons1618/sia-proto/internal/collector"
	"github.com/Leptons1618/sia-proto/internal/config"
	"github.com/Leptons1618/sia-proto/internal/enrich"
	"github.com/Leptons1618/sia-proto/internal/health"
	"github.com/Leptons1618/sia-proto/internal/metrics"
	"github.com/Leptons1618/sia-proto/internal/pipeline"
	"github.com/Leptons1618/sia-proto/internal/siad"
	"github.com/Leptons1618/sia-proto/internal/storage"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	var (
		configPath string
		sockPath   string
		logLevel   string
	)
	flag.StringVar(&configPath, "config", config.Path(), "config file path (override: SIA_CONFIG)")
	flag.StringVar(&sockPath, "sock", "", "socket path override")
	flag.StringVar(&logLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	flag.Parse()

	log := newLogger(logLevel)

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Error().Err(err).Str("path", configPath).Msg("loading config failed")
		return 1
	}
	if sockPath != "" {
		cfg.IPC.SocketPath = sockPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("daemon failed")
		return 1
	}
	return 0
}

// loadConfig falls back to built-in defaults only when the default config
// path is absent; an explicit path that cannot be read is an error.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == config.DefaultPath {
		return config.Default(), nil
	}
	return cfg, err
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// A bind failure must also stop the collectors, not just the server.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h := health.New()

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	reader, err := storage.OpenReadOnly(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening read store: %w", err)
	}
	defer reader.Close()

	enricher := enrich.New(cfg.LLM, h, log)
	q := pipeline.New(cfg.Agent.QueueCapacity, cfg.Agent.SendTimeout(), h)
	sampler := metrics.NewHostSampler()

	cpuCol := collector.New(
		collector.NewCPUProbe(sampler),
		collector.Thresholds{
			Warning:        cfg.Thresholds.CPUWarning,
			Critical:       cfg.Thresholds.CPUCritical,
			SustainedCount: cfg.Thresholds.CPUSustainedCount,
		},
		cfg.Agent.CPUInterval(), h, log,
	)
	memCol := collector.New(
		collector.NewMemoryProbe(sampler),
		collector.Thresholds{
			Warning:        cfg.Thresholds.MemoryWarning,
			Critical:       cfg.Thresholds.MemoryCritical,
			SustainedCount: 1,
		},
		cfg.Agent.MemoryInterval(), h, log,
	)

	var producers sync.WaitGroup
	producers.Add(2)
	go func() {
		defer producers.Done()
		cpuCol.Run(ctx, q)
	}()
	go func() {
		defer producers.Done()
		memCol.Run(ctx, q)
	}()

	// The analyzer runs off the signal context so events already queued at
	// shutdown still reach the store.
	an := analyzer.New(q, store, enricher, cfg.LLM.Timeout(), h, log)
	analyzerDone := make(chan struct{})
	go func() {
		defer close(analyzerDone)
		an.Run(context.Background())
	}()

	srv := siad.NewServer(siad.Options{
		SockPath:      cfg.IPC.SocketPath,
		ReadTimeout:   cfg.IPC.ReadTimeout(),
		Thresholds:    cfg.Thresholds,
		EnrichTimeout: cfg.LLM.Timeout(),
	}, reader, store, enricher, h, log)

	log.Info().
		Str("db", cfg.Storage.DBPath).
		Str("sock", cfg.IPC.SocketPath).
		Msg("siad started")

	srvErr := srv.ListenAndServe(ctx)
	cancel()

	// Shutdown order: collectors stop, queue closes, analyzer drains, stores
	// close via defer.
	producers.Wait()
	q.Close()
	select {
	case <-analyzerDone:
	case <-time.After(30 * time.Second):
		log.Warn().Msg("analyzer drain timed out")
	}

	if srvErr != nil {
		return fmt.Errorf("server: %w", srvErr)
	}
	log.Info().Msg("siad stopped")
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

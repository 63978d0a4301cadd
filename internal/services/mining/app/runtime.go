package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/lodestone/internal/services/mining/domain"
	miningsqlite "github.com/louisbranch/lodestone/internal/services/mining/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls miner startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	Port               int
	DBPath             string
	Consumer           string
	PollInterval       time.Duration
	LeaseTTL           time.Duration
	MaxAttempts        int
	RetryBackoff       time.Duration
	RetryMaxDelay      time.Duration
	SessionDuration    time.Duration
	ReferralPageSize   int
	ReferralBatchWidth int
	ReferralBonusCap   int
}

const (
	defaultMinerPort = 8095
	defaultMinerDB   = "data/miner.db"
)

// Run starts miner runtime dependencies and the background processing loops.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultMinerPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultMinerDB
	}
	if cfg.SessionDuration <= 0 {
		return fmt.Errorf("session duration is required")
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create miner storage dir: %w", err)
		}
	}

	store, err := miningsqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open miner sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close miner sqlite store: %v", closeErr)
		}
	}()

	loopConfig := Config{
		Consumer:      cfg.Consumer,
		PollInterval:  cfg.PollInterval,
		LeaseTTL:      cfg.LeaseTTL,
		MaxAttempts:   cfg.MaxAttempts,
		RetryBackoff:  cfg.RetryBackoff,
		RetryMaxDelay: cfg.RetryMaxDelay,
	}
	resolver := NewReferralResolver(store, store, cfg.ReferralPageSize, cfg.ReferralBatchWidth)
	streaks := NewStreakEvaluator(store)
	completion := NewCompletionHandler(store, store, store, resolver, streaks, cfg.ReferralBonusCap, nil, log.Printf)
	scheduler := NewSessionScheduler(store, TimerStoreScheduler{Timers: store}, cfg.SessionDuration, log.Printf)
	signup := NewSignupHandler(store, store, log.Printf)

	inboxLoop := NewLoop(store, store, map[string]EventHandler{
		domain.EventSessionStarted:  scheduler,
		domain.EventSignupCompleted: signup,
	}, loopConfig, nil, log.Printf)
	timerLoop := NewTimerLoop(store, completion, store, loopConfig, nil, log.Printf)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on miner port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("miner.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("miner server listening at %v", listener.Addr())

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return inboxLoop.Run(groupCtx) })
	group.Go(func() error { return timerLoop.Run(groupCtx) })
	return group.Wait()
}

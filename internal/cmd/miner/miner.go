// Package miner parses miner command flags and launches the miner runtime.
package miner

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/lodestone/internal/platform/cmd"
	"github.com/louisbranch/lodestone/internal/platform/config"
	miningapp "github.com/louisbranch/lodestone/internal/services/mining/app"
)

// Config holds miner command configuration.
type Config struct {
	Port               int           `env:"LODESTONE_MINER_PORT" envDefault:"8095"`
	DBPath             string        `env:"LODESTONE_MINER_DB_PATH" envDefault:"data/miner.db"`
	Consumer           string        `env:"LODESTONE_MINER_CONSUMER" envDefault:"miner"`
	PollInterval       time.Duration `env:"LODESTONE_MINER_POLL_INTERVAL" envDefault:"2s"`
	LeaseTTL           time.Duration `env:"LODESTONE_MINER_LEASE_TTL" envDefault:"30s"`
	MaxAttempts        int           `env:"LODESTONE_MINER_MAX_ATTEMPTS" envDefault:"8"`
	RetryBackoff       time.Duration `env:"LODESTONE_MINER_RETRY_BACKOFF" envDefault:"5s"`
	RetryMaxDelay      time.Duration `env:"LODESTONE_MINER_RETRY_MAX_DELAY" envDefault:"5m"`
	SessionDuration    string        `env:"LODESTONE_MINER_SESSION_DURATION" envDefault:"24*60"`
	ReferralPageSize   int           `env:"LODESTONE_MINER_REFERRAL_PAGE_SIZE" envDefault:"100"`
	ReferralBatchWidth int           `env:"LODESTONE_MINER_REFERRAL_BATCH_WIDTH" envDefault:"20"`
	ReferralBonusCap   int           `env:"LODESTONE_MINER_REFERRAL_BONUS_CAP" envDefault:"20"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The miner health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The miner SQLite database path")
	fs.StringVar(&cfg.Consumer, "consumer", cfg.Consumer, "Inbox consumer name")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Inbox and timer poll interval")
	fs.DurationVar(&cfg.LeaseTTL, "lease-ttl", cfg.LeaseTTL, "Inbox and timer lease duration")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Maximum processing attempts before dead-letter")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Base retry backoff delay")
	fs.DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "Maximum retry delay")
	fs.StringVar(&cfg.SessionDuration, "session-duration", cfg.SessionDuration, "Session duration in minutes, numeric or arithmetic expression")
	fs.IntVar(&cfg.ReferralPageSize, "referral-page-size", cfg.ReferralPageSize, "Referred-user enumeration page size")
	fs.IntVar(&cfg.ReferralBatchWidth, "referral-batch-width", cfg.ReferralBatchWidth, "Referral activity lookup concurrency")
	fs.IntVar(&cfg.ReferralBonusCap, "referral-bonus-cap", cfg.ReferralBonusCap, "Maximum active referred users counted for the social bonus")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SessionDurationMinutes evaluates the configured duration expression. The
// expression is resolved once at startup so a bad value fails the process
// instead of poisoning sessions later.
func (c Config) SessionDurationMinutes() (time.Duration, error) {
	minutes, err := config.EvalMinutes(c.SessionDuration)
	if err != nil {
		return 0, fmt.Errorf("session duration %q: %w", c.SessionDuration, err)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// Run starts the miner runtime.
func Run(ctx context.Context, cfg Config) error {
	duration, err := cfg.SessionDurationMinutes()
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMiner, func(context.Context) error {
		return miningapp.Run(ctx, miningapp.RuntimeConfig{
			Port:               cfg.Port,
			DBPath:             cfg.DBPath,
			Consumer:           cfg.Consumer,
			PollInterval:       cfg.PollInterval,
			LeaseTTL:           cfg.LeaseTTL,
			MaxAttempts:        cfg.MaxAttempts,
			RetryBackoff:       cfg.RetryBackoff,
			RetryMaxDelay:      cfg.RetryMaxDelay,
			SessionDuration:    duration,
			ReferralPageSize:   cfg.ReferralPageSize,
			ReferralBatchWidth: cfg.ReferralBatchWidth,
			ReferralBonusCap:   cfg.ReferralBonusCap,
		})
	})
}

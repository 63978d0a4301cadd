// Package seed populates a miner database with deterministic demo data.
package seed

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/louisbranch/lodestone/internal/id"
	entrypoint "github.com/louisbranch/lodestone/internal/platform/cmd"
	"github.com/louisbranch/lodestone/internal/services/mining/domain"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
	miningsqlite "github.com/louisbranch/lodestone/internal/services/mining/storage/sqlite"
)

// Config holds seed command configuration.
type Config struct {
	DBPath  string        `env:"LODESTONE_MINER_DB_PATH" envDefault:"data/miner.db"`
	Users   int           `env:"LODESTONE_SEED_USERS" envDefault:"12"`
	Days    int           `env:"LODESTONE_SEED_DAYS" envDefault:"10"`
	Seed    int64         `env:"LODESTONE_SEED_RANDOM_SEED" envDefault:"1"`
	Timeout time.Duration `env:"LODESTONE_SEED_TIMEOUT" envDefault:"30s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The miner SQLite database path")
	fs.IntVar(&cfg.Users, "users", cfg.Users, "Number of demo users to create")
	fs.IntVar(&cfg.Days, "days", cfg.Days, "Number of past days to spread sessions over")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for reproducible data")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Seeding timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run seeds demo users, referral chains, and mining sessions.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if cfg.Users <= 0 {
		return fmt.Errorf("users must be greater than zero")
	}
	if cfg.Days <= 0 {
		cfg.Days = 10
	}

	store, err := miningsqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open miner sqlite store: %w", err)
	}
	defer store.Close()

	rng := rand.New(rand.NewSource(cfg.Seed))
	now := time.Now().UTC()

	users := make([]storage.UserRecord, 0, cfg.Users)
	for i := 0; i < cfg.Users; i++ {
		// Stable ids keep reseeded databases diffable.
		user := storage.UserRecord{
			ID:           fmt.Sprintf("seed-user-%03d", i+1),
			ReferralCode: fmt.Sprintf("SEED-%03d", i+1),
		}
		// Chain every later user to an earlier referrer.
		if i > 0 {
			user.ReferredByCode = users[rng.Intn(len(users))].ReferralCode
		}
		switch err := store.CreateUser(ctx, user); {
		case err == nil:
			if err := store.IncrementPopulation(ctx, 1); err != nil {
				return fmt.Errorf("count user %s: %w", user.ID, err)
			}
		case errors.Is(err, storage.ErrAlreadyExists):
			// Reseeding an existing database keeps the prior rows.
		default:
			return fmt.Errorf("create user %s: %w", user.ID, err)
		}
		users = append(users, user)
	}

	sessions := 0
	for i, user := range users {
		// The first user mines every day so streak evaluation has a hit.
		daily := i == 0
		for day := cfg.Days - 1; day >= 0; day-- {
			if !daily && rng.Intn(3) == 0 {
				continue
			}
			sessionID, err := id.NewID()
			if err != nil {
				return fmt.Errorf("generate session id: %w", err)
			}
			start := now.AddDate(0, 0, -day).Add(-time.Duration(rng.Intn(120)) * time.Minute)
			end := domain.ComputeEndAt(start, 24*time.Hour)
			distributedAt := end
			session := domain.Session{
				ID:      sessionID,
				UserID:  user.ID,
				StartAt: start,
				Status:  domain.StatusPending,
			}
			if err := store.CreateSession(ctx, session); err != nil {
				return fmt.Errorf("create session %s: %w", sessionID, err)
			}
			if _, err := store.TransitionSession(ctx, sessionID,
				domain.StatusPending, domain.StatusActive,
				storage.SessionUpdate{EndAt: &end}); err != nil {
				return fmt.Errorf("activate session %s: %w", sessionID, err)
			}
			// Past sessions are already paid out; today's stays active.
			if day > 0 {
				if _, err := store.TransitionSession(ctx, sessionID,
					domain.StatusActive, domain.StatusCompleted,
					storage.SessionUpdate{RewardDistributedAt: &distributedAt}); err != nil {
					return fmt.Errorf("complete session %s: %w", sessionID, err)
				}
			}
			sessions++
		}
	}

	fmt.Fprintf(out, "seeded %d users and %d sessions into %s\n", len(users), sessions, cfg.DBPath)
	return nil
}

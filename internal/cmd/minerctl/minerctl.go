// Package minerctl implements the miner operations CLI.
package minerctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"

	"github.com/louisbranch/lodestone/internal/id"
	entrypoint "github.com/louisbranch/lodestone/internal/platform/cmd"
	apperrors "github.com/louisbranch/lodestone/internal/platform/errors"
	platformgrpc "github.com/louisbranch/lodestone/internal/platform/grpc"
	"github.com/louisbranch/lodestone/internal/platform/timeouts"
	"github.com/louisbranch/lodestone/internal/services/mining/app"
	"github.com/louisbranch/lodestone/internal/services/mining/domain"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
	miningsqlite "github.com/louisbranch/lodestone/internal/services/mining/storage/sqlite"
)

// Config holds minerctl command configuration.
type Config struct {
	MinerAddr string        `env:"LODESTONE_MINER_ADDR" envDefault:"localhost:8095"`
	DBPath    string        `env:"LODESTONE_MINER_DB_PATH" envDefault:"data/miner.db"`
	Timeout   time.Duration `env:"LODESTONE_MINERCTL_TIMEOUT" envDefault:"10s"`
	Locale    string        `env:"LODESTONE_LOCALE" envDefault:"en-US"`

	command string
	args    []string
}

const usage = `usage: minerctl <command> [arguments]

commands:
  health                          probe the miner health endpoint
  emit-session <user-id> [start]  append a session start event (start RFC3339, default now)
  emit-signup <user-id> <code> [referred-by]
                                  append a signup event
  attempts [limit]                list recent processing attempts
  referrals <code> [window]       resolve referral stats for a code
`

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.MinerAddr, "miner-addr", cfg.MinerAddr, "The miner gRPC server address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The miner SQLite database path")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Command timeout")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Locale for operator-facing error messages")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return Config{}, errors.New(usage)
	}
	cfg.command = rest[0]
	cfg.args = rest[1:]
	return cfg, nil
}

// Run dispatches the requested subcommand.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	switch cfg.command {
	case "health":
		return localizeError(runHealth(ctx, cfg, out), cfg.Locale)
	case "emit-session":
		return localizeError(runEmitSession(ctx, cfg, out), cfg.Locale)
	case "emit-signup":
		return localizeError(runEmitSignup(ctx, cfg, out), cfg.Locale)
	case "attempts":
		return localizeError(runAttempts(ctx, cfg, out), cfg.Locale)
	case "referrals":
		return localizeError(runReferrals(ctx, cfg, out), cfg.Locale)
	default:
		return fmt.Errorf("unknown command %q\n%s", cfg.command, usage)
	}
}

// localizeError prefixes coded failures with the catalog message for the
// requested locale, so operators see the same text clients would receive
// in a LocalizedMessage detail. Uncoded errors pass through untouched.
func localizeError(err error, locale string) error {
	if err == nil || apperrors.GetCode(err) == apperrors.CodeUnknown {
		return err
	}
	st, ok := status.FromError(apperrors.HandleError(err, locale))
	if !ok {
		return err
	}
	for _, detail := range st.Details() {
		if msg, ok := detail.(*errdetails.LocalizedMessage); ok && msg.Message != "" {
			return fmt.Errorf("%s: %w", msg.Message, err)
		}
	}
	return err
}

func runHealth(ctx context.Context, cfg Config, out io.Writer) error {
	conn, err := platformgrpc.DialWithHealth(
		ctx,
		nil,
		cfg.MinerAddr,
		timeouts.GRPCDial,
		log.Printf,
		platformgrpc.DefaultClientDialOptions()...,
	)
	if err != nil {
		return fmt.Errorf("dial miner at %s: %w", cfg.MinerAddr, err)
	}
	defer conn.Close()

	probeCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCRequest)
	defer cancel()
	if err := platformgrpc.WaitForHealth(probeCtx, conn, "miner.runtime", log.Printf); err != nil {
		return fmt.Errorf("miner health: %w", err)
	}
	fmt.Fprintf(out, "miner at %s is serving\n", cfg.MinerAddr)
	return nil
}

func runEmitSession(ctx context.Context, cfg Config, out io.Writer) error {
	if len(cfg.args) < 1 {
		return errors.New("emit-session requires a user id")
	}
	userID := cfg.args[0]
	start := time.Now().UTC()
	if len(cfg.args) > 1 {
		parsed, err := time.Parse(time.RFC3339, cfg.args[1])
		if err != nil {
			return fmt.Errorf("parse start instant %q: %w", cfg.args[1], err)
		}
		start = parsed.UTC()
	}

	sessionID, err := id.NewID()
	if err != nil {
		return fmt.Errorf("generate session id: %w", err)
	}
	payload, err := domain.EncodeSessionStartedPayload(domain.SessionStartedPayload{
		SessionID:    sessionID,
		UserID:       userID,
		StartInstant: start.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return withStore(cfg, func(store *miningsqlite.Store) error {
		eventID, err := id.NewID()
		if err != nil {
			return fmt.Errorf("generate event id: %w", err)
		}
		if err := store.AppendEvent(ctx, storage.EventRecord{
			ID:        eventID,
			EventType: domain.EventSessionStarted,
			Payload:   payload,
		}); err != nil {
			return fmt.Errorf("append session started event: %w", err)
		}
		fmt.Fprintf(out, "appended %s for session %s (user %s, start %s)\n",
			domain.EventSessionStarted, sessionID, userID, start.Format(time.RFC3339))
		return nil
	})
}

func runEmitSignup(ctx context.Context, cfg Config, out io.Writer) error {
	if len(cfg.args) < 2 {
		return errors.New("emit-signup requires a user id and a referral code")
	}
	userID, code := cfg.args[0], cfg.args[1]
	referredBy := ""
	if len(cfg.args) > 2 {
		referredBy = cfg.args[2]
	}
	payload, err := domain.EncodeSignupCompletedPayload(domain.SignupCompletedPayload{
		UserID:         userID,
		ReferralCode:   code,
		ReferredByCode: referredBy,
	})
	if err != nil {
		return err
	}

	return withStore(cfg, func(store *miningsqlite.Store) error {
		eventID, err := id.NewID()
		if err != nil {
			return fmt.Errorf("generate event id: %w", err)
		}
		if err := store.AppendEvent(ctx, storage.EventRecord{
			ID:        eventID,
			EventType: domain.EventSignupCompleted,
			Payload:   payload,
		}); err != nil {
			return fmt.Errorf("append signup event: %w", err)
		}
		fmt.Fprintf(out, "appended %s for user %s\n", domain.EventSignupCompleted, userID)
		return nil
	})
}

func runAttempts(ctx context.Context, cfg Config, out io.Writer) error {
	limit := 20
	if len(cfg.args) > 0 {
		if _, err := fmt.Sscanf(cfg.args[0], "%d", &limit); err != nil {
			return fmt.Errorf("parse limit %q: %w", cfg.args[0], err)
		}
	}

	return withStore(cfg, func(store *miningsqlite.Store) error {
		attempts, err := store.ListAttempts(ctx, limit)
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}
		if len(attempts) == 0 {
			fmt.Fprintln(out, "no processing attempts recorded")
			return nil
		}
		for _, attempt := range attempts {
			line := fmt.Sprintf("%s  %-9s  %s  %s  attempt=%d",
				attempt.CreatedAt.Format(time.RFC3339), attempt.Outcome,
				attempt.EventType, attempt.EventID, attempt.AttemptCount)
			if attempt.LastError != "" {
				line += "  error=" + attempt.LastError
			}
			fmt.Fprintln(out, line)
		}
		return nil
	})
}

func runReferrals(ctx context.Context, cfg Config, out io.Writer) error {
	if len(cfg.args) < 1 {
		return errors.New("referrals requires a referral code")
	}
	code := cfg.args[0]
	window := 24 * time.Hour
	if len(cfg.args) > 1 {
		parsed, err := time.ParseDuration(cfg.args[1])
		if err != nil {
			return fmt.Errorf("parse window %q: %w", cfg.args[1], err)
		}
		window = parsed
	}

	return withStore(cfg, func(store *miningsqlite.Store) error {
		resolver := app.NewReferralResolver(store, store, 0, 0)
		now := time.Now().UTC()
		invited, active, err := resolver.Resolve(ctx, code, now.Add(-window), now)
		if err != nil {
			return fmt.Errorf("resolve referrals: %w", err)
		}
		fmt.Fprintf(out, "code %s: %d invited, %d active in the last %s\n",
			code, len(invited), len(active), window)
		for _, userID := range active {
			fmt.Fprintf(out, "  active: %s\n", userID)
		}
		return nil
	})
}

func withStore(cfg Config, fn func(store *miningsqlite.Store) error) error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("db path is required")
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
	return fn(store)
}

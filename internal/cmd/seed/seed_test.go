package seed

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miningsqlite "github.com/louisbranch/lodestone/internal/services/mining/storage/sqlite"
)

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Users != 12 {
		t.Fatalf("users = %d, want 12", cfg.Users)
	}
	if cfg.Days != 10 {
		t.Fatalf("days = %d, want 10", cfg.Days)
	}
	if cfg.Seed != 1 {
		t.Fatalf("seed = %d, want 1", cfg.Seed)
	}
}

func TestRunSeedsUsersAndSessions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "miner.db")
	cfg := Config{DBPath: dbPath, Users: 4, Days: 8, Seed: 1}

	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run seed: %v", err)
	}
	if !strings.Contains(out.String(), "seeded 4 users") {
		t.Fatalf("output %q, want seeded summary", out.String())
	}

	store, err := miningsqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	count, err := store.PopulationCount(context.Background())
	if err != nil {
		t.Fatalf("population count: %v", err)
	}
	if count != 4 {
		t.Fatalf("population = %d, want 4", count)
	}

	first, err := store.GetUser(context.Background(), "seed-user-001")
	if err != nil {
		t.Fatalf("get first user: %v", err)
	}
	if first.ReferralCode != "SEED-001" {
		t.Fatalf("referral code = %q, want SEED-001", first.ReferralCode)
	}

	// The first seeded user mines every day.
	now := time.Now().UTC()
	starts, err := store.ListSessionStarts(context.Background(), "seed-user-001",
		now.AddDate(0, 0, -8), now)
	if err != nil {
		t.Fatalf("list session starts: %v", err)
	}
	if len(starts) < 8 {
		t.Fatalf("first user sessions = %d, want at least 8", len(starts))
	}

	// Later users chain back to earlier referral codes.
	second, err := store.GetUser(context.Background(), "seed-user-002")
	if err != nil {
		t.Fatalf("get second user: %v", err)
	}
	if second.ReferredByCode == "" {
		t.Fatal("second user has no referrer")
	}
}

func TestRunIsRepeatable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "miner.db")
	cfg := Config{DBPath: dbPath, Users: 3, Days: 2, Seed: 1}

	if err := Run(context.Background(), cfg, &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := Run(context.Background(), cfg, &bytes.Buffer{}); err != nil {
		t.Fatalf("second run: %v", err)
	}

	store, err := miningsqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	count, err := store.PopulationCount(context.Background())
	if err != nil {
		t.Fatalf("population count: %v", err)
	}
	if count != 3 {
		t.Fatalf("population after reseed = %d, want 3", count)
	}
}

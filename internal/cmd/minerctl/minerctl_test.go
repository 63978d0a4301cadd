package minerctl

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/louisbranch/lodestone/internal/platform/errors"
	"github.com/louisbranch/lodestone/internal/services/mining/domain"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
	miningsqlite "github.com/louisbranch/lodestone/internal/services/mining/storage/sqlite"
)

func TestParseConfig_RequiresCommand(t *testing.T) {
	fs := flag.NewFlagSet("minerctl", flag.ContinueOnError)

	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected usage error without a command")
	}
}

func TestParseConfig_ParsesFlagsAndCommand(t *testing.T) {
	fs := flag.NewFlagSet("minerctl", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, []string{"-db-path", "custom.db", "attempts", "5"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "custom.db" {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, "custom.db")
	}
	if cfg.command != "attempts" {
		t.Fatalf("command = %q, want %q", cfg.command, "attempts")
	}
	if len(cfg.args) != 1 || cfg.args[0] != "5" {
		t.Fatalf("args = %v, want [5]", cfg.args)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	err := Run(context.Background(), Config{command: "destroy"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "destroy") {
		t.Fatalf("err = %v, want mention of unknown command", err)
	}
}

func TestRunEmitSessionAppendsEvent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "miner.db")
	cfg := Config{
		DBPath:  dbPath,
		command: "emit-session",
		args:    []string{"user-1", "2026-03-14T09:30:00Z"},
	}

	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("emit-session: %v", err)
	}
	if !strings.Contains(out.String(), domain.EventSessionStarted) {
		t.Fatalf("output %q missing event type", out.String())
	}

	store := openStore(t, dbPath)
	events, err := store.LeaseDueEvents(context.Background(), time.Now().UTC(), time.Minute, 10)
	if err != nil {
		t.Fatalf("lease events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events len = %d, want 1", len(events))
	}
	payload, err := domain.DecodeSessionStartedPayload(events[0].Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.UserID != "user-1" {
		t.Fatalf("user id = %q, want user-1", payload.UserID)
	}
}

func TestRunEmitSignupAppendsEvent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "miner.db")
	cfg := Config{
		DBPath:  dbPath,
		command: "emit-signup",
		args:    []string{"user-1", "CODE-1", "CODE-root"},
	}

	if err := Run(context.Background(), cfg, &bytes.Buffer{}); err != nil {
		t.Fatalf("emit-signup: %v", err)
	}

	store := openStore(t, dbPath)
	events, err := store.LeaseDueEvents(context.Background(), time.Now().UTC(), time.Minute, 10)
	if err != nil {
		t.Fatalf("lease events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != domain.EventSignupCompleted {
		t.Fatalf("events = %+v, want one signup event", events)
	}
	payload, err := domain.DecodeSignupCompletedPayload(events[0].Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.ReferredByCode != "CODE-root" {
		t.Fatalf("referred by = %q, want CODE-root", payload.ReferredByCode)
	}
}

func TestRunAttemptsListsRecords(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "miner.db")
	store := openStore(t, dbPath)
	if err := store.RecordAttempt(context.Background(), storage.AttemptRecord{
		EventID:      "evt-1",
		EventType:    domain.EventSessionStarted,
		Consumer:     "miner",
		Outcome:      "succeeded",
		AttemptCount: 1,
	}); err != nil {
		t.Fatalf("record attempt: %v", err)
	}

	var out bytes.Buffer
	cfg := Config{DBPath: dbPath, command: "attempts"}
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if !strings.Contains(out.String(), "evt-1") {
		t.Fatalf("output %q missing attempt record", out.String())
	}
}

func TestRunReferralsResolvesStats(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "miner.db")
	store := openStore(t, dbPath)
	if err := store.CreateUser(context.Background(), storage.UserRecord{
		ID:             "ref-a",
		ReferralCode:   "CODE-ref-a",
		ReferredByCode: "CODE-root",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.CreateSession(context.Background(), domain.Session{
		ID:      "sess-1",
		UserID:  "ref-a",
		StartAt: time.Now().UTC().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	var out bytes.Buffer
	cfg := Config{DBPath: dbPath, command: "referrals", args: []string{"CODE-root"}}
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("referrals: %v", err)
	}
	if !strings.Contains(out.String(), "1 invited, 1 active") {
		t.Fatalf("output %q, want referral stats line", out.String())
	}
}

func TestRunLocalizesCodedFailures(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "miner.db")
	openStore(t, dbPath)

	cfg := Config{DBPath: dbPath, Locale: "en-US", command: "referrals", args: []string{" "}}
	err := Run(context.Background(), cfg, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for blank referral code")
	}
	if !strings.Contains(err.Error(), "Referral code is required") {
		t.Fatalf("err = %v, want catalog message for the referral code", err)
	}
	if !apperrors.IsCode(err, apperrors.CodeReferralEmptyCode) {
		t.Fatalf("err = %v, want code %s", err, apperrors.CodeReferralEmptyCode)
	}
}

func TestLocalizeErrorPassesUncodedThrough(t *testing.T) {
	plain := errors.New("disk full")
	if got := localizeError(plain, "en-US"); got != plain {
		t.Fatalf("localized = %v, want unchanged error", got)
	}
	if got := localizeError(nil, "en-US"); got != nil {
		t.Fatalf("localized nil = %v, want nil", got)
	}
}

func openStore(t *testing.T, path string) *miningsqlite.Store {
	t.Helper()
	store, err := miningsqlite.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

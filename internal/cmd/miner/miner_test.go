package miner

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("miner", flag.ContinueOnError)
	t.Setenv("LODESTONE_MINER_PORT", "9095")
	t.Setenv("LODESTONE_MINER_SESSION_DURATION", "12*60")

	cfg, err := ParseConfig(fs, []string{"-consumer", "miner-e2e", "-max-attempts", "3"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9095 {
		t.Fatalf("port = %d, want 9095", cfg.Port)
	}
	if cfg.SessionDuration != "12*60" {
		t.Fatalf("session duration = %q, want %q", cfg.SessionDuration, "12*60")
	}
	if cfg.Consumer != "miner-e2e" {
		t.Fatalf("consumer = %q, want %q", cfg.Consumer, "miner-e2e")
	}
	if cfg.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d, want 3", cfg.MaxAttempts)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("miner", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8095 {
		t.Fatalf("port = %d, want 8095", cfg.Port)
	}
	if cfg.SessionDuration != "24*60" {
		t.Fatalf("session duration = %q, want %q", cfg.SessionDuration, "24*60")
	}
	if cfg.ReferralPageSize != 100 {
		t.Fatalf("referral page size = %d, want 100", cfg.ReferralPageSize)
	}
	if cfg.ReferralBatchWidth != 20 {
		t.Fatalf("referral batch width = %d, want 20", cfg.ReferralBatchWidth)
	}
	if cfg.ReferralBonusCap != 20 {
		t.Fatalf("referral bonus cap = %d, want 20", cfg.ReferralBonusCap)
	}
}

func TestSessionDurationMinutes(t *testing.T) {
	cases := []struct {
		name    string
		expr    string
		want    time.Duration
		wantErr bool
	}{
		{name: "expression", expr: "24*60", want: 24 * time.Hour},
		{name: "numeric", expr: "90", want: 90 * time.Minute},
		{name: "empty", expr: "", wantErr: true},
		{name: "garbage", expr: "soon", wantErr: true},
		{name: "zero", expr: "0", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{SessionDuration: tc.expr}
			got, err := cfg.SessionDurationMinutes()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.expr)
				}
				return
			}
			if err != nil {
				t.Fatalf("eval %q: %v", tc.expr, err)
			}
			if got != tc.want {
				t.Fatalf("duration = %v, want %v", got, tc.want)
			}
		})
	}
}

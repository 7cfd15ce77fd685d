package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: "gsrd"
  env: "test"
database:
  host: "db.internal"
  port: 5433
engine:
  base_symbol: "XAU"
  quote_symbol: "XAG"
  high_threshold: 88
  stats_windows: [30, 90]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Engine.HighThreshold != 88 {
		t.Errorf("expected high threshold 88, got %v", cfg.Engine.HighThreshold)
	}
	// File values override only what they set; defaults fill the rest.
	if cfg.Engine.LowThreshold != 65 {
		t.Errorf("expected default low threshold 65, got %v", cfg.Engine.LowThreshold)
	}
	if len(cfg.Engine.StatsWindows) != 2 {
		t.Errorf("expected overridden stats windows, got %v", cfg.Engine.StatsWindows)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "pg.example.com")

	path := writeConfig(t, `
database:
  host: "${TEST_DB_HOST}"
  user: "${TEST_DB_USER:fallback_user}"
engine:
  base_symbol: "XAU"
  quote_symbol: "XAG"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Host != "pg.example.com" {
		t.Errorf("expected env value, got %q", cfg.Database.Host)
	}
	if cfg.Database.User != "fallback_user" {
		t.Errorf("expected default for unset var, got %q", cfg.Database.User)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing symbols", `
engine:
  base_symbol: ""
  quote_symbol: ""
`},
		{"bad position size", `
engine:
  base_symbol: "XAU"
  quote_symbol: "XAG"
  position_size_pct: 150
`},
		{"bad window", `
engine:
  base_symbol: "XAU"
  quote_symbol: "XAG"
  stats_windows: [1]
`},
		{"bad transaction cost", `
engine:
  base_symbol: "XAU"
  quote_symbol: "XAG"
  transaction_cost_pct: 1.5
`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeConfig(t, c.content)
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("EXPAND_TEST_VAR", "value1")

	cases := []struct {
		in   string
		want string
	}{
		{"${EXPAND_TEST_VAR}", "value1"},
		{"${EXPAND_TEST_UNSET}", ""},
		{"${EXPAND_TEST_UNSET:default}", "default"},
		{"${EXPAND_TEST_UNSET::9090}", ":9090"},
		{"prefix-${EXPAND_TEST_VAR}-suffix", "prefix-value1-suffix"},
		{"no refs here", "no refs here"},
	}
	for _, c := range cases {
		if got := ExpandEnv(c.in); got != c.want {
			t.Errorf("ExpandEnv(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestExpandEnvStrict(t *testing.T) {
	_, missing := ExpandEnvStrict("${STRICT_TEST_UNSET} and ${STRICT_TEST_DEFAULTED:x}")
	if len(missing) != 1 || missing[0] != "STRICT_TEST_UNSET" {
		t.Errorf("expected [STRICT_TEST_UNSET], got %v", missing)
	}
}

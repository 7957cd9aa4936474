package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCmdSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"audit", "psi", "seo", "show", "cache-layers", "site-info"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("missing subcommand %q", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("missing persistent flag: config")
	}
}

func TestAuditCmdFlags(t *testing.T) {
	path := ""
	cmd := newAuditCmd(&path)
	f := cmd.Flags()

	outputFmt, _ := f.GetString("output")
	if outputFmt != "text" {
		t.Errorf("default output = %q, want text", outputFmt)
	}
	for _, flag := range []string{"force", "seo", "output", "checks"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestPSICmdFlags(t *testing.T) {
	path := ""
	f := newPSICmd(&path).Flags()
	for _, flag := range []string{"strategy", "output"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestCacheLayersCmdFlags(t *testing.T) {
	path := ""
	f := newCacheLayersCmd(&path).Flags()
	for _, flag := range []string{"content-dir", "output"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"a", "b", "c"}, "a"},
		{[]string{"", "b", "c"}, "b"},
		{[]string{"", "", "c"}, "c"},
		{[]string{"", "", ""}, ""},
	}

	for _, tt := range tests {
		got := firstNonEmpty(tt.args...)
		if got != tt.want {
			t.Errorf("firstNonEmpty(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigEnvFallback(t *testing.T) {
	t.Setenv("PSI_API_KEY", "env-key")
	t.Setenv("PSI_PROXY_URL", "")
	t.Setenv("SITE_DATABASE_URL", "mysql://wp@db/wp")

	cfg, err := loadConfig(writeConfig(t, "psi:\n  proxy_url: https://proxy.example/psi\n"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.PSI.APIKey != "env-key" {
		t.Errorf("api key = %q, want env-key", cfg.PSI.APIKey)
	}
	if cfg.PSI.ProxyURL != "https://proxy.example/psi" {
		t.Errorf("proxy = %q, file value should win", cfg.PSI.ProxyURL)
	}
	if cfg.Site.DatabaseURL != "mysql://wp@db/wp" {
		t.Errorf("database url = %q", cfg.Site.DatabaseURL)
	}
}

func TestResolveTarget(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "site:\n  home_url: https://example.com/\n  test_url: example.com/landing\n"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := resolveTarget(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://example.com/landing/" {
		t.Errorf("configured target = %q", got)
	}

	got, _ = resolveTarget(cfg, []string{"http://other.test/a"})
	if got != "http://other.test/a/" {
		t.Errorf("argument target = %q", got)
	}

	empty, _ := loadConfig(writeConfig(t, "cache:\n  ttl: 60\n"))
	if _, err := resolveTarget(empty, nil); err == nil {
		t.Error("expected an error without any URL")
	}
}

func TestAuditRejectsUnknownFormat(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"audit", "--output", "xml", "https://example.com/"})
	root.SetOut(&bytes.Buffer{})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), `unknown output format "xml"`) {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestShowWithoutPayload(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, "site:\n  home_url: https://never-audited.example/\n")

	root := newRootCmd()
	root.SetArgs([]string{"show", "--config", path})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "no stored audit") {
		t.Errorf("Execute() error = %v", err)
	}
}

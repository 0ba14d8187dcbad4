package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStringAndRequired(t *testing.T) {
	t.Setenv("SB_TEST_STR", "")
	if got := String("SB_TEST_STR", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if _, err := RequiredString("SB_TEST_STR"); err == nil {
		t.Fatal("expected error for missing required value")
	}
	t.Setenv("SB_TEST_STR", "set")
	if v, err := RequiredString("SB_TEST_STR"); err != nil || v != "set" {
		t.Fatalf("RequiredString = %q, %v", v, err)
	}
}

func TestPort(t *testing.T) {
	t.Setenv("SB_TEST_PORT", "70000")
	if _, err := Port("SB_TEST_PORT", "8080"); err == nil {
		t.Fatal("expected invalid port error")
	}
	t.Setenv("SB_TEST_PORT", "")
	if p, err := Port("SB_TEST_PORT", "8080"); err != nil || p != "8080" {
		t.Fatalf("Port = %q, %v", p, err)
	}
}

func TestIntBoolDuration(t *testing.T) {
	t.Setenv("SB_TEST_INT", "7")
	if n, err := Int("SB_TEST_INT", 1); err != nil || n != 7 {
		t.Fatalf("Int = %d, %v", n, err)
	}
	t.Setenv("SB_TEST_INT", "seven")
	if _, err := Int("SB_TEST_INT", 1); err == nil {
		t.Fatal("expected Int parse error")
	}

	t.Setenv("SB_TEST_BOOL", "off")
	if Bool("SB_TEST_BOOL", true) {
		t.Fatal("expected false for off")
	}
	t.Setenv("SB_TEST_BOOL", "maybe")
	if !Bool("SB_TEST_BOOL", true) {
		t.Fatal("expected fallback for unknown value")
	}

	t.Setenv("SB_TEST_DUR", "90s")
	if d, err := Duration("SB_TEST_DUR", time.Second); err != nil || d != 90*time.Second {
		t.Fatalf("Duration = %v, %v", d, err)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("SB_DOTENV_A=from-file\nSB_DOTENV_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("SB_DOTENV_A", "from-env")
	t.Setenv("SB_DOTENV_B", "")
	os.Unsetenv("SB_DOTENV_B")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("SB_DOTENV_A"); got != "from-env" {
		t.Fatalf("expected env to win, got %q", got)
	}
	if got := os.Getenv("SB_DOTENV_B"); got != "from-file" {
		t.Fatalf("expected file value, got %q", got)
	}
}

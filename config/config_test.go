package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nabbar/quicio/config"
)

func TestLoadFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	l, err := config.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := l.Get()
	if got.BindAddress != ":4433" {
		t.Fatalf("expected default bind address, got %q", got.BindAddress)
	}
	if got.MaxQueueBytes != 1<<20 {
		t.Fatalf("expected default queue cap, got %d", got.MaxQueueBytes)
	}
}

func TestLoadParsesFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quicio.yaml")
	body := "bind_address: \"0.0.0.0:9000\"\nmax_queue_bytes: 2048\nrecv_budget: \"1ms\"\nsend_budget: \"1ms\"\nforward_idle_timeout: \"5s\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l, err := config.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := l.Get()
	if got.BindAddress != "0.0.0.0:9000" {
		t.Fatalf("unexpected bind address: %q", got.BindAddress)
	}
	if got.MaxQueueBytes != 2048 {
		t.Fatalf("unexpected queue cap: %d", got.MaxQueueBytes)
	}
	if got.ForwardIdleTimeout != 5*time.Second {
		t.Fatalf("unexpected idle timeout: %v", got.ForwardIdleTimeout)
	}
}

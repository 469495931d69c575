package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "3001" {
		t.Errorf("expected default port 3001, got %s", cfg.Port)
	}
	if cfg.UndoWindow != 5*time.Second {
		t.Errorf("expected undo window 5s, got %s", cfg.UndoWindow)
	}
	if cfg.LoadingTimeout != 8*time.Second {
		t.Errorf("expected loading timeout 8s, got %s", cfg.LoadingTimeout)
	}
	if cfg.Location.String() != "UTC" {
		t.Errorf("expected UTC location, got %s", cfg.Location)
	}
	if !cfg.IsDev() {
		t.Error("expected development mode by default")
	}
}

func TestLoadConfig_InvalidInteger(t *testing.T) {
	t.Setenv("UNDO_WINDOW_SECONDS", "five")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for non-numeric UNDO_WINDOW_SECONDS")
	}
}

func TestLoadConfig_InvalidTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus_Mons")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestLoadConfig_DSN(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USERNAME", "med")
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "med:secret@tcp(db:3306)/medtrack?charset=utf8mb4&parseTime=True&loc=Local"
	if cfg.Database.DSN != want {
		t.Errorf("expected DSN %q, got %q", want, cfg.Database.DSN)
	}
}

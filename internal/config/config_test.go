package config

import (
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PZW_PATHS_DATA_DIR", dir)
	t.Setenv("PZW_RCON_HOST", "game.example.net")
	t.Setenv("PZW_RCON_PASSWORD", "hunter2")
	t.Setenv("PZW_SFTP_REMOTE_FILE", "/srv/pz/Server/servertest.ini")
	return dir
}

func TestLoad_DefaultsAndDerivedPaths(t *testing.T) {
	dir := setRequiredEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Steam.BatchSize != 50 || cfg.Steam.MaxAttempts != 5 {
		t.Fatalf("steam defaults: %+v", cfg.Steam)
	}
	if cfg.Watch.CountdownMinutes != 5 || cfg.Watch.RestartTimeout != 5*time.Second {
		t.Fatalf("watch defaults: %+v", cfg.Watch)
	}
	if cfg.Paths.Registry != filepath.Join(dir, "modinfo.json") {
		t.Fatalf("registry path=%q", cfg.Paths.Registry)
	}
	if cfg.Paths.ServerINI != filepath.Join(dir, "servertest.ini") {
		t.Fatalf("server ini path=%q, want derived from remote file", cfg.Paths.ServerINI)
	}
	// SFTP host falls back to the game host.
	if cfg.SFTP.Host != "game.example.net" {
		t.Fatalf("sftp host=%q", cfg.SFTP.Host)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PZW_STEAM_BATCH_SIZE", "10")
	t.Setenv("PZW_WATCH_COUNTDOWN_MINUTES", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Steam.BatchSize != 10 {
		t.Fatalf("batch size=%d, want env override", cfg.Steam.BatchSize)
	}
	if cfg.Watch.CountdownMinutes != 2 {
		t.Fatalf("countdown=%d, want env override", cfg.Watch.CountdownMinutes)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing rcon host", "PZW_RCON_HOST", ""},
		{"missing rcon password", "PZW_RCON_PASSWORD", ""},
		{"bad rcon port", "PZW_RCON_PORT", "70000"},
		{"zero batch size", "PZW_STEAM_BATCH_SIZE", "0"},
		{"zero countdown", "PZW_WATCH_COUNTDOWN_MINUTES", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_TYPE", "DEFAULT_LEVEL", "SETUP_WAIT", "TTS_SERVICE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ServerPort != "8000" {
		t.Errorf("ServerPort = %q, want 8000", cfg.ServerPort)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
	if cfg.DefaultLevel != "intermediate_mid" {
		t.Errorf("DefaultLevel = %q, want intermediate_mid", cfg.DefaultLevel)
	}
	if cfg.SetupWait != time.Second {
		t.Errorf("SetupWait = %v, want 1s", cfg.SetupWait)
	}
	if cfg.TTSService != "elevenlabs" {
		t.Errorf("TTSService = %q, want elevenlabs", cfg.TTSService)
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "duration string", value: "250ms", want: 250 * time.Millisecond},
		{name: "whole seconds", value: "3", want: 3 * time.Second},
		{name: "garbage falls back", value: "soon", want: time.Minute},
		{name: "empty falls back", value: "", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VOCAFLOW_TEST_DURATION", tt.value)
			if got := getEnvDuration("VOCAFLOW_TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTTSServiceIsLowercased(t *testing.T) {
	t.Setenv("TTS_SERVICE", "Narakeet")
	if got := Load().TTSService; got != "narakeet" {
		t.Errorf("TTSService = %q, want narakeet", got)
	}
}

package main

import (
	"testing"

	"github.com/acqdash/console/internal/config"
)

func TestDeriveWSURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://127.0.0.1:8080", "ws://127.0.0.1:8080/ws"},
		{"https://dash.example.com/", "wss://dash.example.com/ws"},
		{"http://host:9000/backend", "ws://host:9000/backend/ws"},
	}
	for _, tt := range tests {
		got, err := deriveWSURL(tt.in)
		if err != nil {
			t.Fatalf("deriveWSURL(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("deriveWSURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggingRejectsBadLevel(t *testing.T) {
	if _, _, err := setupLogging(config.LogConfig{Level: "loud"}); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestSetupLoggingToFile(t *testing.T) {
	path := t.TempDir() + "/console.log"
	logger, closeLog, err := setupLogging(config.LogConfig{Level: "debug", File: path})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info().Msg("hello")
	closeLog()
}

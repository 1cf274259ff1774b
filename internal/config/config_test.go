package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("INTENTS_BUS_RPC_URL", "https://bus.example/rpc")
	t.Setenv("INTENTS_BUS_WS_URL", "wss://bus.example/ws")
	t.Setenv("INTENTS_ORACLE_URL", "https://oracle.example")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Name != "intents-agent" {
		t.Errorf("app name = %q, want intents-agent", cfg.App.Name)
	}
	if cfg.SolverBus.RequestTimeout != 10*time.Second {
		t.Errorf("request timeout = %v, want 10s", cfg.SolverBus.RequestTimeout)
	}
	if cfg.Monitor.DefaultCheckInterval != 10*time.Second {
		t.Errorf("default check interval = %v, want 10s", cfg.Monitor.DefaultCheckInterval)
	}
}

func TestLoad_DefaultTopicsCoverBothStreams(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := map[string]bool{"quote_status": false, "quote": false}
	for _, topic := range cfg.SolverBus.Topics {
		if _, ok := want[topic]; ok {
			want[topic] = true
		}
	}
	for topic, seen := range want {
		if !seen {
			t.Errorf("default topics missing %q: %v", topic, cfg.SolverBus.Topics)
		}
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INTENTS_BUS_RPC_URL", "")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for missing rpc_url")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultSettings(t *testing.T) {
	settings := Default()
	if settings.Venue != "bitfinex" {
		t.Fatalf("venue = %s", settings.Venue)
	}
	if settings.Websocket.ReconnectCooldown < time.Second {
		t.Fatalf("reconnect cooldown must be at least one second")
	}
	if settings.REST.RequestsPerSecond <= 0 {
		t.Fatalf("request rate must be positive")
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if settings.Websocket.URL != Default().Websocket.URL {
		t.Fatalf("missing file must keep defaults")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
venue: testvenue
websocket:
  url: wss://example.test/ws/2
  reconnectCooldown: 2s
rest:
  requestsPerSecond: 4
credentials:
  apiKey: k
  apiSecret: s
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if settings.Venue != "testvenue" {
		t.Fatalf("venue = %s", settings.Venue)
	}
	if settings.Websocket.URL != "wss://example.test/ws/2" {
		t.Fatalf("ws url = %s", settings.Websocket.URL)
	}
	if settings.Websocket.ReconnectCooldown != 2*time.Second {
		t.Fatalf("cooldown = %v", settings.Websocket.ReconnectCooldown)
	}
	if settings.REST.RequestsPerSecond != 4 {
		t.Fatalf("rate = %v", settings.REST.RequestsPerSecond)
	}
	// untouched keys keep their defaults
	if settings.REST.PublicURL != Default().REST.PublicURL {
		t.Fatalf("public url = %s", settings.REST.PublicURL)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("venue: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed yaml must error")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("VENUELINK_VENUE", "envvenue")
	t.Setenv("VENUELINK_WS_URL", "wss://env.test/ws/2")
	t.Setenv("VENUELINK_REST_RATE", "2.5")
	t.Setenv("VENUELINK_API_KEY", "env-key")
	t.Setenv("VENUELINK_API_SECRET", "env-secret")

	settings := Default().FromEnv()
	if settings.Venue != "envvenue" {
		t.Fatalf("venue = %s", settings.Venue)
	}
	if settings.Websocket.URL != "wss://env.test/ws/2" {
		t.Fatalf("ws url = %s", settings.Websocket.URL)
	}
	if settings.REST.RequestsPerSecond != 2.5 {
		t.Fatalf("rate = %v", settings.REST.RequestsPerSecond)
	}
	if settings.Credentials.APIKey != "env-key" || settings.Credentials.APISecret != "env-secret" {
		t.Fatalf("credentials not applied")
	}
}

func TestFromEnvIgnoresBadRate(t *testing.T) {
	t.Setenv("VENUELINK_REST_RATE", "not-a-number")
	settings := Default().FromEnv()
	if settings.REST.RequestsPerSecond != Default().REST.RequestsPerSecond {
		t.Fatalf("bad rate must be ignored")
	}
}

// Package config centralises runtime configuration for the venuelink engine.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantfold/venuelink/errs"
)

// Credentials captures the API key pair used for authenticated surfaces.
type Credentials struct {
	APIKey    string `yaml:"apiKey"`
	APISecret string `yaml:"apiSecret"`
}

// WebsocketSettings configures the streaming transport.
type WebsocketSettings struct {
	URL                  string        `yaml:"url"`
	HandshakeTimeout     time.Duration `yaml:"handshakeTimeout"`
	WriteTimeout         time.Duration `yaml:"writeTimeout"`
	ReconnectCooldown    time.Duration `yaml:"reconnectCooldown"`
	MaxReconnectCooldown time.Duration `yaml:"maxReconnectCooldown"`
}

// RESTSettings configures the signed HTTP surface.
type RESTSettings struct {
	PublicURL         string        `yaml:"publicUrl"`
	PrivateURL        string        `yaml:"privateUrl"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Timeout           time.Duration `yaml:"timeout"`
}

// TelemetrySettings configures the optional OpenTelemetry export.
type TelemetrySettings struct {
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// Settings is the engine configuration tree loaded from defaults, an optional
// yaml file, and environment overrides.
type Settings struct {
	Venue       string            `yaml:"venue"`
	Websocket   WebsocketSettings `yaml:"websocket"`
	REST        RESTSettings      `yaml:"rest"`
	Credentials Credentials       `yaml:"credentials"`
	Telemetry   TelemetrySettings `yaml:"telemetry"`
}

// Default returns the stock configuration, pointed at the venue's public
// endpoints with no credentials.
func Default() Settings {
	return Settings{
		Venue: "bitfinex",
		Websocket: WebsocketSettings{
			URL:                  "wss://api.bitfinex.com/ws/2",
			HandshakeTimeout:     10 * time.Second,
			WriteTimeout:         5 * time.Second,
			ReconnectCooldown:    time.Second,
			MaxReconnectCooldown: 30 * time.Second,
		},
		REST: RESTSettings{
			PublicURL:         "https://api-pub.bitfinex.com",
			PrivateURL:        "https://api.bitfinex.com",
			RequestsPerSecond: 1.5,
			Timeout:           10 * time.Second,
		},
		Telemetry: TelemetrySettings{ServiceName: "venuelink"},
	}
}

// Load reads a yaml settings file over the defaults. A missing path returns
// the defaults untouched.
func Load(path string) (Settings, error) {
	settings := Default()
	if path == "" {
		return settings, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, errs.New(settings.Venue, errs.CodeInvalid,
			errs.WithMessage("read config file"), errs.WithCause(err))
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, errs.New(settings.Venue, errs.CodeInvalid,
			errs.WithMessage("parse config file"), errs.WithCause(err))
	}
	return settings, nil
}

// FromEnv applies VENUELINK_* environment overrides on top of s.
func (s Settings) FromEnv() Settings {
	if v := lookup("VENUELINK_VENUE"); v != "" {
		s.Venue = v
	}
	if v := lookup("VENUELINK_WS_URL"); v != "" {
		s.Websocket.URL = v
	}
	if v := lookup("VENUELINK_REST_PUBLIC_URL"); v != "" {
		s.REST.PublicURL = v
	}
	if v := lookup("VENUELINK_REST_PRIVATE_URL"); v != "" {
		s.REST.PrivateURL = v
	}
	if v := lookup("VENUELINK_REST_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil && rate > 0 {
			s.REST.RequestsPerSecond = rate
		}
	}
	if v := lookup("VENUELINK_API_KEY"); v != "" {
		s.Credentials.APIKey = v
	}
	if v := lookup("VENUELINK_API_SECRET"); v != "" {
		s.Credentials.APISecret = v
	}
	if v := lookup("VENUELINK_OTLP_ENDPOINT"); v != "" {
		s.Telemetry.OTLPEndpoint = v
	}
	return s
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	AdminAPIKey string `envconfig:"ADMIN_API_KEY"`

	// Shiprocket
	ShiprocketEmail          string        `envconfig:"SHIPROCKET_EMAIL"`
	ShiprocketPassword       string        `envconfig:"SHIPROCKET_PASSWORD"`
	ShiprocketBaseURL        string        `envconfig:"SHIPROCKET_BASE_URL" default:"https://apiv2.shiprocket.in/v1/external"`
	ShiprocketPickupLocation string        `envconfig:"SHIPROCKET_PICKUP_LOCATION" default:"Primary"`
	ShiprocketAuthTimeout    time.Duration `envconfig:"SHIPROCKET_AUTH_TIMEOUT" default:"15s"`
	ShiprocketTimeout        time.Duration `envconfig:"SHIPROCKET_TIMEOUT" default:"30s"`
	ShiprocketTokenValidity  time.Duration `envconfig:"SHIPROCKET_TOKEN_VALIDITY" default:"240h"`
	ShiprocketTokenMargin    time.Duration `envconfig:"SHIPROCKET_TOKEN_MARGIN" default:"30m"`
	ShiprocketAuthCooldown   time.Duration `envconfig:"SHIPROCKET_AUTH_COOLDOWN" default:"90s"`
	ShiprocketUseMock        bool          `envconfig:"SHIPROCKET_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.observability.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"trovemart-commerce"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Warnings reports non-fatal configuration gaps. Missing carrier
// credentials degrade shipping features but must not stop the rest of the
// platform from serving.
func (c *Config) Warnings() []string {
	var warnings []string
	if !c.ShiprocketUseMock {
		if c.ShiprocketEmail == "" {
			warnings = append(warnings, "SHIPROCKET_EMAIL is not set; shipment operations will fail until configured")
		}
		if c.ShiprocketPassword == "" {
			warnings = append(warnings, "SHIPROCKET_PASSWORD is not set; shipment operations will fail until configured")
		}
	}
	if c.AdminAPIKey == "" {
		warnings = append(warnings, "ADMIN_API_KEY is not set; privileged shipping endpoints are disabled")
	}
	return warnings
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("shiprocket.mock", c.ShiprocketUseMock),
		attribute.String("shiprocket.pickup_location", c.ShiprocketPickupLocation),
	}
}

package config

import (
	"context"
	"fmt"

	"github.com/kbukum/broadband/logger"
	"github.com/kbukum/broadband/observability"
	"github.com/kbukum/broadband/pusher"
	"github.com/kbukum/broadband/stream"
)

// App is the complete configuration of a push dispatch service.
//
//	app:
//	  name: pushd
//	  environment: production
//	logging:
//	  level: info
//	  format: json
//	stream:
//	  default: 0
//	  scale: 2
//	telemetry:
//	  enabled: true
//	  endpoint: otel-collector:4318
//	pusher:
//	  width: 32
//	  gateway:
//	    timeout: 10s
//	    max_attempts: 3
type App struct {
	Base      BaseConfig           `yaml:"app" mapstructure:"app"`
	Logging   logger.Config        `yaml:"logging" mapstructure:"logging"`
	Stream    stream.WidthConfig   `yaml:"stream" mapstructure:"stream"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
	Pusher    pusher.Config        `yaml:"pusher" mapstructure:"pusher"`
}

// ApplyDefaults applies defaults to every section.
func (c *App) ApplyDefaults() {
	c.Base.ApplyDefaults()
	if c.Logging.Service == "" {
		c.Logging.Service = c.Base.Name
	}
	if c.Base.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
	c.Stream.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	c.Pusher.ApplyDefaults()
}

// Validate validates every section.
func (c *App) Validate() error {
	if err := c.Base.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Stream.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Pusher.Validate(); err != nil {
		return fmt.Errorf("pusher: %w", err)
	}
	return nil
}

// Apply installs the global logger and the process-wide fan-out width.
func (c *App) Apply() {
	logger.Init(c.Logging)
	width := stream.ConfigureWidth(c.Stream)
	logger.WithComponent("config").Info("configuration applied", logger.Fields(
		"service", c.Base.Name,
		"environment", c.Base.Environment,
		"version", c.Base.Version,
		logger.FieldWidth, width,
	))
}

// StartTelemetry installs OpenTelemetry providers when enabled and returns
// their shutdown function.
func (c *App) StartTelemetry(ctx context.Context) (func(context.Context) error, error) {
	return observability.Setup(ctx, c.Telemetry, c.Base.Name, c.Base.Version, c.Base.Environment)
}

// Load reads the configuration of serviceName, applies defaults and
// validates it.
func Load(serviceName string, opts ...LoaderOption) (*App, error) {
	var cfg App
	if err := LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Base.Name == "" {
		cfg.Base.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

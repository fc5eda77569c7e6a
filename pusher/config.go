package pusher

import (
	"time"

	"github.com/kbukum/broadband/validation"
)

// Config configures push notification dispatch.
type Config struct {
	// Width bounds concurrent sends in Dispatch. Zero uses the process-wide
	// automatic width.
	Width int `yaml:"width" mapstructure:"width" validate:"gte=0"`
	// DeniedCIDRs lists address ranges pusher URLs may not target. Nil uses
	// DefaultDeniedCIDRs; an empty list denies nothing.
	DeniedCIDRs []string `yaml:"denied_cidrs" mapstructure:"denied_cidrs" validate:"dive,cidr"`
	// ResolveHosts also checks the resolved addresses of named hosts.
	ResolveHosts bool          `yaml:"resolve_hosts" mapstructure:"resolve_hosts"`
	Gateway      GatewayConfig `yaml:"gateway" mapstructure:"gateway"`
}

// GatewayConfig configures the HTTP push gateway client.
type GatewayConfig struct {
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff" validate:"gte=0"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff" validate:"gtefield=InitialBackoff"`
	UserAgent      string        `yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
	// BreakerFailures consecutive retryable failures open a host's circuit.
	BreakerFailures int           `yaml:"breaker_failures" mapstructure:"breaker_failures" validate:"gte=1"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" mapstructure:"breaker_cooldown" validate:"gt=0"`
}

// ApplyDefaults applies default values to pusher configuration.
func (c *Config) ApplyDefaults() {
	if c.DeniedCIDRs == nil {
		c.DeniedCIDRs = append([]string(nil), DefaultDeniedCIDRs...)
	}
	c.Gateway.ApplyDefaults()
}

// Validate validates pusher configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// ApplyDefaults applies default values to gateway configuration.
func (c *GatewayConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 200 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "broadband-pusher/1.0"
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown == 0 {
		c.BreakerCooldown = 30 * time.Second
	}
}

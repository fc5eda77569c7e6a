package stream

import (
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
)

// DefaultWidthScale multiplies hardware parallelism for the initial width.
// Fan-out handlers spend most of their time waiting on I/O, so the default
// admits several operations per available CPU.
const DefaultWidthScale = 4

var width atomic.Int64

func init() {
	width.Store(int64(deriveWidth(0, 1)))
}

// AutomaticWidth returns the process-wide default concurrency bound used by
// the Broad* combinators. The result is always at least 1.
func AutomaticWidth() int {
	return int(width.Load())
}

// SetWidth replaces the process-wide default width and returns the previous
// value. Values below 1 are clamped to 1.
func SetWidth(n int) int {
	return int(width.Swap(int64(max(n, 1))))
}

// WidthConfig configures the default width policy.
type WidthConfig struct {
	// Default is the base width. Zero derives it from GOMAXPROCS.
	Default int `yaml:"default" mapstructure:"default"`
	// Scale multiplies Default.
	Scale float64 `yaml:"scale" mapstructure:"scale"`
}

// ApplyDefaults applies default values to the width configuration.
func (c *WidthConfig) ApplyDefaults() {
	if c.Scale == 0 {
		c.Scale = 1.0
	}
}

// Validate validates the width configuration.
func (c *WidthConfig) Validate() error {
	if c.Default < 0 {
		return fmt.Errorf("stream.default must not be negative (got: %d)", c.Default)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("stream.scale must be positive (got: %g)", c.Scale)
	}
	return nil
}

// Width computes the width described by the configuration without
// installing it.
func (c WidthConfig) Width() int {
	c.ApplyDefaults()
	return deriveWidth(c.Default, c.Scale)
}

// ConfigureWidth installs the width described by cfg as the process-wide
// default and returns it.
func ConfigureWidth(cfg WidthConfig) int {
	w := cfg.Width()
	SetWidth(w)
	return w
}

func deriveWidth(base int, scale float64) int {
	if base <= 0 {
		base = runtime.GOMAXPROCS(0) * DefaultWidthScale
	}
	return max(int(math.Round(float64(base)*scale)), 1)
}

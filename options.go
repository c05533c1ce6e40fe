package hflashc

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Clock is the time source for ready poll timeouts.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Config holds the programmer configuration.
type Config struct {
	// Geometry of the flash array. Defaults to DefaultVariant.
	Geometry Geometry

	// MaxPolls bounds the number of FSR reads per command. Zero means no
	// bound on the count, the timeout still applies.
	MaxPolls int

	// Timeout bounds the wall time per command. Zero uses the geometry's
	// datasheet figure for the command.
	Timeout time.Duration

	// PollInterval is slept between FSR reads. Zero spins.
	PollInterval time.Duration

	// StrictAlignment rejects writes that are not whole doublewords instead
	// of padding them with erased bytes.
	StrictAlignment bool

	Clock  Clock
	Logger log.FieldLogger
}

func defaultConfig() Config {
	g, _ := Variant(DefaultVariant)
	return Config{
		Geometry: g,
		MaxPolls: 1 << 20,
		Clock:    systemClock{},
		Logger:   log.StandardLogger(),
	}
}

// Option is a functional option for configuring the Programmer.
type Option func(*Config)

// WithGeometry sets the flash geometry.
//
// Example:
//
//	g, _ := hflashc.Variant("ATSAM4LC4C")
//	prog, err := hflashc.New(tok, hflashc.WithGeometry(g))
func WithGeometry(g Geometry) Option {
	return func(c *Config) {
		c.Geometry = g
	}
}

// WithMaxPolls bounds the number of status reads per command.
func WithMaxPolls(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxPolls = n
		}
	}
}

// WithTimeout bounds the time spent waiting for each command.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.Timeout = d
		}
	}
}

// WithPollInterval sets a pause between status reads.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.PollInterval = d
		}
	}
}

// WithStrictAlignment makes Write return ErrMisaligned for requests that
// do not start and end on a doubleword boundary.
func WithStrictAlignment() Option {
	return func(c *Config) {
		c.StrictAlignment = true
	}
}

// WithClock replaces the time source.
func WithClock(clk Clock) Option {
	return func(c *Config) {
		if clk != nil {
			c.Clock = clk
		}
	}
}

// WithLogger sets the logger. Per-page events are logged at debug level.
func WithLogger(l log.FieldLogger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

package controlplane

import (
	"time"
)

const (
	DEFAULT_TIMEOUT          = 1000 * time.Millisecond
	DEFAULT_SINK_BUFFER_SIZE = 16 * 1024
	DEFAULT_METRICS_INTERVAL = time.Second
	TICKS_PER_TIMEOUT        = 5
)

// Config holds the per-loop settings. Zero fields fall back to defaults.
type Config struct {
	// Retransmission timeout of unacknowledged segments.
	Timeout time.Duration
	// Interval of the retransmission timer, Timeout/5 if unset.
	TickInterval    time.Duration
	SinkBufferSize  int
	MetricsInterval time.Duration
	// Stop the loop once the last session has been destroyed.
	ExitWhenIdle bool
	Now          func() time.Time
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:         DEFAULT_TIMEOUT,
		TickInterval:    DEFAULT_TIMEOUT / TICKS_PER_TIMEOUT,
		SinkBufferSize:  DEFAULT_SINK_BUFFER_SIZE,
		MetricsInterval: DEFAULT_METRICS_INTERVAL,
		Now:             time.Now,
	}
}

// WithDefaults returns a copy of c with every unset field filled in.
func (c *Config) WithDefaults() Config {
	var cfg Config
	if c != nil {
		cfg = *c
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DEFAULT_TIMEOUT
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = cfg.Timeout / TICKS_PER_TIMEOUT
		if cfg.TickInterval <= 0 {
			cfg.TickInterval = time.Millisecond
		}
	}
	if cfg.SinkBufferSize <= 0 {
		cfg.SinkBufferSize = DEFAULT_SINK_BUFFER_SIZE
	}
	if cfg.MetricsInterval <= 0 {
		cfg.MetricsInterval = DEFAULT_METRICS_INTERVAL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

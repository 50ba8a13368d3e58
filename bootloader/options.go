package bootloader

import "time"

// Config holds the uploader configuration.
type Config struct {
	// ProgressCallback is called after each acknowledged line (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// LinkRetries is the number of probe attempts during link verification
	LinkRetries int

	// LinkAckPolls is the number of read polls to wait for the probe ACK
	// per attempt. Much smaller than AckPolls: an unanswered probe is
	// simply resent, so a long per-probe wait only inflates the worst
	// case before link verification fails.
	LinkAckPolls int

	// LinkRetryDelay is the backoff after a probe write is refused by
	// the channel
	LinkRetryDelay time.Duration

	// AckPolls is the number of read polls to wait for an ACK per line
	AckPolls int

	// AckPollInterval is the fixed delay between ACK polls
	AckPollInterval time.Duration

	// Sleep performs the inter-poll delays; replaceable in tests
	Sleep func(time.Duration)
}

// defaultConfig returns the default configuration. The worst-case durations
// are deterministic: link verification 50 probes x 10 polls x 10ms = 5s,
// per-line ACK wait 300 x 10ms = 3s.
func defaultConfig() Config {
	return Config{
		LinkRetries:     50,
		LinkAckPolls:    10,
		LinkRetryDelay:  100 * time.Millisecond,
		AckPolls:        300,
		AckPollInterval: 10 * time.Millisecond,
		Sleep:           time.Sleep,
	}
}

// Option is a functional option for configuring the Uploader.
type Option func(*Config)

// WithProgressCallback sets a callback to track upload progress.
//
// Example:
//
//	up := bootloader.New(port,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("%d/%d lines\n", p.CurrentLine, p.TotalLines)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for upload operations.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithLinkRetries sets the number of probe attempts during link verification.
func WithLinkRetries(retries int) Option {
	return func(c *Config) {
		if retries > 0 {
			c.LinkRetries = retries
		}
	}
}

// WithLinkAckPolls sets the number of read polls to wait for the probe ACK
// during link verification.
func WithLinkAckPolls(polls int) Option {
	return func(c *Config) {
		if polls > 0 {
			c.LinkAckPolls = polls
		}
	}
}

// WithLinkRetryDelay sets the backoff after a refused probe write.
func WithLinkRetryDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.LinkRetryDelay = delay
		}
	}
}

// WithAckPolls sets the number of read polls to wait for a line ACK.
func WithAckPolls(polls int) Option {
	return func(c *Config) {
		if polls > 0 {
			c.AckPolls = polls
		}
	}
}

// WithAckPollInterval sets the delay between ACK read polls.
func WithAckPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval >= 0 {
			c.AckPollInterval = interval
		}
	}
}

// WithSleepFunc replaces the sleep used between polls. Tests inject a no-op
// to exercise the bounded loops without real hardware delays.
func WithSleepFunc(sleep func(time.Duration)) Option {
	return func(c *Config) {
		if sleep != nil {
			c.Sleep = sleep
		}
	}
}

package i2cbus

import (
	"context"
	"fmt"
	"time"
)

// Op identifies a bus operation.
type Op int

// Supported bus operations.
const (
	OpReadByte Op = iota
	OpReadWord
	OpWriteByte
	OpWriteWord
)

func (op Op) String() string {
	switch op {
	case OpReadByte:
		return "read byte"
	case OpReadWord:
		return "read word"
	case OpWriteByte:
		return "write byte"
	case OpWriteWord:
		return "write word"
	}
	return fmt.Sprintf("unknown op %d", int(op))
}

// write reports whether the operation carries outbound data.
func (op Op) write() bool {
	return op == OpWriteByte || op == OpWriteWord
}

// Policy bounds the retry behavior of bus operations. It is a configuration
// value, never mutated at runtime.
type Policy struct {
	// MaxTries is the total number of attempts per operation
	MaxTries int

	// Delay is the fixed sleep between attempts
	Delay time.Duration
}

// DefaultPolicy returns the retry policy used when none is configured:
// 12 attempts, 500ms apart.
func DefaultPolicy() Policy {
	return Policy{MaxTries: 12, Delay: 500 * time.Millisecond}
}

// Logger is an optional logging interface, compatible with the one used by
// the bootloader package.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Client wraps a Bus with bounded-retry-on-transient-error semantics.
// The underlying handle is opened lazily on first use.
type Client struct {
	open   Opener
	bus    Bus
	policy Policy
	logger Logger
	sleep  func(time.Duration)
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithPolicy overrides the default retry policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) {
		if p.MaxTries > 0 {
			c.policy = p
		}
	}
}

// WithLogger sets a logger for bus operations.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSleepFunc replaces the inter-attempt sleep. Tests inject a no-op to
// exercise retry exhaustion without real delays.
func WithSleepFunc(sleep func(time.Duration)) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient creates a Client over the given Opener.
//
// Example:
//
//	client := i2cbus.NewClient(i2cbus.SystemOpener(1),
//	    i2cbus.WithPolicy(i2cbus.Policy{MaxTries: 6, Delay: time.Second}),
//	)
func NewClient(open Opener, opts ...Option) *Client {
	if open == nil {
		panic("opener cannot be nil")
	}

	c := &Client{
		open:   open,
		policy: DefaultPolicy(),
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs one bus operation with the configured retry policy.
// For read operations the returned value is the raw register content, byte
// or word; data must be nil. For write operations data carries the value to
// write and the returned value is zero.
//
// Transient faults are retried up to the policy's attempt budget with a
// fixed inter-attempt delay. Logical faults (missing write data, an absent
// bus, a rejected operation) are surfaced immediately.
func (c *Client) Execute(ctx context.Context, op Op, dev, reg byte, data *uint16) (uint16, error) {
	if op.write() && data == nil {
		return 0, ErrMissingWriteData
	}

	if c.bus == nil {
		bus, err := c.open()
		if err != nil {
			return 0, &UnavailableError{Err: err}
		}
		c.bus = bus
	}

	c.logDebug("bus operation", "op", op.String(), "dev", hexByte(dev), "reg", hexByte(reg))

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxTries; attempt++ {
		value, err := c.attempt(op, dev, reg, data)
		if err == nil {
			return value, nil
		}
		if !Transient(err) {
			return 0, &OperationError{Op: op, Dev: dev, Reg: reg, Err: err}
		}

		lastErr = err
		if attempt < c.policy.MaxTries {
			c.logDebug("transient bus fault, retrying",
				"op", op.String(), "attempt", attempt, "remaining", c.policy.MaxTries-attempt)
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			c.sleep(c.policy.Delay)
		}
	}

	return 0, &RetriesExhaustedError{Op: op, Dev: dev, Reg: reg, Tries: c.policy.MaxTries, Last: lastErr}
}

func (c *Client) attempt(op Op, dev, reg byte, data *uint16) (uint16, error) {
	switch op {
	case OpReadByte:
		v, err := c.bus.ReadByte(dev, reg)
		return uint16(v), err
	case OpReadWord:
		return c.bus.ReadWord(dev, reg)
	case OpWriteByte:
		return 0, c.bus.WriteByte(dev, reg, byte(*data))
	case OpWriteWord:
		return 0, c.bus.WriteWord(dev, reg, *data)
	}
	return 0, fmt.Errorf("unsupported bus operation %d", int(op))
}

// Close releases the underlying bus handle if it was opened.
func (c *Client) Close() error {
	if c.bus == nil {
		return nil
	}
	err := c.bus.Close()
	c.bus = nil
	return err
}

func (c *Client) logDebug(msg string, keysAndValues ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

func hexByte(b byte) string {
	return fmt.Sprintf("0x%02X", b)
}

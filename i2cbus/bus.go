package i2cbus

import "errors"

// Bus is a byte-oriented register bus: read or write a single byte or a
// 16-bit word at a register of an addressed device. Implementations wrap the
// kernel I2C bus or, in tests, a scripted fake.
type Bus interface {
	ReadByte(dev, reg byte) (byte, error)
	ReadWord(dev, reg byte) (uint16, error)
	WriteByte(dev, reg, value byte) error
	WriteWord(dev, reg byte, value uint16) error
	Close() error
}

// Opener lazily produces a Bus. The Client only opens the underlying handle
// on first use, so constructing a Client never touches hardware; a present
// but uninitialized bus stays untouched until an operation needs it.
type Opener func() (Bus, error)

// TransientError marks a bus fault as recoverable. The bus arbitration is
// shared with other kernel-level consumers, so intermittent contention is
// expected; operations failing with a TransientError are retried per policy.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient reports whether err is retryable.
func Transient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

package i2cbus

import (
	"errors"
	"fmt"
)

// ErrMissingWriteData is returned when a write operation is executed without
// a data value. This is a caller contract violation and is never retried.
var ErrMissingWriteData = errors.New("i2cbus: write operation requires a data value")

// UnavailableError indicates that the underlying bus handle could not be
// opened. Surfaced once, not retried: an absent bus cannot appear by waiting.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("bus unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// OperationError indicates a non-transient failure of a bus operation,
// such as a bad argument or a non-existent device. Retrying these can never
// succeed, so the operation aborts immediately.
type OperationError struct {
	Op  Op
	Dev byte
	Reg byte
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s on device 0x%02X register 0x%02X failed: %v", e.Op, e.Dev, e.Reg, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// RetriesExhaustedError indicates that every attempt of a bus operation
// raised a transient fault.
type RetriesExhaustedError struct {
	Op    Op
	Dev   byte
	Reg   byte
	Tries int
	Last  error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s on device 0x%02X register 0x%02X failed after %d attempts: %v",
		e.Op, e.Dev, e.Reg, e.Tries, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Last }

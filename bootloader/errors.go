package bootloader

import (
	"errors"
	"fmt"
)

// ErrLinkVerification indicates that the bootloader never acknowledged the
// probe line within the retry budget.
var ErrLinkVerification = errors.New("bootloader: failed to verify serial link with the device")

// OpenError indicates that the serial channel could not be opened or
// configured. No session state is entered.
type OpenError struct {
	Port string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open serial port %s: %v", e.Port, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// LineError indicates that a record line was not acknowledged, aborting the
// session. Line is the 1-based line number in the firmware file.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to send line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d not acknowledged by bootloader", e.Line)
}

func (e *LineError) Unwrap() error { return e.Err }

package bootloader

import (
	"io"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the fixed baud rate of the UPS PIco bootloader.
const DefaultBaudRate = 9600

// portReadTimeout keeps reads short so the ACK wait polls instead of
// blocking; the poll budget, not the read timeout, bounds the wait.
const portReadTimeout = time.Millisecond

// OpenPort opens and configures the serial channel to the bootloader:
// 8N1 framing at the given baud rate with a short read timeout.
//
// The underlying library does not expose XON/XOFF software flow control;
// the bootloader tolerates its absence because every line waits for an
// explicit ACK before the next one is sent.
func OpenPort(device string, baud int) (io.ReadWriteCloser, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, &OpenError{Port: device, Err: err}
	}

	if err := port.SetReadTimeout(portReadTimeout); err != nil {
		_ = port.Close()
		return nil, &OpenError{Port: device, Err: err}
	}

	return port, nil
}

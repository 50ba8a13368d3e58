package i2cbus

import (
	"fmt"
	"strconv"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// SystemOpener returns an Opener for the kernel I2C bus with the given id
// (1 for /dev/i2c-1 on a Raspberry Pi).
func SystemOpener(id int) Opener {
	return func() (Bus, error) {
		return SystemBus(id)
	}
}

// SystemBus opens the kernel I2C bus with the given id.
func SystemBus(id int) (Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(strconv.Itoa(id))
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %d: %w", id, err)
	}
	return &systemBus{bus: bus}, nil
}

// systemBus adapts a periph.io bus to the Bus interface. Transfer failures
// are wrapped as transient: the bus is shared with other kernel consumers
// and contention clears on retry. Words use SMBus byte order (low first).
type systemBus struct {
	bus i2c.BusCloser
}

func (s *systemBus) ReadByte(dev, reg byte) (byte, error) {
	var buf [1]byte
	if err := s.bus.Tx(uint16(dev), []byte{reg}, buf[:]); err != nil {
		return 0, &TransientError{Err: err}
	}
	return buf[0], nil
}

func (s *systemBus) ReadWord(dev, reg byte) (uint16, error) {
	var buf [2]byte
	if err := s.bus.Tx(uint16(dev), []byte{reg}, buf[:]); err != nil {
		return 0, &TransientError{Err: err}
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

func (s *systemBus) WriteByte(dev, reg, value byte) error {
	if err := s.bus.Tx(uint16(dev), []byte{reg, value}, nil); err != nil {
		return &TransientError{Err: err}
	}
	return nil
}

func (s *systemBus) WriteWord(dev, reg byte, value uint16) error {
	if err := s.bus.Tx(uint16(dev), []byte{reg, byte(value), byte(value >> 8)}, nil); err != nil {
		return &TransientError{Err: err}
	}
	return nil
}

func (s *systemBus) Close() error {
	return s.bus.Close()
}

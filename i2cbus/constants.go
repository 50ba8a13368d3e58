package i2cbus

import "fmt"

// DefaultBusID is the kernel I2C bus the UPS PIco board is attached to.
const DefaultBusID = 1

// Device addresses of the UPS PIco register map.
const (
	// StatusAddr is the status device exposing identification and
	// firmware version registers
	StatusAddr = 0x69

	// ControlAddr is the control device accepting mode commands
	ControlAddr = 0x6B
)

// Registers of the status device.
const (
	// RegPCBRevision is the board revision register (byte)
	RegPCBRevision = 0x35

	// RegModelCode is the model identification register (byte)
	RegModelCode = 0x36

	// RegFirmwareVersion is the running firmware version register (word)
	RegFirmwareVersion = 0x38
)

// Registers of the control device.
const (
	// RegModeControl accepts the mode sentinel bytes below
	RegModeControl = 0x00
)

// Sentinel values accepted by the mode-control register.
const (
	// ModeLocalBootloader switches the device into local bootloader mode
	ModeLocalBootloader = 0xFF

	// ModeRemoteBootloader switches the device into remote bootloader mode
	ModeRemoteBootloader = 0xBB

	// ModeFactoryReset performs a factory reset after a firmware update
	ModeFactoryReset = 0xDD
)

// ModelName maps a model code register value to the board variant name.
// Unrecognized codes are reported, not rejected.
func ModelName(code byte) string {
	switch code {
	case 'S':
		return "BC Stack"
	case 'A':
		return "BC Advanced"
	case 'P':
		return "BC PPoE"
	case 'T':
		return "B Stack"
	case 'B':
		return "B Advanced"
	case 'Q':
		return "B PPoE"
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", code)
}

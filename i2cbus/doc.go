// Package i2cbus provides retrying access to the UPS PIco register bus.
//
// # Register Map
//
// The board exposes two I2C devices. The status device (0x69) carries
// identification and version registers; the control device (0x6B) accepts
// mode sentinel bytes:
//
//	0x69/0x35  PCB revision (byte)
//	0x69/0x36  model code (byte)
//	0x69/0x38  firmware version (word)
//	0x6B/0x00  mode control: 0xFF local bootloader,
//	           0xBB remote bootloader, 0xDD factory reset
//
// # Retry Semantics
//
// The bus is shared with other kernel-level consumers, so intermittent
// contention is expected and recoverable. Operations failing with a
// transient fault are retried with a fixed inter-attempt delay, 12 attempts
// of 500ms by default. Logical faults are never retried: a write without
// data, an absent bus, or a rejected operation cannot succeed by waiting.
//
// # Usage
//
//	client := i2cbus.NewClient(i2cbus.SystemOpener(1))
//	defer client.Close()
//
//	version, err := client.FirmwareVersion(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("firmware 0x%04X\n", version)
//
// The underlying handle is opened lazily on the first operation. Tests
// inject a fake Bus through the Opener and a no-op sleep function.
package i2cbus

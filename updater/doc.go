// Package updater sequences a complete UPS PIco firmware update.
//
// One run composes the other packages of this module:
//
//  1. hexfile validates the Intel HEX image (skippable; verify-only mode
//     stops here without touching hardware)
//  2. i2cbus reads the running firmware version and commands the device
//     into bootloader mode over the register bus
//  3. bootloader uploads the image line by line over the serial link
//  4. i2cbus commands a factory reset and re-reads the version register
//     to confirm the new firmware
//
// Every optional stage has an explicit skip flag, and an absent bus
// capability (nil client) skips the bus stages symmetrically instead of
// failing. Any non-skipped stage failure short-circuits the run; the Result
// names the responsible stage. The package never prints and never exits:
// the CLI maps Result to output and process exit codes.
//
//	client := i2cbus.NewClient(i2cbus.SystemOpener(1))
//	upd := updater.New(updater.Config{FirmwareFile: "ups_pico4_main.hex"},
//	    updater.WithBus(client),
//	)
//	res := upd.Run(context.Background())
//	if res.Outcome != updater.OutcomeSuccess {
//	    log.Fatal(res.Summary())
//	}
package updater

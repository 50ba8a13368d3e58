// Package bootloader implements the serial upload handshake of the UPS PIco
// bootloader.
//
// # Overview
//
// After the device is switched into bootloader mode over the register bus,
// it accepts its new firmware over the serial line, one Intel HEX record
// line at a time. The handshake is minimal: the host writes a line
// terminated with a carriage return, then waits for a single ACK control
// byte (0x06). Any other inbound byte is ignored; there is no negative
// acknowledgement. The end-of-file record is sent and acknowledged like any
// other line.
//
// A session moves through the states
//
//	Disconnected -> LinkVerifying -> Uploading -> Completed
//
// or ends in Failed carrying the line that was not acknowledged.
//
// # Timing
//
// All waits are bounded poll loops with fixed intervals, so the worst-case
// duration is deterministic: link verification sends the probe line up to
// 50 times, each attempt listening across 10 polls of 10ms (worst case 5s);
// each data line waits for its ACK across up to 300 polls, 10ms apart
// (worst case 3s per line). The stale-byte flush before each line is
// bounded too. All budgets are configurable, and the sleep function can be
// replaced so tests run without real delays.
//
// # Usage
//
//	img, err := hexfile.Parse("ups_pico4_main.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	port, err := bootloader.OpenPort("/dev/serial0", bootloader.DefaultBaudRate)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	up := bootloader.New(port,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("\r%d/%d lines", p.CurrentLine, p.TotalLines)
//	    }),
//	)
//	session, err := up.Upload(ctx, img)
//
// # Failure Model
//
// A line that times out aborts the whole session; partial uploads are not
// resumed or rolled back. The device is left for manual recovery, since
// silently retrying a partially uploaded image risks bricking it.
//
// # Hardware Independence
//
// The uploader talks to any io.ReadWriter. OpenPort provides the real
// serial channel; tests substitute a scripted peer.
package bootloader

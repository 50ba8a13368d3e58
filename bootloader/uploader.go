package bootloader

import (
	"context"
	"fmt"
	"io"

	"github.com/maestrx/pimodules/hexfile"
)

// Protocol constants of the UPS PIco serial bootloader.
const (
	// AckByte is the control byte the bootloader sends after consuming
	// one uploaded line (ASCII ACK)
	AckByte = 0x06

	// ProbeLine is the fixed record sent to verify the bootloader is
	// listening before the upload starts
	ProbeLine = ":020000040000FA"

	// lineTerminator ends every outbound line
	lineTerminator = "\r"

	// readChunkSize is the inbound read buffer size per poll
	readChunkSize = 64

	// maxDrainReads bounds the stale-byte flush so a device that
	// chatters continuously cannot keep the flush spinning; leftover
	// noise is tolerated by the ACK scan anyway
	maxDrainReads = 16
)

// State identifies a phase of an upload session.
type State int

// Session states.
const (
	StateDisconnected State = iota
	StateLinkVerifying
	StateUploading
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateLinkVerifying:
		return "link-verifying"
	case StateUploading:
		return "uploading"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("unknown state %d", int(s))
}

// Session records the live state of one upload attempt.
type Session struct {
	// State is the terminal state of the session
	State State

	// LinesSent is the count of record lines written to the channel
	LinesSent int

	// LinesAcked is the count of lines the bootloader acknowledged
	LinesAcked int

	// FailedLine is the 1-based file line that was not acknowledged or
	// could not be sent; zero when the session completed and on
	// host-side cancellation
	FailedLine int
}

// Uploader drives the line-send/ack-wait handshake of the UPS PIco serial
// bootloader over a duplex channel.
type Uploader struct {
	device io.ReadWriter
	config Config
}

// New creates an Uploader over the given channel. The device is typically a
// serial port opened with OpenPort, or any io.ReadWriter in tests.
//
// Example:
//
//	port, err := bootloader.OpenPort("/dev/serial0", 9600)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//	up := bootloader.New(port,
//	    bootloader.WithProgressCallback(progressFunc),
//	)
func New(device io.ReadWriter, opts ...Option) *Uploader {
	if device == nil {
		panic("device cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Uploader{
		device: device,
		config: cfg,
	}
}

// Upload performs the complete transfer sequence:
//  1. Verify the link by sending the probe line until it is acknowledged
//  2. Send every record line, waiting for an ACK byte after each
//  3. Complete after the end-of-file record is acknowledged
//
// A line that times out without acknowledgement aborts the session; partial
// uploads are not resumed or rolled back, the device is left in whatever
// state its bootloader guarantees on an incomplete transfer.
//
// The returned Session is always non-nil and carries the accounting of the
// attempt, success or failure.
func (u *Uploader) Upload(ctx context.Context, img *hexfile.Image) (*Session, error) {
	if img == nil || len(img.Records) == 0 {
		return &Session{State: StateFailed}, fmt.Errorf("image has no records")
	}

	session := &Session{State: StateLinkVerifying}

	if err := u.verifyLink(ctx); err != nil {
		session.State = StateFailed
		return session, err
	}
	u.logInfo("serial link with bootloader verified")

	session.State = StateUploading
	total := len(img.Records)

	for i, rec := range img.Records {
		// FailedLine stays zero here: cancellation is a host-side
		// decision, not a protocol failure at this line.
		if err := ctx.Err(); err != nil {
			session.State = StateFailed
			return session, fmt.Errorf("cancelled: %w", err)
		}

		u.drain()

		if err := u.writeLine(rec.Text + lineTerminator); err != nil {
			session.State = StateFailed
			session.FailedLine = rec.Line
			return session, &LineError{Line: rec.Line, Err: err}
		}
		session.LinesSent++

		if !u.waitAck(ctx) {
			session.State = StateFailed
			if err := ctx.Err(); err != nil {
				return session, fmt.Errorf("cancelled: %w", err)
			}
			session.FailedLine = rec.Line
			u.logError("line not acknowledged", "line", rec.Line)
			return session, &LineError{Line: rec.Line}
		}
		session.LinesAcked++

		u.reportProgress(Progress{
			CurrentLine: i + 1,
			TotalLines:  total,
			Percentage:  float64(i+1) / float64(total) * 100,
		})
	}

	session.State = StateCompleted
	u.logInfo("upload complete", "lines", session.LinesSent)
	return session, nil
}

// verifyLink sends the probe line until the bootloader acknowledges it.
// The bootloader takes a variable amount of time after the mode switch to
// become ready to receive, so the probe is repeated. Each attempt listens
// across its own short window (LinkAckPolls, much smaller than the per-line
// budget); an unanswered probe rolls straight into the next, so the worst
// case is LinkRetries x LinkAckPolls x AckPollInterval.
func (u *Uploader) verifyLink(ctx context.Context) error {
	for attempt := 1; attempt <= u.config.LinkRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		u.drain()
		if err := u.writeLine(ProbeLine + lineTerminator); err != nil {
			// The channel refused the write outright; back off
			// instead of hot-looping on a dead port.
			if attempt < u.config.LinkRetries {
				u.config.Sleep(u.config.LinkRetryDelay)
			}
			continue
		}

		if u.awaitAck(ctx, u.config.LinkAckPolls) {
			u.logDebug("link verified", "attempt", attempt)
			return nil
		}
	}
	return ErrLinkVerification
}

// waitAck polls the channel for a line's ACK byte within the per-line
// attempt budget.
func (u *Uploader) waitAck(ctx context.Context) bool {
	return u.awaitAck(ctx, u.config.AckPolls)
}

// awaitAck polls the channel for the ACK byte within the given poll budget.
// Any other inbound byte is ignored; the bootloader has no negative
// acknowledgement.
func (u *Uploader) awaitAck(ctx context.Context, polls int) bool {
	buf := make([]byte, readChunkSize)
	for poll := 0; poll < polls; poll++ {
		if ctx.Err() != nil {
			return false
		}

		// A short-timeout read that yields nothing counts against the
		// poll budget like any other empty poll.
		n, _ := u.device.Read(buf)
		for _, b := range buf[:n] {
			if b == AckByte {
				return true
			}
		}

		u.config.Sleep(u.config.AckPollInterval)
	}
	return false
}

// drain discards stale inbound bytes so a leftover ACK from a previous line
// is never taken for the next one. The flush is bounded: against a device
// that streams chatter it stops after maxDrainReads reads and leaves the
// rest to the ACK scan, which ignores non-ACK bytes anyway.
func (u *Uploader) drain() {
	buf := make([]byte, readChunkSize)
	for i := 0; i < maxDrainReads; i++ {
		n, err := u.device.Read(buf)
		if n == 0 || err != nil {
			return
		}
	}
}

func (u *Uploader) writeLine(line string) error {
	if _, err := io.WriteString(u.device, line); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// reportProgress calls the progress callback if configured.
func (u *Uploader) reportProgress(progress Progress) {
	if u.config.ProgressCallback != nil {
		u.config.ProgressCallback(progress)
	}
}

func (u *Uploader) logDebug(msg string, keysAndValues ...interface{}) {
	if u.config.Logger != nil {
		u.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (u *Uploader) logInfo(msg string, keysAndValues ...interface{}) {
	if u.config.Logger != nil {
		u.config.Logger.Info(msg, keysAndValues...)
	}
}

func (u *Uploader) logError(msg string, keysAndValues ...interface{}) {
	if u.config.Logger != nil {
		u.config.Logger.Error(msg, keysAndValues...)
	}
}

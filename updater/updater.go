package updater

import (
	"context"
	"fmt"
	"io"

	"github.com/maestrx/pimodules/bootloader"
	"github.com/maestrx/pimodules/hexfile"
	"github.com/maestrx/pimodules/i2cbus"
)

// Config holds the parameters of one update run, supplied by the CLI layer.
// Zero values fall back to the documented defaults.
type Config struct {
	// FirmwareFile is the Intel HEX image path
	FirmwareFile string

	// SerialPort is the serial device of the bootloader link
	SerialPort string

	// BaudRate is the serial baud rate
	BaudRate int

	// SkipVerify trusts the firmware file content as-is
	SkipVerify bool

	// VerifyOnly validates the file and stops before touching hardware
	VerifyOnly bool

	// SkipDigest disables the advisory content digest
	SkipDigest bool

	// SkipVersionRead disables the firmware version reads before and
	// after the update
	SkipVersionRead bool

	// SkipModeSwitch disables the bus command that places the device in
	// bootloader mode (for devices switched by other means)
	SkipModeSwitch bool

	// SkipReset disables the factory reset after the upload
	SkipReset bool

	// LocalBootloader selects the local bootloader sentinel instead of
	// the remote one on the mode switch
	LocalBootloader bool

	// UploadOptions are passed through to the bootloader uploader
	UploadOptions []bootloader.Option
}

// DefaultSerialPort is the on-board UART the UPS PIco is wired to.
const DefaultSerialPort = "/dev/serial0"

func (c Config) withDefaults() Config {
	if c.SerialPort == "" {
		c.SerialPort = DefaultSerialPort
	}
	if c.BaudRate <= 0 {
		c.BaudRate = bootloader.DefaultBaudRate
	}
	return c
}

// SerialOpener opens the serial channel to the bootloader. The default is
// bootloader.OpenPort; tests substitute a scripted peer.
type SerialOpener func(device string, baud int) (io.ReadWriteCloser, error)

// Logger is an optional logging interface, compatible with the one used by
// the bootloader and i2cbus packages.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Updater sequences one complete firmware update run. Each run is
// independent: the serial channel and the bus handle are owned exclusively
// for its duration and released on every exit path.
type Updater struct {
	config     Config
	bus        *i2cbus.Client
	openSerial SerialOpener
	logger     Logger
	progress   bootloader.ProgressCallback
}

// Option is a functional option for configuring the Updater.
type Option func(*Updater)

// WithBus injects the register bus client. A nil client marks the bus
// capability as absent: every bus stage is skipped with a log line instead
// of failing, mirroring the explicit skip flags.
func WithBus(bus *i2cbus.Client) Option {
	return func(u *Updater) {
		u.bus = bus
	}
}

// WithSerialOpener replaces how the serial channel is opened.
func WithSerialOpener(open SerialOpener) Option {
	return func(u *Updater) {
		if open != nil {
			u.openSerial = open
		}
	}
}

// WithLogger sets a logger for the run.
func WithLogger(logger Logger) Option {
	return func(u *Updater) {
		u.logger = logger
	}
}

// WithProgress sets a callback reporting upload progress.
func WithProgress(callback bootloader.ProgressCallback) Option {
	return func(u *Updater) {
		u.progress = callback
	}
}

// New creates an Updater for one run with the given configuration.
func New(cfg Config, opts ...Option) *Updater {
	u := &Updater{
		config:     cfg.withDefaults(),
		openSerial: bootloader.OpenPort,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Run executes the update sequence end to end:
//
//	validate -> read version -> switch to bootloader mode ->
//	connect -> upload -> factory reset -> re-read version
//
// Every step's failure short-circuits the remainder; the returned Result
// identifies the responsible stage. Run never prints: rendering the outcome
// is the caller's concern.
func (u *Updater) Run(ctx context.Context) Result {
	defer func() {
		if u.bus != nil {
			if err := u.bus.Close(); err != nil {
				u.logError("failed to close bus", "error", err)
			}
		}
	}()

	res := Result{Outcome: OutcomeFailed}

	img := u.loadImage(&res)
	if img == nil {
		return res
	}
	if u.config.VerifyOnly {
		u.logInfo("firmware file validation only mode")
		res.Outcome = OutcomeVerified
		return res
	}

	if !u.prepareDevice(ctx, &res) {
		return res
	}

	if !u.upload(ctx, img, &res) {
		return res
	}

	if !u.finishDevice(ctx, &res) {
		return res
	}

	res.Outcome = OutcomeSuccess
	u.logInfo("firmware update completed")
	return res
}

// loadImage validates (or, when skipped, trusts) the firmware file and
// collects the advisory digest and layout summary. Returns nil on failure
// with the result's stage populated.
func (u *Updater) loadImage(res *Result) *hexfile.Image {
	var img *hexfile.Image
	var err error

	if u.config.SkipVerify {
		u.logInfo("skipping firmware verification")
		img, err = hexfile.ReadRaw(u.config.FirmwareFile)
	} else {
		img, err = hexfile.Parse(u.config.FirmwareFile)
	}
	if err != nil {
		res.fail(StageValidate, err)
		u.logError("firmware file verification failed", "error", err)
		return nil
	}
	if !u.config.SkipVerify {
		u.logInfo("firmware file verification OK", "records", len(img.Records))
	}

	if !u.config.SkipDigest {
		if digest, derr := hexfile.Digest(u.config.FirmwareFile); derr == nil {
			res.Digest = digest
			u.logInfo("firmware file digest", "md5", digest)
		} else {
			u.logError("failed to compute firmware digest", "error", derr)
		}
		if sum, serr := hexfile.Summarize(u.config.FirmwareFile); serr == nil {
			u.logInfo("firmware image layout", "summary", sum.String())
		} else {
			u.logDebug("failed to summarize firmware image", "error", serr)
		}
	}

	return img
}

// prepareDevice reads the running firmware version and commands the device
// into bootloader mode. Board identification is best-effort; version read
// and mode switch failures are fatal because the device is then in an
// unknown state for the upload.
func (u *Updater) prepareDevice(ctx context.Context, res *Result) bool {
	if u.bus == nil {
		u.logInfo("bus not available, skipping bootloader mode switch")
		return true
	}

	if board, err := u.bus.BoardInfo(ctx); err == nil {
		res.Board = board
		u.logInfo("board identified",
			"pcb", fmt.Sprintf("0x%02X", board.PCBRevision), "model", board.Model)
	} else {
		u.logError("unable to collect board identification", "error", err)
	}

	if !u.config.SkipVersionRead {
		version, err := u.bus.FirmwareVersion(ctx)
		if err != nil {
			res.fail(StageBusVersion, fmt.Errorf("read current firmware version (is the device in running mode?): %w", err))
			return false
		}
		res.OldVersion = version
		res.HasOldVersion = true
		u.logInfo("current firmware release", "version", fmt.Sprintf("0x%04X", version))
	}

	if !u.config.SkipModeSwitch {
		mode := "remote"
		if u.config.LocalBootloader {
			mode = "local"
		}
		u.logDebug("enabling bootloader mode", "mode", mode)
		if err := u.bus.EnterBootloader(ctx, u.config.LocalBootloader); err != nil {
			res.fail(StageBusMode, fmt.Errorf("set %s bootloader mode: %w", mode, err))
			return false
		}
	}

	return true
}

// upload opens the serial channel and runs the bootloader handshake.
func (u *Updater) upload(ctx context.Context, img *hexfile.Image, res *Result) bool {
	u.logDebug("opening serial port", "port", u.config.SerialPort, "baud", u.config.BaudRate)
	port, err := u.openSerial(u.config.SerialPort, u.config.BaudRate)
	if err != nil {
		res.fail(StageConnect, err)
		return false
	}
	defer func() { _ = port.Close() }()

	opts := make([]bootloader.Option, 0, len(u.config.UploadOptions)+2)
	if u.logger != nil {
		opts = append(opts, bootloader.WithLogger(u.logger))
	}
	if u.progress != nil {
		opts = append(opts, bootloader.WithProgressCallback(u.progress))
	}
	opts = append(opts, u.config.UploadOptions...)

	session, err := bootloader.New(port, opts...).Upload(ctx, img)
	res.LinesSent = session.LinesSent
	if err != nil {
		res.fail(StageUpload, err)
		return false
	}
	return true
}

// finishDevice returns the device to running mode and confirms the new
// firmware version.
func (u *Updater) finishDevice(ctx context.Context, res *Result) bool {
	if u.bus == nil {
		u.logInfo("bus not available, skipping factory reset")
		return true
	}

	if !u.config.SkipReset {
		if err := u.bus.FactoryReset(ctx); err != nil {
			res.fail(StageBusReset, fmt.Errorf("factory reset: %w", err))
			return false
		}
		u.logDebug("factory reset commanded")
	}

	if !u.config.SkipVersionRead {
		version, err := u.bus.FirmwareVersion(ctx)
		if err != nil {
			res.fail(StageBusVersion, fmt.Errorf("read new firmware version: %w", err))
			return false
		}
		res.NewVersion = version
		res.HasNewVersion = true
		u.logInfo("new firmware release", "version", fmt.Sprintf("0x%04X", version))
	}

	return true
}

func (u *Updater) logDebug(msg string, keysAndValues ...interface{}) {
	if u.logger != nil {
		u.logger.Debug(msg, keysAndValues...)
	}
}

func (u *Updater) logInfo(msg string, keysAndValues ...interface{}) {
	if u.logger != nil {
		u.logger.Info(msg, keysAndValues...)
	}
}

func (u *Updater) logError(msg string, keysAndValues ...interface{}) {
	if u.logger != nil {
		u.logger.Error(msg, keysAndValues...)
	}
}

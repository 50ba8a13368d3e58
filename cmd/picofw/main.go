// Command picofw uploads a firmware image to a UPS PIco board over the
// serial bootloader, driving the mode switch and reset over the I2C bus.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maestrx/pimodules/bootloader"
	"github.com/maestrx/pimodules/i2cbus"
	"github.com/maestrx/pimodules/updater"
)

var (
	fwFile       string
	serialPort   string
	baudRate     int
	busID        int
	skipVerify   bool
	verifyOnly   bool
	skipDigest   bool
	skipI2CFw    bool
	skipI2CBl    bool
	skipI2CReset bool
	blLocal      bool
	noI2C        bool
	verbosity    int
)

var rootCmd = &cobra.Command{
	Use:   "picofw",
	Short: "UPS PIco firmware updater",
	Long: `picofw validates an Intel HEX firmware image and uploads it to the
UPS PIco serial bootloader, one acknowledged line at a time.

Unless disabled, the I2C bus is used around the upload to read the running
firmware version, command the board into bootloader mode, and factory-reset
it back into running mode afterwards.

Exit codes:
  0  update completed (or file verified with --fw-verify-only)
  1  usage error
  2  update failed`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runUpdate,
}

func init() {
	rootCmd.Flags().StringVarP(&fwFile, "fw-file", "f", "", "Firmware file in Intel HEX format (required)")
	rootCmd.Flags().StringVarP(&serialPort, "port", "p", updater.DefaultSerialPort, "Serial port of the bootloader link")
	rootCmd.Flags().IntVarP(&baudRate, "baud", "b", bootloader.DefaultBaudRate, "Serial baud rate")
	rootCmd.Flags().IntVar(&busID, "bus", i2cbus.DefaultBusID, "I2C bus number")
	rootCmd.Flags().BoolVar(&skipVerify, "skip-fw-verify", false, "Trust the firmware file without validating it")
	rootCmd.Flags().BoolVar(&verifyOnly, "fw-verify-only", false, "Validate the firmware file and exit")
	rootCmd.Flags().BoolVar(&skipDigest, "skip-fw-digest", false, "Skip the firmware file digest")
	rootCmd.Flags().BoolVar(&skipI2CFw, "skip-i2c-fw", false, "Skip the firmware version reads over I2C")
	rootCmd.Flags().BoolVar(&skipI2CBl, "skip-i2c-bl", false, "Skip the bootloader mode switch over I2C")
	rootCmd.Flags().BoolVar(&skipI2CReset, "skip-i2c-reset", false, "Skip the factory reset over I2C")
	rootCmd.Flags().BoolVar(&blLocal, "i2c-bl-local", false, "Use the local bootloader instead of the remote one")
	rootCmd.Flags().BoolVar(&noI2C, "no-i2c", false, "Do not touch the I2C bus at all")
	rootCmd.Flags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	_ = rootCmd.MarkFlagRequired("fw-file")
}

// updateFailed wraps a failed Result so main can map it to its exit code.
type updateFailed struct {
	res updater.Result
}

func (e *updateFailed) Error() string {
	return e.res.Summary()
}

func runUpdate(cmd *cobra.Command, args []string) error {
	logger := newStdLogger(verbosity)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []updater.Option{
		updater.WithLogger(logger),
	}
	if !verifyOnly {
		if noI2C {
			logger.Info("I2C bus disabled on request")
		} else {
			opts = append(opts, updater.WithBus(i2cbus.NewClient(
				i2cbus.SystemOpener(busID),
				i2cbus.WithLogger(logger),
			)))
		}
		opts = append(opts, updater.WithProgress(newProgressBar(40)))
	}

	upd := updater.New(updater.Config{
		FirmwareFile:    fwFile,
		SerialPort:      serialPort,
		BaudRate:        baudRate,
		SkipVerify:      skipVerify,
		VerifyOnly:      verifyOnly,
		SkipDigest:      skipDigest,
		SkipVersionRead: skipI2CFw,
		SkipModeSwitch:  skipI2CBl,
		SkipReset:       skipI2CReset,
		LocalBootloader: blLocal,
	}, opts...)

	res := upd.Run(ctx)
	fmt.Fprintln(os.Stdout, res.Summary())
	if res.Outcome == updater.OutcomeFailed {
		return &updateFailed{res: res}
	}
	return nil
}

// stdLogger adapts the standard library logger to the leveled interface the
// packages share. Debug lines only appear with -v.
type stdLogger struct {
	out       *log.Logger
	verbosity int
}

func newStdLogger(verbosity int) *stdLogger {
	return &stdLogger{
		out:       log.New(os.Stderr, "", log.LstdFlags),
		verbosity: verbosity,
	}
}

func (l *stdLogger) Debug(msg string, keysAndValues ...interface{}) {
	if l.verbosity > 0 {
		l.out.Printf("DEBUG %s%s", msg, formatFields(keysAndValues))
	}
}

func (l *stdLogger) Info(msg string, keysAndValues ...interface{}) {
	l.out.Printf("INFO  %s%s", msg, formatFields(keysAndValues))
}

func (l *stdLogger) Error(msg string, keysAndValues ...interface{}) {
	l.out.Printf("ERROR %s%s", msg, formatFields(keysAndValues))
}

func formatFields(keysAndValues []interface{}) string {
	if len(keysAndValues) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	return b.String()
}

// newProgressBar returns a callback rendering an in-place progress bar on
// stdout, finished with a newline on the last line.
func newProgressBar(width int) bootloader.ProgressCallback {
	return func(p bootloader.Progress) {
		filled := int(float64(width) * p.Percentage / 100.0)
		if filled > width {
			filled = width
		}
		bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
		fmt.Printf("\r[%s] %3.0f%% (%d/%d)", bar, p.Percentage, p.CurrentLine, p.TotalLines)
		if p.CurrentLine == p.TotalLines {
			fmt.Println()
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var failed *updateFailed
		if errors.As(err, &failed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

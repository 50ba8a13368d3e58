package updater

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maestrx/pimodules/bootloader"
	"github.com/maestrx/pimodules/hexfile"
	"github.com/maestrx/pimodules/i2cbus"
)

const (
	testImage    = ":03000000010203F7\r\n:00000001FF\r\n"
	oldVersion   = 0x011D
	newVersion   = 0x011E
	badImage     = ":03000000010203F8\r\n:00000001FF\r\n" // broken checksum
	noEOFImage   = ":03000000010203F7\r\n"
	testPCB      = 0x40
	testModel    = 'S'
	testModelStr = "BC Stack"
)

// serialPeer is a cooperative bootloader on the far end of the fake serial
// channel: it acknowledges the probe and every line it is not scripted to
// refuse.
type serialPeer struct {
	inbound    bytes.Buffer
	partial    strings.Builder
	dataLines  int
	refuseLine int
	closed     bool
}

func (p *serialPeer) Read(b []byte) (int, error) {
	if p.inbound.Len() == 0 {
		return 0, nil
	}
	return p.inbound.Read(b)
}

func (p *serialPeer) Write(b []byte) (int, error) {
	for _, c := range string(b) {
		if c != '\r' {
			p.partial.WriteRune(c)
			continue
		}
		line := p.partial.String()
		p.partial.Reset()
		if line != bootloader.ProbeLine {
			p.dataLines++
			if p.refuseLine != 0 && p.dataLines == p.refuseLine {
				continue
			}
		}
		p.inbound.WriteByte(bootloader.AckByte)
	}
	return len(b), nil
}

func (p *serialPeer) Close() error {
	p.closed = true
	return nil
}

// deviceBus is a fake register bus backing a simulated UPS PIco: the
// version register flips to the new firmware value after a factory reset.
type deviceBus struct {
	version    uint16
	modeWrites []byte
	versionErr error
	closed     bool
}

func newDeviceBus() *deviceBus {
	return &deviceBus{version: oldVersion}
}

func (d *deviceBus) ReadByte(dev, reg byte) (byte, error) {
	switch {
	case dev == i2cbus.StatusAddr && reg == i2cbus.RegPCBRevision:
		return testPCB, nil
	case dev == i2cbus.StatusAddr && reg == i2cbus.RegModelCode:
		return testModel, nil
	}
	return 0, errors.New("unknown register")
}

func (d *deviceBus) ReadWord(dev, reg byte) (uint16, error) {
	if dev == i2cbus.StatusAddr && reg == i2cbus.RegFirmwareVersion {
		if d.versionErr != nil {
			return 0, d.versionErr
		}
		return d.version, nil
	}
	return 0, errors.New("unknown register")
}

func (d *deviceBus) WriteByte(dev, reg, value byte) error {
	if dev == i2cbus.ControlAddr && reg == i2cbus.RegModeControl {
		d.modeWrites = append(d.modeWrites, value)
		if value == i2cbus.ModeFactoryReset {
			d.version = newVersion
		}
		return nil
	}
	return errors.New("unknown register")
}

func (d *deviceBus) WriteWord(dev, reg byte, value uint16) error {
	return errors.New("unknown register")
}

func (d *deviceBus) Close() error {
	d.closed = true
	return nil
}

func writeImage(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firmware.hex")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fastUploadOptions() []bootloader.Option {
	return []bootloader.Option{
		bootloader.WithSleepFunc(func(time.Duration) {}),
		bootloader.WithAckPolls(3),
		bootloader.WithLinkRetries(3),
	}
}

func busClient(bus i2cbus.Bus) *i2cbus.Client {
	return i2cbus.NewClient(func() (i2cbus.Bus, error) { return bus, nil },
		i2cbus.WithSleepFunc(func(time.Duration) {}),
	)
}

func newTestUpdater(t *testing.T, cfg Config, bus i2cbus.Bus, peer *serialPeer) *Updater {
	t.Helper()
	cfg.UploadOptions = fastUploadOptions()
	opts := []Option{
		WithSerialOpener(func(string, int) (io.ReadWriteCloser, error) { return peer, nil }),
	}
	if bus != nil {
		opts = append(opts, WithBus(busClient(bus)))
	}
	return New(cfg, opts...)
}

func TestRunEndToEnd(t *testing.T) {
	bus := newDeviceBus()
	peer := &serialPeer{}
	upd := newTestUpdater(t, Config{FirmwareFile: writeImage(t, testImage)}, bus, peer)

	res := upd.Run(context.Background())

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success (stage %q: %v)", res.Outcome, res.Stage, res.Err)
	}
	if !res.HasOldVersion || res.OldVersion != oldVersion {
		t.Errorf("old version = 0x%04X (has=%v), want 0x%04X", res.OldVersion, res.HasOldVersion, oldVersion)
	}
	if !res.HasNewVersion || res.NewVersion != newVersion {
		t.Errorf("new version = 0x%04X (has=%v), want 0x%04X", res.NewVersion, res.HasNewVersion, newVersion)
	}
	if res.Board == nil || res.Board.Model != testModelStr {
		t.Errorf("board = %+v, want model %q", res.Board, testModelStr)
	}
	if res.Digest == "" {
		t.Error("digest should be recorded")
	}
	if res.LinesSent != 2 {
		t.Errorf("lines sent = %d, want 2", res.LinesSent)
	}

	wantWrites := []byte{i2cbus.ModeRemoteBootloader, i2cbus.ModeFactoryReset}
	if !bytes.Equal(bus.modeWrites, wantWrites) {
		t.Errorf("mode writes = %X, want %X", bus.modeWrites, wantWrites)
	}
	if !peer.closed {
		t.Error("serial channel not closed")
	}
	if !bus.closed {
		t.Error("bus handle not closed")
	}
}

func TestRunLocalBootloader(t *testing.T) {
	bus := newDeviceBus()
	peer := &serialPeer{}
	upd := newTestUpdater(t, Config{
		FirmwareFile:    writeImage(t, testImage),
		LocalBootloader: true,
	}, bus, peer)

	res := upd.Run(context.Background())
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success (stage %q: %v)", res.Outcome, res.Stage, res.Err)
	}
	if len(bus.modeWrites) == 0 || bus.modeWrites[0] != i2cbus.ModeLocalBootloader {
		t.Errorf("mode writes = %X, want local bootloader sentinel first", bus.modeWrites)
	}
}

func TestRunVerifyOnly(t *testing.T) {
	opened := false
	upd := New(Config{
		FirmwareFile: writeImage(t, testImage),
		VerifyOnly:   true,
	}, WithSerialOpener(func(string, int) (io.ReadWriteCloser, error) {
		opened = true
		return nil, errors.New("must not be called")
	}))

	res := upd.Run(context.Background())

	if res.Outcome != OutcomeVerified {
		t.Fatalf("outcome = %v, want verified", res.Outcome)
	}
	if opened {
		t.Error("verify-only mode must not touch hardware")
	}
}

func TestRunValidationFailure(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad checksum", badImage},
		{"missing EOF record", noEOFImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upd := newTestUpdater(t, Config{FirmwareFile: writeImage(t, tt.content)}, newDeviceBus(), &serialPeer{})

			res := upd.Run(context.Background())
			if res.Outcome != OutcomeFailed || res.Stage != StageValidate {
				t.Errorf("outcome = %v stage = %q, want failed at validate", res.Outcome, res.Stage)
			}
			if res.Err == nil {
				t.Error("result should carry the validation error")
			}
		})
	}
}

func TestRunSkipVerifyTrustsContent(t *testing.T) {
	bus := newDeviceBus()
	peer := &serialPeer{}
	upd := newTestUpdater(t, Config{
		FirmwareFile: writeImage(t, badImage),
		SkipVerify:   true,
	}, bus, peer)

	res := upd.Run(context.Background())
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success (stage %q: %v)", res.Outcome, res.Stage, res.Err)
	}
	if res.LinesSent != 2 {
		t.Errorf("lines sent = %d, want 2", res.LinesSent)
	}
}

func TestRunVersionReadFailure(t *testing.T) {
	bus := newDeviceBus()
	bus.versionErr = errors.New("device not answering")
	upd := newTestUpdater(t, Config{FirmwareFile: writeImage(t, testImage)}, bus, &serialPeer{})

	res := upd.Run(context.Background())
	if res.Outcome != OutcomeFailed || res.Stage != StageBusVersion {
		t.Errorf("outcome = %v stage = %q, want failed at bus-version", res.Outcome, res.Stage)
	}
}

func TestRunConnectFailure(t *testing.T) {
	upd := New(Config{FirmwareFile: writeImage(t, testImage)},
		WithSerialOpener(func(device string, baud int) (io.ReadWriteCloser, error) {
			return nil, &bootloader.OpenError{Port: device, Err: errors.New("no such device")}
		}),
	)

	res := upd.Run(context.Background())
	if res.Outcome != OutcomeFailed || res.Stage != StageConnect {
		t.Errorf("outcome = %v stage = %q, want failed at connect", res.Outcome, res.Stage)
	}
	var oerr *bootloader.OpenError
	if !errors.As(res.Err, &oerr) {
		t.Errorf("err = %v, want OpenError", res.Err)
	}
}

func TestRunUploadFailure(t *testing.T) {
	bus := newDeviceBus()
	peer := &serialPeer{refuseLine: 2}
	upd := newTestUpdater(t, Config{FirmwareFile: writeImage(t, testImage)}, bus, peer)

	res := upd.Run(context.Background())

	if res.Outcome != OutcomeFailed || res.Stage != StageUpload {
		t.Fatalf("outcome = %v stage = %q, want failed at upload", res.Outcome, res.Stage)
	}
	var lerr *bootloader.LineError
	if !errors.As(res.Err, &lerr) || lerr.Line != 2 {
		t.Errorf("err = %v, want LineError at line 2", res.Err)
	}
	if !peer.closed {
		t.Error("serial channel must be closed on failure too")
	}
	// No factory reset after a failed upload: the device is left for
	// manual recovery.
	for _, w := range bus.modeWrites {
		if w == i2cbus.ModeFactoryReset {
			t.Error("factory reset must not run after a failed upload")
		}
	}
}

func TestRunWithoutBus(t *testing.T) {
	peer := &serialPeer{}
	upd := newTestUpdater(t, Config{FirmwareFile: writeImage(t, testImage)}, nil, peer)

	res := upd.Run(context.Background())

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success (stage %q: %v)", res.Outcome, res.Stage, res.Err)
	}
	if res.HasOldVersion || res.HasNewVersion {
		t.Error("version reads must be skipped without a bus")
	}
	if res.Board != nil {
		t.Error("board info must be absent without a bus")
	}
}

func TestRunSkipFlags(t *testing.T) {
	t.Run("skip mode switch", func(t *testing.T) {
		bus := newDeviceBus()
		upd := newTestUpdater(t, Config{
			FirmwareFile:   writeImage(t, testImage),
			SkipModeSwitch: true,
		}, bus, &serialPeer{})

		res := upd.Run(context.Background())
		if res.Outcome != OutcomeSuccess {
			t.Fatalf("outcome = %v, want success (stage %q: %v)", res.Outcome, res.Stage, res.Err)
		}
		for _, w := range bus.modeWrites {
			if w == i2cbus.ModeLocalBootloader || w == i2cbus.ModeRemoteBootloader {
				t.Error("mode switch must be skipped")
			}
		}
	})

	t.Run("skip reset", func(t *testing.T) {
		bus := newDeviceBus()
		upd := newTestUpdater(t, Config{
			FirmwareFile: writeImage(t, testImage),
			SkipReset:    true,
		}, bus, &serialPeer{})

		res := upd.Run(context.Background())
		if res.Outcome != OutcomeSuccess {
			t.Fatalf("outcome = %v, want success (stage %q: %v)", res.Outcome, res.Stage, res.Err)
		}
		// Without the reset the simulated device never advances its
		// version register.
		if res.NewVersion != oldVersion {
			t.Errorf("new version = 0x%04X, want 0x%04X", res.NewVersion, oldVersion)
		}
	})

	t.Run("skip version read", func(t *testing.T) {
		bus := newDeviceBus()
		bus.versionErr = errors.New("must not be read")
		upd := newTestUpdater(t, Config{
			FirmwareFile:    writeImage(t, testImage),
			SkipVersionRead: true,
		}, bus, &serialPeer{})

		res := upd.Run(context.Background())
		if res.Outcome != OutcomeSuccess {
			t.Fatalf("outcome = %v, want success (stage %q: %v)", res.Outcome, res.Stage, res.Err)
		}
		if res.HasOldVersion || res.HasNewVersion {
			t.Error("version reads must be skipped")
		}
	})

	t.Run("skip digest", func(t *testing.T) {
		upd := newTestUpdater(t, Config{
			FirmwareFile: writeImage(t, testImage),
			SkipDigest:   true,
		}, newDeviceBus(), &serialPeer{})

		res := upd.Run(context.Background())
		if res.Outcome != OutcomeSuccess {
			t.Fatalf("outcome = %v, want success (stage %q: %v)", res.Outcome, res.Stage, res.Err)
		}
		if res.Digest != "" {
			t.Errorf("digest = %q, want empty when skipped", res.Digest)
		}
	})
}

func TestRunIsIndependentPerInvocation(t *testing.T) {
	path := writeImage(t, testImage)

	for i := 0; i < 2; i++ {
		bus := newDeviceBus()
		peer := &serialPeer{}
		upd := newTestUpdater(t, Config{FirmwareFile: path}, bus, peer)
		res := upd.Run(context.Background())
		if res.Outcome != OutcomeSuccess {
			t.Fatalf("run %d: outcome = %v (stage %q: %v)", i, res.Outcome, res.Stage, res.Err)
		}
	}
}

func TestResultSummary(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{
			name: "success with version",
			res:  Result{Outcome: OutcomeSuccess, NewVersion: 0x011E, HasNewVersion: true},
			want: "update completed, firmware 0x011E",
		},
		{
			name: "verified",
			res:  Result{Outcome: OutcomeVerified},
			want: "firmware file verified",
		},
		{
			name: "failure names the stage",
			res:  Result{Outcome: OutcomeFailed, Stage: StageUpload, Err: errors.New("line 2 not acknowledged by bootloader")},
			want: `update failed at stage "upload": line 2 not acknowledged by bootloader`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Keep the hexfile dependency honest: the image constant used across these
// tests must itself be a valid image.
func TestTestImageIsValid(t *testing.T) {
	if _, err := hexfile.ParseReader(strings.NewReader(testImage)); err != nil {
		t.Fatalf("test image invalid: %v", err)
	}
}

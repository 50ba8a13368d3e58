package i2cbus

import "context"

// Board holds the identification registers of the attached UPS PIco board.
type Board struct {
	// PCBRevision is the raw board revision register value
	PCBRevision byte

	// ModelCode is the raw model identification register value
	ModelCode byte

	// Model is the named board variant for ModelCode
	Model string
}

// BoardInfo reads the board revision and model identification registers.
// An unrecognized model code is reported by name, never as an error.
func (c *Client) BoardInfo(ctx context.Context) (*Board, error) {
	rev, err := c.Execute(ctx, OpReadByte, StatusAddr, RegPCBRevision, nil)
	if err != nil {
		return nil, err
	}
	code, err := c.Execute(ctx, OpReadByte, StatusAddr, RegModelCode, nil)
	if err != nil {
		return nil, err
	}
	return &Board{
		PCBRevision: byte(rev),
		ModelCode:   byte(code),
		Model:       ModelName(byte(code)),
	}, nil
}

// FirmwareVersion reads the 16-bit firmware version register. The device
// only answers in running mode, not while in its bootloader.
func (c *Client) FirmwareVersion(ctx context.Context) (uint16, error) {
	return c.Execute(ctx, OpReadWord, StatusAddr, RegFirmwareVersion, nil)
}

// EnterBootloader commands the device into bootloader mode. When local is
// true the on-board bootloader is selected, otherwise the remote one that
// accepts firmware over the serial line.
func (c *Client) EnterBootloader(ctx context.Context, local bool) error {
	sentinel := uint16(ModeRemoteBootloader)
	if local {
		sentinel = ModeLocalBootloader
	}
	_, err := c.Execute(ctx, OpWriteByte, ControlAddr, RegModeControl, &sentinel)
	return err
}

// FactoryReset commands a factory reset, returning the device to running
// mode after a firmware upload.
func (c *Client) FactoryReset(ctx context.Context) error {
	sentinel := uint16(ModeFactoryReset)
	_, err := c.Execute(ctx, OpWriteByte, ControlAddr, RegModeControl, &sentinel)
	return err
}

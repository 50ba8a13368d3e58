package updater

import (
	"fmt"

	"github.com/maestrx/pimodules/i2cbus"
)

// Outcome is the tri-state result of a run.
type Outcome int

const (
	// OutcomeFailed means a non-skipped stage failed; Result.Stage and
	// Result.Err identify it
	OutcomeFailed Outcome = iota

	// OutcomeSuccess means every non-skipped stage succeeded
	OutcomeSuccess

	// OutcomeVerified means verify-only mode validated the file and
	// stopped before touching hardware
	OutcomeVerified
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeSuccess:
		return "success"
	case OutcomeVerified:
		return "verified"
	}
	return fmt.Sprintf("unknown outcome %d", int(o))
}

// Stage identifies the step of the update sequence responsible for a failure.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageBusVersion Stage = "bus-version"
	StageBusMode    Stage = "bus-mode"
	StageConnect    Stage = "connect"
	StageUpload     Stage = "upload"
	StageBusReset   Stage = "bus-reset"
)

// Result is the structured outcome of one update run, returned to the
// presentation layer. The core never prints and never defines process exit
// codes; mapping the outcome to them is the caller's concern.
type Result struct {
	// Outcome is the tri-state run result
	Outcome Outcome

	// Stage identifies the failing step, empty on success
	Stage Stage

	// Err is the failure of that stage, nil on success
	Err error

	// Digest is the advisory MD5 of the firmware file, empty if skipped
	// or not computable
	Digest string

	// Board is the identification read from the bus, nil if unavailable
	Board *i2cbus.Board

	// OldVersion and NewVersion are the firmware version register values
	// read before and after the update; the Has fields tell whether the
	// reads happened
	OldVersion    uint16
	NewVersion    uint16
	HasOldVersion bool
	HasNewVersion bool

	// LinesSent is the count of record lines written to the bootloader
	LinesSent int
}

func (r *Result) fail(stage Stage, err error) {
	r.Outcome = OutcomeFailed
	r.Stage = stage
	r.Err = err
}

// Summary renders a one-line description of the result for diagnostics.
func (r *Result) Summary() string {
	switch r.Outcome {
	case OutcomeSuccess:
		if r.HasNewVersion {
			return fmt.Sprintf("update completed, firmware 0x%04X", r.NewVersion)
		}
		return "update completed"
	case OutcomeVerified:
		return "firmware file verified"
	}
	return fmt.Sprintf("update failed at stage %q: %v", r.Stage, r.Err)
}

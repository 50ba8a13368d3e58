package hexfile

import "fmt"

// MalformedRecordError indicates a line that does not match the Intel HEX
// record grammar ":LLAAAATTDD...DDCC".
type MalformedRecordError struct {
	Line int
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: malformed record", e.Line)
}

// LengthMismatchError indicates that a record's decoded payload length does
// not match its declared byte count.
type LengthMismatchError struct {
	Line     int
	Declared int
	Actual   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("line %d: invalid data length: declared %d bytes, got %d",
		e.Line, e.Declared, e.Actual)
}

// ChecksumMismatchError indicates that the 8-bit sum of all decoded bytes on
// a line, including the checksum byte, is not zero.
type ChecksumMismatchError struct {
	Line int
	Sum  byte
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("line %d: invalid checksum: byte sum is 0x%02X, want 0x00", e.Line, e.Sum)
}

// MissingEOFRecordError indicates that the file ended without a type 01
// end-of-file record.
type MissingEOFRecordError struct{}

func (e *MissingEOFRecordError) Error() string {
	return "end of file record not found"
}

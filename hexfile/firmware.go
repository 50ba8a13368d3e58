package hexfile

// Record type codes defined by the Intel HEX format.
const (
	// TypeData is a data record carrying payload bytes
	TypeData = 0x00

	// TypeEOF is the end-of-file record terminating the image
	TypeEOF = 0x01
)

// Record represents a single validated line of an Intel HEX firmware image.
type Record struct {
	// ByteCount is the declared payload length in bytes
	ByteCount int

	// Address is the 16-bit load address
	Address uint16

	// Type is the record type (TypeData, TypeEOF, or a reserved code)
	Type byte

	// Data is the payload bytes; len(Data) == ByteCount
	Data []byte

	// Checksum is the trailing checksum byte
	Checksum byte

	// Line is the 1-based line number in the source file
	Line int

	// Text is the raw record line with trailing whitespace stripped.
	// Kept verbatim so the uploader can retransmit the exact bytes.
	Text string
}

// Image represents a complete validated firmware image.
// It is created once per update run and read-only afterwards.
type Image struct {
	// Records contains every line up to and including the EOF record
	Records []*Record

	// DataRecords is the count of data-bearing (type 00) records
	DataRecords int

	// Path is the source file path, empty when parsed from a reader
	Path string
}

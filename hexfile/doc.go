// Package hexfile provides parsing and validation for Intel HEX firmware images.
//
// # Intel HEX Record Format
//
// An image is a sequence of ASCII lines, each encoding one record:
//
//	:LLAAAATTDD...DDCC
//	  LL   = byte count (2 hex chars)
//	  AAAA = 16-bit load address (4 hex chars)
//	  TT   = record type (2 hex chars; 00 = data, 01 = end of file)
//	  DD   = payload bytes (2 hex chars each)
//	  CC   = checksum (2 hex chars)
//
// The checksum is chosen so that the 8-bit sum of every byte on the line,
// checksum included, is zero. A valid image ends with a type 01 record;
// parsing stops there and any trailing content is ignored.
//
// # Usage
//
// Parse an image from disk:
//
//	img, err := hexfile.Parse("ups_pico4_main.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Data records: %d\n", img.DataRecords)
//
// Parse from an io.Reader:
//
//	img, err := hexfile.ParseReader(strings.NewReader(content))
//
// # Error Handling
//
// Parse returns typed errors carrying the 1-based line number of the first
// invalid record:
//   - MalformedRecordError: line does not match the record grammar
//   - LengthMismatchError: payload length differs from the declared count
//   - ChecksumMismatchError: line bytes do not sum to zero
//   - MissingEOFRecordError: the file ended without a type 01 record
//
// Validation is a pure function of the file bytes: parsing the same
// unmodified file twice yields identical results.
package hexfile

package hexfile

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Constants for Intel HEX record parsing.
const (
	// MinimumRecordLength is the minimum record length in hex characters
	// after the ':' prefix: count(2) + address(4) + type(2) + checksum(2)
	MinimumRecordLength = 10

	// RecordHeaderSize is the size of record metadata in bytes
	// (byte count + address + type)
	RecordHeaderSize = 4

	// RecordChecksumSize is the size of the record checksum field
	RecordChecksumSize = 1

	// DefaultRecordCapacity is the default initial capacity for the records slice
	DefaultRecordCapacity = 256
)

// Parse parses and validates an Intel HEX firmware image from the given file path.
// Returns the complete image or an error describing the first invalid line.
//
// Example:
//
//	img, err := hexfile.Parse("ups_pico4_main.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Records: %d\n", len(img.Records))
func Parse(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, err := ParseReader(f)
	if err != nil {
		return nil, err
	}
	img.Path = path
	return img, nil
}

// ParseReader parses and validates an Intel HEX image from any io.Reader.
// This is useful for testing and reading from non-file sources.
//
// Parsing stops at the first end-of-file (type 01) record; any content after
// it is not read. Validation is purely syntactic: the payload length must
// match the declared byte count and the mod-256 sum of every decoded byte on
// a line must be zero. Firmware semantics are never inspected.
func ParseReader(r io.Reader) (*Image, error) {
	scanner := bufio.NewScanner(r)

	img := &Image{
		Records: make([]*Record, 0, DefaultRecordCapacity),
	}

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), " \t\r\n")

		rec, err := parseRecord(line, lineNum)
		if err != nil {
			return nil, err
		}

		img.Records = append(img.Records, rec)
		if rec.Type == TypeData {
			img.DataRecords++
		}

		if rec.Type == TypeEOF {
			return img, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return nil, &MissingEOFRecordError{}
}

// parseRecord parses and validates a single record line.
//
// Record format:
//
//	:LLAAAATTDD...DDCC
//	  LL = byte count (hex2)
//	  AAAA = 16-bit address (hex4)
//	  TT = record type (hex2)
//	  DD = payload bytes (hex pairs)
//	  CC = checksum (hex2)
func parseRecord(line string, lineNum int) (*Record, error) {
	if len(line) < 1+MinimumRecordLength || line[0] != ':' {
		return nil, &MalformedRecordError{Line: lineNum}
	}

	data, err := hex.DecodeString(line[1:])
	if err != nil {
		return nil, &MalformedRecordError{Line: lineNum}
	}

	byteCount := int(data[0])
	payload := data[RecordHeaderSize : len(data)-RecordChecksumSize]
	if len(payload) != byteCount {
		return nil, &LengthMismatchError{
			Line:     lineNum,
			Declared: byteCount,
			Actual:   len(payload),
		}
	}

	// The trailing checksum byte is chosen so the whole line sums to zero.
	var sum byte
	for _, b := range data {
		sum += b
	}
	if sum != 0 {
		return nil, &ChecksumMismatchError{Line: lineNum, Sum: sum}
	}

	rec := &Record{
		ByteCount: byteCount,
		Address:   uint16(data[1])<<8 | uint16(data[2]),
		Type:      data[3],
		Data:      make([]byte, len(payload)),
		Checksum:  data[len(data)-1],
		Line:      lineNum,
		Text:      line,
	}
	copy(rec.Data, payload)

	return rec, nil
}

// ReadRaw loads an image without validating records, trusting the file
// content as-is. Lines are kept verbatim for transmission; reading stops
// after the line carrying an end-of-file type marker, if one is present.
//
// Used when firmware verification is explicitly skipped by configuration.
func ReadRaw(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	img := &Image{
		Records: make([]*Record, 0, DefaultRecordCapacity),
		Path:    path,
	}

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), " \t\r\n")
		if line == "" {
			continue
		}

		rec := &Record{Line: lineNum, Text: line}
		// Best-effort type extraction from the fixed TT position.
		if len(line) >= 9 && line[0] == ':' {
			if t, err := hex.DecodeString(line[7:9]); err == nil {
				rec.Type = t[0]
			}
			if rec.Type == TypeData {
				img.DataRecords++
			}
		}

		img.Records = append(img.Records, rec)
		if rec.Type == TypeEOF {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return img, nil
}

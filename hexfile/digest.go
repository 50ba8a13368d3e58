package hexfile

import (
	"crypto/md5"
	"fmt"
	"os"

	"github.com/marcinbor85/gohex"
)

// Digest returns the MD5 digest of the raw file bytes, hex-encoded.
// The digest is advisory, used for audit logging only; it plays no role in
// validation. MD5 is kept for continuity with the digests published alongside
// existing UPS PIco firmware releases.
func Digest(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return fmt.Sprintf("%x", md5.Sum(content)), nil
}

// Summary describes the memory layout of an image, derived from its data
// segments. Advisory, for audit logging only.
type Summary struct {
	// Segments is the number of contiguous data segments
	Segments int

	// Bytes is the total payload byte count across all segments
	Bytes int

	// Start is the lowest data address
	Start uint32

	// End is the address one past the highest data byte
	End uint32
}

func (s *Summary) String() string {
	return fmt.Sprintf("%d bytes in %d segment(s), 0x%04X-0x%04X", s.Bytes, s.Segments, s.Start, s.End)
}

// Summarize decodes the image into memory segments and reports its address
// span. Failure to summarize never fails an update; callers log and move on.
func Summarize(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(f); err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	sum := &Summary{}
	for _, seg := range mem.GetDataSegments() {
		sum.Segments++
		sum.Bytes += len(seg.Data)
		if sum.Segments == 1 || seg.Address < sum.Start {
			sum.Start = seg.Address
		}
		if end := seg.Address + uint32(len(seg.Data)); end > sum.End {
			sum.End = end
		}
	}
	return sum, nil
}

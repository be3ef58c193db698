package header

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// Size is the length of the encoded header in bytes.
	Size = 16

	// Tag is the constant stored in the first header field.
	Tag uint32 = 4

	// MaxMetadataSize is the largest metadata document the header can describe.
	// The padded size must still fit in a uint32 after adding the 8-byte prefix.
	MaxMetadataSize = math.MaxUint32 - 8 - 3
)

// ErrInvalid is returned when header bytes are truncated or inconsistent.
var ErrInvalid = errors.New("invalid archive header")

// Header holds the decoded header fields.
type Header struct {
	Tag          uint32
	HeaderSize   uint32
	PaddedSize   uint32
	MetadataSize uint32
}

// Align rounds n up to the next multiple of 4.
func Align(n uint64) uint64 {
	return n + (4-n%4)%4
}

// Padding returns the number of zero bytes that follow a metadata document of length n.
func Padding(n uint64) int {
	return int(Align(n) - n) //nolint:gosec // result is in [0,3]
}

// New builds the header describing a metadata document of metadataSize bytes.
// Callers must ensure metadataSize <= MaxMetadataSize.
func New(metadataSize uint32) Header {
	aligned := uint32(Align(uint64(metadataSize))) //nolint:gosec // bounded by MaxMetadataSize
	return Header{
		Tag:          Tag,
		HeaderSize:   8 + aligned,
		PaddedSize:   4 + aligned,
		MetadataSize: metadataSize,
	}
}

// Encode returns the 16-byte header for a metadata document of metadataSize bytes.
func Encode(metadataSize uint32) [Size]byte {
	return New(metadataSize).Bytes()
}

// Bytes returns the little-endian encoding of h.
func (h Header) Bytes() [Size]byte {
	var b [Size]byte
	binary.LittleEndian.PutUint32(b[0:4], h.Tag)
	binary.LittleEndian.PutUint32(b[4:8], h.HeaderSize)
	binary.LittleEndian.PutUint32(b[8:12], h.PaddedSize)
	binary.LittleEndian.PutUint32(b[12:16], h.MetadataSize)
	return b
}

// Decode parses the first 16 bytes of b.
//
// Decode rejects short input, an unknown tag, and headers whose size fields
// disagree with each other.
func Decode(b []byte) (Header, error) {
	if len(b) < Size {
		return Header{}, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalid, Size, len(b))
	}
	h := Header{
		Tag:          binary.LittleEndian.Uint32(b[0:4]),
		HeaderSize:   binary.LittleEndian.Uint32(b[4:8]),
		PaddedSize:   binary.LittleEndian.Uint32(b[8:12]),
		MetadataSize: binary.LittleEndian.Uint32(b[12:16]),
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Validate checks that the header fields are mutually consistent.
func (h Header) Validate() error {
	if h.Tag != Tag {
		return fmt.Errorf("%w: unexpected tag %d", ErrInvalid, h.Tag)
	}
	if uint64(h.HeaderSize) != uint64(h.PaddedSize)+4 {
		return fmt.Errorf("%w: header size %d does not match padded size %d", ErrInvalid, h.HeaderSize, h.PaddedSize)
	}
	if h.PaddedSize < 4 || uint64(h.PaddedSize)-4 != Align(uint64(h.MetadataSize)) {
		return fmt.Errorf("%w: padded size %d does not match metadata size %d", ErrInvalid, h.PaddedSize, h.MetadataSize)
	}
	return nil
}

// AlignedSize returns the metadata size including padding.
func (h Header) AlignedSize() uint64 {
	return Align(uint64(h.MetadataSize))
}

// DataOffset returns the absolute offset where file data begins.
func (h Header) DataOffset() int64 {
	return 8 + int64(h.HeaderSize)
}

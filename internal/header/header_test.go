package header

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign(t *testing.T) {
	tests := []struct {
		in   uint64
		want uint64
	}{
		{0, 0},
		{1, 4},
		{2, 4},
		{3, 4},
		{4, 4},
		{5, 8},
		{12, 12},
		{13, 16},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Align(tt.in), "Align(%d)", tt.in)
		assert.Equal(t, int(tt.want-tt.in), Padding(tt.in), "Padding(%d)", tt.in)
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	// {"files":{}} is 12 bytes and needs no padding.
	b := Encode(12)
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(b[0:4]))
	assert.Equal(t, uint32(20), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(b[8:12]))
	assert.Equal(t, uint32(12), binary.LittleEndian.Uint32(b[12:16]))

	b = Encode(13)
	assert.Equal(t, uint32(24), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, uint32(20), binary.LittleEndian.Uint32(b[8:12]))
	assert.Equal(t, uint32(13), binary.LittleEndian.Uint32(b[12:16]))
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	for _, size := range []uint32{0, 1, 2, 3, 4, 5, 99, 4096, 1<<20 + 1} {
		b := Encode(size)
		h, err := Decode(b[:])
		require.NoError(t, err, "size %d", size)

		assert.Equal(t, size, h.MetadataSize)
		assert.LessOrEqual(t, uint64(h.MetadataSize), uint64(h.PaddedSize))
		assert.LessOrEqual(t, uint64(h.PaddedSize), uint64(h.MetadataSize)+3+4)
		assert.Equal(t, h.PaddedSize+4, h.HeaderSize)
		assert.Zero(t, h.AlignedSize()%4)
		assert.Equal(t, int64(Size)+int64(h.AlignedSize()), h.DataOffset())
	}
}

func TestDecodeShort(t *testing.T) {
	t.Parallel()

	b := Encode(12)
	for n := range Size {
		_, err := Decode(b[:n])
		require.ErrorIs(t, err, ErrInvalid, "length %d", n)
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	t.Parallel()

	b := Encode(7)
	buf := append(b[:], []byte("{\"files\":{}}")...)
	h, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), h.MetadataSize)
}

func TestDecodeInconsistent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(b []byte)
	}{
		{"bad tag", func(b []byte) { binary.LittleEndian.PutUint32(b[0:4], 5) }},
		{"header size", func(b []byte) { binary.LittleEndian.PutUint32(b[4:8], 100) }},
		{"padded size", func(b []byte) {
			binary.LittleEndian.PutUint32(b[4:8], 36)
			binary.LittleEndian.PutUint32(b[8:12], 32)
		}},
		{"metadata too large", func(b []byte) { binary.LittleEndian.PutUint32(b[12:16], 64) }},
		{"zero padded size", func(b []byte) {
			binary.LittleEndian.PutUint32(b[4:8], 4)
			binary.LittleEndian.PutUint32(b[8:12], 0)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := Encode(12)
			tt.mutate(b[:])
			_, err := Decode(b[:])
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

package header

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/xar/internal/xartype"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		h    Header
	}{
		{name: "sha1", h: New(1234, 5678, xartype.ChecksumSHA1)},
		{name: "md5", h: New(1, 2, xartype.ChecksumMD5)},
		{name: "none", h: New(0, 0, xartype.ChecksumNone)},
		{name: "large lengths", h: New(1<<40, 1<<41, xartype.ChecksumSHA1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := tt.h.Encode()
			require.Len(t, b, Size)
			got, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, tt.h, got)
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	t.Parallel()

	b := New(0x0102, 0x0304, xartype.ChecksumSHA1).Encode()
	want := []byte{
		0x78, 0x61, 0x72, 0x21, // magic
		0x00, 0x1c, // size
		0x00, 0x01, // version
		0, 0, 0, 0, 0, 0, 0x01, 0x02,
		0, 0, 0, 0, 0, 0, 0x03, 0x04,
		0, 0, 0, 1,
	}
	assert.Equal(t, want, b)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	good := New(10, 20, xartype.ChecksumSHA1).Encode()

	badMagic := bytes.Clone(good)
	badMagic[0] = 'X'

	smallSize := bytes.Clone(good)
	smallSize[5] = 10

	badAlg := bytes.Clone(good)
	badAlg[27] = 9

	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{name: "short", in: good[:27], want: xartype.ErrTruncated},
		{name: "empty", in: nil, want: xartype.ErrTruncated},
		{name: "magic", in: badMagic, want: xartype.ErrInvalidMagic},
		{name: "header size", in: smallSize, want: xartype.ErrMalformedHeader},
		{name: "algorithm", in: badAlg, want: xartype.ErrMalformedHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.in)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

type sliceSource []byte

func (s sliceSource) ReadRange(off, length int64) (io.ReadCloser, error) {
	end := min(off+length, int64(len(s)))
	return io.NopCloser(bytes.NewReader(s[off:end])), nil
}

func TestRead(t *testing.T) {
	t.Parallel()

	h := New(7, 9, xartype.ChecksumMD5)
	src := sliceSource(append(h.Encode(), "trailing"...))
	got, err := Read(src)
	require.NoError(t, err)
	assert.Equal(t, h, got)

	off, ok := got.HeapOffset()
	require.True(t, ok)
	assert.Equal(t, uint64(Size+7), off)

	_, err = Read(sliceSource(h.Encode()[:10]))
	require.ErrorIs(t, err, xartype.ErrTruncated)
}

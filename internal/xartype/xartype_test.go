package xartype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChecksumAlgorithm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    ChecksumAlgorithm
		wantErr bool
	}{
		{in: "sha1", want: ChecksumSHA1},
		{in: "SHA1", want: ChecksumSHA1},
		{in: "Md5", want: ChecksumMD5},
		{in: "none", want: ChecksumNone},
		{in: "sha256", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseChecksumAlgorithm(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidChecksumAlgorithm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChecksumAlgorithmSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, ChecksumNone.Size())
	assert.Equal(t, 20, ChecksumSHA1.Size())
	assert.Equal(t, 16, ChecksumMD5.Size())
	assert.Nil(t, ChecksumNone.New())
	assert.Equal(t, 20, ChecksumSHA1.New().Size())
}

func TestParseEncoding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, EncodingNone, ParseEncoding("application/octet-stream"))
	assert.Equal(t, EncodingGzip, ParseEncoding("APPLICATION/X-GZIP"))
	assert.Equal(t, EncodingBzip2, ParseEncoding("application/x-bzip"))
	assert.Equal(t, EncodingUnknown, ParseEncoding("application/x-xz"))

	_, err := EncodingBzip2.MIME()
	require.ErrorIs(t, err, ErrUnsupportedEncoding)
	mime, err := EncodingGzip.MIME()
	require.NoError(t, err)
	assert.Equal(t, MIMEGzip, mime)
}

func TestParseFileType(t *testing.T) {
	t.Parallel()

	ft, err := ParseFileType("Directory")
	require.NoError(t, err)
	assert.Equal(t, TypeDirectory, ft)

	_, err = ParseFileType("symlink")
	require.Error(t, err)
}

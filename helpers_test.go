package xar_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meigma/xar"
	"github.com/meigma/xar/internal/testutil"
)

var fixedTime = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

// buildArchive runs fn against a fresh Writer and returns the encoded archive.
func buildArchive(t *testing.T, fn func(t *testing.T, w *xar.Writer), opts ...xar.WriterOption) []byte {
	t.Helper()
	opts = append([]xar.WriterOption{xar.WithCreationTime(fixedTime)}, opts...)
	w := xar.NewWriter(opts...)
	fn(t, w)
	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))
	return buf.Bytes()
}

func bytesSource(t *testing.T, name, content string, enc xar.Encoding, alg xar.ChecksumAlgorithm) *xar.BytesSource {
	t.Helper()
	src, err := xar.NewBytesSource(name, []byte(content), enc, alg, xar.SourceWithModTime(fixedTime))
	require.NoError(t, err)
	return src
}

// scenarioArchive holds file.txt ("hi", stored) and dir/a.txt ("hello world", gzip).
func scenarioArchive(t *testing.T) []byte {
	t.Helper()
	return buildArchive(t, func(t *testing.T, w *xar.Writer) {
		require.NoError(t, w.AddSource(bytesSource(t, "file.txt", "hi", xar.EncodingNone, xar.ChecksumSHA1), nil))
		dir, err := w.AddDirectory("dir", nil)
		require.NoError(t, err)
		require.NoError(t, w.AddSource(bytesSource(t, "a.txt", "hello world", xar.EncodingGzip, xar.ChecksumSHA1), dir))
	})
}

func openBytes(t *testing.T, data []byte, opts ...xar.Option) (*xar.Archive, *testutil.MemorySource) {
	t.Helper()
	src := testutil.NewMemorySource(data)
	a, err := xar.Open(src, opts...)
	require.NoError(t, err)
	return a, src
}

func entryPaths(entries []*xar.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path())
	}
	return out
}

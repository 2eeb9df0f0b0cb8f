package xar_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/xar"
	"github.com/meigma/xar/internal/testutil"
)

func packDir(t *testing.T, dir string, opts ...xar.PackOption) *xar.Archive {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, xar.Pack(context.Background(), dir, &buf, opts...))
	a, _ := openBytes(t, buf.Bytes(), xar.WithVerifyTOC())
	return a
}

func TestPack_RoundTrip(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"readme.txt":        strings.Repeat("read me ", 50),
		"site/index.HTML":   "<html></html>",
		"site/app.js":       "console.log(1)",
		"bin/tool":          "\x7fELF binary",
		"deep/a/b/c/d.json": `{"k": "v"}`,
	}
	dir := t.TempDir()
	testutil.WriteTree(t, dir, files)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "empty"), 0o755))

	a := packDir(t, dir)

	for p, want := range files {
		e, ok := a.Entry(p)
		require.True(t, ok, p)
		got, err := e.Bytes()
		require.NoError(t, err)
		assert.Equal(t, want, string(got), p)
		alg, sum, ok := e.Checksum()
		require.True(t, ok)
		assert.Equal(t, xar.ChecksumSHA1, alg)
		assert.Len(t, sum, 40)
	}

	encodings := map[string]xar.Encoding{
		"readme.txt":        xar.EncodingGzip,
		"site/index.HTML":   xar.EncodingGzip,
		"site/app.js":       xar.EncodingGzip,
		"bin/tool":          xar.EncodingNone,
		"deep/a/b/c/d.json": xar.EncodingNone,
	}
	for p, want := range encodings {
		e, _ := a.Entry(p)
		assert.Equal(t, want, e.Encoding(), p)
	}

	empty, ok := a.Entry("empty")
	require.True(t, ok)
	assert.True(t, empty.IsDir())
	assert.Empty(t, empty.Children())

	deep, ok := a.Entry("deep/a/b/c")
	require.True(t, ok)
	assert.Equal(t, []string{"deep/a/b/c/d.json"}, entryPaths(deep.Children()))

	dest := t.TempDir()
	require.NoError(t, a.ExtractAll(dest, xar.ExtractWithVerify(true)))
	for p, want := range files {
		assert.Equal(t, want, readFile(t, filepath.Join(dest, filepath.FromSlash(p))))
	}
	info, err := os.Stat(filepath.Join(dest, "empty"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPack_Options(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"a.txt": "plain text",
		"b.dat": "binary data",
	})

	a := packDir(t, dir,
		xar.PackWithChecksum(xar.ChecksumMD5),
		xar.PackWithCompression(xar.CompressExtensions("dat")),
		xar.PackWithWriterOptions(xar.WithCreationTime(fixedTime)),
	)
	assert.Equal(t, xar.ChecksumMD5, a.Header().ChecksumAlgorithm)

	txt, _ := a.Entry("a.txt")
	assert.Equal(t, xar.EncodingNone, txt.Encoding())
	dat, _ := a.Entry("b.dat")
	assert.Equal(t, xar.EncodingGzip, dat.Encoding())

	created, ok := a.CreationTime()
	require.True(t, ok)
	assert.True(t, fixedTime.Equal(created))
}

func TestPack_MaxFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a": "1", "b": "2", "c": "3"})

	err := xar.Pack(context.Background(), dir, &bytes.Buffer{}, xar.PackWithMaxFiles(2))
	require.ErrorIs(t, err, xar.ErrTooManyFiles)

	require.NoError(t, xar.Pack(context.Background(), dir, &bytes.Buffer{}, xar.PackWithMaxFiles(-1)))
}

func TestPack_Cancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a": "1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := xar.Pack(ctx, dir, &bytes.Buffer{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPack_SkipsSymlinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"real.txt": "real"})
	if err := os.Symlink("real.txt", filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	a := packDir(t, dir)
	assert.True(t, a.HasEntry("real.txt"))
	assert.False(t, a.HasEntry("link.txt"))
}

func TestCompressExtensions(t *testing.T) {
	t.Parallel()

	fn := xar.CompressExtensions(xar.DefaultCompressExtensions...)
	tests := []struct {
		path string
		want bool
	}{
		{path: "a.txt", want: true},
		{path: "dir/page.HTM", want: true},
		{path: "feed.stxml", want: true},
		{path: "image.png", want: false},
		{path: "noext", want: false},
		{path: "txt", want: false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fn(tt.path, nil), tt.path)
	}
}

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/xar"
	"github.com/meigma/xar/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// createFixture packs a small tree and returns the archive path.
func createFixture(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{
		"file.txt":  "hi",
		"dir/a.txt": "hello world",
		"dir/b.bin": "\x00\x01\x02",
	})
	archive := filepath.Join(t.TempDir(), "fixture.xar")
	_, err := runCLI(t, "-c", "-f", archive, "--checksum", "md5", src)
	require.NoError(t, err)
	return archive
}

func TestCLI_CreateListExtract(t *testing.T) {
	t.Parallel()

	archive := createFixture(t)

	out, err := runCLI(t, "-t", "-f", archive)
	require.NoError(t, err)
	assert.Equal(t, []string{"dir", "dir/a.txt", "dir/b.bin", "file.txt"}, strings.Fields(out))

	out, err = runCLI(t, "-t", "-v", "-f", archive, "dir")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[1], " dir/a.txt"), lines[1])
	assert.Contains(t, lines[1], " 11 ")

	dest := t.TempDir()
	_, err = runCLI(t, "-x", "--verify", "-f", archive, "-C", dest)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dest, "dir", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))

	single := t.TempDir()
	_, err = runCLI(t, "-x", "-f", archive, "-C", single, "file.txt")
	require.NoError(t, err)
	got, err = os.ReadFile(filepath.Join(single, "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))

	_, err = runCLI(t, "-x", "-f", archive, "-C", single, "nope")
	require.ErrorIs(t, err, xar.ErrNotFound)
}

func TestCLI_ExtractVerboseWorkers(t *testing.T) {
	t.Parallel()

	archive := createFixture(t)

	for range 10 {
		dest := t.TempDir()
		out, err := runCLI(t, "-x", "-v", "--workers", "8", "-f", archive, "-C", dest)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		slices.Sort(lines)
		assert.Equal(t, []string{"dir/a.txt", "dir/b.bin", "file.txt"}, lines)
	}
}

func TestCLI_Dumps(t *testing.T) {
	t.Parallel()

	archive := createFixture(t)

	out, err := runCLI(t, "--dump-header", "-f", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "0x78617221")
	assert.Contains(t, out, "2 (md5)")
	assert.Contains(t, out, "sha256:")

	out, err = runCLI(t, "--dump-toc", "-", "-f", archive)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "<name>a.txt</name>")

	target := filepath.Join(t.TempDir(), "toc.xml")
	_, err = runCLI(t, "--dump-toc", target, "-f", archive)
	require.NoError(t, err)
	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, out, string(written))
}

func TestCLI_HTTPArchive(t *testing.T) {
	t.Parallel()

	archive := createFixture(t)
	srv := httptest.NewServer(http.FileServer(http.Dir(filepath.Dir(archive))))
	t.Cleanup(srv.Close)

	out, err := runCLI(t, "-t", "--verify", "-f", srv.URL+"/"+filepath.Base(archive))
	require.NoError(t, err)
	assert.Contains(t, out, "dir/a.txt")
}

func TestCLI_Usage(t *testing.T) {
	t.Parallel()

	out, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "xar dev\n", out)

	_, err = runCLI(t)
	require.ErrorIs(t, err, errNoMode)

	_, err = runCLI(t, "-t", "-x", "-f", "a.xar")
	require.Error(t, err)

	_, err = runCLI(t, "-t")
	require.Error(t, err)

	_, err = runCLI(t, "-c", "-f", filepath.Join(t.TempDir(), "a.xar"), "--checksum", "sha256", t.TempDir())
	require.Error(t, err)

	_, err = runCLI(t, "-t", "-f", filepath.Join(t.TempDir(), "missing.xar"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

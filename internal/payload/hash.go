package payload

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/meigma/xar/internal/xartype"
)

// Sum hashes everything in r with alg and returns the lower-case hex digest.
// It returns an empty string for ChecksumNone.
func Sum(alg xartype.ChecksumAlgorithm, r io.Reader) (string, error) {
	h := alg.New()
	if h == nil {
		return "", nil
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumBytes is Sum over an in-memory slice.
func SumBytes(alg xartype.ChecksumAlgorithm, b []byte) string {
	h := alg.New()
	if h == nil {
		return ""
	}
	_, _ = h.Write(b) //nolint:errcheck // hash.Hash never returns an error
	return hex.EncodeToString(h.Sum(nil))
}

// Verify hashes r and compares the result with want, ignoring hex case.
func Verify(alg xartype.ChecksumAlgorithm, want string, r io.Reader) error {
	got, err := Sum(alg, r)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, strings.TrimSpace(want)) {
		return fmt.Errorf("%w: %s want %s got %s", xartype.ErrIntegrity, alg, want, got)
	}
	return nil
}

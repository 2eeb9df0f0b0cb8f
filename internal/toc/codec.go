package toc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/meigma/xar/internal/xartype"
)

// parseConfig holds options for Parse.
type parseConfig struct {
	strictTimestamps bool
}

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

// WithStrictTimestamps rejects TOCs containing dates that cannot be parsed.
// By default such dates decode to the current time.
func WithStrictTimestamps() ParseOption {
	return func(c *parseConfig) {
		c.strictTimestamps = true
	}
}

// Parse decodes an uncompressed TOC document.
func Parse(data []byte, opts ...ParseOption) (*TOC, error) {
	var cfg parseConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", xartype.ErrTOCParse, err)
	}
	if cfg.strictTimestamps {
		if bad := firstInvalidTimestamp(&doc.TOC); bad != nil {
			return nil, fmt.Errorf("%w: unparseable date %q", xartype.ErrTOCParse, bad.Raw)
		}
	}
	return &doc.TOC, nil
}

// Marshal encodes t as a complete XML document.
// Payloads declaring an encoding other than none or gzip are rejected.
func Marshal(t *TOC) ([]byte, error) {
	if err := checkEncodings(t.Files); err != nil {
		return nil, err
	}
	body, err := xml.MarshalIndent(document{TOC: *t}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal toc: %w", err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// Compress zlib-compresses an encoded TOC. Level follows compress/flate levels.
func Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("create toc compressor: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("compress toc: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress toc: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a compressed TOC and checks it against the
// uncompressed length recorded in the header.
func Decompress(compressed []byte, uncompressedLen uint64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xartype.ErrTOCParse, err)
	}
	defer zr.Close()

	// One extra byte detects a stream longer than declared.
	lr := &io.LimitedReader{R: zr, N: int64(uncompressedLen) + 1} //nolint:gosec // header lengths are bounded by the source size
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", xartype.ErrTOCParse, err)
	}
	if uint64(len(data)) != uncompressedLen {
		return nil, fmt.Errorf("%w: inflated %d bytes, header declares %d", xartype.ErrTOCParse, len(data), uncompressedLen)
	}
	return data, nil
}

func checkEncodings(files []*File) error {
	stack := append([]*File(nil), files...)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.Data != nil {
			if err := checkEncoding(f.Data); err != nil {
				return fmt.Errorf("file %q: %w", f.Name, err)
			}
		}
		for _, ea := range f.EAs {
			if err := checkEncoding(&ea.Data); err != nil {
				return fmt.Errorf("file %q ea %q: %w", f.Name, ea.Name, err)
			}
		}
		stack = append(stack, f.Children...)
	}
	return nil
}

func checkEncoding(d *Data) error {
	if d.Encoding == nil {
		return nil
	}
	_, err := d.EncodingKind().MIME()
	return err
}

func firstInvalidTimestamp(t *TOC) *Timestamp {
	if t.CreationTime != nil && t.CreationTime.Invalid {
		return t.CreationTime
	}
	stack := append([]*File(nil), t.Files...)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ts := range []*Timestamp{f.ATime, f.MTime, f.CTime} {
			if ts != nil && ts.Invalid {
				return ts
			}
		}
		stack = append(stack, f.Children...)
	}
	return nil
}

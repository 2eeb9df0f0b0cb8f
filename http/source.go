// Package http reads xar archives over HTTP range requests.
//
// A Source fetches the archive header, the TOC and each payload with its own
// ranged GET, so listing or extracting a single entry of a large remote
// archive transfers only the bytes involved.
package http //nolint:revive // intentional naming for domain clarity

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"

	"github.com/meigma/xar/internal/sizing"
	"github.com/meigma/xar/internal/xartype"
)

// Source is a xar.RangeSource backed by an HTTP resource.
//
// The resource size and its cache validators are captured once by NewSource.
// With conditional headers enabled, each range read is pinned to those
// validators; a server answering 412 is retried once unconditionally.
type Source struct {
	url         string
	ctx         context.Context
	client      *nethttp.Client
	headers     nethttp.Header
	logger      *slog.Logger
	conditional bool

	size  int64
	valid validators
}

// validators identify the representation a Source was opened against.
type validators struct {
	etag         string
	lastModified string
}

func (v validators) empty() bool {
	return v.etag == "" && v.lastModified == ""
}

// merge fills unset fields from other.
func (v validators) merge(other validators) validators {
	if v.etag == "" {
		v.etag = other.etag
	}
	if v.lastModified == "" {
		v.lastModified = other.lastModified
	}
	return v
}

// apply sets If-Match and If-Unmodified-Since unless the caller set them.
func (v validators) apply(h nethttp.Header) {
	if v.etag != "" && h.Get("If-Match") == "" {
		h.Set("If-Match", v.etag)
	}
	if v.lastModified != "" && h.Get("If-Unmodified-Since") == "" {
		h.Set("If-Unmodified-Since", v.lastModified)
	}
}

func validatorsOf(resp *nethttp.Response) validators {
	return validators{
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithContext sets the context attached to every request.
func WithContext(ctx context.Context) Option {
	return func(s *Source) {
		s.ctx = ctx
	}
}

// WithHeaders adds headers, such as authorization, to every request.
func WithHeaders(headers nethttp.Header) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		for key, values := range headers {
			for _, value := range values {
				s.headers.Add(key, value)
			}
		}
	}
}

// WithHeader sets a single header on every request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithConditionalHeaders pins range reads to the ETag or Last-Modified seen
// when the Source was created, so a replaced archive is not read piecewise.
func WithConditionalHeaders() Option {
	return func(s *Source) {
		s.conditional = true
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// NewSource probes url and returns a Source for it.
//
// The probe issues a HEAD and a one-byte range GET. A server that ignores
// the Range header, or whose two answers disagree on the size, is rejected
// with an error wrapping xar.ErrRemote.
func NewSource(url string, opts ...Option) (*Source, error) {
	s := &Source{url: url}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	if err := s.probe(); err != nil {
		return nil, err
	}
	s.logger.Debug("probed http source", "url", url, "size", s.size, "etag", s.valid.etag)
	return s, nil
}

// Size returns the total size of the remote content.
func (s *Source) Size() int64 {
	return s.size
}

// URL returns the resource location.
func (s *Source) URL() string {
	return s.url
}

// ReadRange returns a reader for exactly the bytes [off, off+length).
//
// Ranges past the content size fail with xar.ErrShortRead, as does a body
// that ends early. Any status other than 206, or a Content-Range that does
// not match the request, fails with xar.ErrRemote. The caller must close the
// reader to release the connection.
func (s *Source) ReadRange(off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("read range %d+%d: negative offset or length", off, length)
	}
	if length == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	if length > s.size-off {
		return nil, fmt.Errorf("%w: range %d+%d beyond content size %d", xartype.ErrShortRead, off, length, s.size)
	}
	want := contentRange{start: off, end: off + length - 1, total: s.size}

	pinned := s.conditional && !s.valid.empty()
	resp, err := s.get(want.start, want.end, pinned)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == nethttp.StatusPreconditionFailed && pinned {
		discard(resp)
		s.logger.Debug("range precondition failed, retrying unconditionally", "url", s.url, "range", want.header())
		if resp, err = s.get(want.start, want.end, false); err != nil {
			return nil, err
		}
	}

	if err := checkPartial(resp, want); err != nil {
		discard(resp)
		return nil, err
	}
	return &rangeBody{body: resp.Body, r: sizing.ExactReader(resp.Body, length)}, nil
}

// probe records size and validators from a HEAD and a one-byte range GET.
func (s *Source) probe() error {
	headSize := int64(-1)
	var valid validators
	if resp, err := s.do(nethttp.MethodHead, "", false); err == nil {
		if resp.StatusCode == nethttp.StatusOK {
			headSize = resp.ContentLength
			valid = validatorsOf(resp)
		}
		discard(resp)
	}

	resp, err := s.get(0, 0, false)
	if err != nil {
		return err
	}
	defer discard(resp)
	if err := checkStatus(resp); err != nil {
		return err
	}
	cr, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return err
	}
	if headSize > 0 && headSize != cr.total {
		return fmt.Errorf("%w: content size mismatch: head=%d range=%d", xartype.ErrRemote, headSize, cr.total)
	}

	s.size = cr.total
	s.valid = valid.merge(validatorsOf(resp))
	return nil
}

// get issues a GET for the inclusive byte range [start, end].
func (s *Source) get(start, end int64, pinned bool) (*nethttp.Response, error) {
	return s.do(nethttp.MethodGet, fmt.Sprintf("bytes=%d-%d", start, end), pinned)
}

func (s *Source) do(method, byteRange string, pinned bool) (*nethttp.Response, error) {
	req, err := nethttp.NewRequestWithContext(s.ctx, method, s.url, nethttp.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", xartype.ErrRemote, err)
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	// Transparent gzip would make byte offsets meaningless.
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	if byteRange != "" {
		req.Header.Set("Range", byteRange)
	}
	if pinned {
		s.valid.apply(req.Header)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", xartype.ErrRemote, err)
	}
	return resp, nil
}

func checkStatus(resp *nethttp.Response) error {
	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		return nil
	case nethttp.StatusOK:
		return fmt.Errorf("%w: server ignored the range request", xartype.ErrRemote)
	default:
		return fmt.Errorf("%w: range request failed: %s", xartype.ErrRemote, resp.Status)
	}
}

// checkPartial accepts a 206 whose Content-Range, when present, covers
// exactly the requested bytes.
func checkPartial(resp *nethttp.Response, want contentRange) error {
	if err := checkStatus(resp); err != nil {
		return err
	}
	value := resp.Header.Get("Content-Range")
	if value == "" {
		return nil
	}
	got, err := parseContentRange(value)
	if err != nil {
		return err
	}
	if got.start != want.start || got.end != want.end {
		return fmt.Errorf("%w: server returned %q for %s", xartype.ErrRemote, value, want.header())
	}
	return nil
}

// discard drains and closes a response body so the connection can be reused.
func discard(resp *nethttp.Response) {
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
	_ = resp.Body.Close()
}

// rangeBody reads exactly the requested length and drains on Close.
type rangeBody struct {
	body io.ReadCloser
	r    io.Reader
}

func (b *rangeBody) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

func (b *rangeBody) Close() error {
	_, _ = io.Copy(io.Discard, b.body) //nolint:errcheck // best-effort drain for connection reuse
	return b.body.Close()
}

// contentRange is a parsed "bytes start-end/total" value.
type contentRange struct {
	start, end, total int64
}

func (c contentRange) header() string {
	return fmt.Sprintf("bytes=%d-%d", c.start, c.end)
}

func parseContentRange(value string) (contentRange, error) {
	bad := fmt.Errorf("%w: invalid Content-Range %q", xartype.ErrRemote, value)

	spec, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return contentRange{}, bad
	}
	span, total, ok := strings.Cut(spec, "/")
	if !ok || total == "*" {
		return contentRange{}, bad
	}
	first, last, ok := strings.Cut(span, "-")
	if !ok {
		return contentRange{}, bad
	}

	var cr contentRange
	var err1, err2, err3 error
	cr.start, err1 = strconv.ParseInt(first, 10, 64)
	cr.end, err2 = strconv.ParseInt(last, 10, 64)
	cr.total, err3 = strconv.ParseInt(total, 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return contentRange{}, bad
	}
	if cr.start < 0 || cr.end < cr.start || cr.total <= cr.end {
		return contentRange{}, bad
	}
	return cr, nil
}

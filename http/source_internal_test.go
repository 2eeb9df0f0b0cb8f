package http //nolint:revive // intentional naming for domain clarity

import (
	"errors"
	nethttp "net/http"
	"testing"

	"github.com/meigma/xar/internal/xartype"
)

func TestParseContentRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    contentRange
		wantErr bool
	}{
		{in: "bytes 0-0/1234", want: contentRange{start: 0, end: 0, total: 1234}},
		{in: " bytes 5-9/10 ", want: contentRange{start: 5, end: 9, total: 10}},
		{in: "bytes 0-0/*", wantErr: true},
		{in: "items 0-0/10", wantErr: true},
		{in: "bytes 0-0", wantErr: true},
		{in: "bytes 0-0/-4", wantErr: true},
		{in: "bytes 7-3/10", wantErr: true},
		{in: "bytes 0-10/10", wantErr: true},
		{in: "bytes x-1/10", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parseContentRange(tt.in)
			if tt.wantErr {
				if !errors.Is(err, xartype.ErrRemote) {
					t.Fatalf("parseContentRange(%q) error = %v, want ErrRemote", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseContentRange(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("parseContentRange(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidators(t *testing.T) {
	t.Parallel()

	v := validators{etag: `"a"`}.merge(validators{etag: `"b"`, lastModified: "Mon, 02 Jan 2006 15:04:05 GMT"})
	if v.etag != `"a"` || v.lastModified == "" {
		t.Fatalf("merge() = %+v", v)
	}

	h := nethttp.Header{}
	h.Set("If-Match", `"caller"`)
	v.apply(h)
	if got := h.Get("If-Match"); got != `"caller"` {
		t.Fatalf("If-Match = %q, want caller value kept", got)
	}
	if h.Get("If-Unmodified-Since") == "" {
		t.Fatal("If-Unmodified-Since not set")
	}
	if !(validators{}).empty() {
		t.Fatal("zero validators should be empty")
	}
}

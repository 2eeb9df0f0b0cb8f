package toc

import (
	"strings"
	"time"
)

// Layout is the timestamp format written to the TOC, always in UTC.
const Layout = "2006-01-02T15:04:05Z"

var readLayouts = []string{
	Layout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// now is replaced in tests.
var now = time.Now

// Timestamp is a TOC date. Unparseable text decodes to the current time
// with Invalid set, so callers can choose to reject it.
type Timestamp struct {
	Time    time.Time
	Raw     string
	Invalid bool
}

// NewTimestamp wraps t for writing.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t.UTC()}
}

// MarshalText implements encoding.TextMarshaler.
func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.Time.UTC().Format(Layout)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Timestamp) UnmarshalText(b []byte) error {
	raw := strings.TrimSpace(string(b))
	t.Raw = raw
	for _, layout := range readLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			t.Invalid = false
			return nil
		}
	}
	t.Time = now().UTC()
	t.Invalid = true
	return nil
}

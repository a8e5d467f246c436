// package shared defines shared helpers
package shared

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// TimestampLayout renders timestamps with an explicit numeric offset and up to microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.999999-07:00"

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// MarshalJSON encodes v without HTML escaping, optionally indented with two spaces.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseTimestamp parses an ISO-8601 timestamp carrying an explicit offset ("Z" or ±hh:mm).
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// FormatTimestamp renders t in [TimestampLayout], keeping its offset.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

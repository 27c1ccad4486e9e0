package hls

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UnixTime is a time value that travels as unix seconds.
type UnixTime struct {
	time.Time
}

// NewUnixTime truncates t to whole seconds.
func NewUnixTime(t time.Time) UnixTime {
	return UnixTime{Time: t.Truncate(time.Second)}
}

func (u UnixTime) MarshalJSON() ([]byte, error) {
	if u.IsZero() {
		return []byte("null"), nil
	}

	return []byte(strconv.FormatInt(u.Unix(), 10)), nil
}

func (u *UnixTime) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" || raw == `""` {
		u.Time = time.Time{}

		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string

		err := json.Unmarshal(data, &s)
		if err != nil {
			return fmt.Errorf("decoding unix time: %w", err)
		}

		raw = strings.TrimSpace(s)
	}

	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("decoding unix time %q: %w", raw, err)
	}

	u.Time = time.Unix(secs, 0)

	return nil
}

// MarshalYAML renders the time in RFC 3339 for CLI output.
func (u UnixTime) MarshalYAML() (interface{}, error) {
	if u.IsZero() {
		return nil, nil
	}

	return u.Format(time.RFC3339), nil
}

package ollama

import (
	"fmt"
	"strconv"
	"time"
)

// Duration is the keep-alive policy for a loaded model.
//
// Zero means unload immediately after the request, any negative value means
// keep loaded indefinitely, and a positive value is rounded down to whole
// seconds on the wire. A nil *Duration omits the field and leaves the server
// default in effect.
type Duration struct {
	time.Duration
}

// KeepAlive keeps the model loaded for d after the request completes.
func KeepAlive(d time.Duration) *Duration {
	return &Duration{Duration: d}
}

// KeepAliveNone unloads the model immediately.
func KeepAliveNone() *Duration {
	return &Duration{Duration: 0}
}

// KeepAliveForever keeps the model loaded indefinitely.
func KeepAliveForever() *Duration {
	return &Duration{Duration: -1}
}

// MarshalJSON normalizes before encoding: all negative values serialize as
// the -1 sentinel, so KeepAlive(-5*time.Second) and KeepAliveForever are
// indistinguishable on the wire, as are KeepAlive(0) and KeepAliveNone.
func (d Duration) MarshalJSON() ([]byte, error) {
	if d.Duration < 0 {
		return []byte("-1"), nil
	}
	return strconv.AppendInt(nil, int64(d.Duration/time.Second), 10), nil
}

// UnmarshalJSON accepts either a number of seconds (negative meaning
// forever) or a Go duration string such as "5m".
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		v, err := time.ParseDuration(s[1 : len(s)-1])
		if err != nil {
			return fmt.Errorf("ollama: parse keep_alive %s: %w", s, err)
		}
		d.Duration = normalize(v)
		return nil
	}

	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("ollama: parse keep_alive %s: %w", s, err)
	}
	d.Duration = normalize(time.Duration(secs * float64(time.Second)))
	return nil
}

func normalize(v time.Duration) time.Duration {
	if v < 0 {
		return -1
	}
	return v
}

package schema

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// PID identifies a process started by the execution backend. The backend
// owns the format; the raw JSON token is kept so numeric and string ids
// round-trip unchanged.
type PID struct {
	raw string
}

// ParsePID builds a PID from user-supplied text. Integers become JSON
// numbers, anything else a JSON string. Blank input yields the zero PID.
func ParsePID(value string) PID {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return PID{}
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return PID{raw: trimmed}
	}
	quoted, _ := json.Marshal(trimmed)
	return PID{raw: string(quoted)}
}

// IsZero reports whether p identifies no process.
func (p PID) IsZero() bool {
	return p.raw == ""
}

// String returns the id without JSON quoting.
func (p PID) String() string {
	if p.raw == "" {
		return ""
	}
	if p.raw[0] == '"' {
		var s string
		if err := json.Unmarshal([]byte(p.raw), &s); err == nil {
			return s
		}
	}
	return p.raw
}

// MarshalJSON emits the token as received, or null for the zero PID.
func (p PID) MarshalJSON() ([]byte, error) {
	if p.raw == "" {
		return []byte("null"), nil
	}
	return []byte(p.raw), nil
}

// UnmarshalJSON accepts any scalar token. null leaves the PID zero.
func (p *PID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		p.raw = ""
		return nil
	}
	switch trimmed[0] {
	case '{', '[':
		return ErrInvalidPID
	}
	if !json.Valid(trimmed) {
		return ErrInvalidPID
	}
	p.raw = string(trimmed)
	return nil
}

// MarshalText implements encoding.TextMarshaler for config and flag use.
func (p PID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParsePID rules.
func (p *PID) UnmarshalText(text []byte) error {
	*p = ParsePID(string(text))
	return nil
}

// Generation counts Start and Reset transitions of a session client.
type Generation uint64

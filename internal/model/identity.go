package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// UnixTime is an optional point in time expressed in unix seconds. The zero
// value is absent.
type UnixTime struct {
	seconds int64
	set     bool
}

func At(seconds int64) UnixTime {
	return UnixTime{seconds: seconds, set: true}
}

func (u UnixTime) Unix() (int64, bool) {
	return u.seconds, u.set
}

func (u UnixTime) IsSet() bool {
	return u.set
}

func (u UnixTime) MarshalJSON() ([]byte, error) {
	if !u.set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(u.seconds, 10)), nil
}

// UnmarshalJSON accepts a number or a numeric string. Any other value leaves
// the time absent instead of failing the enclosing record.
func (u *UnixTime) UnmarshalJSON(data []byte) error {
	*u = UnixTime{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	raw := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != f {
		return nil
	}

	*u = At(int64(f))
	return nil
}

// Identity is the authenticated session record for the current user.
type Identity struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	IDToken      string         `json:"id_token,omitempty"`
	TokenType    string         `json:"token_type,omitempty"`
	Scope        string         `json:"scope,omitempty"`
	ExpiresAt    UnixTime       `json:"expires_at"`
	Profile      map[string]any `json:"profile,omitempty"`
}

// Valid reports whether the identity is a usable authenticated session.
func (i *Identity) Valid() bool {
	return i != nil && strings.TrimSpace(i.AccessToken) != ""
}

// ExpiresIn returns the time left until expiry. ok is false when the identity
// carries no expiry.
func (i *Identity) ExpiresIn(now time.Time) (remaining time.Duration, ok bool) {
	if i == nil {
		return 0, false
	}
	seconds, set := i.ExpiresAt.Unix()
	if !set {
		return 0, false
	}
	return time.Unix(seconds, 0).Sub(now), true
}

func (i *Identity) Subject() string {
	return i.claimString("sub")
}

func (i *Identity) Email() string {
	return i.claimString("email")
}

func (i *Identity) Name() string {
	return i.claimString("name")
}

func (i *Identity) claimString(name string) string {
	if i == nil || i.Profile == nil {
		return ""
	}
	s, _ := i.Profile[name].(string)
	return s
}

// Clone returns a deep copy so callers can derive a new identity without
// touching the original.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	out := *i
	out.Profile = cloneClaims(i.Profile)
	return &out
}

func cloneClaims(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return cloneClaims(typed)
	case []any:
		out := make([]any, len(typed))
		for idx, item := range typed {
			out[idx] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return v
	}
}

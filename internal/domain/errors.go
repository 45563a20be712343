package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUpstream       = errors.New("upstream error")
	ErrInvalidTokenID = errors.New("invalid token id")
)

// ValidTokenID reports whether s looks like a real outcome token ID: the
// upstream uses long numeric strings, while placeholder IDs seen in listing
// payloads are short or contain underscores.
func ValidTokenID(s string) bool {
	if len(s) < 50 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			return false
		}
	}
	return true
}

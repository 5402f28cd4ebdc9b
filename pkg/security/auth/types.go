package auth

import "errors"

// KeyInfo describes one accepted API key.
type KeyInfo struct {
	Key     string
	Name    string
	Enabled bool
}

// KeyStore validates API keys.
type KeyStore interface {
	Validate(key string) (*KeyInfo, error)
	List() []*KeyInfo
}

var (
	// ErrMissingKey is returned when no configured source carries a key.
	ErrMissingKey = errors.New("no API key found")

	// ErrInvalidKey is returned for keys that are not configured.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrKeyDisabled is returned for configured but disabled keys.
	ErrKeyDisabled = errors.New("API key disabled")
)

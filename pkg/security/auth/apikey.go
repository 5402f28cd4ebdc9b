package auth

import (
	"crypto/subtle"
	"sort"
	"sync"

	"mercator-hq/warden/pkg/config"
)

// APIKeyValidator validates API keys against a configured set of keys.
type APIKeyValidator struct {
	mu   sync.RWMutex
	keys map[string]*KeyInfo
}

// NewAPIKeyValidator creates a validator holding keys.
func NewAPIKeyValidator(keys []*KeyInfo) *APIKeyValidator {
	keyMap := make(map[string]*KeyInfo, len(keys))
	for _, key := range keys {
		keyMap[key.Key] = key
	}
	return &APIKeyValidator{keys: keyMap}
}

// FromConfig builds a validator from the auth section.
func FromConfig(cfg config.AuthConfig) *APIKeyValidator {
	keys := make([]*KeyInfo, 0, len(cfg.Keys))
	for _, k := range cfg.Keys {
		keys = append(keys, &KeyInfo{Key: k.Key, Name: k.Name, Enabled: k.IsEnabled()})
	}
	return NewAPIKeyValidator(keys)
}

// Validate checks key and returns its info.
func (v *APIKeyValidator) Validate(key string) (*KeyInfo, error) {
	if key == "" {
		return nil, ErrMissingKey
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	info, ok := v.keys[key]
	if !ok || subtle.ConstantTimeCompare([]byte(info.Key), []byte(key)) != 1 {
		return nil, ErrInvalidKey
	}
	if !info.Enabled {
		return nil, ErrKeyDisabled
	}
	return info, nil
}

// List returns all configured keys ordered by name.
func (v *APIKeyValidator) List() []*KeyInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	keys := make([]*KeyInfo, 0, len(v.keys))
	for _, key := range v.keys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return keys
}

// Add adds or replaces a key.
func (v *APIKeyValidator) Add(info *KeyInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys[info.Key] = info
}

// Remove removes a key.
func (v *APIKeyValidator) Remove(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.keys, key)
}

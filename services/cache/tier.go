package cache

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"postergrid/services/localstore"
)

// Tier is one independently-keyed lookup table over the shared store.
// Each tier records an explicit schema version; when the stored version
// does not match the expected one the tier's entries are discarded at
// construction instead of being renamed key by key.
type Tier struct {
	name          string
	store         *localstore.Store
	caseSensitive bool
}

// Option configures a Tier.
type Option func(*Tier)

// CaseInsensitiveKeys lower-cases every key so lookups for the same title
// hit regardless of how the user typed it.
func CaseInsensitiveKeys() Option {
	return func(t *Tier) { t.caseSensitive = false }
}

// NewTier opens the named tier at the given schema version, discarding
// stale entries when the version changed.
func NewTier(store *localstore.Store, name string, schemaVersion int, opts ...Option) *Tier {
	t := &Tier{name: name, store: store, caseSensitive: true}
	for _, opt := range opts {
		opt(t)
	}

	versionKey := t.schemaKey()
	stored, ok := store.Get(versionKey)
	if ok && stored == strconv.Itoa(schemaVersion) {
		return t
	}
	if ok {
		log.Printf("[cache] tier %q schema changed (%s -> %d), discarding entries", name, stored, schemaVersion)
		if err := store.DeletePrefix(t.prefix()); err != nil {
			log.Printf("[cache] tier %q discard failed: %v", name, err)
		}
	}
	if err := store.Set(versionKey, strconv.Itoa(schemaVersion)); err != nil {
		log.Printf("[cache] tier %q schema write failed: %v", name, err)
	}
	return t
}

func (t *Tier) prefix() string {
	return t.name + ":"
}

func (t *Tier) schemaKey() string {
	return "schema:" + t.name
}

func (t *Tier) entryKey(key string) string {
	if !t.caseSensitive {
		key = strings.ToLower(key)
	}
	return t.prefix() + key
}

// Get unmarshals the cached value for key into v. The bool reports a hit;
// the error covers undecodable entries, which callers either surface (the
// interactive poster path) or swallow.
func (t *Tier) Get(key string, v any) (bool, error) {
	raw, ok := t.store.Get(t.entryKey(key))
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode cache entry %s/%s: %w", t.name, key, err)
	}
	return true, nil
}

// Set stores v under key. Write failures are returned for the caller to
// log; caching is always optional and never gates correctness.
func (t *Tier) Set(key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s/%s: %w", t.name, key, err)
	}
	return t.store.Set(t.entryKey(key), string(payload))
}

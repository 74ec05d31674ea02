// Package kvstore provides a small JSON key-value store used to persist EPG
// snapshots between restarts. Values are opaque JSON blobs addressed by
// string keys; the guide layout uses two keys per source, one for metadata
// and one for the programme list.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("key not found")

// Key prefixes for the EPG snapshot layout.
const (
	epgMetaKeyPrefix     = "epg:meta:"
	epgProgramsKeyPrefix = "epg:programs:"
)

// EpgMetaKey returns the metadata key for a source.
func EpgMetaKey(sourceID string) string {
	return epgMetaKeyPrefix + sourceID
}

// EpgProgramsKey returns the programme-list key for a source.
func EpgProgramsKey(sourceID string) string {
	return epgProgramsKeyPrefix + sourceID
}

// Store is a JSON key-value store.
//
// List values are stored as a single JSON array under the key. Callers that
// need per-record fault tolerance read the list into []json.RawMessage and
// decode record by record.
type Store interface {
	// GetJSON reads the value at key into dest. Returns ErrNotFound when
	// the key does not exist.
	GetJSON(ctx context.Context, key string, dest any) error

	// SetJSON writes value at key, replacing any existing value.
	SetJSON(ctx context.Context, key string, value any) error

	// GetJSONList reads the JSON array at key into dest (a pointer to a
	// slice). Returns ErrNotFound when the key does not exist.
	GetJSONList(ctx context.Context, key string, dest any) error

	// SetJSONList writes values (a slice) as a JSON array at key.
	SetJSONList(ctx context.Context, key string, values any) error

	// Remove deletes the value at key. Removing a missing key is not an
	// error.
	Remove(ctx context.Context, key string) error
}

// marshalValue serializes a value for storage.
func marshalValue(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshaling value: %w", err)
	}
	return data, nil
}

// unmarshalValue deserializes a stored value into dest.
func unmarshalValue(data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshaling value: %w", err)
	}
	return nil
}

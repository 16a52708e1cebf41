package shortener

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sundayezeilo/edgelink/internal/query"
)

// Link is a persisted key to url mapping. ID and CreatedAt are assigned by the engine.
type Link struct {
	ID        query.Thing
	Key       string
	URL       string
	CreatedAt time.Time
}

var errURLMissing = errors.New("url is missing or not a string")

var (
	// ErrReservedKey reports a key that names a fixed route and could never be resolved.
	ErrReservedKey = errors.New("key is reserved")
	// ErrKeyNotSegment reports a key that cannot be carried in a single path segment.
	ErrKeyNotSegment = errors.New("key must be a single path segment")
)

// reservedKeys shadow GET /{key}.
var reservedKeys = []string{"links", ".", ".."}

// validateKey reports whether key can be resolved by GET /{key}.
func validateKey(key string) error {
	switch {
	case key == "":
		return errors.New("key cannot be empty")
	case strings.Contains(key, "/"):
		return ErrKeyNotSegment
	case slices.Contains(reservedKeys, key):
		return fmt.Errorf("%w: %q", ErrReservedKey, key)
	}
	return nil
}

// decodeLink extracts a Link from a decoded record. Only url is required; the other
// fields are filled when present with the expected type.
func decodeLink(obj query.Object) (Link, error) {
	url, ok := obj.Text("url")
	if !ok {
		return Link{}, fmt.Errorf("%w (got %s)", errURLMissing, query.KindOf(obj["url"]))
	}

	link := Link{URL: url}
	link.ID, _ = obj.Thing("id")
	link.Key, _ = obj.Text("key")
	link.CreatedAt, _ = obj.Datetime("created_at")
	return link, nil
}

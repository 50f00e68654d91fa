// Package respcache stores raw TopLogger responses keyed by request
// signature. The executor writes every response it receives here;
// cache-enabled sends read it back, force-refresh sends overwrite it.
package respcache

import (
	"context"
	"errors"
	"net/url"

	"github.com/PuerkitoBio/purell"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("toplogger/respcache")

var ErrNotFound = errors.New("respcache: entry not found")

// Entry is one cached response. ExpiresAt is a unix timestamp, zero
// means the entry never expires.
type Entry struct {
	StatusCode int
	Body       []byte
	CreatedAt  int64
	ExpiresAt  int64
}

// Store is the persistence boundary of the executor. Implementations
// must be safe for concurrent use; keys are request signatures so
// writes never race on the same logical request.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, entry Entry) error
}

// Signature derives the cache key for a request: the method plus the
// normalized url with its query sorted, so equivalent requests built
// in different param order share one entry.
func Signature(method, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	normalized := purell.NormalizeURL(
		u,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeNonGreedy|
			purell.FlagRemoveDirectoryIndex|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	)
	return method + " " + normalized, nil
}

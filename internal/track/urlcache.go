package track

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Signed URLs from the backend expire after an hour; caching slightly
// under that avoids handing the player a URL about to lapse.
const (
	DefaultURLTTL      = 55 * time.Minute
	urlCacheSweep      = 10 * time.Minute
	urlResolverTimeout = 10 * time.Second
)

// URLResolver resolves chunk storage paths to playable URLs, caching
// each by path for the URL's real lifetime so a chunk is resolved once
// per reading session.
type URLResolver struct {
	store *Store
	cache *gocache.Cache
}

// NewURLResolver builds a resolver over the store with the default TTL.
func NewURLResolver(store *Store) *URLResolver {
	return &URLResolver{
		store: store,
		cache: gocache.New(DefaultURLTTL, urlCacheSweep),
	}
}

// Resolve returns the playable URL for a storage path.
func (r *URLResolver) Resolve(path string) (string, error) {
	if cached, ok := r.cache.Get(path); ok {
		return cached.(string), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), urlResolverTimeout)
	defer cancel()
	resolved, err := r.store.SignedURL(ctx, path)
	if err != nil {
		return "", err
	}
	r.cache.SetDefault(path, resolved)
	return resolved, nil
}

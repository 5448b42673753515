package client

import (
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// NewCachingHTTPClient creates an HTTP client that honors Cache-Control on
// GetModel responses. An empty cacheDir keeps the cache in memory.
func NewCachingHTTPClient(cacheDir string, timeout time.Duration) *http.Client {
	var cache httpcache.Cache = httpcache.NewMemoryCache()
	if cacheDir != "" {
		cache = diskcache.New(cacheDir)
	}

	return &http.Client{
		Transport: httpcache.NewTransport(cache),
		Timeout:   timeout,
	}
}

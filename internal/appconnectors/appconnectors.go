// Package appconnectors implements the per-(endpointId, serviceClass)
// client+cache factory with memoization described in spec.md §2.6, §4.3.
package appconnectors

import (
	"fmt"
	"sync"

	"github.com/pyplyn/pyplyn/internal/cache"
	"github.com/pyplyn/pyplyn/internal/connector"
	"github.com/pyplyn/pyplyn/internal/remote"
)

// Sample is anything an Extract processor's cache stores; it must be
// Keyable to satisfy cache.Cache[T].
type Sample = cache.Keyable

type key struct {
	endpointID   string
	serviceClass string
}

type pair struct {
	client *remote.Client
	cache  any
}

// AppConnectors memoizes a (RemoteClient, Cache) pair per (endpointId,
// serviceClass) tuple for the lifetime of the process. The same tuple
// always returns the same pair; constructing a client under a concurrent
// first-access race never rebuilds it twice.
type AppConnectors struct {
	registry *connector.Registry
	auth     remote.Authenticator

	mu    sync.Mutex
	byKey map[key]pair
}

// New constructs an AppConnectors backed by registry for connector lookups
// and auth for every client's authentication strategy.
func New(registry *connector.Registry, auth remote.Authenticator) *AppConnectors {
	return &AppConnectors{
		registry: registry,
		auth:     auth,
		byKey:    make(map[key]pair),
	}
}

// ClientAndCacheFor returns the memoized (RemoteClient, Cache) pair for
// (endpointID, serviceClass), constructing it on first request from the
// Connector registry entry for endpointID. A missing registry entry is a
// ConfigError per spec.md §4.3. The cache is only built on first
// construction of this tuple; subsequent calls with the same tuple return
// the cache built by the first caller, and a call whose T differs from the
// first caller's returns an error.
func ClientAndCacheFor[T cache.Keyable](a *AppConnectors, endpointID, serviceClass string) (*remote.Client, *cache.Cache[T], error) {
	k := key{endpointID: endpointID, serviceClass: serviceClass}

	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.byKey[k]; ok {
		c, ok := p.cache.(*cache.Cache[T])
		if !ok {
			return nil, nil, fmt.Errorf("appconnectors: %s/%s already memoized with a different sample type", endpointID, serviceClass)
		}
		return p.client, c, nil
	}

	conn, err := a.registry.Get(endpointID)
	if err != nil {
		return nil, nil, err
	}

	client, err := remote.New(conn, a.auth)
	if err != nil {
		return nil, nil, fmt.Errorf("appconnectors: build client for %s: %w", endpointID, err)
	}

	c := cache.New[T]()
	a.byKey[k] = pair{client: client, cache: c}
	return client, c, nil
}

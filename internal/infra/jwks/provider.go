package jwks

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/astro-web3/coffee-drinks/internal/infra/cache"
	"github.com/astro-web3/coffee-drinks/pkg/logger"
	"golang.org/x/sync/singleflight"
)

const (
	refreshKey                = "jwks"
	defaultMinRefreshInterval = 30 * time.Second
)

// Provider resolves a signing key by its key identifier.
type Provider interface {
	Key(ctx context.Context, kid string) (crypto.PublicKey, error)
}

// Options tunes a Provider.
type Options struct {
	// TTL is how long a fetched key set is reused. Zero fetches on every call.
	TTL time.Duration

	// MinRefreshInterval bounds how often an unknown kid may force a refetch
	// of a still-fresh key set.
	// Default: 30s
	MinRefreshInterval time.Duration

	// Shared is an optional cache shared between replicas, keyed by SharedKey.
	Shared    cache.KeySetCache
	SharedKey string

	// Now is the clock, for tests.
	Now func() time.Time
}

type provider struct {
	source Source
	opts   Options

	mu        sync.RWMutex
	current   *KeySet
	fetchedAt time.Time
	sf        singleflight.Group
}

// NewProvider returns a Provider reading from source. The in-process copy is
// replaced wholesale on every refresh, so concurrent refreshes are safe in
// any order.
func NewProvider(source Source, opts Options) Provider {
	if opts.MinRefreshInterval <= 0 {
		opts.MinRefreshInterval = defaultMinRefreshInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &provider{
		source: source,
		opts:   opts,
	}
}

func (p *provider) Key(ctx context.Context, kid string) (crypto.PublicKey, error) {
	set, age, fresh := p.cached()
	bypassShared := false
	if fresh {
		if key, ok := set.Key(kid); ok {
			return key, nil
		}
		// rotated keys show up as unknown kids; refetch, but not too often
		if age < p.opts.MinRefreshInterval {
			return nil, ErrKeyNotFound
		}
		bypassShared = true
	}

	set, err := p.refresh(ctx, bypassShared)
	if err != nil {
		return nil, err
	}

	key, ok := set.Key(kid)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func (p *provider) cached() (*KeySet, time.Duration, bool) {
	if p.opts.TTL <= 0 {
		return nil, 0, false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.current == nil {
		return nil, 0, false
	}
	age := p.opts.Now().Sub(p.fetchedAt)
	return p.current, age, age < p.opts.TTL
}

func (p *provider) refresh(ctx context.Context, bypassShared bool) (*KeySet, error) {
	key := refreshKey
	if bypassShared {
		key += ":source"
	}

	// detached so one caller's cancellation does not fail the others sharing
	// this flight; the HTTP client's timeout still bounds it
	ch := p.sf.DoChan(key, func() (any, error) {
		return p.load(context.WithoutCancel(ctx), bypassShared)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		set, _ := res.Val.(*KeySet)
		return set, nil
	}
}

func (p *provider) load(ctx context.Context, bypassShared bool) (*KeySet, error) {
	if !bypassShared {
		if set, remaining := p.loadShared(ctx); set != nil {
			// age the local copy as the shared entry has aged
			p.storeAt(set, p.opts.Now().Add(remaining-p.opts.TTL))
			return set, nil
		}
	}

	doc, err := p.source.Document(ctx)
	if err != nil {
		return nil, err
	}

	set, err := ParseKeySet(doc)
	if err != nil {
		logger.WarnContext(ctx, "jwks document rejected", logger.Err(err))
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if p.opts.Shared != nil && p.opts.TTL > 0 {
		if setErr := p.opts.Shared.Set(ctx, p.opts.SharedKey, doc, p.opts.TTL); setErr != nil {
			logger.WarnContext(ctx, "failed to store jwks in shared cache", logger.Err(setErr))
		}
	}

	p.store(set)
	logger.InfoContext(ctx, "jwks refreshed", slog.Int("keys", set.Len()))
	return set, nil
}

// loadShared returns the shared key set and its remaining lifetime, capped at
// TTL. It returns nil on a miss, an expiring entry, or any cache problem; the
// caller falls back to the source.
func (p *provider) loadShared(ctx context.Context) (*KeySet, time.Duration) {
	if p.opts.Shared == nil || p.opts.TTL <= 0 {
		return nil, 0
	}

	doc, remaining, err := p.opts.Shared.Get(ctx, p.opts.SharedKey)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.WarnContext(ctx, "failed to read jwks from shared cache", logger.Err(err))
		}
		return nil, 0
	}
	if remaining <= 0 {
		return nil, 0
	}

	set, err := ParseKeySet(doc)
	if err != nil {
		logger.WarnContext(ctx, "ignoring unreadable jwks in shared cache", logger.Err(err))
		return nil, 0
	}

	return set, min(remaining, p.opts.TTL)
}

func (p *provider) store(set *KeySet) {
	p.storeAt(set, p.opts.Now())
}

func (p *provider) storeAt(set *KeySet, fetchedAt time.Time) {
	if p.opts.TTL <= 0 {
		return
	}
	p.mu.Lock()
	p.current = set
	p.fetchedAt = fetchedAt
	p.mu.Unlock()
}

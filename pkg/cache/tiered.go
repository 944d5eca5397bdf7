package cache

import (
	"context"
	"errors"
	"time"
)

// Tiered reads from a fast cache first and fills it from a slower one.
// Writes go to both.
type Tiered struct {
	fast Cache
	slow Cache

	// PromoteTTL is the lifetime of promoted entries when the slow tier
	// cannot report how long an entry has left.
	PromoteTTL time.Duration
}

// NewTiered layers fast in front of slow.
func NewTiered(fast, slow Cache) *Tiered {
	return &Tiered{fast: fast, slow: slow, PromoteTTL: TTLAsset}
}

// Get retrieves a value, promoting slow-tier hits into the fast tier. A
// promoted entry expires no later than its slow-tier original.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, hit, err := t.fast.Get(ctx, key); err == nil && hit {
		return data, true, nil
	}

	var (
		data []byte
		ttl  = t.PromoteTTL
		hit  bool
		err  error
	)
	if tg, ok := t.slow.(TTLGetter); ok {
		data, ttl, hit, err = tg.GetWithTTL(ctx, key)
	} else {
		data, hit, err = t.slow.Get(ctx, key)
	}
	if err != nil || !hit {
		return nil, false, err
	}
	_ = t.fast.Set(ctx, key, data, ttl)
	return data, true, nil
}

// Set stores a value in both tiers.
func (t *Tiered) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return errors.Join(t.fast.Set(ctx, key, data, ttl), t.slow.Set(ctx, key, data, ttl))
}

// Delete removes a value from both tiers.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	return errors.Join(t.fast.Delete(ctx, key), t.slow.Delete(ctx, key))
}

// Close closes both tiers.
func (t *Tiered) Close() error {
	return errors.Join(t.fast.Close(), t.slow.Close())
}

var _ Cache = (*Tiered)(nil)

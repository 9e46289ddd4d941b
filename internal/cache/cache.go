package cache

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"
)

type Entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// Lookup returns the cached value for key, fetching it through fn on a
// miss. Concurrent misses for the same key are coalesced through sfg.
// A stale hit is served immediately and refreshed in the background.
func Lookup[T any](
	m *xsync.Map[string, Entry[T]],
	sfg *singleflight.Group,
	key string,
	ttl time.Duration,
	fn func() (T, error),
) (T, error) {
	entry, ok := m.Load(key)
	if ok {
		if ttl > 0 && time.Since(entry.fetchedAt) > ttl {
			go func() {
				sfg.Do(key, func() (any, error) {
					result, err := fn()
					if err == nil {
						m.Store(key, Entry[T]{value: result, fetchedAt: time.Now()})
					}
					return nil, nil
				})
			}()
		}
		return entry.value, nil
	}

	v, err, _ := sfg.Do(key, func() (any, error) {
		if e, ok := m.Load(key); ok {
			return e, nil
		}
		res, err := fn()
		if err != nil {
			return nil, err
		}
		newEntry := Entry[T]{value: res, fetchedAt: time.Now()}
		m.Store(key, newEntry)
		return newEntry, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(Entry[T]).value, nil
}

// Invalidate drops key from the cache.
func Invalidate[T any](m *xsync.Map[string, Entry[T]], key string) {
	m.Delete(key)
}

package tiered

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader resolves the value for a key on a cache miss. A nil (value, nil)
// return represents a confirmed absence and is cached via the null sentinel.
type Loader func(ctx context.Context) (any, error)

// Cache is the public contract of a single named cache (§6).
type Cache interface {
	Name() string
	Get(ctx context.Context, key string) (Wrapper, error)
	GetWithLoader(ctx context.Context, key string, loader Loader) (any, error)
	Put(ctx context.Context, key string, value any) error
	PutIfAbsent(ctx context.Context, key string, value any) (Wrapper, error)
	Evict(ctx context.Context, key string) error
	EvictIfPresent(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
	Invalidate(ctx context.Context) (bool, error)
}

// TieredCache implements Cache: L1 in-process store in front of a shared L2
// Redis hash, coordinated by a distributed lock and a pub/sub invalidation
// channel (§4.6).
type TieredCache struct {
	name        string
	strategy    Strategy
	hashKey     string
	cachePrefix string

	l1       *l1Store
	l2       *l2Adapter
	locks    *lockProvider
	pub      *publisher
	codec    Codec
	logger   *slog.Logger
	sfGroup  singleflight.Group
	lockWait time.Duration
}

func newTieredCache(name string, cfg GlobalConfig, strategy Strategy, l2 *l2Adapter, locks *lockProvider, pub *publisher, codec Codec, logger *slog.Logger) (*TieredCache, error) {
	l1, err := newL1Store(strategy.LocalMaxSize, strategy.LocalTTL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TieredCache{
		name:        name,
		strategy:    strategy,
		hashKey:     hashKeyFor(name),
		cachePrefix: cfg.CachePrefix,
		l1:          l1,
		l2:          l2,
		locks:       locks,
		pub:         pub,
		codec:       codec,
		logger:      logger,
		lockWait:    time.Duration(cfg.RemoteLockWaitTimeMs) * time.Millisecond,
	}, nil
}

func (c *TieredCache) Name() string { return c.name }

// Get implements the simple read path (§4.6.1): L1, then L2 back-filling L1,
// else absent. Never invokes a loader.
func (c *TieredCache) Get(ctx context.Context, key string) (Wrapper, error) {
	if e, ok := c.l1.get(key); ok {
		return e.wrapper(), nil
	}

	raw, found, err := c.l2.get(ctx, c.hashKey, key)
	if err != nil {
		return Wrapper{}, fmt.Errorf("%w: %w", ErrValueRetrieval, err)
	}
	if !found {
		return Absent(), nil
	}

	e, err := c.decodeToken(raw)
	if err != nil {
		return Wrapper{}, fmt.Errorf("%w: %w", ErrValueRetrieval, err)
	}
	c.l1.set(key, e)
	return e.wrapper(), nil
}

// GetWithLoader implements read-through with single-flight at two layers
// (§4.6.2): in-process via singleflight.Group composed with the L1
// keylock-guarded LRU, cross-process via the distributed lock.
func (c *TieredCache) GetWithLoader(ctx context.Context, key string, loader Loader) (any, error) {
	if loader == nil {
		return nil, ErrNilLoader
	}

	if e, ok := c.l1.get(key); ok {
		return e.value, nil
	}

	v, err, _ := c.sfGroup.Do(c.name+":"+key, func() (any, error) {
		e, err := c.l1.getOrCompute(ctx, key, func() (entry, error) {
			raw, found, err := c.l2.get(ctx, c.hashKey, key)
			if err != nil {
				return entry{}, fmt.Errorf("%w: %w", ErrValueRetrieval, err)
			}
			if found {
				return c.decodeToken(raw)
			}
			return c.loadUnderDistributedLock(ctx, key, loader)
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(entry).value, nil
}

// loadUnderDistributedLock implements §4.6.3.
func (c *TieredCache) loadUnderDistributedLock(ctx context.Context, key string, loader Loader) (entry, error) {
	lockKey := c.lockKeyFor(key)

	wl, err := c.locks.acquireWithWait(ctx, lockKey, c.lockWait, c.strategy.RemoteTTL)
	if err != nil {
		return c.onLockAcquireFailed(ctx, key, loader, err)
	}

	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if unlockErr := wl.stop(unlockCtx); unlockErr != nil {
			c.logger.Warn("tiered: lock release failed", "cache", c.name, "key", key, "error", unlockErr)
		}
	}()

	// double-check L2 now that we hold the lock
	raw, found, err := c.l2.get(ctx, c.hashKey, key)
	if err != nil {
		return entry{}, fmt.Errorf("%w: %w", ErrValueRetrieval, err)
	}
	if found {
		return c.decodeToken(raw)
	}

	value, loadErr := c.safeLoad(ctx, loader)
	if loadErr != nil {
		return entry{}, loadErr
	}

	if err := c.writeThroughL2(ctx, key, value); err != nil {
		return entry{}, fmt.Errorf("%w: %w", ErrValueRetrieval, err)
	}
	return entryFromValue(value), nil
}

// onLockAcquireFailed implements the fallbackStrategy branch of §4.6.3.
func (c *TieredCache) onLockAcquireFailed(ctx context.Context, key string, loader Loader, lockErr error) (entry, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return entry{}, fmt.Errorf("%w: %w", ErrValueRetrieval, ctxErr)
	}

	// one last read in case another worker just finished
	if raw, found, err := c.l2.get(ctx, c.hashKey, key); err == nil && found {
		return c.decodeToken(raw)
	}

	switch c.strategy.FallbackStrategy {
	case FallbackRun:
		value, err := c.safeLoad(ctx, loader)
		if err != nil {
			return entry{}, err
		}
		if err := c.writeThroughL2(ctx, key, value); err != nil {
			c.logger.Warn("tiered: fallback write-back to L2 failed", "cache", c.name, "key", key, "error", err)
		}
		return entryFromValue(value), nil
	default:
		return entry{}, fmt.Errorf("%w: %w", ErrLockAcquireTimeout, lockErr)
	}
}

// safeLoad runs loader, converting panics into a wrapped value-retrieval
// error rather than crashing the caller (mirrors the teacher's safeLoadFn).
func (c *TieredCache) safeLoad(ctx context.Context, loader Loader) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrValueRetrieval, r)
		}
	}()
	value, loadErr := loader(ctx)
	if loadErr != nil {
		if errors.Is(loadErr, context.Canceled) || errors.Is(loadErr, context.DeadlineExceeded) {
			return nil, loadErr
		}
		return nil, fmt.Errorf("%w: %w", ErrValueRetrieval, loadErr)
	}
	return value, nil
}

// writeThroughL2 stores value (or the null sentinel) in L2 with the correct TTL.
func (c *TieredCache) writeThroughL2(ctx context.Context, key string, value any) error {
	token, _, ttl, err := c.encodeForWrite(value)
	if err != nil {
		return err
	}
	return c.l2.put(ctx, c.hashKey, key, token, ttl)
}

// Put implements §4.6.4: L2 first, then L1, then publish EVICT for peers.
func (c *TieredCache) Put(ctx context.Context, key string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}
	token, _, ttl, err := c.encodeForWrite(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValueRetrieval, err)
	}
	if err := c.l2.put(ctx, c.hashKey, key, token, ttl); err != nil {
		return fmt.Errorf("%w: %w", ErrValueRetrieval, err)
	}

	c.l1.set(key, entryFromValue(value))
	c.pub.publishEvict(c.name, key)
	return nil
}

// PutIfAbsent implements §4.6.5.
func (c *TieredCache) PutIfAbsent(ctx context.Context, key string, value any) (Wrapper, error) {
	if key == "" {
		return Wrapper{}, ErrEmptyKey
	}
	token, _, ttl, err := c.encodeForWrite(value)
	if err != nil {
		return Wrapper{}, fmt.Errorf("%w: %w", ErrValueRetrieval, err)
	}

	existingRaw, existed, err := c.l2.putIfAbsent(ctx, c.hashKey, key, token, ttl)
	if err != nil {
		return Wrapper{}, fmt.Errorf("%w: %w", ErrValueRetrieval, err)
	}
	if existed {
		e, err := c.decodeToken(existingRaw)
		if err != nil {
			return Wrapper{}, fmt.Errorf("%w: %w", ErrValueRetrieval, err)
		}
		c.l1.set(key, e)
		return e.wrapper(), nil
	}

	c.l1.set(key, entryFromValue(value))
	c.pub.publishEvict(c.name, key)
	return Absent(), nil
}

// Evict implements §4.6.6: L2 first, then L1, then publish EVICT.
func (c *TieredCache) Evict(ctx context.Context, key string) error {
	if err := c.l2.evict(ctx, c.hashKey, key); err != nil {
		return fmt.Errorf("%w: %w", ErrValueRetrieval, err)
	}
	c.l1.delete(key)
	c.pub.publishEvict(c.name, key)
	return nil
}

// EvictIfPresent probes L1/L2 for existence, then evicts (§4.6.7).
func (c *TieredCache) EvictIfPresent(ctx context.Context, key string) (bool, error) {
	if _, ok := c.l1.get(key); ok {
		return true, c.Evict(ctx, key)
	}
	if _, found, err := c.l2.get(ctx, c.hashKey, key); err != nil {
		return false, fmt.Errorf("%w: %w", ErrValueRetrieval, err)
	} else if found {
		return true, c.Evict(ctx, key)
	}
	return false, nil
}

// Clear implements §4.6.7, branching on ClearMode.
func (c *TieredCache) Clear(ctx context.Context) error {
	if c.strategy.ClearMode == ClearFull {
		if err := c.l2.clear(ctx, c.hashKey); err != nil {
			return fmt.Errorf("%w: %w", ErrValueRetrieval, err)
		}
	}
	c.l1.clear()
	c.pub.publishClear(c.name)
	return nil
}

// Invalidate is Clear() reporting success as a bool (§4.6.7).
func (c *TieredCache) Invalidate(ctx context.Context) (bool, error) {
	if err := c.Clear(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// evictLocal and clearLocal are invoked only by the subscriber (§4.6.8):
// local-only, no publication, so they cannot re-trigger propagation.
func (c *TieredCache) evictLocal(key string) { c.l1.delete(key) }
func (c *TieredCache) clearLocal()           { c.l1.clear() }

// lockKeyFor builds the full lock key cachePrefix + "lock:" + cacheName + ":" +
// key (§6 wire format). acquireWithWait passes xdlock.WithKeyPrefix("") so
// xdlock's own default "lock:" prefix doesn't stack on top of this one.
func (c *TieredCache) lockKeyFor(key string) string {
	return c.cachePrefix + "lock:" + c.name + ":" + key
}

// encodeForWrite folds an application value into its wire token and the TTL
// that applies to it: fixed for the null sentinel, randomized for real values.
func (c *TieredCache) encodeForWrite(value any) (token []byte, isNull bool, ttl time.Duration, err error) {
	if value == nil {
		return []byte(nullSentinel), true, c.strategy.RemoteNullTTL, nil
	}
	raw, err := c.codec.Marshal(value)
	if err != nil {
		return nil, false, 0, err
	}
	return raw, false, randomizeTTL(c.strategy.RemoteTTL, c.strategy.RemoteTTLRandom), nil
}

// decodeToken turns raw L2 bytes back into an L1 entry, recognizing the null sentinel.
func (c *TieredCache) decodeToken(raw []byte) (entry, error) {
	if string(raw) == nullSentinel {
		return entry{isNull: true}, nil
	}
	var v any
	if err := c.codec.Unmarshal(raw, &v); err != nil {
		return entry{}, err
	}
	return entry{value: v}, nil
}

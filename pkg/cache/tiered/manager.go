package tiered

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/tiercache/tiercache/pkg/distributed/xdlock"
	"github.com/tiercache/tiercache/pkg/resilience/xretry"
)

// Manager is the entry point of the module (§4.7): it owns the shared L2
// client, the invalidation publisher/subscriber, and the registry of named
// TieredCache instances built from GlobalConfig.
//
// Two registration modes coexist, mirroring §4.7: if GlobalConfig.CacheNames
// is non-empty, the manager is static — every name is pre-created at
// construction time and GetCache on any other name returns ErrCacheNotFound.
// If CacheNames is empty, the manager is dynamic — any name is built lazily
// on first GetCache and cached thereafter.
type Manager struct {
	cfg    GlobalConfig
	codec  Codec
	logger *slog.Logger

	l2    *l2Adapter
	locks *lockProvider
	pub   *publisher
	sub   *subscriber

	mu     sync.RWMutex
	caches map[string]*TieredCache
	closed bool
}

// ManagerOption configures optional Manager dependencies.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	codec   Codec
	logger  *slog.Logger
	retryer *xretry.Retryer
}

// WithCodec overrides the default JSON codec used to marshal cached values.
func WithCodec(codec Codec) ManagerOption {
	return func(o *managerOptions) { o.codec = codec }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(o *managerOptions) { o.logger = logger }
}

// WithRetryer overrides the default retry policy used against L2.
func WithRetryer(retryer *xretry.Retryer) ManagerOption {
	return func(o *managerOptions) { o.retryer = retryer }
}

// NewManager wires a Manager from a shared Redis client, a GlobalConfig, and
// a distributed lock factory (§4.7, §11). It does not start the background
// subscriber; call Start for that.
func NewManager(client redis.UniversalClient, lockFactory xdlock.Factory, cfg GlobalConfig, opts ...ManagerOption) (*Manager, error) {
	o := managerOptions{codec: JSONCodec(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		cfg:    cfg,
		codec:  o.codec,
		logger: o.logger,
		caches: make(map[string]*TieredCache),
	}

	m.l2 = newL2Adapter(client, o.retryer, o.logger)
	m.locks = newLockProvider(lockFactory, o.logger)

	pub, err := newPublisher(client, o.logger)
	if err != nil {
		return nil, fmt.Errorf("tiered: failed to start publisher: %w", err)
	}
	m.pub = pub
	m.sub = newSubscriber(client, m.lookup, o.logger)

	for _, name := range cfg.CacheNames {
		if _, err := m.buildCache(name); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Start begins the invalidation subscriber. ctx governs the subscriber's
// lifetime; cancelling it (or calling Close) stops dispatch.
func (m *Manager) Start(ctx context.Context) {
	m.sub.start(ctx)
}

// Close stops the subscriber, flushes the publisher, and releases the L1
// stores of every registered cache. Safe to call once; a second call is a no-op.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	caches := make([]*TieredCache, 0, len(m.caches))
	for _, c := range m.caches {
		caches = append(caches, c)
	}
	m.mu.Unlock()

	var firstErr error
	if err := m.sub.stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.pub.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	for _, c := range caches {
		c.l1.close()
	}
	return firstErr
}

// GetCache returns the named cache. In dynamic mode (GlobalConfig.CacheNames
// empty) it builds the cache lazily on first call; in static mode it only
// ever resolves names given to GlobalConfig.CacheNames up front and returns
// ErrCacheNotFound for anything else (§4.7).
func (m *Manager) GetCache(name string) (Cache, error) {
	c, err := m.getOrBuildCache(name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetTieredCache exposes the concrete *TieredCache for diagnostics and tests
// that need access beyond the Cache interface.
func (m *Manager) GetTieredCache(name string) (*TieredCache, error) {
	return m.getOrBuildCache(name)
}

// GetCacheNames lists every cache currently registered, predefined or lazily built.
func (m *Manager) GetCacheNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	return names
}

// GetAllTieredCaches returns a snapshot of every registered cache, keyed by name.
func (m *Manager) GetAllTieredCaches() map[string]*TieredCache {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*TieredCache, len(m.caches))
	for name, c := range m.caches {
		out[name] = c
	}
	return out
}

// isStatic reports whether GlobalConfig enumerated cache names up front —
// the deciding factor between the manager's two registration modes (§4.7).
func (m *Manager) isStatic() bool {
	return len(m.cfg.CacheNames) > 0
}

func (m *Manager) getOrBuildCache(name string) (*TieredCache, error) {
	if name == "" {
		return nil, ErrEmptyCacheName
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, ErrManagerClosed
	}
	c, ok := m.caches[name]
	static := m.isStatic()
	m.mu.RUnlock()
	if ok {
		return c, nil
	}
	if static {
		return nil, ErrCacheNotFound
	}

	return m.buildCache(name)
}

func (m *Manager) buildCache(name string) (*TieredCache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.caches[name]; ok {
		return c, nil
	}
	if m.closed {
		return nil, ErrManagerClosed
	}

	strategy := effectiveStrategy(m.cfg, name)
	c, err := newTieredCache(name, m.cfg, strategy, m.l2, m.locks, m.pub, m.codec, m.logger)
	if err != nil {
		return nil, fmt.Errorf("tiered: failed to build cache %q: %w", name, err)
	}
	m.caches[name] = c
	return c, nil
}

// lookup implements cacheLookup for the subscriber: it only resolves caches
// already registered, never builds new ones, so an invalidation message for
// a cache this process has never touched is simply dropped.
func (m *Manager) lookup(name string) (localInvalidator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.caches[name]
	return c, ok
}

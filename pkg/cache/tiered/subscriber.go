package tiered

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/tiercache/tiercache/pkg/lifecycle/xrun"
)

// localInvalidator is implemented by TieredCache; the subscriber only ever
// calls the local-only half of the contract (§4.4, §4.6.8).
type localInvalidator interface {
	evictLocal(key string)
	clearLocal()
}

// cacheLookup resolves a cache by name for message dispatch; satisfied by Manager.
type cacheLookup func(name string) (localInvalidator, bool)

// subscriber consumes the invalidation topic and dispatches local-only
// invalidations, skipping messages this process itself published (§4.4).
type subscriber struct {
	client  redis.UniversalClient
	lookup  cacheLookup
	logger  *slog.Logger
	group   *xrun.Group
	groupCtx context.Context
}

func newSubscriber(client redis.UniversalClient, lookup cacheLookup, logger *slog.Logger) *subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &subscriber{client: client, lookup: lookup, logger: logger}
}

// start subscribes to the invalidation topic and begins dispatch under a
// supervised lifecycle group (§4.4, §12): panics in the receive loop are
// recovered and logged rather than crashing the process.
func (s *subscriber) start(ctx context.Context) {
	s.group, s.groupCtx = xrun.NewGroup(ctx)
	s.group.GoWithName("tiered-subscriber", s.receiveLoop)
}

// stop cancels the receive loop and waits for it to exit.
func (s *subscriber) stop() error {
	if s.group == nil {
		return nil
	}
	s.group.Cancel(nil)
	return s.group.Wait()
}

func (s *subscriber) receiveLoop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tiered: subscriber receive loop panicked", "panic", r)
			err = nil
		}
	}()

	sub := s.client.Subscribe(ctx, invalidationTopic)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			s.handle(m.Payload)
		}
	}
}

func (s *subscriber) handle(payload string) {
	var msg CacheMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		s.logger.Warn("tiered: failed to decode invalidation message", "error", err)
		return
	}
	if msg.isFromCurrentInstance() {
		return
	}

	cache, ok := s.lookup(msg.CacheName)
	if !ok {
		s.logger.Debug("tiered: invalidation message for unknown cache", "cache", msg.CacheName)
		return
	}

	switch msg.Type {
	case MessageEvict:
		cache.evictLocal(msg.Key)
	case MessageClear:
		cache.clearLocal()
	default:
		s.logger.Warn("tiered: unknown invalidation message type", "type", msg.Type)
	}
}

package tiered

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tiercache/tiercache/pkg/util/xpool"
)

const (
	publisherWorkers     = 4
	publisherQueueSize   = 4096
	publishOpTimeout     = 3 * time.Second
)

// publisher 发布失效消息：发布是尽力而为、非阻塞的，真正的网络 I/O 发生在
// 一个有界 worker pool 上，避免一阵密集的 evict 催生无上限的 goroutine（§4.3）。
type publisher struct {
	client redis.UniversalClient
	pool   *xpool.Pool[CacheMessage]
	logger *slog.Logger
}

func newPublisher(client redis.UniversalClient, logger *slog.Logger) (*publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &publisher{client: client, logger: logger}

	pool, err := xpool.New(publisherWorkers, publisherQueueSize, p.dispatch)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// publishEvict 异步发布一条 EVICT 消息；队列已满时丢弃并记录日志。
func (p *publisher) publishEvict(cacheName, key string) {
	p.enqueue(newEvictMessage(cacheName, key))
}

// publishClear 异步发布一条 CLEAR 消息；队列已满时丢弃并记录日志。
func (p *publisher) publishClear(cacheName string) {
	p.enqueue(newClearMessage(cacheName))
}

func (p *publisher) enqueue(msg CacheMessage) {
	if err := p.pool.Submit(msg); err != nil {
		p.logger.Warn("tiered: publish dropped, queue full", "cache", msg.CacheName, "type", msg.Type, "error", err)
	}
}

// dispatch 在 worker goroutine 中真正执行 Redis PUBLISH；失败仅记录日志，
// 不会影响调用方——发布从设计上就是尽力而为。
func (p *publisher) dispatch(msg CacheMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Warn("tiered: failed to encode invalidation message", "cache", msg.CacheName, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishOpTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, invalidationTopic, payload).Err(); err != nil {
		p.logger.Warn("tiered: failed to publish invalidation message", "cache", msg.CacheName, "error", err)
	}
}

// close 排空队列并停止 worker。
func (p *publisher) close() error {
	return p.pool.Close()
}

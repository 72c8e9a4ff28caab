package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/tiercache/tiercache/pkg/distributed/xdlock"
	"github.com/tiercache/tiercache/pkg/lifecycle/xrun"
)

// watchdogFraction 决定看门狗续期间隔相对于锁租约的比例：每 1/3 租约续期一次，
// 给网络抖动留足够的安全边际。
const watchdogFraction = 3

// lockProvider 包装 xdlock.Factory，在持有者存活期间自动续期锁（"看门狗"）。
//
// xdlock 的 Redis 后端只暴露手动 Extend，没有自动续期原语（见
// pkg/distributed/xdlock/doc.go），看门狗在此之上用一个周期性 goroutine 补齐，
// 调用方因此无需自行挑选租约长度来覆盖 loader 的执行时间。
type lockProvider struct {
	factory xdlock.Factory
	logger  *slog.Logger
}

func newLockProvider(factory xdlock.Factory, logger *slog.Logger) *lockProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &lockProvider{factory: factory, logger: logger}
}

// watchedLock 是一次成功获取并处于看门狗续期保护下的锁。
type watchedLock struct {
	handle xdlock.LockHandle
	cancel context.CancelFunc
	done   chan struct{}
}

// acquireWithWait 在 waitTime 窗口内尝试获取锁（对应 §4.6.3 的
// tryLock(lockWaitTimeMs)）：底层使用 xdlock 的阻塞式 Lock 并配合超时
// context，超时即视为竞争失败，调用方据此走 fallbackStrategy 分支。
// 成功时立即启动看门狗 goroutine。
//
// key 已经是完整的 cachePrefix+"lock:"+cacheName+":"+stringKey（见
// TieredCache.lockKeyFor），所以这里显式清空 xdlock 自己默认的 "lock:"
// 前缀，避免两层前缀叠加。
func (p *lockProvider) acquireWithWait(ctx context.Context, key string, waitTime, expiry time.Duration) (*watchedLock, error) {
	waitCtx, cancel := context.WithTimeout(ctx, waitTime)
	defer cancel()

	handle, err := p.factory.Lock(waitCtx, key, xdlock.WithExpiry(expiry), xdlock.WithKeyPrefix(""))
	if err != nil {
		return nil, err
	}
	return p.startWatchdog(handle, expiry), nil
}

// startWatchdog 启动周期性 Extend 的后台 goroutine，直到 stop() 被调用。
func (p *lockProvider) startWatchdog(handle xdlock.LockHandle, expiry time.Duration) *watchedLock {
	watchCtx, cancel := context.WithCancel(context.Background())
	wl := &watchedLock{handle: handle, cancel: cancel, done: make(chan struct{})}

	interval := expiry / watchdogFraction
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		defer close(wl.done)
		err := xrun.Ticker(interval, false, func(ctx context.Context) error {
			return handle.Extend(ctx)
		})(watchCtx)
		if err != nil && watchCtx.Err() == nil {
			p.logger.Warn("tiered: lock watchdog extend failed", "key", handle.Key(), "error", err)
		}
	}()

	return wl
}

// stop 停止看门狗并释放锁。调用方负责传入独立于 loader 执行周期的 ctx。
func (wl *watchedLock) stop(ctx context.Context) error {
	wl.cancel()
	<-wl.done
	return wl.handle.Unlock(ctx)
}

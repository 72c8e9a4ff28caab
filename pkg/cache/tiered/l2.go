package tiered

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tiercache/tiercache/pkg/resilience/xretry"
)

// putIfAbsentScript 原子地在 hash 字段不存在时写入值并设置字段级 TTL，
// 避免 HSETNX 与 HPEXPIRE 之间出现竞态窗口。
// KEYS[1] = hash key；ARGV[1] = field；ARGV[2] = value；ARGV[3] = TTL(ms)。
// 返回 nil 表示写入成功；否则返回已存在的值。
var putIfAbsentScript = redis.NewScript(`
if redis.call("HSETNX", KEYS[1], ARGV[1], ARGV[2]) == 1 then
	redis.call("HPEXPIRE", KEYS[1], ARGV[3], "FIELDS", 1, ARGV[1])
	return false
end
return redis.call("HGET", KEYS[1], ARGV[1])
`)

// l2Adapter 是 L2 层：把每个具名缓存视作一个 Redis hash，字段是字符串化的 key。
type l2Adapter struct {
	client  redis.UniversalClient
	retryer *xretry.Retryer
	logger  *slog.Logger

	unlinkOnce     sync.Once
	supportsUnlink atomic.Bool
}

// newL2Adapter 创建 L2 适配器。retryer 为 nil 时使用默认的有界重试策略。
func newL2Adapter(client redis.UniversalClient, retryer *xretry.Retryer, logger *slog.Logger) *l2Adapter {
	if retryer == nil {
		retryer = xretry.NewRetryer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &l2Adapter{client: client, retryer: retryer, logger: logger}
}

// hashKeyFor names the L2 hash for a cache: one hash per cache-name, with no
// cachePrefix applied (§6 wire format — cachePrefix namespaces lock keys only,
// see TieredCache.lockKeyFor).
func hashKeyFor(cacheName string) string {
	return cacheName
}

// get 读取单个 hash 字段。found=false 表示字段不存在。
func (a *l2Adapter) get(ctx context.Context, hashKey, field string) (raw []byte, found bool, err error) {
	raw, err = xretry.DoWithResult(ctx, a.retryer, func(ctx context.Context) ([]byte, error) {
		v, err := a.client.HGet(ctx, hashKey, field).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return v, err
	})
	if err != nil {
		return nil, false, err
	}
	return raw, raw != nil, nil
}

// put 以字段级 TTL 写入 hash 字段（HSET + HPEXPIRE）。
func (a *l2Adapter) put(ctx context.Context, hashKey, field string, value []byte, ttl time.Duration) error {
	return a.retryer.Do(ctx, func(ctx context.Context) error {
		pipe := a.client.TxPipeline()
		pipe.HSet(ctx, hashKey, field, value)
		pipe.HPExpire(ctx, hashKey, ttl, field)
		_, err := pipe.Exec(ctx)
		return err
	})
}

// putIfAbsentResult 承载 putIfAbsentScript 的分类结果，避免在 Redis 的
// "成功写入用 nil 回复表示" 这一点上与真正的错误混淆。
type putIfAbsentResult struct {
	existing []byte
	existed  bool
}

// putIfAbsent 原子地写入字段（若不存在）并设置 TTL；若字段已存在，返回其当前值。
//
// Lua 脚本在写入成功时返回 false，在 RESP 协议中体现为 nil 回复，go-redis
// 将其映射为 redis.Nil 错误；这里把它翻译回"写入成功"语义，而非当作失败重试。
func (a *l2Adapter) putIfAbsent(ctx context.Context, hashKey, field string, value []byte, ttl time.Duration) (existing []byte, existed bool, err error) {
	res, err := xretry.DoWithResult(ctx, a.retryer, func(ctx context.Context) (putIfAbsentResult, error) {
		v, scriptErr := putIfAbsentScript.Run(ctx, a.client, []string{hashKey}, field, value, ttl.Milliseconds()).Result()
		if errors.Is(scriptErr, redis.Nil) {
			return putIfAbsentResult{}, nil
		}
		if scriptErr != nil {
			return putIfAbsentResult{}, scriptErr
		}
		s, ok := v.(string)
		if !ok {
			return putIfAbsentResult{}, fmt.Errorf("tiered: unexpected putIfAbsent script result type %T", v)
		}
		return putIfAbsentResult{existing: []byte(s), existed: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return res.existing, res.existed, nil
}

// evict 删除单个 hash 字段。
func (a *l2Adapter) evict(ctx context.Context, hashKey, field string) error {
	return a.retryer.Do(ctx, func(ctx context.Context) error {
		return a.client.HDel(ctx, hashKey, field).Err()
	})
}

// clear 删除整个 hash：支持 UNLINK 时优先使用（异步回收），否则退化为 DEL。
func (a *l2Adapter) clear(ctx context.Context, hashKey string) error {
	useUnlink := a.detectUnlinkSupport(ctx)
	return a.retryer.Do(ctx, func(ctx context.Context) error {
		if useUnlink {
			return a.client.Unlink(ctx, hashKey).Err()
		}
		return a.client.Del(ctx, hashKey).Err()
	})
}

// detectUnlinkSupport 进程级一次性检测 Redis 版本是否支持 UNLINK（>= 4.0.0）。
// 检测失败一律视为不支持（更安全的退化方向）。
func (a *l2Adapter) detectUnlinkSupport(ctx context.Context) bool {
	a.unlinkOnce.Do(func() {
		info, err := a.client.Info(ctx, "server").Result()
		if err != nil {
			a.supportsUnlink.Store(false)
			return
		}
		major, ok := parseRedisMajorVersion(info)
		a.supportsUnlink.Store(ok && major >= 4)
	})
	return a.supportsUnlink.Load()
}

// parseRedisMajorVersion 从 "INFO server" 的响应中提取 redis_version 的主版本号。
func parseRedisMajorVersion(info string) (int, bool) {
	const marker = "redis_version:"
	idx := strings.Index(info, marker)
	if idx < 0 {
		return 0, false
	}
	rest := info[idx+len(marker):]
	if end := strings.IndexAny(rest, "\r\n"); end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimSpace(rest)
	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		rest = rest[:dot]
	}
	major, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return major, true
}

// randomizeTTL 实现 §4.5 的抖动公式：max(1, base + U[-base*f, +base*f])。
// base<=0 或 f<=0 时原样返回 base，以与穿透占位（固定 TTL，不抖动）区分开来。
func randomizeTTL(base time.Duration, f float64) time.Duration {
	if base <= 0 || f <= 0 {
		return base
	}
	spread := float64(base) * f
	jitter := (randomUnitFloat()*2 - 1) * spread
	out := time.Duration(float64(base) + jitter)
	if out < time.Millisecond {
		return time.Millisecond
	}
	return out
}

// randomUnitFloat 返回 [0.0, 1.0) 范围内的随机浮点数，使用 crypto/rand
// 避免 TTL 抖动的可预测性依赖全局 math/rand 状态。
func randomUnitFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	const mantissaScale = 1.0 / (1 << 53)
	return float64(binary.LittleEndian.Uint64(buf[:])>>11) * mantissaScale
}

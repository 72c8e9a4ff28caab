package tiered

import (
	"context"
	"time"

	"github.com/tiercache/tiercache/pkg/util/xkeylock"
	"github.com/tiercache/tiercache/pkg/util/xlru"
)

// l1Store 是单个具名缓存的进程内第一层存储：有界、按写入时间过期的 LRU，
// 叠加一把按 key 分片的互斥锁，合成标准库 map 原生不具备的原子
// "compute-if-absent"（见 §9 设计说明、§11 domain stack 对 xkeylock 的说明）。
type l1Store struct {
	cache *xlru.Cache[string, entry]
	locks xkeylock.KeyLock
}

func newL1Store(maxSize int, ttl time.Duration) (*l1Store, error) {
	if maxSize <= 0 {
		maxSize = 1
	}
	c, err := xlru.New[string, entry](xlru.Config{Size: maxSize, TTL: ttl})
	if err != nil {
		return nil, err
	}
	return &l1Store{
		cache: c,
		locks: xkeylock.New(),
	}, nil
}

// get 探测 L1，不触发回源。
func (s *l1Store) get(key string) (entry, bool) {
	return s.cache.Get(key)
}

// set 写入 L1，覆盖已有值。
func (s *l1Store) set(key string, e entry) {
	s.cache.Set(key, e)
}

// delete 从 L1 移除单个条目。
func (s *l1Store) delete(key string) {
	s.cache.Delete(key)
}

// clear 清空 L1 全部条目。
func (s *l1Store) clear() {
	s.cache.Clear()
}

func (s *l1Store) close() {
	s.cache.Close()
	_ = s.locks.Close()
}

// getOrCompute 实现 L1 层面的原子 compute-if-absent：命中直接返回；未命中时
// 通过按 key 分片的互斥锁串行化同一 key 的并发调用者，只有第一个进入临界区的
// 调用者执行 compute，其余调用者在获得锁后会发现值已被写入（双重检查）。
func (s *l1Store) getOrCompute(ctx context.Context, key string, compute func() (entry, error)) (entry, error) {
	if e, ok := s.cache.Get(key); ok {
		return e, nil
	}

	handle, err := s.locks.Acquire(ctx, key)
	if err != nil {
		return entry{}, err
	}
	defer func() { _ = handle.Unlock() }()

	if e, ok := s.cache.Get(key); ok {
		return e, nil
	}

	e, err := compute()
	if err != nil {
		return entry{}, err
	}
	s.cache.Set(key, e)
	return e, nil
}

package tiered

import "time"

// FallbackStrategy 决定分布式锁获取超时后的行为。
type FallbackStrategy string

const (
	// FallbackThrow 超时后返回 ErrLockAcquireTimeout。
	FallbackThrow FallbackStrategy = "THROW"

	// FallbackRun 超时后直接调用 loader 并尽力写回 L2，供其他进程受益。
	FallbackRun FallbackStrategy = "FALLBACK"
)

// ClearMode 决定 clear() 是否连带清空 L2。
type ClearMode string

const (
	// ClearSafe 只失效本地 L1，L2 任其自然过期。不会引发回源风暴。
	ClearSafe ClearMode = "SAFE"

	// ClearFull 连带删除整个 L2 hash。
	ClearFull ClearMode = "FULL"
)

// Strategy 是某个具名缓存的完整生效策略，所有字段均已填充默认值。
type Strategy struct {
	RemoteTTL         time.Duration
	RemoteNullTTL     time.Duration
	RemoteTTLRandom   float64
	LocalTTL          time.Duration
	LocalMaxSize      int
	FallbackStrategy  FallbackStrategy
	ClearMode         ClearMode
}

// CacheOverride 承载单个缓存名的可选覆盖项；各字段为指针以区分"未设置"与"显式零值"。
type CacheOverride struct {
	RemoteTTL        *time.Duration
	LocalTTL         *time.Duration
	LocalMaxSize     *int
	FallbackStrategy *FallbackStrategy
	ClearMode        *ClearMode
}

// GlobalConfig 是整棵配置树，对应 SPEC_FULL.md §6 的 "cache.tiered" 配置键。
type GlobalConfig struct {
	Enabled              bool                     `koanf:"enabled"`
	CachePrefix          string                   `koanf:"cachePrefix"`
	CacheNames           []string                 `koanf:"cacheNames"`
	LocalMaxSize         int                      `koanf:"local.maximumSize"`
	LocalExpireAfterWrite time.Duration           `koanf:"local.expireAfterWrite"`
	RemoteDefaultTTL     time.Duration            `koanf:"remote.defaultTtl"`
	RemoteNullValueTTL   time.Duration            `koanf:"remote.nullValueTtl"`
	RemoteTTLRandomFactor float64                 `koanf:"remote.ttlRandomFactor"`
	RemoteLockWaitTimeMs int                      `koanf:"remote.lockWaitTimeMs"`
	DefaultFallback      FallbackStrategy         `koanf:"defaultFallbackStrategy"`
	DefaultClearMode     ClearMode                `koanf:"defaultClearMode"`
	Caches               map[string]CacheOverride `koanf:"caches"`
}

// DefaultGlobalConfig 返回 SPEC_FULL.md §6 表格中列出的所有默认值。
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Enabled:               true,
		CachePrefix:           "cache:",
		LocalMaxSize:          1000,
		LocalExpireAfterWrite: 5 * time.Minute,
		RemoteDefaultTTL:      time.Hour,
		RemoteNullValueTTL:    time.Minute,
		RemoteTTLRandomFactor: 0.1,
		RemoteLockWaitTimeMs:  500,
		DefaultFallback:       FallbackThrow,
		DefaultClearMode:      ClearSafe,
	}
}

// effectiveStrategy 计算某个缓存名的完整生效策略：先套用 per-name 覆盖，
// 再以全局默认值填充所有仍为空的字段。纯函数，可重复调用。
func effectiveStrategy(cfg GlobalConfig, name string) Strategy {
	s := Strategy{
		RemoteTTL:        cfg.RemoteDefaultTTL,
		RemoteNullTTL:    cfg.RemoteNullValueTTL,
		RemoteTTLRandom:  cfg.RemoteTTLRandomFactor,
		LocalTTL:         cfg.LocalExpireAfterWrite,
		LocalMaxSize:     cfg.LocalMaxSize,
		FallbackStrategy: cfg.DefaultFallback,
		ClearMode:        cfg.DefaultClearMode,
	}

	override, ok := cfg.Caches[name]
	if !ok {
		return s
	}
	if override.RemoteTTL != nil {
		s.RemoteTTL = *override.RemoteTTL
	}
	if override.LocalTTL != nil {
		s.LocalTTL = *override.LocalTTL
	}
	if override.LocalMaxSize != nil {
		s.LocalMaxSize = *override.LocalMaxSize
	}
	if override.FallbackStrategy != nil {
		s.FallbackStrategy = *override.FallbackStrategy
	}
	if override.ClearMode != nil {
		s.ClearMode = *override.ClearMode
	}
	return s
}

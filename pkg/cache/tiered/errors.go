package tiered

import "errors"

// 预定义错误。使用 errors.Is/errors.As 进行匹配。
var (
	// ErrLockAcquireTimeout 在 fallbackStrategy=THROW 模式下，获取分布式锁超时。
	ErrLockAcquireTimeout = errors.New("tiered: lock acquire timeout")

	// ErrValueRetrieval 包装 loader 返回的错误或其 panic。
	ErrValueRetrieval = errors.New("tiered: value retrieval failed")

	// ErrTypeMismatch 在 GetTyped[T] 中，缓存值无法类型断言为目标类型时返回。
	ErrTypeMismatch = errors.New("tiered: cached value type mismatch")

	// ErrCacheNotFound 在静态模式下按未预定义名称查找缓存时返回。
	ErrCacheNotFound = errors.New("tiered: cache not found")

	// ErrManagerClosed 在已关闭的 Manager 上执行操作时返回。
	ErrManagerClosed = errors.New("tiered: manager is closed")

	// ErrInvalidConfig 配置校验失败时返回。
	ErrInvalidConfig = errors.New("tiered: invalid config")

	// ErrEmptyKey 键为空字符串时返回。
	ErrEmptyKey = errors.New("tiered: key must not be empty")

	// ErrEmptyCacheName 缓存名为空字符串时返回。
	ErrEmptyCacheName = errors.New("tiered: cache name must not be empty")

	// ErrNilLoader loader 函数为 nil 时返回。
	ErrNilLoader = errors.New("tiered: loader must not be nil")
)

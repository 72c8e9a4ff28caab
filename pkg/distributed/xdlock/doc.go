// Package xdlock 提供基于 Redis (Redlock) 的分布式锁封装。
//
// # 设计理念
//
// xdlock 采用以下设计模式：
//   - 工厂函数：NewRedisFactory
//   - 底层暴露：Redsync() 直接返回底层实例，不限制任何底层特性
//   - 增值功能：健康检查、统一错误处理、输入校验
//
// 这种设计让用户可以：
//   - 使用熟悉的底层 API，无需学习新抽象
//   - 获得开箱即用的运维能力（健康检查、统一错误、输入校验）
//   - 在需要时直接访问底层库的高级特性
//
// # 核心概念
//
//   - Factory: 锁工厂，管理连接并提供 TryLock/Lock 操作
//   - LockHandle: 单次锁获取的句柄，提供 Unlock/Extend/Key 操作
//   - MutexOption: 锁实例的配置选项
//
// # Redis 后端
//
// 使用 NewRedisFactory 创建工厂，支持单节点和 Redlock 多节点模式。
// 续期需要调用方手动调用 Extend；xdlock 本身不运行自动续期 goroutine。
// 生产环境推荐使用 Redlock 多节点模式。
//
// # Factory 关闭行为
//
// Factory.Close() 仅阻止创建新锁，已持有的 LockHandle 仍可执行 Unlock/Extend。
// 这避免了关闭流程先于业务 Unlock 发生时锁悬挂等待 TTL 过期的问题。
//
// # Unlock 清理上下文
//
// 设计决策: Unlock 使用独立清理上下文。当调用方的 context 已取消/超时时（如 defer
// handle.Unlock(ctx) 中 ctx 已过期），Unlock 会自动切换到 context.Background() 派生的
// 5 秒超时上下文，确保解锁操作尽力完成，避免锁残留到 TTL/Lease 到期。
//
// # Key 校验
//
// 锁 key 必须满足：非空（去除空白后不为空）、长度不超过 512 字节。
// 超长 key 会返回 [ErrKeyTooLong]。
//
// # 锁重入
//
// 设计决策: xdlock 的锁是非重入的。每个 LockHandle 通过随机值（redsync 默认）
// 实现独立所有权，同一 Factory 可对同一 key 创建多个独立 handle（前提是锁未被占用）。
//
// # 与 pkg/cache/tiered 的关系
//
// pkg/cache/tiered 使用 xdlock 实现跨进程单飞，并在 tiered 包内自行运行
// 看门狗 goroutine，在持有期间周期性调用 Extend 续期。
//
// 详细使用示例请参考 example_test.go 中的 Example 函数。
package xdlock

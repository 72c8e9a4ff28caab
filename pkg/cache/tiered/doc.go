// Package tiered 提供两级缓存：进程内 L1（有界、带 TTL）叠加共享 Redis L2。
//
// 设计理念：
//   - 工厂/构造函数暴露底层能力，不做过度封装
//   - 读路径：L1 → L2 → loader，loader 执行受进程内/跨进程双重单飞保护
//   - 写路径：先 L2 后 L1，再异步广播失效消息给其他进程
//
// # 核心概念
//
//   - Cache: 具名缓存的公开契约（Get/Put/Evict/Clear）
//   - TieredCache: Cache 的具体实现，组合 L1、L2、发布者与分布式锁
//   - Manager: 具名缓存的注册表，静态（预定义名单）或动态（按需创建）
//
// # 一致性模型
//
// 本包不提供强一致性。失效通过 Redis pub/sub 尽力广播；跨进程可见性
// 受消息投递延迟与 L1 写入 TTL 界定。详见各组件文档与 DESIGN.md。
package tiered

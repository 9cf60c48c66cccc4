/*
包 cache 提供基于 Redis 的键值存储管理，供 storage 包的 Redis 后端使用。

# 核心类型

  - Manager：持有 go-redis 客户端，负责连接、键前缀与关闭。
  - Config：地址、密码、数据库编号、连接池大小与键前缀。

所有键都会拼上 Config.KeyPrefix，多个实例共享同一 Redis 时互不干扰。
TTL 为 0 表示永不过期，持久化记录依赖这一点。
键不存在时返回 ErrCacheMiss。
*/
package cache

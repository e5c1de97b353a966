package cache

// Type selects the cache implementation.
type Type string

// TypeRedis is the Redis-backed cache and pub/sub implementation.
const TypeRedis Type = "redis"

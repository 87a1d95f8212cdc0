// Package redis implements store.CheckpointStore over Redis via
// redis/go-redis/v9 (CHECKPOINT_BACKEND=redis), and provides the Session
// Gate's Lua-scripted login-session bookkeeping.
//
// # Checkpoint storage
//
//	cps := redis.New(redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
//
// Each checkpoint is a JSON value at "{prefix}checkpoint:{id}"; a per-thread
// sorted set at "{prefix}thread:{threadID}:checkpoints", scored by creation
// time, backs List (ZRANGE) and GetLatest (ZREVRANGE ... LIMIT 1) without a
// full table scan.
//
// # Session gate
//
// internal/session builds its own redis.Client and runs a single atomic Lua
// script (via redis.NewScript) per login, per spec.md's Session Gate: sweep
// expired sessions from the user's login-session sorted set, insert the new
// session, and evict the oldest surviving sessions past MAX_LOGIN_NUM — all
// in one round trip so concurrent logins from the same user cannot race past
// the limit.
package redis

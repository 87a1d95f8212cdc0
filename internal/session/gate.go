// Package session implements the Session Gate (C1): bearer-token
// authentication backed by a Redis-resident, capped set of concurrent
// logins per user.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentcore/orchestrator/internal/apperr"
	"github.com/agentcore/orchestrator/internal/model"
)

// ErrUnavailable signals the Redis-backed gate could not be reached; the
// caller must surface a retryable 503, never fall back to allowing the
// request through.
var ErrUnavailable = errors.New("session gate unavailable")

// loginScript performs the Session Gate's login bookkeeping atomically:
// sweep index entries whose detail key has already expired, insert the
// new session, set TTL on both keys, and evict the oldest surviving
// sessions past the configured cap. Returns the number of sessions
// evicted for the cap (not counting the expiry sweep).
//
// KEYS[1] = index key   (agent:user:{uid})
// KEYS[2] = detail key  (agent:user:{uid}:session:{token})
// ARGV[1] = token
// ARGV[2] = session JSON blob
// ARGV[3] = now (unix millis)
// ARGV[4] = ttl (seconds)
// ARGV[5] = max_login_num
var loginScript = redis.NewScript(`
local index_key = KEYS[1]
local detail_key = KEYS[2]
local token = ARGV[1]
local blob = ARGV[2]
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
local max_login_num = tonumber(ARGV[5])

local members = redis.call('ZRANGE', index_key, 0, -1)
for _, member in ipairs(members) do
	local detail = index_key .. ":session:" .. member
	if redis.call('EXISTS', detail) == 0 then
		redis.call('ZREM', index_key, member)
	end
end

redis.call('SET', detail_key, blob, 'EX', ttl)
redis.call('ZADD', index_key, now, token)
redis.call('EXPIRE', index_key, ttl)

local evicted = 0
local card = redis.call('ZCARD', index_key)
if card > max_login_num then
	local overflow = card - max_login_num
	local oldest = redis.call('ZRANGE', index_key, 0, overflow - 1)
	for _, member in ipairs(oldest) do
		redis.call('DEL', index_key .. ":session:" .. member)
		redis.call('ZREM', index_key, member)
		evicted = evicted + 1
	end
end

return evicted
`)

// Gate authenticates bearer tokens and enforces the max-concurrent-session
// cap, per spec.md §4.1.
type Gate struct {
	client      *redis.Client
	verifier    *jwtVerifier
	script      *redis.Script
	expiry      time.Duration
	maxLoginNum int
}

// Options configures a Gate.
type Options struct {
	RedisAddr       string
	RedisDB         int
	JWTSecret       string
	JWTIssuer       string
	JWTExpire       time.Duration
	MaxLoginNum     int
}

func New(opts Options) *Gate {
	client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr, DB: opts.RedisDB})
	return &Gate{
		client:      client,
		verifier:    newJWTVerifier(opts.JWTSecret, opts.JWTIssuer, opts.JWTExpire),
		script:      loginScript,
		expiry:      opts.JWTExpire,
		maxLoginNum: opts.MaxLoginNum,
	}
}

func indexKey(userID string) string {
	return fmt.Sprintf("agent:user:%s", userID)
}

func detailKey(userID, token string) string {
	return fmt.Sprintf("agent:user:%s:session:%s", userID, token)
}

// Login issues a new token for userID, registers its session in Redis via
// the atomic login script, and returns the token plus the number of prior
// sessions evicted to stay within the cap.
func (g *Gate) Login(ctx context.Context, userID, userName string, userView map[string]any) (token string, evicted int, err error) {
	token, err = g.verifier.issue(userID, userName)
	if err != nil {
		return "", 0, apperr.Wrap(apperr.Internal, "session.issue_failed", "failed to issue session token", err)
	}

	sess := model.Session{UserID: userID, Token: token, UserView: userView, CreatedAt: time.Now()}
	blob, err := json.Marshal(sess)
	if err != nil {
		return "", 0, apperr.Wrap(apperr.Internal, "session.marshal_failed", "failed to marshal session", err)
	}

	res, err := g.script.Run(ctx, g.client,
		[]string{indexKey(userID), detailKey(userID, token)},
		token, string(blob), time.Now().UnixMilli(), int(g.expiry.Seconds()), g.maxLoginNum,
	).Result()
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	n, _ := res.(int64)
	return token, int(n), nil
}

// Authenticate verifies token's signature and expiry, then confirms an
// active Redis session still exists for it, returning the bound user view.
// Absence of the signature, expiry, or session record is Unauthorized;
// Redis being unreachable is ErrUnavailable, never a silent allow.
func (g *Gate) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	c, err := g.verifier.verify(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthorized, "session.invalid_token", "invalid or expired token", err)
	}

	blob, err := g.client.Get(ctx, detailKey(c.UserID, token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperr.New(apperr.Unauthorized, "session.not_found", "session not found")
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var sess model.Session
	if err := json.Unmarshal(blob, &sess); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "session.corrupt", "failed to decode session record", err)
	}
	return &sess, nil
}

// Invalidate removes a single session's detail and index entries, e.g. on
// explicit logout.
func (g *Gate) Invalidate(ctx context.Context, userID, token string) error {
	pipe := g.client.Pipeline()
	pipe.Del(ctx, detailKey(userID, token))
	pipe.ZRem(ctx, indexKey(userID), token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"messagely/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// ProfileCache holds public user profiles. Implementations must never be
// handed a user with a password hash.
type ProfileCache interface {
	Get(ctx context.Context, username string) (*model.User, bool, error)
	Set(ctx context.Context, user *model.User) error
	Invalidate(ctx context.Context, username string) error
}

// fenceTTL bounds how long after an invalidation a read-through fill is
// refused. A fill that read the row before the invalidation lands within it.
const fenceTTL = 5 * time.Second

// setUnlessFenced writes the profile only when no invalidation fence exists.
var setUnlessFenced = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
    return 0
end
if tonumber(ARGV[2]) > 0 then
    redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
else
    redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

type redisProfileCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProfileCache(rdb *redis.Client, ttl time.Duration) ProfileCache {
	return &redisProfileCache{rdb: rdb, ttl: ttl}
}

func profileKey(username string) string {
	return "profile:" + username
}

func fenceKey(username string) string {
	return "profile-fence:" + username
}

func (c *redisProfileCache) Get(ctx context.Context, username string) (*model.User, bool, error) {
	data, err := c.rdb.Get(ctx, profileKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("profile cache get: %w", err)
	}
	var u model.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, false, fmt.Errorf("profile cache decode: %w", err)
	}
	return &u, true, nil
}

func (c *redisProfileCache) Set(ctx context.Context, user *model.User) error {
	// HashedPassword carries json:"-", so it cannot reach the cache.
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("profile cache encode: %w", err)
	}
	keys := []string{profileKey(user.Username), fenceKey(user.Username)}
	if err := setUnlessFenced.Run(ctx, c.rdb, keys, data, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("profile cache set: %w", err)
	}
	return nil
}

// Invalidate drops the entry and fences it so that a fill racing with the
// invalidation cannot restore the old profile.
func (c *redisProfileCache) Invalidate(ctx context.Context, username string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, profileKey(username))
		pipe.Set(ctx, fenceKey(username), 1, fenceTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("profile cache invalidate: %w", err)
	}
	return nil
}

type nopProfileCache struct{}

// NewNopProfileCache returns a cache that never hits.
func NewNopProfileCache() ProfileCache { return nopProfileCache{} }

func (nopProfileCache) Get(context.Context, string) (*model.User, bool, error) { return nil, false, nil }
func (nopProfileCache) Set(context.Context, *model.User) error { return nil }
func (nopProfileCache) Invalidate(context.Context, string) error { return nil }

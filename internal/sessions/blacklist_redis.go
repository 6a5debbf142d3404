package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Access tokens revoked at logout are remembered in Redis until they would
// have expired anyway. Without a client both calls are no-ops.
var blacklistClient *redis.Client

// SetBlacklistClient installs (or with nil, removes) the blacklist client.
func SetBlacklistClient(c *redis.Client) {
	blacklistClient = c
}

func blacklistKey(token string) string {
	return "blacklist:access:" + digest(token)
}

// BlacklistAccessToken revokes token for ttl. A non-positive ttl means the
// token has already expired and nothing is stored.
func BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	if blacklistClient == nil || ttl <= 0 {
		return nil
	}
	return blacklistClient.Set(ctx, blacklistKey(token), time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

// IsAccessTokenBlacklisted reports whether token was revoked.
func IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	if blacklistClient == nil {
		return false, nil
	}
	n, err := blacklistClient.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

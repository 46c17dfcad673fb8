package revocation

import (
	"context"
	"fmt"
	"time"

	rd "debtster_routes/internal/config/connections/redis"

	"github.com/redis/go-redis/v9"
)

// List holds revoked session token ids until they would have expired anyway.
type List struct {
	client    *redis.Client
	keyPrefix string
}

func New(r *rd.Redis) *List {
	return &List{client: r.Client, keyPrefix: "debtster_routes:revoked:"}
}

func (l *List) key(jti string) string {
	return l.keyPrefix + jti
}

func (l *List) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, l.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke %s: %w", jti, err)
	}
	return nil
}

func (l *List) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}

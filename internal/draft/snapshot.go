// internal/draft/snapshot.go
package draft

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix = "intake:draft:"

	// Abandoned drafts age out after 90 days.
	snapshotTTL = 90 * 24 * time.Hour
)

// RedisSnapshotStore persists draft snapshots in Redis, one key per
// account.
type RedisSnapshotStore struct {
	client *redis.Client
}

func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client}
}

func (r *RedisSnapshotStore) key(accountKey string) string {
	return snapshotKeyPrefix + accountKey
}

func (r *RedisSnapshotStore) Write(ctx context.Context, accountKey string, data []byte) error {
	return r.client.Set(ctx, r.key(accountKey), data, snapshotTTL).Err()
}

func (r *RedisSnapshotStore) Read(ctx context.Context, accountKey string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(accountKey)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *RedisSnapshotStore) Clear(ctx context.Context, accountKey string) error {
	return r.client.Del(ctx, r.key(accountKey)).Err()
}

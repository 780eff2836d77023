package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "aitutor"

// RedisSnapshotRepo keeps snapshots in a Redis sorted set scored by
// timestamp. Members start with the zero-padded snapshot id, so snapshots
// saved in the same microsecond rank by id. It lets several front ends share one learner state without a
// shared filesystem.
type RedisSnapshotRepo struct {
	client *redis.Client
	prefix string
}

// redisSnapshot is the stored member encoding.
type redisSnapshot struct {
	ID        int          `json:"id"`
	Sequence  int64        `json:"sequence"`
	Timestamp time.Time    `json:"timestamp"`
	Data      SnapshotData `json:"data"`
}

const redisMemberIDWidth = 20

func encodeRedisMember(rs redisSnapshot) (string, error) {
	b, err := json.Marshal(rs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d:%s", redisMemberIDWidth, rs.ID, b), nil
}

func decodeRedisMember(member string) (redisSnapshot, error) {
	var rs redisSnapshot
	if i := strings.IndexByte(member, ':'); i == redisMemberIDWidth {
		member = member[i+1:]
	}
	err := json.Unmarshal([]byte(member), &rs)
	return rs, err
}

// OpenRedis connects to the Redis server at url (redis://host:port/db) and
// verifies the connection.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisSnapshotRepo, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisSnapshotRepo(client, prefix), nil
}

// NewRedisSnapshotRepo wraps an existing client. An empty prefix uses "aitutor".
func NewRedisSnapshotRepo(client *redis.Client, prefix string) *RedisSnapshotRepo {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisSnapshotRepo{client: client, prefix: prefix}
}

func (r *RedisSnapshotRepo) setKey() string { return r.prefix + ":snapshots" }
func (r *RedisSnapshotRepo) idKey() string  { return r.prefix + ":snapshots:id" }

func (r *RedisSnapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	id, err := r.client.Incr(ctx, r.idKey()).Result()
	if err != nil {
		return fmt.Errorf("allocate snapshot id: %w", err)
	}
	snap.ID = int(id)

	member, err := encodeRedisMember(redisSnapshot{
		ID:        snap.ID,
		Sequence:  snap.Sequence,
		Timestamp: snap.Timestamp,
		Data:      snap.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}

	// Microseconds stay exact in a float64 score.
	err = r.client.ZAdd(ctx, r.setKey(), redis.Z{
		Score:  float64(snap.Timestamp.UnixMicro()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (r *RedisSnapshotRepo) Latest(ctx context.Context) (*Snapshot, error) {
	members, err := r.client.ZRevRange(ctx, r.setKey(), 0, 0).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	rs, err := decodeRedisMember(members[0])
	if err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	return &Snapshot{
		ID:        rs.ID,
		Sequence:  rs.Sequence,
		Timestamp: rs.Timestamp,
		Data:      rs.Data,
	}, nil
}

func (r *RedisSnapshotRepo) Prune(ctx context.Context, keep int) error {
	// Ranks are ascending by score, so everything below the newest keep
	// members is removed.
	if err := r.client.ZRemRangeByRank(ctx, r.setKey(), 0, int64(-keep-1)).Err(); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisSnapshotRepo) Close() error {
	return r.client.Close()
}

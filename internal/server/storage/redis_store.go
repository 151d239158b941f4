package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/ntetris-server/internal/types"
)

const (
	// Redis key 前缀
	playerKeyPrefix = "player:"
	roomKeyPrefix   = "room:"
	playerIndexKey  = "players"
	roomIndexKey    = "rooms"

	defaultPrefix     = "ntetris:"
	defaultExpiration = 2 * time.Hour
)

// RedisStore Redis 在线状态镜像，实现 types.PresenceMirror。
// 只写不回读：进程启动时清空，重启不会恢复任何玩家或房间
type RedisStore struct {
	client     *redis.Client
	prefix     string
	expiration time.Duration
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client, prefix string, expiration time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if expiration <= 0 {
		expiration = defaultExpiration
	}
	return &RedisStore{client: client, prefix: prefix, expiration: expiration}
}

// Ping 检查连接
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

func (rs *RedisStore) key(parts ...string) string {
	k := rs.prefix
	for _, p := range parts {
		k += p
	}
	return k
}

func idString(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

// --- 玩家 ---

// SavePlayer 保存玩家快照
func (rs *RedisStore) SavePlayer(ctx context.Context, p types.PlayerInfo) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("序列化玩家数据失败: %w", err)
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, rs.key(playerKeyPrefix, idString(p.ID)), data, rs.expiration)
	pipe.SAdd(ctx, rs.key(playerIndexKey), idString(p.ID))
	_, err = pipe.Exec(ctx)
	return err
}

// LoadPlayer 读取玩家快照，不存在时返回 nil
func (rs *RedisStore) LoadPlayer(ctx context.Context, id uint32) (*types.PlayerInfo, error) {
	var p types.PlayerInfo
	ok, err := rs.load(ctx, rs.key(playerKeyPrefix, idString(id)), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// DeletePlayer 删除玩家快照
func (rs *RedisStore) DeletePlayer(ctx context.Context, id uint32) error {
	pipe := rs.client.TxPipeline()
	pipe.Del(ctx, rs.key(playerKeyPrefix, idString(id)))
	pipe.SRem(ctx, rs.key(playerIndexKey), idString(id))
	_, err := pipe.Exec(ctx)
	return err
}

// --- 房间 ---

// SaveRoom 保存房间快照
func (rs *RedisStore) SaveRoom(ctx context.Context, r types.RoomInfo) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("序列化房间数据失败: %w", err)
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, rs.key(roomKeyPrefix, idString(r.ID)), data, rs.expiration)
	pipe.SAdd(ctx, rs.key(roomIndexKey), idString(r.ID))
	_, err = pipe.Exec(ctx)
	return err
}

// LoadRoom 读取房间快照，不存在时返回 nil
func (rs *RedisStore) LoadRoom(ctx context.Context, id uint32) (*types.RoomInfo, error) {
	var r types.RoomInfo
	ok, err := rs.load(ctx, rs.key(roomKeyPrefix, idString(id)), &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

// DeleteRoom 删除房间快照
func (rs *RedisStore) DeleteRoom(ctx context.Context, id uint32) error {
	pipe := rs.client.TxPipeline()
	pipe.Del(ctx, rs.key(roomKeyPrefix, idString(id)))
	pipe.SRem(ctx, rs.key(roomIndexKey), idString(id))
	_, err := pipe.Exec(ctx)
	return err
}

// --- 辅助方法 ---

// Counts 返回镜像中的玩家数与房间数
func (rs *RedisStore) Counts(ctx context.Context) (players, rooms int64, err error) {
	pipe := rs.client.Pipeline()
	pc := pipe.SCard(ctx, rs.key(playerIndexKey))
	rc := pipe.SCard(ctx, rs.key(roomIndexKey))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return pc.Val(), rc.Val(), nil
}

// Clear 删除前缀下的所有键，启动时调用
func (rs *RedisStore) Clear(ctx context.Context) (int, error) {
	iter := rs.client.Scan(ctx, 0, rs.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := rs.client.Del(ctx, keys...).Err(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Close 关闭连接
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func (rs *RedisStore) load(ctx context.Context, key string, v any) (bool, error) {
	data, err := rs.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("反序列化数据失败: %w", err)
	}
	return true, nil
}

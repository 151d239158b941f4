package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/ntetris-server/internal/types"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "", time.Hour), mr
}

func TestRedisStore_SaveLoadDeletePlayer(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	info := types.PlayerInfo{ID: 42, Name: "alice", Addr: "127.0.0.1:5000", State: "browsing", PingBudget: 20}
	require.NoError(t, store.SavePlayer(ctx, info))

	assert.True(t, mr.Exists("ntetris:player:42"))
	assert.Equal(t, time.Hour, mr.TTL("ntetris:player:42"))

	loaded, err := store.LoadPlayer(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, info, *loaded)

	require.NoError(t, store.DeletePlayer(ctx, 42))
	loaded, err = store.LoadPlayer(ctx, 42)
	assert.NoError(t, err)
	assert.Nil(t, loaded)

	players, _, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, players)
}

func TestRedisStore_SaveLoadDeleteRoom(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	room := types.RoomInfo{ID: 7, Name: "Duel", State: "waiting", Capacity: 2, Occupancy: 1, Players: []string{"alice"}}
	require.NoError(t, store.SaveRoom(ctx, room))

	loaded, err := store.LoadRoom(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, room, *loaded)

	_, rooms, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rooms)

	require.NoError(t, store.DeleteRoom(ctx, 7))
	loaded, err = store.LoadRoom(ctx, 7)
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_Expiration(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRoom(ctx, types.RoomInfo{ID: 1, Name: "r"}))
	mr.FastForward(2 * time.Hour)

	loaded, err := store.LoadRoom(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_Clear(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePlayer(ctx, types.PlayerInfo{ID: 1, Name: "a"}))
	require.NoError(t, store.SaveRoom(ctx, types.RoomInfo{ID: 2, Name: "r"}))
	require.NoError(t, mr.Set("other:key", "keep"))

	n, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n) // 两个快照 + 两个索引

	assert.False(t, mr.Exists("ntetris:player:1"))
	assert.True(t, mr.Exists("other:key"))

	n, err = store.Clear(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_CustomPrefix(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "test:", 0)
	require.NoError(t, store.SavePlayer(context.Background(), types.PlayerInfo{ID: 3}))
	assert.True(t, mr.Exists("test:player:3"))
	assert.Equal(t, defaultExpiration, mr.TTL("test:player:3"))
}

func TestRedisStore_ConnectionError(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	mr.Close()

	ctx := context.Background()
	assert.Error(t, store.Ping(ctx))
	assert.Error(t, store.SavePlayer(ctx, types.PlayerInfo{ID: 1}))
	_, err := store.LoadRoom(ctx, 1)
	assert.Error(t, err)
}

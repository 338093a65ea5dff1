package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stats struct {
	Users int `json:"users"`
}

func TestGetOrLoadCachesInRedis(t *testing.T) {
	m, err := miniredis.Run()
	require.NoError(t, err)
	defer m.Close()

	c := New(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return stats{Users: 7}, nil
	}

	var got stats
	require.NoError(t, c.GetOrLoad(context.Background(), "dash", time.Minute, &got, loader))
	require.NoError(t, c.GetOrLoad(context.Background(), "dash", time.Minute, &got, loader))
	assert.Equal(t, 7, got.Users)
	assert.Equal(t, 1, calls)
	assert.True(t, m.Exists("dash"))

	m.FastForward(2 * time.Minute)
	require.NoError(t, c.GetOrLoad(context.Background(), "dash", time.Minute, &got, loader))
	assert.Equal(t, 2, calls)

	require.NoError(t, c.Delete(context.Background(), "dash"))
	assert.False(t, m.Exists("dash"))
}

func TestGetOrLoadWithoutRedis(t *testing.T) {
	c := New(nil)
	calls := 0
	var got stats
	for i := 0; i < 2; i++ {
		require.NoError(t, c.GetOrLoad(context.Background(), "dash", time.Minute, &got, func(context.Context) (interface{}, error) {
			calls++
			return stats{Users: 3}, nil
		}))
	}
	assert.Equal(t, 3, got.Users)
	assert.Equal(t, 2, calls)

	err := c.GetOrLoad(context.Background(), "dash", time.Minute, &got, func(context.Context) (interface{}, error) {
		return nil, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}

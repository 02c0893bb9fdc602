package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyURL(t *testing.T) {
	c, err := New(context.Background(), Options{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), Options{URL: "://not-a-url"})
	require.Error(t, err)
}

func TestNew_ConnectsAndHealth(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), Options{URL: "redis://" + mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	require.NotNil(t, c)
	defer c.Close()

	assert.NoError(t, c.Health(context.Background()))

	_, err = c.Get(context.Background(), "missing").Result()
	assert.True(t, IsMiss(err))
}

func TestNew_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = New(context.Background(), Options{URL: "redis://" + addr})
	require.Error(t, err)
}

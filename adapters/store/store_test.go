package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/elixxir/ekv"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/ports"
)

func runStoreContract(t *testing.T, s ports.Store) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "absent")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("set get overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "k", "v1", 0))
		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v1", got)

		require.NoError(t, s.Set(ctx, "k", "v2", 0))
		got, err = s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v2", got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "d", "x", 0))
		require.NoError(t, s.Delete(ctx, "d"))
		_, err := s.Get(ctx, "d")
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.NoError(t, s.Delete(ctx, "d"))
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "e", "x", 50*time.Millisecond))
		got, err := s.Get(ctx, "e")
		require.NoError(t, err)
		assert.Equal(t, "x", got)

		assert.Eventually(t, func() bool {
			_, err := s.Get(ctx, "e")
			return err == core.ErrNotFound
		}, 2*time.Second, 20*time.Millisecond)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestKVStore(t *testing.T) {
	runStoreContract(t, NewKVStore(ekv.MakeMemstore()))
}

func TestFileStorePersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir, "password")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "salt", "42", 0))

	reopened, err := NewFileStore(dir, "password")
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "salt")
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	runStoreContract(t, NewRedisStore(client, "zklogin-test:"+t.Name()+":"))
}

package cart

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/safar/go-storefront/internal/devicestate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStorage(client, time.Hour), mr
}

func addOne(c *Cart) error {
	_, err := c.Add(testProduct(10), "M", "")
	return err
}

func TestFileStorageRoundTrip(t *testing.T) {
	path := t.TempDir()
	dir, err := devicestate.Open(path)
	require.NoError(t, err)
	s := NewFileStorage(dir)
	ctx := context.Background()

	c, err := s.Load(ctx, Key)
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	c, err = s.Update(ctx, Key, addOne)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Revision)

	loaded, err := s.Load(ctx, Key)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Count())
	assert.Equal(t, int64(1), loaded.Revision)

	_, err = s.Update(ctx, Key, ExpectRevision(0, addOne))
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, s.Delete(ctx, Key))
	c, err = s.Load(ctx, Key)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestFileStorageRejectsUnversionedFile(t *testing.T) {
	path := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(path, "cart.json"), []byte(`{"items":[]}`), 0o600))

	dir, err := devicestate.Open(path)
	require.NoError(t, err)
	s := NewFileStorage(dir)

	_, err = s.Load(context.Background(), Key)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestRedisStorageUpdate(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	c, err := s.Update(ctx, "sess-1", addOne)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Revision)
	assert.True(t, mr.Exists("cart:sess-1"))
	assert.Equal(t, time.Hour, mr.TTL("cart:sess-1"))

	c, err = s.Update(ctx, "sess-1", ExpectRevision(1, addOne))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Items[0].Quantity)

	_, err = s.Update(ctx, "sess-1", ExpectRevision(1, addOne))
	assert.ErrorIs(t, err, ErrConflict)

	loaded, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Revision)

	require.NoError(t, s.Delete(ctx, "sess-1"))
	assert.False(t, mr.Exists("cart:sess-1"))
}

func TestRedisStorageConcurrentUpdates(t *testing.T) {
	s, _ := setupTestRedis(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Update(ctx, "sess-2", addOne); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrConflict)
			}
		}()
	}
	wg.Wait()

	c, err := s.Load(ctx, "sess-2")
	require.NoError(t, err)
	assert.Equal(t, succeeded, c.Count(), "no update is lost")
	assert.Equal(t, int64(succeeded), c.Revision)
}

func TestRedisStorageBadDocument(t *testing.T) {
	s, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:sess-3", `{"version":9}`))

	_, err := s.Load(context.Background(), "sess-3")
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

package main

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestDockerPool connects to the local docker daemon or skips the test.
func newTestDockerPool(t *testing.T) *dockertest.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container based test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Failed to start Dockertest: %+v", err)
	}

	err = pool.Client.Ping()
	if err != nil {
		t.Skipf("Could not connect to Docker: %+v", err)
	}
	return pool
}

func startRedisDockerContainer(t *testing.T) (string, func()) {
	t.Helper()
	pool := newTestDockerPool(t)

	resource, err := pool.Run("redis", "7.0.10-alpine", nil)
	if err != nil {
		t.Fatalf("Failed to start redis: %+v", err)
	}

	// build address the container is listening on
	addr := net.JoinHostPort("localhost", resource.GetPort("6379/tcp"))

	// ensure to wait for the container to be ready
	err = pool.Retry(func() error {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		return client.Ping(context.Background()).Err()
	})

	if err != nil {
		t.Fatalf("Failed to ping Redis: %+v", err)
	}

	destroyFunc := func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Failed to purge resource: %+v", err)
		}
	}

	return addr, destroyFunc
}

func TestRedisStore(t *testing.T) {
	addr, destroyFunc := startRedisDockerContainer(t)
	defer destroyFunc()

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	client, err := GetRedisClient(&Config{Redis: RedisConfig{Host: host, Port: port}})
	require.NoError(t, err)

	rs := NewRedisBookStorage(zap.NewNop(), client, "test.books")
	defer rs.Close(context.Background())
	require.NoError(t, rs.LoadScripts(context.Background()))

	testBookStorage(t, rs)
}

// TestRedisStore_PurchaseScriptKeepsFields ensures the purchase script only
// touches the stock counters of the stored document.
func TestRedisStore_PurchaseScriptKeepsFields(t *testing.T) {
	addr, destroyFunc := startRedisDockerContainer(t)
	defer destroyFunc()

	rs := NewRedisBookStorage(zap.NewNop(), redis.NewClient(&redis.Options{Addr: addr}), "")
	defer rs.Close(context.Background())

	book := Book{ID: testBookID, Title: "Dune", Author: "Frank Herbert", Description: "sand \"worms\"", Price: 9.99, Stock: 1}
	require.NoError(t, rs.Add(context.Background(), book))

	sold, err := rs.Purchase(context.Background(), testBookID)
	require.NoError(t, err)
	book.Stock, book.SoldCount = 0, 1
	assert.Equal(t, book, sold)

	_, err = rs.Purchase(context.Background(), testBookID)
	assert.ErrorIs(t, err, ErrOutOfStock)
}

// TestRedisStore_PurchaseLargeStock ensures the purchase script writes back
// the highest allowed stock in a form the store can decode.
func TestRedisStore_PurchaseLargeStock(t *testing.T) {
	addr, destroyFunc := startRedisDockerContainer(t)
	defer destroyFunc()

	rs := NewRedisBookStorage(zap.NewNop(), redis.NewClient(&redis.Options{Addr: addr}), "")
	defer rs.Close(context.Background())

	require.NoError(t, rs.Add(context.Background(), Book{ID: testBookID, Title: "t", Author: "a", Price: 1, Stock: MaxBookStock}))
	sold, err := rs.Purchase(context.Background(), testBookID)
	require.NoError(t, err)
	assert.Equal(t, MaxBookStock-1, sold.Stock)
	assert.Equal(t, 1, sold.SoldCount)

	got, err := rs.GetOne(context.Background(), testBookID)
	require.NoError(t, err)
	assert.Equal(t, sold, got)
}

// TestRedisStore_UpdateScript ensures the update script only stores the new
// document when the stored one is still the document the patch was applied to.
func TestRedisStore_UpdateScript(t *testing.T) {
	addr, destroyFunc := startRedisDockerContainer(t)
	defer destroyFunc()

	client := redis.NewClient(&redis.Options{Addr: addr})
	rs := NewRedisBookStorage(zap.NewNop(), client, "")
	defer rs.Close(context.Background())
	ctx := context.Background()

	require.NoError(t, rs.Add(ctx, Book{ID: testBookID, Title: "t", Author: "a", Price: 1, Stock: 1}))
	raw, err := client.HGet(ctx, DefaultBooksHash, testBookID).Result()
	require.NoError(t, err)

	stored, err := updateBookScript.Run(ctx, client, []string{DefaultBooksHash}, testBookID, "stale", "{}").Int()
	require.NoError(t, err)
	assert.Equal(t, 0, stored)
	after, err := client.HGet(ctx, DefaultBooksHash, testBookID).Result()
	require.NoError(t, err)
	assert.Equal(t, raw, after)

	stored, err = updateBookScript.Run(ctx, client, []string{DefaultBooksHash}, "64a1f0c2e4b0a1b2c3d4e5f7", raw, "{}").Int()
	require.NoError(t, err)
	assert.Equal(t, -1, stored)
}

// TestRedisStore_UpdateWithConcurrentPurchases ensures writes on other books
// of the hash never make an update fail.
func TestRedisStore_UpdateWithConcurrentPurchases(t *testing.T) {
	addr, destroyFunc := startRedisDockerContainer(t)
	defer destroyFunc()

	rs := NewRedisBookStorage(zap.NewNop(), redis.NewClient(&redis.Options{Addr: addr, PoolSize: 16}), "")
	defer rs.Close(context.Background())
	ctx := context.Background()
	require.NoError(t, rs.LoadScripts(ctx))

	otherID := "64a1f0c2e4b0a1b2c3d4e5f7"
	require.NoError(t, rs.Add(ctx, Book{ID: testBookID, Title: "t", Author: "a", Price: 1, Stock: 1}))
	require.NoError(t, rs.Add(ctx, Book{ID: otherID, Title: "o", Author: "a", Price: 1, Stock: 100000}))

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_, _ = rs.Purchase(ctx, otherID)
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		price := float64(i + 2)
		changed, err := rs.Update(ctx, testBookID, BookPatch{Price: &price})
		if !assert.NoError(t, err) {
			break
		}
		assert.True(t, changed)
	}
	close(done)
	wg.Wait()

	got, err := rs.GetOne(ctx, testBookID)
	require.NoError(t, err)
	assert.Equal(t, float64(101), got.Price)
}

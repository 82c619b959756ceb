package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultBooksHash string = "books"
	maxUpdateRetries int    = 10
)

//go:embed scripts/purchase_book.lua
var purchaseBookLua string

//go:embed scripts/update_book.lua
var updateBookLua string

var (
	_ BookStorage = (*redisBookStorage)(nil)

	purchaseBookScript = redis.NewScript(purchaseBookLua)
	updateBookScript   = redis.NewScript(updateBookLua)
	errTooManyRetries  = errors.New("redis: too many concurrent updates on book")
)

type redisBookStorage struct {
	logger *zap.Logger
	client *redis.Client
	hash   string
}

// NewRedisBookStorage provides an instance of redis-based book storage.
// Books are JSON documents stored as fields of a single hash.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client, hash string) *redisBookStorage {
	if hash == "" {
		hash = DefaultBooksHash
	}
	return &redisBookStorage{
		logger: logger,
		client: client,
		hash:   hash,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// LoadScripts preloads the lua scripts so later calls only send their sha.
func (rs *redisBookStorage) LoadScripts(ctx context.Context) error {
	if err := purchaseBookScript.Load(ctx, rs.client).Err(); err != nil {
		return fmt.Errorf("failed to load purchase script: %w", err)
	}
	if err := updateBookScript.Load(ctx, rs.client).Err(); err != nil {
		return fmt.Errorf("failed to load update script: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (rs *redisBookStorage) Close(_ context.Context) error {
	return rs.client.Close()
}

// Add inserts a new book record only if its id is not already in use.
func (rs *redisBookStorage) Add(ctx context.Context, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	added, err := rs.client.HSetNX(ctx, rs.hash, book.ID, bookBytes).Result()
	if err != nil {
		return err
	}
	if !added {
		return ErrBookConflict
	}
	return nil
}

// GetOne retrieves a book record based on its ID.
func (rs *redisBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	var book Book
	bookJSONString, err := rs.client.HGet(ctx, rs.hash, id).Result()
	if err == redis.Nil {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, err
	}
	err = json.Unmarshal([]byte(bookJSONString), &book)
	return book, err
}

// GetAll retrieves a list of at most limit books ordered by id.
func (rs *redisBookStorage) GetAll(ctx context.Context, limit int) ([]Book, error) {
	return rs.scan(ctx, func(Book) bool { return true }, limit)
}

// Search scans the books and keeps the ones matching all filters.
func (rs *redisBookStorage) Search(ctx context.Context, filters SearchFilters, limit int) ([]Book, error) {
	return rs.scan(ctx, filters.Match, limit)
}

func (rs *redisBookStorage) scan(ctx context.Context, keep func(Book) bool, limit int) ([]Book, error) {
	values, err := rs.client.HVals(ctx, rs.hash).Result()
	if err != nil {
		return nil, err
	}
	books := []Book{}
	for _, bookJSONString := range values {
		var book Book
		if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return nil, err
		}
		if keep(book) {
			books = append(books, book)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	if limit > 0 && len(books) > limit {
		books = books[:limit]
	}
	return books, nil
}

// Update reads the book, applies the patch then stores the result with the
// update script only if the stored document is still the one that was read.
// Writes on other books of the hash never conflict with it.
func (rs *redisBookStorage) Update(ctx context.Context, id string, patch BookPatch) (bool, error) {
	for i := 0; i < maxUpdateRetries; i++ {
		raw, err := rs.client.HGet(ctx, rs.hash, id).Result()
		if err == redis.Nil {
			return false, ErrBookNotFound
		}
		if err != nil {
			return false, err
		}
		var book Book
		if err = json.Unmarshal([]byte(raw), &book); err != nil {
			return false, err
		}
		book, changed := patch.Apply(book)
		if !changed {
			return false, nil
		}
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return false, err
		}

		stored, err := updateBookScript.Run(ctx, rs.client, []string{rs.hash}, id, raw, bookBytes).Int()
		if err != nil {
			return false, err
		}
		switch stored {
		case 1:
			return true, nil
		case -1:
			return false, ErrBookNotFound
		}
		rs.logger.Debug("redis: update conflicted, retrying", zap.String("book.id", id), zap.Int("attempt", i+1))
	}
	return false, errTooManyRetries
}

// Delete removes a book record based on its ID.
func (rs *redisBookStorage) Delete(ctx context.Context, id string) error {
	deleted, err := rs.client.HDel(ctx, rs.hash, id).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Purchase runs the purchase script which checks the stock and updates
// both counters while no other command can be served by the redis server.
func (rs *redisBookStorage) Purchase(ctx context.Context, id string) (Book, error) {
	var book Book
	raw, err := purchaseBookScript.Run(ctx, rs.client, []string{rs.hash}, id).Text()
	if err == redis.Nil {
		return book, ErrOutOfStock
	}
	if err != nil {
		return book, err
	}
	err = json.Unmarshal([]byte(raw), &book)
	return book, err
}

// DeleteAll removes the books hash.
func (rs *redisBookStorage) DeleteAll(ctx context.Context) error {
	return rs.client.Del(ctx, rs.hash).Err()
}

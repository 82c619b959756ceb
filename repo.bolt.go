package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var _ BookStorage = (*boltBookStorage)(nil)

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) *boltBookStorage {
	return &boltBookStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based book storage.
func (bs *boltBookStorage) Close(_ context.Context) error {
	return bs.client.Close()
}

func (bs *boltBookStorage) bucket(tx *bolt.Tx) *bolt.Bucket {
	return tx.Bucket([]byte(bs.config.BucketName))
}

// Add inserts a new book record into boltdb store if its id is free.
func (bs *boltBookStorage) Add(_ context.Context, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		if b.Get([]byte(book.ID)) != nil {
			return ErrBookConflict
		}
		return b.Put([]byte(book.ID), bookBytes)
	})
}

// GetOne retrieves a book record based on its ID from boltdb store.
func (bs *boltBookStorage) GetOne(_ context.Context, id string) (Book, error) {
	var book Book
	// initialize a readable transaction.
	tx, err := bs.client.Begin(false)
	if err != nil {
		return book, err
	}
	defer tx.Rollback()

	result := bs.bucket(tx).Get([]byte(id))
	if result == nil {
		return book, ErrBookNotFound
	}
	err = json.Unmarshal(result, &book)
	return book, err
}

// GetAll retrieves a list of at most limit books ordered by id.
func (bs *boltBookStorage) GetAll(ctx context.Context, limit int) ([]Book, error) {
	return bs.scan(ctx, func(Book) bool { return true }, limit)
}

// Search walks the bucket and keeps the books matching all filters.
func (bs *boltBookStorage) Search(ctx context.Context, filters SearchFilters, limit int) ([]Book, error) {
	return bs.scan(ctx, filters.Match, limit)
}

func (bs *boltBookStorage) scan(_ context.Context, keep func(Book) bool, limit int) ([]Book, error) {
	tx, err := bs.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Create a cursor on the books' bucket.
	c := bs.bucket(tx).Cursor()

	books := []Book{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if limit > 0 && len(books) >= limit {
			break
		}
		var book Book
		if err = json.Unmarshal(v, &book); err != nil {
			return nil, err
		}
		if keep(book) {
			books = append(books, book)
		}
	}
	return books, nil
}

// Update applies the patch within a single write transaction.
func (bs *boltBookStorage) Update(_ context.Context, id string, patch BookPatch) (bool, error) {
	var changed bool
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		result := b.Get([]byte(id))
		if result == nil {
			return ErrBookNotFound
		}
		var book Book
		if err := json.Unmarshal(result, &book); err != nil {
			return err
		}
		book, changed = patch.Apply(book)
		if !changed {
			return nil
		}
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), bookBytes)
	})
	return changed, err
}

// Delete removes a book record based on its ID from boltdb store.
func (bs *boltBookStorage) Delete(_ context.Context, id string) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		if b.Get([]byte(id)) == nil {
			return ErrBookNotFound
		}
		return b.Delete([]byte(id))
	})
}

// Purchase checks the stock and updates both counters in one write
// transaction. Bolt allows a single writer at a time.
func (bs *boltBookStorage) Purchase(_ context.Context, id string) (Book, error) {
	var book Book
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		result := b.Get([]byte(id))
		if result == nil {
			return ErrOutOfStock
		}
		if err := json.Unmarshal(result, &book); err != nil {
			return err
		}
		if book.Stock <= 0 {
			return ErrOutOfStock
		}
		book.Stock--
		book.SoldCount++
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), bookBytes)
	})
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// DeleteAll drops and recreates the books bucket.
func (bs *boltBookStorage) DeleteAll(_ context.Context) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		name := []byte(bs.config.BucketName)
		if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(name)
		return err
	})
}

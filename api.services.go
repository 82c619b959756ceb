package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// BookServiceProvider defines the catalog operations exposed to the api handlers.
type BookServiceProvider interface {
	List(ctx context.Context) ([]Book, error)
	Get(ctx context.Context, id string) (Book, error)
	Create(ctx context.Context, req NewBook) (Book, error)
	Update(ctx context.Context, id string, patch BookPatch) (UpdateOutcome, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, filters SearchFilters) ([]Book, error)
	Purchase(ctx context.Context, id string) (Book, error)
	Reset(ctx context.Context) error
}

// BookService implements the catalog rules on top of a storage.
// It keeps no record between calls.
type BookService struct {
	logger  *zap.Logger
	config  *Config
	ids     UIDHandler
	storage BookStorage
}

func NewBookService(logger *zap.Logger, config *Config, ids UIDHandler, storage BookStorage) BookServiceProvider {
	return &BookService{
		logger:  logger,
		config:  config,
		ids:     ids,
		storage: storage,
	}
}

// limit returns the max number of records a list or search returns.
func (bs *BookService) limit() int {
	if bs.config == nil || bs.config.Catalog.ListLimit <= 0 {
		return DefaultListLimit
	}
	return bs.config.Catalog.ListLimit
}

func (bs *BookService) List(ctx context.Context) ([]Book, error) {
	return bs.storage.GetAll(ctx, bs.limit())
}

func (bs *BookService) Get(ctx context.Context, id string) (Book, error) {
	if !bs.ids.IsValid(id) {
		return Book{}, ErrBookNotFound
	}
	return bs.storage.GetOne(ctx, id)
}

// Create validates then stores a new book. A client provided id is kept
// when well-formed, otherwise a fresh one is assigned.
func (bs *BookService) Create(ctx context.Context, req NewBook) (Book, error) {
	if err := ValidateCreateBookRequestBody(&req); err != nil {
		return req.Book(), err
	}

	book := req.Book()
	if book.ID == "" {
		book.ID = bs.ids.Generate()
	} else if !bs.ids.IsValid(book.ID) {
		return book, invalidFieldError{"id", "is not a valid book identifier"}
	}
	book.SoldCount = 0

	if err := bs.storage.Add(ctx, book); err != nil {
		return book, err
	}
	bs.logger.Debug("service: book added", zap.String("book.id", book.ID))
	return book, nil
}

func (bs *BookService) Update(ctx context.Context, id string, patch BookPatch) (UpdateOutcome, error) {
	if !bs.ids.IsValid(id) {
		return 0, ErrBookNotFound
	}
	if err := ValidateUpdateBookRequestBody(&patch); err != nil {
		return 0, err
	}

	changed, err := bs.storage.Update(ctx, id, patch)
	if err != nil {
		return 0, err
	}
	if changed {
		return BookUpdated, nil
	}
	return BookUnchanged, nil
}

func (bs *BookService) Delete(ctx context.Context, id string) error {
	if !bs.ids.IsValid(id) {
		return ErrBookNotFound
	}
	return bs.storage.Delete(ctx, id)
}

func (bs *BookService) Search(ctx context.Context, filters SearchFilters) ([]Book, error) {
	if filters.MinPrice != nil && filters.MaxPrice != nil && *filters.MinPrice > *filters.MaxPrice {
		return nil, invalidFieldError{"min_price", "must not exceed max_price"}
	}
	return bs.storage.Search(ctx, filters, bs.limit())
}

// Purchase sells one unit of the book. An unknown book and a book without
// stock both end with ErrOutOfStock since the storage checks and updates
// in one conditional step.
func (bs *BookService) Purchase(ctx context.Context, id string) (Book, error) {
	if !bs.ids.IsValid(id) {
		return Book{}, ErrOutOfStock
	}
	return bs.storage.Purchase(ctx, id)
}

// Reset removes all books. This is an administrative operation.
func (bs *BookService) Reset(ctx context.Context) error {
	if err := bs.storage.DeleteAll(ctx); err != nil {
		return fmt.Errorf("service: failed to reset books: %w", err)
	}
	bs.logger.Warn("service: all books removed")
	return nil
}

package main

import "context"

// Book represents a book entity.
type Book struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	SoldCount   int     `json:"sold_count"`
}

// NewBook carries the fields of a book creation request. Price and stock
// are pointers so that a missing field is told apart from a zero value.
type NewBook struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title" validate:"required"`
	Author      string   `json:"author" validate:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" validate:"required"`
	Stock       *int     `json:"stock" validate:"required"`
	SoldCount   int      `json:"sold_count,omitempty"`
}

// Book builds the book record of the request. Missing numbers are zero.
func (nb NewBook) Book() Book {
	book := Book{
		ID:          nb.ID,
		Title:       nb.Title,
		Author:      nb.Author,
		Description: nb.Description,
		SoldCount:   nb.SoldCount,
	}
	if nb.Price != nil {
		book.Price = *nb.Price
	}
	if nb.Stock != nil {
		book.Stock = *nb.Stock
	}
	return book
}

// BookPatch carries the fields of a partial book update.
// Only non-nil fields are applied to the stored record.
type BookPatch struct {
	Title       *string  `json:"title,omitempty"`
	Author      *string  `json:"author,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
}

// IsEmpty reports whether the patch has no field to apply.
func (p BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Description == nil && p.Price == nil && p.Stock == nil
}

// Apply returns a copy of book with the patch fields set and
// reports whether any stored value was actually changed.
func (p BookPatch) Apply(book Book) (Book, bool) {
	changed := false
	if p.Title != nil && *p.Title != book.Title {
		book.Title, changed = *p.Title, true
	}
	if p.Author != nil && *p.Author != book.Author {
		book.Author, changed = *p.Author, true
	}
	if p.Description != nil && *p.Description != book.Description {
		book.Description, changed = *p.Description, true
	}
	if p.Price != nil && *p.Price != book.Price {
		book.Price, changed = *p.Price, true
	}
	if p.Stock != nil && *p.Stock != book.Stock {
		book.Stock, changed = *p.Stock, true
	}
	return book, changed
}

// SearchFilters holds the optional criteria of a books search.
// Empty strings and nil bounds mean the criterion is absent.
type SearchFilters struct {
	Title    string
	Author   string
	MinPrice *float64
	MaxPrice *float64
}

// Match reports whether book satisfies all present criteria. Backends
// without a query language use it to filter the records they scan.
func (f SearchFilters) Match(book Book) bool {
	if f.Title != "" && !ContainsFold(book.Title, f.Title) {
		return false
	}
	if f.Author != "" && !ContainsFold(book.Author, f.Author) {
		return false
	}
	if f.MinPrice != nil && book.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && book.Price > *f.MaxPrice {
		return false
	}
	return true
}

// UpdateOutcome distinguishes an update that changed the record
// from one where the stored record already matched the patch.
type UpdateOutcome int

const (
	BookUpdated UpdateOutcome = iota + 1
	BookUnchanged
)

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	// Add inserts a new book. It fails with ErrBookConflict if the id is in use.
	Add(ctx context.Context, book Book) error
	GetOne(ctx context.Context, id string) (Book, error)
	GetAll(ctx context.Context, limit int) ([]Book, error)
	Search(ctx context.Context, filters SearchFilters, limit int) ([]Book, error)
	// Update applies the patch atomically and reports whether something changed.
	Update(ctx context.Context, id string, patch BookPatch) (bool, error)
	Delete(ctx context.Context, id string) error
	// Purchase decrements the stock and increments the sold count in a single
	// atomic step if stock is positive. It fails with ErrOutOfStock otherwise.
	Purchase(ctx context.Context, id string) (Book, error)
	DeleteAll(ctx context.Context) error
	Close(ctx context.Context) error
}

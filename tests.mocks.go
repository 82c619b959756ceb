package main

import (
	"context"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	AddFunc       func(ctx context.Context, book Book) error
	GetOneFunc    func(ctx context.Context, id string) (Book, error)
	GetAllFunc    func(ctx context.Context, limit int) ([]Book, error)
	SearchFunc    func(ctx context.Context, filters SearchFilters, limit int) ([]Book, error)
	UpdateFunc    func(ctx context.Context, id string, patch BookPatch) (bool, error)
	DeleteFunc    func(ctx context.Context, id string) error
	PurchaseFunc  func(ctx context.Context, id string) (Book, error)
	DeleteAllFunc func(ctx context.Context) error
	CloseFunc     func(ctx context.Context) error
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Add(ctx context.Context, book Book) error {
	return m.AddFunc(ctx, book)
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context, limit int) ([]Book, error) {
	return m.GetAllFunc(ctx, limit)
}

// Search mocks the behavior of filtering books by the repository.
func (m *MockBookStorage) Search(ctx context.Context, filters SearchFilters, limit int) ([]Book, error) {
	return m.SearchFunc(ctx, filters, limit)
}

// Update mocks the behavior of updating a book by the repository.
func (m *MockBookStorage) Update(ctx context.Context, id string, patch BookPatch) (bool, error) {
	return m.UpdateFunc(ctx, id, patch)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

// Purchase mocks the behavior of selling a book by the repository.
func (m *MockBookStorage) Purchase(ctx context.Context, id string) (Book, error) {
	return m.PurchaseFunc(ctx, id)
}

// DeleteAll mocks the behavior of removing all books by the repository.
func (m *MockBookStorage) DeleteAll(ctx context.Context) error {
	return m.DeleteAllFunc(ctx)
}

func (m *MockBookStorage) Close(ctx context.Context) error {
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc(ctx)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
// equals to `2023-07-02 00:00:00 +0000 UTC` in String format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// NewTicker returns a standard ticker.
func (mck *MockClocker) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate returns the predictable id to be used as mock.
func (muid *MockUIDHandler) Generate() string {
	return muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_ string) bool {
	return muid.Valid
}

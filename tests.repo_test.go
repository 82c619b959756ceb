package main

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }

// testBookStorage runs the storage behaviors every backend must share.
// The storage is expected to be empty when called.
//
//nolint:funlen
func testBookStorage(t *testing.T, store BookStorage) {
	ctx := context.Background()
	dune := Book{
		ID:          primitive.NewObjectID().Hex(),
		Title:       "Dune",
		Author:      "Frank Herbert",
		Description: "Arrakis",
		Price:       9.99,
		Stock:       3,
	}

	t.Run("Add Book", func(t *testing.T) {
		require.NoError(t, store.Add(ctx, dune))
	})

	t.Run("Add Duplicate Book", func(t *testing.T) {
		err := store.Add(ctx, dune)
		assert.ErrorIs(t, err, ErrBookConflict)
	})

	t.Run("Get Existent Book", func(t *testing.T) {
		book, err := store.GetOne(ctx, dune.ID)
		require.NoError(t, err)
		assert.Equal(t, dune, book)
	})

	t.Run("Get NonExistent Book", func(t *testing.T) {
		book, err := store.GetOne(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrBookNotFound)
		assert.Equal(t, Book{}, book)
	})

	t.Run("Purchase Book", func(t *testing.T) {
		book, err := store.Purchase(ctx, dune.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, book.Stock)
		assert.Equal(t, 1, book.SoldCount)
		assert.Equal(t, dune.Title, book.Title)
		stored, err := store.GetOne(ctx, dune.ID)
		require.NoError(t, err)
		assert.Equal(t, book, stored)
		dune = stored
	})

	t.Run("Purchase NonExistent Book", func(t *testing.T) {
		_, err := store.Purchase(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrOutOfStock)
	})

	t.Run("Update Existent Book", func(t *testing.T) {
		changed, err := store.Update(ctx, dune.ID, BookPatch{Price: floatPtr(12.5), Stock: intPtr(1)})
		require.NoError(t, err)
		assert.True(t, changed)
		book, err := store.GetOne(ctx, dune.ID)
		require.NoError(t, err)
		assert.Equal(t, 12.5, book.Price)
		assert.Equal(t, 1, book.Stock)
		assert.Equal(t, 1, book.SoldCount)
		assert.Equal(t, "Arrakis", book.Description)
		dune = book
	})

	t.Run("Update Book Unchanged", func(t *testing.T) {
		changed, err := store.Update(ctx, dune.ID, BookPatch{Title: strPtr("Dune"), Stock: intPtr(1)})
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("Update NonExistent Book", func(t *testing.T) {
		_, err := store.Update(ctx, primitive.NewObjectID().Hex(), BookPatch{Stock: intPtr(1)})
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Purchase Last Unit Concurrently", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Purchase(ctx, dune.ID)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, ErrOutOfStock)
		}
		assert.Equal(t, 1, succeeded)

		book, err := store.GetOne(ctx, dune.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, book.Stock)
		assert.Equal(t, 2, book.SoldCount)
	})

	t.Run("Search Books", func(t *testing.T) {
		others := []Book{
			{ID: primitive.NewObjectID().Hex(), Title: "Children of Dune", Author: "Frank Herbert", Price: 15, Stock: 1},
			{ID: primitive.NewObjectID().Hex(), Title: "Neuromancer", Author: "William Gibson", Price: 8, Stock: 2},
			{ID: primitive.NewObjectID().Hex(), Title: "a.b (c)", Author: "Regex Tester", Price: 1, Stock: 1},
		}
		for _, b := range others {
			require.NoError(t, store.Add(ctx, b))
		}

		books, err := store.Search(ctx, SearchFilters{Title: "dune"}, 100)
		require.NoError(t, err)
		assert.Len(t, books, 2)

		books, err = store.Search(ctx, SearchFilters{Author: "GIBSON"}, 100)
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Neuromancer", books[0].Title)

		books, err = store.Search(ctx, SearchFilters{MinPrice: floatPtr(8), MaxPrice: floatPtr(12.5)}, 100)
		require.NoError(t, err)
		assert.Len(t, books, 2)
		for _, b := range books {
			assert.GreaterOrEqual(t, b.Price, 8.0)
			assert.LessOrEqual(t, b.Price, 12.5)
		}

		books, err = store.Search(ctx, SearchFilters{Title: "dune", MaxPrice: floatPtr(13)}, 100)
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, dune.ID, books[0].ID)

		books, err = store.Search(ctx, SearchFilters{Title: "."}, 100)
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "a.b (c)", books[0].Title)

		books, err = store.Search(ctx, SearchFilters{}, 100)
		require.NoError(t, err)
		assert.Len(t, books, 4)
	})

	t.Run("Get All Books", func(t *testing.T) {
		books, err := store.GetAll(ctx, 100)
		require.NoError(t, err)
		assert.Len(t, books, 4)

		books, err = store.GetAll(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, books, 2)
	})

	t.Run("Delete Existent Book", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, dune.ID))
		_, err := store.GetOne(ctx, dune.ID)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Delete NonExistent Book", func(t *testing.T) {
		err := store.Delete(ctx, dune.ID)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Delete All Books", func(t *testing.T) {
		require.NoError(t, store.DeleteAll(ctx))
		books, err := store.GetAll(ctx, 100)
		require.NoError(t, err)
		assert.Empty(t, books)
		require.NoError(t, store.Add(ctx, dune))
	})
}

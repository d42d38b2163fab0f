package library

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AhasnaCharumee/BookMate/internal/entities"
)

func TestAggregate_CountsByStatus(t *testing.T) {
	books := []entities.Book{
		{Status: entities.BookStatusReading},
		{Status: entities.BookStatusCompleted},
		{Status: entities.BookStatusCompleted},
	}

	stats := Aggregate(books)

	assert.Equal(t, Stats{Total: 3, Reading: 1, Completed: 2, ToRead: 0}, stats)
}

func TestAggregate_EmptyCollection(t *testing.T) {
	assert.Equal(t, Stats{}, Aggregate(nil))
	assert.Equal(t, Stats{}, Aggregate([]entities.Book{}))
}

func TestSearch_MatchesTitleOrAuthor(t *testing.T) {
	books := []entities.Book{
		{ID: "1", Title: "The Go Programming Language", Author: "Donovan"},
		{ID: "2", Title: "Dune", Author: "Frank Herbert"},
		{ID: "3", Title: "Gödel, Escher, Bach", Author: "Hofstadter"},
	}

	t.Run("case-insensitive title match", func(t *testing.T) {
		got := Search(books, "go prog")
		assert.Len(t, got, 1)
		assert.Equal(t, "1", got[0].ID)
	})

	t.Run("author match", func(t *testing.T) {
		got := Search(books, "herbert")
		assert.Len(t, got, 1)
		assert.Equal(t, "2", got[0].ID)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, Search(books, "tolkien"))
	})

	t.Run("empty query returns everything", func(t *testing.T) {
		assert.Len(t, Search(books, "  "), 3)
	})
}

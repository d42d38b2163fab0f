package library

import (
	"strings"

	"github.com/AhasnaCharumee/BookMate/internal/entities"
)

// Search filters an already-fetched collection by case-insensitive
// substring match against title or author. An empty query returns the
// input unchanged.
func Search(books []entities.Book, query string) []entities.Book {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return books
	}

	matched := make([]entities.Book, 0, len(books))
	for _, book := range books {
		if strings.Contains(strings.ToLower(book.Title), query) ||
			strings.Contains(strings.ToLower(book.Author), query) {
			matched = append(matched, book)
		}
	}
	return matched
}

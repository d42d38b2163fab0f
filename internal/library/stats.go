// Package library provides read-only derivations over a fetched book
// collection. Both operations are full scans, which is acceptable at
// personal-library scale; larger collections would need server-side
// filtering instead.
package library

import "github.com/AhasnaCharumee/BookMate/internal/entities"

// Stats holds per-status counts for a user's collection.
type Stats struct {
	Total     int `json:"total"`
	Reading   int `json:"reading"`
	Completed int `json:"completed"`
	ToRead    int `json:"toRead"`
}

// Aggregate group-counts books by reading status. An empty collection
// yields all zeros.
func Aggregate(books []entities.Book) Stats {
	stats := Stats{Total: len(books)}
	for _, book := range books {
		switch book.Status {
		case entities.BookStatusReading:
			stats.Reading++
		case entities.BookStatusCompleted:
			stats.Completed++
		case entities.BookStatusToRead:
			stats.ToRead++
		}
	}
	return stats
}

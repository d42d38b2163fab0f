package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AhasnaCharumee/BookMate/internal/database/books"
	"github.com/AhasnaCharumee/BookMate/internal/library"
	"github.com/AhasnaCharumee/BookMate/internal/patch"
)

// Auditor records book mutations for the audit trail.
type Auditor interface {
	LogBookMutation(userID, action, bookID, description string, err error)
}

// BooksController serves the book collection API.
type BooksController struct {
	repo    *books.Repository
	auditor Auditor
}

// NewBooksController creates a books controller.
func NewBooksController(repo *books.Repository, auditor Auditor) *BooksController {
	return &BooksController{
		repo:    repo,
		auditor: auditor,
	}
}

// List handles GET /api/books.
// Supports an optional "q" query parameter for title/author search.
func (b *BooksController) List(c *gin.Context) {
	userID := GetUserID(c)

	all, err := b.repo.ListAll(c.Request.Context(), userID)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	if query := c.Query("q"); query != "" {
		all = library.Search(all, query)
	}

	c.JSON(http.StatusOK, all)
}

// Get handles GET /api/books/:id.
func (b *BooksController) Get(c *gin.Context) {
	userID := GetUserID(c)
	bookID := c.Param("id")

	book, err := b.repo.Get(c.Request.Context(), userID, bookID)
	if err != nil {
		respondRepositoryError(c, err, "get book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// Create handles POST /api/books.
func (b *BooksController) Create(c *gin.Context) {
	userID := GetUserID(c)

	var input books.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid book payload: "+err.Error())
		return
	}

	bookID, err := b.repo.Add(c.Request.Context(), userID, input)
	if b.auditor != nil {
		b.auditor.LogBookMutation(userID, "add", bookID, input.Title, err)
	}
	if err != nil {
		respondRepositoryError(c, err, "add book")
		return
	}

	book, err := b.repo.Get(c.Request.Context(), userID, bookID)
	if err != nil {
		respondRepositoryError(c, err, "load created book")
		return
	}

	respondCreated(c, book)
}

// Update handles PATCH /api/books/:id.
// Fields absent from the payload are left untouched; fields set to null
// are cleared.
func (b *BooksController) Update(c *gin.Context) {
	userID := GetUserID(c)
	bookID := c.Param("id")

	var p patch.Book
	if err := c.ShouldBindJSON(&p); err != nil {
		respondBadRequest(c, "invalid book payload: "+err.Error())
		return
	}

	err := b.repo.Update(c.Request.Context(), userID, bookID, p)
	if b.auditor != nil {
		b.auditor.LogBookMutation(userID, "update", bookID, "", err)
	}
	if err != nil {
		respondRepositoryError(c, err, "update book")
		return
	}

	book, err := b.repo.Get(c.Request.Context(), userID, bookID)
	if err != nil {
		respondRepositoryError(c, err, "load updated book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// Delete handles DELETE /api/books/:id.
func (b *BooksController) Delete(c *gin.Context) {
	userID := GetUserID(c)
	bookID := c.Param("id")

	err := b.repo.Delete(c.Request.Context(), userID, bookID)
	if b.auditor != nil {
		b.auditor.LogBookMutation(userID, "delete", bookID, "", err)
	}
	if err != nil {
		respondRepositoryError(c, err, "delete book")
		return
	}

	respondSuccess(c, "book deleted")
}

// Stats handles GET /api/books/stats.
func (b *BooksController) Stats(c *gin.Context) {
	userID := GetUserID(c)

	stats, err := b.repo.Stats(c.Request.Context(), userID)
	if err != nil {
		respondInternalError(c, err, "book stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

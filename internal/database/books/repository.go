// Package books provides owner-scoped CRUD and listing for book records.
//
// Writes follow a two-phase pattern: the record mutation commits first,
// then any local cover references are resolved to remote URLs and patched
// back best-effort. A failed cover upload never fails the record write and
// a local device path never lands in a persisted record.
package books

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AhasnaCharumee/BookMate/internal/covers"
	"github.com/AhasnaCharumee/BookMate/internal/entities"
	"github.com/AhasnaCharumee/BookMate/internal/library"
	"github.com/AhasnaCharumee/BookMate/internal/patch"
)

// Uploader resolves a local cover reference into a durable remote URL.
type Uploader interface {
	Upload(ctx context.Context, userID, bookID, localURI string, slot covers.Slot) (string, error)
}

// CoverRetrier hands a failed cover upload to an asynchronous
// reconciliation queue. Optional.
type CoverRetrier interface {
	EnqueueAttachCover(userID, bookID, localURI string, slot covers.Slot) error
}

// UploadAuditor records failed cover uploads in the audit trail. Optional.
type UploadAuditor interface {
	LogUploadFailure(userID, bookID, slot string, err error)
}

// Input holds the caller-supplied fields for a new book. Cover fields may
// transiently hold local file references; those are resolved by the upload
// pipeline and never persisted as-is.
type Input struct {
	Title            string              `json:"title" binding:"required"`
	Author           string              `json:"author" binding:"required"`
	Status           entities.BookStatus `json:"status"`
	Genre            string              `json:"genre"`
	Description      string              `json:"description"`
	FrontCoverURI    string              `json:"frontCoverUri"`
	BackCoverURI     string              `json:"backCoverUri"`
	IsLent           bool                `json:"isLent"`
	LentTo           string              `json:"lentTo"`
	ExpectedReturnAt string              `json:"expectedReturnAt"`
}

// Repository handles all book database operations, scoped to an owning
// user on every call.
type Repository struct {
	db       *gorm.DB
	uploader Uploader
	retrier  CoverRetrier
	auditor  UploadAuditor
}

// NewRepository creates a new books repository. The uploader may be nil,
// in which case local cover references are silently dropped.
func NewRepository(db *gorm.DB, uploader Uploader) *Repository {
	return &Repository{db: db, uploader: uploader}
}

// SetRetrier wires the asynchronous cover reconciliation queue.
func (r *Repository) SetRetrier(retrier CoverRetrier) {
	r.retrier = retrier
}

// SetAuditor wires the audit trail for upload failures.
func (r *Repository) SetAuditor(auditor UploadAuditor) {
	r.auditor = auditor
}

// ListAll returns every book owned by the user, newest update first.
// A user with no books yet is a legitimate state and yields an empty
// slice, never an error — including when the schema has not been
// provisioned at all.
func (r *Repository) ListAll(ctx context.Context, userID string) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&books).Error
	if err != nil {
		if isMissingNamespace(err) {
			return []entities.Book{}, nil
		}
		return nil, fmt.Errorf("failed to fetch books: %w", err)
	}
	if books == nil {
		books = []entities.Book{}
	}
	return books, nil
}

// Get retrieves a single book, verifying the stored owner.
func (r *Repository) Get(ctx context.Context, userID, bookID string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).First(&book, "id = ?", bookID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch book: %w", err)
	}
	if book.UserID != userID {
		return nil, ErrUnauthorized
	}
	return &book, nil
}

// Add creates a book record and returns its generated id.
//
// Phase one inserts the sanitized record with repository-generated
// timestamps. Phase two uploads any local cover references using the new
// id and patches the record with the resulting remote URLs; its failure is
// non-fatal and leaves the cover field absent.
func (r *Repository) Add(ctx context.Context, userID string, input Input) (string, error) {
	if err := validateInput(input); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	book := entities.Book{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       input.Title,
		Author:      input.Author,
		Status:      input.Status,
		Genre:       input.Genre,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Only already-remote URLs are persisted in phase one; local
	// references are held back for the upload pipeline.
	pending := make(map[covers.Slot]string)
	if input.FrontCoverURI != "" {
		if covers.IsRemoteURL(input.FrontCoverURI) {
			book.FrontCoverURI = input.FrontCoverURI
		} else {
			pending[covers.SlotFront] = input.FrontCoverURI
		}
	}
	if input.BackCoverURI != "" {
		if covers.IsRemoteURL(input.BackCoverURI) {
			book.BackCoverURI = input.BackCoverURI
		} else {
			pending[covers.SlotBack] = input.BackCoverURI
		}
	}

	if input.IsLent {
		book.IsLent = true
		if input.LentTo != "" {
			book.LentTo = &input.LentTo
		}
		lentAt := now
		book.LentAt = &lentAt
		if input.ExpectedReturnAt != "" {
			book.ExpectedReturnAt = &input.ExpectedReturnAt
		}
	}

	if err := r.db.WithContext(ctx).Create(&book).Error; err != nil {
		return "", fmt.Errorf("failed to add book: %w", err)
	}

	r.attachCovers(ctx, userID, book.ID, pending)

	return book.ID, nil
}

// Update applies a partial update to an existing book. Omitted fields stay
// untouched; explicit nulls clear. The same two-phase cover handling as
// Add applies to any cover field set to a local reference.
func (r *Repository) Update(ctx context.Context, userID, bookID string, p patch.Book) error {
	if _, err := r.Get(ctx, userID, bookID); err != nil {
		return err
	}

	changes := p.Changes()
	if err := validateChanges(changes); err != nil {
		return err
	}

	// Cover fields set to a local reference are stripped from the record
	// write and resolved by the pipeline afterwards.
	pending := make(map[covers.Slot]string)
	for slot, column := range coverColumns {
		ref, ok := changes[column].(string)
		if ok && ref != "" && !covers.IsRemoteURL(ref) {
			pending[slot] = ref
			delete(changes, column)
		}
	}

	// Ending a lending episode clears every lending field, never leaving
	// them stale; starting one stamps lent_at when the caller did not.
	// A null is_lent means "not lent": the column stays a real bool.
	if raw, present := changes["is_lent"]; present {
		lent, _ := raw.(bool)
		if raw == nil {
			changes["is_lent"] = false
		}
		if !lent {
			changes["lent_to"] = nil
			changes["lent_at"] = nil
			changes["expected_return_at"] = nil
		} else if _, set := changes["lent_at"]; !set {
			changes["lent_at"] = time.Now().UTC()
		}
	}

	if len(changes) == 0 && len(pending) == 0 {
		return nil
	}

	if len(changes) > 0 {
		changes["updated_at"] = time.Now().UTC()
		err := r.db.WithContext(ctx).
			Model(&entities.Book{}).
			Where("id = ? AND user_id = ?", bookID, userID).
			Updates(changes).Error
		if err != nil {
			return fmt.Errorf("failed to update book: %w", err)
		}
	}

	r.attachCovers(ctx, userID, bookID, pending)

	return nil
}

// Delete permanently removes a book record. Previously uploaded cover
// objects are not cascade-deleted; orphans are an accepted trade-off.
func (r *Repository) Delete(ctx context.Context, userID, bookID string) error {
	if _, err := r.Get(ctx, userID, bookID); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", bookID, userID).
		Delete(&entities.Book{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}

// Stats derives per-status counts from the current collection. There is no
// persisted aggregate: the result is always consistent with the record set
// at the cost of a full scan.
func (r *Repository) Stats(ctx context.Context, userID string) (library.Stats, error) {
	books, err := r.ListAll(ctx, userID)
	if err != nil {
		return library.Stats{}, err
	}
	return library.Aggregate(books), nil
}

// AttachCover uploads a single local cover reference and patches the
// record with the resulting URL. Used by the reconciliation queue; unlike
// the inline phase-two handling, the error is returned so the queue can
// retry. A book deleted in the meantime stops the retries silently.
func (r *Repository) AttachCover(ctx context.Context, userID, bookID, localURI string, slot covers.Slot) error {
	if r.uploader == nil {
		return fmt.Errorf("no uploader configured")
	}

	_, err := r.Get(ctx, userID, bookID)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) {
		log.Printf("Skipping cover attach for book %s: %v", bookID, err)
		return nil
	}
	if err != nil {
		return err
	}

	url, err := r.uploader.Upload(ctx, userID, bookID, localURI, slot)
	if err != nil {
		return err
	}

	return r.patchCovers(ctx, userID, bookID, map[string]any{coverColumns[slot]: url})
}

var coverColumns = map[covers.Slot]string{
	covers.SlotFront: "front_cover_uri",
	covers.SlotBack:  "back_cover_uri",
}

// attachCovers is the best-effort second phase of Add/Update: front and
// back uploads run concurrently, and both complete before the single
// record patch that references them. Failures are logged, audited and
// handed to the reconciliation queue; they never surface to the caller.
func (r *Repository) attachCovers(ctx context.Context, userID, bookID string, pending map[covers.Slot]string) {
	if len(pending) == 0 {
		return
	}
	if r.uploader == nil {
		log.Printf("No cover uploader configured, dropping %d local cover reference(s) for book %s", len(pending), bookID)
		return
	}

	var mu sync.Mutex
	resolved := make(map[string]any)

	var wg sync.WaitGroup
	for slot, localURI := range pending {
		wg.Add(1)
		go func(slot covers.Slot, localURI string) {
			defer wg.Done()
			url, err := r.uploader.Upload(ctx, userID, bookID, localURI, slot)
			if err != nil {
				log.Printf("Cover upload failed for book %s (%s): %v", bookID, slot, err)
				if r.auditor != nil {
					r.auditor.LogUploadFailure(userID, bookID, string(slot), err)
				}
				if r.retrier != nil {
					if qerr := r.retrier.EnqueueAttachCover(userID, bookID, localURI, slot); qerr != nil {
						log.Printf("Failed to enqueue cover retry for book %s (%s): %v", bookID, slot, qerr)
					}
				}
				return
			}
			mu.Lock()
			resolved[coverColumns[slot]] = url
			mu.Unlock()
		}(slot, localURI)
	}
	wg.Wait()

	if len(resolved) == 0 {
		return
	}
	if err := r.patchCovers(ctx, userID, bookID, resolved); err != nil {
		log.Printf("Failed to patch cover URLs for book %s: %v", bookID, err)
	}
}

func (r *Repository) patchCovers(ctx context.Context, userID, bookID string, resolved map[string]any) error {
	resolved["updated_at"] = time.Now().UTC()
	err := r.db.WithContext(ctx).
		Model(&entities.Book{}).
		Where("id = ? AND user_id = ?", bookID, userID).
		Updates(resolved).Error
	if err != nil {
		return fmt.Errorf("failed to patch cover urls: %w", err)
	}
	return nil
}

func validateInput(input Input) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(input.Author) == "" {
		return fmt.Errorf("%w: author is required", ErrValidation)
	}
	if input.Status == "" || !input.Status.Valid() {
		return fmt.Errorf("%w: status must be to-read, reading or completed", ErrValidation)
	}
	return nil
}

func validateChanges(changes map[string]any) error {
	if title, ok := changes["title"]; ok {
		s, isString := title.(string)
		if !isString || strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: title cannot be cleared", ErrValidation)
		}
	}
	if author, ok := changes["author"]; ok {
		s, isString := author.(string)
		if !isString || strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: author cannot be cleared", ErrValidation)
		}
	}
	if status, ok := changes["status"]; ok {
		s, isStatus := status.(entities.BookStatus)
		if !isStatus || !s.Valid() {
			return fmt.Errorf("%w: status must be to-read, reading or completed", ErrValidation)
		}
	}
	return nil
}

// isMissingNamespace recognizes the "schema not provisioned yet" failure
// mode, which listing treats as an empty collection. Only the books table
// qualifies; any other missing table is a real error.
func isMissingNamespace(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table: books")
}

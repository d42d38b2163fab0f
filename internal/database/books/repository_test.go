package books

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AhasnaCharumee/BookMate/internal/covers"
	"github.com/AhasnaCharumee/BookMate/internal/entities"
	"github.com/AhasnaCharumee/BookMate/internal/library"
	"github.com/AhasnaCharumee/BookMate/internal/patch"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	dbPath := "./test_books_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Book{}))

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

// fakeUploader resolves local references to deterministic remote URLs and
// records every call.
type fakeUploader struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (f *fakeUploader) Upload(ctx context.Context, userID, bookID, localURI string, slot covers.Slot) (string, error) {
	if covers.IsRemoteURL(localURI) {
		return localURI, nil
	}
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("%s/%s/%s", bookID, slot, localURI))
	f.mu.Unlock()
	if f.fail {
		return "", covers.ErrUploadFailed
	}
	return fmt.Sprintf("https://cdn.test/users/%s/books/%s/%s.jpg", userID, bookID, slot), nil
}

type fakeRetrier struct {
	mu       sync.Mutex
	enqueued []string
}

func (f *fakeRetrier) EnqueueAttachCover(userID, bookID, localURI string, slot covers.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, fmt.Sprintf("%s/%s", bookID, slot))
	return nil
}

type fakeAuditor struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeAuditor) LogUploadFailure(userID, bookID, slot string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, fmt.Sprintf("%s/%s", bookID, slot))
}

func validInput() Input {
	return Input{Title: "Dune", Author: "Frank Herbert", Status: entities.BookStatusToRead}
}

func TestRepository_AddAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, &fakeUploader{})
	ctx := context.Background()

	id, err := repo.Add(ctx, "user-1", validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	book, err := repo.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, entities.BookStatusToRead, book.Status)
	assert.False(t, book.CreatedAt.IsZero())
	assert.True(t, book.CreatedAt.Equal(book.UpdatedAt))
}

func TestRepository_AddValidation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, &fakeUploader{})
	ctx := context.Background()

	t.Run("missing title", func(t *testing.T) {
		input := validInput()
		input.Title = "  "
		_, err := repo.Add(ctx, "user-1", input)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("missing author", func(t *testing.T) {
		input := validInput()
		input.Author = ""
		_, err := repo.Add(ctx, "user-1", input)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("bad status", func(t *testing.T) {
		input := validInput()
		input.Status = "abandoned"
		_, err := repo.Add(ctx, "user-1", input)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestRepository_GetOwnership(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, &fakeUploader{})
	ctx := context.Background()

	id, err := repo.Add(ctx, "user-1", validInput())
	require.NoError(t, err)

	t.Run("other user's id is unauthorized", func(t *testing.T) {
		_, err := repo.Get(ctx, "user-2", id)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "user-1", "no-such-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRepository_ListAll(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, &fakeUploader{})
	ctx := context.Background()

	t.Run("zero books yields empty slice", func(t *testing.T) {
		books, err := repo.ListAll(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)
	})

	t.Run("sorted by updated_at descending and owner-scoped", func(t *testing.T) {
		first, err := repo.Add(ctx, "user-1", Input{Title: "Older", Author: "A", Status: entities.BookStatusToRead})
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
		second, err := repo.Add(ctx, "user-1", Input{Title: "Newer", Author: "B", Status: entities.BookStatusToRead})
		require.NoError(t, err)
		_, err = repo.Add(ctx, "user-2", Input{Title: "Else", Author: "C", Status: entities.BookStatusToRead})
		require.NoError(t, err)

		books, err := repo.ListAll(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, books, 2)
		assert.Equal(t, second, books[0].ID)
		assert.Equal(t, first, books[1].ID)

		// Updating the older record moves it to the front.
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, repo.Update(ctx, "user-1", first, patch.Book{Status: patch.Set(entities.BookStatusReading)}))

		books, err = repo.ListAll(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, first, books[0].ID)
	})
}

func TestRepository_ListAllMissingSchema(t *testing.T) {
	dbPath := "./test_books_noschema.db"
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}()

	repo := NewRepository(db, &fakeUploader{})

	books, err := repo.ListAll(context.Background(), "user-1")
	require.NoError(t, err, "an unprovisioned schema is a legitimate empty state")
	assert.Empty(t, books)
}

func TestIsMissingNamespace(t *testing.T) {
	assert.True(t, isMissingNamespace(fmt.Errorf("no such table: books")))
	assert.False(t, isMissingNamespace(fmt.Errorf("no such table: audit_events")))
	assert.False(t, isMissingNamespace(fmt.Errorf("database is locked")))
	assert.False(t, isMissingNamespace(nil))
}

func TestRepository_UpdatePartial(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, &fakeUploader{})
	ctx := context.Background()

	id, err := repo.Add(ctx, "user-1", validInput())
	require.NoError(t, err)
	before, err := repo.Get(ctx, "user-1", id)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	err = repo.Update(ctx, "user-1", id, patch.Book{Title: patch.Set("New Title")})
	require.NoError(t, err)

	book, err := repo.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.Equal(t, "New Title", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author, "omitted author must survive the update")
	assert.True(t, book.UpdatedAt.After(before.UpdatedAt), "updated_at must increase on mutation")
	assert.True(t, book.CreatedAt.Equal(before.CreatedAt), "created_at is immutable")
}

func TestRepository_UpdateValidation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, &fakeUploader{})
	ctx := context.Background()

	id, err := repo.Add(ctx, "user-1", validInput())
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Update(ctx, "user-1", id, patch.Book{Title: patch.Null[string]()}), ErrValidation)
	assert.ErrorIs(t, repo.Update(ctx, "user-1", id, patch.Book{Author: patch.Set("  ")}), ErrValidation)
	assert.ErrorIs(t, repo.Update(ctx, "user-1", id, patch.Book{Status: patch.Set(entities.BookStatus("dnf"))}), ErrValidation)
}

func TestRepository_LendingLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, &fakeUploader{})
	ctx := context.Background()

	id, err := repo.Add(ctx, "user-1", validInput())
	require.NoError(t, err)

	// Start lending: lent_at is stamped by the repository.
	err = repo.Update(ctx, "user-1", id, patch.Book{
		IsLent:           patch.Set(true),
		LentTo:           patch.Set("Sahan"),
		ExpectedReturnAt: patch.Set("2026-02-28"),
	})
	require.NoError(t, err)

	book, err := repo.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.True(t, book.IsLent)
	require.NotNil(t, book.LentTo)
	assert.Equal(t, "Sahan", *book.LentTo)
	assert.NotNil(t, book.LentAt)
	require.NotNil(t, book.ExpectedReturnAt)
	assert.Equal(t, "2026-02-28", *book.ExpectedReturnAt)

	// Ending the episode clears every lending field even though the
	// caller only flipped the flag.
	err = repo.Update(ctx, "user-1", id, patch.Book{IsLent: patch.Set(false)})
	require.NoError(t, err)

	book, err = repo.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.False(t, book.IsLent)
	assert.Nil(t, book.LentTo)
	assert.Nil(t, book.LentAt)
	assert.Nil(t, book.ExpectedReturnAt)
}

func TestRepository_LendingClearedByNullFlag(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, &fakeUploader{})
	ctx := context.Background()

	id, err := repo.Add(ctx, "user-1", validInput())
	require.NoError(t, err)

	err = repo.Update(ctx, "user-1", id, patch.Book{
		IsLent: patch.Set(true),
		LentTo: patch.Set("Sahan"),
	})
	require.NoError(t, err)

	// Clearing the flag with an explicit null still ends the episode:
	// the flag reads back false and no lending field survives.
	err = repo.Update(ctx, "user-1", id, patch.Book{IsLent: patch.Null[bool]()})
	require.NoError(t, err)

	book, err := repo.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.False(t, book.IsLent)
	assert.Nil(t, book.LentTo)
	assert.Nil(t, book.LentAt)
	assert.Nil(t, book.ExpectedReturnAt)
}

func TestRepository_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, &fakeUploader{})
	ctx := context.Background()

	id, err := repo.Add(ctx, "user-1", validInput())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "user-1", id))

	_, err = repo.Get(ctx, "user-1", id)
	assert.ErrorIs(t, err, ErrNotFound)

	t.Run("deleting a nonexistent book is not silent", func(t *testing.T) {
		assert.ErrorIs(t, repo.Delete(ctx, "user-1", id), ErrNotFound)
	})

	t.Run("deleting another user's book is unauthorized", func(t *testing.T) {
		otherID, err := repo.Add(ctx, "user-2", validInput())
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Delete(ctx, "user-1", otherID), ErrUnauthorized)
	})
}

func TestRepository_Stats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, &fakeUploader{})
	ctx := context.Background()

	for _, status := range []entities.BookStatus{
		entities.BookStatusReading,
		entities.BookStatusCompleted,
		entities.BookStatusCompleted,
	} {
		_, err := repo.Add(ctx, "user-1", Input{Title: "T", Author: "A", Status: status})
		require.NoError(t, err)
	}

	stats, err := repo.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, library.Stats{Total: 3, Reading: 1, Completed: 2, ToRead: 0}, stats)

	empty, err := repo.Stats(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, library.Stats{}, empty)
}

func TestRepository_ConcurrentAdds(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, &fakeUploader{})
	ctx := context.Background()

	const n = 8
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = repo.Add(ctx, "user-1", Input{
				Title:  fmt.Sprintf("Book %d", i),
				Author: "A",
				Status: entities.BookStatusToRead,
			})
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[ids[i]], "concurrent adds must produce distinct ids")
		seen[ids[i]] = true
	}

	books, err := repo.ListAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, books, n)
}

func TestRepository_AddWithLocalCover(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	uploader := &fakeUploader{}
	repo := NewRepository(db, uploader)
	ctx := context.Background()

	input := validInput()
	input.FrontCoverURI = "file:///tmp/front.jpg"
	input.BackCoverURI = "file:///tmp/back.jpg"

	id, err := repo.Add(ctx, "user-1", input)
	require.NoError(t, err)

	book, err := repo.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("https://cdn.test/users/user-1/books/%s/front.jpg", id), book.FrontCoverURI)
	assert.Equal(t, fmt.Sprintf("https://cdn.test/users/user-1/books/%s/back.jpg", id), book.BackCoverURI)
	assert.Len(t, uploader.calls, 2, "both slots must be uploaded")
}

func TestRepository_AddRemoteCoverNeedsNoUpload(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	uploader := &fakeUploader{}
	repo := NewRepository(db, uploader)
	ctx := context.Background()

	input := validInput()
	input.FrontCoverURI = "https://cdn.example.com/front.jpg"

	id, err := repo.Add(ctx, "user-1", input)
	require.NoError(t, err)

	book, err := repo.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/front.jpg", book.FrontCoverURI)
	assert.Empty(t, uploader.calls)
}

func TestRepository_UploadFailureIsNonFatal(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	uploader := &fakeUploader{fail: true}
	retrier := &fakeRetrier{}
	auditor := &fakeAuditor{}
	repo := NewRepository(db, uploader)
	repo.SetRetrier(retrier)
	repo.SetAuditor(auditor)
	ctx := context.Background()

	input := validInput()
	input.FrontCoverURI = "file:///tmp/front.jpg"

	id, err := repo.Add(ctx, "user-1", input)
	require.NoError(t, err, "a failed upload must not fail the add")

	book, err := repo.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.Empty(t, book.FrontCoverURI, "no local path may land in the record")
	assert.Equal(t, []string{id + "/front"}, retrier.enqueued, "failure goes to the reconciliation queue")
	assert.Equal(t, []string{id + "/front"}, auditor.events, "failure lands in the audit trail")
}

func TestRepository_AttachCover(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	uploader := &fakeUploader{}
	repo := NewRepository(db, uploader)
	ctx := context.Background()

	id, err := repo.Add(ctx, "user-1", validInput())
	require.NoError(t, err)

	require.NoError(t, repo.AttachCover(ctx, "user-1", id, "file:///tmp/front.jpg", covers.SlotFront))

	book, err := repo.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.NotEmpty(t, book.FrontCoverURI)

	t.Run("upload failure propagates for retry", func(t *testing.T) {
		failing := NewRepository(db, &fakeUploader{fail: true})
		err := failing.AttachCover(ctx, "user-1", id, "file:///tmp/front.jpg", covers.SlotFront)
		assert.ErrorIs(t, err, covers.ErrUploadFailed)
	})

	t.Run("deleted book stops retries without error", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "user-1", id))
		err := repo.AttachCover(ctx, "user-1", id, "file:///tmp/front.jpg", covers.SlotFront)
		assert.NoError(t, err)
	})
}

func TestRepository_UpdateWithLocalCover(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	uploader := &fakeUploader{}
	repo := NewRepository(db, uploader)
	ctx := context.Background()

	id, err := repo.Add(ctx, "user-1", validInput())
	require.NoError(t, err)

	err = repo.Update(ctx, "user-1", id, patch.Book{FrontCoverURI: patch.Set("file:///tmp/retake.jpg")})
	require.NoError(t, err)

	book, err := repo.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(book.FrontCoverURI, "https://"), "persisted cover must be a remote URL, got %q", book.FrontCoverURI)
}

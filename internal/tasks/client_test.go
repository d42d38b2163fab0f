package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AhasnaCharumee/BookMate/internal/covers"
)

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	// Verify tasks database was created
	tasksDBPath := filepath.Join(tmpDir, "test-tasks.db")
	_, err = os.Stat(tasksDBPath)
	assert.NoError(t, err, "tasks database should be created")

	err = client.Close()
	assert.NoError(t, err)
}

func TestClientStartStop(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Start(ctx)

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	success := client.Stop(stopCtx)
	assert.True(t, success, "stop should succeed gracefully")
}

type fakeAttacher struct {
	calls []string
	err   error
}

func (f *fakeAttacher) AttachCover(_ context.Context, userID, bookID, localURI string, slot covers.Slot) error {
	f.calls = append(f.calls, userID+"/"+bookID+"/"+string(slot)+"/"+localURI)
	return f.err
}

func TestAttachCoverProcessor(t *testing.T) {
	t.Run("delegates to attacher", func(t *testing.T) {
		attacher := &fakeAttacher{}
		proc := AttachCoverProcessor(attacher)

		err := proc(context.Background(), AttachCoverTask{
			UserID:   "user-1",
			BookID:   "book-1",
			LocalURI: "/tmp/cover.jpg",
			Slot:     "front",
		})
		require.NoError(t, err)
		require.Len(t, attacher.calls, 1)
		assert.Equal(t, "user-1/book-1/front//tmp/cover.jpg", attacher.calls[0])
	})

	t.Run("propagates attach failure for retry", func(t *testing.T) {
		attacher := &fakeAttacher{err: errors.New("storage offline")}
		proc := AttachCoverProcessor(attacher)

		err := proc(context.Background(), AttachCoverTask{
			UserID: "user-1",
			BookID: "book-1",
			Slot:   "back",
		})
		assert.Error(t, err)
	})

	t.Run("drops invalid slot without retry", func(t *testing.T) {
		attacher := &fakeAttacher{}
		proc := AttachCoverProcessor(attacher)

		err := proc(context.Background(), AttachCoverTask{
			UserID: "user-1",
			BookID: "book-1",
			Slot:   "sideways",
		})
		assert.NoError(t, err)
		assert.Empty(t, attacher.calls)
	})
}

type fakeCleaner struct {
	retention time.Duration
	deleted   int64
	err       error
}

func (f *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.retention = retention
	return f.deleted, f.err
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	t.Run("uses configured retention", func(t *testing.T) {
		cleaner := &fakeCleaner{deleted: 3}
		proc := CleanupAuditEventsProcessor(cleaner)

		err := proc(context.Background(), CleanupAuditEventsTask{RetentionDays: 7})
		require.NoError(t, err)
		assert.Equal(t, 7*24*time.Hour, cleaner.retention)
	})

	t.Run("defaults retention to 30 days", func(t *testing.T) {
		cleaner := &fakeCleaner{}
		proc := CleanupAuditEventsProcessor(cleaner)

		err := proc(context.Background(), CleanupAuditEventsTask{})
		require.NoError(t, err)
		assert.Equal(t, 30*24*time.Hour, cleaner.retention)
	})

	t.Run("propagates delete failure", func(t *testing.T) {
		cleaner := &fakeCleaner{err: errors.New("database locked")}
		proc := CleanupAuditEventsProcessor(cleaner)

		err := proc(context.Background(), CleanupAuditEventsTask{})
		assert.Error(t, err)
	})
}

package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynguyen020304/pz-manager-sub001/internal/logging"
	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
	"github.com/duynguyen020304/pz-manager-sub001/internal/repository"
)

// fakeLogStore is an in-memory LogStore with per-method error injection.
type fakeLogStore struct {
	positions map[string]*models.LogFilePosition

	backupLogs   []*models.BackupLogEntry
	playerEvents []*models.PZPlayerEvent
	serverEvents []*models.PZServerEvent
	chatMessages []*models.PZChatMessage
	pvpEvents    []*models.PZPVPEvent
	snapshots    []*models.PZSkillSnapshot

	insertErr   error
	positionErr error
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{positions: make(map[string]*models.LogFilePosition)}
}

func (f *fakeLogStore) GetPosition(ctx context.Context, filePath string) (*models.LogFilePosition, error) {
	if f.positionErr != nil {
		return nil, f.positionErr
	}
	pos, ok := f.positions[filePath]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return pos, nil
}

func (f *fakeLogStore) UpsertPosition(ctx context.Context, pos *models.LogFilePosition) error {
	if f.positionErr != nil {
		return f.positionErr
	}
	f.positions[pos.FilePath] = pos
	return nil
}

func (f *fakeLogStore) InsertBackupLog(ctx context.Context, e *models.BackupLogEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.backupLogs = append(f.backupLogs, e)
	return nil
}

func (f *fakeLogStore) InsertPlayerEvent(ctx context.Context, e *models.PZPlayerEvent) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.playerEvents = append(f.playerEvents, e)
	return nil
}

func (f *fakeLogStore) InsertServerEvent(ctx context.Context, e *models.PZServerEvent) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.serverEvents = append(f.serverEvents, e)
	return nil
}

func (f *fakeLogStore) InsertChatMessage(ctx context.Context, e *models.PZChatMessage) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.chatMessages = append(f.chatMessages, e)
	return nil
}

func (f *fakeLogStore) InsertPVPEvent(ctx context.Context, e *models.PZPVPEvent) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.pvpEvents = append(f.pvpEvents, e)
	return nil
}

func (f *fakeLogStore) InsertSkillSnapshot(ctx context.Context, e *models.PZSkillSnapshot) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.snapshots = append(f.snapshots, e)
	return nil
}

func (f *fakeLogStore) BackupLogs(ctx context.Context, q models.LogQuery) ([]*models.BackupLogEntry, int, error) {
	return f.backupLogs, len(f.backupLogs), nil
}

func (f *fakeLogStore) PlayerEvents(ctx context.Context, q models.LogQuery) ([]*models.PZPlayerEvent, int, error) {
	return f.playerEvents, len(f.playerEvents), nil
}

func (f *fakeLogStore) ServerEvents(ctx context.Context, q models.LogQuery) ([]*models.PZServerEvent, int, error) {
	return f.serverEvents, len(f.serverEvents), nil
}

func (f *fakeLogStore) ChatMessages(ctx context.Context, q models.LogQuery) ([]*models.PZChatMessage, int, error) {
	return f.chatMessages, len(f.chatMessages), nil
}

func (f *fakeLogStore) PVPEvents(ctx context.Context, q models.LogQuery) ([]*models.PZPVPEvent, int, error) {
	return f.pvpEvents, len(f.pvpEvents), nil
}

func (f *fakeLogStore) SkillSnapshots(ctx context.Context, q models.LogQuery) ([]*models.PZSkillSnapshot, int, error) {
	return f.snapshots, len(f.snapshots), nil
}

func (f *fakeLogStore) UnifiedSince(ctx context.Context, server string, sources []models.Source, since *time.Time, limit int) ([]*models.UnifiedLogEntry, error) {
	return nil, nil
}

func (f *fakeLogStore) Close() error { return nil }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func appendToFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(content)
	require.NoError(t, err)
}

func TestParseAndIngestFileFirstRead(t *testing.T) {
	store := newFakeLogStore()
	m := NewManager(store, logging.Default())

	path := filepath.Join(t.TempDir(), "chat.txt")
	content := "[12:00] Alice: hello\n"
	writeFile(t, path, content)

	res, err := m.ParseAndIngestFile(context.Background(), path, models.KindChat, "alpha")
	require.NoError(t, err)

	assert.Equal(t, 1, res.EntriesAdded)
	assert.Equal(t, int64(len(content)), res.BytesProcessed)
	require.Len(t, store.chatMessages, 1)
	assert.Equal(t, "Alice", store.chatMessages[0].Username)
	assert.Equal(t, "alpha", store.chatMessages[0].Server)

	pos := store.positions[path]
	require.NotNil(t, pos)
	assert.Equal(t, int64(len(content)), pos.LastPosition)
	assert.Equal(t, models.KindChat, pos.Parser)
}

func TestParseAndIngestFileIncremental(t *testing.T) {
	store := newFakeLogStore()
	m := NewManager(store, logging.Default())

	path := filepath.Join(t.TempDir(), "chat.txt")
	first := "[12:00] Alice: hello\n"
	writeFile(t, path, first)

	_, err := m.ParseAndIngestFile(context.Background(), path, models.KindChat, "alpha")
	require.NoError(t, err)

	second := "[12:01] Bob: hi back\n"
	appendToFile(t, path, second)

	res, err := m.ParseAndIngestFile(context.Background(), path, models.KindChat, "alpha")
	require.NoError(t, err)

	// Only the appended bytes are processed.
	assert.Equal(t, 1, res.EntriesAdded)
	assert.Equal(t, int64(len(second)), res.BytesProcessed)
	require.Len(t, store.chatMessages, 2)
	assert.Equal(t, "Bob", store.chatMessages[1].Username)
	assert.Equal(t, int64(len(first)+len(second)), store.positions[path].LastPosition)
}

func TestParseAndIngestFileNoNewBytes(t *testing.T) {
	store := newFakeLogStore()
	m := NewManager(store, logging.Default())

	path := filepath.Join(t.TempDir(), "chat.txt")
	writeFile(t, path, "[12:00] Alice: hello\n")

	_, err := m.ParseAndIngestFile(context.Background(), path, models.KindChat, "alpha")
	require.NoError(t, err)
	before := store.positions[path].LastPosition

	res, err := m.ParseAndIngestFile(context.Background(), path, models.KindChat, "alpha")
	require.NoError(t, err)

	assert.Equal(t, 0, res.EntriesAdded)
	assert.Equal(t, int64(0), res.BytesProcessed)
	assert.Len(t, store.chatMessages, 1)
	assert.Equal(t, before, store.positions[path].LastPosition)
}

func TestParseAndIngestFileRotationRestartsAtZero(t *testing.T) {
	store := newFakeLogStore()
	m := NewManager(store, logging.Default())

	path := filepath.Join(t.TempDir(), "chat.txt")
	writeFile(t, path, "[12:00] Alice: a long line that establishes a position\n")

	_, err := m.ParseAndIngestFile(context.Background(), path, models.KindChat, "alpha")
	require.NoError(t, err)

	// Replace with a shorter file, as rotation does.
	rotated := "[13:00] Carol: fresh file\n"
	writeFile(t, path, rotated)

	res, err := m.ParseAndIngestFile(context.Background(), path, models.KindChat, "alpha")
	require.NoError(t, err)

	assert.Equal(t, 1, res.EntriesAdded)
	assert.Equal(t, int64(len(rotated)), res.BytesProcessed)
	assert.Equal(t, int64(len(rotated)), store.positions[path].LastPosition)
	require.Len(t, store.chatMessages, 2)
	assert.Equal(t, "Carol", store.chatMessages[1].Username)
}

func TestParseAndIngestFilePartialLineHeldBack(t *testing.T) {
	store := newFakeLogStore()
	m := NewManager(store, logging.Default())

	path := filepath.Join(t.TempDir(), "chat.txt")
	complete := "[12:00] Alice: hello\n"
	partial := "[12:01] Bob: half-writ"
	writeFile(t, path, complete+partial)

	res, err := m.ParseAndIngestFile(context.Background(), path, models.KindChat, "alpha")
	require.NoError(t, err)

	// The unterminated tail is not parsed and not counted.
	assert.Equal(t, 1, res.EntriesAdded)
	assert.Equal(t, int64(len(complete)), res.BytesProcessed)
	assert.Equal(t, int64(len(complete)), store.positions[path].LastPosition)

	// Once the line completes, the next cycle picks it up whole.
	appendToFile(t, path, "ten now\n")
	res, err = m.ParseAndIngestFile(context.Background(), path, models.KindChat, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, res.EntriesAdded)
	require.Len(t, store.chatMessages, 2)
	assert.Equal(t, "half-written now", store.chatMessages[1].Message)
}

func TestParseAndIngestFileMissingFile(t *testing.T) {
	store := newFakeLogStore()
	m := NewManager(store, logging.Default())

	res, err := m.ParseAndIngestFile(context.Background(), filepath.Join(t.TempDir(), "absent.txt"), models.KindChat, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 0, res.EntriesAdded)
	assert.Len(t, res.Errors, 1)
}

func TestParseAndIngestFileInsertFailureStillAdvances(t *testing.T) {
	store := newFakeLogStore()
	store.insertErr = errors.New("connection refused")
	m := NewManager(store, logging.Default())

	path := filepath.Join(t.TempDir(), "chat.txt")
	content := "[12:00] Alice: hello\n[12:01] Bob: hi\n"
	writeFile(t, path, content)

	res, err := m.ParseAndIngestFile(context.Background(), path, models.KindChat, "alpha")
	require.NoError(t, err)

	// Failed rows are skipped, never retried: the watermark still moves.
	assert.Equal(t, 0, res.EntriesAdded)
	assert.Len(t, res.Errors, 2)
	assert.Equal(t, int64(len(content)), store.positions[path].LastPosition)
}

func TestParseAndIngestFileUnifiedProjection(t *testing.T) {
	store := newFakeLogStore()
	m := NewManager(store, logging.Default())

	path := filepath.Join(t.TempDir(), "chat.txt")
	writeFile(t, path, "[12:00] Alice: hello\n")

	res, err := m.ParseAndIngestFile(context.Background(), path, models.KindChat, "alpha")
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	e := res.Entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, models.SourceChat, e.Source)
	assert.Equal(t, "alpha", e.Server)
	assert.Equal(t, "Alice", e.Username)
	assert.Equal(t, "hello", e.Message)
}

func TestResetPosition(t *testing.T) {
	store := newFakeLogStore()
	m := NewManager(store, logging.Default())

	path := filepath.Join(t.TempDir(), "chat.txt")
	writeFile(t, path, "[12:00] Alice: hello\n")

	_, err := m.ParseAndIngestFile(context.Background(), path, models.KindChat, "alpha")
	require.NoError(t, err)
	require.NotZero(t, store.positions[path].LastPosition)

	require.NoError(t, m.ResetPosition(context.Background(), path, models.KindChat))
	assert.Equal(t, int64(0), store.positions[path].LastPosition)
}

func TestSplitCompleteLines(t *testing.T) {
	assert.Nil(t, splitCompleteLines(""))
	assert.Equal(t, []string{"a", "b"}, splitCompleteLines("a\nb\n"))
	assert.Equal(t, []string{"a"}, splitCompleteLines("a\nb"))
	assert.Empty(t, splitCompleteLines("no newline"))
}

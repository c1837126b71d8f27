// Package ingest orchestrates parse-and-insert cycles per log file and
// exposes the unified cross-source query API.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duynguyen020304/pz-manager-sub001/internal/logging"
	"github.com/duynguyen020304/pz-manager-sub001/internal/metrics"
	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
	"github.com/duynguyen020304/pz-manager-sub001/internal/parser"
	"github.com/duynguyen020304/pz-manager-sub001/internal/repository"
)

// Result summarizes one parse-and-ingest cycle. EntriesAdded counts only
// rows that actually reached storage; Entries carries their unified
// projections for streaming.
type Result struct {
	EntriesAdded   int                       `json:"entries_added"`
	BytesProcessed int64                     `json:"bytes_processed"`
	Errors         []string                  `json:"errors,omitempty"`
	Entries        []*models.UnifiedLogEntry `json:"-"`
}

// Manager owns all writes to the per-source tables and the position table.
type Manager struct {
	store repository.LogStore
	log   *logging.Logger
}

// NewManager creates a log manager over the given store.
func NewManager(store repository.LogStore, log *logging.Logger) *Manager {
	return &Manager{store: store, log: log.Component("ingest")}
}

// checksumHead hashes the first 4 KiB of the file. Stored with the position
// row; not yet compared on rotation (size-based detection only).
func checksumHead(f *os.File, size int64) string {
	n := size
	if n > 4096 {
		n = 4096
	}
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return ""
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:8])
}

// ParseAndIngestFile reads the unseen byte range of filePath, parses it with
// the dialect parser for kind, inserts the typed rows best-effort, and
// advances the stored position. A missing file is a zero-effect result with
// an error note, not a failure; the watcher retries later.
func (m *Manager) ParseAndIngestFile(ctx context.Context, filePath string, kind models.ParserKind, serverName string) (*Result, error) {
	metrics.IngestCycles.Inc()
	res := &Result{}

	info, err := os.Stat(filePath)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("stat %s: %v", filePath, err))
		return res, nil
	}
	fileSize := info.Size()

	startOffset := int64(0)
	pos, err := m.store.GetPosition(ctx, filePath)
	switch {
	case err == nil:
		startOffset = pos.LastPosition
		if fileSize < startOffset {
			// File shrank below the watermark: rotation or truncation.
			m.log.Info("log rotation detected, re-reading from start",
				"file", filePath, "stored_position", startOffset, "file_size", fileSize)
			metrics.RotationsDetected.Inc()
			startOffset = 0
		}
	case err == repository.ErrNotFound:
		// First ingest for this file.
	default:
		return nil, fmt.Errorf("failed to load position for %s: %w", filePath, err)
	}

	if fileSize == startOffset {
		return res, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("open %s: %v", filePath, err))
		return res, nil
	}
	defer f.Close()

	if _, err := f.Seek(startOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek %s to %d: %w", filePath, startOffset, err)
	}
	raw, err := io.ReadAll(io.LimitReader(f, fileSize-startOffset))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	lines := splitCompleteLines(string(raw))

	p, err := parser.New(kind)
	if err != nil {
		return nil, err
	}
	parsed := p.ParseLines(lines, startOffset)
	res.BytesProcessed = parsed.BytesProcessed
	res.Errors = append(res.Errors, parsed.Errors...)

	metrics.LinesParsed.WithLabelValues(string(kind)).Add(float64(len(parsed.Entries)))
	metrics.ParseErrors.WithLabelValues(string(kind)).Add(float64(len(parsed.Errors)))
	metrics.IngestBytes.Add(float64(parsed.BytesProcessed))

	source := kind.Source()
	for _, ev := range parsed.Entries {
		if err := m.insertTyped(ctx, kind, ev, serverName); err != nil {
			// Best-effort: a failed row is logged and skipped, never retried.
			m.log.Error("row insert failed", "file", filePath, "source", source, "error", err)
			metrics.InsertErrors.WithLabelValues(string(source)).Inc()
			res.Errors = append(res.Errors, fmt.Sprintf("insert: %v", err))
			continue
		}
		metrics.RowsInserted.WithLabelValues(string(source)).Inc()
		res.EntriesAdded++
		res.Entries = append(res.Entries, unifiedFromRaw(source, ev, serverName))
	}

	// Advance the watermark unconditionally past everything parsed, even if
	// some row inserts failed. A trailing half-written line was excluded
	// from the parsed byte count and is re-read next cycle.
	newPos := &models.LogFilePosition{
		FilePath:     filePath,
		LastPosition: startOffset + parsed.BytesProcessed,
		LastModified: info.ModTime(),
		LastIngested: time.Now(),
		FileSize:     fileSize,
		Checksum:     checksumHead(f, fileSize),
		Parser:       kind,
	}
	if err := m.store.UpsertPosition(ctx, newPos); err != nil {
		return res, fmt.Errorf("failed to advance position for %s: %w", filePath, err)
	}

	return res, nil
}

// ResetPosition rewinds the stored watermark to byte 0, used by the watcher
// when a file is replaced.
func (m *Manager) ResetPosition(ctx context.Context, filePath string, kind models.ParserKind) error {
	pos := &models.LogFilePosition{
		FilePath:     filePath,
		LastPosition: 0,
		LastIngested: time.Now(),
		Parser:       kind,
	}
	if err := m.store.UpsertPosition(ctx, pos); err != nil {
		return fmt.Errorf("failed to reset position for %s: %w", filePath, err)
	}
	return nil
}

// splitCompleteLines splits raw text into newline-terminated lines. A final
// fragment without a trailing newline is held back so its bytes are not
// counted as processed.
func splitCompleteLines(raw string) []string {
	if raw == "" {
		return nil
	}
	lines := strings.Split(raw, "\n")
	// Complete input ends with "\n" and yields a trailing "" element.
	return lines[:len(lines)-1]
}

// unifiedFromRaw projects a just-inserted event into the unified shape for
// stream consumers. The id is minted here; unified ids are per emission.
func unifiedFromRaw(source models.Source, ev parser.RawEvent, serverName string) *models.UnifiedLogEntry {
	server := ev.Server
	if server == "" {
		server = serverName
	}
	level := ev.Level
	if level == "" {
		level = models.LevelInfo
	}
	return &models.UnifiedLogEntry{
		ID:        uuid.NewString(),
		Time:      ev.Time,
		Source:    source,
		Server:    server,
		Username:  ev.Username,
		EventType: ev.EventType,
		Level:     level,
		Message:   ev.Message,
		Details:   ev.Details,
	}
}

func (m *Manager) insertTyped(ctx context.Context, kind models.ParserKind, ev parser.RawEvent, serverName string) error {
	server := ev.Server
	if server == "" {
		server = serverName
	}

	switch kind {
	case models.KindBackup:
		return m.store.InsertBackupLog(ctx, &models.BackupLogEntry{
			Time: ev.Time, Server: server, LogType: ev.EventType,
			Level: ev.Level, Message: ev.Message, Details: ev.Details,
		})
	case models.KindPlayer:
		return m.store.InsertPlayerEvent(ctx, &models.PZPlayerEvent{
			Time: ev.Time, Server: server, EventType: ev.EventType,
			Username: ev.Username, SteamID: ev.Details.String("steam_id"),
			Message: ev.Message, Details: ev.Details,
		})
	case models.KindServer:
		return m.store.InsertServerEvent(ctx, &models.PZServerEvent{
			Time: ev.Time, Server: server, EventType: ev.EventType,
			Level: ev.Level, Message: ev.Message, Details: ev.Details,
		})
	case models.KindChat:
		return m.store.InsertChatMessage(ctx, &models.PZChatMessage{
			Time: ev.Time, Server: server, Username: ev.Username,
			ChatType: ev.Details.String("chat_type"), Message: ev.Message,
		})
	case models.KindPVP:
		return m.store.InsertPVPEvent(ctx, &models.PZPVPEvent{
			Time: ev.Time, Server: server, EventType: ev.EventType,
			Attacker: ev.Details.String("attacker"), Victim: ev.Details.String("victim"),
			Message: ev.Message, Details: ev.Details,
		})
	case models.KindSkill:
		snap := &models.PZSkillSnapshot{
			Time: ev.Time, Server: server, Username: ev.Username,
			SteamID: ev.Details.String("steam_id"), Message: ev.Message,
			Details: ev.Details,
		}
		if h, ok := ev.Details.Float("hours_survived"); ok {
			snap.Hours = h
		}
		if skills, ok := ev.Details["skills"].(map[string]int); ok {
			snap.Skills = skills
		}
		return m.store.InsertSkillSnapshot(ctx, snap)
	}
	return fmt.Errorf("no table mapping for parser kind %q", kind)
}

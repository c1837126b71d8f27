package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// GetBackupLogs returns filtered, paginated backup log rows.
func (m *Manager) GetBackupLogs(ctx context.Context, q models.LogQuery) ([]*models.BackupLogEntry, int, error) {
	return m.store.BackupLogs(ctx, q)
}

// GetPlayerEvents returns filtered, paginated player events.
func (m *Manager) GetPlayerEvents(ctx context.Context, q models.LogQuery) ([]*models.PZPlayerEvent, int, error) {
	return m.store.PlayerEvents(ctx, q)
}

// GetServerEvents returns filtered, paginated server events.
func (m *Manager) GetServerEvents(ctx context.Context, q models.LogQuery) ([]*models.PZServerEvent, int, error) {
	return m.store.ServerEvents(ctx, q)
}

// GetChatMessages returns filtered, paginated chat messages.
func (m *Manager) GetChatMessages(ctx context.Context, q models.LogQuery) ([]*models.PZChatMessage, int, error) {
	return m.store.ChatMessages(ctx, q)
}

// GetPVPEvents returns filtered, paginated PvP events.
func (m *Manager) GetPVPEvents(ctx context.Context, q models.LogQuery) ([]*models.PZPVPEvent, int, error) {
	return m.store.PVPEvents(ctx, q)
}

// GetSkillSnapshots returns filtered, paginated skill snapshots.
func (m *Manager) GetSkillSnapshots(ctx context.Context, q models.LogQuery) ([]*models.PZSkillSnapshot, int, error) {
	return m.store.SkillSnapshots(ctx, q)
}

// GetUnifiedLogs dispatches by source to the matching per-source query and
// projects the rows into the unified shape. The switch is exhaustive over
// the closed Source enum.
func (m *Manager) GetUnifiedLogs(ctx context.Context, q models.UnifiedQuery) ([]*models.UnifiedLogEntry, int, error) {
	source := q.Source
	if source == "" {
		source = models.SourceBackup
	}

	switch source {
	case models.SourceBackup:
		logs, total, err := m.store.BackupLogs(ctx, q.LogQuery)
		if err != nil {
			return nil, 0, err
		}
		entries := make([]*models.UnifiedLogEntry, 0, len(logs))
		for _, e := range logs {
			entries = append(entries, &models.UnifiedLogEntry{
				ID: uuid.NewString(), Time: e.Time, Source: models.SourceBackup,
				Server: e.Server, EventType: e.LogType, Level: e.Level,
				Message: e.Message, Details: e.Details,
			})
		}
		return entries, total, nil

	case models.SourcePlayer:
		events, total, err := m.store.PlayerEvents(ctx, q.LogQuery)
		if err != nil {
			return nil, 0, err
		}
		entries := make([]*models.UnifiedLogEntry, 0, len(events))
		for _, e := range events {
			entries = append(entries, &models.UnifiedLogEntry{
				ID: uuid.NewString(), Time: e.Time, Source: models.SourcePlayer,
				Server: e.Server, Username: e.Username, EventType: e.EventType,
				Level: models.LevelInfo, Message: e.Message, Details: e.Details,
			})
		}
		return entries, total, nil

	case models.SourceServer:
		events, total, err := m.store.ServerEvents(ctx, q.LogQuery)
		if err != nil {
			return nil, 0, err
		}
		entries := make([]*models.UnifiedLogEntry, 0, len(events))
		for _, e := range events {
			entries = append(entries, &models.UnifiedLogEntry{
				ID: uuid.NewString(), Time: e.Time, Source: models.SourceServer,
				Server: e.Server, EventType: e.EventType, Level: e.Level,
				Message: e.Message, Details: e.Details,
			})
		}
		return entries, total, nil

	case models.SourceChat:
		messages, total, err := m.store.ChatMessages(ctx, q.LogQuery)
		if err != nil {
			return nil, 0, err
		}
		entries := make([]*models.UnifiedLogEntry, 0, len(messages))
		for _, e := range messages {
			entries = append(entries, &models.UnifiedLogEntry{
				ID: uuid.NewString(), Time: e.Time, Source: models.SourceChat,
				Server: e.Server, Username: e.Username, EventType: "message",
				Level: models.LevelInfo, Message: e.Message, Details: e.Details,
			})
		}
		return entries, total, nil

	case models.SourcePVP:
		events, total, err := m.store.PVPEvents(ctx, q.LogQuery)
		if err != nil {
			return nil, 0, err
		}
		entries := make([]*models.UnifiedLogEntry, 0, len(events))
		for _, e := range events {
			entries = append(entries, &models.UnifiedLogEntry{
				ID: uuid.NewString(), Time: e.Time, Source: models.SourcePVP,
				Server: e.Server, Username: e.Attacker, EventType: e.EventType,
				Level: models.LevelInfo, Message: e.Message, Details: e.Details,
			})
		}
		return entries, total, nil

	case models.SourceSkill:
		snapshots, total, err := m.store.SkillSnapshots(ctx, q.LogQuery)
		if err != nil {
			return nil, 0, err
		}
		entries := make([]*models.UnifiedLogEntry, 0, len(snapshots))
		for _, e := range snapshots {
			entries = append(entries, &models.UnifiedLogEntry{
				ID: uuid.NewString(), Time: e.Time, Source: models.SourceSkill,
				Server: e.Server, Username: e.Username, EventType: "snapshot",
				Level: models.LevelInfo, Message: e.Message, Details: e.Details,
			})
		}
		return entries, total, nil
	}

	return nil, 0, fmt.Errorf("unknown log source %q", source)
}

// GetUnifiedLogsSince returns entries newer than since across the requested
// sources for one server, time-descending. Used by near-real-time polling.
func (m *Manager) GetUnifiedLogsSince(ctx context.Context, server string, sources []models.Source, since *time.Time, limit int) ([]*models.UnifiedLogEntry, error) {
	return m.store.UnifiedSince(ctx, server, sources, since, limit)
}

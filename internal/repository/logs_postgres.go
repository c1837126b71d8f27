package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// LogPostgres implements LogStore using PostgreSQL.
type LogPostgres struct {
	pool *pgxpool.Pool
}

// NewLogPostgres creates the log repository on an existing pool.
func NewLogPostgres(pool *pgxpool.Pool) *LogPostgres {
	return &LogPostgres{pool: pool}
}

// Close releases the underlying pool.
func (r *LogPostgres) Close() error {
	r.pool.Close()
	return nil
}

// ---------------------------------------------------------------------------
// File positions

func (r *LogPostgres) GetPosition(ctx context.Context, filePath string) (*models.LogFilePosition, error) {
	query := `
		SELECT file_path, last_position, last_modified, last_ingested, file_size, checksum, parser_type
		FROM log_file_positions
		WHERE file_path = $1
	`

	pos := &models.LogFilePosition{}
	var parser string
	err := r.pool.QueryRow(ctx, query, filePath).Scan(
		&pos.FilePath, &pos.LastPosition, &pos.LastModified, &pos.LastIngested,
		&pos.FileSize, &pos.Checksum, &parser,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	pos.Parser = models.ParserKind(parser)

	return pos, nil
}

func (r *LogPostgres) UpsertPosition(ctx context.Context, pos *models.LogFilePosition) error {
	query := `
		INSERT INTO log_file_positions (file_path, last_position, last_modified, last_ingested, file_size, checksum, parser_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (file_path) DO UPDATE SET
			last_position = EXCLUDED.last_position,
			last_modified = EXCLUDED.last_modified,
			last_ingested = EXCLUDED.last_ingested,
			file_size = EXCLUDED.file_size,
			checksum = EXCLUDED.checksum,
			parser_type = EXCLUDED.parser_type
	`

	_, err := r.pool.Exec(ctx, query,
		pos.FilePath, pos.LastPosition, pos.LastModified, pos.LastIngested,
		pos.FileSize, pos.Checksum, string(pos.Parser),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Inserts

func marshalDetails(d models.Details) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func unmarshalDetails(raw []byte) models.Details {
	if len(raw) == 0 {
		return nil
	}
	var d models.Details
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil
	}
	return d
}

func (r *LogPostgres) InsertBackupLog(ctx context.Context, e *models.BackupLogEntry) error {
	details, err := marshalDetails(e.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}

	query := `
		INSERT INTO backup_logs (time, server, log_type, level, message, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		e.Time, e.Server, e.LogType, e.Level, e.Message, details,
	).Scan(&e.ID); err != nil {
		return fmt.Errorf("failed to insert backup log: %w", err)
	}
	return nil
}

func (r *LogPostgres) InsertPlayerEvent(ctx context.Context, e *models.PZPlayerEvent) error {
	details, err := marshalDetails(e.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}

	query := `
		INSERT INTO pz_player_events (time, server, event_type, username, steam_id, message, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		e.Time, e.Server, e.EventType, e.Username, e.SteamID, e.Message, details,
	).Scan(&e.ID); err != nil {
		return fmt.Errorf("failed to insert player event: %w", err)
	}
	return nil
}

func (r *LogPostgres) InsertServerEvent(ctx context.Context, e *models.PZServerEvent) error {
	details, err := marshalDetails(e.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}

	query := `
		INSERT INTO pz_server_events (time, server, event_type, level, message, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		e.Time, e.Server, e.EventType, e.Level, e.Message, details,
	).Scan(&e.ID); err != nil {
		return fmt.Errorf("failed to insert server event: %w", err)
	}
	return nil
}

func (r *LogPostgres) InsertChatMessage(ctx context.Context, e *models.PZChatMessage) error {
	details, err := marshalDetails(e.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}

	query := `
		INSERT INTO pz_chat_messages (time, server, username, chat_type, message, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		e.Time, e.Server, e.Username, e.ChatType, e.Message, details,
	).Scan(&e.ID); err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

func (r *LogPostgres) InsertPVPEvent(ctx context.Context, e *models.PZPVPEvent) error {
	details, err := marshalDetails(e.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}

	query := `
		INSERT INTO pz_pvp_events (time, server, event_type, attacker, victim, message, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		e.Time, e.Server, e.EventType, e.Attacker, e.Victim, e.Message, details,
	).Scan(&e.ID); err != nil {
		return fmt.Errorf("failed to insert pvp event: %w", err)
	}
	return nil
}

func (r *LogPostgres) InsertSkillSnapshot(ctx context.Context, e *models.PZSkillSnapshot) error {
	details, err := marshalDetails(e.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}
	skills, err := json.Marshal(e.Skills)
	if err != nil {
		return fmt.Errorf("failed to encode skills: %w", err)
	}

	query := `
		INSERT INTO pz_skill_snapshots (time, server, username, steam_id, hours_survived, skills, message, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		e.Time, e.Server, e.Username, e.SteamID, e.Hours, skills, e.Message, details,
	).Scan(&e.ID); err != nil {
		return fmt.Errorf("failed to insert skill snapshot: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Per-source queries

// filterCols names the table columns the shared filters map onto. An empty
// column means the table does not support that filter and it is ignored.
type filterCols struct {
	eventType string
	username  string
	level     string
}

func buildLogWhere(q models.LogQuery, cols filterCols) (string, []interface{}) {
	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if q.Server != "" {
		whereClause += fmt.Sprintf(" AND server = $%d", argPos)
		args = append(args, q.Server)
		argPos++
	}
	if q.EventType != "" && cols.eventType != "" {
		whereClause += fmt.Sprintf(" AND %s = $%d", cols.eventType, argPos)
		args = append(args, q.EventType)
		argPos++
	}
	if q.Username != "" && cols.username != "" {
		whereClause += fmt.Sprintf(" AND %s = $%d", cols.username, argPos)
		args = append(args, q.Username)
		argPos++
	}
	if q.Level != "" && cols.level != "" {
		whereClause += fmt.Sprintf(" AND %s = $%d", cols.level, argPos)
		args = append(args, q.Level)
		argPos++
	}
	if q.From != nil {
		whereClause += fmt.Sprintf(" AND time >= $%d", argPos)
		args = append(args, *q.From)
		argPos++
	}
	if q.To != nil {
		whereClause += fmt.Sprintf(" AND time <= $%d", argPos)
		args = append(args, *q.To)
		argPos++
	}

	return whereClause, args
}

func normalizeLimit(q *models.LogQuery) {
	if q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// queryPage runs the shared count-then-page pattern. scan is called once per
// row of the paged query.
func (r *LogPostgres) queryPage(ctx context.Context, table, columns string, q models.LogQuery, cols filterCols, scan func(rows pgx.Rows) error) (int, error) {
	normalizeLimit(&q)
	whereClause, args := buildLogWhere(q, cols)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", table, whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}

	argPos := len(args) + 1
	args = append(args, q.Limit, q.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		%s
		ORDER BY time DESC
		LIMIT $%d OFFSET $%d
	`, columns, table, whereClause, argPos, argPos+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return 0, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("row iteration error: %w", err)
	}

	return total, nil
}

func (r *LogPostgres) BackupLogs(ctx context.Context, q models.LogQuery) ([]*models.BackupLogEntry, int, error) {
	logs := []*models.BackupLogEntry{}
	total, err := r.queryPage(ctx, "backup_logs",
		"id, time, server, log_type, level, message, details",
		q, filterCols{eventType: "log_type", level: "level"},
		func(rows pgx.Rows) error {
			e := &models.BackupLogEntry{}
			var details []byte
			if err := rows.Scan(&e.ID, &e.Time, &e.Server, &e.LogType, &e.Level, &e.Message, &details); err != nil {
				return err
			}
			e.Details = unmarshalDetails(details)
			logs = append(logs, e)
			return nil
		})
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *LogPostgres) PlayerEvents(ctx context.Context, q models.LogQuery) ([]*models.PZPlayerEvent, int, error) {
	events := []*models.PZPlayerEvent{}
	total, err := r.queryPage(ctx, "pz_player_events",
		"id, time, server, event_type, username, steam_id, message, details",
		q, filterCols{eventType: "event_type", username: "username"},
		func(rows pgx.Rows) error {
			e := &models.PZPlayerEvent{}
			var details []byte
			if err := rows.Scan(&e.ID, &e.Time, &e.Server, &e.EventType, &e.Username, &e.SteamID, &e.Message, &details); err != nil {
				return err
			}
			e.Details = unmarshalDetails(details)
			events = append(events, e)
			return nil
		})
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *LogPostgres) ServerEvents(ctx context.Context, q models.LogQuery) ([]*models.PZServerEvent, int, error) {
	events := []*models.PZServerEvent{}
	total, err := r.queryPage(ctx, "pz_server_events",
		"id, time, server, event_type, level, message, details",
		q, filterCols{eventType: "event_type", level: "level"},
		func(rows pgx.Rows) error {
			e := &models.PZServerEvent{}
			var details []byte
			if err := rows.Scan(&e.ID, &e.Time, &e.Server, &e.EventType, &e.Level, &e.Message, &details); err != nil {
				return err
			}
			e.Details = unmarshalDetails(details)
			events = append(events, e)
			return nil
		})
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *LogPostgres) ChatMessages(ctx context.Context, q models.LogQuery) ([]*models.PZChatMessage, int, error) {
	messages := []*models.PZChatMessage{}
	total, err := r.queryPage(ctx, "pz_chat_messages",
		"id, time, server, username, chat_type, message, details",
		q, filterCols{eventType: "chat_type", username: "username"},
		func(rows pgx.Rows) error {
			e := &models.PZChatMessage{}
			var details []byte
			if err := rows.Scan(&e.ID, &e.Time, &e.Server, &e.Username, &e.ChatType, &e.Message, &details); err != nil {
				return err
			}
			e.Details = unmarshalDetails(details)
			messages = append(messages, e)
			return nil
		})
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *LogPostgres) PVPEvents(ctx context.Context, q models.LogQuery) ([]*models.PZPVPEvent, int, error) {
	events := []*models.PZPVPEvent{}
	total, err := r.queryPage(ctx, "pz_pvp_events",
		"id, time, server, event_type, attacker, victim, message, details",
		q, filterCols{eventType: "event_type", username: "attacker"},
		func(rows pgx.Rows) error {
			e := &models.PZPVPEvent{}
			var details []byte
			if err := rows.Scan(&e.ID, &e.Time, &e.Server, &e.EventType, &e.Attacker, &e.Victim, &e.Message, &details); err != nil {
				return err
			}
			e.Details = unmarshalDetails(details)
			events = append(events, e)
			return nil
		})
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *LogPostgres) SkillSnapshots(ctx context.Context, q models.LogQuery) ([]*models.PZSkillSnapshot, int, error) {
	snapshots := []*models.PZSkillSnapshot{}
	total, err := r.queryPage(ctx, "pz_skill_snapshots",
		"id, time, server, username, steam_id, hours_survived, skills, message, details",
		q, filterCols{username: "username"},
		func(rows pgx.Rows) error {
			e := &models.PZSkillSnapshot{}
			var skills, details []byte
			if err := rows.Scan(&e.ID, &e.Time, &e.Server, &e.Username, &e.SteamID, &e.Hours, &skills, &e.Message, &details); err != nil {
				return err
			}
			if len(skills) > 0 {
				_ = json.Unmarshal(skills, &e.Skills)
			}
			e.Details = unmarshalDetails(details)
			snapshots = append(snapshots, e)
			return nil
		})
	if err != nil {
		return nil, 0, err
	}
	return snapshots, total, nil
}

// ---------------------------------------------------------------------------
// Unified cross-source query

// unifiedSelect projects one per-source table onto the unified column shape.
func unifiedSelect(source models.Source) string {
	switch source {
	case models.SourceBackup:
		return `SELECT time, 'backup' AS source, server, '' AS username, log_type AS event_type, level, message, details FROM backup_logs`
	case models.SourcePlayer:
		return `SELECT time, 'player' AS source, server, username, event_type, 'INFO' AS level, message, details FROM pz_player_events`
	case models.SourceServer:
		return `SELECT time, 'server' AS source, server, '' AS username, event_type, level, message, details FROM pz_server_events`
	case models.SourceChat:
		return `SELECT time, 'chat' AS source, server, username, 'message' AS event_type, 'INFO' AS level, message, details FROM pz_chat_messages`
	case models.SourcePVP:
		return `SELECT time, 'pvp' AS source, server, attacker AS username, event_type, 'INFO' AS level, message, details FROM pz_pvp_events`
	case models.SourceSkill:
		return `SELECT time, 'skill' AS source, server, username, 'snapshot' AS event_type, 'INFO' AS level, message, details FROM pz_skill_snapshots`
	}
	return ""
}

func (r *LogPostgres) UnifiedSince(ctx context.Context, server string, sources []models.Source, since *time.Time, limit int) ([]*models.UnifiedLogEntry, error) {
	if len(sources) == 0 {
		sources = models.AllSources()
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	where := "WHERE server = $1"
	args := []interface{}{server}
	if since != nil {
		where += " AND time > $2"
		args = append(args, *since)
	}

	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		sel := unifiedSelect(src)
		if sel == "" {
			return nil, fmt.Errorf("unknown log source %q", src)
		}
		parts = append(parts, fmt.Sprintf("(%s %s)", sel, where))
	}

	argPos := len(args) + 1
	args = append(args, limit)
	query := fmt.Sprintf(`
		%s
		ORDER BY time DESC
		LIMIT $%d
	`, strings.Join(parts, "\n\t\tUNION ALL\n\t\t"), argPos)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unified logs: %w", err)
	}
	defer rows.Close()

	entries := []*models.UnifiedLogEntry{}
	for rows.Next() {
		e := &models.UnifiedLogEntry{}
		var source string
		var details []byte
		if err := rows.Scan(&e.Time, &source, &e.Server, &e.Username, &e.EventType, &e.Level, &e.Message, &details); err != nil {
			return nil, fmt.Errorf("failed to scan unified row: %w", err)
		}
		e.ID = uuid.NewString()
		e.Source = models.Source(source)
		e.Details = unmarshalDetails(details)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

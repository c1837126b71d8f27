package models

import (
	"fmt"
	"time"
)

// Source identifies which per-source table a log record belongs to.
type Source string

const (
	SourceBackup Source = "backup"
	SourcePlayer Source = "player"
	SourceServer Source = "server"
	SourceChat   Source = "chat"
	SourcePVP    Source = "pvp"
	SourceSkill  Source = "skill"
)

// AllSources lists every log source in a stable order.
func AllSources() []Source {
	return []Source{SourceBackup, SourcePlayer, SourceServer, SourceChat, SourcePVP, SourceSkill}
}

// ParseSource validates a source discriminant from an external caller.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceBackup, SourcePlayer, SourceServer, SourceChat, SourcePVP, SourceSkill:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown log source %q", s)
}

// ParserKind selects the dialect parser for a watched file.
type ParserKind string

const (
	KindBackup ParserKind = "backup"
	KindPlayer ParserKind = "player"
	KindServer ParserKind = "server"
	KindChat   ParserKind = "chat"
	KindPVP    ParserKind = "pvp"
	KindSkill  ParserKind = "skill"
)

// ParseParserKind validates a parser discriminant.
func ParseParserKind(s string) (ParserKind, error) {
	switch ParserKind(s) {
	case KindBackup, KindPlayer, KindServer, KindChat, KindPVP, KindSkill:
		return ParserKind(s), nil
	}
	return "", fmt.Errorf("unknown parser kind %q", s)
}

// Source returns the per-source table a parser kind feeds.
func (k ParserKind) Source() Source {
	switch k {
	case KindBackup:
		return SourceBackup
	case KindPlayer:
		return SourcePlayer
	case KindServer:
		return SourceServer
	case KindChat:
		return SourceChat
	case KindPVP:
		return SourcePVP
	case KindSkill:
		return SourceSkill
	}
	return SourceBackup
}

// Log levels used across all sources.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Details is the loosely-typed payload that varies by event kind.
// Access it through the typed accessors below rather than raw lookups.
type Details map[string]any

// String returns a string detail value, or "" when absent.
func (d Details) String(key string) string {
	if v, ok := d[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Float returns a numeric detail value.
func (d Details) Float(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// BackupLogEntry is one line from the backup/restore operational log.
type BackupLogEntry struct {
	ID      int64     `json:"id"`
	Time    time.Time `json:"time"`
	Server  string    `json:"server"`
	LogType string    `json:"log_type"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Details Details   `json:"details,omitempty"`
}

// PZPlayerEvent is a login/logout/connection event from user.txt.
type PZPlayerEvent struct {
	ID        int64     `json:"id"`
	Time      time.Time `json:"time"`
	Server    string    `json:"server"`
	EventType string    `json:"event_type"`
	Username  string    `json:"username"`
	SteamID   string    `json:"steam_id,omitempty"`
	Message   string    `json:"message"`
	Details   Details   `json:"details,omitempty"`
}

// Coordinates returns the player's world position recorded with the event.
func (e *PZPlayerEvent) Coordinates() (x, y, z float64, ok bool) {
	x, xok := e.Details.Float("x")
	y, yok := e.Details.Float("y")
	z, zok := e.Details.Float("z")
	return x, y, z, xok && yok && zok
}

// PZServerEvent is a line from the daily server log (DebugLog dialect).
type PZServerEvent struct {
	ID        int64     `json:"id"`
	Time      time.Time `json:"time"`
	Server    string    `json:"server"`
	EventType string    `json:"event_type"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Details   Details   `json:"details,omitempty"`
}

// PZChatMessage is one chat line.
type PZChatMessage struct {
	ID       int64     `json:"id"`
	Time     time.Time `json:"time"`
	Server   string    `json:"server"`
	Username string    `json:"username"`
	ChatType string    `json:"chat_type,omitempty"`
	Message  string    `json:"message"`
	Details  Details   `json:"details,omitempty"`
}

// PZPVPEvent is a player-versus-player hit/kill record.
type PZPVPEvent struct {
	ID        int64     `json:"id"`
	Time      time.Time `json:"time"`
	Server    string    `json:"server"`
	EventType string    `json:"event_type"`
	Attacker  string    `json:"attacker"`
	Victim    string    `json:"victim"`
	Message   string    `json:"message"`
	Details   Details   `json:"details,omitempty"`
}

// Weapon returns the weapon recorded with a PvP event.
func (e *PZPVPEvent) Weapon() string { return e.Details.String("weapon") }

// Damage returns the damage dealt, when the log carried it.
func (e *PZPVPEvent) Damage() (float64, bool) { return e.Details.Float("damage") }

// PZSkillSnapshot is a periodic perk/skill level dump for one player.
type PZSkillSnapshot struct {
	ID       int64          `json:"id"`
	Time     time.Time      `json:"time"`
	Server   string         `json:"server"`
	Username string         `json:"username"`
	SteamID  string         `json:"steam_id,omitempty"`
	Hours    float64        `json:"hours_survived"`
	Skills   map[string]int `json:"skills"`
	Message  string         `json:"message"`
	Details  Details        `json:"details,omitempty"`
}

// UnifiedLogEntry is the cross-source projection used for querying and
// streaming. IDs are unique per emission, not stable across re-derivation.
type UnifiedLogEntry struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Source    Source    `json:"source"`
	Server    string    `json:"server"`
	Username  string    `json:"username,omitempty"`
	EventType string    `json:"event_type"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Details   Details   `json:"details,omitempty"`
}

// LogFilePosition is the persisted ingestion watermark for one file.
type LogFilePosition struct {
	FilePath     string     `json:"file_path"`
	LastPosition int64      `json:"last_position"`
	LastModified time.Time  `json:"last_modified"`
	LastIngested time.Time  `json:"last_ingested"`
	FileSize     int64      `json:"file_size"`
	Checksum     string     `json:"checksum,omitempty"`
	Parser       ParserKind `json:"parser_type"`
}

// LogQuery carries the shared filter/pagination shape for per-source queries.
type LogQuery struct {
	Server    string
	EventType string
	Username  string
	Level     string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// UnifiedQuery is LogQuery plus the source discriminant for cross-source reads.
type UnifiedQuery struct {
	LogQuery
	Source Source
}

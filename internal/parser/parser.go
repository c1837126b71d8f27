// Package parser turns raw log text into typed event records, one parser per
// log dialect. Parsers are pure and stateless per call; all continuity comes
// from the caller re-supplying the byte offset and the text slice to parse.
package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// RawEvent is a parsed but not yet typed log event.
type RawEvent struct {
	Time      time.Time
	Server    string
	EventType string
	Username  string
	Level     string
	Message   string
	Details   models.Details
}

// Result is the outcome of one ParseLines call. BytesProcessed counts the
// UTF-8 byte length of every consumed line including its newline, so the
// position store stays consistent with the file's actual bytes. Malformed
// lines are consumed too; they land in Errors, never abort the batch.
type Result struct {
	Entries        []RawEvent
	BytesProcessed int64
	Errors         []string
}

// Parser is one log dialect.
type Parser interface {
	Kind() models.ParserKind
	ParseLines(lines []string, startOffset int64) Result
}

// New returns the parser for a kind. The switch is exhaustive over the
// closed ParserKind enum; adding a dialect is a compile-visible change here.
func New(kind models.ParserKind) (Parser, error) {
	switch kind {
	case models.KindBackup:
		return &BackupParser{}, nil
	case models.KindPlayer:
		return &PlayerParser{}, nil
	case models.KindServer:
		return &ServerLogParser{}, nil
	case models.KindChat:
		return &ChatParser{}, nil
	case models.KindPVP:
		return &PVPParser{}, nil
	case models.KindSkill:
		return &SkillParser{}, nil
	}
	return nil, fmt.Errorf("no parser registered for kind %q", kind)
}

// lineBytes returns the byte cost of a consumed line, newline included.
func lineBytes(line string) int64 {
	return int64(len(line)) + 1
}

// parseError formats a skipped-line record for Result.Errors.
func parseError(kind models.ParserKind, lineNo int, line string, reason string) string {
	const max = 200
	if len(line) > max {
		line = line[:max] + "..."
	}
	return fmt.Sprintf("%s: line %d: %s: %q", kind, lineNo, reason, line)
}

// Timestamp layouts seen across the Zomboid log dialects. Layouts without a
// date component resolve against today's date in local time.
var fullLayouts = []string{
	"06-01-02 15:04:05.000",
	"06-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"2006/01/02 15:04:05",
}

var clockLayouts = []string{
	"15:04:05.000",
	"15:04:05",
	"15:04",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range fullLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, true
		}
	}
	for _, layout := range clockLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			now := time.Now()
			return time.Date(now.Year(), now.Month(), now.Day(),
				ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), time.Local), true
		}
	}
	return time.Time{}, false
}

// kvDetails pulls trailing key=value tokens out of a message into details.
// Tokens that do not look like key=value are left in the message untouched.
func kvDetails(message string) (string, models.Details) {
	fields := strings.Fields(message)
	details := models.Details{}
	cut := len(fields)
	for i := len(fields) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(fields[i], "=")
		if !ok || k == "" {
			break
		}
		details[k] = v
		cut = i
	}
	if len(details) == 0 {
		return message, nil
	}
	return strings.TrimSpace(strings.Join(fields[:cut], " ")), details
}

package parser

import (
	"regexp"
	"strings"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// BackupParser handles the manager's own backup/restore operational log:
//
//	[2026-08-26 16:22:20] [INFO] [backup] snapshot completed server=alpha size=1234567 duration=12.3s
//	[2026-08-26 16:40:02] [ERROR] [restore] snapshot missing server=alpha snapshot=s-42
type BackupParser struct{}

var backupLine = regexp.MustCompile(`^\[([^\]]+)\]\s+\[(\w+)\]\s+\[(\w+)\]\s+(.*)$`)

func (p *BackupParser) Kind() models.ParserKind { return models.KindBackup }

func (p *BackupParser) ParseLines(lines []string, startOffset int64) Result {
	res := Result{}
	for i, line := range lines {
		res.BytesProcessed += lineBytes(line)
		if strings.TrimSpace(line) == "" {
			continue
		}

		m := backupLine.FindStringSubmatch(line)
		if m == nil {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "not a backup log line"))
			continue
		}
		ts, ok := parseTimestamp(m[1])
		if !ok {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "bad timestamp"))
			continue
		}
		level := strings.ToUpper(m[2])
		switch level {
		case models.LevelDebug, models.LevelInfo, models.LevelWarn, models.LevelError:
		default:
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "unknown level"))
			continue
		}

		message, details := kvDetails(m[4])
		ev := RawEvent{
			Time:      ts,
			EventType: strings.ToLower(m[3]),
			Level:     level,
			Message:   message,
			Details:   details,
		}
		if details != nil {
			ev.Server = details.String("server")
		}
		res.Entries = append(res.Entries, ev)
	}
	return res
}

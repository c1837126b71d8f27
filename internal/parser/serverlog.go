package parser

import (
	"regexp"
	"strings"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// ServerLogParser handles the date-suffixed daily server log in the engine's
// DebugLog dialect:
//
//	[25-08-26 16:22:20.880] LOG  : General     , 1756218140880> server started.
//	[25-08-26 16:22:21.003] WARN : Network     , 1756218141003> high packet loss for client 3.
//	[25-08-26 16:22:22.411] ERROR: Lua         , 1756218142411> attempted index: nil value.
type ServerLogParser struct{}

var serverLine = regexp.MustCompile(
	`^\[([^\]]+)\]\s+(LOG|WARN|ERROR|DEBUG)\s*:\s*([^,>]+?)\s*(?:,\s*(\d+))?>\s?(.*)$`)

func (p *ServerLogParser) Kind() models.ParserKind { return models.KindServer }

func (p *ServerLogParser) ParseLines(lines []string, startOffset int64) Result {
	res := Result{}
	for i, line := range lines {
		res.BytesProcessed += lineBytes(line)
		if strings.TrimSpace(line) == "" {
			continue
		}

		m := serverLine.FindStringSubmatch(line)
		if m == nil {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "not a server log line"))
			continue
		}
		ts, ok := parseTimestamp(m[1])
		if !ok {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "bad timestamp"))
			continue
		}

		ev := RawEvent{
			Time:      ts,
			EventType: strings.ToLower(strings.TrimSpace(m[3])),
			Level:     serverLevel(m[2]),
			Message:   m[5],
		}
		if m[4] != "" {
			ev.Details = models.Details{"engine_millis": m[4]}
		}
		res.Entries = append(res.Entries, ev)
	}
	return res
}

func serverLevel(tag string) string {
	switch tag {
	case "WARN":
		return models.LevelWarn
	case "ERROR":
		return models.LevelError
	case "DEBUG":
		return models.LevelDebug
	default:
		return models.LevelInfo
	}
}

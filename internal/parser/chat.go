package parser

import (
	"regexp"
	"strings"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// ChatParser handles chat.txt lines:
//
//	[25-08-26 16:22:20.880] Alice: hello there
//	[12:00] Alice: hello
//	[25-08-26 16:22:20.880] [faction] Bob: anyone near the mall?
type ChatParser struct{}

var chatLine = regexp.MustCompile(`^\[([^\]]+)\]\s*(?:\[([^\]]+)\]\s*)?([^:\[\]]+?):\s?(.*)$`)

func (p *ChatParser) Kind() models.ParserKind { return models.KindChat }

func (p *ChatParser) ParseLines(lines []string, startOffset int64) Result {
	res := Result{}
	for i, line := range lines {
		res.BytesProcessed += lineBytes(line)
		if strings.TrimSpace(line) == "" {
			continue
		}

		m := chatLine.FindStringSubmatch(line)
		if m == nil {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "not a chat line"))
			continue
		}
		ts, ok := parseTimestamp(m[1])
		if !ok {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "bad timestamp"))
			continue
		}

		ev := RawEvent{
			Time:      ts,
			EventType: "message",
			Username:  strings.TrimSpace(m[3]),
			Level:     models.LevelInfo,
			Message:   m[4],
		}
		if chatType := strings.TrimSpace(m[2]); chatType != "" {
			ev.Details = models.Details{"chat_type": strings.ToLower(chatType)}
		}
		res.Entries = append(res.Entries, ev)
	}
	return res
}

package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// PlayerParser handles user.txt connection events:
//
//	[25-08-26 16:22:20.880] 76561198012345678 "Alice" fully connected (10234,9456,0).
//	[25-08-26 16:29:03.120] 76561198012345678 "Alice" disconnected player (10301,9460,0).
//	[25-08-26 16:22:19.002] 76561198012345678 "Alice" attempting to connect.
type PlayerParser struct{}

var playerLine = regexp.MustCompile(
	`^\[([^\]]+)\]\s+(\d+)?\s*"([^"]+)"\s+(.+?)(?:\s*\((-?\d+),(-?\d+),(-?\d+)\))?\.?\s*$`)

func (p *PlayerParser) Kind() models.ParserKind { return models.KindPlayer }

func (p *PlayerParser) ParseLines(lines []string, startOffset int64) Result {
	res := Result{}
	for i, line := range lines {
		res.BytesProcessed += lineBytes(line)
		if strings.TrimSpace(line) == "" {
			continue
		}

		m := playerLine.FindStringSubmatch(line)
		if m == nil {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "not a player event"))
			continue
		}
		ts, ok := parseTimestamp(m[1])
		if !ok {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "bad timestamp"))
			continue
		}

		action := strings.TrimSpace(m[4])
		ev := RawEvent{
			Time:      ts,
			EventType: classifyPlayerAction(action),
			Username:  m[3],
			Level:     models.LevelInfo,
			Message:   action,
			Details:   models.Details{},
		}
		if m[2] != "" {
			ev.Details["steam_id"] = m[2]
		}
		if m[5] != "" {
			x, _ := strconv.ParseFloat(m[5], 64)
			y, _ := strconv.ParseFloat(m[6], 64)
			z, _ := strconv.ParseFloat(m[7], 64)
			ev.Details["x"], ev.Details["y"], ev.Details["z"] = x, y, z
		}
		res.Entries = append(res.Entries, ev)
	}
	return res
}

func classifyPlayerAction(action string) string {
	a := strings.ToLower(action)
	switch {
	case strings.Contains(a, "fully connected"):
		return "connected"
	case strings.Contains(a, "disconnect"), strings.Contains(a, "removed connection"):
		return "disconnected"
	case strings.Contains(a, "attempting"), strings.Contains(a, "login"):
		return "login"
	case strings.Contains(a, "kick"):
		return "kicked"
	case strings.Contains(a, "ban"):
		return "banned"
	case strings.Contains(a, "died"), strings.Contains(a, "death"):
		return "died"
	default:
		return "other"
	}
}

package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// PVPParser handles pvp.txt combat lines:
//
//	[25-08-26 16:22:20.880] user Alice (76561198000000001) hit user Bob (76561198000000002) with Axe damage 35.5
//	[25-08-26 16:25:11.020] user Alice (76561198000000001) killed user Bob (76561198000000002) with Shotgun
type PVPParser struct{}

var pvpLine = regexp.MustCompile(
	`^\[([^\]]+)\]\s+user\s+(\S+)\s+\((\d+)\)\s+(hit|killed|wounded)\s+user\s+(\S+)\s+\((\d+)\)(?:\s+with\s+(.+?))?(?:\s+damage\s+([\d.]+))?\s*$`)

func (p *PVPParser) Kind() models.ParserKind { return models.KindPVP }

func (p *PVPParser) ParseLines(lines []string, startOffset int64) Result {
	res := Result{}
	for i, line := range lines {
		res.BytesProcessed += lineBytes(line)
		if strings.TrimSpace(line) == "" {
			continue
		}

		m := pvpLine.FindStringSubmatch(line)
		if m == nil {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "not a pvp line"))
			continue
		}
		ts, ok := parseTimestamp(m[1])
		if !ok {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "bad timestamp"))
			continue
		}

		details := models.Details{
			"attacker":          m[2],
			"attacker_steam_id": m[3],
			"victim":            m[5],
			"victim_steam_id":   m[6],
		}
		if m[7] != "" {
			details["weapon"] = strings.TrimSpace(m[7])
		}
		if m[8] != "" {
			if dmg, err := strconv.ParseFloat(m[8], 64); err == nil {
				details["damage"] = dmg
			}
		}
		level := models.LevelInfo
		if m[4] == "killed" {
			level = models.LevelWarn
		}

		res.Entries = append(res.Entries, RawEvent{
			Time:      ts,
			EventType: m[4],
			Username:  m[2],
			Level:     level,
			Message:   strings.TrimSpace(line[strings.Index(line, "]")+1:]),
			Details:   details,
		})
	}
	return res
}

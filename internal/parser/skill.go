package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// SkillParser handles PerkLog.txt snapshot lines, a dense bracket dialect:
//
//	[25-08-26 16:22:20.880][76561198012345678][Alice][10234,9456,0][Sprinting=2, Strength=5, Fitness=9][Hours Survived: 12]
type SkillParser struct{}

var skillBrackets = regexp.MustCompile(`\[([^\]]*)\]`)
var hoursSurvived = regexp.MustCompile(`(?i)hours\s*survived:\s*([\d.]+)`)

func (p *SkillParser) Kind() models.ParserKind { return models.KindSkill }

func (p *SkillParser) ParseLines(lines []string, startOffset int64) Result {
	res := Result{}
	for i, line := range lines {
		res.BytesProcessed += lineBytes(line)
		if strings.TrimSpace(line) == "" {
			continue
		}

		groups := skillBrackets.FindAllStringSubmatch(line, -1)
		if len(groups) < 5 {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "expected at least 5 bracket groups"))
			continue
		}
		ts, ok := parseTimestamp(groups[0][1])
		if !ok {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "bad timestamp"))
			continue
		}

		steamID := strings.TrimSpace(groups[1][1])
		username := strings.TrimSpace(groups[2][1])
		if username == "" {
			res.Errors = append(res.Errors, parseError(p.Kind(), i+1, line, "missing username"))
			continue
		}

		details := models.Details{"steam_id": steamID}
		if coords := strings.Split(groups[3][1], ","); len(coords) == 3 {
			x, _ := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
			y, _ := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
			z, _ := strconv.ParseFloat(strings.TrimSpace(coords[2]), 64)
			details["x"], details["y"], details["z"] = x, y, z
		}

		skills := parseSkillPairs(groups[4][1])
		details["skills"] = skills

		for _, g := range groups[5:] {
			if m := hoursSurvived.FindStringSubmatch(g[1]); m != nil {
				if h, err := strconv.ParseFloat(m[1], 64); err == nil {
					details["hours_survived"] = h
				}
			}
		}

		res.Entries = append(res.Entries, RawEvent{
			Time:      ts,
			EventType: "snapshot",
			Username:  username,
			Level:     models.LevelInfo,
			Message:   groups[4][1],
			Details:   details,
		})
	}
	return res
}

func parseSkillPairs(s string) map[string]int {
	skills := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		name, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		level, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			continue
		}
		skills[strings.TrimSpace(name)] = level
	}
	return skills
}

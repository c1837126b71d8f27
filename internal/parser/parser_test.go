package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

func TestNewCoversEveryKind(t *testing.T) {
	for _, kind := range []models.ParserKind{
		models.KindBackup, models.KindPlayer, models.KindServer,
		models.KindChat, models.KindPVP, models.KindSkill,
	} {
		p, err := New(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, p.Kind())
	}

	_, err := New(models.ParserKind("bogus"))
	assert.Error(t, err)
}

func TestChatParser(t *testing.T) {
	p := &ChatParser{}

	res := p.ParseLines([]string{`[12:00] Alice: hello`}, 0)
	require.Len(t, res.Entries, 1)
	require.Empty(t, res.Errors)

	e := res.Entries[0]
	assert.Equal(t, "Alice", e.Username)
	assert.Equal(t, "hello", e.Message)
	assert.Equal(t, "message", e.EventType)
	assert.Equal(t, 12, e.Time.Hour())
	assert.Equal(t, 0, e.Time.Minute())

	// Byte accounting: consumed bytes include the newline.
	assert.Equal(t, int64(len("[12:00] Alice: hello")+1), res.BytesProcessed)
}

func TestChatParserChannelBracket(t *testing.T) {
	p := &ChatParser{}

	res := p.ParseLines([]string{`[25-08-26 16:22:20.880] [Faction] Bob: anyone near the mall?`}, 0)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "Bob", res.Entries[0].Username)
	assert.Equal(t, "faction", res.Entries[0].Details.String("chat_type"))
	assert.Equal(t, 2025, res.Entries[0].Time.Year())
}

func TestChatParserMultibyteBytes(t *testing.T) {
	p := &ChatParser{}

	line := `[12:00] Zoë: привет`
	res := p.ParseLines([]string{line}, 0)
	require.Len(t, res.Entries, 1)
	// len() counts UTF-8 bytes, not runes.
	assert.Equal(t, int64(len(line)+1), res.BytesProcessed)
}

func TestChatParserMalformedLineSkipped(t *testing.T) {
	p := &ChatParser{}

	lines := []string{
		`[12:00] Alice: hello`,
		`no brackets here at all`,
		`[12:01] Bob: still works`,
	}
	res := p.ParseLines(lines, 0)

	assert.Len(t, res.Entries, 2)
	assert.Len(t, res.Errors, 1)
	// Malformed lines are consumed: the watermark must advance past them.
	want := int64(0)
	for _, l := range lines {
		want += int64(len(l)) + 1
	}
	assert.Equal(t, want, res.BytesProcessed)
}

func TestPlayerParser(t *testing.T) {
	p := &PlayerParser{}

	tests := []struct {
		name      string
		line      string
		eventType string
		username  string
	}{
		{
			name:      "fully connected",
			line:      `[25-08-26 16:22:20.880] 76561198012345678 "Alice" fully connected (10234,9456,0).`,
			eventType: "connected",
			username:  "Alice",
		},
		{
			name:      "disconnected",
			line:      `[25-08-26 16:29:03.120] 76561198012345678 "Alice" disconnected player (10301,9460,0).`,
			eventType: "disconnected",
			username:  "Alice",
		},
		{
			name:      "attempting connect",
			line:      `[25-08-26 16:22:19.002] 76561198012345678 "Bob" attempting to connect.`,
			eventType: "login",
			username:  "Bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.ParseLines([]string{tt.line}, 0)
			require.Len(t, res.Entries, 1, "errors: %v", res.Errors)
			assert.Equal(t, tt.eventType, res.Entries[0].EventType)
			assert.Equal(t, tt.username, res.Entries[0].Username)
			assert.Equal(t, "76561198012345678", res.Entries[0].Details.String("steam_id"))
		})
	}
}

func TestPlayerParserCoordinates(t *testing.T) {
	p := &PlayerParser{}

	res := p.ParseLines([]string{`[25-08-26 16:22:20.880] 76561198012345678 "Alice" fully connected (10234,9456,0).`}, 0)
	require.Len(t, res.Entries, 1)

	x, ok := res.Entries[0].Details.Float("x")
	require.True(t, ok)
	assert.Equal(t, float64(10234), x)
	y, _ := res.Entries[0].Details.Float("y")
	assert.Equal(t, float64(9456), y)
}

func TestServerLogParser(t *testing.T) {
	p := &ServerLogParser{}

	lines := []string{
		`[25-08-26 16:22:20.880] LOG  : General     , 1756218140880> server started.`,
		`[25-08-26 16:22:21.003] WARN : Network     , 1756218141003> high packet loss for client 3.`,
		`[25-08-26 16:22:22.411] ERROR: Lua         , 1756218142411> attempted index: nil value.`,
	}
	res := p.ParseLines(lines, 0)
	require.Len(t, res.Entries, 3, "errors: %v", res.Errors)

	assert.Equal(t, models.LevelInfo, res.Entries[0].Level)
	assert.Equal(t, "general", res.Entries[0].EventType)
	assert.Equal(t, "server started.", res.Entries[0].Message)

	assert.Equal(t, models.LevelWarn, res.Entries[1].Level)
	assert.Equal(t, "network", res.Entries[1].EventType)

	assert.Equal(t, models.LevelError, res.Entries[2].Level)
	assert.Equal(t, "attempted index: nil value.", res.Entries[2].Message)
}

func TestPVPParser(t *testing.T) {
	p := &PVPParser{}

	res := p.ParseLines([]string{
		`[25-08-26 16:22:20.880] user Alice (76561198000000001) hit user Bob (76561198000000002) with Axe damage 35.5`,
		`[25-08-26 16:25:11.020] user Alice (76561198000000001) killed user Bob (76561198000000002) with Shotgun`,
	}, 0)
	require.Len(t, res.Entries, 2, "errors: %v", res.Errors)

	hit := res.Entries[0]
	assert.Equal(t, "hit", hit.EventType)
	assert.Equal(t, "Alice", hit.Details.String("attacker"))
	assert.Equal(t, "Bob", hit.Details.String("victim"))
	assert.Equal(t, "Axe", hit.Details.String("weapon"))
	dmg, ok := hit.Details.Float("damage")
	require.True(t, ok)
	assert.InDelta(t, 35.5, dmg, 0.001)
	assert.Equal(t, models.LevelInfo, hit.Level)

	kill := res.Entries[1]
	assert.Equal(t, "killed", kill.EventType)
	assert.Equal(t, models.LevelWarn, kill.Level)
	assert.Equal(t, "Shotgun", kill.Details.String("weapon"))
}

func TestSkillParser(t *testing.T) {
	p := &SkillParser{}

	res := p.ParseLines([]string{
		`[25-08-26 16:22:20.880][76561198012345678][Alice][10234,9456,0][Sprinting=2, Strength=5, Fitness=9][Hours Survived: 12]`,
	}, 0)
	require.Len(t, res.Entries, 1, "errors: %v", res.Errors)

	e := res.Entries[0]
	assert.Equal(t, "Alice", e.Username)
	assert.Equal(t, "snapshot", e.EventType)
	assert.Equal(t, "76561198012345678", e.Details.String("steam_id"))

	skills, ok := e.Details["skills"].(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 2, skills["Sprinting"])
	assert.Equal(t, 5, skills["Strength"])
	assert.Equal(t, 9, skills["Fitness"])

	hours, ok := e.Details.Float("hours_survived")
	require.True(t, ok)
	assert.Equal(t, float64(12), hours)
}

func TestSkillParserTooFewGroups(t *testing.T) {
	p := &SkillParser{}

	res := p.ParseLines([]string{`[25-08-26 16:22:20.880][76561198012345678][Alice]`}, 0)
	assert.Empty(t, res.Entries)
	assert.Len(t, res.Errors, 1)
}

func TestBackupParser(t *testing.T) {
	p := &BackupParser{}

	res := p.ParseLines([]string{
		`[2026-08-26 16:22:20] [INFO] [backup] snapshot completed server=alpha size=1234567 duration=12.3s`,
		`[2026-08-26 16:40:02] [ERROR] [restore] snapshot missing server=alpha snapshot=s-42`,
	}, 0)
	require.Len(t, res.Entries, 2, "errors: %v", res.Errors)

	ok := res.Entries[0]
	assert.Equal(t, "backup", ok.EventType)
	assert.Equal(t, models.LevelInfo, ok.Level)
	assert.Equal(t, "snapshot completed", ok.Message)
	assert.Equal(t, "alpha", ok.Server)
	assert.Equal(t, "1234567", ok.Details.String("size"))

	bad := res.Entries[1]
	assert.Equal(t, "restore", bad.EventType)
	assert.Equal(t, models.LevelError, bad.Level)
	assert.Equal(t, "s-42", bad.Details.String("snapshot"))
}

func TestParseTimestampLayouts(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		year int
	}{
		{"25-08-26 16:22:20.880", true, 2025},
		{"2026-08-26 16:22:20", true, 2026},
		{"2026-08-26T16:22:20Z", true, 2026},
		{"16:22:20", true, time.Now().Year()},
		{"12:00", true, time.Now().Year()},
		{"not a time", false, 0},
		{"", false, 0},
	}
	for _, tt := range tests {
		ts, ok := parseTimestamp(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.year, ts.Year(), "input %q", tt.in)
		}
	}
}

func TestKvDetails(t *testing.T) {
	msg, details := kvDetails("snapshot completed server=alpha size=42")
	assert.Equal(t, "snapshot completed", msg)
	assert.Equal(t, "alpha", details.String("server"))
	assert.Equal(t, "42", details.String("size"))

	msg, details = kvDetails("plain message without pairs")
	assert.Equal(t, "plain message without pairs", msg)
	assert.Nil(t, details)
}

func TestEmptyLinesConsumedSilently(t *testing.T) {
	p := &ChatParser{}

	res := p.ParseLines([]string{"", "  ", `[12:00] Alice: hi`}, 0)
	assert.Len(t, res.Entries, 1)
	assert.Empty(t, res.Errors)
	assert.Equal(t, int64(1+3+len(`[12:00] Alice: hi`)+1), res.BytesProcessed)
}

// Package seeder writes realistic game-server log lines for demoing the
// watcher end to end and for generating fixtures.
package seeder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/duynguyen020304/pz-manager-sub001/internal/logging"
)

// Config controls how much gets written and where.
type Config struct {
	LogDir       string
	BackupLogDir string
	Servers      []string
	Lines        int
	Batches      int
	Interval     time.Duration
}

type Seeder struct {
	cfg Config
	log *logging.Logger
}

func New(cfg Config, log *logging.Logger) *Seeder {
	if cfg.Lines <= 0 {
		cfg.Lines = 20
	}
	if cfg.Batches <= 0 {
		cfg.Batches = 1
	}
	return &Seeder{cfg: cfg, log: log.Component("seeder")}
}

// Run appends batches of generated lines to every log file of every server,
// sleeping the configured interval between batches so the watcher sees
// ongoing writes.
func (s *Seeder) Run(ctx context.Context) error {
	for batch := 0; batch < s.cfg.Batches; batch++ {
		if batch > 0 && s.cfg.Interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.Interval):
			}
		}

		for _, server := range s.cfg.Servers {
			if err := s.seedServer(server); err != nil {
				return err
			}
		}
		s.log.Info("seeded batch", "batch", batch+1, "servers", len(s.cfg.Servers))
	}
	return nil
}

func (s *Seeder) seedServer(server string) error {
	dir := filepath.Join(s.cfg.LogDir, server)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := os.MkdirAll(s.cfg.BackupLogDir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup log directory: %w", err)
	}

	files := map[string]func(t time.Time) string{
		filepath.Join(dir, "user.txt"):    playerLine,
		filepath.Join(dir, "chat.txt"):    chatLine,
		filepath.Join(dir, "pvp.txt"):     pvpLine,
		filepath.Join(dir, "PerkLog.txt"): skillLine,
		filepath.Join(dir, "server.txt"):  serverLine,
		filepath.Join(s.cfg.BackupLogDir, server+".log"): func(t time.Time) string {
			return backupLine(t, server)
		},
	}

	now := time.Now()
	for path, gen := range files {
		var b strings.Builder
		for i := 0; i < s.cfg.Lines; i++ {
			t := now.Add(-time.Duration(s.cfg.Lines-i) * time.Second)
			b.WriteString(gen(t))
			b.WriteByte('\n')
		}
		if err := appendFile(path, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

const gameTimeLayout = "06-01-02 15:04:05.000"

func steamID() string {
	return fmt.Sprintf("7656119%09d", gofakeit.Number(0, 999999999))
}

func playerLine(t time.Time) string {
	actions := []string{"fully connected", "disconnected player", "attempting to connect"}
	return fmt.Sprintf("[%s] %s \"%s\" %s (%d,%d,0).",
		t.Format(gameTimeLayout), steamID(), gofakeit.Username(),
		gofakeit.RandomString(actions),
		gofakeit.Number(9000, 12000), gofakeit.Number(8000, 11000))
}

func chatLine(t time.Time) string {
	channels := []string{"general", "faction", "safehouse"}
	return fmt.Sprintf("[%s] [%s] %s: %s",
		t.Format(gameTimeLayout), gofakeit.RandomString(channels),
		gofakeit.Username(), gofakeit.Sentence(gofakeit.Number(3, 8)))
}

func pvpLine(t time.Time) string {
	weapons := []string{"Axe", "Shotgun", "Kitchen Knife", "Baseball Bat", "Crowbar"}
	verb := gofakeit.RandomString([]string{"hit", "hit", "hit", "killed"})
	line := fmt.Sprintf("[%s] user %s (%s) %s user %s (%s) with %s",
		t.Format(gameTimeLayout), gofakeit.Username(), steamID(),
		verb, gofakeit.Username(), steamID(), gofakeit.RandomString(weapons))
	if verb == "hit" {
		line += fmt.Sprintf(" damage %.1f", gofakeit.Float64Range(1, 60))
	}
	return line
}

func skillLine(t time.Time) string {
	return fmt.Sprintf("[%s][%s][%s][%d,%d,0][Sprinting=%d, Strength=%d, Fitness=%d, Aiming=%d][Hours Survived: %d]",
		t.Format(gameTimeLayout), steamID(), gofakeit.Username(),
		gofakeit.Number(9000, 12000), gofakeit.Number(8000, 11000),
		gofakeit.Number(0, 10), gofakeit.Number(0, 10),
		gofakeit.Number(0, 10), gofakeit.Number(0, 10),
		gofakeit.Number(1, 300))
}

func serverLine(t time.Time) string {
	tags := []string{"LOG  ", "LOG  ", "LOG  ", "WARN ", "ERROR"}
	subsystems := []string{"General", "Network", "Lua", "Zombie", "WorldSave"}
	return fmt.Sprintf("[%s] %s: %-12s, %d> %s",
		t.Format(gameTimeLayout), gofakeit.RandomString(tags),
		gofakeit.RandomString(subsystems), t.UnixMilli(),
		gofakeit.Sentence(gofakeit.Number(4, 10)))
}

func backupLine(t time.Time, server string) string {
	levels := []string{"INFO", "INFO", "INFO", "WARN", "ERROR"}
	ops := []string{"backup", "restore", "prune"}
	return fmt.Sprintf("[%s] [%s] [%s] %s server=%s size=%d duration=%.1fs",
		t.Format("2006-01-02 15:04:05"), gofakeit.RandomString(levels),
		gofakeit.RandomString(ops), gofakeit.HackerPhrase(),
		server, gofakeit.Number(1_000_000, 900_000_000),
		gofakeit.Float64Range(0.5, 60))
}

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-match-telemetry/internal/model"
	"github.com/pable/go-match-telemetry/internal/rating"
	"github.com/pable/go-match-telemetry/internal/report"
	"github.com/pable/go-match-telemetry/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

type shell struct {
	ctx     context.Context
	db      *storage.DB
	ratings *rating.Service
}

func runShell(cmd *cobra.Command, _ []string) error {
	db, err := openDB(false)
	if err != nil {
		return err
	}
	defer db.Close()
	sh := &shell{ctx: cmd.Context(), db: db, ratings: rating.NewService(db, cfg.MaxRecentElo, log)}

	cGreeting.Println("matchtel shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("matchtel")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		name, args := tokens[0], tokens[1:]

		var err error
		switch name {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "list":
			err = sh.list()
		case "show":
			if len(args) != 1 {
				cError.Fprintln(os.Stderr, "usage: show <match-id-prefix>")
				continue
			}
			err = sh.withMatch(args[0], func(m *model.MatchHistoryEntry) error {
				printMatch(m)
				return nil
			})
		case "rounds":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: rounds <match-id-prefix> [uid]")
				continue
			}
			err = sh.withMatch(args[0], func(m *model.MatchHistoryEntry) error {
				uid := ""
				if len(args) > 1 {
					uid = args[1]
				} else if p, ok := m.LocalPlayer(); ok {
					uid = p.UID
				}
				report.PrintRoundTable(os.Stdout, m.Rounds, uid)
				return nil
			})
		case "sessions":
			if len(args) != 1 {
				cError.Fprintln(os.Stderr, "usage: sessions <match-id-prefix>")
				continue
			}
			err = sh.withMatch(args[0], sh.sessions)
		case "elo":
			mode := rating.ModeComp
			if len(args) > 0 {
				if mode, err = rating.ParseMode(args[0]); err != nil {
					break
				}
			}
			err = sh.elo(mode)
		case "players":
			err = sh.players()
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
		}
		if err != nil {
			cError.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored matches"},
		{"show <match-id-prefix>", "show a match's players, teams and kills"},
		{"rounds <match-id-prefix> [uid]", "per-round snapshots for one player"},
		{"sessions <match-id-prefix>", "character sessions of a match"},
		{"elo [comp|quick]", "rating history for one mode"},
		{"players", "players met most recently"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func (sh *shell) list() error {
	matches, err := sh.db.ListMatches(sh.ctx)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		cMuted.Println("No matches stored yet.")
		return nil
	}
	report.PrintMatchList(os.Stdout, matches)
	return nil
}

func (sh *shell) withMatch(prefix string, fn func(*model.MatchHistoryEntry) error) error {
	s, err := sh.db.GetMatchByPrefix(sh.ctx, prefix)
	if errors.Is(err, storage.ErrNotFound) {
		cWarn.Fprintf(os.Stderr, "no match found with prefix %q\n", prefix)
		return nil
	}
	if err != nil {
		return err
	}
	m, err := sh.db.LoadMatch(sh.ctx, s.MatchID)
	if err != nil {
		return err
	}
	return fn(&m)
}

func (sh *shell) sessions(m *model.MatchHistoryEntry) error {
	sessions, err := sh.db.GetSessions(sh.ctx, m.MatchID)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(m.Players))
	for uid, p := range m.Players {
		names[uid] = p.Name
	}
	report.PrintSessionTable(os.Stdout, sessions, names)
	return nil
}

func (sh *shell) elo(mode rating.Mode) error {
	points, err := sh.ratings.History(sh.ctx, mode)
	if err != nil {
		return err
	}
	cHeader.Fprintf(os.Stdout, "--- %s ---\n", mode)
	if len(points) == 0 {
		cMuted.Println("No rating points recorded.")
		return nil
	}
	report.PrintRatingTable(os.Stdout, points)
	return nil
}

func (sh *shell) players() error {
	players, err := sh.db.ListEncounters(sh.ctx, 25)
	if err != nil {
		return err
	}
	if len(players) == 0 {
		cMuted.Println("No players encountered yet.")
		return nil
	}
	report.PrintEncounterTable(os.Stdout, players)
	return nil
}

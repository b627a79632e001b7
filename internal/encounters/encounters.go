// Package encounters rolls finished matches up into per-player records of who
// the local player has played with and against.
package encounters

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pable/go-match-telemetry/internal/model"
)

// MaxCharacterHistory caps the per-player character history.
const MaxCharacterHistory = 50

// ignoredNames are roster entries that are game objects, not players.
var ignoredNames = map[string]bool{
	"Monster":                      true,
	"ZombieAbilitySourceCharacter": true,
}

// CharacterRecord is a W/L tally for one character.
type CharacterRecord struct {
	Count  int `json:"count"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// HistoryEntry is one completed character session of an encountered player.
type HistoryEntry struct {
	MatchID       string `json:"matchId"`
	CharacterName string `json:"characterName"`
	TimeSpentMs   int64  `json:"timeSpentMs"`
	Kills         int    `json:"kills"`
	Deaths        int    `json:"deaths"`
	Assists       int    `json:"assists"`
	Timestamp     int64  `json:"timestamp"`
	IsAlly        bool   `json:"isAlly"`
}

// Player is everything remembered about one uid across matches. Win/loss
// figures are from that player's point of view.
type Player struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	LastSeen int64  `json:"lastSeen"`
	IsLocal  bool   `json:"isLocal"`

	WithCount     int `json:"withCount"`
	WithWins      int `json:"withWins"`
	WithLosses    int `json:"withLosses"`
	AgainstCount  int `json:"againstCount"`
	AgainstWins   int `json:"againstWins"`
	AgainstLosses int `json:"againstLosses"`

	AllyCharacters     map[string]CharacterRecord `json:"allyCharacters"`
	OpponentCharacters map[string]CharacterRecord `json:"opponentCharacters"`
	CharacterHistory   []HistoryEntry             `json:"characterHistory"`

	// EloByMode is only kept for the local player.
	EloByMode map[string]float64 `json:"eloByMode,omitempty"`
}

// Games returns how many matches the player was seen in.
func (p *Player) Games() int { return p.WithCount + p.AgainstCount }

func newPlayer(uid string) Player {
	return Player{
		UID:                uid,
		AllyCharacters:     make(map[string]CharacterRecord),
		OpponentCharacters: make(map[string]CharacterRecord),
	}
}

// Elo is the local player's rating observed during a match.
type Elo struct {
	Mode  string
	Value float64
}

// Store persists encounter records.
type Store interface {
	LoadEncounters(ctx context.Context, uids []string) (map[string]Player, error)
	SaveEncounters(ctx context.Context, players []Player) error
}

// Fold applies one archived match to the existing records and returns every
// record it touched, sorted by uid. existing is not modified.
func Fold(existing map[string]Player, match model.MatchHistoryEntry, sessions []model.CompletedSession, elo *Elo) []Player {
	when := matchTime(&match.MatchSnapshot)
	byUID := make(map[string][]model.CompletedSession)
	for _, s := range sessions {
		byUID[s.UID] = append(byUID[s.UID], s)
	}

	var out []Player
	for _, uid := range sortedUIDs(match.Players) {
		rec := match.Players[uid]
		if ignoredNames[rec.Name] {
			continue
		}
		p, ok := existing[uid]
		if ok {
			p = p.clone()
		} else {
			p = newPlayer(uid)
		}
		p.Name = rec.Name
		p.LastSeen = when

		if rec.IsLocal {
			p.IsLocal = true
			if elo != nil && elo.Mode != "" {
				if p.EloByMode == nil {
					p.EloByMode = make(map[string]float64)
				}
				p.EloByMode[elo.Mode] = elo.Value
			}
			out = append(out, p)
			continue
		}

		won, lost := match.Outcome == model.OutcomeVictory, match.Outcome == model.OutcomeDefeat
		if rec.IsTeammate {
			p.WithCount++
			if won {
				p.WithWins++
			}
			tally(p.AllyCharacters, rec.CharacterName, won, lost)
		} else {
			// their result is the inverse of ours
			p.AgainstCount++
			if lost {
				p.AgainstWins++
			}
			tally(p.OpponentCharacters, rec.CharacterName, lost, won)
		}
		p.WithLosses = max(0, p.WithCount-p.WithWins)
		p.AgainstLosses = max(0, p.AgainstCount-p.AgainstWins)

		for _, s := range byUID[uid] {
			p.CharacterHistory = append(p.CharacterHistory, HistoryEntry{
				MatchID:       match.MatchID,
				CharacterName: s.CharacterName,
				TimeSpentMs:   s.TimeSpentMs,
				Kills:         s.Kills,
				Deaths:        s.Deaths,
				Assists:       s.Assists,
				Timestamp:     s.Timestamp,
				IsAlly:        s.IsAlly,
			})
		}
		sort.SliceStable(p.CharacterHistory, func(i, j int) bool {
			return p.CharacterHistory[i].Timestamp > p.CharacterHistory[j].Timestamp
		})
		if len(p.CharacterHistory) > MaxCharacterHistory {
			p.CharacterHistory = p.CharacterHistory[:MaxCharacterHistory]
		}
		out = append(out, p)
	}
	return out
}

func tally(stats map[string]CharacterRecord, character string, win, loss bool) {
	if character == "" {
		return
	}
	r := stats[character]
	r.Count++
	if win {
		r.Wins++
	} else if loss {
		r.Losses++
	}
	stats[character] = r
}

func (p Player) clone() Player {
	out := p
	out.AllyCharacters = make(map[string]CharacterRecord, len(p.AllyCharacters))
	for k, v := range p.AllyCharacters {
		out.AllyCharacters[k] = v
	}
	out.OpponentCharacters = make(map[string]CharacterRecord, len(p.OpponentCharacters))
	for k, v := range p.OpponentCharacters {
		out.OpponentCharacters[k] = v
	}
	out.CharacterHistory = append([]HistoryEntry(nil), p.CharacterHistory...)
	if p.EloByMode != nil {
		out.EloByMode = make(map[string]float64, len(p.EloByMode))
		for k, v := range p.EloByMode {
			out.EloByMode[k] = v
		}
	}
	return out
}

func matchTime(m *model.MatchSnapshot) int64 {
	switch {
	case m.Timestamps.MatchEnd != nil:
		return *m.Timestamps.MatchEnd
	case m.Timestamps.MatchStart != nil:
		return *m.Timestamps.MatchStart
	default:
		return 0
	}
}

func sortedUIDs(players map[string]model.PlayerRecord) []string {
	uids := make([]string, 0, len(players))
	for uid := range players {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// Book records encounters through a Store.
type Book struct {
	store Store
	log   zerolog.Logger
}

// NewBook returns a Book backed by store.
func NewBook(store Store, log zerolog.Logger) *Book {
	return &Book{store: store, log: log}
}

// Record folds an archived match into the stored encounter records.
func (b *Book) Record(ctx context.Context, match model.MatchHistoryEntry, sessions []model.CompletedSession, elo *Elo) error {
	uids := sortedUIDs(match.Players)
	existing, err := b.store.LoadEncounters(ctx, uids)
	if err != nil {
		return fmt.Errorf("load encounters: %w", err)
	}
	players := Fold(existing, match, sessions, elo)
	if err := b.store.SaveEncounters(ctx, players); err != nil {
		return fmt.Errorf("save encounters: %w", err)
	}
	b.log.Info().Str("match_id", match.MatchID).Int("players", len(players)).
		Str("outcome", string(match.Outcome)).Msg("encounters recorded")
	return nil
}

package model

// Outcome is the local team's result for a match as reported by the feed.
type Outcome string

const (
	OutcomeVictory Outcome = "Victory"
	OutcomeDefeat  Outcome = "Defeat"
	OutcomeDraw    Outcome = "Draw"
	OutcomeUnknown Outcome = "Unknown"
)

// ParseOutcome maps a feed value onto an Outcome. Anything unrecognised is Unknown.
func ParseOutcome(s string) Outcome {
	switch s {
	case "Victory", "victory", "win", "Win":
		return OutcomeVictory
	case "Defeat", "defeat", "loss", "Loss", "lose":
		return OutcomeDefeat
	case "Draw", "draw", "tie", "Tie":
		return OutcomeDraw
	default:
		return OutcomeUnknown
	}
}

// CharacterSwap records one active-character change for a player.
type CharacterSwap struct {
	Old       string `json:"oldCharacterName"`
	New       string `json:"newCharacterName"`
	Timestamp int64  `json:"timestamp"`
}

// PlayerRecord is the durable per-uid record for the current match.
//
// Kills, Deaths and Assists are authoritative values from roster fragments.
// FinalHits, KilledPlayers and KilledBy are accumulated locally from the kill
// feed. Damage fields only ever carry data for the local player.
type PlayerRecord struct {
	UID           string `json:"uid"`
	Name          string `json:"name"`
	CharacterName string `json:"characterName"`
	CharacterID   string `json:"characterId"`
	Team          int    `json:"team"`

	IsTeammate bool `json:"isTeammate"`
	IsLocal    bool `json:"isLocal"`
	IsAlive    bool `json:"isAlive"`

	Kills     int `json:"kills"`
	Deaths    int `json:"deaths"`
	Assists   int `json:"assists"`
	FinalHits int `json:"finalHits"`

	DamageDealt   float64 `json:"damageDealt"`
	DamageBlocked float64 `json:"damageBlocked"`
	TotalHeal     float64 `json:"totalHeal"`

	PctTeamDamage  float64 `json:"pctTeamDamage"`
	PctTeamBlocked float64 `json:"pctTeamBlocked"`
	PctTeamHealing float64 `json:"pctTeamHealing"`

	// UltCharge is nil for opponents.
	UltCharge *float64 `json:"ultCharge"`

	KilledPlayers  map[string]int  `json:"killedPlayers"`
	KilledBy       map[string]int  `json:"killedBy"`
	CharacterSwaps []CharacterSwap `json:"characterSwaps"`

	// LastUpdated is the epoch millis of the most recent accepted roster fragment.
	LastUpdated *int64 `json:"lastUpdated"`
}

// HasActivity reports whether the player has contributed anything countable.
func (p *PlayerRecord) HasActivity() bool {
	return p.Kills != 0 || p.Deaths != 0 || p.Assists != 0 || p.FinalHits != 0 ||
		p.DamageDealt != 0 || p.DamageBlocked != 0 || p.TotalHeal != 0
}

// KDRatio returns kills per death, or kills when the player never died.
func (p *PlayerRecord) KDRatio() float64 {
	if p.Deaths == 0 {
		return float64(p.Kills)
	}
	return float64(p.Kills) / float64(p.Deaths)
}

// KDARatio returns (kills + assists) per death.
func (p *PlayerRecord) KDARatio() float64 {
	if p.Deaths == 0 {
		return float64(p.Kills + p.Assists)
	}
	return float64(p.Kills+p.Assists) / float64(p.Deaths)
}

// Clone returns a structurally independent copy of the record.
func (p PlayerRecord) Clone() PlayerRecord {
	out := p
	if p.UltCharge != nil {
		v := *p.UltCharge
		out.UltCharge = &v
	}
	if p.LastUpdated != nil {
		v := *p.LastUpdated
		out.LastUpdated = &v
	}
	out.KilledPlayers = cloneCounts(p.KilledPlayers)
	out.KilledBy = cloneCounts(p.KilledBy)
	if p.CharacterSwaps != nil {
		out.CharacterSwaps = append([]CharacterSwap(nil), p.CharacterSwaps...)
	}
	return out
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// TeamAggregate is always derived by summing the PlayerRecords of one team.
type TeamAggregate struct {
	FinalHits    int     `json:"finalHits"`
	TotalDamage  float64 `json:"totalDamage"`
	TotalBlocked float64 `json:"totalBlocked"`
	TotalHealing float64 `json:"totalHealing"`
}

// Timestamps holds the match boundary times in epoch millis.
type Timestamps struct {
	MatchStart *int64 `json:"matchStart"`
	MatchEnd   *int64 `json:"matchEnd"`
}

// MatchSnapshot is a point-in-time view of a match.
type MatchSnapshot struct {
	MatchID  string  `json:"matchId"`
	Map      string  `json:"map"`
	GameType string  `json:"gameType"`
	GameMode string  `json:"gameMode"`
	Outcome  Outcome `json:"outcome"`

	Players    map[string]PlayerRecord `json:"players"`
	TeamStats  map[int]TeamAggregate   `json:"teamStats"`
	Timestamps Timestamps              `json:"timestamps"`
}

// NewMatchSnapshot returns an empty snapshot with initialised maps.
func NewMatchSnapshot() MatchSnapshot {
	return MatchSnapshot{
		Outcome:   OutcomeUnknown,
		Players:   make(map[string]PlayerRecord),
		TeamStats: make(map[int]TeamAggregate),
	}
}

// Clone returns a deep copy of the snapshot.
func (m MatchSnapshot) Clone() MatchSnapshot {
	out := m
	out.Players = make(map[string]PlayerRecord, len(m.Players))
	for uid, p := range m.Players {
		out.Players[uid] = p.Clone()
	}
	out.TeamStats = make(map[int]TeamAggregate, len(m.TeamStats))
	for team, agg := range m.TeamStats {
		out.TeamStats[team] = agg
	}
	if m.Timestamps.MatchStart != nil {
		v := *m.Timestamps.MatchStart
		out.Timestamps.MatchStart = &v
	}
	if m.Timestamps.MatchEnd != nil {
		v := *m.Timestamps.MatchEnd
		out.Timestamps.MatchEnd = &v
	}
	return out
}

// LocalPlayer returns the player flagged local, if any.
func (m *MatchSnapshot) LocalPlayer() (PlayerRecord, bool) {
	for _, p := range m.Players {
		if p.IsLocal {
			return p, true
		}
	}
	return PlayerRecord{}, false
}

// DurationMs returns matchEnd - matchStart, or 0 when either is unset.
func (m *MatchSnapshot) DurationMs() int64 {
	if m.Timestamps.MatchStart == nil || m.Timestamps.MatchEnd == nil {
		return 0
	}
	return *m.Timestamps.MatchEnd - *m.Timestamps.MatchStart
}

// CurrentMatch is the live match plus the snapshots taken at round boundaries.
type CurrentMatch struct {
	MatchSnapshot
	Rounds []MatchSnapshot `json:"rounds"`
}

// NewCurrentMatch returns an idle, empty current match.
func NewCurrentMatch() CurrentMatch {
	return CurrentMatch{MatchSnapshot: NewMatchSnapshot()}
}

// Clone returns a deep copy including every round snapshot.
func (c CurrentMatch) Clone() CurrentMatch {
	out := CurrentMatch{MatchSnapshot: c.MatchSnapshot.Clone()}
	if c.Rounds != nil {
		out.Rounds = make([]MatchSnapshot, len(c.Rounds))
		for i, r := range c.Rounds {
			out.Rounds[i] = r.Clone()
		}
	}
	return out
}

// IsLive reports whether the match has started and not yet ended.
func IsLive(m *CurrentMatch) bool {
	return m.Timestamps.MatchStart != nil && m.Timestamps.MatchEnd == nil
}

// HasAnyData distinguishes "no match ever seen" from "match ended".
func HasAnyData(m *CurrentMatch) bool {
	return m.MatchID != "" || len(m.Players) > 0
}

// CharacterSession is the open session for one uid.
type CharacterSession struct {
	CharacterName string
	StartTime     int64
	StartKills    int
	StartDeaths   int
	StartAssists  int
	IsAlly        bool
}

// CompletedSession is a closed CharacterSession with per-session KDA deltas.
type CompletedSession struct {
	UID           string `json:"uid"`
	CharacterName string `json:"characterName"`
	TimeSpentMs   int64  `json:"timeSpentMs"`
	Kills         int    `json:"kills"`
	Deaths        int    `json:"deaths"`
	Assists       int    `json:"assists"`
	Timestamp     int64  `json:"timestamp"`
	IsAlly        bool   `json:"isAlly"`
}

// MatchHistoryEntry is an immutable copy of a completed match.
type MatchHistoryEntry = CurrentMatch

// RatingPoint is one ELO observation for the local player.
type RatingPoint struct {
	Elo       float64 `json:"elo"`
	Timestamp int64   `json:"timestamp"`
	MatchID   string  `json:"matchId,omitempty"`
}

// MatchSummary is a lightweight record for list/show commands.
type MatchSummary struct {
	MatchID    string
	Map        string
	GameType   string
	GameMode   string
	Outcome    Outcome
	MatchStart int64
	MatchEnd   int64
	Players    int
	Rounds     int
}

// DurationMs returns the match length in millis, 0 when unknown.
func (s *MatchSummary) DurationMs() int64 {
	if s.MatchStart == 0 || s.MatchEnd == 0 {
		return 0
	}
	return s.MatchEnd - s.MatchStart
}

package engine

import (
	"math"
	"sort"

	"github.com/pable/go-match-telemetry/internal/feed"
	"github.com/pable/go-match-telemetry/internal/model"
)

func newPlayer(uid string) model.PlayerRecord {
	return model.PlayerRecord{
		UID:           uid,
		KilledPlayers: make(map[string]int),
		KilledBy:      make(map[string]int),
	}
}

// mergeRoster folds one roster fragment into the player's record. Fragments
// older than the record's lastUpdated are dropped without a trace.
func (t *step) mergeRoster(frag feed.RosterFragment, now int64) {
	players := t.s.Current.Players
	rec, ok := players[frag.UID]
	if ok && rec.LastUpdated != nil && now < *rec.LastUpdated {
		return
	}
	if !ok {
		rec = newPlayer(frag.UID)
	}
	prevCharacter := rec.CharacterName

	rec.Name = frag.Name
	rec.CharacterName = frag.CharacterName
	rec.CharacterID = frag.CharacterID
	rec.Team = frag.Team
	rec.IsTeammate = frag.IsTeammate
	rec.IsLocal = frag.IsLocal
	rec.IsAlive = frag.IsAlive
	if frag.Kills != nil {
		rec.Kills = *frag.Kills
	}
	if frag.Deaths != nil {
		rec.Deaths = *frag.Deaths
	}
	if frag.Assists != nil {
		rec.Assists = *frag.Assists
	}
	// the client only sees ult charge for its own team
	if frag.IsTeammate {
		charge := 0.0
		if frag.UltCharge != nil {
			charge = *frag.UltCharge
		}
		rec.UltCharge = &charge
	} else {
		rec.UltCharge = nil
	}
	ts := now
	rec.LastUpdated = &ts

	if prevCharacter != frag.CharacterName {
		if prevCharacter != "" {
			swap := model.CharacterSwap{Old: prevCharacter, New: frag.CharacterName, Timestamp: now}
			rec.CharacterSwaps = append(rec.CharacterSwaps, swap)
			t.emit(info("character swap", Fields{
				"uid": rec.UID, "player": rec.Name,
				"old": swap.Old, "new": swap.New, "timestamp": now,
			}))
		}
		t.changeCharacter(rec, now)
	}
	players[frag.UID] = rec

	t.emit(debug("roster update", Fields{
		"uid": rec.UID, "player": rec.Name, "character": rec.CharacterName, "team": rec.Team,
		"kills": rec.Kills, "deaths": rec.Deaths, "assists": rec.Assists, "alive": rec.IsAlive,
	}))

	if frag.IsLocal && frag.EloScore != nil {
		t.observeElo(*frag.EloScore, now)
	}
}

// observeElo forwards the local player's rating once per match.
func (t *step) observeElo(elo float64, now int64) {
	if t.s.matchElo != nil {
		return
	}
	if math.IsNaN(elo) || math.IsInf(elo, 0) {
		t.emit(warn("invalid elo skipped", Fields{"match_id": t.s.Current.MatchID}))
		return
	}
	mode := t.s.Current.GameMode
	if mode == "" {
		mode = t.s.Current.GameType
	}
	r := RatingEffect{Elo: elo, Mode: mode, MatchID: t.s.Current.MatchID, Timestamp: now}
	t.s.matchElo = &r
	t.emit(r)
	t.emit(info("elo observed", Fields{"elo": elo, "mode": mode, "match_id": t.s.Current.MatchID}))
}

// applyPlayerStats updates damage figures for the local player only.
func (t *step) applyPlayerStats(stats feed.PlayerStats) {
	uid, ok := localUID(t.s.Current.Players)
	if !ok {
		t.emit(debug("player stats without local player", nil))
		return
	}
	rec := t.s.Current.Players[uid]
	prev := [3]float64{rec.DamageDealt, rec.DamageBlocked, rec.TotalHeal}
	rec.DamageDealt = stats.DamageDealt
	rec.DamageBlocked = stats.DamageBlocked
	rec.TotalHeal = stats.TotalHeal
	t.s.Current.Players[uid] = rec

	if prev != [3]float64{rec.DamageDealt, rec.DamageBlocked, rec.TotalHeal} {
		t.emit(debug("local player stats", Fields{
			"uid":            uid,
			"damage_dealt":   rec.DamageDealt,
			"damage_blocked": rec.DamageBlocked,
			"total_heal":     rec.TotalHeal,
			"delta_damage":   rec.DamageDealt - prev[0],
			"delta_blocked":  rec.DamageBlocked - prev[1],
			"delta_heal":     rec.TotalHeal - prev[2],
		}))
	}
}

func localUID(players map[string]model.PlayerRecord) (string, bool) {
	for _, uid := range sortedUIDs(players) {
		if players[uid].IsLocal {
			return uid, true
		}
	}
	return "", false
}

func sortedUIDs(players map[string]model.PlayerRecord) []string {
	uids := make([]string, 0, len(players))
	for uid := range players {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

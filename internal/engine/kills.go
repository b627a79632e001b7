package engine

import (
	"strings"

	"github.com/pable/go-match-telemetry/internal/feed"
	"github.com/pable/go-match-telemetry/internal/model"
)

// applyKill attributes one kill_feed notification.
func (t *step) applyKill(ev feed.Event, now int64) {
	k, err := feed.ParseKill(ev)
	if err != nil {
		t.emit(warn("kill_feed skipped", Fields{"error": err.Error(), "data": ev.Data}))
		return
	}
	ts := k.Timestamp
	if ts == 0 {
		ts = now
	}
	if t.isDuplicateKill(k.Attacker, k.Victim, ts) {
		t.emit(debug("duplicate kill dropped", Fields{"attacker": k.Attacker, "victim": k.Victim, "timestamp": ts}))
		return
	}
	t.rememberKill(k.Attacker, k.Victim, ts)

	players := t.s.Current.Players
	attackerUID, aok := findByName(players, k.Attacker)
	victimUID, vok := findByName(players, k.Victim)
	if !aok {
		attackerUID, aok = findByCharacter(players, k.Attacker, victimUID)
	}
	if !vok {
		victimUID, vok = findByCharacter(players, k.Victim, attackerUID)
	}
	if !aok || !vok {
		t.emit(warn("kill with unresolved participant", Fields{
			"attacker": k.Attacker, "victim": k.Victim,
			"attacker_found": aok, "victim_found": vok,
		}))
		return
	}

	attacker, victim := players[attackerUID], players[victimUID]
	// same-team notifications are revive/assist artifacts, not finishing blows
	if attacker.Team == victim.Team {
		t.emit(debug("same-team kill ignored", Fields{
			"attacker": attacker.Name, "victim": victim.Name, "team": attacker.Team,
		}))
		return
	}

	attacker.FinalHits++
	attacker.KilledPlayers[victim.UID]++
	victim.KilledBy[attacker.UID]++
	players[attackerUID] = attacker
	players[victimUID] = victim

	t.emit(info("kill", Fields{
		"attacker_uid": attacker.UID, "attacker": attacker.Name, "attacker_team": attacker.Team,
		"attacker_character": attacker.CharacterName,
		"victim_uid": victim.UID, "victim": victim.Name, "victim_team": victim.Team,
		"victim_character": victim.CharacterName,
		"final_hits": attacker.FinalHits, "timestamp": ts,
	}))
}

// isDuplicateKill reports whether the same attacker/victim pair was seen
// within the dedup window of ts.
func (t *step) isDuplicateKill(attacker, victim string, ts int64) bool {
	window := t.cfg.KillDedupWindow.Milliseconds()
	for _, rk := range t.s.recentKills {
		if rk.attacker != attacker || rk.victim != victim {
			continue
		}
		d := ts - rk.timestamp
		if d < 0 {
			d = -d
		}
		if d <= window {
			return true
		}
	}
	return false
}

func (t *step) rememberKill(attacker, victim string, ts int64) {
	t.s.recentKills = append(t.s.recentKills, recentKill{attacker: attacker, victim: victim, timestamp: ts})
	if over := len(t.s.recentKills) - t.cfg.RecentKillCap; over > 0 {
		t.s.recentKills = t.s.recentKills[over:]
	}
}

// findByName matches a human participant by exact display name.
func findByName(players map[string]model.PlayerRecord, name string) (string, bool) {
	for _, uid := range sortedUIDs(players) {
		if players[uid].Name == name {
			return uid, true
		}
	}
	return "", false
}

// findByCharacter matches a bot by character name once the difficulty suffix
// is stripped. When several players share the character, one on a different
// team from the other participant wins.
func findByCharacter(players map[string]model.PlayerRecord, display, otherUID string) (string, bool) {
	character := feed.StripDifficulty(display)
	other, hasOther := players[otherUID]
	var first string
	for _, uid := range sortedUIDs(players) {
		p := players[uid]
		if uid == otherUID || !strings.EqualFold(p.CharacterName, character) {
			continue
		}
		if !hasOther || p.Team != other.Team {
			return uid, true
		}
		if first == "" {
			first = uid
		}
	}
	return first, first != ""
}

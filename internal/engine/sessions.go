package engine

import (
	"sort"

	"github.com/pable/go-match-telemetry/internal/model"
)

// changeCharacter closes the player's open session if it was for another
// character and opens one for the record's current character. Baselines are
// the record's cumulative KDA at the moment of the change.
func (t *step) changeCharacter(rec model.PlayerRecord, now int64) {
	open, ok := t.s.OpenSessions[rec.UID]
	if ok && open.CharacterName == rec.CharacterName {
		return
	}
	if ok {
		t.closeSession(rec.UID, open, rec.Kills, rec.Deaths, rec.Assists, now)
		delete(t.s.OpenSessions, rec.UID)
	}
	if rec.CharacterName == "" {
		return
	}
	t.s.OpenSessions[rec.UID] = model.CharacterSession{
		CharacterName: rec.CharacterName,
		StartTime:     now,
		StartKills:    rec.Kills,
		StartDeaths:   rec.Deaths,
		StartAssists:  rec.Assists,
		IsAlly:        rec.IsTeammate,
	}
}

func (t *step) closeSession(uid string, sess model.CharacterSession, kills, deaths, assists int, end int64) {
	done := model.CompletedSession{
		UID:           uid,
		CharacterName: sess.CharacterName,
		TimeSpentMs:   end - sess.StartTime,
		Kills:         max(0, kills-sess.StartKills),
		Deaths:        max(0, deaths-sess.StartDeaths),
		Assists:       max(0, assists-sess.StartAssists),
		Timestamp:     sess.StartTime,
		IsAlly:        sess.IsAlly,
	}
	if done.TimeSpentMs <= t.cfg.SessionFloor.Milliseconds() {
		t.emit(debug("character session below floor", Fields{
			"uid": uid, "character": done.CharacterName, "time_spent_ms": done.TimeSpentMs,
		}))
		return
	}
	t.s.CompletedSessions = append(t.s.CompletedSessions, done)
	t.emit(info("character session closed", Fields{
		"uid": uid, "character": done.CharacterName, "time_spent_ms": done.TimeSpentMs,
		"kills": done.Kills, "deaths": done.Deaths, "assists": done.Assists, "ally": done.IsAlly,
	}))
}

// closeAllSessions force-closes every open session against end.
func (t *step) closeAllSessions(end int64) {
	uids := make([]string, 0, len(t.s.OpenSessions))
	for uid := range t.s.OpenSessions {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	for _, uid := range uids {
		sess := t.s.OpenSessions[uid]
		kills, deaths, assists := sess.StartKills, sess.StartDeaths, sess.StartAssists
		if rec, ok := t.s.Current.Players[uid]; ok {
			kills, deaths, assists = rec.Kills, rec.Deaths, rec.Assists
		}
		t.closeSession(uid, sess, kills, deaths, assists, end)
	}
	t.s.OpenSessions = make(map[string]model.CharacterSession)
}

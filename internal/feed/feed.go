// Package feed turns raw telemetry payloads from the game client into typed
// events and info updates. It never fails on a malformed shape: anything it
// cannot resolve becomes an "unknown" event or a recorded Problem.
package feed

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Recognised discrete event names.
const (
	EventKillFeed   = "kill_feed"
	EventMatchStart = "match_start"
	EventRoundStart = "round_start"
	EventRoundEnd   = "round_end"
	EventMatchEnd   = "match_end"
	EventUnknown    = "unknown"
)

const (
	rosterPrefix   = "roster_"
	playerStatsKey = "player_stats"
	matchInfoNS    = "match_info"
)

// ErrMalformed marks a fragment that could not be decoded or lacks identifying fields.
var ErrMalformed = errors.New("malformed payload")

// Event is one discrete game event with a resolved name.
type Event struct {
	Name string
	// Data is the event body: a JSON document when the feed sent one, otherwise the raw text.
	Data      string
	Timestamp int64
}

// RosterFragment is one player's state as reported by a roster_<n> key.
type RosterFragment struct {
	Slot          int
	UID           string
	Name          string
	CharacterName string
	CharacterID   string
	Team          int
	IsTeammate    bool
	IsLocal       bool
	IsAlive       bool

	// Nil counters were absent from the fragment.
	Kills   *int
	Deaths  *int
	Assists *int

	UltCharge *float64
	// EloScore is nil when absent and NaN when present but not numeric.
	EloScore *float64
}

// PlayerStats is the local player's extended stats fragment.
type PlayerStats struct {
	DamageDealt   float64
	DamageBlocked float64
	TotalHeal     float64
}

// InfoUpdate is the match-info namespace of one info payload. Empty strings were absent.
type InfoUpdate struct {
	MatchID  string
	Map      string
	GameMode string
	GameType string
	Outcome  string

	Roster      []RosterFragment
	PlayerStats *PlayerStats
}

// Problem records a fragment that was skipped.
type Problem struct {
	Key string
	Err error
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s: %v", p.Key, p.Err)
}

// Batch is the normalized form of one payload.
type Batch struct {
	Timestamp int64
	Info      *InfoUpdate
	Events    []Event
	Problems  []Problem
}

// Normalize decodes a payload received at ts (epoch millis).
func Normalize(payload []byte, ts int64) Batch {
	b := Batch{Timestamp: ts}
	if !gjson.ValidBytes(payload) {
		b.Events = []Event{{Name: EventUnknown, Data: string(payload), Timestamp: ts}}
		b.Problems = append(b.Problems, Problem{Key: "payload", Err: fmt.Errorf("%w: invalid JSON", ErrMalformed)})
		return b
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		b.Events = []Event{{Name: EventUnknown, Data: root.Raw, Timestamp: ts}}
		b.Problems = append(b.Problems, Problem{Key: "payload", Err: fmt.Errorf("%w: not an object", ErrMalformed)})
		return b
	}
	if t := root.Get("timestamp"); t.Type == gjson.Number && t.Int() > 0 {
		b.Timestamp = t.Int()
	}

	if fields, ok := matchInfoFields(root); ok {
		info, problems := parseInfo(fields)
		b.Info = &info
		b.Problems = append(b.Problems, problems...)
	}

	for _, raw := range eventItems(root, b.Info != nil) {
		b.Events = append(b.Events, resolveEvent(raw, b.Timestamp))
	}
	return b
}

// matchInfoFields collects the match_info namespace from the shapes the client emits:
// {info:{match_info:{...}}}, {info:{info:{match_info:{...}}}}, {match_info:{...}}
// and dotted keys such as {info:{"match_info.roster_0": "..."}}.
func matchInfoFields(root gjson.Result) (map[string]gjson.Result, bool) {
	fields := make(map[string]gjson.Result)
	found := false
	for _, path := range []string{"info.match_info", "info.info.match_info", "match_info"} {
		ns := root.Get(path)
		if !ns.IsObject() {
			continue
		}
		found = true
		ns.ForEach(func(k, v gjson.Result) bool {
			fields[k.String()] = v
			return true
		})
	}
	for _, path := range []string{"info", "info.info"} {
		obj := root.Get(path)
		if !obj.IsObject() {
			continue
		}
		obj.ForEach(func(k, v gjson.Result) bool {
			if key, ok := strings.CutPrefix(k.String(), matchInfoNS+"."); ok {
				fields[key] = v
				found = true
			}
			return true
		})
	}
	return fields, found
}

func parseInfo(fields map[string]gjson.Result) (InfoUpdate, []Problem) {
	var (
		info     InfoUpdate
		problems []Problem
	)
	info.MatchID = fields["match_id"].String()
	info.Map = fields["map"].String()
	info.GameMode = fields["game_mode"].String()
	info.GameType = fields["game_type"].String()
	info.Outcome = fields["match_outcome"].String()

	type slotted struct {
		slot int
		key  string
	}
	var keys []slotted
	for key := range fields {
		if slot, ok := rosterSlot(key); ok {
			keys = append(keys, slotted{slot, key})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].slot != keys[j].slot {
			return keys[i].slot < keys[j].slot
		}
		return keys[i].key < keys[j].key
	})
	for _, k := range keys {
		frag, err := parseRoster(fields[k.key])
		if err != nil {
			problems = append(problems, Problem{Key: k.key, Err: err})
			continue
		}
		frag.Slot = k.slot
		info.Roster = append(info.Roster, frag)
	}

	if v, ok := fields[playerStatsKey]; ok {
		stats, err := parsePlayerStats(v)
		if err != nil {
			problems = append(problems, Problem{Key: playerStatsKey, Err: err})
		} else {
			info.PlayerStats = &stats
		}
	}
	return info, problems
}

// rosterSlot extracts n from a roster_<n> key. Non-numeric suffixes sort last.
func rosterSlot(key string) (int, bool) {
	suffix, ok := strings.CutPrefix(key, rosterPrefix)
	if !ok || suffix == "" {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return math.MaxInt, true
	}
	return n, true
}

// document resolves a value that is either a nested JSON object or a JSON-encoded string.
func document(v gjson.Result) (gjson.Result, error) {
	switch {
	case v.IsObject():
		return v, nil
	case v.Type == gjson.String:
		if !gjson.Valid(v.Str) {
			return gjson.Result{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
		}
		doc := gjson.Parse(v.Str)
		if !doc.IsObject() {
			return gjson.Result{}, fmt.Errorf("%w: not an object", ErrMalformed)
		}
		return doc, nil
	default:
		return gjson.Result{}, fmt.Errorf("%w: unexpected %s value", ErrMalformed, v.Type)
	}
}

func parseRoster(v gjson.Result) (RosterFragment, error) {
	doc, err := document(v)
	if err != nil {
		return RosterFragment{}, err
	}
	uid := doc.Get("uid").String()
	if uid == "" {
		return RosterFragment{}, fmt.Errorf("%w: missing uid", ErrMalformed)
	}
	frag := RosterFragment{
		UID:           uid,
		Name:          doc.Get("name").String(),
		CharacterName: doc.Get("character_name").String(),
		CharacterID:   doc.Get("character_id").String(),
		Team:          int(doc.Get("team").Int()),
		IsTeammate:    doc.Get("is_teammate").Bool(),
		IsLocal:       doc.Get("is_local").Bool(),
		IsAlive:       doc.Get("is_alive").Bool(),
		Kills:         optInt(doc.Get("kills")),
		Deaths:        optInt(doc.Get("deaths")),
		Assists:       optInt(doc.Get("assists")),
		UltCharge:     optFloat(doc.Get("ult_charge")),
	}
	if elo := doc.Get("elo_score"); elo.Exists() && elo.Type != gjson.Null {
		v := math.NaN()
		if elo.Type == gjson.Number {
			v = elo.Float()
		}
		frag.EloScore = &v
	}
	return frag, nil
}

func parsePlayerStats(v gjson.Result) (PlayerStats, error) {
	doc, err := document(v)
	if err != nil {
		return PlayerStats{}, err
	}
	return PlayerStats{
		DamageDealt:   doc.Get("damage_dealt").Float(),
		DamageBlocked: doc.Get("damage_block").Float(),
		TotalHeal:     doc.Get("total_heal").Float(),
	}, nil
}

func optInt(v gjson.Result) *int {
	if v.Type != gjson.Number && v.Type != gjson.String {
		return nil
	}
	if v.Type == gjson.String {
		if _, err := strconv.Atoi(v.Str); err != nil {
			return nil
		}
	}
	n := int(v.Int())
	return &n
}

func optFloat(v gjson.Result) *float64 {
	if v.Type != gjson.Number {
		return nil
	}
	f := v.Float()
	return &f
}

// eventItems flattens the events field: an array, a nested {events:[...]}
// envelope or a single object. A payload without one is itself the event,
// unless it was an info update.
func eventItems(root gjson.Result, isInfo bool) []gjson.Result {
	events := root.Get("events")
	switch {
	case events.IsArray():
		return events.Array()
	case events.IsObject():
		if nested := events.Get("events"); nested.IsArray() {
			return nested.Array()
		}
		return []gjson.Result{events}
	case events.Exists():
		return []gjson.Result{events}
	}
	if ev := root.Get("event"); ev.IsObject() && ev.Get("name").Exists() {
		return []gjson.Result{ev}
	}
	if isInfo {
		return nil
	}
	return []gjson.Result{root}
}

func resolveEvent(item gjson.Result, ts int64) Event {
	if !item.Get("name").Exists() {
		if inner := item.Get("data"); inner.IsObject() && inner.Get("name").Exists() {
			item = inner
		}
	}
	ev := Event{Name: item.Get("name").String(), Timestamp: ts}
	if ev.Name == "" {
		ev.Name = EventUnknown
	}
	if t := item.Get("timestamp"); t.Type == gjson.Number && t.Int() > 0 {
		ev.Timestamp = t.Int()
	}
	switch data := item.Get("data"); {
	case !data.Exists():
		ev.Data = item.Raw
	case data.Type == gjson.String:
		ev.Data = data.Str
	default:
		ev.Data = data.Raw
	}
	return ev
}

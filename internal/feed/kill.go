package feed

import (
	"fmt"
	"regexp"

	"github.com/tidwall/gjson"
)

// KillNotification is a decoded kill_feed event.
type KillNotification struct {
	Attacker string
	Victim   string
	// Timestamp is the event-supplied time in epoch millis, or 0 when the feed omitted it.
	Timestamp int64
}

// ParseKill decodes the body of a kill_feed event.
func ParseKill(ev Event) (KillNotification, error) {
	if !gjson.Valid(ev.Data) {
		return KillNotification{}, fmt.Errorf("%w: kill_feed body is not JSON", ErrMalformed)
	}
	doc := gjson.Parse(ev.Data)
	if doc.Type == gjson.String {
		// double-encoded body
		if !gjson.Valid(doc.Str) {
			return KillNotification{}, fmt.Errorf("%w: kill_feed body is not JSON", ErrMalformed)
		}
		doc = gjson.Parse(doc.Str)
	}
	k := KillNotification{
		Attacker: doc.Get("attacker").String(),
		Victim:   doc.Get("victim").String(),
	}
	if k.Attacker == "" || k.Victim == "" {
		return KillNotification{}, fmt.Errorf("%w: kill_feed missing attacker or victim", ErrMalformed)
	}
	if t := doc.Get("timestamp"); t.Exists() && t.Int() > 0 {
		k.Timestamp = t.Int()
	}
	return k, nil
}

var difficultySuffix = regexp.MustCompile(`(?i)-(easy|normal|hard)$`)

// StripDifficulty removes a bot difficulty suffix such as "-Hard" from a display name.
func StripDifficulty(name string) string {
	return difficultySuffix.ReplaceAllString(name, "")
}

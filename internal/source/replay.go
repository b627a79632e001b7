// Package source feeds raw telemetry payloads into a tracker, either from a
// captured client log or from a live NATS subject.
package source

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/tidwall/gjson"
)

// Kind classifies a log entry.
type Kind int

const (
	KindInfo Kind = iota
	KindEvent
)

func (k Kind) String() string {
	if k == KindInfo {
		return "info"
	}
	return "event"
}

// Entry is one replayable payload.
type Entry struct {
	Kind      Kind
	Timestamp int64 // epoch millis
	Name      string
	Payload   []byte
}

// IsKill reports whether the entry is a kill-feed event.
func (e Entry) IsKill() bool {
	return e.Kind == KindEvent && (e.Name == "kill_feed" || e.Name == "kill")
}

// Stats counts what a log contained.
type Stats struct {
	Lines   int
	Skipped int
	Infos   int
	Events  int
	Kills   int
}

var linePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d{2}),(\d{3})`)

const prefixLayout = "2006-01-02 15:04:05.000"

// maxLine bounds a single log line; info dumps with a full roster run long.
const maxLine = 4 << 20

// OpenLog opens a capture log, decompressing .gz and .zst files.
func OpenLog(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	switch {
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return &stacked{Reader: dec, closers: []func() error{func() error { dec.Close(); return nil }, f.Close}}, nil
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &stacked{Reader: gz, closers: []func() error{gz.Close, f.Close}}, nil
	default:
		return f, nil
	}
}

type stacked struct {
	io.Reader
	closers []func() error
}

func (s *stacked) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ParseLog reads every line of r and returns the replayable entries, stably
// sorted by timestamp. Lines without a timestamp prefix use fallback.
func ParseLog(r io.Reader, fallback int64) ([]Entry, Stats, error) {
	var (
		entries []Entry
		stats   Stats
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		stats.Lines++
		parsed := parseLine(line, fallback)
		if len(parsed) == 0 {
			stats.Skipped++
			continue
		}
		for _, e := range parsed {
			switch {
			case e.Kind == KindInfo:
				stats.Infos++
			case e.IsKill():
				stats.Events++
				stats.Kills++
			default:
				stats.Events++
			}
		}
		entries = append(entries, parsed...)
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("read log: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })
	return entries, stats, nil
}

func parseLine(line string, fallback int64) []Entry {
	ts := fallback
	if m := linePrefix.FindStringSubmatch(line); m != nil {
		if t, err := time.Parse(prefixLayout, m[1]+" "+m[2]+"."+m[3]); err == nil {
			ts = t.UnixMilli()
		}
	}

	first, last := strings.IndexByte(line, '{'), strings.LastIndexByte(line, '}')
	if first < 0 || last <= first {
		return nil
	}
	raw := line[first : last+1]
	if !gjson.Valid(raw) {
		return nil
	}
	doc := gjson.Parse(raw)

	if doc.Get("info").Exists() && doc.Get("info").Type != gjson.Null {
		return []Entry{{Kind: KindInfo, Timestamp: ts, Payload: []byte(raw)}}
	}

	var items []gjson.Result
	switch {
	case doc.Get("events").IsArray():
		items = doc.Get("events").Array()
	case doc.Get("events.events").IsArray():
		items = doc.Get("events.events").Array()
	case doc.Get("event").IsObject() && doc.Get("event.name").Exists():
		items = []gjson.Result{doc.Get("event")}
	case doc.Get("name").Exists():
		items = []gjson.Result{doc}
	}
	out := make([]Entry, 0, len(items))
	for _, item := range items {
		out = append(out, Entry{
			Kind:      KindEvent,
			Timestamp: ts,
			Name:      eventName(item),
			Payload:   []byte(`{"events":[` + item.Raw + `]}`),
		})
	}
	return out
}

func eventName(item gjson.Result) string {
	if n := item.Get("name"); n.Exists() {
		return n.String()
	}
	return item.Get("data.name").String()
}

// Apply hands one payload to the consumer.
type Apply func(ctx context.Context, payload []byte, ts int64) error

// Replayer drives entries into an Apply.
type Replayer struct {
	// Speed paces replay relative to the captured timestamps; 2 replays twice
	// as fast. Zero or less replays as fast as possible.
	Speed float64
	// KillsOnly drops every event except kill-feed events. Info updates are
	// always applied so the roster stays populated.
	KillsOnly bool
	// Sleep waits between paced entries; nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Replay applies entries in order and returns how many were applied. Apply
// errors stop the replay.
func (r Replayer) Replay(ctx context.Context, entries []Entry, apply Apply) (int, error) {
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	var (
		applied int
		prev    int64
		started bool
	)
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if r.KillsOnly && e.Kind == KindEvent && !e.IsKill() {
			continue
		}
		if r.Speed > 0 && started && e.Timestamp > prev {
			d := time.Duration(float64(time.Duration(e.Timestamp-prev)*time.Millisecond) / r.Speed)
			if err := sleep(ctx, d); err != nil {
				return applied, err
			}
		}
		prev, started = e.Timestamp, true
		if err := apply(ctx, e.Payload, e.Timestamp); err != nil {
			return applied, fmt.Errorf("entry %d (%s %s): %w", i, e.Kind, e.Name, err)
		}
		applied++
	}
	return applied, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"
)

const captureLog = `2025-03-01 12:00:00,500 [info] {"info":{"match_info":{"match_id":"m-1"}}}
2025-03-01 12:00:00,100 onNewEvents {"events":[{"name":"match_start","data":""},{"name":"kill_feed","data":"{\"attacker\":\"A\",\"victim\":\"B\"}"}]}
no json on this line
2025-03-01 12:00:01,000 broken {"events":[
2025-03-01 12:00:02,000 {"event":{"name":"round_start"}}
2025-03-01 12:00:03,000 {"events":{"events":[{"name":"kill","data":"{}"}]}}
2025-03-01 12:00:00,100 {"name":"match_end"}
`

func ms(s string) int64 {
	t, err := time.Parse("2006-01-02 15:04:05.000", s)
	if err != nil {
		panic(err)
	}
	return t.UnixMilli()
}

func TestParseLog(t *testing.T) {
	entries, stats, err := ParseLog(strings.NewReader(captureLog), 0)
	if err != nil {
		t.Fatal(err)
	}

	type row struct {
		Kind Kind
		TS   int64
		Name string
	}
	var got []row
	for _, e := range entries {
		got = append(got, row{e.Kind, e.Timestamp, e.Name})
	}
	want := []row{
		{KindEvent, ms("2025-03-01 12:00:00.100"), "match_start"},
		{KindEvent, ms("2025-03-01 12:00:00.100"), "kill_feed"},
		{KindEvent, ms("2025-03-01 12:00:00.100"), "match_end"},
		{KindInfo, ms("2025-03-01 12:00:00.500"), ""},
		{KindEvent, ms("2025-03-01 12:00:02.000"), "round_start"},
		{KindEvent, ms("2025-03-01 12:00:03.000"), "kill"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
	wantStats := Stats{Lines: 7, Skipped: 2, Infos: 1, Events: 5, Kills: 2}
	if diff := cmp.Diff(wantStats, stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
	if string(entries[1].Payload) != `{"events":[{"name":"kill_feed","data":"{\"attacker\":\"A\",\"victim\":\"B\"}"}]}` {
		t.Errorf("event payload: %s", entries[1].Payload)
	}
}

func TestParseLog_FallbackTimestamp(t *testing.T) {
	entries, _, err := ParseLog(strings.NewReader(`{"events":[{"name":"match_start"}]}`), 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Timestamp != 42 {
		t.Errorf("entries: %+v", entries)
	}
}

func TestOpenLog_Compressed(t *testing.T) {
	dir := t.TempDir()
	line := "2025-03-01 12:00:00,000 {\"name\":\"match_start\"}\n"

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	gw.Write([]byte(line))
	gw.Close()

	var zstBuf bytes.Buffer
	zw, err := zstd.NewWriter(&zstBuf)
	if err != nil {
		t.Fatal(err)
	}
	zw.Write([]byte(line))
	zw.Close()

	files := map[string][]byte{
		"plain.log":   []byte(line),
		"capture.gz":  gzBuf.Bytes(),
		"capture.zst": zstBuf.Bytes(),
	}
	for name, data := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatal(err)
		}
		rc, err := OpenLog(path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		entries, _, err := ParseLog(rc, 0)
		rc.Close()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(entries) != 1 || entries[0].Name != "match_start" {
			t.Errorf("%s: entries %+v", name, entries)
		}
	}
}

func TestReplayer_KillsOnlyKeepsInfo(t *testing.T) {
	entries, _, err := ParseLog(strings.NewReader(captureLog), 0)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	n, err := Replayer{KillsOnly: true}.Replay(context.Background(), entries, func(_ context.Context, payload []byte, _ int64) error {
		if strings.HasPrefix(string(payload), `{"info"`) {
			names = append(names, "info")
			return nil
		}
		names = append(names, "event")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("applied: want 3, got %d", n)
	}
	if diff := cmp.Diff([]string{"event", "info", "event"}, names); diff != "" {
		t.Errorf("applied kinds (-want +got):\n%s", diff)
	}
}

func TestReplayer_Pacing(t *testing.T) {
	entries := []Entry{
		{Kind: KindEvent, Name: "match_start", Timestamp: 1000},
		{Kind: KindEvent, Name: "round_start", Timestamp: 1000},
		{Kind: KindEvent, Name: "round_start", Timestamp: 3000},
		{Kind: KindEvent, Name: "match_end", Timestamp: 7000},
	}
	var waits []time.Duration
	r := Replayer{Speed: 2, Sleep: func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}}
	if _, err := r.Replay(context.Background(), entries, func(context.Context, []byte, int64) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]time.Duration{time.Second, 2 * time.Second}, waits); diff != "" {
		t.Errorf("waits (-want +got):\n%s", diff)
	}
}

func TestReplayer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	entries := []Entry{{Timestamp: 1}, {Timestamp: 2}}
	n, err := Replayer{}.Replay(ctx, entries, func(context.Context, []byte, int64) error {
		cancel()
		return nil
	})
	if n != 1 || err == nil {
		t.Errorf("want 1 applied and an error, got %d %v", n, err)
	}
}

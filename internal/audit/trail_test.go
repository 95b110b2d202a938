package audit_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/verivote/verivote/internal/audit"
)

func readEvents(t *testing.T, path string) []audit.Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open trail: %v", err)
	}
	defer f.Close()

	var events []audit.Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e audit.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal line %d: %v", len(events)+1, err)
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan trail: %v", err)
	}
	return events
}

func TestTrailRecord(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.jsonl")
	trail := audit.NewTrail(path)

	if err := trail.Record(audit.Event{VoterID: 101, Action: "cast", Outcome: "cast", Tx: "0xabc"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := trail.Record(audit.Event{VoterID: 101, Action: "cast", Outcome: "already_voted"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	events := readEvents(t, path)
	if len(events) != 2 {
		t.Fatalf("trail has %d events, want 2", len(events))
	}
	if events[0].Outcome != "cast" || events[0].Tx != "0xabc" {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].Outcome != "already_voted" {
		t.Fatalf("second event = %+v", events[1])
	}
	if events[0].Timestamp.IsZero() {
		t.Fatal("Record did not stamp a timestamp")
	}
}

func TestTrailNilIsSafe(t *testing.T) {
	t.Parallel()

	var trail *audit.Trail
	if err := trail.Record(audit.Event{VoterID: 1, Action: "cast", Outcome: "cast"}); err != nil {
		t.Fatalf("Record on nil trail: %v", err)
	}
}

func TestTrailConcurrentRecords(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.jsonl")
	trail := audit.NewTrail(path)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			if err := trail.Record(audit.Event{VoterID: id, Action: "cast", Outcome: "cast"}); err != nil {
				t.Errorf("Record: %v", err)
			}
		}(uint64(i))
	}
	wg.Wait()

	// Every line must still be a complete JSON document.
	if got := len(readEvents(t, path)); got != n {
		t.Fatalf("trail has %d events, want %d", got, n)
	}
}

package events

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/backkem/matter-appliances/pkg/datamodel"
)

type completion struct {
	CompletionErrorCode  uint8
	TotalOperationalTime *uint32
}

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return t0 }
}

func TestJournal_Numbering(t *testing.T) {
	j, err := New(Config{Now: fixedClock()})
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	for i := 1; i <= 3; i++ {
		n, err := j.PublishEvent(1, 0x0061, 0x01, datamodel.EventPriorityInfo, nil)
		if err != nil {
			t.Fatal(err)
		}
		if n != datamodel.EventNumber(i) {
			t.Errorf("event %d numbered %d", i, n)
		}
	}
	if got := j.Since(1); len(got) != 2 || got[0].Number != 2 {
		t.Errorf("Since(1) = %v", got)
	}
}

func TestJournal_Capacity(t *testing.T) {
	j, err := New(Config{Capacity: 2})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		j.PublishEvent(1, 0x0060, 0x00, datamodel.EventPriorityCritical, nil)
	}
	h := j.History()
	if len(h) != 2 || h[0].Number != 4 || h[1].Number != 5 {
		t.Errorf("History = %v", h)
	}
}

func TestJournal_Closed(t *testing.T) {
	j, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := j.PublishEvent(1, 1, 1, datamodel.EventPriorityInfo, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("PublishEvent after Close = %v", err)
	}
}

func TestJournal_FileAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.cbor")
	total := uint32(1800)

	j, err := New(Config{Path: path, Now: fixedClock()})
	if err != nil {
		t.Fatal(err)
	}
	j.PublishEvent(2, 0x0048, 0x01, datamodel.EventPriorityInfo, completion{CompletionErrorCode: 0, TotalOperationalTime: &total})
	j.PublishEvent(2, 0x0048, 0x00, datamodel.EventPriorityCritical, nil)
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	records, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("read %d records, want 2", len(records))
	}
	first := records[0]
	if first.Number != 1 || first.Endpoint != 2 || first.Cluster != 0x0048 || first.Event != 0x01 || first.Priority != datamodel.EventPriorityInfo {
		t.Errorf("first record = %+v", first)
	}
	if !first.Timestamp.Equal(fixedClock()()) {
		t.Errorf("Timestamp = %v", first.Timestamp)
	}
	data, ok := first.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data = %T", first.Data)
	}
	if v, ok := data["TotalOperationalTime"].(uint64); !ok || v != 1800 {
		t.Errorf("TotalOperationalTime = %v (%T)", data["TotalOperationalTime"], data["TotalOperationalTime"])
	}
	if records[1].Data != nil {
		t.Errorf("nil payload decoded as %v", records[1].Data)
	}

	// Numbering continues across restarts.
	j, err = New(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if n, _ := j.PublishEvent(2, 0x0048, 0x01, datamodel.EventPriorityInfo, nil); n != 3 {
		t.Errorf("after reopen event numbered %d, want 3", n)
	}
}

func TestReadFile_Missing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("ReadFile of a missing file succeeded")
	}
}

func TestJournal_ReopenCorruptTail(t *testing.T) {
	tests := []struct {
		name string
		tail []byte
	}{
		{"truncated record", []byte{0xa7, 0x01, 0x03}},
		{"break byte", []byte{0xff, 0xff}},
		{"not a record", []byte{0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "events.cbor")
			j, err := New(Config{Path: path, Now: fixedClock()})
			if err != nil {
				t.Fatal(err)
			}
			j.PublishEvent(2, 0x0060, 0x01, datamodel.EventPriorityInfo, nil)
			j.PublishEvent(2, 0x0060, 0x00, datamodel.EventPriorityCritical, nil)
			if err := j.Close(); err != nil {
				t.Fatal(err)
			}

			f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := f.Write(tt.tail); err != nil {
				t.Fatal(err)
			}
			f.Close()

			records, err := ReadFile(path)
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("ReadFile error = %v, want ErrCorrupt", err)
			}
			if len(records) != 2 {
				t.Fatalf("ReadFile kept %d records, want 2", len(records))
			}

			j, err = New(Config{Path: path, Now: fixedClock()})
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			if n, _ := j.PublishEvent(2, 0x0060, 0x01, datamodel.EventPriorityInfo, nil); n != 3 {
				t.Errorf("after reopen event numbered %d, want 3", n)
			}
			if err := j.Close(); err != nil {
				t.Fatal(err)
			}

			records, err = ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile after reopen: %v", err)
			}
			if len(records) != 3 || records[2].Number != 3 {
				t.Errorf("records after reopen = %v", records)
			}
		})
	}
}

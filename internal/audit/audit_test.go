package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLogger(t *testing.T) {
	t.Run("disabled logger writes nothing", func(t *testing.T) {
		dir := t.TempDir()
		l := New(dir, false)
		if err := l.LogIDs(OpDelete, []int64{1}); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
			t.Fatalf("history file created by a disabled logger")
		}
		entries, err := l.Read()
		if err != nil || entries != nil {
			t.Fatalf("Read = %v, %v", entries, err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), ".wlh")
		l := New(dir, true)

		if err := l.LogLifecycle(OpInstall, "1.1.0"); err != nil {
			t.Fatal(err)
		}
		if err := l.LogDrain("run-1", []int64{3, 4}, []int64{4}, 12*time.Millisecond); err != nil {
			t.Fatal(err)
		}
		if err := l.LogDrain("run-2", nil, nil, 0); err != nil {
			t.Fatal(err)
		}
		if err := l.LogIDs(OpDelete, []int64{7}); err != nil {
			t.Fatal(err)
		}
		if err := l.LogIDs(OpRepair, nil); err != nil {
			t.Fatal(err)
		}

		entries, err := l.Read()
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 3 {
			t.Fatalf("got %d entries, want 3 (empty drain and repair skipped)", len(entries))
		}
		if entries[0].Operation != OpInstall || entries[0].Version != "1.1.0" {
			t.Errorf("entry 0 = %+v", entries[0])
		}
		if entries[1].RunID != "run-1" || len(entries[1].Failed) != 1 || entries[1].Failed[0] != 4 {
			t.Errorf("entry 1 = %+v", entries[1])
		}
		if entries[2].Timestamp.IsZero() {
			t.Error("timestamp not set")
		}

		forDoc, err := l.ReadForDocument(3)
		if err != nil || len(forDoc) != 1 || forDoc[0].Operation != OpDrain {
			t.Errorf("ReadForDocument(3) = %v, %v", forDoc, err)
		}
	})

	t.Run("skips malformed lines", func(t *testing.T) {
		dir := t.TempDir()
		content := "{\"ts\":\"2026-01-02T00:00:00Z\",\"op\":\"drain\"}\nnot json\n\n{\"ts\":\"2026-01-03T00:00:00Z\",\"op\":\"delete\"}\n"
		if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		l := New(dir, true)
		entries, err := l.Read()
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d entries, want 2", len(entries))
		}

		since, err := l.ReadSince(time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))
		if err != nil || len(since) != 1 || since[0].Operation != OpDelete {
			t.Errorf("ReadSince = %v, %v", since, err)
		}
	})
}

func TestTail(t *testing.T) {
	entries := []Entry{{Operation: "a"}, {Operation: "b"}, {Operation: "c"}}
	if got := Tail(entries, 2); len(got) != 2 || got[0].Operation != "b" {
		t.Errorf("Tail(2) = %v", got)
	}
	if got := Tail(entries, 0); len(got) != 3 {
		t.Errorf("Tail(0) = %v", got)
	}
	if got := Tail(entries, 10); len(got) != 3 {
		t.Errorf("Tail(10) = %v", got)
	}
}

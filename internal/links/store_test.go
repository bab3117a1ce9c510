package links

import (
	"testing"

	"github.com/aidanlsb/wlh/internal/index"
	"github.com/aidanlsb/wlh/internal/model"
)

func openStore(t *testing.T) (*Store, *index.Database) {
	t.Helper()
	db, err := index.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), db
}

func TestStore(t *testing.T) {
	t.Run("absent attributes read as empty", func(t *testing.T) {
		s, _ := openStore(t)
		out, err := s.Outbound(42)
		if err != nil {
			t.Fatalf("Outbound: %v", err)
		}
		in, err := s.Inbound(42)
		if err != nil {
			t.Fatalf("Inbound: %v", err)
		}
		if out.Len() != 0 || in.Len() != 0 {
			t.Errorf("expected empty sets, got out=%v in=%v", out.Slice(), in.Slice())
		}
	})

	t.Run("set outbound replaces and empty deletes", func(t *testing.T) {
		s, db := openStore(t)
		if err := s.SetOutbound(5, model.NewIDSet(9, 7)); err != nil {
			t.Fatalf("SetOutbound: %v", err)
		}
		raw, ok, _ := db.GetAttribute(5, KeyLinkingTo)
		if !ok || raw != "7,9" {
			t.Errorf("stored %q (present=%v), want %q", raw, ok, "7,9")
		}

		if err := s.SetOutbound(5, model.NewIDSet(9)); err != nil {
			t.Fatalf("SetOutbound: %v", err)
		}
		out, _ := s.Outbound(5)
		if !out.Equal(model.NewIDSet(9)) {
			t.Errorf("Outbound = %v, want {9}", out.Slice())
		}

		if err := s.SetOutbound(5, model.NewIDSet()); err != nil {
			t.Fatalf("SetOutbound: %v", err)
		}
		if _, ok, _ := db.GetAttribute(5, KeyLinkingTo); ok {
			t.Error("expected attribute to be deleted for empty set")
		}
	})

	t.Run("inbound add is idempotent", func(t *testing.T) {
		s, _ := openStore(t)
		changed, err := s.AddInbound(7, 5)
		if err != nil || !changed {
			t.Fatalf("first AddInbound = %v, %v", changed, err)
		}
		changed, err = s.AddInbound(7, 5)
		if err != nil || changed {
			t.Fatalf("second AddInbound = %v, %v; want no change", changed, err)
		}
		in, _ := s.Inbound(7)
		if !in.Equal(model.NewIDSet(5)) {
			t.Errorf("Inbound = %v, want {5}", in.Slice())
		}
	})

	t.Run("inbound remove deletes empty attribute", func(t *testing.T) {
		s, db := openStore(t)
		s.AddInbound(7, 5)
		s.AddInbound(7, 6)

		if changed, _ := s.RemoveInbound(7, 5); !changed {
			t.Error("expected change removing 5")
		}
		raw, _, _ := db.GetAttribute(7, KeyLinkingHere)
		if raw != "6" {
			t.Errorf("stored %q, want %q", raw, "6")
		}

		if changed, _ := s.RemoveInbound(7, 99); changed {
			t.Error("removing a non-member should not change the set")
		}

		s.RemoveInbound(7, 6)
		if _, ok, _ := db.GetAttribute(7, KeyLinkingHere); ok {
			t.Error("expected attribute to be deleted once empty")
		}
	})

	t.Run("reads legacy serialized lists", func(t *testing.T) {
		s, db := openStore(t)
		db.SetAttribute(3, KeyLinkingHere, "9 5,5,0")
		in, err := s.Inbound(3)
		if err != nil {
			t.Fatalf("Inbound: %v", err)
		}
		if !in.Equal(model.NewIDSet(5, 9)) {
			t.Errorf("Inbound = %v, want {5,9}", in.Slice())
		}
	})

	t.Run("remove outbound and purge", func(t *testing.T) {
		s, db := openStore(t)
		s.SetOutbound(5, model.NewIDSet(7, 9))
		s.AddInbound(5, 1)

		if changed, _ := s.RemoveOutbound(5, 9); !changed {
			t.Error("expected change removing 9")
		}
		out, _ := s.Outbound(5)
		if !out.Equal(model.NewIDSet(7)) {
			t.Errorf("Outbound = %v, want {7}", out.Slice())
		}

		if err := s.Purge(5); err != nil {
			t.Fatalf("Purge: %v", err)
		}
		for _, key := range []string{KeyLinkingTo, KeyLinkingHere} {
			if _, ok, _ := db.GetAttribute(5, key); ok {
				t.Errorf("expected %s to be purged", key)
			}
		}
	})
}

package snapshot

import (
	"testing"

	"arena/pkg/core"
	"arena/pkg/protocol"

	"github.com/go-gl/mathgl/mgl32"
)

func ent(number uint16, x float32) core.EntityState {
	return core.EntityState{Number: number, Origin: mgl32.Vec3{x, 0, 0}, Model1: 1}
}

func collect(t *testing.T, old []core.EntityState, data []byte, baselines *Baselines) []core.EntityState {
	t.Helper()
	var out []core.EntityState
	err := Merge(old, WireSource{R: protocol.NewReader(data)}, baselines, func(to *core.EntityState) error {
		out = append(out, *to)
		return nil
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	return out
}

func TestMergeTraversal(t *testing.T) {
	var baselines Baselines
	base7 := ent(7, 70)
	base7.Model2 = 3
	baselines.Set(&base7)

	old := []core.EntityState{ent(2, 20), ent(5, 50), ent(9, 90)}

	w := protocol.NewWriter(protocol.MaxMessageSize)
	five := ent(5, 55)
	if _, err := protocol.EncodeEntityDelta(w, &old[1], &five, false); err != nil {
		t.Fatal(err)
	}
	seven := base7
	seven.Origin = mgl32.Vec3{71, 0, 0}
	if _, err := protocol.EncodeEntityDelta(w, baselines.Get(7), &seven, true); err != nil {
		t.Fatal(err)
	}
	protocol.WriteEntityRemove(w, 9)
	protocol.WriteEntityTerminator(w)

	got := collect(t, old, w.Bytes(), &baselines)
	if len(got) != 3 {
		t.Fatalf("got %d entities: %+v", len(got), got)
	}
	if got[0] != old[0] {
		t.Errorf("entity 2 not carried forward: %+v", got[0])
	}
	if got[1].Number != 5 || got[1].Origin.X() != 55 {
		t.Errorf("entity 5 = %+v", got[1])
	}
	if got[2].Number != 7 || got[2].Origin.X() != 71 || got[2].Model2 != 3 {
		t.Errorf("entity 7 not decoded from baseline: %+v", got[2])
	}
}

func TestMergeCarriesTrailingAndClearsEvents(t *testing.T) {
	old := []core.EntityState{ent(3, 1), ent(4, 2)}
	old[1].Event = core.EventItemPickup

	w := protocol.NewWriter(64)
	protocol.WriteEntityTerminator(w)

	got := collect(t, old, w.Bytes(), &Baselines{})
	if len(got) != 2 || got[0].Number != 3 || got[1].Number != 4 {
		t.Fatalf("got %+v", got)
	}
	if got[1].Event != core.EventNone {
		t.Fatalf("event carried forward: %v", got[1].Event)
	}
}

func TestMergeRemoveMismatchIsNotFatal(t *testing.T) {
	old := []core.EntityState{ent(4, 1)}
	w := protocol.NewWriter(64)
	protocol.WriteEntityRemove(w, 3)
	protocol.WriteEntityTerminator(w)

	got := collect(t, old, w.Bytes(), &Baselines{})
	if len(got) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestMergeTruncatedStream(t *testing.T) {
	w := protocol.NewWriter(64)
	w.WriteUint16(3)
	err := Merge(nil, WireSource{R: protocol.NewReader(w.Bytes())}, &Baselines{}, func(*core.EntityState) error { return nil })
	if err == nil {
		t.Fatal("expected error on truncated entity list")
	}
}

func TestDiffThenMerge(t *testing.T) {
	var baselines Baselines
	for _, n := range []uint16{1, 2, 3, 4, 5, 6} {
		b := ent(n, float32(n))
		baselines.Set(&b)
	}

	tests := []struct {
		name string
		old  []core.EntityState
		next []core.EntityState
	}{
		{"full", nil, []core.EntityState{ent(1, 1), ent(3, 30), ent(6, 6)}},
		{"all removed", []core.EntityState{ent(1, 1), ent(2, 2)}, nil},
		{"mixed", []core.EntityState{ent(1, 1), ent(2, 2), ent(5, 5)}, []core.EntityState{ent(2, 22), ent(3, 3), ent(5, 5), ent(6, 60)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := protocol.NewWriter(protocol.MaxMessageSize)
			if err := Diff(w, tt.old, tt.next, &baselines); err != nil {
				t.Fatal(err)
			}
			got := collect(t, tt.old, w.Bytes(), &baselines)
			if len(got) != len(tt.next) {
				t.Fatalf("got %d entities, want %d", len(got), len(tt.next))
			}
			for i := range got {
				want := tt.next[i]
				if got[i].Number != want.Number || got[i].Origin != want.Origin || got[i].Model1 != want.Model1 {
					t.Errorf("entity %d = %+v, want %+v", i, got[i], want)
				}
			}
		})
	}
}

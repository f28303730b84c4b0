package domain

import (
	"reflect"
	"testing"
)

const (
	stA int64 = 1
	stB int64 = 2
	stC int64 = 3
	stD int64 = 4
	stM int64 = 5
	stX int64 = 9
	stY int64 = 10
)

func newTestTopology(t *testing.T, sections ...Section) *Topology {
	t.Helper()
	topo, err := NewTopology(sections)
	if err != nil {
		t.Fatalf("NewTopology() error: %v", err)
	}
	return topo
}

func assertOrder(t *testing.T, topo *Topology, want ...int64) {
	t.Helper()
	got, err := topo.OrderedStations()
	if err != nil {
		t.Fatalf("OrderedStations() error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("OrderedStations() = %v, want %v", got, want)
	}
}

func assertDistances(t *testing.T, topo *Topology, want ...int) {
	t.Helper()
	var got []int
	for _, s := range topo.Sections() {
		got = append(got, s.Distance())
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("section distances = %v, want %v", got, want)
	}
}

func assertKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !IsKind(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

func TestNewTopology(t *testing.T) {
	t.Run("empty set is valid", func(t *testing.T) {
		topo := newTestTopology(t)
		if topo.Len() != 0 {
			t.Errorf("Len() = %d, want 0", topo.Len())
		}
		assertOrder(t, topo)
	})

	t.Run("accepts unordered path", func(t *testing.T) {
		topo := newTestTopology(t,
			MustSection(stC, stD, 2),
			MustSection(stA, stB, 10),
			MustSection(stB, stC, 4),
		)
		assertOrder(t, topo, stA, stB, stC, stD)
	})

	tests := []struct {
		name     string
		sections []Section
	}{
		{"branch on up side", []Section{MustSection(stA, stB, 1), MustSection(stA, stC, 1)}},
		{"branch on down side", []Section{MustSection(stA, stC, 1), MustSection(stB, stC, 1)}},
		{"cycle", []Section{MustSection(stA, stB, 1), MustSection(stB, stA, 1)}},
		{"disconnected", []Section{MustSection(stA, stB, 1), MustSection(stC, stD, 1)}},
		{"path plus detached cycle", []Section{
			MustSection(stA, stB, 1),
			MustSection(stC, stD, 1),
			MustSection(stD, stC, 1),
		}},
		{"zero section", []Section{{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTopology(tt.sections)
			assertKind(t, err, KindInvariant)
		})
	}
}

func TestTopologyAddSectionExtend(t *testing.T) {
	t.Run("first section on empty topology", func(t *testing.T) {
		topo := newTestTopology(t)
		if err := topo.AddSection(MustSection(stA, stB, 10)); err != nil {
			t.Fatalf("AddSection() error: %v", err)
		}
		assertOrder(t, topo, stA, stB)
	})

	t.Run("extend at the back", func(t *testing.T) {
		topo := newTestTopology(t, MustSection(stA, stB, 10))
		if err := topo.AddSection(MustSection(stB, stC, 4)); err != nil {
			t.Fatalf("AddSection() error: %v", err)
		}
		assertOrder(t, topo, stA, stB, stC)
		assertDistances(t, topo, 10, 4)
	})

	t.Run("extend at the front", func(t *testing.T) {
		topo := newTestTopology(t, MustSection(stA, stB, 10))
		if err := topo.AddSection(MustSection(stD, stA, 7)); err != nil {
			t.Fatalf("AddSection() error: %v", err)
		}
		assertOrder(t, topo, stD, stA, stB)
		assertDistances(t, topo, 7, 10)
	})

	t.Run("extension ignores existing lengths", func(t *testing.T) {
		topo := newTestTopology(t, MustSection(stA, stB, 1))
		if err := topo.AddSection(MustSection(stB, stC, 100)); err != nil {
			t.Fatalf("AddSection() error: %v", err)
		}
		assertDistances(t, topo, 1, 100)
	})
}

func TestTopologyAddSectionSplit(t *testing.T) {
	t.Run("split from the up side", func(t *testing.T) {
		topo := newTestTopology(t, MustSection(stA, stB, 10))
		if err := topo.AddSection(MustSection(stA, stM, 4)); err != nil {
			t.Fatalf("AddSection() error: %v", err)
		}
		assertOrder(t, topo, stA, stM, stB)
		assertDistances(t, topo, 4, 6)
	})

	t.Run("split from the down side", func(t *testing.T) {
		topo := newTestTopology(t, MustSection(stA, stB, 10))
		if err := topo.AddSection(MustSection(stM, stB, 3)); err != nil {
			t.Fatalf("AddSection() error: %v", err)
		}
		assertOrder(t, topo, stA, stM, stB)
		assertDistances(t, topo, 7, 3)
	})

	t.Run("split keeps the rest of the path", func(t *testing.T) {
		topo := newTestTopology(t, MustSection(stA, stB, 10), MustSection(stB, stC, 4))
		if err := topo.AddSection(MustSection(stA, stM, 4)); err != nil {
			t.Fatalf("AddSection() error: %v", err)
		}
		assertOrder(t, topo, stA, stM, stB, stC)
		assertDistances(t, topo, 4, 6, 4)
	})

	t.Run("split an interior section", func(t *testing.T) {
		topo := newTestTopology(t, MustSection(stA, stB, 10), MustSection(stB, stC, 8))
		if err := topo.AddSection(MustSection(stB, stM, 5)); err != nil {
			t.Fatalf("AddSection() error: %v", err)
		}
		assertOrder(t, topo, stA, stB, stM, stC)
		assertDistances(t, topo, 10, 5, 3)
	})

	t.Run("split distances sum to the original", func(t *testing.T) {
		for d := 1; d < 10; d++ {
			topo := newTestTopology(t, MustSection(stA, stB, 10))
			if err := topo.AddSection(MustSection(stA, stM, d)); err != nil {
				t.Fatalf("AddSection(d=%d) error: %v", d, err)
			}
			if topo.TotalDistance() != 10 {
				t.Fatalf("TotalDistance() = %d after split with %d, want 10", topo.TotalDistance(), d)
			}
		}
	})

	for _, d := range []int{10, 11} {
		topo := newTestTopology(t, MustSection(stA, stB, 10))
		before := topo.Fingerprint()

		err := topo.AddSection(MustSection(stA, stM, d))
		assertKind(t, err, KindValidation)
		if topo.Fingerprint() != before {
			t.Errorf("failed split with distance %d mutated the topology", d)
		}

		err = topo.AddSection(MustSection(stM, stB, d))
		assertKind(t, err, KindValidation)
		if topo.Fingerprint() != before {
			t.Errorf("failed down-side split with distance %d mutated the topology", d)
		}
	}
}

func TestTopologyAddSectionRejects(t *testing.T) {
	base := []Section{MustSection(stA, stB, 10), MustSection(stB, stC, 4)}

	tests := []struct {
		name    string
		section Section
		kind    ErrorKind
	}{
		{"duplicate section", MustSection(stA, stB, 5), KindValidation},
		{"both endpoints known, reversed", MustSection(stB, stA, 5), KindValidation},
		{"both endpoints known, would cycle", MustSection(stC, stA, 5), KindValidation},
		{"both endpoints known, shortcut", MustSection(stA, stC, 5), KindValidation},
		{"neither endpoint known", MustSection(stX, stY, 5), KindNotFound},
		{"same endpoints", Section{up: stA, down: stA, distance: 3}, KindValidation},
		{"zero distance", Section{up: stC, down: stD, distance: 0}, KindValidation},
		{"negative distance", Section{up: stC, down: stD, distance: -2}, KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo := newTestTopology(t, base...)
			before := topo.Fingerprint()

			err := topo.AddSection(tt.section)
			assertKind(t, err, tt.kind)

			if topo.Fingerprint() != before {
				t.Error("rejected section mutated the topology")
			}
			assertOrder(t, topo, stA, stB, stC)
		})
	}
}

func TestTopologyRemoveStation(t *testing.T) {
	t.Run("merge around interior station", func(t *testing.T) {
		topo := newTestTopology(t, MustSection(stA, stM, 4), MustSection(stM, stB, 6))
		if err := topo.RemoveStation(stM); err != nil {
			t.Fatalf("RemoveStation() error: %v", err)
		}
		assertOrder(t, topo, stA, stB)
		sections := topo.Sections()
		if len(sections) != 1 || sections[0] != MustSection(stA, stB, 10) {
			t.Fatalf("Sections() = %v, want [1->2:10]", sections)
		}
	})

	t.Run("remove source", func(t *testing.T) {
		topo := newTestTopology(t, MustSection(stA, stB, 10), MustSection(stB, stC, 4))
		if err := topo.RemoveStation(stA); err != nil {
			t.Fatalf("RemoveStation() error: %v", err)
		}
		assertOrder(t, topo, stB, stC)
		assertDistances(t, topo, 4)
	})

	t.Run("remove sink", func(t *testing.T) {
		topo := newTestTopology(t, MustSection(stA, stB, 10), MustSection(stB, stC, 4))
		if err := topo.RemoveStation(stC); err != nil {
			t.Fatalf("RemoveStation() error: %v", err)
		}
		assertOrder(t, topo, stA, stB)
		assertDistances(t, topo, 10)
	})

	t.Run("removing from a two-station line empties it", func(t *testing.T) {
		topo := newTestTopology(t, MustSection(stA, stB, 10))
		if err := topo.RemoveStation(stB); err != nil {
			t.Fatalf("RemoveStation() error: %v", err)
		}
		if topo.Len() != 0 {
			t.Fatalf("Len() = %d, want 0", topo.Len())
		}
		assertOrder(t, topo)
	})

	t.Run("unknown station", func(t *testing.T) {
		topo := newTestTopology(t, MustSection(stA, stB, 10))
		err := topo.RemoveStation(stX)
		assertKind(t, err, KindNotFound)
		assertOrder(t, topo, stA, stB)
	})

	t.Run("endpoint removal shrinks by one station and one section", func(t *testing.T) {
		topo := newTestTopology(t,
			MustSection(stA, stB, 1),
			MustSection(stB, stC, 2),
			MustSection(stC, stD, 3),
		)
		for _, id := range []int64{stD, stA} {
			beforeStations, _ := topo.OrderedStations()
			beforeSections := topo.Len()
			if err := topo.RemoveStation(id); err != nil {
				t.Fatalf("RemoveStation(%d) error: %v", id, err)
			}
			afterStations, _ := topo.OrderedStations()
			if len(afterStations) != len(beforeStations)-1 || topo.Len() != beforeSections-1 {
				t.Fatalf("RemoveStation(%d) went from %d/%d to %d/%d stations/sections",
					id, len(beforeStations), beforeSections, len(afterStations), topo.Len())
			}
		}
	})
}

func TestTopologyAddThenRemoveRestores(t *testing.T) {
	tests := []struct {
		name    string
		added   Section
		removed int64
	}{
		{"back extension", MustSection(stC, stD, 5), stD},
		{"front extension", MustSection(stD, stA, 5), stD},
		{"up-side split", MustSection(stA, stM, 3), stM},
		{"down-side split", MustSection(stM, stC, 1), stM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo := newTestTopology(t, MustSection(stA, stB, 10), MustSection(stB, stC, 4))
			before := topo.Fingerprint()
			beforeOrder, _ := topo.OrderedStations()

			if err := topo.AddSection(tt.added); err != nil {
				t.Fatalf("AddSection() error: %v", err)
			}
			if err := topo.RemoveStation(tt.removed); err != nil {
				t.Fatalf("RemoveStation() error: %v", err)
			}

			if topo.Fingerprint() != before {
				t.Errorf("sections after round trip = %v", topo.Sections())
			}
			assertOrder(t, topo, beforeOrder...)
		})
	}
}

func TestTopologyWorkedExample(t *testing.T) {
	topo := newTestTopology(t, MustSection(stA, stB, 10))

	if err := topo.AddSection(MustSection(stB, stC, 4)); err != nil {
		t.Fatalf("AddSection(B->C) error: %v", err)
	}
	assertOrder(t, topo, stA, stB, stC)
	assertDistances(t, topo, 10, 4)

	if err := topo.AddSection(MustSection(stA, stM, 4)); err != nil {
		t.Fatalf("AddSection(A->M) error: %v", err)
	}
	assertOrder(t, topo, stA, stM, stB, stC)
	assertDistances(t, topo, 4, 6, 4)

	if err := topo.RemoveStation(stM); err != nil {
		t.Fatalf("RemoveStation(M) error: %v", err)
	}
	assertOrder(t, topo, stA, stB, stC)
	assertDistances(t, topo, 10, 4)

	assertKind(t, topo.AddSection(MustSection(stA, stB, 5)), KindValidation)
}

func TestTopologyOrderedStationsIsPermutation(t *testing.T) {
	topo := newTestTopology(t, MustSection(stA, stB, 20))
	steps := []Section{
		MustSection(stB, stC, 5),
		MustSection(stD, stA, 5),
		MustSection(stA, stM, 8),
		MustSection(stX, stB, 2),
		MustSection(stC, stY, 1),
	}
	for _, s := range steps {
		if err := topo.AddSection(s); err != nil {
			t.Fatalf("AddSection(%s) error: %v", s, err)
		}

		ordered, err := topo.OrderedStations()
		if err != nil {
			t.Fatalf("OrderedStations() error: %v", err)
		}
		if len(ordered) != topo.Len()+1 {
			t.Fatalf("got %d stations for %d sections", len(ordered), topo.Len())
		}
		seen := make(map[int64]bool)
		for i, id := range ordered {
			if seen[id] {
				t.Fatalf("station %d appears twice in %v", id, ordered)
			}
			seen[id] = true
			if i > 0 {
				if _, ok := topo.byUp[ordered[i-1]]; !ok || topo.byUp[ordered[i-1]].down != id {
					t.Fatalf("%d does not follow %d in %v", id, ordered[i-1], ordered)
				}
			}
		}
	}

	assertOrder(t, topo, stD, stA, stM, stX, stB, stC, stY)
	if topo.TotalDistance() != 31 {
		t.Errorf("TotalDistance() = %d, want 31", topo.TotalDistance())
	}
}

func TestTopologyQueries(t *testing.T) {
	topo := newTestTopology(t, MustSection(stB, stC, 4), MustSection(stA, stB, 10))

	if src, ok := topo.Source(); !ok || src != stA {
		t.Errorf("Source() = %d, %v; want %d", src, ok, stA)
	}
	if sink, ok := topo.Sink(); !ok || sink != stC {
		t.Errorf("Sink() = %d, %v; want %d", sink, ok, stC)
	}
	if !topo.Contains(stB) || topo.Contains(stX) {
		t.Error("Contains() reported wrong membership")
	}

	empty := newTestTopology(t)
	if _, ok := empty.Source(); ok {
		t.Error("Source() on empty topology should report false")
	}

	clone := topo.Clone()
	if err := clone.RemoveStation(stB); err != nil {
		t.Fatalf("RemoveStation() on clone error: %v", err)
	}
	if topo.Len() != 2 {
		t.Error("mutating a clone changed the original")
	}
}

func TestTopologyFingerprint(t *testing.T) {
	a := newTestTopology(t, MustSection(stA, stB, 10), MustSection(stB, stC, 4))
	b := newTestTopology(t, MustSection(stB, stC, 4), MustSection(stA, stB, 10))
	c := newTestTopology(t, MustSection(stA, stB, 10), MustSection(stB, stC, 5))

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("fingerprint should not depend on insertion order")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different distances should change the fingerprint")
	}
	if len(a.Fingerprint()) != 32 {
		t.Errorf("fingerprint length = %d, want 32", len(a.Fingerprint()))
	}
}

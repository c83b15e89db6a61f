package model

import "testing"

func TestConfigurationIDIsStructural(t *testing.T) {
	a := Configuration{RepeatIntervalMillis: 1000, Transforms: []Transform{{Kind: TransformKindLastDatapoint}}}
	b := Configuration{RepeatIntervalMillis: 1000, Transforms: []Transform{{Kind: TransformKindLastDatapoint}}}
	if a.ID() != b.ID() {
		t.Fatalf("expected structurally identical configurations to share an ID")
	}

	c := Configuration{RepeatIntervalMillis: 2000, Transforms: []Transform{{Kind: TransformKindLastDatapoint}}}
	if a.ID() == c.ID() {
		t.Fatalf("expected structurally different configurations to have different IDs")
	}
}

func TestConfigurationRunnable(t *testing.T) {
	cases := []struct {
		name string
		cfg  Configuration
		want bool
	}{
		{"enabled with positive interval", Configuration{RepeatIntervalMillis: 1000}, true},
		{"disabled", Configuration{Disabled: true, RepeatIntervalMillis: 1000}, false},
		{"zero interval", Configuration{RepeatIntervalMillis: 0}, false},
		{"negative interval", Configuration{RepeatIntervalMillis: -1}, false},
	}
	for _, tc := range cases {
		if got := tc.cfg.Runnable(); got != tc.want {
			t.Errorf("%s: Runnable() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSetDiff(t *testing.T) {
	c1 := Configuration{RepeatIntervalMillis: 1000}
	c2 := Configuration{RepeatIntervalMillis: 2000}
	c3 := Configuration{RepeatIntervalMillis: 3000}

	current := NewSet([]Configuration{c1, c2})
	next := NewSet([]Configuration{c2, c3})

	added, removed := current.Diff(next)
	if len(added) != 1 || added[0].ID() != c3.ID() {
		t.Fatalf("expected c3 to be added, got %v", added)
	}
	if len(removed) != 1 || removed[0].ID() != c1.ID() {
		t.Fatalf("expected c1 to be removed, got %v", removed)
	}
}

func TestSetDiffWithIdenticalSetsIsEmpty(t *testing.T) {
	c1 := Configuration{RepeatIntervalMillis: 1000}
	current := NewSet([]Configuration{c1})
	next := NewSet([]Configuration{{RepeatIntervalMillis: 1000}})

	added, removed := current.Diff(next)
	if len(added) != 0 || len(removed) != 0 {
		t.Fatalf("expected no diff between structurally identical sets, got added=%v removed=%v", added, removed)
	}
}

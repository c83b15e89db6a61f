package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Configuration is a declarative ETL job: extracts, ordered transforms,
// loads, and a repeat interval. Identity is the structural hash of all
// fields — two Configurations with identical content are equal, per
// spec.md §3.
type Configuration struct {
	Extracts             []Extract
	Transforms           []Transform
	Loads                []Load
	RepeatIntervalMillis int64
	Disabled             bool
}

// ID returns the structural-hash identity of c. The Scheduler and
// ConfigurationUpdateManager key their state by this value, not by pointer,
// so a Configuration can be safely replaced under updates (spec.md §9).
func (c Configuration) ID() string {
	// json.Marshal on a value type with no cycles is deterministic for a
	// fixed Go version/field order, which is all the structural-equality
	// invariant in spec.md §3 requires.
	b, err := json.Marshal(c)
	if err != nil {
		// Configurations are pure value data assembled by the config
		// loader; a marshal failure here means an invariant was violated
		// upstream, not a recoverable runtime condition.
		panic("model: configuration is not marshalable: " + err.Error())
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Runnable reports whether c should ever be scheduled: disabled
// Configurations and those with a non-positive repeat interval never run,
// per spec.md §4.9.
func (c Configuration) Runnable() bool {
	return !c.Disabled && c.RepeatIntervalMillis > 0
}

// Set is an identity-keyed collection of Configurations, as produced by a
// ConfigurationLoader and diffed by the UpdateManager.
type Set map[string]Configuration

// NewSet builds a Set keyed by structural identity from a flat slice.
func NewSet(cs []Configuration) Set {
	s := make(Set, len(cs))
	for _, c := range cs {
		s[c.ID()] = c
	}
	return s
}

// Diff computes added (in next but not in s) and removed (in s but not in
// next) Configurations, keyed by structural identity, per spec.md §4.8.
func (s Set) Diff(next Set) (added, removed []Configuration) {
	for id, c := range next {
		if _, ok := s[id]; !ok {
			added = append(added, c)
		}
	}
	for id, c := range s {
		if _, ok := next[id]; !ok {
			removed = append(removed, c)
		}
	}
	return added, removed
}

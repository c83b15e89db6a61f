package model

import "fmt"

// ExtractKind tags the concrete payload carried by an Extract value.
type ExtractKind string

const (
	ExtractKindRefocus ExtractKind = "refocus"
)

// Extract is a closed tagged-variant sum type over the concrete extract
// definitions pyplyn knows how to dispatch. Adding a new kind means adding a
// case to this struct and to the dispatch switch in the pipeline engine, not
// a new interface implementation: stage types are registered at startup, not
// loaded as plugins.
type Extract struct {
	Kind    ExtractKind
	Refocus *RefocusExtract
}

// EndpointID returns the endpoint this extract targets, regardless of kind.
func (e Extract) EndpointID() string {
	switch e.Kind {
	case ExtractKindRefocus:
		return e.Refocus.EndpointID
	default:
		return ""
	}
}

// CacheKey returns the opaque cache key for this extract's kind, regardless
// of payload.
func (e Extract) CacheKey() string {
	switch e.Kind {
	case ExtractKindRefocus:
		return e.Refocus.CacheKey()
	default:
		return ""
	}
}

// CacheMillis returns the TTL this extract's samples should be cached for;
// 0 means no caching.
func (e Extract) CacheMillis() int64 {
	switch e.Kind {
	case ExtractKindRefocus:
		return e.Refocus.CacheMillis
	default:
		return 0
	}
}

// DefaultValue returns the fallback value for this extract, if any.
func (e Extract) DefaultValue() (float64, bool) {
	switch e.Kind {
	case ExtractKindRefocus:
		if e.Refocus.DefaultValue != nil {
			return *e.Refocus.DefaultValue, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// FilteredName is the name samples should carry once resolved (defaulted or
// not); for Refocus this is distinct from the query pattern Name.
func (e Extract) FilteredName() string {
	switch e.Kind {
	case ExtractKindRefocus:
		return e.Refocus.FilteredName
	default:
		return ""
	}
}

// RefocusExtract is the reference concrete Extract: query a Refocus-protocol
// endpoint for samples matching Name, optionally caching and defaulting.
type RefocusExtract struct {
	EndpointID   string
	Name         string
	FilteredName string
	DefaultValue *float64
	CacheMillis  int64
}

// CacheKey is the opaque key Extract processors use to probe and populate
// the per-endpoint cache. The cache itself is already scoped per endpoint
// (AppConnectors keys it by endpointId+serviceClass), so the key only needs
// to distinguish series within that endpoint; it must use the same scheme
// as the corresponding Sample's CacheKey so a cached Sample can be matched
// back to the Extract that wants it (spec.md §4.4).
func (r *RefocusExtract) CacheKey() string {
	return fmt.Sprintf("refocus-sample:%s", r.FilteredName)
}

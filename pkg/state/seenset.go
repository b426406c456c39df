// Package state holds a source's crawl state: the set of record keys already
// persisted and the per-partition resume positions. State is checkpointed to
// disk after every page append so a crashed run resumes without re-emitting
// records.
package state

import "sort"

// SeenSet tracks the record keys already appended to the output sink. It is
// the dedup authority for one source; keys never leave their source's
// namespace, so a plain string set suffices.
type SeenSet struct {
	keys map[string]struct{}
}

// NewSeenSet creates an empty seen-set.
func NewSeenSet() *SeenSet {
	return &SeenSet{keys: make(map[string]struct{})}
}

// Contains reports whether key has been seen.
func (s *SeenSet) Contains(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// Add marks key as seen. Returns true if the key was new.
func (s *SeenSet) Add(key string) bool {
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// AddAll marks every key as seen.
func (s *SeenSet) AddAll(keys []string) {
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
}

// Len returns the number of distinct keys seen.
func (s *SeenSet) Len() int {
	return len(s.keys)
}

// Keys returns the seen keys in sorted order, for stable serialization.
func (s *SeenSet) Keys() []string {
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

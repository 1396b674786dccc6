package crawl

import (
	"sort"
	"sync"
)

// State is the single source of truth for dedup and termination within one
// scheduling round. One coarse mutex guards both sets and the result
// accumulator; critical sections are pure in-memory set operations, so the
// lock is never held across a navigation or wait.
type State struct {
	mu      sync.Mutex
	targets map[string]struct{}
	visited map[string]struct{}
	claimed map[string]struct{}
	results []Record
}

// Progress is a point-in-time view of a round's counters.
type Progress struct {
	PagesVisited int `json:"pages_visited"`
	TargetsFound int `json:"targets_found"`
	TargetsTotal int `json:"targets_total"`
}

// NewState builds round state for the given target URLs. Targets are
// canonicalized on entry so membership tests are exact string equality.
func NewState(targetURLs []string) *State {
	targets := make(map[string]struct{}, len(targetURLs))
	for _, t := range targetURLs {
		if c := Canonicalize(t); c != "" {
			targets[c] = struct{}{}
		}
	}
	return &State{
		targets: targets,
		visited: make(map[string]struct{}),
		claimed: make(map[string]struct{}),
	}
}

// IsTarget reports whether the canonical URL names a wanted document.
// The target set is immutable after construction, so no lock is taken.
func (s *State) IsTarget(canonicalURL string) bool {
	_, ok := s.targets[canonicalURL]
	return ok
}

// TryVisitPage atomically records the page URL as visited. It returns false
// if another worker already owns the page.
func (s *State) TryVisitPage(pageURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.visited[pageURL]; seen {
		return false
	}
	s.visited[pageURL] = struct{}{}
	return true
}

// TryClaimTarget atomically test-and-inserts the canonical URL into the
// processed-target set. Exactly one caller wins per target.
func (s *State) TryClaimTarget(canonicalURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, claimed := s.claimed[canonicalURL]; claimed {
		return false
	}
	s.claimed[canonicalURL] = struct{}{}
	return true
}

// AllTargetsFound reports whether every target has been claimed. An empty
// target set never reports found: there is nothing to search for, and the
// run must not spuriously claim success.
func (s *State) AllTargetsFound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.targets) > 0 && len(s.claimed) >= len(s.targets)
}

// RecordResult appends an extracted record to the shared accumulator.
func (s *State) RecordResult(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, rec)
}

// Results returns a copy of the accumulated records.
func (s *State) Results() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.results))
	copy(out, s.results)
	return out
}

// Remaining returns the targets not yet claimed, sorted for stable logs.
func (s *State) Remaining() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for t := range s.targets {
		if _, claimed := s.claimed[t]; !claimed {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns the round's progress counters.
func (s *State) Snapshot() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Progress{
		PagesVisited: len(s.visited),
		TargetsFound: len(s.claimed),
		TargetsTotal: len(s.targets),
	}
}

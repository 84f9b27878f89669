package ordering

import (
	"fmt"
	"sort"
	"strings"
)

// Package ordering maintains the orderIndex invariant for any group of
// same-parent entities: after every operation the set of orderIndex
// values is exactly {1..N}, gapless and duplicate-free.

// Entry pairs an entity id with its 1-based sibling position
type Entry struct {
	ID         string
	OrderIndex int
}

// ReorderItem is one element of the batch handed to the persistence
// collaborator after a mutation
type ReorderItem struct {
	ID         string `json:"id" bson:"id"`
	OrderIndex int    `json:"orderIndex" bson:"orderIndex"`
}

// InvalidReorderError reports that a ReorderAll id set did not match the
// live set — the usual cause is a stale client working from an old list
type InvalidReorderError struct {
	Missing    []string // ids in the set but absent from the request
	Unknown    []string // ids in the request but absent from the set
	Duplicated []string // ids appearing more than once in the request
}

func (e *InvalidReorderError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing ids %v", e.Missing))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, fmt.Sprintf("unknown ids %v", e.Unknown))
	}
	if len(e.Duplicated) > 0 {
		parts = append(parts, fmt.Sprintf("duplicated ids %v", e.Duplicated))
	}
	if len(parts) == 0 {
		parts = append(parts, "id set mismatch")
	}
	return "invalid reorder: " + strings.Join(parts, ", ")
}

// Set is the ordered collection of one parent's children. The zero
// value is an empty set.
type Set struct {
	entries []Entry // kept sorted by OrderIndex, which is always i+1
}

// FromEntries builds a set from persisted entries. Input order indexes
// are treated as a preference, not trusted: entries are sorted by
// (orderIndex, id) and renumbered 1..N, so a set loaded from data with
// gaps or duplicates is immediately back under the invariant.
func FromEntries(entries []Entry) *Set {
	s := &Set{entries: make([]Entry, len(entries))}
	copy(s.entries, entries)
	sort.SliceStable(s.entries, func(i, j int) bool {
		if s.entries[i].OrderIndex != s.entries[j].OrderIndex {
			return s.entries[i].OrderIndex < s.entries[j].OrderIndex
		}
		return s.entries[i].ID < s.entries[j].ID
	})
	s.renumber()
	return s
}

// Len returns the number of siblings
func (s *Set) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the current ordering
func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// IDs returns the ids in order
func (s *Set) IDs() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.ID
	}
	return out
}

// IndexOf returns the 1-based position of id, or 0 if absent
func (s *Set) IndexOf(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i + 1
		}
	}
	return 0
}

// Contains reports whether id is a member
func (s *Set) Contains(id string) bool {
	return s.IndexOf(id) > 0
}

// Clone returns an independent copy, used to restore the pre-operation
// ordering when a batch write fails
func (s *Set) Clone() *Set {
	return &Set{entries: s.Entries()}
}

// Restore replaces this set's contents with those of other
func (s *Set) Restore(other *Set) {
	s.entries = other.Entries()
}

// Insert places id at the 1-based position at; everything at or after
// that position shifts up by one. Positions outside [1, N+1] are
// clamped, so at <= 0 prepends and at > N appends.
func (s *Set) Insert(id string, at int) Entry {
	if at < 1 {
		at = 1
	}
	if at > len(s.entries)+1 {
		at = len(s.entries) + 1
	}
	e := Entry{ID: id, OrderIndex: at}
	s.entries = append(s.entries, Entry{})
	copy(s.entries[at:], s.entries[at-1:])
	s.entries[at-1] = e
	s.renumber()
	return s.entries[at-1]
}

// Append places id at position N+1
func (s *Set) Append(id string) Entry {
	return s.Insert(id, len(s.entries)+1)
}

// Remove deletes id and renumbers all later siblings down by one.
// It reports whether the id was present.
func (s *Set) Remove(id string) bool {
	idx := s.IndexOf(id)
	if idx == 0 {
		return false
	}
	s.entries = append(s.entries[:idx-1], s.entries[idx:]...)
	s.renumber()
	return true
}

// Move repositions id to the 1-based position to, clamped to the valid
// range of the set after removal. Equivalent to Remove followed by
// Insert. Moving an absent id is a no-op and reports false.
func (s *Set) Move(id string, to int) bool {
	if !s.Remove(id) {
		return false
	}
	s.Insert(id, to)
	return true
}

// ReorderAll replaces the whole ordering in one step. Every existing id
// must appear exactly once in ids; otherwise the set is left unchanged
// and an *InvalidReorderError describes the mismatch.
func (s *Set) ReorderAll(ids []string) error {
	if err := s.checkPermutation(ids); err != nil {
		return err
	}
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = Entry{ID: id, OrderIndex: i + 1}
	}
	s.entries = entries
	return nil
}

// Batch returns the full current ordering as the all-or-nothing write
// handed to the persistence collaborator
func (s *Set) Batch() []ReorderItem {
	out := make([]ReorderItem, len(s.entries))
	for i, e := range s.entries {
		out[i] = ReorderItem{ID: e.ID, OrderIndex: e.OrderIndex}
	}
	return out
}

func (s *Set) renumber() {
	for i := range s.entries {
		s.entries[i].OrderIndex = i + 1
	}
}

func (s *Set) checkPermutation(ids []string) error {
	seen := make(map[string]int, len(ids))
	var dup []string
	for _, id := range ids {
		seen[id]++
		if seen[id] == 2 {
			dup = append(dup, id)
		}
	}
	var missing, unknown []string
	for _, e := range s.entries {
		if seen[e.ID] == 0 {
			missing = append(missing, e.ID)
		}
	}
	for _, id := range ids {
		if !s.Contains(id) {
			unknown = append(unknown, id)
		}
	}
	if len(missing) > 0 || len(unknown) > 0 || len(dup) > 0 || len(ids) != len(s.entries) {
		sort.Strings(missing)
		sort.Strings(unknown)
		sort.Strings(dup)
		return &InvalidReorderError{Missing: missing, Unknown: unknown, Duplicated: dup}
	}
	return nil
}

package ordering

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(ids ...string) []Entry {
	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = Entry{ID: id, OrderIndex: i + 1}
	}
	return out
}

// assertInvariant checks the gapless 1..N numbering that every
// operation must preserve
func assertInvariant(t *testing.T, s *Set) {
	t.Helper()
	for i, e := range s.Entries() {
		assert.Equal(t, i+1, e.OrderIndex, "entry %s", e.ID)
	}
}

func TestFromEntriesHealsGapsAndDuplicates(t *testing.T) {
	s := FromEntries([]Entry{
		{ID: "c", OrderIndex: 7},
		{ID: "a", OrderIndex: 2},
		{ID: "b", OrderIndex: 2},
	})
	assert.Equal(t, []string{"a", "b", "c"}, s.IDs())
	assertInvariant(t, s)
}

func TestInsertClampsPosition(t *testing.T) {
	tests := []struct {
		name string
		at   int
		want []string
	}{
		{"prepend", 1, []string{"x", "a", "b", "c"}},
		{"middle", 2, []string{"a", "x", "b", "c"}},
		{"append", 4, []string{"a", "b", "c", "x"}},
		{"below range", -3, []string{"x", "a", "b", "c"}},
		{"above range", 99, []string{"a", "b", "c", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromEntries(entries("a", "b", "c"))
			s.Insert("x", tt.at)
			assert.Equal(t, tt.want, s.IDs())
			assertInvariant(t, s)
		})
	}
}

func TestRemoveRenumbersLaterSiblings(t *testing.T) {
	s := FromEntries(entries("a", "b", "c", "d"))
	require.True(t, s.Remove("b"))
	assert.Equal(t, []string{"a", "c", "d"}, s.IDs())
	assertInvariant(t, s)

	assert.False(t, s.Remove("zz"))
	assert.Equal(t, 3, s.Len())
}

func TestMove(t *testing.T) {
	tests := []struct {
		name string
		id   string
		to   int
		want []string
	}{
		{"forward", "a", 3, []string{"b", "c", "a", "d"}},
		{"backward", "d", 1, []string{"d", "a", "b", "c"}},
		{"same position", "b", 2, []string{"a", "b", "c", "d"}},
		{"clamped high", "a", 50, []string{"b", "c", "d", "a"}},
		{"clamped low", "c", 0, []string{"c", "a", "b", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromEntries(entries("a", "b", "c", "d"))
			require.True(t, s.Move(tt.id, tt.to))
			assert.Equal(t, tt.want, s.IDs())
			assertInvariant(t, s)
		})
	}

	t.Run("absent id is a no-op", func(t *testing.T) {
		s := FromEntries(entries("a", "b"))
		assert.False(t, s.Move("zz", 1))
		assert.Equal(t, []string{"a", "b"}, s.IDs())
	})
}

func TestReorderAll(t *testing.T) {
	s := FromEntries(entries("a", "b", "c"))
	require.NoError(t, s.ReorderAll([]string{"c", "a", "b"}))
	assert.Equal(t, []string{"c", "a", "b"}, s.IDs())
	assertInvariant(t, s)
}

func TestReorderAllRejectsBadPermutations(t *testing.T) {
	tests := []struct {
		name       string
		ids        []string
		missing    []string
		unknown    []string
		duplicated []string
	}{
		{"missing id", []string{"a", "b"}, []string{"c"}, nil, nil},
		{"unknown id", []string{"a", "b", "c", "z"}, nil, []string{"z"}, nil},
		{"duplicate id", []string{"a", "b", "b"}, []string{"c"}, nil, []string{"b"}},
		{"empty request", nil, []string{"a", "b", "c"}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromEntries(entries("a", "b", "c"))
			err := s.ReorderAll(tt.ids)
			var reorderErr *InvalidReorderError
			require.ErrorAs(t, err, &reorderErr)
			assert.Equal(t, tt.missing, reorderErr.Missing)
			assert.Equal(t, tt.unknown, reorderErr.Unknown)
			assert.Equal(t, tt.duplicated, reorderErr.Duplicated)

			// the set must be untouched after a rejected reorder
			assert.Equal(t, []string{"a", "b", "c"}, s.IDs())
			assertInvariant(t, s)
		})
	}
}

// The invariant must hold after any sequence of operations, not just
// single steps.
func TestOperationSequencesPreserveInvariant(t *testing.T) {
	s := FromEntries(entries("a", "b", "c"))
	s.Insert("d", 2)
	s.Move("a", 4)
	s.Remove("c")
	s.Append("e")
	require.NoError(t, s.ReorderAll([]string{"e", "d", "b", "a"}))
	s.Remove("d")

	assert.Equal(t, []string{"e", "b", "a"}, s.IDs())
	assertInvariant(t, s)
}

func TestApplyCommitsBatchOnSuccess(t *testing.T) {
	s := FromEntries(entries("a", "b", "c"))
	var committed []ReorderItem
	err := Apply(context.Background(), s,
		func(s *Set) error {
			s.Move("c", 1)
			return nil
		},
		func(_ context.Context, batch []ReorderItem) error {
			committed = batch
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, s.IDs())
	assert.Equal(t, []ReorderItem{
		{ID: "c", OrderIndex: 1},
		{ID: "a", OrderIndex: 2},
		{ID: "b", OrderIndex: 3},
	}, committed)
}

func TestApplyRestoresSetOnWriteFailure(t *testing.T) {
	s := FromEntries(entries("a", "b", "c"))
	writeErr := errors.New("connection lost")
	err := Apply(context.Background(), s,
		func(s *Set) error {
			s.Move("c", 1)
			return nil
		},
		func(context.Context, []ReorderItem) error { return writeErr })
	require.ErrorIs(t, err, writeErr)

	// in-memory ordering rolls back so no partial reorder is observable
	assert.Equal(t, []string{"a", "b", "c"}, s.IDs())
	assertInvariant(t, s)
}

func TestApplyRestoresSetOnMutateFailure(t *testing.T) {
	s := FromEntries(entries("a", "b", "c"))
	err := Apply(context.Background(), s,
		func(s *Set) error {
			s.Remove("a")
			return s.ReorderAll([]string{"b"})
		},
		func(context.Context, []ReorderItem) error {
			t.Fatal("write must not run after a failed mutation")
			return nil
		})
	var reorderErr *InvalidReorderError
	require.ErrorAs(t, err, &reorderErr)
	assert.Equal(t, []string{"a", "b", "c"}, s.IDs())
}

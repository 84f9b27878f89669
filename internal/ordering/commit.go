package ordering

import "context"

// BatchWriter persists a full sibling ordering all-or-nothing. Partial
// success is not a legal outcome for implementations.
type BatchWriter func(ctx context.Context, batch []ReorderItem) error

// Apply runs mutate against the set and commits the resulting ordering
// through write. If either the mutation or the write fails, the set is
// restored to its pre-operation state so no partial reorder is ever
// observable in memory.
func Apply(ctx context.Context, s *Set, mutate func(*Set) error, write BatchWriter) error {
	before := s.Clone()
	if err := mutate(s); err != nil {
		s.Restore(before)
		return err
	}
	if write != nil {
		if err := write(ctx, s.Batch()); err != nil {
			s.Restore(before)
			return err
		}
	}
	return nil
}

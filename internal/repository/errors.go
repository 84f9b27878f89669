package repository

import "fmt"

// PersistenceFailure wraps any collaborator-side fault so callers can
// distinguish infrastructure trouble from structural errors
type PersistenceFailure struct {
	Op  string
	Err error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceFailure) Unwrap() error {
	return e.Err
}

func failure(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceFailure{Op: op, Err: err}
}

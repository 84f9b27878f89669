package service

import (
	"fmt"
	"strings"

	"elevatecore/internal/model"
)

// NotFoundError reports a lookup against a missing entity
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// InvalidMoveError reports an attempt to re-parent a node across kinds,
// e.g. moving a Stage under a Module
type InvalidMoveError struct {
	NodeID     string
	NodeKind   model.NodeKind
	ParentID   string
	ParentKind model.NodeKind
}

func (e *InvalidMoveError) Error() string {
	return fmt.Sprintf("invalid move: %s node %s cannot be placed under %s node %s",
		e.NodeKind, e.NodeID, e.ParentKind, e.ParentID)
}

// AmbiguousRuleError reports a rule-table configuration defect: two or
// more rules of the same specificity and priority cover the same score.
// It is never auto-resolved.
type AmbiguousRuleError struct {
	QuestionnaireID string
	Score           float64
	RuleIDs         []string
}

func (e *AmbiguousRuleError) Error() string {
	return fmt.Sprintf("ambiguous stage rules for score %v: %s", e.Score, strings.Join(e.RuleIDs, ", "))
}

// StageInUseError blocks deletion of a stage that stage rules still
// target; the rules are named so an admin can repoint or remove them
type StageInUseError struct {
	StageID string
	RuleIDs []string
}

func (e *StageInUseError) Error() string {
	return fmt.Sprintf("stage %s is targeted by stage rules %s and cannot be deleted",
		e.StageID, strings.Join(e.RuleIDs, ", "))
}

// ImportIncompleteError reports a partially applied snapshot import.
// Entities created before the failure stand; the reorder step was
// skipped. Re-running the import with the same snapshot is safe and
// will converge.
type ImportIncompleteError struct {
	SegmentID string
	Questions []string            // question texts that failed to reconcile
	Options   map[string][]string // question text -> option labels that failed
}

func (e *ImportIncompleteError) Error() string {
	n := len(e.Questions)
	for _, labels := range e.Options {
		n += len(labels)
	}
	return fmt.Sprintf("import into segment %s incomplete: %d entries need reconciliation, re-run the import",
		e.SegmentID, n)
}

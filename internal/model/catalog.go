package model

import "time"

// NodeKind identifies the level of a catalog node
type NodeKind string

const (
	KindModule  NodeKind = "MODULE"
	KindSegment NodeKind = "SEGMENT"
	KindStage   NodeKind = "STAGE"
)

// ChildKind returns the kind one level below, or "" for Stage
func (k NodeKind) ChildKind() NodeKind {
	switch k {
	case KindModule:
		return KindSegment
	case KindSegment:
		return KindStage
	}
	return ""
}

// StageType classifies what a Stage delivers to the client
type StageType string

const (
	StageTraining     StageType = "TRAINING"
	StageAssessment   StageType = "ASSESSMENT"
	StageConsultation StageType = "CONSULTATION"
	StageSummary      StageType = "SUMMARY"
)

// CatalogNode is one node of the Module/Segment/Stage tree.
// ParentID is empty for modules. OrderIndex is the 1-based position
// among same-parent siblings and is always a gapless permutation.
type CatalogNode struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	ParentID    string    `json:"parentId,omitempty" bson:"parentId,omitempty"`
	Kind        NodeKind  `json:"kind" bson:"kind"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	OrderIndex  int       `json:"orderIndex" bson:"orderIndex"`
	IsActive    bool      `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`

	// Stage-only fields
	StageType       StageType `json:"stageType,omitempty" bson:"stageType,omitempty"`
	ContentURL      string    `json:"contentUrl,omitempty" bson:"contentUrl,omitempty"`
	DurationMinutes int       `json:"durationMinutes,omitempty" bson:"durationMinutes,omitempty"`
}

// NodeUpdate carries a partial update; nil fields are left unchanged
type NodeUpdate struct {
	Name            *string    `json:"name,omitempty"`
	Description     *string    `json:"description,omitempty"`
	IsActive        *bool      `json:"isActive,omitempty"`
	StageType       *StageType `json:"stageType,omitempty"`
	ContentURL      *string    `json:"contentUrl,omitempty"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
}

// ModuleTree is a denormalized module with its ordered descendants
type ModuleTree struct {
	Module   CatalogNode   `json:"module"`
	Segments []SegmentTree `json:"segments"`
}

// SegmentTree is a segment with its ordered stages
type SegmentTree struct {
	Segment CatalogNode   `json:"segment"`
	Stages  []CatalogNode `json:"stages"`
}

// FlatStage is one stage paired with its full ancestor path,
// as consumed by pickers and the stage rule resolver
type FlatStage struct {
	Stage       CatalogNode `json:"stage"`
	SegmentID   string      `json:"segmentId"`
	SegmentName string      `json:"segmentName"`
	ModuleID    string      `json:"moduleId"`
	ModuleName  string      `json:"moduleName"`
}

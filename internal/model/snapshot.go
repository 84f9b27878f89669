package model

// SegmentSnapshot is the serialized form of one segment's questions and
// options, used for backup and bulk-edit round trips. Questions and
// options are emitted in current orderIndex order; ids are deliberately
// absent so a snapshot can be replayed against any segment.
type SegmentSnapshot struct {
	SegmentName string             `json:"segmentName"`
	Questions   []SnapshotQuestion `json:"questions"`
}

// SnapshotQuestion mirrors Question without identifiers
type SnapshotQuestion struct {
	Text    string           `json:"text"`
	Weight  *float64         `json:"weight,omitempty"`
	Order   int              `json:"order"`
	Options []SnapshotOption `json:"options,omitempty"`
}

// SnapshotOption mirrors Option without identifiers
type SnapshotOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Order int    `json:"order"`
}

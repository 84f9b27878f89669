package model

import "time"

// QuestionType defines how a question is answered and scored
type QuestionType string

const (
	QuestionMCQ      QuestionType = "MCQ"       // single choice, option value scored
	QuestionMCQMulti QuestionType = "MCQ_MULTI" // multiple choice, selected values summed
	QuestionText     QuestionType = "TEXT"      // free text, never scored
	QuestionScale    QuestionType = "SCALE"     // rating scale, option value scored
)

// Questionnaire is a named, versioned set of scored segments and questions,
// independent of the catalog tree
type Questionnaire struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Name      string    `json:"name" bson:"name"`
	Version   string    `json:"version" bson:"version"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// QSegment groups questions inside a questionnaire
type QSegment struct {
	ID              string `json:"id" bson:"_id,omitempty"`
	QuestionnaireID string `json:"questionnaireId" bson:"questionnaireId"`
	Name            string `json:"name" bson:"name"`
	OrderIndex      int    `json:"orderIndex" bson:"orderIndex"`
}

// Question belongs to exactly one QSegment. CatalogSegmentID is an
// advisory tag pointing at a catalog segment for grouping; it is a weak
// reference and is never followed for cascade purposes.
type Question struct {
	ID               string       `json:"id" bson:"_id,omitempty"`
	SegmentID        string       `json:"segmentId" bson:"segmentId"`
	Text             string       `json:"text" bson:"text"`
	Type             QuestionType `json:"type" bson:"type"`
	Weight           *float64     `json:"weight,omitempty" bson:"weight,omitempty"` // >= 0, nil means 1
	OrderIndex       int          `json:"orderIndex" bson:"orderIndex"`
	CatalogSegmentID string       `json:"catalogSegmentId,omitempty" bson:"catalogSegmentId,omitempty"`
}

// Option is one selectable answer for a question. Value is a
// numeric-encoded string; Correct is only meaningful for quiz-style
// questions, not for scored assessment questions.
type Option struct {
	ID         string `json:"id" bson:"_id,omitempty"`
	QuestionID string `json:"questionId" bson:"questionId"`
	Label      string `json:"label" bson:"label"`
	Value      string `json:"value" bson:"value"`
	OrderIndex int    `json:"orderIndex" bson:"orderIndex"`
	Correct    bool   `json:"correct,omitempty" bson:"correct,omitempty"`
}

// EffectiveWeight returns the question weight, defaulting to 1 when unset.
// Negative weights are treated as 0.
func (q *Question) EffectiveWeight() float64 {
	if q.Weight == nil {
		return 1
	}
	if *q.Weight < 0 {
		return 0
	}
	return *q.Weight
}

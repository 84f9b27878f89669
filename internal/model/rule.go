package model

import "time"

// StageRule maps a score range to a target stage. QuestionnaireID is
// empty for global rules, which apply to any questionnaire's score.
// Lower Priority values win among rules of equal specificity.
type StageRule struct {
	ID              string    `json:"id" bson:"_id,omitempty"`
	QuestionnaireID string    `json:"questionnaireId,omitempty" bson:"questionnaireId,omitempty"`
	MinScore        float64   `json:"minScore" bson:"minScore"`
	MaxScore        float64   `json:"maxScore" bson:"maxScore"`
	TargetStageID   string    `json:"targetStageId" bson:"targetStageId"`
	Priority        int       `json:"priority" bson:"priority"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IsGlobal reports whether the rule applies regardless of questionnaire
func (r *StageRule) IsGlobal() bool {
	return r.QuestionnaireID == ""
}

// Matches reports whether the rule's range covers score for the given
// questionnaire (specific match or global)
func (r *StageRule) Matches(questionnaireID string, score float64) bool {
	if score < r.MinScore || score > r.MaxScore {
		return false
	}
	return r.IsGlobal() || r.QuestionnaireID == questionnaireID
}

// HasFractionalBounds reports whether either bound carries a fractional
// part; integer rounding of scores is only applied when it does not
func (r *StageRule) HasFractionalBounds() bool {
	return r.MinScore != float64(int64(r.MinScore)) || r.MaxScore != float64(int64(r.MaxScore))
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptAnswer is one submitted answer inside an attempt. Exactly one
// of SelectedOptionIDs / FreeTextValue is meaningful for a given
// question type; SelectedOptionIDs holds a single id for MCQ and SCALE.
type AttemptAnswer struct {
	QuestionID        string   `json:"questionId"`
	SelectedOptionIDs []string `json:"selectedOptionIds,omitempty"`
	FreeTextValue     string   `json:"freeTextValue,omitempty"`
}

// Attempt is one client's completed answer set for a questionnaire.
// Attempts are ephemeral: the core never persists them, and the ID is a
// transient correlation handle for logs and score reports only.
type Attempt struct {
	ID              string          `json:"id"`
	QuestionnaireID string          `json:"questionnaireId"`
	Answers         []AttemptAnswer `json:"answers"`
	SubmittedAt     time.Time       `json:"submittedAt"`
}

// NewAttempt builds an attempt with a fresh correlation id
func NewAttempt(questionnaireID string, answers []AttemptAnswer) *Attempt {
	return &Attempt{
		ID:              uuid.NewString(),
		QuestionnaireID: questionnaireID,
		Answers:         answers,
		SubmittedAt:     time.Now().UTC(),
	}
}

// AnswerByQuestion indexes answers by question id. Later duplicates of
// the same question are ignored so no question can be double-counted.
func (a *Attempt) AnswerByQuestion() map[string]AttemptAnswer {
	out := make(map[string]AttemptAnswer, len(a.Answers))
	for _, ans := range a.Answers {
		if _, ok := out[ans.QuestionID]; !ok {
			out[ans.QuestionID] = ans
		}
	}
	return out
}

package service

import (
	"context"
	"sort"
	"strconv"

	"elevatecore/internal/model"
	"elevatecore/internal/repository"

	"go.uber.org/zap"
)

// ScoringService turns a completed attempt into a single numeric score.
// The computation is deterministic: contributions are accumulated in
// question-id order, so any iteration order over segments and questions
// produces the identical total.
type ScoringService struct {
	questionnaireRepo repository.QuestionnaireRepo
	questionRepo      repository.QuestionRepo
	logger            *zap.Logger
}

func NewScoringService(
	questionnaireRepo repository.QuestionnaireRepo,
	questionRepo repository.QuestionRepo,
	logger *zap.Logger,
) *ScoringService {
	return &ScoringService{
		questionnaireRepo: questionnaireRepo,
		questionRepo:      questionRepo,
		logger:            logger,
	}
}

// QuestionScore is one question's contribution to the total
type QuestionScore struct {
	QuestionID   string  `json:"questionId"`
	SegmentID    string  `json:"segmentId"`
	Weight       float64 `json:"weight"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
	Answered     bool    `json:"answered"`
}

// TextAnswer is a free-text response carried through for human review;
// it never contributes to the numeric score
type TextAnswer struct {
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
}

// ScoreReport is the aggregation result for one attempt
type ScoreReport struct {
	AttemptID       string          `json:"attemptId"`
	QuestionnaireID string          `json:"questionnaireId"`
	Total           float64         `json:"total"`
	Contributions   []QuestionScore `json:"contributions"`
	TextAnswers     []TextAnswer    `json:"textAnswers,omitempty"`
}

// Score aggregates an attempt over every question of its questionnaire.
// Unanswered questions contribute 0. Malformed option values contribute
// 0 and are logged as data-quality warnings, never surfaced as errors.
func (s *ScoringService) Score(ctx context.Context, attempt *model.Attempt) (*ScoreReport, error) {
	q, err := s.questionnaireRepo.GetByID(ctx, attempt.QuestionnaireID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, &NotFoundError{Entity: "questionnaire", ID: attempt.QuestionnaireID}
	}

	segments, err := s.questionnaireRepo.ListSegments(ctx, attempt.QuestionnaireID)
	if err != nil {
		return nil, err
	}
	answers := attempt.AnswerByQuestion()

	report := &ScoreReport{
		AttemptID:       attempt.ID,
		QuestionnaireID: attempt.QuestionnaireID,
	}
	seen := make(map[string]bool)
	for _, seg := range segments {
		questions, err := s.questionRepo.ListBySegment(ctx, seg.ID)
		if err != nil {
			return nil, err
		}
		for _, question := range questions {
			if seen[question.ID] {
				continue
			}
			seen[question.ID] = true
			qs, text := s.scoreQuestion(ctx, attempt, &question, answers)
			report.Contributions = append(report.Contributions, qs)
			if text != nil {
				report.TextAnswers = append(report.TextAnswers, *text)
			}
		}
	}

	// Fixed accumulation order makes the sum independent of how the
	// segments and questions were iterated
	sort.Slice(report.Contributions, func(i, j int) bool {
		return report.Contributions[i].QuestionID < report.Contributions[j].QuestionID
	})
	sort.Slice(report.TextAnswers, func(i, j int) bool {
		return report.TextAnswers[i].QuestionID < report.TextAnswers[j].QuestionID
	})
	for _, c := range report.Contributions {
		report.Total += c.Contribution
	}
	return report, nil
}

func (s *ScoringService) scoreQuestion(
	ctx context.Context,
	attempt *model.Attempt,
	question *model.Question,
	answers map[string]model.AttemptAnswer,
) (QuestionScore, *TextAnswer) {
	qs := QuestionScore{
		QuestionID: question.ID,
		SegmentID:  question.SegmentID,
		Weight:     question.EffectiveWeight(),
	}
	answer, answered := answers[question.ID]
	if !answered {
		return qs, nil
	}
	qs.Answered = true

	switch question.Type {
	case model.QuestionText:
		if answer.FreeTextValue == "" {
			return qs, nil
		}
		return qs, &TextAnswer{QuestionID: question.ID, Text: answer.FreeTextValue}

	case model.QuestionMCQ, model.QuestionScale:
		if len(answer.SelectedOptionIDs) == 0 {
			return qs, nil
		}
		opts := s.loadOptions(ctx, attempt, question)
		qs.Value = s.optionValue(attempt, question, opts, answer.SelectedOptionIDs[0])

	case model.QuestionMCQMulti:
		if len(answer.SelectedOptionIDs) == 0 {
			return qs, nil
		}
		opts := s.loadOptions(ctx, attempt, question)
		for _, optID := range answer.SelectedOptionIDs {
			qs.Value += s.optionValue(attempt, question, opts, optID)
		}

	default:
		s.logger.Warn("question with unknown type skipped during scoring",
			zap.String("attemptId", attempt.ID),
			zap.String("questionId", question.ID),
			zap.String("type", string(question.Type)))
		return qs, nil
	}

	qs.Contribution = qs.Value * qs.Weight
	return qs, nil
}

// loadOptions fetches a question's options keyed by id. A failed fetch
// yields an empty map: the question scores 0 and the incident is
// logged, because the aggregator never fails on bad option data.
func (s *ScoringService) loadOptions(ctx context.Context, attempt *model.Attempt, question *model.Question) map[string]model.Option {
	opts, err := s.questionRepo.ListOptions(ctx, question.ID)
	if err != nil {
		s.logger.Warn("option lookup failed during scoring, contribution dropped",
			zap.String("attemptId", attempt.ID),
			zap.String("questionId", question.ID),
			zap.Error(err))
		return nil
	}
	byID := make(map[string]model.Option, len(opts))
	for _, opt := range opts {
		byID[opt.ID] = opt
	}
	return byID
}

// optionValue parses one selected option's numeric value. Unknown
// options and non-numeric values both count as 0; they indicate bad
// data, not a scoring failure.
func (s *ScoringService) optionValue(attempt *model.Attempt, question *model.Question, opts map[string]model.Option, optionID string) float64 {
	opt, ok := opts[optionID]
	if !ok {
		s.logger.Warn("selected option does not belong to question",
			zap.String("attemptId", attempt.ID),
			zap.String("questionId", question.ID),
			zap.String("optionId", optionID))
		return 0
	}
	v, err := strconv.ParseFloat(opt.Value, 64)
	if err != nil {
		s.logger.Warn("non-numeric option value treated as 0",
			zap.String("questionId", question.ID),
			zap.String("optionId", opt.ID),
			zap.String("value", opt.Value))
		return 0
	}
	return v
}

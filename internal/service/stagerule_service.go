package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"elevatecore/internal/cache"
	"elevatecore/internal/model"
	"elevatecore/internal/repository"

	"go.uber.org/zap"
)

// StageRuleService manages the score-to-stage rule table and resolves
// scores against it. Resolution is a pure function of the rule set and
// the inputs; the rule cache only backs the admin list views and is
// flushed on every mutation.
type StageRuleService struct {
	ruleRepo    repository.StageRuleRepo
	catalogRepo repository.CatalogRepo
	ruleCache   cache.RuleCache
	logger      *zap.Logger
}

func NewStageRuleService(
	ruleRepo repository.StageRuleRepo,
	catalogRepo repository.CatalogRepo,
	ruleCache cache.RuleCache,
	logger *zap.Logger,
) *StageRuleService {
	return &StageRuleService{
		ruleRepo:    ruleRepo,
		catalogRepo: catalogRepo,
		ruleCache:   ruleCache,
		logger:      logger,
	}
}

// Resolution is the outcome of mapping a score to a stage. Matched is
// false for the first-class "no rule matched" outcome: a configuration
// gap the caller must surface, never paper over with a default stage.
type Resolution struct {
	Matched bool
	Rule    *model.StageRule
	Stage   *model.CatalogNode
	// Score is the value the rules were compared against, after any
	// rounding
	Score float64
}

// CreateRule validates and stores a rule, then flushes the rule cache
func (s *StageRuleService) CreateRule(ctx context.Context, rule *model.StageRule) error {
	if err := s.validateRule(ctx, rule); err != nil {
		return err
	}
	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return err
	}
	s.flushRules(ctx)
	return nil
}

func (s *StageRuleService) UpdateRule(ctx context.Context, rule *model.StageRule) error {
	existing, err := s.ruleRepo.GetByID(ctx, rule.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return &NotFoundError{Entity: "stage rule", ID: rule.ID}
	}
	if err := s.validateRule(ctx, rule); err != nil {
		return err
	}
	rule.CreatedAt = existing.CreatedAt
	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return err
	}
	s.flushRules(ctx)
	return nil
}

func (s *StageRuleService) DeleteRule(ctx context.Context, id string) error {
	if err := s.ruleRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.flushRules(ctx)
	return nil
}

// ListRules returns the rules applicable to a questionnaire (scoped
// plus global; global only when questionnaireID is empty), cache-backed
func (s *StageRuleService) ListRules(ctx context.Context, questionnaireID string) ([]model.StageRule, error) {
	if s.ruleCache != nil {
		rules, hit, err := s.ruleCache.Get(ctx, questionnaireID)
		if err != nil {
			s.logger.Warn("rule cache read failed", zap.Error(err))
		} else if hit {
			return rules, nil
		}
	}
	rules, err := s.ruleRepo.List(ctx, questionnaireID)
	if err != nil {
		return nil, err
	}
	if s.ruleCache != nil {
		if err := s.ruleCache.Set(ctx, questionnaireID, rules); err != nil {
			s.logger.Warn("rule cache write failed", zap.Error(err))
		}
	}
	return rules, nil
}

// Rules returns the entire rule table, scoped and global, for admin
// review; it always reads the repository directly
func (s *StageRuleService) Rules(ctx context.Context) ([]model.StageRule, error) {
	return s.ruleRepo.GetAll(ctx)
}

// Resolve maps (questionnaireID, score) to exactly one target stage.
// The rule set is read fresh on every call so edits are never hidden.
func (s *StageRuleService) Resolve(ctx context.Context, questionnaireID string, score float64) (*Resolution, error) {
	rules, err := s.ruleRepo.List(ctx, questionnaireID)
	if err != nil {
		return nil, err
	}
	res, err := ResolveAgainst(rules, questionnaireID, score)
	if err != nil {
		return nil, err
	}
	if !res.Matched {
		s.logger.Warn("no stage rule matched",
			zap.String("questionnaireId", questionnaireID),
			zap.Float64("score", res.Score))
		return res, nil
	}
	stage, err := s.catalogRepo.GetByID(ctx, res.Rule.TargetStageID)
	if err != nil {
		return nil, err
	}
	if stage == nil || stage.Kind != model.KindStage {
		return nil, fmt.Errorf("stage rule %s targets missing stage %s", res.Rule.ID, res.Rule.TargetStageID)
	}
	res.Stage = stage
	return res, nil
}

// ResolveAgainst is the pure resolution algorithm over an explicit rule
// set. Candidate rules must cover the score and be scoped to the
// questionnaire or global. A questionnaire-specific rule beats a global
// one; among equal specificity the lowest priority value wins; a tie
// left after both criteria is an AmbiguousRuleError. Scores are rounded
// to the nearest integer unless any applicable rule uses fractional
// bounds.
func ResolveAgainst(rules []model.StageRule, questionnaireID string, score float64) (*Resolution, error) {
	score = roundForRules(rules, questionnaireID, score)

	var candidates []model.StageRule
	for _, r := range rules {
		if r.Matches(questionnaireID, score) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return &Resolution{Matched: false, Score: score}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].IsGlobal(), candidates[j].IsGlobal()
		if si != sj {
			return !si // specific before global
		}
		return candidates[i].Priority < candidates[j].Priority
	})

	best := candidates[0]
	var tied []string
	for _, c := range candidates[1:] {
		if c.IsGlobal() == best.IsGlobal() && c.Priority == best.Priority {
			tied = append(tied, c.ID)
		}
	}
	if len(tied) > 0 {
		return nil, &AmbiguousRuleError{
			QuestionnaireID: questionnaireID,
			Score:           score,
			RuleIDs:         append([]string{best.ID}, tied...),
		}
	}
	return &Resolution{Matched: true, Rule: &best, Score: score}, nil
}

// roundForRules applies integer rounding unless any rule applicable to
// the questionnaire declares fractional bounds
func roundForRules(rules []model.StageRule, questionnaireID string, score float64) float64 {
	for _, r := range rules {
		if !r.IsGlobal() && r.QuestionnaireID != questionnaireID {
			continue
		}
		if r.HasFractionalBounds() {
			return score
		}
	}
	return math.Round(score)
}

func (s *StageRuleService) validateRule(ctx context.Context, rule *model.StageRule) error {
	if rule.MinScore > rule.MaxScore {
		return fmt.Errorf("invalid stage rule: minScore %v exceeds maxScore %v", rule.MinScore, rule.MaxScore)
	}
	stage, err := s.catalogRepo.GetByID(ctx, rule.TargetStageID)
	if err != nil {
		return err
	}
	if stage == nil || stage.Kind != model.KindStage {
		return &NotFoundError{Entity: "stage", ID: rule.TargetStageID}
	}
	return nil
}

func (s *StageRuleService) flushRules(ctx context.Context) {
	if s.ruleCache == nil {
		return
	}
	if err := s.ruleCache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("rule cache flush failed", zap.Error(err))
	}
}

package service

import (
	"context"

	"elevatecore/internal/model"
	"elevatecore/internal/ordering"
	"elevatecore/internal/repository"

	"go.uber.org/zap"
)

// QuestionnaireService owns the questionnaire side of the content:
// Questionnaire -> QSegment -> Question -> Option, with the same
// sibling-ordering guarantees as the catalog tree
type QuestionnaireService struct {
	questionnaireRepo repository.QuestionnaireRepo
	questionRepo      repository.QuestionRepo
	ruleRepo          repository.StageRuleRepo
	catalogRepo       repository.CatalogRepo
	logger            *zap.Logger
}

func NewQuestionnaireService(
	questionnaireRepo repository.QuestionnaireRepo,
	questionRepo repository.QuestionRepo,
	ruleRepo repository.StageRuleRepo,
	catalogRepo repository.CatalogRepo,
	logger *zap.Logger,
) *QuestionnaireService {
	return &QuestionnaireService{
		questionnaireRepo: questionnaireRepo,
		questionRepo:      questionRepo,
		ruleRepo:          ruleRepo,
		catalogRepo:       catalogRepo,
		logger:            logger,
	}
}

// QSegmentTree is a questionnaire segment with its ordered questions
// and their ordered options
type QSegmentTree struct {
	Segment   model.QSegment   `json:"segment"`
	Questions []QuestionDetail `json:"questions"`
}

// QuestionDetail pairs a question with its ordered options
type QuestionDetail struct {
	Question model.Question `json:"question"`
	Options  []model.Option `json:"options"`
}

func (s *QuestionnaireService) CreateQuestionnaire(ctx context.Context, q *model.Questionnaire) error {
	return s.questionnaireRepo.Create(ctx, q)
}

// Questionnaires lists every questionnaire for admin pickers
func (s *QuestionnaireService) Questionnaires(ctx context.Context) ([]model.Questionnaire, error) {
	return s.questionnaireRepo.GetAll(ctx)
}

func (s *QuestionnaireService) GetQuestionnaire(ctx context.Context, id string) (*model.Questionnaire, error) {
	q, err := s.questionnaireRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, &NotFoundError{Entity: "questionnaire", ID: id}
	}
	return q, nil
}

func (s *QuestionnaireService) UpdateQuestionnaire(ctx context.Context, q *model.Questionnaire) error {
	return s.questionnaireRepo.Update(ctx, q)
}

// DeleteQuestionnaire cascades: segments, their questions and options,
// and the questionnaire's scoped stage rules all go with it
func (s *QuestionnaireService) DeleteQuestionnaire(ctx context.Context, id string) error {
	segments, err := s.questionnaireRepo.ListSegments(ctx, id)
	if err != nil {
		return err
	}
	for _, seg := range segments {
		if err := s.deleteSegmentQuestions(ctx, seg.ID); err != nil {
			return err
		}
	}
	if err := s.ruleRepo.DeleteByQuestionnaire(ctx, id); err != nil {
		return err
	}
	return s.questionnaireRepo.Delete(ctx, id)
}

// CreateSegment appends the segment to its questionnaire (or inserts at
// the 1-based position at when at > 0)
func (s *QuestionnaireService) CreateSegment(ctx context.Context, seg *model.QSegment, at int) error {
	q, err := s.questionnaireRepo.GetByID(ctx, seg.QuestionnaireID)
	if err != nil {
		return err
	}
	if q == nil {
		return &NotFoundError{Entity: "questionnaire", ID: seg.QuestionnaireID}
	}
	set, err := s.segmentSet(ctx, seg.QuestionnaireID)
	if err != nil {
		return err
	}
	seg.OrderIndex = set.Len() + 1
	if err := s.questionnaireRepo.CreateSegment(ctx, seg); err != nil {
		return err
	}
	if at > 0 && at <= set.Len() {
		err = ordering.Apply(ctx, set, func(set *ordering.Set) error {
			set.Insert(seg.ID, at)
			return nil
		}, s.questionnaireRepo.BatchReorderSegments)
		if err != nil {
			return err
		}
		seg.OrderIndex = set.IndexOf(seg.ID)
	}
	return nil
}

func (s *QuestionnaireService) RenameSegment(ctx context.Context, id, name string) error {
	seg, err := s.questionnaireRepo.GetSegment(ctx, id)
	if err != nil {
		return err
	}
	if seg == nil {
		return &NotFoundError{Entity: "questionnaire segment", ID: id}
	}
	return s.questionnaireRepo.RenameSegment(ctx, id, name)
}

// DeleteSegment removes the segment with its questions and options,
// then renumbers the surviving siblings
func (s *QuestionnaireService) DeleteSegment(ctx context.Context, id string) error {
	seg, err := s.questionnaireRepo.GetSegment(ctx, id)
	if err != nil {
		return err
	}
	if seg == nil {
		return &NotFoundError{Entity: "questionnaire segment", ID: id}
	}
	if err := s.deleteSegmentQuestions(ctx, id); err != nil {
		return err
	}
	if err := s.questionnaireRepo.DeleteSegment(ctx, id); err != nil {
		return err
	}
	set, err := s.segmentSet(ctx, seg.QuestionnaireID)
	if err != nil {
		return err
	}
	return s.questionnaireRepo.BatchReorderSegments(ctx, set.Batch())
}

// ReorderSegments atomically replaces a questionnaire's segment order
func (s *QuestionnaireService) ReorderSegments(ctx context.Context, questionnaireID string, ids []string) error {
	set, err := s.segmentSet(ctx, questionnaireID)
	if err != nil {
		return err
	}
	return ordering.Apply(ctx, set, func(set *ordering.Set) error {
		return set.ReorderAll(ids)
	}, s.questionnaireRepo.BatchReorderSegments)
}

// Segments returns the questionnaire's segments with their questions
// and options, everything in sibling order
func (s *QuestionnaireService) Segments(ctx context.Context, questionnaireID string) ([]QSegmentTree, error) {
	segments, err := s.questionnaireRepo.ListSegments(ctx, questionnaireID)
	if err != nil {
		return nil, err
	}
	out := make([]QSegmentTree, 0, len(segments))
	for _, seg := range segments {
		questions, err := s.questionRepo.ListBySegment(ctx, seg.ID)
		if err != nil {
			return nil, err
		}
		details := make([]QuestionDetail, 0, len(questions))
		for _, q := range questions {
			opts, err := s.questionRepo.ListOptions(ctx, q.ID)
			if err != nil {
				return nil, err
			}
			details = append(details, QuestionDetail{Question: q, Options: opts})
		}
		out = append(out, QSegmentTree{Segment: seg, Questions: details})
	}
	return out, nil
}

// CreateQuestion appends the question to its segment (or inserts at the
// 1-based position at when at > 0). A catalog segment tag, if present,
// must name an existing catalog segment; it stays advisory afterwards.
func (s *QuestionnaireService) CreateQuestion(ctx context.Context, q *model.Question, at int) error {
	seg, err := s.questionnaireRepo.GetSegment(ctx, q.SegmentID)
	if err != nil {
		return err
	}
	if seg == nil {
		return &NotFoundError{Entity: "questionnaire segment", ID: q.SegmentID}
	}
	if err := s.checkCatalogTag(ctx, q); err != nil {
		return err
	}
	set, err := s.questionSet(ctx, q.SegmentID)
	if err != nil {
		return err
	}
	q.OrderIndex = set.Len() + 1
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return err
	}
	if at > 0 && at <= set.Len() {
		err = ordering.Apply(ctx, set, func(set *ordering.Set) error {
			set.Insert(q.ID, at)
			return nil
		}, s.questionRepo.BatchReorder)
		if err != nil {
			return err
		}
		q.OrderIndex = set.IndexOf(q.ID)
	}
	return nil
}

func (s *QuestionnaireService) UpdateQuestion(ctx context.Context, q *model.Question) error {
	existing, err := s.questionRepo.GetByID(ctx, q.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return &NotFoundError{Entity: "question", ID: q.ID}
	}
	if err := s.checkCatalogTag(ctx, q); err != nil {
		return err
	}
	// Segment membership and position change only through MoveQuestion
	q.SegmentID = existing.SegmentID
	q.OrderIndex = existing.OrderIndex
	return s.questionRepo.Update(ctx, q)
}

// MoveQuestion repositions a question, optionally into a different
// segment of the same questionnaire
func (s *QuestionnaireService) MoveQuestion(ctx context.Context, id, newSegmentID string, newIndex int) error {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if q == nil {
		return &NotFoundError{Entity: "question", ID: id}
	}

	if newSegmentID == "" || newSegmentID == q.SegmentID {
		set, err := s.questionSet(ctx, q.SegmentID)
		if err != nil {
			return err
		}
		return ordering.Apply(ctx, set, func(set *ordering.Set) error {
			set.Move(id, newIndex)
			return nil
		}, s.questionRepo.BatchReorder)
	}

	from, err := s.questionnaireRepo.GetSegment(ctx, q.SegmentID)
	if err != nil {
		return err
	}
	to, err := s.questionnaireRepo.GetSegment(ctx, newSegmentID)
	if err != nil {
		return err
	}
	if to == nil {
		return &NotFoundError{Entity: "questionnaire segment", ID: newSegmentID}
	}
	if from != nil && from.QuestionnaireID != to.QuestionnaireID {
		return &InvalidMoveError{NodeID: id, ParentID: newSegmentID}
	}

	oldSet, err := s.questionSet(ctx, q.SegmentID)
	if err != nil {
		return err
	}
	err = ordering.Apply(ctx, oldSet, func(set *ordering.Set) error {
		set.Remove(id)
		return nil
	}, s.questionRepo.BatchReorder)
	if err != nil {
		return err
	}
	q.SegmentID = newSegmentID
	if err := s.questionRepo.Update(ctx, q); err != nil {
		return err
	}
	newSet, err := s.questionSet(ctx, newSegmentID)
	if err != nil {
		return err
	}
	return ordering.Apply(ctx, newSet, func(set *ordering.Set) error {
		if newIndex > 0 {
			set.Insert(id, newIndex)
		} else {
			set.Append(id)
		}
		return nil
	}, s.questionRepo.BatchReorder)
}

// DeleteQuestion removes the question and its options and renumbers the
// remaining questions of the segment
func (s *QuestionnaireService) DeleteQuestion(ctx context.Context, id string) error {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if q == nil {
		return &NotFoundError{Entity: "question", ID: id}
	}
	if err := s.questionRepo.Delete(ctx, id); err != nil {
		return err
	}
	set, err := s.questionSet(ctx, q.SegmentID)
	if err != nil {
		return err
	}
	return s.questionRepo.BatchReorder(ctx, set.Batch())
}

// ReorderQuestions atomically replaces a segment's question order
func (s *QuestionnaireService) ReorderQuestions(ctx context.Context, segmentID string, ids []string) error {
	set, err := s.questionSet(ctx, segmentID)
	if err != nil {
		return err
	}
	return ordering.Apply(ctx, set, func(set *ordering.Set) error {
		return set.ReorderAll(ids)
	}, s.questionRepo.BatchReorder)
}

// CreateOption appends the option to its question (or inserts at the
// 1-based position at when at > 0)
func (s *QuestionnaireService) CreateOption(ctx context.Context, opt *model.Option, at int) error {
	q, err := s.questionRepo.GetByID(ctx, opt.QuestionID)
	if err != nil {
		return err
	}
	if q == nil {
		return &NotFoundError{Entity: "question", ID: opt.QuestionID}
	}
	set, err := s.optionSet(ctx, opt.QuestionID)
	if err != nil {
		return err
	}
	opt.OrderIndex = set.Len() + 1
	if err := s.questionRepo.CreateOption(ctx, opt); err != nil {
		return err
	}
	if at > 0 && at <= set.Len() {
		err = ordering.Apply(ctx, set, func(set *ordering.Set) error {
			set.Insert(opt.ID, at)
			return nil
		}, s.questionRepo.BatchReorderOptions)
		if err != nil {
			return err
		}
		opt.OrderIndex = set.IndexOf(opt.ID)
	}
	return nil
}

func (s *QuestionnaireService) UpdateOption(ctx context.Context, opt *model.Option) error {
	existing, err := s.questionRepo.GetOption(ctx, opt.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return &NotFoundError{Entity: "option", ID: opt.ID}
	}
	opt.QuestionID = existing.QuestionID
	opt.OrderIndex = existing.OrderIndex
	return s.questionRepo.UpdateOption(ctx, opt)
}

// DeleteOption removes the option and renumbers its siblings
func (s *QuestionnaireService) DeleteOption(ctx context.Context, id string) error {
	opt, err := s.questionRepo.GetOption(ctx, id)
	if err != nil {
		return err
	}
	if opt == nil {
		return &NotFoundError{Entity: "option", ID: id}
	}
	if err := s.questionRepo.DeleteOption(ctx, id); err != nil {
		return err
	}
	set, err := s.optionSet(ctx, opt.QuestionID)
	if err != nil {
		return err
	}
	return s.questionRepo.BatchReorderOptions(ctx, set.Batch())
}

// ReorderOptions atomically replaces a question's option order
func (s *QuestionnaireService) ReorderOptions(ctx context.Context, questionID string, ids []string) error {
	set, err := s.optionSet(ctx, questionID)
	if err != nil {
		return err
	}
	return ordering.Apply(ctx, set, func(set *ordering.Set) error {
		return set.ReorderAll(ids)
	}, s.questionRepo.BatchReorderOptions)
}

// checkCatalogTag validates the advisory catalog segment reference at
// write time. The tag is never an ownership edge: catalog deletions do
// not cascade here, and a tag going stale later is tolerated.
func (s *QuestionnaireService) checkCatalogTag(ctx context.Context, q *model.Question) error {
	if q.CatalogSegmentID == "" {
		return nil
	}
	node, err := s.catalogRepo.GetByID(ctx, q.CatalogSegmentID)
	if err != nil {
		return err
	}
	if node == nil || node.Kind != model.KindSegment {
		return &NotFoundError{Entity: "catalog segment", ID: q.CatalogSegmentID}
	}
	return nil
}

func (s *QuestionnaireService) deleteSegmentQuestions(ctx context.Context, segmentID string) error {
	questions, err := s.questionRepo.ListBySegment(ctx, segmentID)
	if err != nil {
		return err
	}
	for _, q := range questions {
		if err := s.questionRepo.Delete(ctx, q.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *QuestionnaireService) segmentSet(ctx context.Context, questionnaireID string) (*ordering.Set, error) {
	segments, err := s.questionnaireRepo.ListSegments(ctx, questionnaireID)
	if err != nil {
		return nil, err
	}
	entries := make([]ordering.Entry, len(segments))
	for i, seg := range segments {
		entries[i] = ordering.Entry{ID: seg.ID, OrderIndex: seg.OrderIndex}
	}
	return ordering.FromEntries(entries), nil
}

func (s *QuestionnaireService) questionSet(ctx context.Context, segmentID string) (*ordering.Set, error) {
	questions, err := s.questionRepo.ListBySegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	entries := make([]ordering.Entry, len(questions))
	for i, q := range questions {
		entries[i] = ordering.Entry{ID: q.ID, OrderIndex: q.OrderIndex}
	}
	return ordering.FromEntries(entries), nil
}

func (s *QuestionnaireService) optionSet(ctx context.Context, questionID string) (*ordering.Set, error) {
	opts, err := s.questionRepo.ListOptions(ctx, questionID)
	if err != nil {
		return nil, err
	}
	entries := make([]ordering.Entry, len(opts))
	for i, o := range opts {
		entries[i] = ordering.Entry{ID: o.ID, OrderIndex: o.OrderIndex}
	}
	return ordering.FromEntries(entries), nil
}

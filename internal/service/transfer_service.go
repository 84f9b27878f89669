package service

import (
	"context"
	"sort"
	"strings"

	"elevatecore/internal/model"
	"elevatecore/internal/ordering"
	"elevatecore/internal/repository"

	"go.uber.org/zap"
)

// TransferService round-trips a questionnaire segment's questions and
// options through a serialized snapshot for backup and bulk editing.
// Import reconciles by name instead of id, so replaying the same
// snapshot is idempotent: the second pass matches everything the first
// pass created and changes nothing.
type TransferService struct {
	questionnaireRepo repository.QuestionnaireRepo
	questionRepo      repository.QuestionRepo
	logger            *zap.Logger
}

func NewTransferService(
	questionnaireRepo repository.QuestionnaireRepo,
	questionRepo repository.QuestionRepo,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		questionnaireRepo: questionnaireRepo,
		questionRepo:      questionRepo,
		logger:            logger,
	}
}

// Export captures a segment's questions and options in current sibling
// order. The snapshot carries no ids and can be replayed elsewhere.
func (s *TransferService) Export(ctx context.Context, segmentID string) (*model.SegmentSnapshot, error) {
	seg, err := s.questionnaireRepo.GetSegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	if seg == nil {
		return nil, &NotFoundError{Entity: "questionnaire segment", ID: segmentID}
	}
	questions, err := s.questionRepo.ListBySegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}

	snap := &model.SegmentSnapshot{SegmentName: seg.Name}
	for _, q := range questions {
		opts, err := s.questionRepo.ListOptions(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		sq := model.SnapshotQuestion{
			Text:   q.Text,
			Weight: q.Weight,
			Order:  q.OrderIndex,
		}
		for _, o := range opts {
			sq.Options = append(sq.Options, model.SnapshotOption{
				Label: o.Label,
				Value: o.Value,
				Order: o.OrderIndex,
			})
		}
		snap.Questions = append(snap.Questions, sq)
	}
	return snap, nil
}

// Import reconciles a snapshot against the segment's live state:
// questions are matched by case-insensitive trimmed text (options by
// label), missing entries are created, and the snapshot order is then
// committed through a full reorder. If any create fails the earlier
// creates stand, every reorder step is skipped, and the returned
// ImportIncompleteError names what is still unreconciled; re-running
// the same import converges.
func (s *TransferService) Import(ctx context.Context, segmentID string, snap *model.SegmentSnapshot) error {
	seg, err := s.questionnaireRepo.GetSegment(ctx, segmentID)
	if err != nil {
		return err
	}
	if seg == nil {
		return &NotFoundError{Entity: "questionnaire segment", ID: segmentID}
	}

	existing, err := s.questionRepo.ListBySegment(ctx, segmentID)
	if err != nil {
		return err
	}
	byText := make(map[string]model.Question, len(existing))
	for _, q := range existing {
		byText[normalizeKey(q.Text)] = q
	}

	ordered := make([]model.SnapshotQuestion, len(snap.Questions))
	copy(ordered, snap.Questions)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	incomplete := &ImportIncompleteError{SegmentID: segmentID, Options: map[string][]string{}}
	questionOrder := make([]string, 0, len(ordered))
	for _, sq := range ordered {
		key := normalizeKey(sq.Text)
		if key == "" {
			continue
		}
		q, ok := byText[key]
		if !ok {
			q = model.Question{
				SegmentID: segmentID,
				Text:      strings.TrimSpace(sq.Text),
				Type:      snapshotQuestionType(sq),
				Weight:    sq.Weight,
			}
			if err := s.questionRepo.Create(ctx, &q); err != nil {
				s.logger.Warn("question create failed during import",
					zap.String("segmentId", segmentID),
					zap.String("text", sq.Text),
					zap.Error(err))
				incomplete.Questions = append(incomplete.Questions, sq.Text)
				continue
			}
			byText[key] = q
		}
		questionOrder = append(questionOrder, q.ID)
		s.importOptions(ctx, &q, sq, incomplete)
	}

	if len(incomplete.Questions) > 0 || len(incomplete.Options) > 0 {
		return incomplete
	}

	// All entities reconciled; commit the snapshot's ordering
	questionSet, err := s.questionSet(ctx, segmentID)
	if err != nil {
		return err
	}
	// Questions already present but absent from the snapshot keep their
	// relative order after the imported ones
	for _, id := range questionSet.IDs() {
		if !containsID(questionOrder, id) {
			questionOrder = append(questionOrder, id)
		}
	}
	if err := questionSet.ReorderAll(questionOrder); err != nil {
		return err
	}
	if err := s.questionRepo.BatchReorder(ctx, questionSet.Batch()); err != nil {
		return err
	}

	for _, sq := range ordered {
		q, ok := byText[normalizeKey(sq.Text)]
		if !ok {
			continue
		}
		if err := s.reorderImportedOptions(ctx, &q, sq); err != nil {
			return err
		}
	}
	return nil
}

// ImportLegacyOptions reconciles a question's options from a legacy
// "label:value" payload, with the same match-or-create and ordering
// semantics as a snapshot import
func (s *TransferService) ImportLegacyOptions(ctx context.Context, questionID, payload string) error {
	q, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return err
	}
	if q == nil {
		return &NotFoundError{Entity: "question", ID: questionID}
	}
	decoded, err := model.DecodeLegacyOptions(payload)
	if err != nil {
		return err
	}
	if len(decoded) == 0 {
		return nil
	}

	sq := model.SnapshotQuestion{Text: q.Text}
	for _, o := range decoded {
		sq.Options = append(sq.Options, model.SnapshotOption{
			Label: o.Label,
			Value: o.Value,
			Order: o.OrderIndex,
		})
	}
	incomplete := &ImportIncompleteError{SegmentID: q.SegmentID, Options: map[string][]string{}}
	s.importOptions(ctx, q, sq, incomplete)
	if len(incomplete.Options) > 0 {
		return incomplete
	}
	return s.reorderImportedOptions(ctx, q, sq)
}

// importOptions reconciles one question's options, recording failures
// on incomplete instead of aborting
func (s *TransferService) importOptions(ctx context.Context, q *model.Question, sq model.SnapshotQuestion, incomplete *ImportIncompleteError) {
	if len(sq.Options) == 0 {
		return
	}
	existing, err := s.questionRepo.ListOptions(ctx, q.ID)
	if err != nil {
		s.logger.Warn("option listing failed during import",
			zap.String("questionId", q.ID), zap.Error(err))
		for _, so := range sq.Options {
			incomplete.Options[sq.Text] = append(incomplete.Options[sq.Text], so.Label)
		}
		return
	}
	byLabel := make(map[string]model.Option, len(existing))
	for _, o := range existing {
		byLabel[normalizeKey(o.Label)] = o
	}
	for _, so := range sq.Options {
		key := normalizeKey(so.Label)
		if key == "" {
			continue
		}
		if _, ok := byLabel[key]; ok {
			continue
		}
		opt := model.Option{
			QuestionID: q.ID,
			Label:      strings.TrimSpace(so.Label),
			Value:      so.Value,
		}
		if err := s.questionRepo.CreateOption(ctx, &opt); err != nil {
			s.logger.Warn("option create failed during import",
				zap.String("questionId", q.ID),
				zap.String("label", so.Label),
				zap.Error(err))
			incomplete.Options[sq.Text] = append(incomplete.Options[sq.Text], so.Label)
			continue
		}
		byLabel[key] = opt
	}
}

// reorderImportedOptions commits one question's option order from the
// snapshot; options not named by the snapshot keep their relative order
// after the imported ones
func (s *TransferService) reorderImportedOptions(ctx context.Context, q *model.Question, sq model.SnapshotQuestion) error {
	if len(sq.Options) == 0 {
		return nil
	}
	existing, err := s.questionRepo.ListOptions(ctx, q.ID)
	if err != nil {
		return err
	}
	byLabel := make(map[string]model.Option, len(existing))
	for _, o := range existing {
		byLabel[normalizeKey(o.Label)] = o
	}

	ordered := make([]model.SnapshotOption, len(sq.Options))
	copy(ordered, sq.Options)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	optionOrder := make([]string, 0, len(existing))
	for _, so := range ordered {
		if o, ok := byLabel[normalizeKey(so.Label)]; ok && !containsID(optionOrder, o.ID) {
			optionOrder = append(optionOrder, o.ID)
		}
	}
	for _, o := range existing {
		if !containsID(optionOrder, o.ID) {
			optionOrder = append(optionOrder, o.ID)
		}
	}

	entries := make([]ordering.Entry, len(existing))
	for i, o := range existing {
		entries[i] = ordering.Entry{ID: o.ID, OrderIndex: o.OrderIndex}
	}
	set := ordering.FromEntries(entries)
	if err := set.ReorderAll(optionOrder); err != nil {
		return err
	}
	return s.questionRepo.BatchReorderOptions(ctx, set.Batch())
}

func (s *TransferService) questionSet(ctx context.Context, segmentID string) (*ordering.Set, error) {
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

// snapshotQuestionType infers a type for questions created from a
// snapshot, which does not carry one: options imply a choice question,
// none implies free text
func snapshotQuestionType(sq model.SnapshotQuestion) model.QuestionType {
	if len(sq.Options) > 0 {
		return model.QuestionMCQ
	}
	return model.QuestionText
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"testing"

	"elevatecore/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type transferFixture struct {
	svc    *TransferService
	qnRepo *memQuestionnaireRepo
	qRepo  *memQuestionRepo
}

func newTransferFixture() *transferFixture {
	qnRepo := newMemQuestionnaireRepo()
	qRepo := newMemQuestionRepo()
	return &transferFixture{
		svc:    NewTransferService(qnRepo, qRepo, zap.NewNop()),
		qnRepo: qnRepo,
		qRepo:  qRepo,
	}
}

func (f *transferFixture) addSegment(t *testing.T, name string) *model.QSegment {
	t.Helper()
	ctx := context.Background()
	q := &model.Questionnaire{Name: "Intake", Version: "1.0"}
	require.NoError(t, f.qnRepo.Create(ctx, q))
	seg := &model.QSegment{QuestionnaireID: q.ID, Name: name, OrderIndex: 1}
	require.NoError(t, f.qnRepo.CreateSegment(ctx, seg))
	return seg
}

func (f *transferFixture) addQuestion(t *testing.T, segID, text string, order int, labels ...string) *model.Question {
	t.Helper()
	ctx := context.Background()
	q := &model.Question{SegmentID: segID, Text: text, Type: model.QuestionMCQ, OrderIndex: order}
	if len(labels) == 0 {
		q.Type = model.QuestionText
	}
	require.NoError(t, f.qRepo.Create(ctx, q))
	for i, label := range labels {
		opt := &model.Option{QuestionID: q.ID, Label: label, Value: "0", OrderIndex: i + 1}
		require.NoError(t, f.qRepo.CreateOption(ctx, opt))
	}
	return q
}

func sampleSnapshot() *model.SegmentSnapshot {
	return &model.SegmentSnapshot{
		SegmentName: "Profile",
		Questions: []model.SnapshotQuestion{
			{Text: "How established are your revenue streams?", Order: 2, Options: []model.SnapshotOption{
				{Label: "Not yet", Value: "0", Order: 1},
				{Label: "Recurring", Value: "10", Order: 2},
			}},
			{Text: "Describe your offering", Order: 3},
			{Text: "How large is your team?", Order: 1, Options: []model.SnapshotOption{
				{Label: "Solo", Value: "0", Order: 1},
				{Label: "2-10", Value: "5", Order: 2},
				{Label: "11+", Value: "10", Order: 3},
			}},
		},
	}
}

func TestImportIntoEmptySegment(t *testing.T) {
	f := newTransferFixture()
	seg := f.addSegment(t, "Profile")
	ctx := context.Background()

	require.NoError(t, f.svc.Import(ctx, seg.ID, sampleSnapshot()))

	questions, err := f.qRepo.ListBySegment(ctx, seg.ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)

	// snapshot order wins regardless of slice order in the snapshot
	assert.Equal(t, "How large is your team?", questions[0].Text)
	assert.Equal(t, "How established are your revenue streams?", questions[1].Text)
	assert.Equal(t, "Describe your offering", questions[2].Text)
	for i, q := range questions {
		assert.Equal(t, i+1, q.OrderIndex)
	}

	// question types are inferred from option presence
	assert.Equal(t, model.QuestionMCQ, questions[0].Type)
	assert.Equal(t, model.QuestionText, questions[2].Type)

	opts, err := f.qRepo.ListOptions(ctx, questions[0].ID)
	require.NoError(t, err)
	require.Len(t, opts, 3)
	assert.Equal(t, "Solo", opts[0].Label)
	assert.Equal(t, "11+", opts[2].Label)
}

func TestImportIsIdempotent(t *testing.T) {
	f := newTransferFixture()
	seg := f.addSegment(t, "Profile")
	ctx := context.Background()

	require.NoError(t, f.svc.Import(ctx, seg.ID, sampleSnapshot()))
	first, err := f.svc.Export(ctx, seg.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Import(ctx, seg.ID, sampleSnapshot()))
	second, err := f.svc.Export(ctx, seg.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	questions, err := f.qRepo.ListBySegment(ctx, seg.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 3, "replay must not duplicate questions")
}

func TestImportMatchesByNormalizedText(t *testing.T) {
	f := newTransferFixture()
	seg := f.addSegment(t, "Profile")
	ctx := context.Background()

	existing := f.addQuestion(t, seg.ID, "How large is your team?", 1, "Solo")

	snap := &model.SegmentSnapshot{Questions: []model.SnapshotQuestion{
		{Text: "  HOW LARGE IS YOUR TEAM?  ", Order: 1, Options: []model.SnapshotOption{
			{Label: "solo", Value: "0", Order: 2},
			{Label: "2-10", Value: "5", Order: 1},
		}},
	}}
	require.NoError(t, f.svc.Import(ctx, seg.ID, snap))

	questions, err := f.qRepo.ListBySegment(ctx, seg.ID)
	require.NoError(t, err)
	require.Len(t, questions, 1, "case and whitespace differences must not fork the question")
	assert.Equal(t, existing.ID, questions[0].ID)

	opts, err := f.qRepo.ListOptions(ctx, existing.ID)
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, "2-10", opts[0].Label)
	assert.Equal(t, "Solo", opts[1].Label)
}

func TestImportReordersExistingContent(t *testing.T) {
	f := newTransferFixture()
	seg := f.addSegment(t, "Profile")
	ctx := context.Background()

	a := f.addQuestion(t, seg.ID, "Alpha", 1)
	b := f.addQuestion(t, seg.ID, "Beta", 2)
	unlisted := f.addQuestion(t, seg.ID, "Gamma", 3)

	snap := &model.SegmentSnapshot{Questions: []model.SnapshotQuestion{
		{Text: "Beta", Order: 1},
		{Text: "Alpha", Order: 2},
	}}
	require.NoError(t, f.svc.Import(ctx, seg.ID, snap))

	questions, err := f.qRepo.ListBySegment(ctx, seg.ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	// questions the snapshot does not name keep their relative order
	// after the imported ones
	assert.Equal(t, []string{b.ID, a.ID, unlisted.ID},
		[]string{questions[0].ID, questions[1].ID, questions[2].ID})
}

func TestImportPartialFailureThenRetry(t *testing.T) {
	f := newTransferFixture()
	seg := f.addSegment(t, "Profile")
	ctx := context.Background()
	snap := sampleSnapshot()

	f.qRepo.failCreateText["Describe your offering"] = true
	err := f.svc.Import(ctx, seg.ID, snap)
	var incomplete *ImportIncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, seg.ID, incomplete.SegmentID)
	assert.Equal(t, []string{"Describe your offering"}, incomplete.Questions)

	// successfully created questions stand, but no reorder ran: the
	// snapshot order is not yet committed
	questions, err := f.qRepo.ListBySegment(ctx, seg.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	// the retry creates only what is missing and converges
	f.qRepo.failCreateText = map[string]bool{}
	require.NoError(t, f.svc.Import(ctx, seg.ID, snap))

	questions, err = f.qRepo.ListBySegment(ctx, seg.ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	assert.Equal(t, "How large is your team?", questions[0].Text)
	assert.Equal(t, "Describe your offering", questions[2].Text)
}

func TestImportLegacyOptions(t *testing.T) {
	f := newTransferFixture()
	seg := f.addSegment(t, "Profile")
	ctx := context.Background()
	q := f.addQuestion(t, seg.ID, "How ready is your team?", 1, "Fully")

	payload := `["Not at all:0", "Somewhat:5", "Fully:10"]`
	require.NoError(t, f.svc.ImportLegacyOptions(ctx, q.ID, payload))

	opts, err := f.qRepo.ListOptions(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, opts, 3, "the pre-existing Fully option is matched, not duplicated")
	assert.Equal(t, "Not at all", opts[0].Label)
	assert.Equal(t, "5", opts[1].Value)
	assert.Equal(t, "Fully", opts[2].Label)

	// replay converges
	require.NoError(t, f.svc.ImportLegacyOptions(ctx, q.ID, payload))
	again, err := f.qRepo.ListOptions(ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, again, 3)

	var notFound *NotFoundError
	assert.ErrorAs(t, f.svc.ImportLegacyOptions(ctx, "ghost", payload), &notFound)
	assert.Error(t, f.svc.ImportLegacyOptions(ctx, q.ID, "{bad payload}"))
}

func TestExportUnknownSegment(t *testing.T) {
	f := newTransferFixture()
	var notFound *NotFoundError

	_, err := f.svc.Export(context.Background(), "ghost")
	assert.ErrorAs(t, err, &notFound)

	err = f.svc.Import(context.Background(), "ghost", &model.SegmentSnapshot{})
	assert.ErrorAs(t, err, &notFound)
}

func TestExportCarriesOrderAndWeights(t *testing.T) {
	f := newTransferFixture()
	seg := f.addSegment(t, "Profile")
	ctx := context.Background()

	q := f.addQuestion(t, seg.ID, "Weighted", 1, "Low", "High")
	q.Weight = w(2.5)
	require.NoError(t, f.qRepo.Update(ctx, q))

	snap, err := f.svc.Export(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Profile", snap.SegmentName)
	require.Len(t, snap.Questions, 1)
	require.NotNil(t, snap.Questions[0].Weight)
	assert.Equal(t, 2.5, *snap.Questions[0].Weight)
	require.Len(t, snap.Questions[0].Options, 2)
	assert.Equal(t, 1, snap.Questions[0].Options[0].Order)
	assert.Equal(t, "Low", snap.Questions[0].Options[0].Label)
}

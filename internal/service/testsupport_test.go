package service

import (
	"context"
	"fmt"
	"sort"

	"elevatecore/internal/model"
	"elevatecore/internal/ordering"
)

// In-memory stand-ins for the persistence collaborator. They honor the
// same contracts as the Mongo repositories: sorted child listings,
// all-or-nothing batch reorders, nil results for missing ids.

type memCatalogRepo struct {
	nodes    map[string]*model.CatalogNode
	seq      int
	batchErr error
}

func newMemCatalogRepo() *memCatalogRepo {
	return &memCatalogRepo{nodes: map[string]*model.CatalogNode{}}
}

func (r *memCatalogRepo) Create(_ context.Context, node *model.CatalogNode) error {
	if node.ID == "" {
		r.seq++
		node.ID = fmt.Sprintf("node-%d", r.seq)
	}
	cp := *node
	r.nodes[node.ID] = &cp
	return nil
}

func (r *memCatalogRepo) GetByID(_ context.Context, id string) (*model.CatalogNode, error) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (r *memCatalogRepo) Update(_ context.Context, id string, upd model.NodeUpdate) error {
	n, ok := r.nodes[id]
	if !ok {
		return nil
	}
	if upd.Name != nil {
		n.Name = *upd.Name
	}
	if upd.Description != nil {
		n.Description = *upd.Description
	}
	if upd.IsActive != nil {
		n.IsActive = *upd.IsActive
	}
	if upd.StageType != nil {
		n.StageType = *upd.StageType
	}
	if upd.ContentURL != nil {
		n.ContentURL = *upd.ContentURL
	}
	if upd.DurationMinutes != nil {
		n.DurationMinutes = *upd.DurationMinutes
	}
	return nil
}

func (r *memCatalogRepo) SetParent(_ context.Context, id, parentID string) error {
	if n, ok := r.nodes[id]; ok {
		n.ParentID = parentID
	}
	return nil
}

func (r *memCatalogRepo) Delete(_ context.Context, id string) error {
	doomed := []string{id}
	for i := 0; i < len(doomed); i++ {
		for _, n := range r.nodes {
			if n.ParentID == doomed[i] {
				doomed = append(doomed, n.ID)
			}
		}
	}
	for _, d := range doomed {
		delete(r.nodes, d)
	}
	return nil
}

func (r *memCatalogRepo) ListChildren(_ context.Context, parentID string, kind model.NodeKind) ([]model.CatalogNode, error) {
	var out []model.CatalogNode
	for _, n := range r.nodes {
		if n.Kind == kind && n.ParentID == parentID {
			out = append(out, *n)
		}
	}
	sortNodes(out)
	return out, nil
}

func (r *memCatalogRepo) ListByKind(_ context.Context, kind model.NodeKind) ([]model.CatalogNode, error) {
	var out []model.CatalogNode
	for _, n := range r.nodes {
		if n.Kind == kind {
			out = append(out, *n)
		}
	}
	sortNodes(out)
	return out, nil
}

func (r *memCatalogRepo) BatchReorder(_ context.Context, items []ordering.ReorderItem) error {
	if r.batchErr != nil {
		return r.batchErr
	}
	for _, it := range items {
		if n, ok := r.nodes[it.ID]; ok {
			n.OrderIndex = it.OrderIndex
		}
	}
	return nil
}

func sortNodes(nodes []model.CatalogNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].OrderIndex != nodes[j].OrderIndex {
			return nodes[i].OrderIndex < nodes[j].OrderIndex
		}
		return nodes[i].ID < nodes[j].ID
	})
}

type memQuestionnaireRepo struct {
	questionnaires map[string]*model.Questionnaire
	segments       map[string]*model.QSegment
	seq            int
	batchErr       error
}

func newMemQuestionnaireRepo() *memQuestionnaireRepo {
	return &memQuestionnaireRepo{
		questionnaires: map[string]*model.Questionnaire{},
		segments:       map[string]*model.QSegment{},
	}
}

func (r *memQuestionnaireRepo) Create(_ context.Context, q *model.Questionnaire) error {
	if q.ID == "" {
		r.seq++
		q.ID = fmt.Sprintf("qn-%d", r.seq)
	}
	cp := *q
	r.questionnaires[q.ID] = &cp
	return nil
}

func (r *memQuestionnaireRepo) GetByID(_ context.Context, id string) (*model.Questionnaire, error) {
	q, ok := r.questionnaires[id]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (r *memQuestionnaireRepo) Update(_ context.Context, q *model.Questionnaire) error {
	cp := *q
	r.questionnaires[q.ID] = &cp
	return nil
}

func (r *memQuestionnaireRepo) Delete(_ context.Context, id string) error {
	delete(r.questionnaires, id)
	for sid, seg := range r.segments {
		if seg.QuestionnaireID == id {
			delete(r.segments, sid)
		}
	}
	return nil
}

func (r *memQuestionnaireRepo) GetAll(_ context.Context) ([]model.Questionnaire, error) {
	var out []model.Questionnaire
	for _, q := range r.questionnaires {
		out = append(out, *q)
	}
	return out, nil
}

func (r *memQuestionnaireRepo) CreateSegment(_ context.Context, seg *model.QSegment) error {
	if seg.ID == "" {
		r.seq++
		seg.ID = fmt.Sprintf("qseg-%d", r.seq)
	}
	cp := *seg
	r.segments[seg.ID] = &cp
	return nil
}

func (r *memQuestionnaireRepo) GetSegment(_ context.Context, id string) (*model.QSegment, error) {
	seg, ok := r.segments[id]
	if !ok {
		return nil, nil
	}
	cp := *seg
	return &cp, nil
}

func (r *memQuestionnaireRepo) RenameSegment(_ context.Context, id, name string) error {
	if seg, ok := r.segments[id]; ok {
		seg.Name = name
	}
	return nil
}

func (r *memQuestionnaireRepo) DeleteSegment(_ context.Context, id string) error {
	delete(r.segments, id)
	return nil
}

func (r *memQuestionnaireRepo) ListSegments(_ context.Context, questionnaireID string) ([]model.QSegment, error) {
	var out []model.QSegment
	for _, seg := range r.segments {
		if seg.QuestionnaireID == questionnaireID {
			out = append(out, *seg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memQuestionnaireRepo) BatchReorderSegments(_ context.Context, items []ordering.ReorderItem) error {
	if r.batchErr != nil {
		return r.batchErr
	}
	for _, it := range items {
		if seg, ok := r.segments[it.ID]; ok {
			seg.OrderIndex = it.OrderIndex
		}
	}
	return nil
}

type memQuestionRepo struct {
	questions map[string]*model.Question
	options   map[string]*model.Option
	seq       int
	batchErr  error

	// failCreateText fails question creation for specific texts, used
	// to exercise partial import behavior
	failCreateText map[string]bool
}

func newMemQuestionRepo() *memQuestionRepo {
	return &memQuestionRepo{
		questions:      map[string]*model.Question{},
		options:        map[string]*model.Option{},
		failCreateText: map[string]bool{},
	}
}

func (r *memQuestionRepo) Create(_ context.Context, q *model.Question) error {
	if r.failCreateText[q.Text] {
		return fmt.Errorf("simulated create failure for %q", q.Text)
	}
	if q.ID == "" {
		r.seq++
		q.ID = fmt.Sprintf("q-%d", r.seq)
	}
	cp := *q
	r.questions[q.ID] = &cp
	return nil
}

func (r *memQuestionRepo) GetByID(_ context.Context, id string) (*model.Question, error) {
	q, ok := r.questions[id]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (r *memQuestionRepo) Update(_ context.Context, q *model.Question) error {
	cp := *q
	r.questions[q.ID] = &cp
	return nil
}

func (r *memQuestionRepo) Delete(_ context.Context, id string) error {
	delete(r.questions, id)
	for oid, o := range r.options {
		if o.QuestionID == id {
			delete(r.options, oid)
		}
	}
	return nil
}

func (r *memQuestionRepo) ListBySegment(_ context.Context, segmentID string) ([]model.Question, error) {
	var out []model.Question
	for _, q := range r.questions {
		if q.SegmentID == segmentID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memQuestionRepo) BatchReorder(_ context.Context, items []ordering.ReorderItem) error {
	if r.batchErr != nil {
		return r.batchErr
	}
	for _, it := range items {
		if q, ok := r.questions[it.ID]; ok {
			q.OrderIndex = it.OrderIndex
		}
	}
	return nil
}

func (r *memQuestionRepo) CreateOption(_ context.Context, opt *model.Option) error {
	if opt.ID == "" {
		r.seq++
		opt.ID = fmt.Sprintf("opt-%d", r.seq)
	}
	cp := *opt
	r.options[opt.ID] = &cp
	return nil
}

func (r *memQuestionRepo) GetOption(_ context.Context, id string) (*model.Option, error) {
	o, ok := r.options[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *memQuestionRepo) UpdateOption(_ context.Context, opt *model.Option) error {
	cp := *opt
	r.options[opt.ID] = &cp
	return nil
}

func (r *memQuestionRepo) DeleteOption(_ context.Context, id string) error {
	delete(r.options, id)
	return nil
}

func (r *memQuestionRepo) ListOptions(_ context.Context, questionID string) ([]model.Option, error) {
	var out []model.Option
	for _, o := range r.options {
		if o.QuestionID == questionID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memQuestionRepo) BatchReorderOptions(_ context.Context, items []ordering.ReorderItem) error {
	if r.batchErr != nil {
		return r.batchErr
	}
	for _, it := range items {
		if o, ok := r.options[it.ID]; ok {
			o.OrderIndex = it.OrderIndex
		}
	}
	return nil
}

type memRuleRepo struct {
	rules map[string]*model.StageRule
	seq   int
}

func newMemRuleRepo() *memRuleRepo {
	return &memRuleRepo{rules: map[string]*model.StageRule{}}
}

func (r *memRuleRepo) Create(_ context.Context, rule *model.StageRule) error {
	if rule.ID == "" {
		r.seq++
		rule.ID = fmt.Sprintf("rule-%d", r.seq)
	}
	cp := *rule
	r.rules[rule.ID] = &cp
	return nil
}

func (r *memRuleRepo) GetByID(_ context.Context, id string) (*model.StageRule, error) {
	rule, ok := r.rules[id]
	if !ok {
		return nil, nil
	}
	cp := *rule
	return &cp, nil
}

func (r *memRuleRepo) Update(_ context.Context, rule *model.StageRule) error {
	cp := *rule
	r.rules[rule.ID] = &cp
	return nil
}

func (r *memRuleRepo) Delete(_ context.Context, id string) error {
	delete(r.rules, id)
	return nil
}

func (r *memRuleRepo) List(_ context.Context, questionnaireID string) ([]model.StageRule, error) {
	var out []model.StageRule
	for _, rule := range r.rules {
		if rule.IsGlobal() || (questionnaireID != "" && rule.QuestionnaireID == questionnaireID) {
			out = append(out, *rule)
		}
	}
	sortRules(out)
	return out, nil
}

func (r *memRuleRepo) GetAll(_ context.Context) ([]model.StageRule, error) {
	var out []model.StageRule
	for _, rule := range r.rules {
		out = append(out, *rule)
	}
	sortRules(out)
	return out, nil
}

func (r *memRuleRepo) ListByTargetStage(_ context.Context, stageID string) ([]model.StageRule, error) {
	var out []model.StageRule
	for _, rule := range r.rules {
		if rule.TargetStageID == stageID {
			out = append(out, *rule)
		}
	}
	sortRules(out)
	return out, nil
}

func (r *memRuleRepo) DeleteByQuestionnaire(_ context.Context, questionnaireID string) error {
	for id, rule := range r.rules {
		if rule.QuestionnaireID == questionnaireID {
			delete(r.rules, id)
		}
	}
	return nil
}

func sortRules(rules []model.StageRule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}

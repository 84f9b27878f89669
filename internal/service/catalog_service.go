package service

import (
	"context"

	"elevatecore/internal/cache"
	"elevatecore/internal/model"
	"elevatecore/internal/ordering"
	"elevatecore/internal/repository"

	"go.uber.org/zap"
)

// CatalogService owns the Module/Segment/Stage tree: node CRUD, sibling
// ordering, re-parenting, cascade deletion, and flattened views
type CatalogService struct {
	catalogRepo repository.CatalogRepo
	ruleRepo    repository.StageRuleRepo
	treeCache   cache.TreeCache
	logger      *zap.Logger
}

func NewCatalogService(
	catalogRepo repository.CatalogRepo,
	ruleRepo repository.StageRuleRepo,
	treeCache cache.TreeCache,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		catalogRepo: catalogRepo,
		ruleRepo:    ruleRepo,
		treeCache:   treeCache,
		logger:      logger,
	}
}

// PathRow is one node of a flattened level with its ancestor chain,
// outermost ancestor first
type PathRow struct {
	Node      model.CatalogNode
	Ancestors []model.CatalogNode
}

// PathIterator walks a flattened level. It is finite and restartable:
// Reset rewinds to the first row without refetching.
type PathIterator struct {
	rows []PathRow
	pos  int
}

func (it *PathIterator) Next() (PathRow, bool) {
	if it.pos >= len(it.rows) {
		return PathRow{}, false
	}
	row := it.rows[it.pos]
	it.pos++
	return row, true
}

func (it *PathIterator) Reset() { it.pos = 0 }

func (it *PathIterator) Len() int { return len(it.rows) }

// CreateNode validates the parent/kind relationship, persists the node,
// and appends it to its sibling set (or inserts at the 1-based position
// at when at > 0). The committed sibling ordering stays a gapless 1..N.
func (s *CatalogService) CreateNode(ctx context.Context, node *model.CatalogNode, at int) error {
	if node.Kind == model.KindModule {
		if node.ParentID != "" {
			return &InvalidMoveError{NodeID: node.ID, NodeKind: node.Kind, ParentID: node.ParentID}
		}
	} else {
		parent, err := s.catalogRepo.GetByID(ctx, node.ParentID)
		if err != nil {
			return err
		}
		if parent == nil {
			return &NotFoundError{Entity: "catalog node", ID: node.ParentID}
		}
		if parent.Kind.ChildKind() != node.Kind {
			return &InvalidMoveError{NodeID: node.ID, NodeKind: node.Kind, ParentID: parent.ID, ParentKind: parent.Kind}
		}
	}

	set, err := s.siblingSet(ctx, node.ParentID, node.Kind)
	if err != nil {
		return err
	}
	node.OrderIndex = set.Len() + 1
	if err := s.catalogRepo.Create(ctx, node); err != nil {
		return err
	}
	if at > 0 && at <= set.Len() {
		err = ordering.Apply(ctx, set, func(set *ordering.Set) error {
			set.Insert(node.ID, at)
			return nil
		}, s.catalogRepo.BatchReorder)
		if err != nil {
			return err
		}
		node.OrderIndex = set.IndexOf(node.ID)
	}
	return s.invalidateTree(ctx)
}

// UpdateNode applies a partial update; nil fields are left unchanged
func (s *CatalogService) UpdateNode(ctx context.Context, id string, upd model.NodeUpdate) error {
	node, err := s.catalogRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if node == nil {
		return &NotFoundError{Entity: "catalog node", ID: id}
	}
	if err := s.catalogRepo.Update(ctx, id, upd); err != nil {
		return err
	}
	return s.invalidateTree(ctx)
}

// MoveNode re-parents and/or repositions a node. Re-parenting is only
// legal between parents of the node's own level: a segment may move to
// another module, a stage to another segment. newParentID equal to the
// current parent (or empty) repositions within the current siblings.
func (s *CatalogService) MoveNode(ctx context.Context, id, newParentID string, newIndex int) error {
	node, err := s.catalogRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if node == nil {
		return &NotFoundError{Entity: "catalog node", ID: id}
	}

	if newParentID == "" || newParentID == node.ParentID {
		set, err := s.siblingSet(ctx, node.ParentID, node.Kind)
		if err != nil {
			return err
		}
		err = ordering.Apply(ctx, set, func(set *ordering.Set) error {
			set.Move(id, newIndex)
			return nil
		}, s.catalogRepo.BatchReorder)
		if err != nil {
			return err
		}
		return s.invalidateTree(ctx)
	}

	if node.Kind == model.KindModule {
		return &InvalidMoveError{NodeID: id, NodeKind: node.Kind, ParentID: newParentID}
	}
	newParent, err := s.catalogRepo.GetByID(ctx, newParentID)
	if err != nil {
		return err
	}
	if newParent == nil {
		return &NotFoundError{Entity: "catalog node", ID: newParentID}
	}
	if newParent.Kind.ChildKind() != node.Kind {
		return &InvalidMoveError{NodeID: id, NodeKind: node.Kind, ParentID: newParentID, ParentKind: newParent.Kind}
	}

	// Leave the old sibling set, re-parent, then join the new one. Each
	// ordering commit is atomic on its own; the old set rolls back if
	// its write fails, leaving the node untouched.
	oldSet, err := s.siblingSet(ctx, node.ParentID, node.Kind)
	if err != nil {
		return err
	}
	err = ordering.Apply(ctx, oldSet, func(set *ordering.Set) error {
		set.Remove(id)
		return nil
	}, s.catalogRepo.BatchReorder)
	if err != nil {
		return err
	}
	if err := s.catalogRepo.SetParent(ctx, id, newParentID); err != nil {
		return err
	}
	newSet, err := s.siblingSet(ctx, newParentID, node.Kind)
	if err != nil {
		return err
	}
	err = ordering.Apply(ctx, newSet, func(set *ordering.Set) error {
		if newIndex > 0 {
			set.Insert(id, newIndex)
		} else {
			set.Append(id)
		}
		return nil
	}, s.catalogRepo.BatchReorder)
	if err != nil {
		return err
	}
	return s.invalidateTree(ctx)
}

// CascadeDelete removes a node and all of its descendants, then
// renumbers the remaining siblings. Deletion is blocked when any stage
// in the subtree is still targeted by a stage rule.
func (s *CatalogService) CascadeDelete(ctx context.Context, id string) error {
	node, err := s.catalogRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if node == nil {
		return &NotFoundError{Entity: "catalog node", ID: id}
	}

	stageIDs, err := s.subtreeStageIDs(ctx, node)
	if err != nil {
		return err
	}
	for _, stageID := range stageIDs {
		rules, err := s.ruleRepo.ListByTargetStage(ctx, stageID)
		if err != nil {
			return err
		}
		if len(rules) > 0 {
			ids := make([]string, len(rules))
			for i, r := range rules {
				ids[i] = r.ID
			}
			return &StageInUseError{StageID: stageID, RuleIDs: ids}
		}
	}

	if err := s.catalogRepo.Delete(ctx, id); err != nil {
		return err
	}
	set, err := s.siblingSet(ctx, node.ParentID, node.Kind)
	if err != nil {
		return err
	}
	// The deleted node is already absent from the freshly loaded set;
	// committing the batch closes the gap its removal left behind.
	if err := s.catalogRepo.BatchReorder(ctx, set.Batch()); err != nil {
		return err
	}
	return s.invalidateTree(ctx)
}

// Reorder atomically replaces the ordering of one parent's children.
// Every current child id must appear exactly once or the operation
// fails with *ordering.InvalidReorderError and nothing changes.
func (s *CatalogService) Reorder(ctx context.Context, parentID string, kind model.NodeKind, ids []string) error {
	set, err := s.siblingSet(ctx, parentID, kind)
	if err != nil {
		return err
	}
	err = ordering.Apply(ctx, set, func(set *ordering.Set) error {
		return set.ReorderAll(ids)
	}, s.catalogRepo.BatchReorder)
	if err != nil {
		return err
	}
	return s.invalidateTree(ctx)
}

// GetNode returns one node or a NotFoundError
func (s *CatalogService) GetNode(ctx context.Context, id string) (*model.CatalogNode, error) {
	node, err := s.catalogRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, &NotFoundError{Entity: "catalog node", ID: id}
	}
	return node, nil
}

// NodesByKind lists every node of one level across all parents, used by
// pickers such as the catalog segment tag selector
func (s *CatalogService) NodesByKind(ctx context.Context, kind model.NodeKind) ([]model.CatalogNode, error) {
	return s.catalogRepo.ListByKind(ctx, kind)
}

// ModuleTree assembles the full denormalized tree, children in sibling
// order. Children are fetched per parent, so the view can never contain
// a dangling parent reference.
func (s *CatalogService) ModuleTree(ctx context.Context) ([]model.ModuleTree, error) {
	modules, err := s.catalogRepo.ListChildren(ctx, "", model.KindModule)
	if err != nil {
		return nil, err
	}
	out := make([]model.ModuleTree, 0, len(modules))
	for _, m := range modules {
		segments, err := s.catalogRepo.ListChildren(ctx, m.ID, model.KindSegment)
		if err != nil {
			return nil, err
		}
		segTrees := make([]model.SegmentTree, 0, len(segments))
		for _, seg := range segments {
			stages, err := s.catalogRepo.ListChildren(ctx, seg.ID, model.KindStage)
			if err != nil {
				return nil, err
			}
			segTrees = append(segTrees, model.SegmentTree{Segment: seg, Stages: stages})
		}
		out = append(out, model.ModuleTree{Module: m, Segments: segTrees})
	}
	return out, nil
}

// Flatten produces a restartable iterator over every node of the given
// level paired with its ancestor path, in depth-first sibling order
func (s *CatalogService) Flatten(ctx context.Context, kind model.NodeKind) (*PathIterator, error) {
	tree, err := s.ModuleTree(ctx)
	if err != nil {
		return nil, err
	}
	var rows []PathRow
	for _, mt := range tree {
		switch kind {
		case model.KindModule:
			rows = append(rows, PathRow{Node: mt.Module})
		case model.KindSegment:
			for _, st := range mt.Segments {
				rows = append(rows, PathRow{Node: st.Segment, Ancestors: []model.CatalogNode{mt.Module}})
			}
		case model.KindStage:
			for _, st := range mt.Segments {
				for _, stage := range st.Stages {
					rows = append(rows, PathRow{
						Node:      stage,
						Ancestors: []model.CatalogNode{mt.Module, st.Segment},
					})
				}
			}
		}
	}
	return &PathIterator{rows: rows}, nil
}

// FlatStages returns every stage with module/segment names for pickers
// and rule target lookups, served from the tree cache when warm
func (s *CatalogService) FlatStages(ctx context.Context) ([]model.FlatStage, error) {
	if s.treeCache != nil {
		cached, err := s.treeCache.GetFlatStages(ctx)
		if err != nil {
			s.logger.Warn("flat stage cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	it, err := s.Flatten(ctx, model.KindStage)
	if err != nil {
		return nil, err
	}
	stages := make([]model.FlatStage, 0, it.Len())
	for row, ok := it.Next(); ok; row, ok = it.Next() {
		stages = append(stages, model.FlatStage{
			Stage:       row.Node,
			ModuleID:    row.Ancestors[0].ID,
			ModuleName:  row.Ancestors[0].Name,
			SegmentID:   row.Ancestors[1].ID,
			SegmentName: row.Ancestors[1].Name,
		})
	}
	if s.treeCache != nil {
		if err := s.treeCache.SetFlatStages(ctx, stages); err != nil {
			s.logger.Warn("flat stage cache write failed", zap.Error(err))
		}
	}
	return stages, nil
}

func (s *CatalogService) siblingSet(ctx context.Context, parentID string, kind model.NodeKind) (*ordering.Set, error) {
	siblings, err := s.catalogRepo.ListChildren(ctx, parentID, kind)
	if err != nil {
		return nil, err
	}
	entries := make([]ordering.Entry, len(siblings))
	for i, n := range siblings {
		entries[i] = ordering.Entry{ID: n.ID, OrderIndex: n.OrderIndex}
	}
	return ordering.FromEntries(entries), nil
}

// subtreeStageIDs collects the ids of every stage at or below node
func (s *CatalogService) subtreeStageIDs(ctx context.Context, node *model.CatalogNode) ([]string, error) {
	switch node.Kind {
	case model.KindStage:
		return []string{node.ID}, nil
	case model.KindSegment:
		stages, err := s.catalogRepo.ListChildren(ctx, node.ID, model.KindStage)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(stages))
		for i, st := range stages {
			ids[i] = st.ID
		}
		return ids, nil
	case model.KindModule:
		segments, err := s.catalogRepo.ListChildren(ctx, node.ID, model.KindSegment)
		if err != nil {
			return nil, err
		}
		var ids []string
		for _, seg := range segments {
			stages, err := s.catalogRepo.ListChildren(ctx, seg.ID, model.KindStage)
			if err != nil {
				return nil, err
			}
			for _, st := range stages {
				ids = append(ids, st.ID)
			}
		}
		return ids, nil
	}
	return nil, nil
}

func (s *CatalogService) invalidateTree(ctx context.Context) error {
	if s.treeCache == nil {
		return nil
	}
	if err := s.treeCache.Invalidate(ctx); err != nil {
		// A stale flat view self-heals on TTL expiry; the mutation
		// itself already succeeded
		s.logger.Warn("tree cache invalidation failed", zap.Error(err))
	}
	return nil
}

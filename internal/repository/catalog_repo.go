package repository

import (
	"context"
	"time"

	"elevatecore/internal/model"
	"elevatecore/internal/ordering"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CatalogRepo interface {
	Create(ctx context.Context, node *model.CatalogNode) error
	GetByID(ctx context.Context, id string) (*model.CatalogNode, error)
	Update(ctx context.Context, id string, upd model.NodeUpdate) error
	SetParent(ctx context.Context, id, parentID string) error

	// Delete removes the node and, transitively, every descendant
	Delete(ctx context.Context, id string) error

	// ListChildren returns the direct children of parentID at the given
	// kind, sorted by orderIndex (parentID empty lists modules)
	ListChildren(ctx context.Context, parentID string, kind model.NodeKind) ([]model.CatalogNode, error)
	ListByKind(ctx context.Context, kind model.NodeKind) ([]model.CatalogNode, error)

	// BatchReorder applies a full sibling ordering in one write;
	// partial application is not a legal outcome
	BatchReorder(ctx context.Context, items []ordering.ReorderItem) error
}

type catalogRepo struct {
	collection *mongo.Collection
}

func NewCatalogRepo(db *mongo.Database) CatalogRepo {
	return &catalogRepo{collection: db.Collection("catalog_nodes")}
}

func (r *catalogRepo) Create(ctx context.Context, node *model.CatalogNode) error {
	if node.ID == "" {
		node.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	node.CreatedAt = now
	node.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, node)
	return failure("catalog.create", err)
}

func (r *catalogRepo) GetByID(ctx context.Context, id string) (*model.CatalogNode, error) {
	var node model.CatalogNode
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&node)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, failure("catalog.get", err)
	}
	return &node, nil
}

func (r *catalogRepo) Update(ctx context.Context, id string, upd model.NodeUpdate) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.IsActive != nil {
		set["isActive"] = *upd.IsActive
	}
	if upd.StageType != nil {
		set["stageType"] = *upd.StageType
	}
	if upd.ContentURL != nil {
		set["contentUrl"] = *upd.ContentURL
	}
	if upd.DurationMinutes != nil {
		set["durationMinutes"] = *upd.DurationMinutes
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return failure("catalog.update", err)
}

func (r *catalogRepo) SetParent(ctx context.Context, id, parentID string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"parentId": parentID, "updatedAt": time.Now().UTC()},
	})
	return failure("catalog.setParent", err)
}

func (r *catalogRepo) Delete(ctx context.Context, id string) error {
	// Collect the subtree breadth-first, then delete in one shot so no
	// orphan survives a partially applied cascade
	ids := []string{id}
	frontier := []string{id}
	for len(frontier) > 0 {
		cursor, err := r.collection.Find(ctx, bson.M{"parentId": bson.M{"$in": frontier}})
		if err != nil {
			return failure("catalog.delete", err)
		}
		var children []model.CatalogNode
		if err := cursor.All(ctx, &children); err != nil {
			return failure("catalog.delete", err)
		}
		frontier = frontier[:0]
		for _, c := range children {
			ids = append(ids, c.ID)
			frontier = append(frontier, c.ID)
		}
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return failure("catalog.delete", err)
}

func (r *catalogRepo) ListChildren(ctx context.Context, parentID string, kind model.NodeKind) ([]model.CatalogNode, error) {
	filter := bson.M{"kind": kind}
	if parentID == "" {
		filter["parentId"] = bson.M{"$in": bson.A{nil, ""}}
	} else {
		filter["parentId"] = parentID
	}
	return r.list(ctx, filter)
}

func (r *catalogRepo) ListByKind(ctx context.Context, kind model.NodeKind) ([]model.CatalogNode, error) {
	return r.list(ctx, bson.M{"kind": kind})
}

func (r *catalogRepo) list(ctx context.Context, filter bson.M) ([]model.CatalogNode, error) {
	opts := options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, failure("catalog.list", err)
	}
	defer cursor.Close(ctx)

	var nodes []model.CatalogNode
	if err := cursor.All(ctx, &nodes); err != nil {
		return nil, failure("catalog.list", err)
	}
	return nodes, nil
}

func (r *catalogRepo) BatchReorder(ctx context.Context, items []ordering.ReorderItem) error {
	return bulkReorder(ctx, r.collection, "catalog.batchReorder", items)
}

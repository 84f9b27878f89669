package repository

import (
	"context"
	"time"

	"elevatecore/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type StageRuleRepo interface {
	Create(ctx context.Context, rule *model.StageRule) error
	GetByID(ctx context.Context, id string) (*model.StageRule, error)
	Update(ctx context.Context, rule *model.StageRule) error
	Delete(ctx context.Context, id string) error

	// List returns the rules applicable to questionnaireID: its scoped
	// rules plus every global rule. An empty questionnaireID returns
	// global rules only.
	List(ctx context.Context, questionnaireID string) ([]model.StageRule, error)
	GetAll(ctx context.Context) ([]model.StageRule, error)
	ListByTargetStage(ctx context.Context, stageID string) ([]model.StageRule, error)
	DeleteByQuestionnaire(ctx context.Context, questionnaireID string) error
}

type stageRuleRepo struct {
	collection *mongo.Collection
}

func NewStageRuleRepo(db *mongo.Database) StageRuleRepo {
	return &stageRuleRepo{collection: db.Collection("stage_rules")}
}

func (r *stageRuleRepo) Create(ctx context.Context, rule *model.StageRule) error {
	if rule.ID == "" {
		rule.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, rule)
	return failure("stagerule.create", err)
}

func (r *stageRuleRepo) GetByID(ctx context.Context, id string) (*model.StageRule, error) {
	var rule model.StageRule
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, failure("stagerule.get", err)
	}
	return &rule, nil
}

func (r *stageRuleRepo) Update(ctx context.Context, rule *model.StageRule) error {
	rule.UpdatedAt = time.Now().UTC()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": rule.ID}, rule)
	return failure("stagerule.update", err)
}

func (r *stageRuleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return failure("stagerule.delete", err)
}

func (r *stageRuleRepo) List(ctx context.Context, questionnaireID string) ([]model.StageRule, error) {
	global := bson.M{"$in": bson.A{nil, ""}}
	filter := bson.M{"questionnaireId": global}
	if questionnaireID != "" {
		filter = bson.M{"$or": bson.A{
			bson.M{"questionnaireId": questionnaireID},
			bson.M{"questionnaireId": global},
		}}
	}
	return r.list(ctx, filter)
}

func (r *stageRuleRepo) GetAll(ctx context.Context) ([]model.StageRule, error) {
	return r.list(ctx, bson.M{})
}

func (r *stageRuleRepo) ListByTargetStage(ctx context.Context, stageID string) ([]model.StageRule, error) {
	return r.list(ctx, bson.M{"targetStageId": stageID})
}

func (r *stageRuleRepo) DeleteByQuestionnaire(ctx context.Context, questionnaireID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"questionnaireId": questionnaireID})
	return failure("stagerule.deleteByQuestionnaire", err)
}

func (r *stageRuleRepo) list(ctx context.Context, filter bson.M) ([]model.StageRule, error) {
	sort := options.Find().SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, sort)
	if err != nil {
		return nil, failure("stagerule.list", err)
	}
	defer cursor.Close(ctx)

	var out []model.StageRule
	if err := cursor.All(ctx, &out); err != nil {
		return nil, failure("stagerule.list", err)
	}
	return out, nil
}

package repository

import (
	"context"

	"elevatecore/internal/model"
	"elevatecore/internal/ordering"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type QuestionRepo interface {
	Create(ctx context.Context, q *model.Question) error
	GetByID(ctx context.Context, id string) (*model.Question, error)
	Update(ctx context.Context, q *model.Question) error

	// Delete removes the question and all of its options
	Delete(ctx context.Context, id string) error

	ListBySegment(ctx context.Context, segmentID string) ([]model.Question, error)
	BatchReorder(ctx context.Context, items []ordering.ReorderItem) error

	// Options
	CreateOption(ctx context.Context, opt *model.Option) error
	GetOption(ctx context.Context, id string) (*model.Option, error)
	UpdateOption(ctx context.Context, opt *model.Option) error
	DeleteOption(ctx context.Context, id string) error
	ListOptions(ctx context.Context, questionID string) ([]model.Option, error)
	BatchReorderOptions(ctx context.Context, items []ordering.ReorderItem) error
}

type questionRepo struct {
	questions *mongo.Collection
	opts      *mongo.Collection
}

func NewQuestionRepo(db *mongo.Database) QuestionRepo {
	return &questionRepo{
		questions: db.Collection("questions"),
		opts:      db.Collection("question_options"),
	}
}

func (r *questionRepo) Create(ctx context.Context, q *model.Question) error {
	if q.ID == "" {
		q.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.questions.InsertOne(ctx, q)
	return failure("question.create", err)
}

func (r *questionRepo) GetByID(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	err := r.questions.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, failure("question.get", err)
	}
	return &q, nil
}

func (r *questionRepo) Update(ctx context.Context, q *model.Question) error {
	_, err := r.questions.ReplaceOne(ctx, bson.M{"_id": q.ID}, q)
	return failure("question.update", err)
}

func (r *questionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.opts.DeleteMany(ctx, bson.M{"questionId": id}); err != nil {
		return failure("question.delete", err)
	}
	_, err := r.questions.DeleteOne(ctx, bson.M{"_id": id})
	return failure("question.delete", err)
}

func (r *questionRepo) ListBySegment(ctx context.Context, segmentID string) ([]model.Question, error) {
	sort := options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.questions.Find(ctx, bson.M{"segmentId": segmentID}, sort)
	if err != nil {
		return nil, failure("question.list", err)
	}
	defer cursor.Close(ctx)

	var out []model.Question
	if err := cursor.All(ctx, &out); err != nil {
		return nil, failure("question.list", err)
	}
	return out, nil
}

func (r *questionRepo) BatchReorder(ctx context.Context, items []ordering.ReorderItem) error {
	return bulkReorder(ctx, r.questions, "question.batchReorder", items)
}

func (r *questionRepo) CreateOption(ctx context.Context, opt *model.Option) error {
	if opt.ID == "" {
		opt.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.opts.InsertOne(ctx, opt)
	return failure("option.create", err)
}

func (r *questionRepo) GetOption(ctx context.Context, id string) (*model.Option, error) {
	var opt model.Option
	err := r.opts.FindOne(ctx, bson.M{"_id": id}).Decode(&opt)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, failure("option.get", err)
	}
	return &opt, nil
}

func (r *questionRepo) UpdateOption(ctx context.Context, opt *model.Option) error {
	_, err := r.opts.ReplaceOne(ctx, bson.M{"_id": opt.ID}, opt)
	return failure("option.update", err)
}

func (r *questionRepo) DeleteOption(ctx context.Context, id string) error {
	_, err := r.opts.DeleteOne(ctx, bson.M{"_id": id})
	return failure("option.delete", err)
}

func (r *questionRepo) ListOptions(ctx context.Context, questionID string) ([]model.Option, error) {
	sort := options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.opts.Find(ctx, bson.M{"questionId": questionID}, sort)
	if err != nil {
		return nil, failure("option.list", err)
	}
	defer cursor.Close(ctx)

	var out []model.Option
	if err := cursor.All(ctx, &out); err != nil {
		return nil, failure("option.list", err)
	}
	return out, nil
}

func (r *questionRepo) BatchReorderOptions(ctx context.Context, items []ordering.ReorderItem) error {
	return bulkReorder(ctx, r.opts, "option.batchReorder", items)
}

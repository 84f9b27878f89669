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

type QuestionnaireRepo interface {
	Create(ctx context.Context, q *model.Questionnaire) error
	GetByID(ctx context.Context, id string) (*model.Questionnaire, error)
	Update(ctx context.Context, q *model.Questionnaire) error
	Delete(ctx context.Context, id string) error
	GetAll(ctx context.Context) ([]model.Questionnaire, error)

	// Questionnaire segments
	CreateSegment(ctx context.Context, seg *model.QSegment) error
	GetSegment(ctx context.Context, id string) (*model.QSegment, error)
	RenameSegment(ctx context.Context, id, name string) error
	DeleteSegment(ctx context.Context, id string) error
	ListSegments(ctx context.Context, questionnaireID string) ([]model.QSegment, error)
	BatchReorderSegments(ctx context.Context, items []ordering.ReorderItem) error
}

type questionnaireRepo struct {
	questionnaires *mongo.Collection
	segments       *mongo.Collection
}

func NewQuestionnaireRepo(db *mongo.Database) QuestionnaireRepo {
	return &questionnaireRepo{
		questionnaires: db.Collection("questionnaires"),
		segments:       db.Collection("questionnaire_segments"),
	}
}

func (r *questionnaireRepo) Create(ctx context.Context, q *model.Questionnaire) error {
	if q.ID == "" {
		q.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now
	_, err := r.questionnaires.InsertOne(ctx, q)
	return failure("questionnaire.create", err)
}

func (r *questionnaireRepo) GetByID(ctx context.Context, id string) (*model.Questionnaire, error) {
	var q model.Questionnaire
	err := r.questionnaires.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, failure("questionnaire.get", err)
	}
	return &q, nil
}

func (r *questionnaireRepo) Update(ctx context.Context, q *model.Questionnaire) error {
	q.UpdatedAt = time.Now().UTC()
	_, err := r.questionnaires.ReplaceOne(ctx, bson.M{"_id": q.ID}, q)
	return failure("questionnaire.update", err)
}

func (r *questionnaireRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.segments.DeleteMany(ctx, bson.M{"questionnaireId": id}); err != nil {
		return failure("questionnaire.delete", err)
	}
	_, err := r.questionnaires.DeleteOne(ctx, bson.M{"_id": id})
	return failure("questionnaire.delete", err)
}

func (r *questionnaireRepo) GetAll(ctx context.Context) ([]model.Questionnaire, error) {
	cursor, err := r.questionnaires.Find(ctx, bson.M{})
	if err != nil {
		return nil, failure("questionnaire.list", err)
	}
	defer cursor.Close(ctx)

	var out []model.Questionnaire
	if err := cursor.All(ctx, &out); err != nil {
		return nil, failure("questionnaire.list", err)
	}
	return out, nil
}

func (r *questionnaireRepo) CreateSegment(ctx context.Context, seg *model.QSegment) error {
	if seg.ID == "" {
		seg.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.segments.InsertOne(ctx, seg)
	return failure("qsegment.create", err)
}

func (r *questionnaireRepo) GetSegment(ctx context.Context, id string) (*model.QSegment, error) {
	var seg model.QSegment
	err := r.segments.FindOne(ctx, bson.M{"_id": id}).Decode(&seg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, failure("qsegment.get", err)
	}
	return &seg, nil
}

func (r *questionnaireRepo) RenameSegment(ctx context.Context, id, name string) error {
	_, err := r.segments.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"name": name}})
	return failure("qsegment.rename", err)
}

func (r *questionnaireRepo) DeleteSegment(ctx context.Context, id string) error {
	_, err := r.segments.DeleteOne(ctx, bson.M{"_id": id})
	return failure("qsegment.delete", err)
}

func (r *questionnaireRepo) ListSegments(ctx context.Context, questionnaireID string) ([]model.QSegment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.segments.Find(ctx, bson.M{"questionnaireId": questionnaireID}, opts)
	if err != nil {
		return nil, failure("qsegment.list", err)
	}
	defer cursor.Close(ctx)

	var out []model.QSegment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, failure("qsegment.list", err)
	}
	return out, nil
}

func (r *questionnaireRepo) BatchReorderSegments(ctx context.Context, items []ordering.ReorderItem) error {
	return bulkReorder(ctx, r.segments, "qsegment.batchReorder", items)
}

// bulkReorder applies a full sibling ordering as a single ordered bulk
// write against coll
func bulkReorder(ctx context.Context, coll *mongo.Collection, op string, items []ordering.ReorderItem) error {
	if len(items) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(items))
	for _, it := range items {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": it.ID}).
			SetUpdate(bson.M{"$set": bson.M{"orderIndex": it.OrderIndex}}))
	}
	_, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return failure(op, err)
}

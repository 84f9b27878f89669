package main

import (
	"context"
	"log"
	"time"

	"elevatecore/internal/app"
	"elevatecore/internal/config"
	"elevatecore/internal/model"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func floatPtr(v float64) *float64 { return &v }

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	a := app.New(client.Database(cfg.MongoDB), rdb, logger)

	// Catalog: one onboarding module with a stage of each type
	module := &model.CatalogNode{Kind: model.KindModule, Name: "Client Onboarding", IsActive: true}
	if err := a.Catalog.CreateNode(ctx, module, 0); err != nil {
		log.Fatalf("Failed to create module: %v", err)
	}
	segment := &model.CatalogNode{
		Kind: model.KindSegment, ParentID: module.ID,
		Name: "Initial Evaluation", IsActive: true,
	}
	if err := a.Catalog.CreateNode(ctx, segment, 0); err != nil {
		log.Fatalf("Failed to create segment: %v", err)
	}

	stages := []*model.CatalogNode{
		{Kind: model.KindStage, ParentID: segment.ID, Name: "Foundations Training", StageType: model.StageTraining, DurationMinutes: 90, IsActive: true},
		{Kind: model.KindStage, ParentID: segment.ID, Name: "Readiness Assessment", StageType: model.StageAssessment, DurationMinutes: 45, IsActive: true},
		{Kind: model.KindStage, ParentID: segment.ID, Name: "Strategy Consultation", StageType: model.StageConsultation, DurationMinutes: 60, IsActive: true},
		{Kind: model.KindStage, ParentID: segment.ID, Name: "Summary Review", StageType: model.StageSummary, DurationMinutes: 30, IsActive: true},
	}
	for _, st := range stages {
		if err := a.Catalog.CreateNode(ctx, st, 0); err != nil {
			log.Fatalf("Failed to create stage %s: %v", st.Name, err)
		}
	}

	// Questionnaire with one scored segment
	questionnaire := &model.Questionnaire{Name: "Readiness Intake", Version: "1.0"}
	if err := a.Questionnaire.CreateQuestionnaire(ctx, questionnaire); err != nil {
		log.Fatalf("Failed to create questionnaire: %v", err)
	}
	qseg := &model.QSegment{QuestionnaireID: questionnaire.ID, Name: "Business Profile"}
	if err := a.Questionnaire.CreateSegment(ctx, qseg, 0); err != nil {
		log.Fatalf("Failed to create questionnaire segment: %v", err)
	}

	scale := []model.SnapshotOption{
		{Label: "Not at all", Value: "0"},
		{Label: "Somewhat", Value: "5"},
		{Label: "Fully", Value: "10"},
	}
	prompts := []struct {
		text   string
		weight float64
	}{
		{"How clearly defined is your current business strategy?", 2},
		{"How established are your revenue streams?", 1},
		{"How ready is your team for a structured program?", 1},
	}
	for _, p := range prompts {
		q := &model.Question{
			SegmentID: qseg.ID,
			Text:      p.text,
			Type:      model.QuestionScale,
			Weight:    floatPtr(p.weight),
		}
		if err := a.Questionnaire.CreateQuestion(ctx, q, 0); err != nil {
			log.Fatalf("Failed to create question: %v", err)
		}
		for _, o := range scale {
			opt := &model.Option{QuestionID: q.ID, Label: o.Label, Value: o.Value}
			if err := a.Questionnaire.CreateOption(ctx, opt, 0); err != nil {
				log.Fatalf("Failed to create option: %v", err)
			}
		}
	}

	// Score bands: low scores go to training, middle to assessment,
	// high straight to consultation
	rules := []*model.StageRule{
		{QuestionnaireID: questionnaire.ID, MinScore: 0, MaxScore: 14, TargetStageID: stages[0].ID, Priority: 1},
		{QuestionnaireID: questionnaire.ID, MinScore: 15, MaxScore: 29, TargetStageID: stages[1].ID, Priority: 1},
		{QuestionnaireID: questionnaire.ID, MinScore: 30, MaxScore: 40, TargetStageID: stages[2].ID, Priority: 1},
		{MinScore: 0, MaxScore: 40, TargetStageID: stages[0].ID, Priority: 100}, // global fallback band
	}
	for _, r := range rules {
		if err := a.StageRules.CreateRule(ctx, r); err != nil {
			log.Fatalf("Failed to create stage rule: %v", err)
		}
	}

	log.Printf("Seeded module %s, questionnaire %s with %d stages and %d rules",
		module.ID, questionnaire.ID, len(stages), len(rules))
}

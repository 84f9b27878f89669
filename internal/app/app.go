package app

import (
	"elevatecore/internal/cache"
	"elevatecore/internal/repository"
	"elevatecore/internal/service"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// App wires repositories, caches, and services over shared Mongo/Redis
// connections
type App struct {
	CatalogRepo       repository.CatalogRepo
	QuestionnaireRepo repository.QuestionnaireRepo
	QuestionRepo      repository.QuestionRepo
	RuleRepo          repository.StageRuleRepo

	TreeCache cache.TreeCache
	RuleCache cache.RuleCache

	Catalog       *service.CatalogService
	Questionnaire *service.QuestionnaireService
	Scoring       *service.ScoringService
	StageRules    *service.StageRuleService
	Transfer      *service.TransferService
}

func New(db *mongo.Database, rdb *redis.Client, logger *zap.Logger) *App {
	catalogRepo := repository.NewCatalogRepo(db)
	questionnaireRepo := repository.NewQuestionnaireRepo(db)
	questionRepo := repository.NewQuestionRepo(db)
	ruleRepo := repository.NewStageRuleRepo(db)

	treeCache := cache.NewTreeCache(rdb)
	ruleCache := cache.NewRuleCache(rdb)

	return &App{
		CatalogRepo:       catalogRepo,
		QuestionnaireRepo: questionnaireRepo,
		QuestionRepo:      questionRepo,
		RuleRepo:          ruleRepo,
		TreeCache:         treeCache,
		RuleCache:         ruleCache,
		Catalog:           service.NewCatalogService(catalogRepo, ruleRepo, treeCache, logger),
		Questionnaire:     service.NewQuestionnaireService(questionnaireRepo, questionRepo, ruleRepo, catalogRepo, logger),
		Scoring:           service.NewScoringService(questionnaireRepo, questionRepo, logger),
		StageRules:        service.NewStageRuleService(ruleRepo, catalogRepo, ruleCache, logger),
		Transfer:          service.NewTransferService(questionnaireRepo, questionRepo, logger),
	}
}

package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"minecomply/internal/adapter/agents"
	"minecomply/internal/adapter/ai"
	"minecomply/internal/adapter/store"
	"minecomply/internal/aggregate"
	"minecomply/internal/domain"
	"minecomply/internal/events"
	"minecomply/internal/handler"
	"minecomply/internal/mapping"
	"minecomply/internal/port"
	"minecomply/internal/service"
	"minecomply/pkg/config"
	"minecomply/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	log := logger.New(cfg.LogLevel, cfg.LogFile)
	defer log.Sync()

	log.Info("starting MineComply",
		zap.String("port", cfg.Port),
		zap.String("ollama_embed", cfg.OllamaEmbedURL),
		zap.String("embed_model", cfg.OllamaEmbedModel),
	)

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer pgStore.Close()

	if err := pgStore.Migrate(context.Background()); err != nil {
		log.Error("migration failed", zap.Error(err))
		os.Exit(1)
	}

	vectorStore := store.NewVectorStore(pgStore)

	// ── Adapters ─────────────────────────────────────────────────────────
	embedder := ai.NewOllamaProvider(ai.OllamaEndpointConfig{
		BaseURL: cfg.OllamaEmbedURL,
		Model:   cfg.OllamaEmbedModel,
		Token:   cfg.OllamaEmbedToken,
	})

	// ── Event Bus ────────────────────────────────────────────────────────
	bus, sub := events.NewInProcessBus()
	defer bus.Close()

	go func() {
		messages, err := sub.Subscribe(context.Background(), events.TopicAnalysisState)
		if err != nil {
			log.Error("subscribe to pipeline events failed", zap.Error(err))
			return
		}
		for msg := range messages {
			var sc events.StateChange
			if err := json.Unmarshal(msg.Payload, &sc); err == nil {
				log.Debug("pipeline event",
					zap.String("analysis_id", sc.AnalysisID),
					zap.String("state", string(sc.State)),
				)
			}
			msg.Ack()
		}
	}()

	// ── Agent Registry (Strategy Pattern) ────────────────────────────────
	agentOpts := agents.Options{MaxRecommendations: cfg.MaxPriorityActions}
	registry := port.NewAgentRegistry(
		agents.NewSafetyAgent(agentOpts),
		agents.NewEnvironmentalAgent(agentOpts),
		agents.NewOperationalAgent(agentOpts),
		agents.NewLegalAgent(agentOpts),
	)

	// ── Services ─────────────────────────────────────────────────────────
	mappingOpts := mapping.DefaultOptions()
	mappingOpts.Floor = cfg.MappingFloor

	engineCfg := service.Config{
		SimilarityThreshold: cfg.SimilarityThreshold,
		TopKCandidates:      cfg.TopKCandidates,
		AgentTimeout:        time.Duration(cfg.AgentTimeoutSeconds) * time.Second,
		FindingCacheTTL:     time.Duration(cfg.FindingCacheSeconds) * time.Second,
		Mapping:             mappingOpts,
		Agents:              agentOpts,
		Aggregate: aggregate.Options{
			Weights: map[domain.Category]float64{
				domain.CategorySafety:        cfg.WeightSafety,
				domain.CategoryEnvironmental: cfg.WeightEnvironmental,
				domain.CategoryOperational:   cfg.WeightOperational,
				domain.CategoryLegal:         cfg.WeightLegal,
			},
			MaxActions: cfg.MaxPriorityActions,
		},
	}
	analysisService, err := service.NewAnalysisService(registry, embedder, bus, log, engineCfg)
	if err != nil {
		log.Error("invalid engine configuration", zap.Error(err))
		os.Exit(1)
	}

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": "1.0.0",
		})
	})

	// ── Routes ───────────────────────────────────────────────────────────
	api := app.Group("/api/v1")

	jobTracker := handler.NewJobTracker()

	documentsHandler := handler.NewDocumentsHandler(pgStore, embedder, log)
	documentsHandler.Register(api)

	regulationsHandler := handler.NewRegulationsHandler(pgStore, vectorStore, embedder, log)
	regulationsHandler.Register(api)

	analysisHandler := handler.NewAnalysisHandler(analysisService, pgStore, jobTracker, log)
	analysisHandler.Register(api)

	jobsHandler := handler.NewJobsHandler(jobTracker, log)
	jobsHandler.Register(api)

	reportsHandler := handler.NewReportsHandler(pgStore, log)
	reportsHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	log.Info("listening", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/opssage/opssage/internal/agent"
	"github.com/opssage/opssage/internal/auth"
	"github.com/opssage/opssage/internal/config"
	"github.com/opssage/opssage/internal/db"
	"github.com/opssage/opssage/internal/handlers"
	"github.com/opssage/opssage/internal/llm"
	"github.com/opssage/opssage/internal/notify"
	"github.com/opssage/opssage/internal/orchestrator"
	"github.com/opssage/opssage/internal/rag"
	"github.com/opssage/opssage/internal/store"
	"github.com/opssage/opssage/internal/telemetry"
	"github.com/opssage/opssage/internal/topology"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("could not load configuration", "error", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = db.ConnectRedis(cfg.Redis.Addr)
	}

	var publisher store.Publisher
	if redisClient != nil {
		publisher = store.NewRedisPublisher(redisClient, log)
	}

	var contextStore store.ContextStore
	var userStore *store.UserStore
	switch cfg.Pipeline.Store {
	case "memory":
		contextStore = store.NewMemoryStore(log, publisher)
		log.Infow("using in-memory incident store")
	default:
		database, err := db.ConnectMongo(cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			log.Fatalw("could not connect to mongodb", "uri", cfg.Mongo.URI, "error", err)
		}
		contextStore = store.NewMongoStore(database, log, publisher)
		userStore = store.NewUserStore(database)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			database.Client().Disconnect(ctx)
		}()
	}

	provider, err := llm.NewProviderFromConfig(cfg.LLM.Provider, cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		log.Fatalw("could not build model provider", "provider", cfg.LLM.Provider, "error", err)
	}
	log.Infow("model provider ready", "provider", provider.Name())
	runner := agent.NewRunner(provider, log)

	var knowledge rag.Searcher = rag.MockSearcher{}
	if cfg.RAG.QdrantURL != "" {
		knowledge = rag.NewClient(cfg.RAG.QdrantURL, cfg.RAG.OllamaURL, cfg.RAG.EmbeddingModel, cfg.RAG.Collection)
	}

	var topo topology.Lookup = topology.NoopLookup{}
	if cfg.Neo4j.URI != "" {
		driver, err := db.ConnectNeo4j(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password)
		if err != nil {
			log.Warnw("could not connect to neo4j, topology lookups disabled", "error", err)
		} else {
			topo = topology.NewNeo4jLookup(driver, log)
			defer driver.Close(context.Background())
		}
	}

	notifier := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.DashboardURL, log)

	orch := orchestrator.New(
		contextStore,
		runner,
		notifier,
		telemetry.MockAdapters(),
		knowledge,
		topo,
		orchestrator.Options{
			StageTimeout:  cfg.Pipeline.StageTimeout,
			KnowledgeTopK: cfg.RAG.TopK,
		},
		log,
	)

	authSvc := auth.NewService(cfg.Auth.JWTSecret)
	incidentHandler := handlers.NewIncidentHandler(orch, contextStore, log)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "X-Requested-With", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/", handlers.Health)
	r.POST("/api/v1/alerts", incidentHandler.HandleAlert)

	if userStore != nil {
		userHandler := handlers.NewUserHandler(userStore, authSvc, redisClient, log)
		r.POST("/register", userHandler.Register)
		r.POST("/login", userHandler.Login)
		r.POST("/refresh", userHandler.RefreshToken)
	}

	protected := r.Group("/api/v1")
	if cfg.Auth.JWTSecret != "" {
		protected.Use(authSvc.AuthMiddleware())
	}
	{
		protected.GET("/incidents", incidentHandler.ListIncidents)
		protected.GET("/incidents/:id", incidentHandler.GetIncident)
		protected.DELETE("/incidents/:id", incidentHandler.DeleteIncident)
	}

	log.Infow("listening", "addr", cfg.Server.Addr)
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Fatalw("server stopped", "error", err)
	}
}

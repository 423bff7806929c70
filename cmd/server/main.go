package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appconfig "esgadvisor/config"
	"esgadvisor/internal/cache"
	"esgadvisor/internal/catalog"
	aiconfig "esgadvisor/internal/config"
	"esgadvisor/internal/repository"
	"esgadvisor/internal/service"
	"esgadvisor/internal/transport/rest"
	"esgadvisor/internal/transport/ws"
)

func main() {
	log.Println("started")
	_ = godotenv.Load()
	ctx := context.Background()

	cfg := appconfig.Load()

	// Load oracle config and log model settings
	oracleCfg := aiconfig.DefaultAIConfig()
	log.Printf("Oracle config:")
	log.Printf("  Classify:  %s", oracleCfg.Models.Classify)
	log.Printf("  Summarize: %s", oracleCfg.Models.Summarize)
	if oracleCfg.IsEnabled() {
		log.Println("  API Key:   configured ✓")
	} else {
		log.Println("  API Key:   NOT SET (using offline evaluator)")
	}

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Stimulus catalog: prefer the seeded one, fall back to the built-in
	catalogRepo := repository.NewCatalogRepository(db)
	cat := catalog.Default()
	if stimuli, err := catalogRepo.Load(ctx); err == nil && len(stimuli) > 0 {
		cat = catalog.New(stimuli)
		log.Printf("Loaded %d stimuli from MongoDB", cat.Len())
	} else {
		log.Printf("Using built-in catalog (%d stimuli)", cat.Len())
	}

	// WebSocket hub for observer feeds
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Repositories, caches, services
	profileRepo := repository.NewProfileRepository(db)
	sessionCache := cache.NewSessionCache(rdb, cfg.SessionTTL)

	authSvc := service.NewAuthService(cfg.JWTSecret)
	evaluator := service.NewEvaluatorService(oracleCfg)
	interviewSvc := service.NewInterviewService(cat, sessionCache, profileRepo, evaluator, cfg.MaxFollowUps)
	interviewSvc.SetBroadcaster(wsHub)

	container := &rest.Container{
		AuthService:      authSvc,
		InterviewService: interviewSvc,
		WSHub:            wsHub,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Println("Endpoints:")
		log.Println("  POST /v1/interviews")
		log.Println("  GET  /v1/interviews/{id}/prompt")
		log.Println("  POST /v1/interviews/{id}/answers")
		log.Println("  POST /v1/interviews/{id}/profile")
		log.Println("  GET  /v1/interviews/{id}/transcript")
		log.Println("  WS   /v1/ws/interviews/{id}/watch")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

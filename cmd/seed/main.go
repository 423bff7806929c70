package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appconfig "esgadvisor/config"
	"esgadvisor/internal/catalog"
	"esgadvisor/internal/repository"
)

// Seeds the built-in stimulus catalog into MongoDB so a deployment can
// edit the interview without rebuilding the binary.
func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB)
	catalogRepo := repository.NewCatalogRepository(db)

	stimuli := catalog.Default().Stimuli()
	if err := catalogRepo.Replace(ctx, stimuli); err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}

	log.Printf("Seeded %d stimuli into %s.stimuli", len(stimuli), cfg.MongoDB)
	for _, s := range stimuli {
		log.Printf("  [%d] %s", s.ID, s.Text)
	}
}

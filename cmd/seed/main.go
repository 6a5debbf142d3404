package main

import (
	"context"
	"os"
	"time"

	"github.com/inksign/inksign/backend/go-services/internal/config"
	"github.com/inksign/inksign/backend/go-services/internal/document/service"
	"github.com/inksign/inksign/backend/go-services/internal/seed"
	"github.com/inksign/inksign/backend/go-services/internal/storage"
	"github.com/inksign/inksign/backend/go-services/internal/users"
	"github.com/inksign/inksign/backend/go-services/pkg/logger"
)

// seed writes the demo accounts and sample document into the configured
// store. With the memory driver it only proves the flow works.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Driver == config.DriverMemory {
		logger.Warn("STORAGE_DRIVER=memory: seeded data is discarded on exit")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open storage: %v", err)
	}
	defer func() { _ = stores.Close(context.Background()) }()

	userSvc := users.NewService(stores.Users, users.BcryptHasher{})
	res, err := seed.Demo(ctx, userSvc, service.New(stores.Documents, userSvc), cfg.Seed.Password)
	if err != nil {
		_ = stores.Close(context.Background())
		logger.Fatalf("seed failed: %v", err)
	}
	for _, u := range res.Users {
		logger.Infow("seeded user", "id", u.ID, "email", u.Email)
	}
	if res.Sample != "" {
		logger.Infow("seeded document", "id", res.Sample, "title", seed.SampleTitle)
	}
}

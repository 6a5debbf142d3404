package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/inksign/inksign/backend/go-services/internal/config"
	"github.com/inksign/inksign/backend/go-services/internal/database"
	"github.com/inksign/inksign/backend/go-services/internal/document/repository"
	"github.com/inksign/inksign/backend/go-services/internal/sessions"
	"github.com/inksign/inksign/backend/go-services/internal/users"
	"github.com/inksign/inksign/backend/go-services/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
)

// Stores bundles the repositories of the configured storage driver.
type Stores struct {
	Driver    string
	Users     users.UserRepository
	Documents repository.Repository
	// Sessions is the driver's own session store. The postgres driver has
	// none and leaves it nil; callers fall back to Redis or memory.
	Sessions sessions.Repository

	ping    func(ctx context.Context) error
	closers []func(ctx context.Context) error
}

// Open connects the backend selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory, "":
		return OpenMemory(), nil
	case config.DriverMongo:
		return openMongo(ctx, cfg)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// OpenMemory returns process-local stores.
func OpenMemory() *Stores {
	return &Stores{
		Driver:    config.DriverMemory,
		Users:     users.NewMemoryUserRepository(),
		Documents: repository.NewMemoryRepo(),
		Sessions:  sessions.NewMemoryRepository(),
	}
}

// connectMongo retries with backoff to tolerate startup races.
func connectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	const maxAttempts = 5
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, uri, timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", maxAttempts, lastErr)
}

func openMongo(ctx context.Context, cfg *config.Config) (*Stores, error) {
	client, err := connectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDB.Database)
	s := &Stores{
		Driver:  config.DriverMongo,
		ping:    func(ctx context.Context) error { return client.Ping(ctx, nil) },
		closers: []func(ctx context.Context) error{client.Disconnect},
	}
	fail := func(err error) (*Stores, error) {
		_ = s.Close(ctx)
		return nil, err
	}
	if s.Users, err = users.NewMongoUserRepository(ctx, db.Collection("users")); err != nil {
		return fail(fmt.Errorf("users collection: %w", err))
	}
	if s.Documents, err = repository.NewMongoRepo(ctx, db.Collection("documents")); err != nil {
		return fail(fmt.Errorf("documents collection: %w", err))
	}
	if s.Sessions, err = sessions.NewMongoRepository(ctx, db.Collection("sessions")); err != nil {
		return fail(fmt.Errorf("sessions collection: %w", err))
	}
	logger.Infof("storage: mongo database %q", cfg.MongoDB.Database)
	return s, nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (*Stores, error) {
	db, err := database.ConnectPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns, 10*time.Second)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Infof("storage: postgres")
	return &Stores{
		Driver:    config.DriverPostgres,
		Users:     users.NewPostgresUserRepository(db),
		Documents: repository.NewPostgresRepo(db),
		ping:      db.PingContext,
		closers:   []func(ctx context.Context) error{func(context.Context) error { return db.Close() }},
	}, nil
}

// Ping checks the backend; the memory driver is always reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases backend connections.
func (s *Stores) Close(ctx context.Context) error {
	var first error
	for _, c := range s.closers {
		if err := c(ctx); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

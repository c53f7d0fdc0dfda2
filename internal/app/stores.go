// Package app assembles the stores and collaborators shared by the server
// and the seed command from a loaded Config.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/database"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/service"
)

// UserRepository is the credential store as used by both auth services.
type UserRepository interface {
	service.UserStore
	service.ResetStore
}

// Stores bundles the persistence backends. DB is nil for the memory backend.
type Stores struct {
	DB         *sql.DB
	Users      UserRepository
	Posts      service.PostStore
	Categories service.CategoryStore
}

// Ping reports whether the backing database is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.PingContext(ctx)
}

// Close releases the database pool, if any.
func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenStores connects the backend selected by cfg.StoreBackend and, for
// MySQL, applies pending migrations when cfg.MigrateOnStart is set.
func OpenStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*Stores, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on exit")
		users := repository.NewMemoryUserRepo()
		categories := repository.NewMemoryCategoryRepo()
		return &Stores{
			Users:      users,
			Posts:      repository.NewMemoryPostRepo(users, categories),
			Categories: categories,
		}, nil
	case config.StoreMySQL:
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	db, err := database.Open(ctx, database.Options{
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("migrations applied")
	}
	return &Stores{
		DB:         db,
		Users:      repository.NewUserRepo(db),
		Posts:      repository.NewPostRepo(db),
		Categories: repository.NewCategoryRepo(db),
	}, nil
}

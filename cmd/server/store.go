package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/vedran77/parley/internal/config"
	"github.com/vedran77/parley/internal/database"
	"github.com/vedran77/parley/internal/repository"
	"github.com/vedran77/parley/internal/repository/gormstore"
	postgresrepo "github.com/vedran77/parley/internal/repository/postgres"
	"gorm.io/gorm"
)

// store bundles the repositories of whichever backend db.driver selects.
type store struct {
	users    repository.UserRepository
	requests repository.RequestRepository
	convs    repository.ConversationRepository

	migrate func(ctx context.Context) error
	close   func()
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	if cfg.DBDriver == "postgres" {
		pool, err := database.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		return postgresStore(pool), nil
	}

	db, err := gormstore.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	return gormStore(db), nil
}

func postgresStore(pool *pgxpool.Pool) *store {
	return &store{
		users:    postgresrepo.NewUserRepo(pool),
		requests: postgresrepo.NewRequestRepo(pool),
		convs:    postgresrepo.NewConversationRepo(pool),
		migrate: func(ctx context.Context) error {
			return postgresrepo.Migrate(ctx, pool)
		},
		close: pool.Close,
	}
}

func gormStore(db *gorm.DB) *store {
	return &store{
		users:    gormstore.NewUserRepo(db),
		requests: gormstore.NewRequestRepo(db),
		convs:    gormstore.NewConversationRepo(db),
		migrate: func(context.Context) error {
			return gormstore.Migrate(db)
		},
		close: func() {
			if err := gormstore.Close(db); err != nil {
				jww.WARN.Printf("[STORE] closing database: %v", err)
			}
		},
	}
}

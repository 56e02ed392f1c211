package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vedant-labs/backend-bazaar/internal/catalog"
	"github.com/vedant-labs/backend-bazaar/internal/config"
	"github.com/vedant-labs/backend-bazaar/internal/db"
	"github.com/vedant-labs/backend-bazaar/internal/obs"
)

// Seeds a handful of demo products so the storefront has something to sell.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger("console", "info")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	repo := &catalog.Repo{Pool: pool}
	products := []catalog.Product{
		{Title: "Ceramic Mug", Slug: "ceramic-mug", Description: "Stoneware mug, 350ml", Price: 349, Stock: 120},
		{Title: "Linen Tote", Slug: "linen-tote", Description: "Natural linen tote bag", Price: 599, Stock: 60},
		{Title: "Walnut Desk Tray", Slug: "walnut-desk-tray", Description: "Solid walnut organiser", Price: 1499, Stock: 25},
		{Title: "Brass Bookmark", Slug: "brass-bookmark", Description: "Etched brass bookmark", Price: 199, Stock: 300},
		{Title: "Wool Throw", Slug: "wool-throw", Description: "Merino wool throw blanket", Price: 2999, Stock: 15},
	}
	for _, p := range products {
		p.ID = uuid.NewString()
		p.Active = true
		if _, err := repo.Create(ctx, p); err != nil {
			logger.Warn().Err(err).Str("slug", p.Slug).Msg("seed product")
			continue
		}
		logger.Info().Str("slug", p.Slug).Msg("seeded product")
	}
}

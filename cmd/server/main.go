package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/api"
	"github.com/okaziba/storefront/internal/api/handlers"
	"github.com/okaziba/storefront/internal/cart"
	"github.com/okaziba/storefront/internal/config"
	"github.com/okaziba/storefront/internal/payment"
	"github.com/okaziba/storefront/internal/pricing"
	"github.com/okaziba/storefront/internal/repository/postgres"
	"github.com/okaziba/storefront/internal/repository/redisstore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Connect to database and run migrations
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, cfg.Database); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to redis for guest carts
	redisClient, err := redisstore.NewClient(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Wire repositories and services
	repos := postgres.NewRepositories(db, logger)
	repos.GuestCart = redisstore.NewGuestCartRepository(redisClient, logger)

	deps := &handlers.Deps{
		Cfg:       cfg,
		Repos:     repos,
		Carts:     cart.NewManager(repos, cart.NewLogNotifier(logger), logger),
		Quoter:    pricing.NewRateQuoteClient(cfg.RateQuote, logger),
		Discounts: pricing.NewDiscountValidator(repos, logger),
		Provider:  payment.NewProviderClient(cfg.Payment, logger),
		Verifier:  payment.NewHTTPVerifier(cfg.Payment, logger),
		Checkouts: handlers.NewCheckoutSessions(),
		Logger:    logger,
	}

	router := api.NewRouter(deps)

	logger.Info("Starting server", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server exited", zap.Error(err))
	}
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-catalog-service/config"
	"github.com/fekuna/omnipos-catalog-service/internal/broker"
	"github.com/fekuna/omnipos-catalog-service/internal/cache"
	"github.com/fekuna/omnipos-catalog-service/internal/category"
	catRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/category/repository"
	catUCPkg "github.com/fekuna/omnipos-catalog-service/internal/category/usecase"
	"github.com/fekuna/omnipos-catalog-service/internal/database"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/pricing"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	prodRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-catalog-service/internal/product/usecase"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type app struct {
	cfg        *config.Config
	logger     logger.ZapLogger
	db         *sqlx.DB
	categories category.UseCase
	products   product.UseCase
	maxLevel   int
	closers    []func() error
}

func newLogger(cfg *config.Config) logger.ZapLogger {
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}
	return logger.NewZapLogger(logConfig)
}

func connect(cfg *config.Config, log logger.ZapLogger) (*sqlx.DB, error) {
	db, err := database.NewPostgres(&database.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	log.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))
	return db, nil
}

func newApp() (*app, error) {
	cfg := config.LoadEnv()
	log := newLogger(cfg)

	policy, err := pricing.ParsePolicy(cfg.Catalog.PricingPolicy)
	if err != nil {
		return nil, err
	}

	db, err := connect(cfg, log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: log, db: db, maxLevel: cfg.Catalog.MaxNestingLevel}
	a.closers = append(a.closers, db.Close)

	var prices cache.PriceCache = cache.NewMemoryPriceCache()
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("Could not connect to Redis, caching prices in memory", zap.Error(err))
		} else {
			log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
			prices = cache.NewRedisPriceCache(redisClient, cfg.Catalog.PriceCacheTTL)
			a.closers = append(a.closers, redisClient.Close)
		}
	}

	var dispatcher broker.Dispatcher = broker.NopDispatcher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaDispatcher := broker.NewKafkaDispatcher(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		dispatcher = kafkaDispatcher
		a.closers = append(a.closers, kafkaDispatcher.Close)
		log.Info("Publishing catalog events to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	catRepo := catRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)

	a.categories = catUCPkg.NewCategoryUseCase(catRepo, dispatcher, prices, cfg.Catalog.MaxNestingLevel, log)
	a.products = prodUCPkg.NewProductUseCase(prodRepo, catRepo, pricing.NewEngine(policy), prices, dispatcher, log)

	log.Info("Catalog ready",
		zap.Int("max_nesting_level", cfg.Catalog.MaxNestingLevel),
		zap.String("pricing_policy", policy.String()),
	)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (a *app) migrate(ctx context.Context) error {
	if err := database.Migrate(ctx, a.db); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	a.logger.Info("Schema applied")
	return nil
}

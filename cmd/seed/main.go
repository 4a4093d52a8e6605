// Command seed bootstraps a fresh deployment: indexes, the admin account,
// the category taxonomy, bank details and SiteConfig defaults. Running it
// again leaves existing data untouched.
package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"pakolx/market/internal/cache"
	"pakolx/market/internal/config"
	"pakolx/market/internal/db"
	"pakolx/market/internal/logging"
	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
)

func main() {
	cfg, err := config.Load("seed")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Errorf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	// Redis is optional here; it only lets running instances reload config.
	var redisClient *redis.Client
	if rdb, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		log.Warnf("Redis unavailable, running API instances will not be notified: %v", err)
	} else {
		redisClient = rdb
		defer func() {
			if err := cache.DisconnectRedis(redisClient); err != nil {
				log.Errorf("Error disconnecting from Redis: %v", err)
			}
		}()
	}

	if err := run(ctx, cfg, mongoDb, redisClient); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
	log.Info("Seed complete")
}

func run(ctx context.Context, cfg *config.Config, mongoDb *mongo.Database, rdb *redis.Client) error {
	if err := db.EnsureIndexes(ctx, mongoDb); err != nil {
		return err
	}

	if cfg.Seed.AdminEmail != "" && cfg.Seed.AdminPassword != "" {
		userService := services.NewUserService(mongoDb, cfg, nil)
		admin, created, err := userService.EnsureAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, cfg.Seed.AdminName)
		if err != nil {
			return err
		}
		if !admin.IsAdmin() {
			log.Warnf("User %s already exists without the admin role; leaving it as is", admin.Email)
		}
		log.WithFields(log.Fields{"email": admin.Email, "created": created}).Info("Admin account")
	} else {
		log.Warn("SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD not set; skipping admin account")
	}

	categoryService := services.NewCategoryService(mongoDb)
	seeded := 0
	for _, category := range buildTaxonomy() {
		created, err := categoryService.Ensure(ctx, category)
		if err != nil {
			return err
		}
		if created {
			seeded++
		}
	}
	log.WithFields(log.Fields{"created": seeded, "total": len(taxonomy)}).Info("Categories")

	configService := services.NewConfigService(mongoDb, cfg, rdb)
	if bank := bankDetailsFromConfig(cfg.Seed); bank != nil {
		created, err := configService.EnsureBankDetails(ctx, bank)
		if err != nil {
			return err
		}
		log.WithField("created", created).Info("Bank details")
	} else {
		log.Warn("SEED_BANK_NAME not set; skipping bank details")
	}

	inserted, err := configService.EnsureDefaults(ctx)
	if err != nil {
		return err
	}
	log.WithField("inserted", inserted).Info("Site config defaults")
	return nil
}

func bankDetailsFromConfig(seed config.SeedConfig) *models.BankDetails {
	if seed.BankName == "" {
		return nil
	}
	return &models.BankDetails{
		BankName:      seed.BankName,
		AccountTitle:  seed.BankAccountTitle,
		AccountNumber: seed.BankAccountNumber,
		IBAN:          seed.BankIBAN,
		Branch:        seed.BankBranch,
		Instructions:  seed.BankInstructions,
	}
}

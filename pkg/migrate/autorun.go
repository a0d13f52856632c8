package migrate

import (
	"context"
	"fmt"

	"github.com/avoronkov/laptopshop-backend/pkg/config"
	"github.com/avoronkov/laptopshop-backend/pkg/db"
	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
	"github.com/avoronkov/laptopshop-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode
// and the feature flag is enabled. On sqlite the goose SQL files do not apply, so the
// schema is synced from the GORM models instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"sqlite": cfg.FeatureFlags.UseSQLite,
	})

	if cfg.FeatureFlags.UseSQLite {
		logg.Info(ctx, "syncing schema from models (dev auto-migrate)")
		if err := client.DB().WithContext(ctx).AutoMigrate(allModels()...); err != nil {
			return fmt.Errorf("auto-migrating sqlite schema: %w", err)
		}
		logg.Info(ctx, "schema sync completed")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running Goose migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "Goose migrations completed")
	return nil
}

func allModels() []any {
	return []any{
		&models.User{},
		&models.Manufacturer{},
		&models.Product{},
		&models.ConfigurationVariant{},
		&models.AvailableConfiguration{},
		&models.CartEntry{},
		&models.Order{},
		&models.OrderLineItem{},
		&models.Payment{},
	}
}

package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uiso2025/uiso-admin-api/internal/api"
	"github.com/uiso2025/uiso-admin-api/internal/config"
	"github.com/uiso2025/uiso-admin-api/internal/db"
	"github.com/uiso2025/uiso-admin-api/internal/logger"
	"github.com/uiso2025/uiso-admin-api/internal/repository/dao"
)

const configPath = "./cmd/app/config.yml"

func Start() error {
	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}
	if err = logger.SetLevel(conf.Log.Level); err != nil {
		return fmt.Errorf("failed to set log level -> %w", err)
	}

	// Only the log level is reloadable; everything else needs a restart.
	err = config.Watch(configPath, func(c *config.AppConfig) {
		if err := logger.SetLevel(c.Log.Level); err != nil {
			zap.L().Warn("ignoring invalid log level", zap.String("level", c.Log.Level), zap.Error(err))
			return
		}
		zap.L().Info("config reloaded", zap.String("log_level", logger.Level().String()))
	}, func(err error) {
		zap.L().Warn("ignoring invalid config change", zap.Error(err))
	})
	if err != nil {
		return fmt.Errorf("failed to watch config -> %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	if conf.Registration.SeedCompetitions {
		if err = dao.SeedCompetitions(postgresDB, dao.DefaultCompetitions); err != nil {
			return fmt.Errorf("failed to seed competitions -> %w", err)
		}
	}

	s := api.NewServer(conf, postgresDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Hub.Run(ctx)

	addr := ":" + s.Config.API.Port
	zap.L().Info(fmt.Sprintf("starting server at %v", addr))
	if err = s.Router.Run(addr); err != nil {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}

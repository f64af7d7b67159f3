package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	api "github.com/ml4e-club/ml4e-site-backend/api"
	"github.com/ml4e-club/ml4e-site-backend/config"
	"github.com/ml4e-club/ml4e-site-backend/database"
	"github.com/ml4e-club/ml4e-site-backend/models"
	"github.com/ml4e-club/ml4e-site-backend/services"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("ml4e backend stopped")
	}
}

func run() error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Info().Msg("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("No .env file loaded")
	}

	c := config.New()
	if level, err := zerolog.ParseLevel(config.GetString(c, "LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if prefix := config.GetString(c, "SSM_PARAMETER_PATH", ""); prefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
		loaded, err := config.LoadParameters(ctx, c, ssm.NewFromConfig(awsCfg), prefix)
		if err != nil {
			return err
		}
		log.Info().Int("parameters", loaded).Str("path", prefix).Msg("Loaded SSM parameters")
	}

	opts := database.OptionsFromConfig(c)
	log.Info().Str("backend", opts.Type).Msg("Connecting to database...")

	manager, err := database.Connect(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := manager.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	if err := manager.Ping(ctx); err != nil {
		return fmt.Errorf("testing database connection: %w", err)
	}

	// If generating models, run generation and exit
	if config.GetBool(c, "GENERATE_MODELS", false) {
		if manager.GormDB() == nil {
			return fmt.Errorf("model generation needs a SQL backend, got %s", manager.Backend())
		}
		log.Info().Msg("Generating models and query helpers...")
		return models.GenerateModels(manager.GormDB(), config.GetString(c, "GENERATE_OUT_PATH", "./query"))
	}

	// If generating column mismatch report, run report and exit
	if config.GetBool(c, "GENERATE_COLUMN_REPORT", false) {
		if manager.GormDB() == nil {
			return fmt.Errorf("column report needs a SQL backend, got %s", manager.Backend())
		}
		mismatches, err := models.ColumnReport(manager.GormDB())
		if err != nil {
			return err
		}
		log.Info().Int("mismatches", mismatches).Msg("Column report finished")
		return nil
	}

	if err := manager.Migrate(ctx); err != nil {
		return err
	}

	images, err := services.NewImageHost(ctx, c)
	if err != nil {
		return err
	}

	server, err := api.NewServer(database.New(manager), images, services.NewNotifier(c), c)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Closing server")
		return server.ShutdownGracefully(config.GetSeconds(c, "SHUTDOWN_TIMEOUT_SECONDS", 30))
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		log.Info().Msg("Shutdown complete")
	}
	return nil
}

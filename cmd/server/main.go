package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alimohammadiamirhossein/project-7/internal/config"
	"github.com/alimohammadiamirhossein/project-7/internal/game"
	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
	"github.com/alimohammadiamirhossein/project-7/internal/repository"
	"github.com/alimohammadiamirhossein/project-7/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting duel server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, decks, err := loadContent(cfg.Content)
	if err != nil {
		logger.Fatal("failed to load card content", zap.Error(err))
	}
	logger.Info("card content loaded",
		zap.Int("cards", len(catalog.Names())),
		zap.Int("decks", len(decks)),
	)

	gameMgr := game.NewManager(catalog, decks, game.Settings{
		GameType:     game.GameType(cfg.Match.GameType),
		HandSize:     cfg.Match.HandSize,
		StartingMana: cfg.Match.StartingMana,
		MaxMana:      cfg.Match.MaxMana,
		MaxTurns:     cfg.Match.MaxTurns,
	}, logger)
	logger.Info("game manager initialized", zap.String("game_type", cfg.Match.GameType))

	if cfg.Match.ReplayDir != "" {
		gameMgr.SetReplayArchive(game.NewReplayArchive(cfg.Match.ReplayDir, logger))
		logger.Info("replay archiving enabled", zap.String("directory", cfg.Match.ReplayDir))
	}

	// Results are persisted only when a database is configured
	if cfg.Database.Enabled() {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		results := repository.NewResultsStore(db, logger)
		if err := results.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to prepare results schema", zap.Error(err))
		}
		gameMgr.SetRecorder(results)
	} else {
		logger.Warn("database not configured; match results will not be stored")
	}

	hub := server.NewHub(gameMgr, cfg.Server.WebSocket.ReadLimit, logger)
	gameMgr.SetNotifier(hub)

	wsServer, err := server.NewWebSocketServer(cfg.Server.WebSocket.Address, hub, logger)
	if err != nil {
		logger.Fatal("failed to listen for websocket clients", zap.Error(err))
	}
	grpcServer, err := server.NewGRPCServer(cfg.Server.GRPC.Address, logger)
	if err != nil {
		logger.Fatal("failed to listen for gRPC", zap.Error(err))
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := wsServer.Serve(ctx); err != nil {
			logger.Error("WebSocket server error", zap.Error(err))
			stop()
		}
	}()
	go func() {
		defer wg.Done()
		if err := grpcServer.Serve(ctx); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("duel server initialized",
		zap.String("version", version),
		zap.String("grpc_address", grpcServer.Addr()),
		zap.String("websocket_address", wsServer.Addr()),
	)

	<-ctx.Done()
	logger.Info("shutting down gracefully...", zap.Int("open_matches", gameMgr.Count()))
	grpcServer.SetServing(false)
	wg.Wait()

	logger.Info("duel server stopped")
}

func loadContent(cfg config.ContentConfig) (*cards.Catalog, map[string]cards.Deck, error) {
	if cfg.CardsFile == "" {
		catalog, err := cards.DefaultCatalog()
		if err != nil {
			return nil, nil, err
		}
		decks, err := cards.DefaultDecks(catalog)
		return catalog, decks, err
	}

	catalog, err := cards.LoadCatalog(cfg.CardsFile)
	if err != nil {
		return nil, nil, err
	}
	decks, err := cards.LoadDeckFile(cfg.DecksFile, catalog)
	return catalog, decks, err
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

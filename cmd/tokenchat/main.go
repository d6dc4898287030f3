package main

//	@title			TokenChat API
//	@version		0.1.0
//	@description	Chat completion service with token-window management.
//	@BasePath		/api/v1

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/HerbHall/tokenchat/api/swagger"
	"github.com/HerbHall/tokenchat/internal/chatstore"
	"github.com/HerbHall/tokenchat/internal/completion"
	"github.com/HerbHall/tokenchat/internal/config"
	"github.com/HerbHall/tokenchat/internal/llm"
	"github.com/HerbHall/tokenchat/internal/server"
	"github.com/HerbHall/tokenchat/internal/store"
	"github.com/HerbHall/tokenchat/internal/tokenizer"
	"github.com/HerbHall/tokenchat/internal/version"
	"github.com/HerbHall/tokenchat/internal/ws"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(version.Info())
		return
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger from configuration.
	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("TokenChat server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	srvCfg, err := config.Server(viperCfg)
	if err != nil {
		logger.Fatal("invalid server configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open database
	dsn := config.DatabaseDSN(viperCfg)
	if dsn == "" {
		dsn = "tokenchat.db"
	}
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("failed to create data directory", zap.Error(err))
		}
	}
	db, err := store.New(dsn)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		logger.Fatal("schema version check failed", zap.Error(err))
	}

	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", dsn),
	)

	// Create chat store
	chatStore, err := chatstore.New(ctx, db)
	if err != nil {
		logger.Fatal("failed to initialize chat store", zap.Error(err))
	}
	logger.Info("chat store initialized", zap.String("component", "chatstore"))

	// Create tokenizer for the default chat model
	chatDefaults := config.ChatDefaults(viperCfg)
	counter, err := tokenizer.ForModel(chatDefaults.Model)
	if err != nil {
		logger.Fatal("failed to initialize tokenizer",
			zap.String("model", chatDefaults.Model),
			zap.Error(err),
		)
	}
	logger.Info("tokenizer initialized",
		zap.String("component", "tokenizer"),
		zap.String("model", chatDefaults.Model),
	)

	// Create completion provider
	llmCfg, err := config.LLM(viperCfg)
	if err != nil {
		logger.Fatal("invalid llm configuration", zap.Error(err))
	}
	provider, err := llm.NewProvider(llmCfg, logger.Named("llm"))
	if err != nil {
		logger.Fatal("failed to create completion provider", zap.Error(err))
	}

	healthCtx, healthCancel := context.WithTimeout(ctx, 10*time.Second)
	llm.ReportHealth(healthCtx, llmCfg.Provider, provider, logger.Named("llm"))
	healthCancel()

	// Wire the completion pipeline and API handlers
	uc := completion.New(chatStore, provider, counter, logger.Named("completion"))
	chatHandler := server.NewChatHandler(uc, chatStore, chatDefaults, logger.Named("chat"))
	wsHandler := ws.NewHandler(uc, chatDefaults, logger.Named("ws"))
	logger.Info("completion pipeline initialized", zap.String("component", "completion"))

	// Create and start HTTP server
	addr := srvCfg.Addr()
	logger.Info("HTTP server configured",
		zap.String("component", "server"),
		zap.String("addr", addr),
	)
	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})
	srv := server.New(addr, logger, readyCheck, srvCfg.DevMode, chatHandler, wsHandler)

	// Start server in background
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("TokenChat server ready", zap.String("addr", addr))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("TokenChat server stopped")
}

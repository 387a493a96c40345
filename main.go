package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Morfeo1997/v0-clear-vote/auth"
	"github.com/Morfeo1997/v0-clear-vote/chain"
	"github.com/Morfeo1997/v0-clear-vote/cliparse"
	"github.com/Morfeo1997/v0-clear-vote/db"
	"github.com/Morfeo1997/v0-clear-vote/keys"
	"github.com/Morfeo1997/v0-clear-vote/middleware"
	"github.com/Morfeo1997/v0-clear-vote/reconcile"
	"github.com/Morfeo1997/v0-clear-vote/router"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	_ = godotenv.Load()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready")

	// Load or generate the RSA pair backing smart-wallet sessions
	keyManager, err := keys.Load(cfg.KeysDir)
	if err != nil {
		slog.Error("key loading failed", "error", err)
		os.Exit(1)
	}

	resolver := auth.NewResolver(dbConn, cfg.JWTSecret, cfg.Issuer, cfg.Audience, keyManager.Public())

	deps := router.Deps{
		Resolver: resolver,
		Keys:     keyManager,
	}

	// Chain components are optional: without an RPC URL the server runs on
	// the relational store alone.
	if cfg.ChainEnabled() {
		writer, err := chain.NewWriter(cfg.RPCURL, cfg.ContractAddress, cfg.OperatorKey, cfg.ChainID)
		if err != nil {
			slog.Error("chain writer setup failed", "error", err)
			os.Exit(1)
		}
		reader, err := chain.NewReader(cfg.RPCURL, cfg.ContractAddress)
		if err != nil {
			slog.Error("chain reader setup failed", "error", err)
			os.Exit(1)
		}
		deps.Writer = writer
		deps.Status = reader
		deps.Engine = reconcile.NewEngine(dbConn, reader)
		slog.Info("Chain integration enabled", "contract", cfg.ContractAddress, "chain_id", cfg.ChainID)
	} else {
		slog.Info("Chain integration disabled; running store-only")
	}

	// Create router
	mux := router.NewRouter(dbConn, cfg, deps)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}

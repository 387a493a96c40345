// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/Morfeo1997/v0-clear-vote/auth"
	"github.com/Morfeo1997/v0-clear-vote/cliparse"
	"github.com/Morfeo1997/v0-clear-vote/handlers"
	"github.com/Morfeo1997/v0-clear-vote/keys"
	"github.com/Morfeo1997/v0-clear-vote/middleware"
	"github.com/Morfeo1997/v0-clear-vote/reconcile"
)

// Deps carries the shared dependencies the handlers need beyond the
// database. Writer, Engine, and Status are nil in chain-less mode.
type Deps struct {
	Resolver *auth.Resolver
	Keys     *keys.Manager
	Writer   handlers.LedgerWriter
	Engine   *reconcile.Engine
	Status   handlers.LedgerStatus
}

func NewRouter(db *sql.DB, cfg cliparse.Config, deps Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(db, cfg, deps.Writer)
	candidacyHandler := handlers.NewCandidacyHandler(db, cfg, deps.Writer)
	votingHandler := handlers.NewVotingHandler(db, cfg, deps.Writer)
	resultsHandler := handlers.NewResultsHandler(db, cfg)
	syncHandler := handlers.NewSyncHandler(db, cfg, deps.Engine, deps.Status)
	wellKnownHandler := handlers.NewWellKnownHandler(cfg, deps.Keys)

	// Every application endpoint sits behind credential resolution.
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.WithAuth(deps.Resolver, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Elections
	mux.HandleFunc("POST /elections", protected(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections", protected(electionHandler.ListElections))
	mux.HandleFunc("GET /elections/{id}/candidates", protected(candidacyHandler.ListCandidates))
	mux.HandleFunc("GET /elections/{id}/results", protected(resultsHandler.GetElectionResults))

	// Candidacies
	mux.HandleFunc("POST /candidacies", protected(candidacyHandler.RequestCandidacy))
	mux.HandleFunc("POST /candidacies/approve", protected(candidacyHandler.ApproveCandidacy))

	// Voting
	mux.HandleFunc("POST /votes", protected(votingHandler.CastVote))

	// On-chain reconciliation (triggered by cron or an operator)
	mux.HandleFunc("GET /sync/events", protected(syncHandler.SyncEvents))
	mux.HandleFunc("POST /sync/events", protected(syncHandler.SyncEvents))
	mux.HandleFunc("GET /sync/status", protected(syncHandler.SyncStatus))
	mux.HandleFunc("GET /sync/verify/{id}", protected(syncHandler.VerifyElection))

	// Identity discovery (public, cacheable)
	mux.HandleFunc("GET /.well-known/jwks.json", middleware.WithLogging(wellKnownHandler.JWKS))
	mux.HandleFunc("GET /.well-known/openid-configuration", middleware.WithLogging(wellKnownHandler.OpenIDConfiguration))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("clear-vote API v1"))
	})

	return mux
}

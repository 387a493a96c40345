// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Clear Vote API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - ElectionHandler: Election creation and listing
  - CandidacyHandler: Candidacy requests, approval decisions, candidate listing
  - VotingHandler: Vote casting with the dual-write protocol
  - ResultsHandler: Live and final election results
  - SyncHandler: On-chain event reconciliation and chain status
  - WellKnownHandler: JWKS and OpenID discovery documents

Handlers are created via constructor functions; those that write to the
ledger additionally take a LedgerWriter, which may be nil for chain-less
deployments:

	electionHandler := handlers.NewElectionHandler(db, cfg, writer)

# Election Lifecycle

	POST /elections               → CreateElection (owner role, on-chain first)
	POST /candidacies             → RequestCandidacy (inside candidacy window)
	POST /candidacies/approve     → ApproveCandidacy (election owner, DB first)
	POST /votes                   → CastVote (inside voting window, chain first)
	GET  /elections/{id}/results  → GetElectionResults

All application endpoints require a bearer credential resolved by the auth
package; identity discovery and health endpoints are public.

# Dual-Write Ordering

Election creation and voting write the ledger before the store: a chain
rejection aborts the operation. Candidacy approval writes the store before
the ledger: a chain failure is logged and the approval stands. The sync
endpoints replay VoteCast events to repair whatever drift either ordering
leaves behind:

	GET|POST /sync/events      → SyncEvents (optional electionId, forceSync)
	GET      /sync/status      → SyncStatus (chain height, election count)
	GET      /sync/verify/{id} → VerifyElection (store vs contract diff)
*/
package handlers

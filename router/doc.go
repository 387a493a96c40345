// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Clear Vote API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, deps)

deps carries the credential resolver, the signing key manager, and the
optional chain components (nil in chain-less deployments).

# Endpoints

Health:

	GET /health

Elections (bearer credential required):

	POST /elections                  - Create election (owner role)
	GET  /elections                  - List elections with derived status
	GET  /elections/{id}/candidates  - List candidates
	GET  /elections/{id}/results     - Live or final results

Candidacies (bearer credential required):

	POST /candidacies         - Request candidacy
	POST /candidacies/approve - Approve or reject (election owner)

Voting (bearer credential required):

	POST /votes - Cast vote

Reconciliation (bearer credential required):

	GET|POST /sync/events      - Replay on-chain VoteCast events
	GET      /sync/status      - Chain height and on-chain election count
	GET      /sync/verify/{id} - Compare store and contract for one election

Identity discovery (public):

	GET /.well-known/jwks.json
	GET /.well-known/openid-configuration
*/
package router

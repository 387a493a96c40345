// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Clear Vote API server.

Clear Vote runs academic elections whose votes are anchored on an external
ledger: every accepted vote exists both as a relational row and as a
VoteCast event on the voting contract, keyed by the same opaque vote hash.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=postgres://... JWT_SECRET=... go run .

Or with flags:

	go run . -p 3000 -d "postgres://..." -jwt-secret "..."

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL or SQLite connection string
  - JWT_SECRET (-jwt-secret): HS256 secret for traditional sessions

Optional settings:

  - PORT (-p): Server port (default: 3000)
  - DATABASE_TYPE (-t): "postgres" (default) or "sqlite"
  - OIDC_ISSUER (-issuer): Expected token issuer
  - SMART_WALLET_AUDIENCE_ID (-audience): Expected token audience
  - KEYS_DIR (-keys-dir): RSA signing key directory (default: keys)
  - ALCHEMY_RPC_URL (-rpc-url): Ledger RPC endpoint; empty runs store-only
  - CONTRACT_ADDRESS (-contract): Voting contract address
  - PRIVATE_KEY_OWNER (-operator-key): Funded operator private key
  - CHAIN_ID (-chain-id): Ledger chain id (default: 137)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (elections, candidacies, votes, results, sync)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, auth gate, JSON helpers
  - models: Request/response and domain types
  - auth: Credential resolution and vote hash generation
  - keys: RSA signing key management and JWKS publication
  - chain: Voting contract writer, reader, and event decoding
  - reconcile: On-chain event replay into the relational store
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main

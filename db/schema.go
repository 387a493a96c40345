// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to the configured database. dbType is "postgres" or
// "sqlite"; the schema below runs unmodified on both.
func Open(dbType, url string) (*sql.DB, error) {
	driver := "postgres"
	if dbType == "sqlite" {
		driver = "sqlite"
	}
	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dbType, err)
	}
	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Users
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    dni TEXT NOT NULL UNIQUE,
    institution TEXT,
    role TEXT NOT NULL DEFAULT 'votante',
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);

-- Parties
CREATE TABLE IF NOT EXISTS parties (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT,
    logo_url TEXT
);

-- Elections
CREATE TABLE IF NOT EXISTS elections (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    start_date TIMESTAMP NOT NULL,
    end_date TIMESTAMP NOT NULL,
    candidacy_start TIMESTAMP NOT NULL,
    candidacy_end TIMESTAMP NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'active', 'ended', 'cancelled')),
    max_candidates_per_party INTEGER NOT NULL DEFAULT 1,
    onchain_election_id BIGINT,
    last_block_processed BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_elections_status ON elections(status);
CREATE INDEX IF NOT EXISTS idx_elections_onchain_id ON elections(onchain_election_id);

-- Election owners
CREATE TABLE IF NOT EXISTS election_owners (
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    election_id TEXT NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
    role TEXT NOT NULL DEFAULT 'owner',
    PRIMARY KEY (user_id, election_id)
);

-- Candidates
CREATE TABLE IF NOT EXISTS candidates (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    election_id TEXT NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
    party_id TEXT REFERENCES parties(id),
    description TEXT,
    proposals TEXT,
    photo_url TEXT,
    is_approved BOOLEAN NOT NULL DEFAULT FALSE,
    onchain_candidate_id BIGINT,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (user_id, election_id),
    -- Slot uniqueness backstops the sequential assignment under concurrent
    -- approvals; NULLs (unapproved candidates) never collide.
    UNIQUE (election_id, onchain_candidate_id)
);

CREATE INDEX IF NOT EXISTS idx_candidates_election ON candidates(election_id);

-- Voters (registered out-of-band; has_voted flips false->true at most once)
CREATE TABLE IF NOT EXISTS voters (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    election_id TEXT NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
    has_voted BOOLEAN NOT NULL DEFAULT FALSE,
    vote_hash TEXT,
    voted_at TIMESTAMP,
    UNIQUE (user_id, election_id)
);

CREATE INDEX IF NOT EXISTS idx_voters_election ON voters(election_id);
CREATE INDEX IF NOT EXISTS idx_voters_hash ON voters(election_id, vote_hash);

-- Votes. vote_hash uniqueness is the reconciliation idempotency boundary:
-- concurrent scans over overlapping block ranges rely on this constraint.
CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
    candidate_id TEXT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
    vote_hash TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_votes_election ON votes(election_id);
CREATE INDEX IF NOT EXISTS idx_votes_candidate ON votes(election_id, candidate_id);
`

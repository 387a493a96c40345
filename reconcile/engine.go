// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Morfeo1997/v0-clear-vote/chain"
	"github.com/Morfeo1997/v0-clear-vote/models"
)

// EventSource is the slice of the chain reader the engine depends on.
type EventSource interface {
	LatestBlock(ctx context.Context) (uint64, error)
	VoteCastEvents(ctx context.Context, from, to uint64) ([]chain.VoteCastEvent, error)
}

// Engine reads VoteCast events from the ledger and applies them to the
// relational store exactly once per vote hash. It takes no locks: safety
// under concurrent runs rests on the votes.vote_hash UNIQUE constraint and
// on the monotonic cursor update, both enforced by the storage layer.
type Engine struct {
	db     *sql.DB
	source EventSource
}

// Options selects which elections to reconcile. An empty ElectionID means
// every draft/active election with an on-chain id. ForceSync replays from
// block 0 (administrative recovery; dedup makes this safe).
type Options struct {
	ElectionID string
	ForceSync  bool
}

func NewEngine(db *sql.DB, source EventSource) *Engine {
	return &Engine{db: db, source: source}
}

// Run performs one reconciliation pass. Errors scanning one election never
// abort the others; they are aggregated into the report.
func (e *Engine) Run(ctx context.Context, opts Options) (models.SyncData, error) {
	elections, err := e.trackedElections(opts.ElectionID)
	if err != nil {
		return models.SyncData{}, err
	}
	if len(elections) == 0 {
		return models.SyncData{}, nil
	}

	latest, err := e.source.LatestBlock(ctx)
	if err != nil {
		return models.SyncData{}, fmt.Errorf("failed to fetch latest block: %w", err)
	}

	report := models.SyncData{
		ProcessedElections: len(elections),
		LatestBlock:        latest,
	}

	for _, election := range elections {
		processed, err := e.syncElection(ctx, election, latest, opts.ForceSync)
		if err != nil {
			slog.Error("election sync failed", "election_id", election.ID, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", election.ID, err))
			continue
		}
		report.EventsProcessed += processed
	}

	for _, election := range elections {
		stat, err := e.electionStats(election, latest)
		if err != nil {
			slog.Error("failed to compute sync statistics", "election_id", election.ID, "error", err)
			continue
		}
		report.Statistics = append(report.Statistics, stat)
	}

	return report, nil
}

// trackedElections returns the elections eligible for reconciliation:
// those carrying an on-chain id, either the requested one or all in
// draft/active status.
func (e *Engine) trackedElections(electionID string) ([]models.Election, error) {
	query := `
		SELECT id, title, onchain_election_id, last_block_processed
		FROM elections
		WHERE onchain_election_id IS NOT NULL`
	args := []any{}
	if electionID != "" {
		query += ` AND id = $1`
		args = append(args, electionID)
	} else {
		query += ` AND status IN ('draft', 'active')`
	}

	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch elections: %w", err)
	}
	defer rows.Close()

	var elections []models.Election
	for rows.Next() {
		var el models.Election
		var onchainID sql.NullInt64
		if err := rows.Scan(&el.ID, &el.Title, &onchainID, &el.LastBlockProcessed); err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		if onchainID.Valid {
			id := uint64(onchainID.Int64)
			el.OnchainElectionID = &id
		}
		elections = append(elections, el)
	}
	return elections, rows.Err()
}

// syncElection scans (lastBlockProcessed, latest] for this election and
// applies new vote events. The cursor advances only after the whole batch
// has been applied: a crash mid-batch re-scans the same range next run and
// the vote-hash dedup keeps the re-scan from double counting.
func (e *Engine) syncElection(ctx context.Context, election models.Election, latest uint64, force bool) (int, error) {
	from := election.LastBlockProcessed
	if force {
		from = 0
	}
	if from >= latest {
		// Already up to date; frequent polling lands here.
		return 0, nil
	}
	if !force {
		from++
	}

	events, err := e.source.VoteCastEvents(ctx, from, latest)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch vote events: %w", err)
	}

	processed := 0
	for _, event := range events {
		// The log stream carries events for every election on the
		// contract; keep only ours.
		if election.OnchainElectionID == nil || event.ElectionID != *election.OnchainElectionID {
			continue
		}

		applied, err := e.applyEvent(election, event)
		if err != nil {
			slog.Error("failed to apply vote event",
				"election_id", election.ID,
				"vote_hash", event.VoteHash,
				"error", err,
			)
			continue
		}
		if applied {
			processed++
		}
	}

	if err := e.advanceCursor(election.ID, latest); err != nil {
		return processed, err
	}

	slog.Info("election synced", "election_id", election.ID, "to_block", latest, "events", processed)
	return processed, nil
}

// applyEvent inserts the vote behind the event if it is new. Returns false
// when the event was skipped (unknown candidate or already recorded).
func (e *Engine) applyEvent(election models.Election, event chain.VoteCastEvent) (bool, error) {
	var candidateID string
	err := e.db.QueryRow(`
		SELECT id FROM candidates
		WHERE election_id = $1 AND onchain_candidate_id = $2
	`, election.ID, int64(event.CandidateID)).Scan(&candidateID)
	if err == sql.ErrNoRows {
		// On-chain candidate not synced locally yet; not fatal.
		slog.Warn("no local candidate for on-chain id",
			"election_id", election.ID,
			"onchain_candidate_id", event.CandidateID,
		)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to resolve candidate: %w", err)
	}

	var exists bool
	err = e.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM votes WHERE vote_hash = $1)
	`, event.VoteHash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check vote hash: %w", err)
	}
	if exists {
		// Idempotency boundary: re-scans over overlapping ranges land here.
		return false, nil
	}

	_, err = e.db.Exec(`
		INSERT INTO votes (id, election_id, candidate_id, vote_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), election.ID, candidateID, event.VoteHash, time.Now())
	if err != nil {
		// A concurrent run may have inserted the same hash between the
		// existence check and here; the UNIQUE constraint rejects the
		// duplicate and the event is simply not ours to count.
		slog.Warn("vote insert rejected", "vote_hash", event.VoteHash, "error", err)
		return false, nil
	}

	// Best-effort voter flag flip by hash match. Under anonymous voting
	// the voter row usually carries a hash written at cast time, so a
	// miss here is expected and not an error.
	_, _ = e.db.Exec(`
		UPDATE voters
		SET has_voted = TRUE, voted_at = $1
		WHERE election_id = $2 AND vote_hash = $3
	`, time.Now(), election.ID, event.VoteHash)

	return true, nil
}

// advanceCursor moves last_block_processed forward, never back. The
// conditional update is the compare-and-set that keeps a concurrent run
// from silently rolling the cursor backwards.
func (e *Engine) advanceCursor(electionID string, latest uint64) error {
	_, err := e.db.Exec(`
		UPDATE elections
		SET last_block_processed = $1
		WHERE id = $2 AND last_block_processed < $3
	`, int64(latest), electionID, int64(latest))
	if err != nil {
		return fmt.Errorf("failed to advance block cursor: %w", err)
	}
	return nil
}

func (e *Engine) electionStats(election models.Election, latest uint64) (models.ElectionSync, error) {
	stat := models.ElectionSync{
		ElectionID:         election.ID,
		ElectionTitle:      election.Title,
		OnchainID:          election.OnchainElectionID,
		LastBlockProcessed: latest,
	}

	err := e.db.QueryRow(`SELECT COUNT(id) FROM votes WHERE election_id = $1`, election.ID).Scan(&stat.TotalVotes)
	if err != nil {
		return stat, fmt.Errorf("failed to count votes: %w", err)
	}
	err = e.db.QueryRow(`SELECT COUNT(id) FROM voters WHERE election_id = $1`, election.ID).Scan(&stat.TotalVoters)
	if err != nil {
		return stat, fmt.Errorf("failed to count voters: %w", err)
	}
	return stat, nil
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Morfeo1997/v0-clear-vote/chain"
	"github.com/Morfeo1997/v0-clear-vote/models"
	"github.com/Morfeo1997/v0-clear-vote/testutil"
)

type fakeSource struct {
	latest    uint64
	events    []chain.VoteCastEvent
	latestErr error
	eventsErr error

	ranges [][2]uint64
}

func (f *fakeSource) LatestBlock(ctx context.Context) (uint64, error) {
	return f.latest, f.latestErr
}

func (f *fakeSource) VoteCastEvents(ctx context.Context, from, to uint64) ([]chain.VoteCastEvent, error) {
	f.ranges = append(f.ranges, [2]uint64{from, to})
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, nil
}

func TestRunAppliesEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)

	owner := testutil.CreateTestUser(t, db, models.RoleOwner)
	voter := testutil.CreateTestUser(t, db, models.RoleVoter)
	electionID := testutil.CreateTestElection(t, db, owner, "voting")
	testutil.SetOnchainElectionID(t, db, electionID, 7)

	candidateUser := testutil.CreateTestUser(t, db, models.RoleVoter)
	candidateID := testutil.CreateTestCandidate(t, db, candidateUser, electionID, "", true)
	testutil.SetOnchainCandidateID(t, db, candidateID, 1)

	// A voter who cast on-chain but whose local row never got flagged.
	testutil.RegisterTestVoter(t, db, voter, electionID)
	if _, err := db.Exec(`
		UPDATE voters SET vote_hash = 'hash-1' WHERE user_id = $1 AND election_id = $2
	`, voter, electionID); err != nil {
		t.Fatalf("Failed to seed voter hash: %v", err)
	}

	source := &fakeSource{
		latest: 50,
		events: []chain.VoteCastEvent{
			{ElectionID: 7, CandidateID: 1, Voter: "0xop", VoteHash: "hash-1", TotalVotes: 1, BlockNumber: 42},
			{ElectionID: 99, CandidateID: 1, Voter: "0xop", VoteHash: "hash-other", TotalVotes: 1, BlockNumber: 43},
		},
	}
	engine := NewEngine(db, source)

	report, err := engine.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.EventsProcessed != 1 {
		t.Errorf("EventsProcessed = %d, want 1 (foreign election filtered)", report.EventsProcessed)
	}
	if report.LatestBlock != 50 {
		t.Errorf("LatestBlock = %d, want 50", report.LatestBlock)
	}

	// The event became a vote row attributed to the local candidate.
	var count int
	if err := db.QueryRow(`
		SELECT COUNT(id) FROM votes WHERE election_id = $1 AND candidate_id = $2 AND vote_hash = 'hash-1'
	`, electionID, candidateID).Scan(&count); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	if count != 1 {
		t.Errorf("vote rows = %d, want 1", count)
	}

	// The matching voter row was flagged by hash.
	var hasVoted bool
	if err := db.QueryRow(`
		SELECT has_voted FROM voters WHERE user_id = $1 AND election_id = $2
	`, voter, electionID).Scan(&hasVoted); err != nil {
		t.Fatalf("Failed to read voter: %v", err)
	}
	if !hasVoted {
		t.Error("voter flag not flipped by hash match")
	}

	// Cursor moved to the chain head, not the event block.
	var cursor uint64
	if err := db.QueryRow(`SELECT last_block_processed FROM elections WHERE id = $1`, electionID).Scan(&cursor); err != nil {
		t.Fatalf("Failed to read cursor: %v", err)
	}
	if cursor != 50 {
		t.Errorf("cursor = %d, want 50", cursor)
	}

	if len(report.Statistics) != 1 || report.Statistics[0].TotalVotes != 1 {
		t.Errorf("Statistics = %+v, want one election with one vote", report.Statistics)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)

	owner := testutil.CreateTestUser(t, db, models.RoleOwner)
	electionID := testutil.CreateTestElection(t, db, owner, "voting")
	testutil.SetOnchainElectionID(t, db, electionID, 1)

	candidateUser := testutil.CreateTestUser(t, db, models.RoleVoter)
	candidateID := testutil.CreateTestCandidate(t, db, candidateUser, electionID, "", true)
	testutil.SetOnchainCandidateID(t, db, candidateID, 1)

	source := &fakeSource{
		latest: 10,
		events: []chain.VoteCastEvent{
			{ElectionID: 1, CandidateID: 1, VoteHash: "dup-hash", BlockNumber: 5},
		},
	}
	engine := NewEngine(db, source)

	if _, err := engine.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	// Second plain run: cursor is at the head, nothing is fetched.
	report, err := engine.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if report.EventsProcessed != 0 {
		t.Errorf("second run processed %d events, want 0", report.EventsProcessed)
	}

	// Forced replay from block zero re-fetches everything; the vote-hash
	// dedup keeps the count at one.
	report, err = engine.Run(context.Background(), Options{ForceSync: true})
	if err != nil {
		t.Fatalf("forced Run() error = %v", err)
	}
	if report.EventsProcessed != 0 {
		t.Errorf("forced run processed %d events, want 0 (all duplicates)", report.EventsProcessed)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(id) FROM votes WHERE vote_hash = 'dup-hash'`).Scan(&count); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	if count != 1 {
		t.Errorf("vote rows = %d, want exactly 1 after replays", count)
	}
}

func TestRunSkipsUnknownCandidate(t *testing.T) {
	db := testutil.SetupTestDB(t)

	owner := testutil.CreateTestUser(t, db, models.RoleOwner)
	electionID := testutil.CreateTestElection(t, db, owner, "voting")
	testutil.SetOnchainElectionID(t, db, electionID, 1)

	source := &fakeSource{
		latest: 20,
		events: []chain.VoteCastEvent{
			{ElectionID: 1, CandidateID: 9, VoteHash: "orphan-hash", BlockNumber: 15},
		},
	}
	engine := NewEngine(db, source)

	report, err := engine.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The orphan event is skipped, not fatal, and the cursor still moves
	// so the batch is not replayed forever.
	if report.EventsProcessed != 0 {
		t.Errorf("EventsProcessed = %d, want 0", report.EventsProcessed)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Errors = %v, want none", report.Errors)
	}

	var cursor uint64
	if err := db.QueryRow(`SELECT last_block_processed FROM elections WHERE id = $1`, electionID).Scan(&cursor); err != nil {
		t.Fatalf("Failed to read cursor: %v", err)
	}
	if cursor != 20 {
		t.Errorf("cursor = %d, want 20", cursor)
	}
}

func TestRunCursorNeverMovesBackwards(t *testing.T) {
	db := testutil.SetupTestDB(t)

	owner := testutil.CreateTestUser(t, db, models.RoleOwner)
	electionID := testutil.CreateTestElection(t, db, owner, "voting")
	testutil.SetOnchainElectionID(t, db, electionID, 1)
	if _, err := db.Exec(`UPDATE elections SET last_block_processed = 100 WHERE id = $1`, electionID); err != nil {
		t.Fatalf("Failed to seed cursor: %v", err)
	}

	// Chain head behind the stored cursor (a lagging RPC node).
	engine := NewEngine(db, &fakeSource{latest: 60})

	if _, err := engine.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var cursor uint64
	if err := db.QueryRow(`SELECT last_block_processed FROM elections WHERE id = $1`, electionID).Scan(&cursor); err != nil {
		t.Fatalf("Failed to read cursor: %v", err)
	}
	if cursor != 100 {
		t.Errorf("cursor = %d, want 100 (never rolled back)", cursor)
	}
}

func TestRunIsolatesPerElectionFailures(t *testing.T) {
	db := testutil.SetupTestDB(t)

	owner := testutil.CreateTestUser(t, db, models.RoleOwner)
	first := testutil.CreateTestElection(t, db, owner, "voting")
	second := testutil.CreateTestElection(t, db, owner, "voting")
	testutil.SetOnchainElectionID(t, db, first, 1)
	testutil.SetOnchainElectionID(t, db, second, 2)

	source := &fakeSource{latest: 30, eventsErr: errors.New("rpc unavailable")}
	engine := NewEngine(db, source)

	report, err := engine.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v, want aggregated per-election errors", err)
	}

	if len(report.Errors) != 2 {
		t.Errorf("Errors = %v, want one entry per failed election", report.Errors)
	}
	if report.ProcessedElections != 2 {
		t.Errorf("ProcessedElections = %d, want 2", report.ProcessedElections)
	}
}

// TestRunConcurrentSingleInsert verifies that two passes racing over the same
// event range insert the vote exactly once. The votes.vote_hash UNIQUE
// constraint, not a lock, is what keeps the loser from double counting.
func TestRunConcurrentSingleInsert(t *testing.T) {
	db := testutil.SetupTestDB(t)

	owner := testutil.CreateTestUser(t, db, models.RoleOwner)
	electionID := testutil.CreateTestElection(t, db, owner, "voting")
	testutil.SetOnchainElectionID(t, db, electionID, 1)

	candidateUser := testutil.CreateTestUser(t, db, models.RoleVoter)
	candidateID := testutil.CreateTestCandidate(t, db, candidateUser, electionID, "", true)
	testutil.SetOnchainCandidateID(t, db, candidateID, 1)

	event := chain.VoteCastEvent{ElectionID: 1, CandidateID: 1, VoteHash: "raced-hash", BlockNumber: 3}

	numRunners := 4
	var wg sync.WaitGroup
	for i := 0; i < numRunners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each runner gets its own source so the fake's bookkeeping
			// is not shared across goroutines.
			engine := NewEngine(db, &fakeSource{latest: 10, events: []chain.VoteCastEvent{event}})
			if _, err := engine.Run(context.Background(), Options{ForceSync: true}); err != nil {
				t.Errorf("Run() error = %v", err)
			}
		}()
	}
	wg.Wait()

	var count int
	if err := db.QueryRow(`SELECT COUNT(id) FROM votes WHERE vote_hash = 'raced-hash'`).Scan(&count); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	if count != 1 {
		t.Errorf("vote rows = %d, want exactly 1 under concurrent runs", count)
	}

	var cursor uint64
	if err := db.QueryRow(`SELECT last_block_processed FROM elections WHERE id = $1`, electionID).Scan(&cursor); err != nil {
		t.Fatalf("Failed to read cursor: %v", err)
	}
	if cursor != 10 {
		t.Errorf("cursor = %d, want 10", cursor)
	}
}

func TestRunSingleElectionFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)

	owner := testutil.CreateTestUser(t, db, models.RoleOwner)
	target := testutil.CreateTestElection(t, db, owner, "voting")
	other := testutil.CreateTestElection(t, db, owner, "voting")
	testutil.SetOnchainElectionID(t, db, target, 1)
	testutil.SetOnchainElectionID(t, db, other, 2)

	source := &fakeSource{latest: 5}
	engine := NewEngine(db, source)

	report, err := engine.Run(context.Background(), Options{ElectionID: target})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.ProcessedElections != 1 {
		t.Errorf("ProcessedElections = %d, want 1", report.ProcessedElections)
	}
	if len(report.Statistics) != 1 || report.Statistics[0].ElectionID != target {
		t.Errorf("Statistics = %+v, want only the requested election", report.Statistics)
	}
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Morfeo1997/v0-clear-vote/models"
	"github.com/Morfeo1997/v0-clear-vote/testutil"
)

// TestConcurrentVoteCasting verifies that simultaneous votes from different
// voters all land without corruption or duplicates.
func TestConcurrentVoteCasting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewVotingHandler(db, cfg, nil)

	ownerID := testutil.CreateTestUser(t, db, models.RoleOwner)
	electionID := testutil.CreateTestElection(t, db, ownerID, "voting")

	candidateUser := testutil.CreateTestUser(t, db, models.RoleVoter)
	candidateID := testutil.CreateTestCandidate(t, db, candidateUser, electionID, "", true)

	numVoters := 10
	tokens := make([]map[string]string, numVoters)
	for i := 0; i < numVoters; i++ {
		userID := testutil.CreateTestUser(t, db, models.RoleVoter)
		testutil.RegisterTestVoter(t, db, userID, electionID)
		tokens[i] = bearer(t, cfg, userID)
	}

	voteReq := models.VoteRequest{ElectionID: electionID, CandidateID: candidateID}
	guarded := protect(db, cfg, handler.CastVote)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			r := testutil.MakeRequest("POST", "/votes", voteReq, tokens[idx])
			w := httptest.NewRecorder()
			guarded(w, r)

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if int(successCount.Load()) != numVoters {
		t.Errorf("Expected %d successful votes, got %d", numVoters, successCount.Load())
	}

	var voteCount int
	if err := db.QueryRow(`SELECT COUNT(id) FROM votes WHERE election_id = $1`, electionID).Scan(&voteCount); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	if voteCount != numVoters {
		t.Errorf("Expected %d votes in database, got %d", numVoters, voteCount)
	}

	// Every hash is distinct.
	var uniqueHashes int
	if err := db.QueryRow(`SELECT COUNT(DISTINCT vote_hash) FROM votes WHERE election_id = $1`, electionID).Scan(&uniqueHashes); err != nil {
		t.Fatalf("Failed to count unique hashes: %v", err)
	}
	if uniqueHashes != numVoters {
		t.Errorf("Expected %d unique vote hashes, got %d", numVoters, uniqueHashes)
	}
}

// TestConcurrentDoubleVote verifies that when one voter races multiple vote
// requests, exactly one succeeds and exactly one vote row exists. The
// conditional voter update inside the vote transaction is the guard.
func TestConcurrentDoubleVote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewVotingHandler(db, cfg, nil)

	ownerID := testutil.CreateTestUser(t, db, models.RoleOwner)
	electionID := testutil.CreateTestElection(t, db, ownerID, "voting")

	candidateUser := testutil.CreateTestUser(t, db, models.RoleVoter)
	candidateID := testutil.CreateTestCandidate(t, db, candidateUser, electionID, "", true)

	voterUserID := testutil.CreateTestUser(t, db, models.RoleVoter)
	testutil.RegisterTestVoter(t, db, voterUserID, electionID)
	token := bearer(t, cfg, voterUserID)

	voteReq := models.VoteRequest{ElectionID: electionID, CandidateID: candidateID}
	guarded := protect(db, cfg, handler.CastVote)

	numAttempts := 5
	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < numAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r := testutil.MakeRequest("POST", "/votes", voteReq, token)
			w := httptest.NewRecorder()
			guarded(w, r)

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("Expected exactly 1 successful vote, got %d", successCount.Load())
	}

	var voteCount int
	if err := db.QueryRow(`SELECT COUNT(id) FROM votes WHERE election_id = $1`, electionID).Scan(&voteCount); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	if voteCount != 1 {
		t.Errorf("Expected 1 vote row, got %d", voteCount)
	}

	// The flag flipped once and the stored hash matches the winning vote.
	var hasVoted bool
	var voterHash, voteHash string
	err := db.QueryRow(`
		SELECT has_voted, vote_hash FROM voters WHERE user_id = $1 AND election_id = $2
	`, voterUserID, electionID).Scan(&hasVoted, &voterHash)
	if err != nil {
		t.Fatalf("Failed to query voter: %v", err)
	}
	if !hasVoted {
		t.Error("voter flag not flipped")
	}
	if err := db.QueryRow(`SELECT vote_hash FROM votes WHERE election_id = $1`, electionID).Scan(&voteHash); err != nil {
		t.Fatalf("Failed to query vote: %v", err)
	}
	if voterHash != voteHash {
		t.Errorf("voter hash %q does not match vote hash %q", voterHash, voteHash)
	}
}

// TestConcurrentApprovals verifies that racing approvals of different
// candidates hand out distinct sequential ledger slots.
func TestConcurrentApprovals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewCandidacyHandler(db, cfg, nil)

	ownerID := testutil.CreateTestUser(t, db, models.RoleOwner)
	electionID := testutil.CreateTestElection(t, db, ownerID, "candidacy")
	token := bearer(t, cfg, ownerID)

	numCandidates := 4
	candidateIDs := make([]string, numCandidates)
	for i := 0; i < numCandidates; i++ {
		userID := testutil.CreateTestUser(t, db, models.RoleVoter)
		candidateIDs[i] = testutil.CreateTestCandidate(t, db, userID, electionID, "", false)
	}

	guarded := protect(db, cfg, handler.ApproveCandidacy)

	var wg sync.WaitGroup
	for i := 0; i < numCandidates; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			req := models.ApproveCandidacyRequest{CandidateID: candidateIDs[idx], Approved: true}
			r := testutil.MakeRequest("POST", "/candidacies/approve", req, token)
			w := httptest.NewRecorder()
			guarded(w, r)
		}(i)
	}
	wg.Wait()

	// All approved and every assigned slot is distinct.
	var approved, distinctSlots int
	if err := db.QueryRow(`
		SELECT COUNT(id), COUNT(DISTINCT onchain_candidate_id)
		FROM candidates WHERE election_id = $1 AND is_approved = TRUE
	`, electionID).Scan(&approved, &distinctSlots); err != nil {
		t.Fatalf("Failed to count approvals: %v", err)
	}
	if approved != numCandidates {
		t.Errorf("Expected %d approved candidates, got %d", numCandidates, approved)
	}
	if distinctSlots != numCandidates {
		t.Errorf("Expected %d distinct ledger slots, got %d (possible duplicate assignment)",
			numCandidates, distinctSlots)
	}
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Morfeo1997/v0-clear-vote/auth"
	"github.com/Morfeo1997/v0-clear-vote/cliparse"
	"github.com/Morfeo1997/v0-clear-vote/middleware"
	"github.com/Morfeo1997/v0-clear-vote/models"
)

type VotingHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	writer LedgerWriter
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config, writer LedgerWriter) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg, writer: writer}
}

// CastVote handles POST /votes
//
// Ordering matters: the ledger write happens before any local mutation. If
// the chain rejects the vote nothing is recorded locally, and if the local
// insert later loses a race the reconciliation pass repairs the store from
// the chain. The ledger leads; the store follows.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := middleware.GetAuthContext(r)
	if !ok {
		middleware.Fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !authCtx.IsActive {
		middleware.Fail(w, http.StatusForbidden, "Account is inactive")
		return
	}

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.Fail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ElectionID == "" {
		middleware.Fail(w, http.StatusBadRequest, "electionId is required")
		return
	}
	if req.CandidateID == "" {
		middleware.Fail(w, http.StatusBadRequest, "candidateId is required")
		return
	}

	var election models.Election
	var electionOnchain sql.NullInt64
	err := h.db.QueryRow(`
		SELECT id, status, start_date, end_date, onchain_election_id
		FROM elections
		WHERE id = $1
	`, req.ElectionID).Scan(
		&election.ID, &election.Status, &election.StartDate, &election.EndDate, &electionOnchain,
	)
	if err == sql.ErrNoRows {
		middleware.Fail(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}

	if election.Status == models.StatusCancelled {
		middleware.Fail(w, http.StatusConflict, "Election is cancelled")
		return
	}
	now := time.Now()
	if now.Before(election.StartDate) || now.After(election.EndDate) {
		middleware.Fail(w, http.StatusConflict, "Election is not open for voting")
		return
	}

	// Candidate must belong to this election and be approved.
	var candidateName string
	var candidateParty string
	var candidateOnchain sql.NullInt64
	err = h.db.QueryRow(`
		SELECT u.first_name || ' ' || u.last_name, COALESCE(p.name, 'Independiente'), c.onchain_candidate_id
		FROM candidates c
		JOIN users u ON u.id = c.user_id
		LEFT JOIN parties p ON p.id = c.party_id
		WHERE c.id = $1 AND c.election_id = $2 AND c.is_approved = TRUE
	`, req.CandidateID, req.ElectionID).Scan(&candidateName, &candidateParty, &candidateOnchain)
	if err == sql.ErrNoRows {
		middleware.Fail(w, http.StatusNotFound, "Candidate not found or not approved")
		return
	}
	if err != nil {
		slog.Error("failed to query candidate", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Voter registration gates participation; registration itself happens
	// out of band.
	var voterID string
	var hasVoted bool
	err = h.db.QueryRow(`
		SELECT id, has_voted FROM voters WHERE user_id = $1 AND election_id = $2
	`, authCtx.UserID, req.ElectionID).Scan(&voterID, &hasVoted)
	if err == sql.ErrNoRows {
		middleware.Fail(w, http.StatusForbidden, "You are not registered as a voter in this election")
		return
	}
	if err != nil {
		slog.Error("failed to query voter", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	if hasVoted {
		middleware.Fail(w, http.StatusConflict, "You have already voted in this election")
		return
	}

	voteHash := auth.GenerateVoteHash(authCtx.UserID, req.ElectionID, req.CandidateID, authCtx.WalletAddress, now)

	var txHash *string
	if h.writer != nil && electionOnchain.Valid && candidateOnchain.Valid {
		hash, chainErr := h.writer.Vote(r.Context(),
			uint64(electionOnchain.Int64), uint64(candidateOnchain.Int64), voteHash)
		if chainErr != nil {
			slog.Error("on-chain vote failed",
				"election_id", req.ElectionID,
				"candidate_id", req.CandidateID,
				"error", chainErr,
			)
			middleware.Fail(w, chainStatus(chainErr), "Failed to record vote on-chain")
			return
		}
		txHash = &hash
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO votes (id, election_id, candidate_id, vote_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), req.ElectionID, req.CandidateID, voteHash, now)
	if err != nil {
		if isUniqueViolation(err) {
			middleware.Fail(w, http.StatusConflict, "Vote already recorded")
			return
		}
		slog.Error("failed to insert vote", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	// The conditional update is the double-vote guard: a concurrent request
	// that flipped the flag first leaves zero rows here and this attempt
	// rolls back whole.
	res, err := tx.Exec(`
		UPDATE voters
		SET has_voted = TRUE, vote_hash = $1, voted_at = $2
		WHERE id = $3 AND has_voted = FALSE
	`, voteHash, now, voterID)
	if err != nil {
		slog.Error("failed to update voter", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.Fail(w, http.StatusConflict, "You have already voted in this election")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	var totalVotes int
	err = h.db.QueryRow(`
		SELECT COUNT(id) FROM votes WHERE election_id = $1 AND candidate_id = $2
	`, req.ElectionID, req.CandidateID).Scan(&totalVotes)
	if err != nil {
		slog.Warn("failed to count candidate votes", "error", err)
	}

	slog.Info("vote cast", "election_id", req.ElectionID, "candidate_id", req.CandidateID)

	middleware.SuccessMessage(w, http.StatusCreated, models.VoteData{
		VoteHash: voteHash,
		Candidate: models.CandidateSummary{
			ID:    req.CandidateID,
			Name:  candidateName,
			Party: candidateParty,
		},
		TotalVotes:      totalVotes,
		TransactionHash: txHash,
	}, "Vote recorded")
}

// isUniqueViolation recognizes uniqueness errors from both supported
// drivers without depending on driver error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

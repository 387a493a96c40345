// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Morfeo1997/v0-clear-vote/cliparse"
	"github.com/Morfeo1997/v0-clear-vote/middleware"
	"github.com/Morfeo1997/v0-clear-vote/models"
)

type CandidacyHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	writer LedgerWriter
}

func NewCandidacyHandler(db *sql.DB, cfg cliparse.Config, writer LedgerWriter) *CandidacyHandler {
	return &CandidacyHandler{db: db, cfg: cfg, writer: writer}
}

// RequestCandidacy handles POST /candidacies
func (h *CandidacyHandler) RequestCandidacy(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := middleware.GetAuthContext(r)
	if !ok {
		middleware.Fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.RequestCandidacyRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.Fail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ElectionID == "" {
		middleware.Fail(w, http.StatusBadRequest, "electionId is required")
		return
	}

	var election models.Election
	err := h.db.QueryRow(`
		SELECT id, status, candidacy_start, candidacy_end, max_candidates_per_party
		FROM elections
		WHERE id = $1
	`, req.ElectionID).Scan(
		&election.ID, &election.Status, &election.CandidacyStart,
		&election.CandidacyEnd, &election.MaxCandidatesPerParty,
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
	if now.Before(election.CandidacyStart) || now.After(election.CandidacyEnd) {
		middleware.Fail(w, http.StatusConflict, "Candidacy window is closed")
		return
	}

	// One candidacy per user per election.
	var exists bool
	err = h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM candidates WHERE user_id = $1 AND election_id = $2)
	`, authCtx.UserID, req.ElectionID).Scan(&exists)
	if err != nil {
		slog.Error("failed to check existing candidacy", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	if exists {
		middleware.Fail(w, http.StatusConflict, "You already have a candidacy in this election")
		return
	}

	// Party cap. Pending candidacies count against the cap too, so a party
	// cannot queue more hopefuls than it can seat.
	var partyCol sql.NullString
	if req.PartyID != "" {
		var partyExists bool
		err = h.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM parties WHERE id = $1)`, req.PartyID).Scan(&partyExists)
		if err != nil {
			slog.Error("failed to check party", "error", err)
			middleware.Fail(w, http.StatusInternalServerError, "Database error")
			return
		}
		if !partyExists {
			middleware.Fail(w, http.StatusNotFound, "Party not found")
			return
		}

		var partyCount int
		err = h.db.QueryRow(`
			SELECT COUNT(id) FROM candidates WHERE election_id = $1 AND party_id = $2
		`, req.ElectionID, req.PartyID).Scan(&partyCount)
		if err != nil {
			slog.Error("failed to count party candidates", "error", err)
			middleware.Fail(w, http.StatusInternalServerError, "Database error")
			return
		}
		if partyCount >= election.MaxCandidatesPerParty {
			middleware.Fail(w, http.StatusConflict, "Party has reached its candidate limit")
			return
		}
		partyCol = sql.NullString{String: req.PartyID, Valid: true}
	}

	candidateID := uuid.NewString()
	_, err = h.db.Exec(`
		INSERT INTO candidates (id, user_id, election_id, party_id, description,
			proposals, photo_url, is_approved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
	`, candidateID, authCtx.UserID, req.ElectionID, partyCol,
		req.Description, req.Proposals, req.PhotoURL, now)
	if err != nil {
		slog.Error("failed to insert candidacy", "error", err, "election_id", req.ElectionID)
		middleware.Fail(w, http.StatusInternalServerError, "Failed to request candidacy")
		return
	}

	slog.Info("candidacy requested", "candidate_id", candidateID, "election_id", req.ElectionID, "user_id", authCtx.UserID)

	middleware.SuccessMessage(w, http.StatusCreated, models.Candidate{
		ID:          candidateID,
		UserID:      authCtx.UserID,
		ElectionID:  req.ElectionID,
		PartyID:     nullableString(partyCol),
		Description: req.Description,
		Proposals:   req.Proposals,
		PhotoURL:    req.PhotoURL,
		IsApproved:  false,
		CreatedAt:   now,
	}, "Candidacy submitted for review")
}

// ApproveCandidacy handles POST /candidacies/approve
//
// The relational store leads here: approval is committed locally before the
// ledger write, and a chain failure is logged but never rolls the approval
// back. The reconciliation pass and the manual sync endpoint cover the gap.
func (h *CandidacyHandler) ApproveCandidacy(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := middleware.GetAuthContext(r)
	if !ok {
		middleware.Fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.ApproveCandidacyRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.Fail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.CandidateID == "" {
		middleware.Fail(w, http.StatusBadRequest, "candidateId is required")
		return
	}

	var candidate models.Candidate
	var partyCol sql.NullString
	var onchainCol sql.NullInt64
	err := h.db.QueryRow(`
		SELECT id, user_id, election_id, party_id, description, proposals,
			photo_url, is_approved, onchain_candidate_id, created_at
		FROM candidates
		WHERE id = $1
	`, req.CandidateID).Scan(
		&candidate.ID, &candidate.UserID, &candidate.ElectionID, &partyCol,
		&candidate.Description, &candidate.Proposals, &candidate.PhotoURL,
		&candidate.IsApproved, &onchainCol, &candidate.CreatedAt,
	)
	if err == sql.ErrNoRows {
		middleware.Fail(w, http.StatusNotFound, "Candidate not found")
		return
	}
	if err != nil {
		slog.Error("failed to query candidate", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	candidate.PartyID = nullableString(partyCol)
	if onchainCol.Valid {
		id := uint64(onchainCol.Int64)
		candidate.OnchainCandidateID = &id
	}

	// Only an owner of this election decides candidacies.
	var isOwner bool
	err = h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM election_owners WHERE user_id = $1 AND election_id = $2)
	`, authCtx.UserID, candidate.ElectionID).Scan(&isOwner)
	if err != nil {
		slog.Error("failed to check election ownership", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !isOwner {
		middleware.Fail(w, http.StatusForbidden, "Only an election owner can decide candidacies")
		return
	}

	// Decisions are final once the candidacy window closes.
	var candidacyEnd time.Time
	err = h.db.QueryRow(`SELECT candidacy_end FROM elections WHERE id = $1`, candidate.ElectionID).Scan(&candidacyEnd)
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	if time.Now().After(candidacyEnd) {
		middleware.Fail(w, http.StatusConflict, "Candidacy period has ended")
		return
	}

	if !req.Approved {
		_, err = h.db.Exec(`UPDATE candidates SET is_approved = FALSE WHERE id = $1`, candidate.ID)
		if err != nil {
			slog.Error("failed to reject candidacy", "error", err)
			middleware.Fail(w, http.StatusInternalServerError, "Failed to update candidacy")
			return
		}
		candidate.IsApproved = false
		slog.Info("candidacy rejected", "candidate_id", candidate.ID, "by", authCtx.UserID)
		middleware.SuccessMessage(w, http.StatusOK, models.ApproveCandidacyData{Candidate: candidate}, "Candidacy rejected")
		return
	}

	// Re-approving is a no-op; the on-chain id was assigned the first time.
	if candidate.IsApproved {
		middleware.SuccessMessage(w, http.StatusOK, models.ApproveCandidacyData{
			Candidate:          candidate,
			OnchainCandidateID: candidate.OnchainCandidateID,
		}, "Candidate already approved")
		return
	}

	// Sequential on-chain id: approved count + 1, matching the order the
	// contract assigns candidate slots. The is_approved guard keeps this
	// candidate from being assigned twice. Under read-committed isolation
	// two approvals of different candidates can still compute the same
	// count; the UNIQUE (election_id, onchain_candidate_id) constraint
	// rejects the loser, which retries with a fresh count.
	updated := false
	for attempt := 0; attempt < 3 && !updated; attempt++ {
		res, err := h.db.Exec(`
			UPDATE candidates
			SET is_approved = TRUE,
				onchain_candidate_id = (
					SELECT COUNT(id) + 1 FROM candidates
					WHERE election_id = $1 AND is_approved = TRUE
				)
			WHERE id = $2 AND is_approved = FALSE
		`, candidate.ElectionID, candidate.ID)
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			slog.Error("failed to approve candidacy", "error", err)
			middleware.Fail(w, http.StatusInternalServerError, "Failed to update candidacy")
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// A concurrent request decided this candidacy first.
			middleware.Fail(w, http.StatusConflict, "Candidacy was already decided")
			return
		}
		updated = true
	}
	if !updated {
		slog.Error("failed to assign candidate slot", "candidate_id", candidate.ID)
		middleware.Fail(w, http.StatusInternalServerError, "Failed to update candidacy")
		return
	}

	var assigned int64
	err = h.db.QueryRow(`SELECT onchain_candidate_id FROM candidates WHERE id = $1`, candidate.ID).Scan(&assigned)
	if err != nil {
		slog.Error("failed to read assigned candidate slot", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	onchainCandidateID := uint64(assigned)
	candidate.IsApproved = true
	candidate.OnchainCandidateID = &onchainCandidateID

	// Best-effort ledger registration. A failure leaves local and on-chain
	// approval out of step, which is visible in the sync report and fixable
	// by re-running approval tooling; it must not undo the decision.
	var txHash *string
	if h.writer != nil {
		var electionOnchain sql.NullInt64
		err = h.db.QueryRow(`SELECT onchain_election_id FROM elections WHERE id = $1`, candidate.ElectionID).Scan(&electionOnchain)
		if err != nil {
			slog.Error("failed to query election onchain id", "error", err)
		} else if electionOnchain.Valid {
			name := candidateName(h.db, candidate.UserID)
			hash, chainErr := h.writer.ApproveCandidate(r.Context(), uint64(electionOnchain.Int64), onchainCandidateID, name)
			if chainErr != nil {
				slog.Warn("on-chain candidate approval failed",
					"candidate_id", candidate.ID,
					"onchain_candidate_id", onchainCandidateID,
					"error", chainErr,
				)
			} else {
				txHash = &hash
			}
		}
	}

	slog.Info("candidacy approved",
		"candidate_id", candidate.ID,
		"onchain_candidate_id", onchainCandidateID,
		"by", authCtx.UserID,
	)

	middleware.SuccessMessage(w, http.StatusOK, models.ApproveCandidacyData{
		Candidate:          candidate,
		TransactionHash:    txHash,
		OnchainCandidateID: &onchainCandidateID,
	}, "Candidate approved")
}

// ListCandidates handles GET /elections/{id}/candidates
func (h *CandidacyHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.Fail(w, http.StatusBadRequest, "election id is required")
		return
	}

	var exists bool
	err := h.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM elections WHERE id = $1)`, electionID).Scan(&exists)
	if err != nil {
		slog.Error("failed to check election", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.Fail(w, http.StatusNotFound, "Election not found")
		return
	}

	rows, err := h.db.Query(`
		SELECT c.id, c.user_id, c.election_id, c.party_id, c.description,
			c.proposals, c.photo_url, c.is_approved, c.onchain_candidate_id, c.created_at
		FROM candidates c
		WHERE c.election_id = $1
		ORDER BY c.created_at
	`, electionID)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		var partyCol sql.NullString
		var onchainCol sql.NullInt64
		if err := rows.Scan(&c.ID, &c.UserID, &c.ElectionID, &partyCol, &c.Description,
			&c.Proposals, &c.PhotoURL, &c.IsApproved, &onchainCol, &c.CreatedAt); err != nil {
			slog.Error("failed to scan candidate", "error", err)
			middleware.Fail(w, http.StatusInternalServerError, "Database error")
			return
		}
		c.PartyID = nullableString(partyCol)
		if onchainCol.Valid {
			id := uint64(onchainCol.Int64)
			c.OnchainCandidateID = &id
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate candidates", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.Success(w, http.StatusOK, candidates)
}

// candidateName builds the display name sent to the ledger. Falls back to
// the user id when the lookup fails so the chain write still carries a label.
func candidateName(db *sql.DB, userID string) string {
	var first, last string
	err := db.QueryRow(`SELECT first_name, last_name FROM users WHERE id = $1`, userID).Scan(&first, &last)
	if err != nil {
		return userID
	}
	return first + " " + last
}

func nullableString(col sql.NullString) *string {
	if !col.Valid {
		return nil
	}
	return &col.String
}

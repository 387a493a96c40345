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

type ElectionHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	writer LedgerWriter
}

func NewElectionHandler(db *sql.DB, cfg cliparse.Config, writer LedgerWriter) *ElectionHandler {
	return &ElectionHandler{db: db, cfg: cfg, writer: writer}
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := middleware.GetAuthContext(r)
	if !ok {
		middleware.Fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if authCtx.Role != models.RoleOwner {
		middleware.Fail(w, http.StatusForbidden, "Only owners can create elections")
		return
	}

	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.Fail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Title == "" {
		middleware.Fail(w, http.StatusBadRequest, "title is required")
		return
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		middleware.Fail(w, http.StatusBadRequest, "startDate must be RFC 3339")
		return
	}
	endDate, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		middleware.Fail(w, http.StatusBadRequest, "endDate must be RFC 3339")
		return
	}
	candidacyStart, err := time.Parse(time.RFC3339, req.CandidacyStart)
	if err != nil {
		middleware.Fail(w, http.StatusBadRequest, "candidacyStart must be RFC 3339")
		return
	}
	candidacyEnd, err := time.Parse(time.RFC3339, req.CandidacyEnd)
	if err != nil {
		middleware.Fail(w, http.StatusBadRequest, "candidacyEnd must be RFC 3339")
		return
	}

	// Window ordering: candidacy opens in the future and closes before voting
	// opens, voting window is non-empty.
	if !time.Now().Before(candidacyStart) {
		middleware.Fail(w, http.StatusBadRequest, "candidacyStart must be in the future")
		return
	}
	if !candidacyStart.Before(candidacyEnd) {
		middleware.Fail(w, http.StatusBadRequest, "candidacyStart must be before candidacyEnd")
		return
	}
	if candidacyEnd.After(startDate) {
		middleware.Fail(w, http.StatusBadRequest, "candidacyEnd must not be after startDate")
		return
	}
	if !startDate.Before(endDate) {
		middleware.Fail(w, http.StatusBadRequest, "startDate must be before endDate")
		return
	}

	maxPerParty := req.MaxCandidatesPerParty
	if maxPerParty <= 0 {
		maxPerParty = 1
	}

	// Register on-chain first. The ledger write is authoritative for
	// election creation: if the chain rejects it there is nothing worth
	// storing locally.
	var txHash string
	var onchainID *uint64
	if h.writer != nil {
		txHash, onchainID, err = h.writer.CreateElection(r.Context(), req.Title, startDate, candidacyEnd, endDate)
		if err != nil {
			slog.Error("failed to create election on-chain", "title", req.Title, "error", err)
			middleware.Fail(w, chainStatus(err), "Failed to register election on-chain")
			return
		}
		if onchainID == nil {
			slog.Warn("election created on-chain but id extraction failed", "tx", txHash)
		}
	}

	electionID := uuid.NewString()
	now := time.Now()

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var onchainCol sql.NullInt64
	if onchainID != nil {
		onchainCol = sql.NullInt64{Int64: int64(*onchainID), Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO elections (id, title, description, start_date, end_date,
			candidacy_start, candidacy_end, status, max_candidates_per_party,
			onchain_election_id, last_block_processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11)
	`, electionID, req.Title, req.Description, startDate, endDate,
		candidacyStart, candidacyEnd, models.StatusDraft, maxPerParty,
		onchainCol, now)
	if err != nil {
		slog.Error("failed to insert election", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO election_owners (user_id, election_id, role)
		VALUES ($1, $2, $3)
	`, authCtx.UserID, electionID, models.RoleOwner)
	if err != nil {
		slog.Error("failed to insert election owner", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	slog.Info("election created", "election_id", electionID, "owner", authCtx.UserID, "onchain_id", onchainID)

	middleware.Success(w, http.StatusCreated, models.CreateElectionData{
		Election: models.Election{
			ID:                    electionID,
			Title:                 req.Title,
			Description:           req.Description,
			StartDate:             startDate,
			EndDate:               endDate,
			CandidacyStart:        candidacyStart,
			CandidacyEnd:          candidacyEnd,
			Status:                models.StatusDraft,
			MaxCandidatesPerParty: maxPerParty,
			OnchainElectionID:     onchainID,
			CreatedAt:             now,
		},
		TransactionHash:   txHash,
		OnchainElectionID: onchainID,
	})
}

// ListElections handles GET /elections
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, title, description, start_date, end_date, status, onchain_election_id
		FROM elections
		WHERE status != 'cancelled'
		ORDER BY start_date DESC
	`)
	if err != nil {
		slog.Error("failed to query elections", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	elections := []models.ElectionView{}
	for rows.Next() {
		var view models.ElectionView
		var start, end time.Time
		var status string
		var onchainID sql.NullInt64
		if err := rows.Scan(&view.ID, &view.Title, &view.Description, &start, &end, &status, &onchainID); err != nil {
			slog.Error("failed to scan election", "error", err)
			middleware.Fail(w, http.StatusInternalServerError, "Database error")
			return
		}
		view.StartDate = start.Format(time.RFC3339)
		view.EndDate = end.Format(time.RFC3339)
		view.Status = displayStatus(status, start, end, time.Now())
		if onchainID.Valid {
			id := uint64(onchainID.Int64)
			view.OnchainID = &id
		}
		elections = append(elections, view)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate elections", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.Success(w, http.StatusOK, elections)
}

// displayStatus derives the presentation status from the voting window.
// Cancellation always wins; otherwise the window decides.
func displayStatus(status string, start, end, now time.Time) string {
	if status == models.StatusCancelled {
		return models.StatusCancelled
	}
	switch {
	case now.Before(start):
		return models.DisplayUpcoming
	case now.After(end):
		return models.DisplayFinished
	default:
		return models.DisplayOngoing
	}
}

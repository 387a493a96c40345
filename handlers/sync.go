// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/Morfeo1997/v0-clear-vote/cliparse"
	"github.com/Morfeo1997/v0-clear-vote/middleware"
	"github.com/Morfeo1997/v0-clear-vote/models"
	"github.com/Morfeo1997/v0-clear-vote/reconcile"
)

type SyncHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	engine *reconcile.Engine
	status LedgerStatus
}

// NewSyncHandler wires the reconciliation engine and the read-only chain
// views. Both may be nil in chain-less mode; the endpoints then report the
// chain as unavailable.
func NewSyncHandler(db *sql.DB, cfg cliparse.Config, engine *reconcile.Engine, status LedgerStatus) *SyncHandler {
	return &SyncHandler{db: db, cfg: cfg, engine: engine, status: status}
}

type syncRequest struct {
	ElectionID string `json:"electionId,omitempty"`
	ForceSync  bool   `json:"forceSync,omitempty"`
}

// SyncEvents handles GET and POST /sync/events. GET passes options as query
// parameters so a cron can trigger a pass with a plain URL; POST takes the
// same options as JSON.
func (h *SyncHandler) SyncEvents(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		middleware.Fail(w, http.StatusServiceUnavailable, "Chain synchronization is not configured")
		return
	}

	opts := reconcile.Options{}
	if r.Method == http.MethodPost {
		var req syncRequest
		if err := middleware.ParseJSONBody(r, &req); err != nil {
			middleware.Fail(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		opts.ElectionID = req.ElectionID
		opts.ForceSync = req.ForceSync
	} else {
		opts.ElectionID = r.URL.Query().Get("electionId")
		opts.ForceSync = r.URL.Query().Get("forceSync") == "true"
	}

	report, err := h.engine.Run(r.Context(), opts)
	if err != nil {
		slog.Error("reconciliation pass failed", "error", err)
		middleware.Fail(w, http.StatusBadGateway, "Failed to synchronize on-chain events")
		return
	}

	slog.Info("reconciliation pass completed",
		"elections", report.ProcessedElections,
		"events", report.EventsProcessed,
		"latest_block", report.LatestBlock,
	)

	middleware.Success(w, http.StatusOK, report)
}

// VerifyElection handles GET /sync/verify/{id}
//
// Reads the election and its approved candidates back from the contract and
// compares them against the relational store. A mismatch is reported, not
// repaired; repair goes through the sync endpoint.
func (h *SyncHandler) VerifyElection(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		middleware.Fail(w, http.StatusServiceUnavailable, "Chain synchronization is not configured")
		return
	}

	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.Fail(w, http.StatusBadRequest, "election id is required")
		return
	}

	var title string
	var onchainCol sql.NullInt64
	err := h.db.QueryRow(`
		SELECT title, onchain_election_id FROM elections WHERE id = $1
	`, electionID).Scan(&title, &onchainCol)
	if err == sql.ErrNoRows {
		middleware.Fail(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !onchainCol.Valid {
		middleware.Fail(w, http.StatusConflict, "Election is not tracked on-chain")
		return
	}
	onchainID := uint64(onchainCol.Int64)

	onchain, err := h.status.GetElection(r.Context(), onchainID)
	if err != nil {
		slog.Error("failed to read election from chain", "onchain_id", onchainID, "error", err)
		middleware.Fail(w, http.StatusBadGateway, "Failed to query the chain")
		return
	}

	report := models.ElectionVerificationData{
		ElectionID:   electionID,
		OnchainID:    onchainID,
		LocalTitle:   title,
		OnchainTitle: onchain.Title,
		TitleMatches: title == onchain.Title,
	}
	report.InSync = report.TitleMatches

	rows, err := h.db.Query(`
		SELECT c.id, c.onchain_candidate_id,
			(SELECT COUNT(v.id) FROM votes v WHERE v.candidate_id = c.id)
		FROM candidates c
		WHERE c.election_id = $1 AND c.is_approved = TRUE AND c.onchain_candidate_id IS NOT NULL
		ORDER BY c.onchain_candidate_id
	`, electionID)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	type tracked struct {
		id        string
		onchainID uint64
		votes     int
	}
	var candidates []tracked
	for rows.Next() {
		var c tracked
		var slot int64
		if err := rows.Scan(&c.id, &slot, &c.votes); err != nil {
			slog.Error("failed to scan candidate", "error", err)
			middleware.Fail(w, http.StatusInternalServerError, "Database error")
			return
		}
		c.onchainID = uint64(slot)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate candidates", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}

	for _, c := range candidates {
		view, err := h.status.GetCandidate(r.Context(), c.onchainID)
		if err != nil {
			slog.Error("failed to read candidate from chain", "onchain_id", c.onchainID, "error", err)
			middleware.Fail(w, http.StatusBadGateway, "Failed to query the chain")
			return
		}
		entry := models.CandidateVerification{
			CandidateID:  c.id,
			OnchainID:    c.onchainID,
			LocalVotes:   c.votes,
			OnchainVotes: view.Votes,
			InSync:       view.Approved && uint64(c.votes) == view.Votes,
		}
		if !entry.InSync {
			report.InSync = false
		}
		report.Candidates = append(report.Candidates, entry)
	}

	middleware.Success(w, http.StatusOK, report)
}

// SyncStatus handles GET /sync/status
func (h *SyncHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		middleware.Fail(w, http.StatusServiceUnavailable, "Chain synchronization is not configured")
		return
	}

	latest, err := h.status.LatestBlock(r.Context())
	if err != nil {
		slog.Error("failed to fetch latest block", "error", err)
		middleware.Fail(w, http.StatusBadGateway, "Failed to query the chain")
		return
	}

	total, err := h.status.TotalElections(r.Context())
	if err != nil {
		slog.Error("failed to fetch total elections", "error", err)
		middleware.Fail(w, http.StatusBadGateway, "Failed to query the chain")
		return
	}

	var tracked int
	err = h.db.QueryRow(`
		SELECT COUNT(id) FROM elections WHERE onchain_election_id IS NOT NULL
	`).Scan(&tracked)
	if err != nil {
		slog.Error("failed to count tracked elections", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.Success(w, http.StatusOK, models.SyncStatusData{
		LatestBlock:      latest,
		TotalElections:   total,
		TrackedElections: tracked,
	})
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/Morfeo1997/v0-clear-vote/cliparse"
	"github.com/Morfeo1997/v0-clear-vote/middleware"
	"github.com/Morfeo1997/v0-clear-vote/models"
)

type ResultsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg}
}

// GetElectionResults handles GET /elections/{id}/results
func (h *ResultsHandler) GetElectionResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.Fail(w, http.StatusBadRequest, "election id is required")
		return
	}

	var election models.Election
	var onchainCol sql.NullInt64
	err := h.db.QueryRow(`
		SELECT id, title, description, start_date, end_date, status, onchain_election_id
		FROM elections
		WHERE id = $1
	`, electionID).Scan(
		&election.ID, &election.Title, &election.Description,
		&election.StartDate, &election.EndDate, &election.Status, &onchainCol,
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
	if onchainCol.Valid {
		id := uint64(onchainCol.Int64)
		election.OnchainElectionID = &id
	}

	// Approved candidates with their standing, most votes first.
	rows, err := h.db.Query(`
		SELECT c.id, u.first_name || ' ' || u.last_name, u.email,
			COALESCE(p.name, 'Independiente'), p.logo_url,
			COALESCE(c.description, ''), COALESCE(c.proposals, ''), COALESCE(c.photo_url, ''),
			(SELECT COUNT(v.id) FROM votes v WHERE v.candidate_id = c.id) AS vote_count
		FROM candidates c
		JOIN users u ON u.id = c.user_id
		LEFT JOIN parties p ON p.id = c.party_id
		WHERE c.election_id = $1 AND c.is_approved = TRUE
	`, electionID)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	results := []models.CandidateResult{}
	totalVotes := 0
	for rows.Next() {
		var res models.CandidateResult
		var logo sql.NullString
		if err := rows.Scan(
			&res.Candidate.ID, &res.Candidate.Name, &res.Candidate.Email,
			&res.Candidate.Party, &logo,
			&res.Candidate.Description, &res.Candidate.Proposals, &res.Candidate.Photo,
			&res.Votes,
		); err != nil {
			slog.Error("failed to scan candidate result", "error", err)
			middleware.Fail(w, http.StatusInternalServerError, "Database error")
			return
		}
		if logo.Valid {
			res.Candidate.PartyLogo = &logo.String
		}
		results = append(results, res)
		totalVotes += res.Votes
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate candidate results", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}

	for i := range results {
		if totalVotes > 0 {
			results[i].Percentage = round2(float64(results[i].Votes) * 100 / float64(totalVotes))
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Votes > results[j].Votes
	})

	var totalVoters int
	err = h.db.QueryRow(`SELECT COUNT(id) FROM voters WHERE election_id = $1`, electionID).Scan(&totalVoters)
	if err != nil {
		slog.Error("failed to count voters", "error", err)
		middleware.Fail(w, http.StatusInternalServerError, "Database error")
		return
	}

	participation := 0.0
	if totalVoters > 0 {
		participation = round2(float64(totalVotes) * 100 / float64(totalVoters))
	}

	now := time.Now()
	status := displayStatus(election.Status, election.StartDate, election.EndDate, now)

	// The winner is only declared once voting has closed. A live leader is
	// visible in the rankings but never labelled the winner.
	var winner *models.ResultCandidate
	if status == models.DisplayFinished && len(results) > 0 && results[0].Votes > 0 {
		winner = &results[0].Candidate
	}

	middleware.Success(w, http.StatusOK, models.ElectionResultsData{
		Election: models.ElectionView{
			ID:          election.ID,
			Title:       election.Title,
			Description: election.Description,
			StartDate:   election.StartDate.Format(time.RFC3339),
			EndDate:     election.EndDate.Format(time.RFC3339),
			Status:      status,
			OnchainID:   election.OnchainElectionID,
		},
		Statistics: models.ResultStatistics{
			TotalVoters:       totalVoters,
			TotalVotesCast:    totalVotes,
			ParticipationRate: participation,
			TotalCandidates:   len(results),
		},
		Results:     results,
		Winner:      winner,
		LastUpdated: now,
	})
}

// round2 keeps percentages to two decimal places.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

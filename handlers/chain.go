// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Morfeo1997/v0-clear-vote/chain"
)

// LedgerWriter is the slice of the chain writer the handlers depend on. A
// nil writer means chain-less mode: elections and votes live only in the
// relational store and never receive on-chain ids.
type LedgerWriter interface {
	CreateElection(ctx context.Context, title string, startTime, candidacyEnd, endTime time.Time) (string, *uint64, error)
	ApproveCandidate(ctx context.Context, electionID, candidateID uint64, candidateName string) (string, error)
	Vote(ctx context.Context, electionID, candidateID uint64, voteHash string) (string, error)
}

// LedgerStatus exposes the read-only chain views used by the sync status
// and verification endpoints.
type LedgerStatus interface {
	LatestBlock(ctx context.Context) (uint64, error)
	TotalElections(ctx context.Context) (uint64, error)
	GetElection(ctx context.Context, electionID uint64) (chain.ElectionView, error)
	GetCandidate(ctx context.Context, candidateID uint64) (chain.CandidateView, error)
}

// chainStatus maps a ledger write failure to an HTTP status. A confirmation
// timeout means the outcome is unknown, which is a gateway timeout rather
// than a plain upstream failure.
func chainStatus(err error) int {
	if errors.Is(err, chain.ErrConfirmationTimeout) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

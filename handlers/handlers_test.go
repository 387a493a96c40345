// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/Morfeo1997/v0-clear-vote/auth"
	"github.com/Morfeo1997/v0-clear-vote/cliparse"
	"github.com/Morfeo1997/v0-clear-vote/middleware"
	"github.com/Morfeo1997/v0-clear-vote/testutil"
)

type approveCall struct {
	electionID  uint64
	candidateID uint64
	name        string
}

type voteCall struct {
	electionID  uint64
	candidateID uint64
	voteHash    string
}

// fakeWriter stands in for the contract writer. Zero value succeeds; the
// err fields force failures per method.
type fakeWriter struct {
	electionID uint64

	createErr  error
	approveErr error
	voteErr    error

	createCalls  int
	approveCalls []approveCall
	voteCalls    []voteCall
}

func (f *fakeWriter) CreateElection(ctx context.Context, title string, startTime, candidacyEnd, endTime time.Time) (string, *uint64, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", nil, f.createErr
	}
	id := f.electionID
	return "0xcreate", &id, nil
}

func (f *fakeWriter) ApproveCandidate(ctx context.Context, electionID, candidateID uint64, candidateName string) (string, error) {
	f.approveCalls = append(f.approveCalls, approveCall{electionID, candidateID, candidateName})
	if f.approveErr != nil {
		return "", f.approveErr
	}
	return "0xapprove", nil
}

func (f *fakeWriter) Vote(ctx context.Context, electionID, candidateID uint64, voteHash string) (string, error) {
	f.voteCalls = append(f.voteCalls, voteCall{electionID, candidateID, voteHash})
	if f.voteErr != nil {
		return "", f.voteErr
	}
	return "0xvote", nil
}

// protect wraps a handler the way the router does, so requests flow through
// real credential resolution.
func protect(db *sql.DB, cfg cliparse.Config, h http.HandlerFunc) http.HandlerFunc {
	resolver := auth.NewResolver(db, cfg.JWTSecret, cfg.Issuer, cfg.Audience, nil)
	return middleware.WithAuth(resolver, h)
}

func bearer(t *testing.T, cfg cliparse.Config, userID string) map[string]string {
	t.Helper()
	return map[string]string{"Authorization": "Bearer " + testutil.TraditionalToken(t, cfg, userID)}
}

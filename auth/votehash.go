// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"encoding/base64"
	"strconv"
	"time"
)

// GenerateVoteHash derives the anonymous token that labels a vote both
// on-chain and in the votes table. The timestamp keeps two legitimate votes
// from ever sharing a token; the UNIQUE constraint on votes.vote_hash is
// what rejects a replayed one. URL-safe base64 without padding, so the
// token works as a URL path segment and as a contract string argument.
func GenerateVoteHash(userID, electionID, candidateID, walletAddress string, ts time.Time) string {
	data := userID + ":" + electionID + ":" + candidateID
	if walletAddress != "" {
		// Wallet votes fold the address in for additional uniqueness
		data += ":" + walletAddress
	}
	data += ":" + strconv.FormatInt(ts.UnixMilli(), 10)

	return base64.RawURLEncoding.EncodeToString([]byte(data))
}

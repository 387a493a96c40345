// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// VoteCastEvent is a decoded VoteCast log entry. Transient: consumed once by
// the reconciliation engine, never stored independently of the vote row it
// produces.
type VoteCastEvent struct {
	ElectionID  uint64
	CandidateID uint64
	Voter       string
	VoteHash    string
	TotalVotes  uint64
	BlockNumber uint64
}

// DecodeVoteCast decodes a raw log into a VoteCastEvent. Malformed logs
// (wrong event, schema drift) return ok=false so one bad entry never blocks
// reconciliation of the rest of the batch.
func DecodeVoteCast(lg types.Log) (VoteCastEvent, bool) {
	if len(lg.Topics) != 3 || lg.Topics[0] != voteCastTopic {
		return VoteCastEvent{}, false
	}

	vals, err := votingABI.Unpack("VoteCast", lg.Data)
	if err != nil || len(vals) != 3 {
		return VoteCastEvent{}, false
	}

	voter, ok := vals[0].(common.Address)
	if !ok {
		return VoteCastEvent{}, false
	}
	voteHash, ok := vals[1].(string)
	if !ok {
		return VoteCastEvent{}, false
	}
	total, ok := vals[2].(*big.Int)
	if !ok {
		return VoteCastEvent{}, false
	}

	return VoteCastEvent{
		ElectionID:  lg.Topics[1].Big().Uint64(),
		CandidateID: lg.Topics[2].Big().Uint64(),
		Voter:       voter.Hex(),
		VoteHash:    voteHash,
		TotalVotes:  total.Uint64(),
		BlockNumber: lg.BlockNumber,
	}, true
}

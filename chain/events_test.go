// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// voteCastLog builds a log entry the way the contract emits it: indexed
// election and candidate ids as topics, the rest ABI-packed in the data.
func voteCastLog(t *testing.T, electionID, candidateID uint64, voter common.Address, voteHash string, total uint64, block uint64) types.Log {
	t.Helper()

	data, err := votingABI.Events["VoteCast"].Inputs.NonIndexed().Pack(voter, voteHash, new(big.Int).SetUint64(total))
	if err != nil {
		t.Fatalf("Failed to pack event data: %v", err)
	}

	return types.Log{
		Topics: []common.Hash{
			voteCastTopic,
			common.BigToHash(new(big.Int).SetUint64(electionID)),
			common.BigToHash(new(big.Int).SetUint64(candidateID)),
		},
		Data:        data,
		BlockNumber: block,
	}
}

func TestDecodeVoteCast(t *testing.T) {
	voter := common.HexToAddress("0x1111111111111111111111111111111111111111")
	lg := voteCastLog(t, 7, 3, voter, "dXNlcjplbGVjdGlvbg", 12, 4242)

	event, ok := DecodeVoteCast(lg)
	if !ok {
		t.Fatal("DecodeVoteCast() ok = false for a well-formed log")
	}

	if event.ElectionID != 7 {
		t.Errorf("ElectionID = %d, want 7", event.ElectionID)
	}
	if event.CandidateID != 3 {
		t.Errorf("CandidateID = %d, want 3", event.CandidateID)
	}
	if event.Voter != voter.Hex() {
		t.Errorf("Voter = %q, want %q", event.Voter, voter.Hex())
	}
	if event.VoteHash != "dXNlcjplbGVjdGlvbg" {
		t.Errorf("VoteHash = %q", event.VoteHash)
	}
	if event.TotalVotes != 12 {
		t.Errorf("TotalVotes = %d, want 12", event.TotalVotes)
	}
	if event.BlockNumber != 4242 {
		t.Errorf("BlockNumber = %d, want 4242", event.BlockNumber)
	}
}

func TestDecodeVoteCastRejectsMalformed(t *testing.T) {
	voter := common.HexToAddress("0x2222222222222222222222222222222222222222")
	good := voteCastLog(t, 1, 1, voter, "hash", 1, 1)

	tests := []struct {
		name   string
		mutate func(lg types.Log) types.Log
	}{
		{
			name: "wrong event signature",
			mutate: func(lg types.Log) types.Log {
				lg.Topics[0] = electionCreatedTopic
				return lg
			},
		},
		{
			name: "missing indexed topic",
			mutate: func(lg types.Log) types.Log {
				lg.Topics = lg.Topics[:2]
				return lg
			},
		},
		{
			name: "truncated data",
			mutate: func(lg types.Log) types.Log {
				lg.Data = lg.Data[:8]
				return lg
			},
		},
		{
			name: "empty data",
			mutate: func(lg types.Log) types.Log {
				lg.Data = nil
				return lg
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg := tt.mutate(voteCastLog(t, 1, 1, voter, "hash", 1, 1))
			if _, ok := DecodeVoteCast(lg); ok {
				t.Error("DecodeVoteCast() ok = true for a malformed log")
			}
		})
	}

	// The untouched log still decodes, so the fixtures above fail for the
	// right reason.
	if _, ok := DecodeVoteCast(good); !ok {
		t.Error("control log failed to decode")
	}
}

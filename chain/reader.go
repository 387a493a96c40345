// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Reader queries the voting contract: block height, event logs, and
// read-only contract views.
type Reader struct {
	client   *ethclient.Client
	contract common.Address
	bound    *bind.BoundContract
}

// NewReader dials the RPC endpoint for read-only access.
func NewReader(rpcURL, contractAddress string) (*Reader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}
	addr := common.HexToAddress(contractAddress)
	return &Reader{
		client:   client,
		contract: addr,
		bound:    bind.NewBoundContract(addr, votingABI, client, client, client),
	}, nil
}

// LatestBlock returns the current chain height.
func (r *Reader) LatestBlock(ctx context.Context) (uint64, error) {
	height, err := r.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch latest block: %w", err)
	}
	return height, nil
}

// VoteCastEvents fetches and decodes VoteCast logs in [from, to]. The upper
// bound is clamped to a freshly fetched latest block so an unconfirmed
// range is never requested. Malformed logs are skipped, not fatal.
func (r *Reader) VoteCastEvents(ctx context.Context, from, to uint64) ([]VoteCastEvent, error) {
	latest, err := r.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	if to > latest {
		to = latest
	}
	if from > to {
		return nil, nil
	}

	logs, err := r.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{r.contract},
		Topics:    [][]common.Hash{{voteCastTopic}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs [%d, %d]: %w", from, to, err)
	}

	events := make([]VoteCastEvent, 0, len(logs))
	for _, lg := range logs {
		event, ok := DecodeVoteCast(lg)
		if !ok {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// ElectionView is the contract's stored election record.
type ElectionView struct {
	Title        string
	Creator      common.Address
	StartTime    uint64
	CandidacyEnd uint64
	EndTime      uint64
}

// CandidateView is the contract's stored candidate record.
type CandidateView struct {
	Name     string
	Approved bool
	Votes    uint64
}

// GetElection reads an election record back from the contract.
func (r *Reader) GetElection(ctx context.Context, electionID uint64) (ElectionView, error) {
	var out []any
	opts := &bind.CallOpts{Context: ctx}
	err := r.bound.Call(opts, &out, "getElection", new(big.Int).SetUint64(electionID))
	if err != nil {
		return ElectionView{}, fmt.Errorf("failed to call getElection(%d): %w", electionID, err)
	}
	if len(out) != 5 {
		return ElectionView{}, fmt.Errorf("unexpected getElection output")
	}
	title, ok1 := out[0].(string)
	creator, ok2 := out[1].(common.Address)
	start, ok3 := out[2].(*big.Int)
	candidacyEnd, ok4 := out[3].(*big.Int)
	end, ok5 := out[4].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return ElectionView{}, fmt.Errorf("unexpected getElection output types")
	}
	return ElectionView{
		Title:        title,
		Creator:      creator,
		StartTime:    start.Uint64(),
		CandidacyEnd: candidacyEnd.Uint64(),
		EndTime:      end.Uint64(),
	}, nil
}

// GetCandidate reads a candidate record back from the contract.
func (r *Reader) GetCandidate(ctx context.Context, candidateID uint64) (CandidateView, error) {
	var out []any
	opts := &bind.CallOpts{Context: ctx}
	err := r.bound.Call(opts, &out, "getCandidate", new(big.Int).SetUint64(candidateID))
	if err != nil {
		return CandidateView{}, fmt.Errorf("failed to call getCandidate(%d): %w", candidateID, err)
	}
	if len(out) != 3 {
		return CandidateView{}, fmt.Errorf("unexpected getCandidate output")
	}
	name, ok1 := out[0].(string)
	approved, ok2 := out[1].(bool)
	votes, ok3 := out[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return CandidateView{}, fmt.Errorf("unexpected getCandidate output types")
	}
	return CandidateView{Name: name, Approved: approved, Votes: votes.Uint64()}, nil
}

// TotalElections reads the contract's election counter.
func (r *Reader) TotalElections(ctx context.Context) (uint64, error) {
	var out []any
	opts := &bind.CallOpts{Context: ctx}
	if err := r.bound.Call(opts, &out, "getTotalElections"); err != nil {
		return 0, fmt.Errorf("failed to call getTotalElections: %w", err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("unexpected getTotalElections output")
	}
	total, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected getTotalElections output type")
	}
	return total.Uint64(), nil
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// confirmTimeout bounds how long a write blocks waiting for a receipt.
const confirmTimeout = 60 * time.Second

var (
	// ErrSubmission means the node rejected the transaction before
	// inclusion (nonce, gas, revert on estimate). Caller-fatal for the
	// operation.
	ErrSubmission = errors.New("transaction submission rejected")

	// ErrConfirmationTimeout means the transaction was accepted but no
	// receipt arrived within the confirmation window. The outcome is
	// UNKNOWN: the transaction may still confirm later. Callers must not
	// treat this as a plain failure, and must not resubmit blindly (a
	// resubmission without a nonce bump would be rejected anyway).
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

// Writer submits state-changing operations to the voting contract using the
// single funded operator identity. Submissions are serialized with a mutex
// because the ledger requires strictly increasing per-account nonces.
type Writer struct {
	client   *ethclient.Client
	bound    *bind.BoundContract
	contract common.Address
	opts     *bind.TransactOpts

	mu sync.Mutex
}

// NewWriter dials the RPC endpoint and prepares the operator transactor.
func NewWriter(rpcURL, contractAddress, operatorKeyHex string, chainID int64) (*Writer, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(operatorKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid operator private key: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}

	addr := common.HexToAddress(contractAddress)
	bound := bind.NewBoundContract(addr, votingABI, client, client, client)

	return &Writer{
		client:   client,
		bound:    bound,
		contract: addr,
		opts:     opts,
	}, nil
}

// CreateElection registers an election on-chain and returns the transaction
// hash plus the on-chain election id extracted from the creation event. The
// id can be nil when extraction fails; callers must tolerate that and
// backfill later rather than treating it as fatal.
func (w *Writer) CreateElection(ctx context.Context, title string, startTime, candidacyEnd, endTime time.Time) (string, *uint64, error) {
	tx, err := w.transact(ctx, "createElection",
		title,
		big.NewInt(startTime.Unix()),
		big.NewInt(candidacyEnd.Unix()),
		big.NewInt(endTime.Unix()),
	)
	if err != nil {
		return "", nil, err
	}

	receipt, err := w.waitMined(ctx, tx)
	if err != nil {
		return tx.Hash().Hex(), nil, err
	}

	return tx.Hash().Hex(), electionIDFromReceipt(receipt), nil
}

// ApproveCandidate registers an approved candidate under an on-chain
// election.
func (w *Writer) ApproveCandidate(ctx context.Context, electionID, candidateID uint64, candidateName string) (string, error) {
	tx, err := w.transact(ctx, "approveCandidate",
		new(big.Int).SetUint64(electionID),
		new(big.Int).SetUint64(candidateID),
		candidateName,
	)
	if err != nil {
		return "", err
	}

	if _, err := w.waitMined(ctx, tx); err != nil {
		return tx.Hash().Hex(), err
	}
	return tx.Hash().Hex(), nil
}

// Vote casts a vote labelled by voteHash. The on-chain voter field is the
// operator address used to sign; no user id crosses the chain boundary.
func (w *Writer) Vote(ctx context.Context, electionID, candidateID uint64, voteHash string) (string, error) {
	tx, err := w.transact(ctx, "vote",
		new(big.Int).SetUint64(electionID),
		new(big.Int).SetUint64(candidateID),
		voteHash,
	)
	if err != nil {
		return "", err
	}

	if _, err := w.waitMined(ctx, tx); err != nil {
		return tx.Hash().Hex(), err
	}
	return tx.Hash().Hex(), nil
}

func (w *Writer) transact(ctx context.Context, method string, args ...any) (*types.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	opts := *w.opts
	opts.Context = ctx

	tx, err := w.bound.Transact(&opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSubmission, method, err)
	}
	return tx, nil
}

func (w *Writer) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, w.client, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: tx %s", ErrConfirmationTimeout, tx.Hash().Hex())
		}
		return nil, fmt.Errorf("failed waiting for receipt of %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: tx %s reverted", ErrSubmission, tx.Hash().Hex())
	}
	return receipt, nil
}

// electionIDFromReceipt pulls the new election id from the first indexed
// topic of the ElectionCreated event. Returns nil when the event is absent
// or malformed.
func electionIDFromReceipt(receipt *types.Receipt) *uint64 {
	for _, lg := range receipt.Logs {
		if len(lg.Topics) >= 2 && lg.Topics[0] == electionCreatedTopic {
			id := lg.Topics[1].Big().Uint64()
			return &id
		}
	}
	return nil
}

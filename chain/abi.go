// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// votingContractJSON is the ABI of the deployed VotingContract. The contract
// bytecode is deployed out-of-band; the server consumes it as an opaque
// interface at a fixed address.
const votingContractJSON = `[
	{"type":"function","name":"createElection","stateMutability":"nonpayable","inputs":[{"name":"title","type":"string"},{"name":"startTime","type":"uint256"},{"name":"candidacyEnd","type":"uint256"},{"name":"endTime","type":"uint256"}],"outputs":[{"name":"electionId","type":"uint256"}]},
	{"type":"function","name":"approveCandidate","stateMutability":"nonpayable","inputs":[{"name":"electionId","type":"uint256"},{"name":"candidateId","type":"uint256"},{"name":"candidateName","type":"string"}],"outputs":[]},
	{"type":"function","name":"vote","stateMutability":"nonpayable","inputs":[{"name":"electionId","type":"uint256"},{"name":"candidateId","type":"uint256"},{"name":"voteHash","type":"string"}],"outputs":[]},
	{"type":"function","name":"getElection","stateMutability":"view","inputs":[{"name":"electionId","type":"uint256"}],"outputs":[{"name":"title","type":"string"},{"name":"creator","type":"address"},{"name":"startTime","type":"uint256"},{"name":"candidacyEnd","type":"uint256"},{"name":"endTime","type":"uint256"}]},
	{"type":"function","name":"getCandidate","stateMutability":"view","inputs":[{"name":"candidateId","type":"uint256"}],"outputs":[{"name":"name","type":"string"},{"name":"approved","type":"bool"},{"name":"votes","type":"uint256"}]},
	{"type":"function","name":"getTotalElections","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getTotalCandidates","stateMutability":"view","inputs":[{"name":"electionId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"ElectionCreated","inputs":[{"name":"electionId","type":"uint256","indexed":true},{"name":"title","type":"string","indexed":false},{"name":"startTime","type":"uint256","indexed":false},{"name":"endTime","type":"uint256","indexed":false}],"anonymous":false},
	{"type":"event","name":"CandidateApproved","inputs":[{"name":"electionId","type":"uint256","indexed":true},{"name":"candidateId","type":"uint256","indexed":true},{"name":"candidateName","type":"string","indexed":false}],"anonymous":false},
	{"type":"event","name":"VoteCast","inputs":[{"name":"electionId","type":"uint256","indexed":true},{"name":"candidateId","type":"uint256","indexed":true},{"name":"voter","type":"address","indexed":false},{"name":"voteHash","type":"string","indexed":false},{"name":"totalVotesForCandidate","type":"uint256","indexed":false}],"anonymous":false}
]`

var (
	votingABI abi.ABI

	electionCreatedTopic common.Hash
	voteCastTopic        common.Hash
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(votingContractJSON))
	if err != nil {
		panic("chain: invalid voting contract ABI: " + err.Error())
	}
	votingABI = parsed

	electionCreatedTopic = crypto.Keccak256Hash([]byte("ElectionCreated(uint256,string,uint256,uint256)"))
	voteCastTopic = crypto.Keccak256Hash([]byte("VoteCast(uint256,uint256,address,string,uint256)"))
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package chain talks to the voting contract on the external ledger.

The Writer submits createElection, approveCandidate, and vote with a single
funded operator identity, blocking until a receipt arrives or the 60s
confirmation window elapses. A timeout surfaces as ErrConfirmationTimeout
and means "unknown outcome", not "failure": the transaction may still
confirm, and reconciliation will pick the event up either way.

The Reader exposes the chain height, VoteCast log fetches over a bounded
block range, and read-only contract views. DecodeVoteCast tolerates
malformed logs by reporting ok=false instead of erroring, so one bad entry
cannot stall a reconciliation batch.
*/
package chain

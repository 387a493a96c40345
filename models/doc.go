// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the domain types, request/response DTOs, and the
uniform API envelope for the Clear Vote server.

# Envelope

Every endpoint responds with the same shape, success or failure:

	{"success": true,  "data": {...}}
	{"success": false, "error": "Voting has ended"}

Callers should not infer the failure kind from the HTTP status alone; most
business-rule violations share status 400 and the message carries the detail.

# Election Lifecycle

Elections store only draft and cancelled authoritatively. Whether an election
is upcoming, ongoing, or finished is derived by comparing the clock against
the candidacy and voting windows.

# Vote vs Voter

The votes table is the sole source of truth for tallies. The voter record's
has_voted flag is a convenience signal that may lag behind on-chain state
under anonymous voting, and is reconciled best-effort.
*/
package models

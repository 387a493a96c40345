// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth verifies bearer credentials and derives anonymous vote hashes.

# Credential Shapes

Two token shapes are accepted under one verification scheme:

  - Traditional sessions are HS256-signed with the shared JWT_SECRET. The
    subject claim is a user id looked up in the users table; missing or
    inactive users are rejected.
  - Smart-wallet sessions are RS256-signed with the key published at
    /.well-known/jwks.json and carry a nonce claim (the hash binding the
    token to a signer public key) plus namespaced clear-vote/* claims.
    These claims are trusted without a database round-trip.

Both paths produce the same models.AuthContext so handlers never branch on
the credential kind. Issuer, audience, and algorithm are all checked; any
mismatch is an invalid credential.

# Vote Hashes

	hash := auth.GenerateVoteHash(userID, electionID, candidateID, wallet, time.Now())

The hash binds voter, election, candidate, optional wallet address, and a
millisecond timestamp, encoded as unpadded URL-safe base64. It is the
on-chain vote label and the local dedup key.
*/
package auth

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package keys manages the RSA pair that signs smart-wallet session tokens.

Load reads the PEM-encoded pair from disk, generating and persisting a
fresh 2048-bit pair on first start. The public half is published as a JWKS
document under the fixed key id, so external verifiers can check RS256
signatures against /.well-known/jwks.json without any shared secret.
*/
package keys

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package cliparse parses server configuration from CLI flags with
// environment variable fallbacks. Secrets (JWT_SECRET, PRIVATE_KEY_OWNER)
// should come from the environment; flags exist for local development only.
package cliparse

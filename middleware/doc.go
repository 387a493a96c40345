// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Middleware

  - WithLogging: structured request/response logging via slog
  - WithAuth: bearer credential resolution; stores the AuthContext in the
    request context for handlers to read via GetAuthContext
  - CORS: cross-origin headers and preflight handling

# Response Helpers

Every application endpoint answers with the same envelope:

	{"success": true, "data": {...}, "message": "..."}
	{"success": false, "error": "..."}

Success, SuccessMessage, and Fail write the envelope; JSONResponse writes
raw JSON for the discovery endpoints that must not be wrapped.

# Request Helpers

ParseJSONBody decodes a JSON request body into a struct.
*/
package middleware

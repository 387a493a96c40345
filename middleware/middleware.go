// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Morfeo1997/v0-clear-vote/auth"
	"github.com/Morfeo1997/v0-clear-vote/models"
)

type contextKey string

const authContextKey contextKey = "authContext"

// WithLogging wraps a handler with request logging
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Info("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		)

		next(w, r)

		duration := time.Since(start)
		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// WithAuth resolves the bearer credential and stores the AuthContext in the
// request context. Handlers behind it never see an unauthenticated request.
func WithAuth(resolver *auth.Resolver, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authCtx, err := resolver.Resolve(r.Header.Get("Authorization"))
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, auth.ErrUserNotFound) {
				status = http.StatusForbidden
			}
			slog.Warn("authentication failed", "path", r.URL.Path, "error", err)
			Fail(w, status, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey, authCtx)
		next(w, r.WithContext(ctx))
	}
}

// GetAuthContext returns the identity stored by WithAuth.
func GetAuthContext(r *http.Request) (models.AuthContext, bool) {
	authCtx, ok := r.Context().Value(authContextKey).(models.AuthContext)
	return authCtx, ok
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// Success writes the uniform envelope with a payload
func Success(w http.ResponseWriter, statusCode int, data any) {
	JSONResponse(w, statusCode, models.APIResponse{
		Success: true,
		Data:    data,
	})
}

// SuccessMessage writes the envelope with a payload and a human message
func SuccessMessage(w http.ResponseWriter, statusCode int, data any, message string) {
	JSONResponse(w, statusCode, models.APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// Fail writes the uniform envelope carrying an error message
func Fail(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

// CORS middleware allows cross-origin requests from the frontend
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/Morfeo1997/v0-clear-vote/cliparse"
	"github.com/Morfeo1997/v0-clear-vote/keys"
	"github.com/Morfeo1997/v0-clear-vote/middleware"
)

// WellKnownHandler serves the identity discovery documents. These endpoints
// speak raw OIDC JSON, not the application envelope, because external
// verifiers expect the standard document shapes.
type WellKnownHandler struct {
	cfg  cliparse.Config
	keys *keys.Manager
}

func NewWellKnownHandler(cfg cliparse.Config, km *keys.Manager) *WellKnownHandler {
	return &WellKnownHandler{cfg: cfg, keys: km}
}

// JWKS handles GET /.well-known/jwks.json
func (h *WellKnownHandler) JWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	middleware.JSONResponse(w, http.StatusOK, h.keys.KeySet())
}

type openIDConfiguration struct {
	Issuer                 string   `json:"issuer"`
	JWKSURI                string   `json:"jwks_uri"`
	IDTokenSigningAlgs     []string `json:"id_token_signing_alg_values_supported"`
	ResponseTypesSupported []string `json:"response_types_supported"`
	SubjectTypesSupported  []string `json:"subject_types_supported"`
	ClaimsSupported        []string `json:"claims_supported"`
}

// OpenIDConfiguration handles GET /.well-known/openid-configuration
func (h *WellKnownHandler) OpenIDConfiguration(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	middleware.JSONResponse(w, http.StatusOK, openIDConfiguration{
		Issuer:                 h.cfg.Issuer,
		JWKSURI:                h.cfg.Issuer + "/.well-known/jwks.json",
		IDTokenSigningAlgs:     []string{"RS256", "HS256"},
		ResponseTypesSupported: []string{"id_token"},
		SubjectTypesSupported:  []string{"public"},
		ClaimsSupported: []string{
			"iss", "sub", "aud", "exp", "iat", "nonce",
			"email", "role", "active", "wallet_address",
			"clear-vote/user_id", "clear-vote/institution", "clear-vote/party",
		},
	})
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rsa"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Morfeo1997/v0-clear-vote/models"
)

var (
	ErrUnauthenticated   = errors.New("authorization header required")
	ErrInvalidCredential = errors.New("invalid or expired token")
	ErrUserNotFound      = errors.New("user not found or inactive")
)

// Resolver verifies bearer credentials and produces a normalized
// AuthContext. Two credential shapes are accepted:
//
//   - Traditional sessions (HS256): the subject is a user id that must
//     exist and be active in the users table.
//   - Smart-wallet sessions (RS256, nonce claim present): the claims are
//     the source of truth for the request and no lookup is performed.
type Resolver struct {
	db       *sql.DB
	secret   []byte
	rsaKey   *rsa.PublicKey
	issuer   string
	audience string
}

func NewResolver(db *sql.DB, secret, issuer, audience string, rsaKey *rsa.PublicKey) *Resolver {
	return &Resolver{
		db:       db,
		secret:   []byte(secret),
		rsaKey:   rsaKey,
		issuer:   issuer,
		audience: audience,
	}
}

// sessionClaims covers both credential shapes; classification happens after
// signature verification based on the nonce claim.
type sessionClaims struct {
	jwt.RegisteredClaims
	Nonce         string `json:"nonce,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
	Active        *bool  `json:"active,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
	UserID        string `json:"clear-vote/user_id,omitempty"`
	Institution   string `json:"clear-vote/institution,omitempty"`
	Party         string `json:"clear-vote/party,omitempty"`
}

// Resolve verifies the Authorization header value and returns the identity
// context. The header is expected as "Bearer <token>".
func (r *Resolver) Resolve(authHeader string) (models.AuthContext, error) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return models.AuthContext{}, ErrUnauthenticated
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if token == "" {
		return models.AuthContext{}, ErrUnauthenticated
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, r.keyFor,
		jwt.WithValidMethods([]string{"HS256", "RS256"}),
	)
	if err != nil {
		return models.AuthContext{}, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	// Issuer and audience are verified explicitly so a mismatch is
	// distinguishable in logs from a bad signature.
	if claims.Issuer != r.issuer {
		return models.AuthContext{}, fmt.Errorf("%w: issuer mismatch", ErrInvalidCredential)
	}
	if !audienceContains(claims.Audience, r.audience) {
		return models.AuthContext{}, fmt.Errorf("%w: audience mismatch", ErrInvalidCredential)
	}

	if claims.Nonce != "" {
		return r.resolveSmartWallet(claims)
	}
	return r.resolveTraditional(claims)
}

// keyFor selects the verification key by algorithm: HS256 for traditional
// sessions, RS256 for smart-wallet tokens signed with our published key.
func (r *Resolver) keyFor(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		return r.secret, nil
	case *jwt.SigningMethodRSA:
		if r.rsaKey == nil {
			return nil, errors.New("RS256 verification key not configured")
		}
		return r.rsaKey, nil
	default:
		return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
	}
}

// resolveSmartWallet trusts the namespaced claims directly: the wallet
// session itself is the source of truth for the request and the user may
// not exist locally yet.
func (r *Resolver) resolveSmartWallet(claims sessionClaims) (models.AuthContext, error) {
	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return models.AuthContext{}, fmt.Errorf("%w: missing subject", ErrInvalidCredential)
	}

	active := claims.Active == nil || *claims.Active

	return models.AuthContext{
		UserID:        userID,
		Email:         claims.Email,
		Role:          claims.Role,
		IsActive:      active,
		Institution:   claims.Institution,
		Party:         claims.Party,
		SmartWallet:   true,
		WalletAddress: claims.WalletAddress,
	}, nil
}

// resolveTraditional looks the subject up in the users table; the session
// is only as good as the user record behind it.
func (r *Resolver) resolveTraditional(claims sessionClaims) (models.AuthContext, error) {
	if claims.Subject == "" {
		return models.AuthContext{}, fmt.Errorf("%w: missing subject", ErrInvalidCredential)
	}

	var user models.User
	err := r.db.QueryRow(`
		SELECT id, first_name, last_name, email, role, COALESCE(institution, ''), is_active
		FROM users
		WHERE id = $1
	`, claims.Subject).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&user.Role, &user.Institution, &user.IsActive,
	)
	if err == sql.ErrNoRows {
		return models.AuthContext{}, ErrUserNotFound
	}
	if err != nil {
		return models.AuthContext{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive {
		return models.AuthContext{}, ErrUserNotFound
	}

	return models.AuthContext{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		IsActive:    true,
		Institution: user.Institution,
	}, nil
}

func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

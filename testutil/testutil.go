// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"crypto/rsa"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Morfeo1997/v0-clear-vote/cliparse"
	"github.com/Morfeo1997/v0-clear-vote/db"
	"github.com/Morfeo1997/v0-clear-vote/models"
)

// SetupTestDB creates a fresh in-memory database with the full schema.
// A single connection keeps every statement on the same in-memory store.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  ":memory:",
		DatabaseType: "sqlite",
		JWTSecret:    "test-jwt-secret",
		Issuer:       "https://auth.clear-vote.app",
		Audience:     "clear-vote-app",
		KeysDir:      "keys",
	}
}

// CreateTestUser inserts a user and returns its ID.
func CreateTestUser(t *testing.T, conn *sql.DB, role string) string {
	t.Helper()

	userID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO users (id, first_name, last_name, email, dni, role, is_active)
		VALUES ($1, 'Test', 'User', $2, $3, $4, TRUE)
	`, userID, userID+"@example.com", userID[:13], role)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return userID
}

// DeactivateTestUser flips a user's is_active flag off.
func DeactivateTestUser(t *testing.T, conn *sql.DB, userID string) {
	t.Helper()
	if _, err := conn.Exec(`UPDATE users SET is_active = FALSE WHERE id = $1`, userID); err != nil {
		t.Fatalf("Failed to deactivate user: %v", err)
	}
}

// CreateTestParty inserts a party and returns its ID.
func CreateTestParty(t *testing.T, conn *sql.DB, name string) string {
	t.Helper()

	partyID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO parties (id, name) VALUES ($1, $2)
	`, partyID, name)
	if err != nil {
		t.Fatalf("Failed to create test party: %v", err)
	}
	return partyID
}

// CreateTestElection inserts an election whose windows are positioned
// relative to now according to phase: "upcoming", "candidacy", "voting",
// or "finished". ownerID becomes the election owner.
func CreateTestElection(t *testing.T, conn *sql.DB, ownerID, phase string) string {
	t.Helper()

	now := time.Now()
	var candidacyStart, candidacyEnd, start, end time.Time
	switch phase {
	case "upcoming":
		candidacyStart = now.Add(24 * time.Hour)
		candidacyEnd = now.Add(48 * time.Hour)
		start = now.Add(72 * time.Hour)
		end = now.Add(96 * time.Hour)
	case "candidacy":
		candidacyStart = now.Add(-time.Hour)
		candidacyEnd = now.Add(time.Hour)
		start = now.Add(2 * time.Hour)
		end = now.Add(3 * time.Hour)
	case "voting":
		candidacyStart = now.Add(-3 * time.Hour)
		candidacyEnd = now.Add(-2 * time.Hour)
		start = now.Add(-time.Hour)
		end = now.Add(time.Hour)
	case "finished":
		candidacyStart = now.Add(-96 * time.Hour)
		candidacyEnd = now.Add(-72 * time.Hour)
		start = now.Add(-48 * time.Hour)
		end = now.Add(-24 * time.Hour)
	default:
		t.Fatalf("unknown election phase %q", phase)
	}

	electionID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO elections (id, title, description, start_date, end_date,
			candidacy_start, candidacy_end, status, max_candidates_per_party,
			last_block_processed, created_at)
		VALUES ($1, 'Test Election', 'An election', $2, $3, $4, $5, 'draft', 2, 0, $6)
	`, electionID, start, end, candidacyStart, candidacyEnd, now)
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	if ownerID != "" {
		_, err = conn.Exec(`
			INSERT INTO election_owners (user_id, election_id, role)
			VALUES ($1, $2, 'owner')
		`, ownerID, electionID)
		if err != nil {
			t.Fatalf("Failed to create election owner: %v", err)
		}
	}

	return electionID
}

// SetOnchainElectionID marks an election as tracked on-chain.
func SetOnchainElectionID(t *testing.T, conn *sql.DB, electionID string, onchainID uint64) {
	t.Helper()
	_, err := conn.Exec(`
		UPDATE elections SET onchain_election_id = $1 WHERE id = $2
	`, int64(onchainID), electionID)
	if err != nil {
		t.Fatalf("Failed to set onchain election id: %v", err)
	}
}

// CreateTestCandidate inserts a candidacy and returns its ID. partyID may
// be empty for independent candidates.
func CreateTestCandidate(t *testing.T, conn *sql.DB, userID, electionID, partyID string, approved bool) string {
	t.Helper()

	candidateID := uuid.NewString()
	var partyCol *string
	if partyID != "" {
		partyCol = &partyID
	}
	_, err := conn.Exec(`
		INSERT INTO candidates (id, user_id, election_id, party_id, description,
			proposals, photo_url, is_approved, created_at)
		VALUES ($1, $2, $3, $4, 'About', 'Proposals', '', $5, $6)
	`, candidateID, userID, electionID, partyCol, approved, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}
	return candidateID
}

// SetOnchainCandidateID assigns the sequential ledger slot to a candidate.
func SetOnchainCandidateID(t *testing.T, conn *sql.DB, candidateID string, onchainID uint64) {
	t.Helper()
	_, err := conn.Exec(`
		UPDATE candidates SET onchain_candidate_id = $1 WHERE id = $2
	`, int64(onchainID), candidateID)
	if err != nil {
		t.Fatalf("Failed to set onchain candidate id: %v", err)
	}
}

// RegisterTestVoter registers a user on an election's voter roll.
func RegisterTestVoter(t *testing.T, conn *sql.DB, userID, electionID string) string {
	t.Helper()

	voterID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO voters (id, user_id, election_id, has_voted)
		VALUES ($1, $2, $3, FALSE)
	`, voterID, userID, electionID)
	if err != nil {
		t.Fatalf("Failed to register test voter: %v", err)
	}
	return voterID
}

// TraditionalToken mints an HS256 session token for a stored user.
func TraditionalToken(t *testing.T, cfg cliparse.Config, userID string) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    cfg.Issuer,
		Audience:  jwt.ClaimStrings{cfg.Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("Failed to sign traditional token: %v", err)
	}
	return signed
}

// SmartWalletToken mints an RS256 wallet session token. The nonce claim is
// what classifies it as a smart-wallet credential.
func SmartWalletToken(t *testing.T, cfg cliparse.Config, key *rsa.PrivateKey, userID, wallet string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":                    userID,
		"iss":                    cfg.Issuer,
		"aud":                    cfg.Audience,
		"exp":                    time.Now().Add(time.Hour).Unix(),
		"iat":                    time.Now().Unix(),
		"nonce":                  uuid.NewString(),
		"email":                  userID + "@wallet.example.com",
		"role":                   models.RoleVoter,
		"wallet_address":         wallet,
		"clear-vote/user_id":     userID,
		"clear-vote/institution": "Test Institution",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("Failed to sign smart-wallet token: %v", err)
	}
	return signed
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// Envelope mirrors the response envelope with the payload left raw so tests
// can decode it into the expected shape.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// DecodeData unwraps the envelope and decodes its payload into v.
func DecodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) Envelope {
	t.Helper()

	var env Envelope
	AssertJSON(t, w, &env)
	if v != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, v); err != nil {
			t.Fatalf("Failed to decode envelope data: %v", err)
		}
	}
	return env
}

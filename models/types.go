package models

import "time"

// Election status constants. Only draft and cancelled are authoritative in
// storage; active/ended are derived from the voting window at read time.
const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusEnded     = "ended"
	StatusCancelled = "cancelled"
)

// Derived display statuses for results views.
const (
	DisplayUpcoming = "upcoming"
	DisplayOngoing  = "ongoing"
	DisplayFinished = "finished"
)

// Roles
const (
	RoleOwner = "owner"
	RoleVoter = "votante"
)

// Request types

type CreateElectionRequest struct {
	Title                 string `json:"title"`
	Description           string `json:"description"`
	StartDate             string `json:"startDate"`
	EndDate               string `json:"endDate"`
	CandidacyStart        string `json:"candidacyStart"`
	CandidacyEnd          string `json:"candidacyEnd"`
	MaxCandidatesPerParty int    `json:"maxCandidatesPerParty"`
}

type RequestCandidacyRequest struct {
	ElectionID  string `json:"electionId"`
	PartyID     string `json:"partyId,omitempty"`
	Description string `json:"description,omitempty"`
	Proposals   string `json:"proposals,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

type ApproveCandidacyRequest struct {
	CandidateID string `json:"candidateId"`
	Approved    bool   `json:"approved"`
}

type VoteRequest struct {
	ElectionID  string `json:"electionId"`
	CandidateID string `json:"candidateId"`
}

// Response payloads

type CreateElectionData struct {
	Election          Election `json:"election"`
	TransactionHash   string   `json:"transactionHash"`
	OnchainElectionID *uint64  `json:"onchainElectionId"`
}

type ApproveCandidacyData struct {
	Candidate          Candidate `json:"candidate"`
	TransactionHash    *string   `json:"transactionHash,omitempty"`
	OnchainCandidateID *uint64   `json:"onchainCandidateId,omitempty"`
}

type VoteData struct {
	VoteHash        string           `json:"voteHash"`
	Candidate       CandidateSummary `json:"candidate"`
	TotalVotes      int              `json:"totalVotes"`
	TransactionHash *string          `json:"transactionHash"`
}

type CandidateSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Party string `json:"party"`
}

type ElectionResultsData struct {
	Election    ElectionView      `json:"election"`
	Statistics  ResultStatistics  `json:"statistics"`
	Results     []CandidateResult `json:"results"`
	Winner      *ResultCandidate  `json:"winner"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

type ElectionView struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	Status      string  `json:"status"`
	OnchainID   *uint64 `json:"onchainId"`
}

type ResultStatistics struct {
	TotalVoters       int     `json:"totalVoters"`
	TotalVotesCast    int     `json:"totalVotesCast"`
	ParticipationRate float64 `json:"participationRate"`
	TotalCandidates   int     `json:"totalCandidates"`
}

type ResultCandidate struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Party       string  `json:"party"`
	PartyLogo   *string `json:"partyLogo"`
	Description string  `json:"description"`
	Proposals   string  `json:"proposals"`
	Photo       string  `json:"photo"`
}

type CandidateResult struct {
	Candidate  ResultCandidate `json:"candidate"`
	Votes      int             `json:"votes"`
	Percentage float64         `json:"percentage"`
}

type SyncData struct {
	ProcessedElections int            `json:"processedElections"`
	EventsProcessed    int            `json:"eventsProcessed"`
	LatestBlock        uint64         `json:"latestBlock"`
	Statistics         []ElectionSync `json:"statistics"`
	Errors             []string       `json:"errors,omitempty"`
}

type SyncStatusData struct {
	LatestBlock      uint64 `json:"latestBlock"`
	TotalElections   uint64 `json:"totalElections"`
	TrackedElections int    `json:"trackedElections"`
}

type ElectionVerificationData struct {
	ElectionID   string                  `json:"electionId"`
	OnchainID    uint64                  `json:"onchainId"`
	LocalTitle   string                  `json:"localTitle"`
	OnchainTitle string                  `json:"onchainTitle"`
	TitleMatches bool                    `json:"titleMatches"`
	Candidates   []CandidateVerification `json:"candidates"`
	InSync       bool                    `json:"inSync"`
}

type CandidateVerification struct {
	CandidateID  string `json:"candidateId"`
	OnchainID    uint64 `json:"onchainId"`
	LocalVotes   int    `json:"localVotes"`
	OnchainVotes uint64 `json:"onchainVotes"`
	InSync       bool   `json:"inSync"`
}

type ElectionSync struct {
	ElectionID         string  `json:"electionId"`
	ElectionTitle      string  `json:"electionTitle"`
	OnchainID          *uint64 `json:"onchainId"`
	TotalVotes         int     `json:"totalVotes"`
	TotalVoters        int     `json:"totalVoters"`
	LastBlockProcessed uint64  `json:"lastBlockProcessed"`
}

// Domain types

type User struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	DNI         string `json:"dni"`
	Institution string `json:"institution,omitempty"`
	Role        string `json:"role"`
	IsActive    bool   `json:"is_active"`
}

type Party struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	LogoURL     *string `json:"logo_url,omitempty"`
}

type Election struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	StartDate             time.Time `json:"start_date"`
	EndDate               time.Time `json:"end_date"`
	CandidacyStart        time.Time `json:"candidacy_start"`
	CandidacyEnd          time.Time `json:"candidacy_end"`
	Status                string    `json:"status"`
	MaxCandidatesPerParty int       `json:"max_candidates_per_party"`
	OnchainElectionID     *uint64   `json:"onchain_election_id,omitempty"`
	LastBlockProcessed    uint64    `json:"last_block_processed"`
	CreatedAt             time.Time `json:"created_at"`
}

type Candidate struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	ElectionID         string    `json:"election_id"`
	PartyID            *string   `json:"party_id,omitempty"`
	Description        string    `json:"description,omitempty"`
	Proposals          string    `json:"proposals,omitempty"`
	PhotoURL           string    `json:"photo_url,omitempty"`
	IsApproved         bool      `json:"is_approved"`
	OnchainCandidateID *uint64   `json:"onchain_candidate_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type Voter struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	ElectionID string     `json:"election_id"`
	HasVoted   bool       `json:"has_voted"`
	VoteHash   *string    `json:"-"` // Never expose in JSON
	VotedAt    *time.Time `json:"voted_at,omitempty"`
}

type Vote struct {
	ID          string    `json:"id"`
	ElectionID  string    `json:"election_id"`
	CandidateID string    `json:"candidate_id"`
	VoteHash    string    `json:"vote_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthContext is the normalized identity produced by the auth resolver.
// Built per request, never persisted.
type AuthContext struct {
	UserID        string
	Email         string
	Role          string
	IsActive      bool
	Institution   string
	Party         string
	SmartWallet   bool
	WalletAddress string
}

// Response envelope shared by every endpoint.

type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Package models defines the domain row types shared by the store, the
// agents and the HTTP layer.
package models

import "time"

// LoanStatus is the loan lifecycle state.
type LoanStatus string

const (
	LoanStatusVoting    LoanStatus = "voting"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusRejected  LoanStatus = "rejected"
	LoanStatusDisbursed LoanStatus = "disbursed"
	LoanStatusRepaying  LoanStatus = "repaying"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// VouchLevel is the stake tier of a vouch.
type VouchLevel string

const (
	VouchLevelBasic   VouchLevel = "basic"
	VouchLevelStrong  VouchLevel = "strong"
	VouchLevelMaximum VouchLevel = "maximum"
)

// VouchStatus is the vouch lifecycle state.
type VouchStatus string

const (
	VouchStatusActive   VouchStatus = "active"
	VouchStatusReturned VouchStatus = "returned"
	VouchStatusSlashed  VouchStatus = "slashed"
)

// Profile is a platform member.
type Profile struct {
	ID            string          `json:"id"`
	Phone         string          `json:"phone"`
	FullName      string          `json:"full_name"`
	Language      string          `json:"language"`
	WalletAddress string          `json:"wallet_address,omitempty"`
	TrustScore    int             `json:"trust_score"`
	SaathiBalance float64         `json:"saathi_balance"`
	IsVerified    bool            `json:"is_verified"`
	Metadata      ProfileMetadata `json:"metadata"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ProfileMetadata holds the gamification state carried on the profile row.
type ProfileMetadata struct {
	StreakDays     int      `json:"streak_days"`
	LastActiveDate string   `json:"last_active_date,omitempty"`
	Badges         []string `json:"badges,omitempty"`
	XP             int      `json:"xp"`
	Location       string   `json:"location,omitempty"`
}

// Loan is a peer-circle loan.
type Loan struct {
	ID               string     `json:"id"`
	BorrowerID       string     `json:"borrower_id"`
	CircleID         string     `json:"circle_id"`
	Amount           float64    `json:"amount"`
	Purpose          string     `json:"purpose"`
	TenureDays       int        `json:"tenure_days"`
	EMIAmount        float64    `json:"emi_amount"`
	Status           LoanStatus `json:"status"`
	GatewayPaymentID string     `json:"gateway_payment_id,omitempty"`
	BlockchainTxHash string     `json:"blockchain_tx_hash,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	DisbursedAt      *time.Time `json:"disbursed_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Vouch is a staked trust endorsement from one member to another.
type Vouch struct {
	ID               string      `json:"id"`
	VoucherID        string      `json:"voucher_id"`
	VoucheeID        string      `json:"vouchee_id"`
	CircleID         string      `json:"circle_id"`
	Level            VouchLevel  `json:"level"`
	SaathiStaked     float64     `json:"saathi_staked"`
	Status           VouchStatus `json:"status"`
	BlockchainTxHash string      `json:"blockchain_tx_hash,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Circle is a lending circle.
type Circle struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	InviteCode    string    `json:"invite_code"`
	MemberCount   int       `json:"member_count"`
	EmergencyFund float64   `json:"emergency_fund"`
	CreatedAt     time.Time `json:"created_at"`
}

// DiaryEntry is one income or expense record from a member's financial diary.
type DiaryEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	EntryType  string    `json:"entry_type"`
	Amount     float64   `json:"amount"`
	Category   string    `json:"category,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SaathiTransaction is a movement on a member's saathi-coin balance.
type SaathiTransaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	ReferenceID string    `json:"reference_id,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repayment is one repayment against a loan, keyed by the gateway payment id
// for idempotent webhook processing.
type Repayment struct {
	ID               string    `json:"id"`
	LoanID           string    `json:"loan_id"`
	Amount           float64   `json:"amount"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Status           string    `json:"status"`
	BlockchainTxHash string    `json:"blockchain_tx_hash,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// LoanVote is one member's quadratic vote on a loan.
type LoanVote struct {
	LoanID      string    `json:"loan_id"`
	VoterID     string    `json:"voter_id"`
	Approve     bool      `json:"approve"`
	TokensSpent int       `json:"tokens_spent"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserStats is the aggregate the gamification engine reads.
type UserStats struct {
	UserID            string `json:"user_id"`
	SuccessfulVouches int    `json:"successful_vouches"`
	CompletedLoans    int    `json:"completed_loans"`
	DefaultedLoans    int    `json:"defaulted_loans"`
	RecoveredDefaults int    `json:"recovered_defaults"`
	EarlyVouches      int    `json:"early_vouches"`
	TrustScore        int    `json:"trust_score"`
}

// TrustEvent is one entry in a member's trust-score history.
type TrustEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Delta     int       `json:"delta"`
	Score     int       `json:"score"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

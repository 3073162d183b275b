// Package ports declares the interfaces through which the decision core
// reaches the outside world. The agents and orchestrator depend only on
// these interfaces; concrete clients live in their own packages and tests
// substitute mocks.
package ports

import (
	"context"
	"time"

	"github.com/kredefy/backend/pkg/models"
)

// ProfileUpdate is a partial profile update; nil fields are left unchanged.
type ProfileUpdate struct {
	SaathiBalance *float64
	IsVerified    *bool
	Metadata      *models.ProfileMetadata
}

// LoanUpdate is a partial loan update; nil fields are left unchanged.
type LoanUpdate struct {
	Status           *models.LoanStatus
	GatewayPaymentID *string
	BlockchainTxHash *string
	DisbursedAt      *time.Time
	CompletedAt      *time.Time
}

// Store is the persistence port. Implementations return ErrNotFound for
// missing rows, ErrConflict for uniqueness violations and DependencyError
// with name "store" when the database is unreachable.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	GetProfileByPhone(ctx context.Context, phone string) (*models.Profile, error)
	CreateProfile(ctx context.Context, p *models.Profile) error
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) error
	AdjustSaathiBalance(ctx context.Context, userID string, delta float64) (float64, error)
	AdjustTrustScore(ctx context.Context, userID string, delta int, reason string) (int, error)
	GetUserStats(ctx context.Context, userID string) (*models.UserStats, error)

	GetLoan(ctx context.Context, loanID string) (*models.Loan, error)
	GetUserLoans(ctx context.Context, userID string) ([]models.Loan, error)
	CreateLoan(ctx context.Context, l *models.Loan) error
	UpdateLoan(ctx context.Context, loanID string, update LoanUpdate) error

	CreateLoanVote(ctx context.Context, v *models.LoanVote) error
	GetLoanVotes(ctx context.Context, loanID string) ([]models.LoanVote, error)

	CreateRepayment(ctx context.Context, r *models.Repayment) error
	GetLoanRepayments(ctx context.Context, loanID string) ([]models.Repayment, error)
	GetRepaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.Repayment, error)

	CreateVouch(ctx context.Context, v *models.Vouch) error
	GetVouch(ctx context.Context, vouchID string) (*models.Vouch, error)
	GetVouchesGiven(ctx context.Context, userID string) ([]models.Vouch, error)
	GetVouchesReceived(ctx context.Context, userID string) ([]models.Vouch, error)
	UpdateVouchStatus(ctx context.Context, vouchID string, status models.VouchStatus, txHash string) error

	GetUserCircles(ctx context.Context, userID string) ([]models.Circle, error)
	GetCircleMembers(ctx context.Context, circleID string) ([]string, error)

	GetDiaryEntries(ctx context.Context, userID string, limit int) ([]models.DiaryEntry, error)
	CreateSaathiTransaction(ctx context.Context, tx *models.SaathiTransaction) error
}

// ChatMessage is one turn sent to the language model.
type ChatMessage struct {
	Role    string
	Content string
}

// LLM is the language-model port.
type LLM interface {
	// Chat sends a system prompt plus user prompt and returns the
	// assistant text.
	Chat(ctx context.Context, system, prompt string) (string, error)
	// Transcribe converts recorded speech to text.
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// CheckoutParams describes a repayment checkout session request.
type CheckoutParams struct {
	LoanID      string
	UserID      string
	Amount      float64
	Currency    string
	CustomerRef string
}

// CheckoutSession is a created payment-gateway checkout.
type CheckoutSession struct {
	ID         string
	PaymentURL string
	ExpiresAt  time.Time
}

// PayoutParams describes a disbursal payout to a UPI handle.
type PayoutParams struct {
	LoanID    string
	UserID    string
	Amount    float64
	UPIHandle string
}

// Payout is a created disbursal payout.
type Payout struct {
	ID     string
	Status string
}

// Payments is the payment-gateway port.
type Payments interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	CreatePayout(ctx context.Context, params PayoutParams) (*Payout, error)
	// VerifyWebhookSignature checks the gateway HMAC over the raw payload.
	VerifyWebhookSignature(payload []byte, signature string) bool
}

// Messaging is the outbound notification port (SMS / WhatsApp).
type Messaging interface {
	// SendTemplated renders the named template in the given language with
	// params and delivers it over the channel ("sms" or "whatsapp").
	SendTemplated(ctx context.Context, channel, phone, template, language string, params map[string]string) error
}

// Blockchain is the notarization port. All methods return the transaction
// hash of the recorded entry.
type Blockchain interface {
	RecordLoan(ctx context.Context, loanID, borrowerWallet string, amount float64, tenureDays int) (string, error)
	RecordRepayment(ctx context.Context, loanID string, amount float64) (string, error)
	StakeForVouch(ctx context.Context, voucherWallet, voucheeWallet string, amount float64) (string, error)
	ReleaseVouchStake(ctx context.Context, vouchID string) (string, error)
	UpdateTrustScore(ctx context.Context, wallet string, score int) (string, error)
	MarkLoanCompleted(ctx context.Context, loanID string) (string, error)
}

// TTS is the speech-synthesis port.
type TTS interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

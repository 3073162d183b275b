package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/orchestrator"
	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/resilience"
	"github.com/kredefy/backend/pkg/voting"
)

// DecisionPipeline is the slice of the orchestrator the loan service needs.
type DecisionPipeline interface {
	ProcessLoanRequest(ctx context.Context, userID string, amount float64, purpose, circleID string) (*orchestrator.LoanDecision, error)
}

// LoanService drives the loan lifecycle: AI-gated request, circle voting,
// disbursal.
type LoanService struct {
	store      ports.Store
	brain      DecisionPipeline
	payments   ports.Payments
	chain      ports.Blockchain
	messaging  ports.Messaging
	tasks      *resilience.TaskManager
	voteConfig voting.Config
}

// NewLoanService creates a new LoanService.
func NewLoanService(store ports.Store, brain DecisionPipeline, payments ports.Payments, chain ports.Blockchain, messaging ports.Messaging, tasks *resilience.TaskManager, voteConfig voting.Config) *LoanService {
	return &LoanService{
		store:      store,
		brain:      brain,
		payments:   payments,
		chain:      chain,
		messaging:  messaging,
		tasks:      tasks,
		voteConfig: voteConfig,
	}
}

// LoanRequestResult is the outcome of a loan request: either a created loan
// in voting, or a decline carrying the advisor's guidance.
type LoanRequestResult struct {
	Success  bool                       `json:"success"`
	Approved bool                       `json:"approved"`
	Loan     *models.Loan               `json:"loan,omitempty"`
	Decision *orchestrator.LoanDecision `json:"ai_analysis,omitempty"`
}

// RequestLoan runs the decision pipeline and, on approval, opens the loan
// for circle voting.
func (s *LoanService) RequestLoan(ctx context.Context, userID, circleID string, amount float64, purpose string, tenureDays int) (*LoanRequestResult, error) {
	if circleID == "" {
		return nil, NewValidationError("circle_id", "required")
	}
	if amount <= 0 {
		return nil, NewValidationError("amount", "must be positive")
	}
	if tenureDays < 7 {
		return nil, NewValidationError("tenure_days", "must be at least 7")
	}

	decision, err := s.brain.ProcessLoanRequest(ctx, userID, amount, purpose, circleID)
	if err != nil {
		return nil, fmt.Errorf("running loan decision pipeline: %w", err)
	}
	if !decision.Approved {
		return &LoanRequestResult{Success: false, Approved: false, Decision: decision}, nil
	}

	weeks := float64(tenureDays) / 7
	loan := &models.Loan{
		ID:         uuid.NewString(),
		BorrowerID: userID,
		CircleID:   circleID,
		Amount:     decision.ApprovedAmount,
		Purpose:    purpose,
		TenureDays: tenureDays,
		EMIAmount:  decision.ApprovedAmount / weeks,
		Status:     models.LoanStatusVoting,
		CreatedAt:  time.Now(),
	}
	if err := s.store.CreateLoan(ctx, loan); err != nil {
		return nil, fmt.Errorf("creating loan: %w", err)
	}

	s.notarizeLoan(loan)

	slog.Info("loan opened for voting",
		"loan_id", loan.ID, "borrower_id", userID, "amount", loan.Amount, "tenure_days", tenureDays)
	return &LoanRequestResult{Success: true, Approved: true, Loan: loan, Decision: decision}, nil
}

// VoteOutcome reports the running tally after one vote.
type VoteOutcome struct {
	Tally  *voting.Tally     `json:"tally"`
	Status models.LoanStatus `json:"status"`
}

// VoteOnLoan records a quadratic vote and, once quorum is reached, settles
// the loan to approved or rejected.
func (s *LoanService) VoteOnLoan(ctx context.Context, loanID, voterID string, approve bool, tokens int) (*VoteOutcome, error) {
	if tokens < 0 {
		return nil, NewValidationError("tokens_spent", "must be non-negative")
	}

	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("loading loan: %w", err)
	}
	if loan.Status != models.LoanStatusVoting {
		return nil, ErrLoanNotVotable
	}
	if loan.BorrowerID == voterID {
		return nil, NewValidationError("voter_id", "cannot vote on your own loan")
	}

	voter, err := s.store.GetProfile(ctx, voterID)
	if err != nil {
		return nil, fmt.Errorf("loading voter profile: %w", err)
	}
	if limit := voting.MaxTokensFor(voter.TrustScore); tokens > limit {
		return nil, NewValidationError("tokens_spent", fmt.Sprintf("trust score %d allows at most %d tokens", voter.TrustScore, limit))
	}

	err = s.store.CreateLoanVote(ctx, &models.LoanVote{
		LoanID:      loanID,
		VoterID:     voterID,
		Approve:     approve,
		TokensSpent: tokens,
		CreatedAt:   time.Now(),
	})
	if errors.Is(err, ports.ErrConflict) {
		return nil, ErrAlreadyVoted
	}
	if err != nil {
		return nil, fmt.Errorf("recording vote: %w", err)
	}

	rows, err := s.store.GetLoanVotes(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("loading votes: %w", err)
	}
	votes := make([]voting.Vote, 0, len(rows))
	for _, r := range rows {
		votes = append(votes, voting.Vote{VoterID: r.VoterID, Approve: r.Approve, Tokens: r.TokensSpent})
	}
	tally := voting.TallyVotes(votes, s.voteConfig)

	status := loan.Status
	if tally.QuorumMet {
		status = models.LoanStatusRejected
		if tally.Approved {
			status = models.LoanStatusApproved
		}
		if err := s.store.UpdateLoan(ctx, loanID, ports.LoanUpdate{Status: &status}); err != nil {
			return nil, fmt.Errorf("settling loan: %w", err)
		}
		slog.Info("loan vote settled",
			"loan_id", loanID, "status", status, "approval_pct", tally.ApprovalPercentage, "voters", tally.TotalVoters)
	}

	return &VoteOutcome{Tally: &tally, Status: status}, nil
}

// Disburse pays out an approved loan to the borrower's UPI handle.
func (s *LoanService) Disburse(ctx context.Context, loanID, upiHandle string) (*models.Loan, error) {
	if upiHandle == "" {
		return nil, NewValidationError("upi_handle", "required")
	}

	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("loading loan: %w", err)
	}
	if loan.Status != models.LoanStatusApproved {
		return nil, ErrLoanNotDisbursable
	}

	payout, err := s.payments.CreatePayout(ctx, ports.PayoutParams{
		LoanID:    loan.ID,
		UserID:    loan.BorrowerID,
		Amount:    loan.Amount,
		UPIHandle: upiHandle,
	})
	if err != nil {
		return nil, fmt.Errorf("creating payout: %w", err)
	}

	now := time.Now()
	status := models.LoanStatusDisbursed
	if err := s.store.UpdateLoan(ctx, loanID, ports.LoanUpdate{
		Status:           &status,
		GatewayPaymentID: &payout.ID,
		DisbursedAt:      &now,
	}); err != nil {
		return nil, fmt.Errorf("marking loan disbursed: %w", err)
	}
	loan.Status = status
	loan.GatewayPaymentID = payout.ID
	loan.DisbursedAt = &now

	s.notifyDisbursal(ctx, loan)

	slog.Info("loan disbursed", "loan_id", loanID, "payout_id", payout.ID, "amount", loan.Amount)
	return loan, nil
}

// notarizeLoan records the loan on chain in the background; the tx hash
// lands on the row when the relayer answers.
func (s *LoanService) notarizeLoan(loan *models.Loan) {
	loanID := loan.ID
	borrowerID := loan.BorrowerID
	amount := loan.Amount
	tenureDays := loan.TenureDays
	s.tasks.Go("chain.record_loan", func(ctx context.Context) error {
		borrower, err := s.store.GetProfile(ctx, borrowerID)
		if err != nil {
			return fmt.Errorf("loading borrower wallet: %w", err)
		}
		txHash, err := s.chain.RecordLoan(ctx, loanID, borrower.WalletAddress, amount, tenureDays)
		if err != nil {
			return err
		}
		return s.store.UpdateLoan(ctx, loanID, ports.LoanUpdate{BlockchainTxHash: &txHash})
	})
}

// notifyDisbursal sends the disbursal message best-effort; a failed
// notification never fails the disbursal.
func (s *LoanService) notifyDisbursal(ctx context.Context, loan *models.Loan) {
	if s.messaging == nil {
		return
	}
	borrower, err := s.store.GetProfile(ctx, loan.BorrowerID)
	if err != nil {
		slog.Warn("skipping disbursal notification", "loan_id", loan.ID, "error", err)
		return
	}
	phone := borrower.Phone
	language := borrower.Language
	name := borrower.FullName
	amount := loan.Amount
	emi := loan.EMIAmount
	s.tasks.Go("messaging.loan_disbursed", func(ctx context.Context) error {
		return s.messaging.SendTemplated(ctx, "whatsapp", phone, "loan_disbursed", language, map[string]string{
			"name":   name,
			"amount": fmt.Sprintf("%.0f", amount),
			"emi":    fmt.Sprintf("%.0f", emi),
		})
	})
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kredefy/backend/pkg/gamification"
	"github.com/kredefy/backend/pkg/metrics"
	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/resilience"
)

const (
	repaymentTrustBonus = 5
	// Principal plus the nominal interest collected over the tenure.
	completionMultiplier = 1.1
)

// PaymentService applies confirmed gateway payments to loans. Webhooks can
// be delivered more than once, so every payment is deduped on the gateway
// payment id.
type PaymentService struct {
	store    ports.Store
	chain    ports.Blockchain
	vouching *VouchingService
	rewards  *gamification.Engine
	tasks    *resilience.TaskManager
}

// NewPaymentService creates a new PaymentService. rewards may be nil when
// gamification is disabled.
func NewPaymentService(store ports.Store, chain ports.Blockchain, vouching *VouchingService, rewards *gamification.Engine, tasks *resilience.TaskManager) *PaymentService {
	return &PaymentService{store: store, chain: chain, vouching: vouching, rewards: rewards, tasks: tasks}
}

// RepaymentResult reports what one gateway payment did.
type RepaymentResult struct {
	Duplicate     bool              `json:"duplicate"`
	Repayment     *models.Repayment `json:"repayment,omitempty"`
	LoanStatus    models.LoanStatus `json:"loan_status"`
	LoanCompleted bool              `json:"loan_completed"`
}

// ProcessRepayment records a confirmed gateway payment against a loan,
// exactly once per gateway payment id.
func (s *PaymentService) ProcessRepayment(ctx context.Context, gatewayPaymentID, loanID string, amount float64) (*RepaymentResult, error) {
	if gatewayPaymentID == "" {
		return nil, NewValidationError("payment_id", "required")
	}
	if amount <= 0 {
		return nil, NewValidationError("amount", "must be positive")
	}

	existing, err := s.store.GetRepaymentByGatewayID(ctx, gatewayPaymentID)
	if err == nil {
		metrics.WebhookDuplicates.Inc()
		slog.Info("duplicate payment webhook ignored", "payment_id", gatewayPaymentID, "loan_id", existing.LoanID)
		loan, err := s.store.GetLoan(ctx, existing.LoanID)
		if err != nil {
			return nil, fmt.Errorf("loading loan for duplicate payment: %w", err)
		}
		return &RepaymentResult{Duplicate: true, Repayment: existing, LoanStatus: loan.Status}, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return nil, fmt.Errorf("checking for duplicate payment: %w", err)
	}

	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("loading loan: %w", err)
	}

	repayment := &models.Repayment{
		ID:               uuid.NewString(),
		LoanID:           loanID,
		Amount:           amount,
		GatewayPaymentID: gatewayPaymentID,
		Status:           "completed",
		CreatedAt:        time.Now(),
	}
	if err := s.store.CreateRepayment(ctx, repayment); err != nil {
		// A concurrent delivery of the same webhook can still slip past the
		// lookup; the unique index on the gateway id is the backstop.
		if errors.Is(err, ports.ErrConflict) {
			metrics.WebhookDuplicates.Inc()
			return &RepaymentResult{Duplicate: true, LoanStatus: loan.Status}, nil
		}
		return nil, fmt.Errorf("recording repayment: %w", err)
	}

	if loan.Status == models.LoanStatusDisbursed {
		status := models.LoanStatusRepaying
		if err := s.store.UpdateLoan(ctx, loanID, ports.LoanUpdate{Status: &status}); err != nil {
			return nil, fmt.Errorf("marking loan repaying: %w", err)
		}
		loan.Status = status
	}

	if _, err := s.store.AdjustTrustScore(ctx, loan.BorrowerID, repaymentTrustBonus, "repayment"); err != nil {
		slog.Error("repayment trust bonus failed", "loan_id", loanID, "borrower_id", loan.BorrowerID, "error", err)
	}
	if s.rewards != nil {
		if _, err := s.rewards.RecordEvent(ctx, loan.BorrowerID, gamification.EventRepayment); err != nil {
			slog.Warn("repayment gamification update failed", "borrower_id", loan.BorrowerID, "error", err)
		}
	}

	s.tasks.Go("chain.record_repayment", func(ctx context.Context) error {
		txHash, err := s.chain.RecordRepayment(ctx, loanID, amount)
		if err != nil {
			return err
		}
		repayment.BlockchainTxHash = txHash
		return nil
	})

	completed, err := s.settleIfRepaid(ctx, loan)
	if err != nil {
		return nil, err
	}

	slog.Info("repayment applied",
		"payment_id", gatewayPaymentID, "loan_id", loanID, "amount", amount, "loan_status", loan.Status)
	return &RepaymentResult{Repayment: repayment, LoanStatus: loan.Status, LoanCompleted: completed}, nil
}

// settleIfRepaid completes the loan once repayments cover principal plus
// interest, releasing the vouches that backed the borrower.
func (s *PaymentService) settleIfRepaid(ctx context.Context, loan *models.Loan) (bool, error) {
	repayments, err := s.store.GetLoanRepayments(ctx, loan.ID)
	if err != nil {
		return false, fmt.Errorf("loading repayments: %w", err)
	}
	var total float64
	for _, r := range repayments {
		total += r.Amount
	}
	if total < loan.Amount*completionMultiplier {
		return false, nil
	}

	now := time.Now()
	status := models.LoanStatusCompleted
	if err := s.store.UpdateLoan(ctx, loan.ID, ports.LoanUpdate{Status: &status, CompletedAt: &now}); err != nil {
		return false, fmt.Errorf("completing loan: %w", err)
	}
	loan.Status = status

	received, err := s.store.GetVouchesReceived(ctx, loan.BorrowerID)
	if err != nil {
		slog.Error("loading vouches for release failed", "loan_id", loan.ID, "error", err)
	}
	for i := range received {
		if received[i].Status != models.VouchStatusActive {
			continue
		}
		if err := s.vouching.ReleaseVouch(ctx, &received[i]); err != nil {
			slog.Error("vouch release failed", "vouch_id", received[i].ID, "loan_id", loan.ID, "error", err)
		}
	}

	loanID := loan.ID
	s.tasks.Go("chain.complete_loan", func(ctx context.Context) error {
		txHash, err := s.chain.MarkLoanCompleted(ctx, loanID)
		if err != nil {
			return err
		}
		return s.store.UpdateLoan(ctx, loanID, ports.LoanUpdate{BlockchainTxHash: &txHash})
	})

	slog.Info("loan completed", "loan_id", loan.ID, "total_repaid", total)
	return true, nil
}

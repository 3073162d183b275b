package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/ports"
)

const loanColumns = `id, borrower_id, circle_id, amount, purpose, tenure_days, emi_amount, status, gateway_payment_id, blockchain_tx_hash, created_at, disbursed_at, completed_at`

func scanLoan(row interface{ Scan(...any) error }) (*models.Loan, error) {
	var l models.Loan
	var disbursedAt, completedAt sql.NullTime
	err := row.Scan(&l.ID, &l.BorrowerID, &l.CircleID, &l.Amount, &l.Purpose, &l.TenureDays,
		&l.EMIAmount, &l.Status, &l.GatewayPaymentID, &l.BlockchainTxHash, &l.CreatedAt,
		&disbursedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	l.DisbursedAt = timePtr(disbursedAt)
	l.CompletedAt = timePtr(completedAt)
	return &l, nil
}

func (s *Store) GetLoan(ctx context.Context, loanID string) (*models.Loan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, loanID)
	l, err := scanLoan(row)
	if err != nil {
		return nil, wrapErr("get loan", err)
	}
	return l, nil
}

func (s *Store) GetUserLoans(ctx context.Context, userID string) ([]models.Loan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE borrower_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, wrapErr("get user loans", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, wrapErr("get user loans", err)
		}
		loans = append(loans, *l)
	}
	return loans, wrapErr("get user loans", rows.Err())
}

func (s *Store) CreateLoan(ctx context.Context, l *models.Loan) error {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO loans (borrower_id, circle_id, amount, purpose, tenure_days, emi_amount, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		l.BorrowerID, l.CircleID, l.Amount, l.Purpose, l.TenureDays, l.EMIAmount, l.Status)
	if err := row.Scan(&l.ID, &l.CreatedAt); err != nil {
		return wrapErr("create loan", err)
	}
	return nil
}

func (s *Store) UpdateLoan(ctx context.Context, loanID string, update ports.LoanUpdate) error {
	set := make([]string, 0, 5)
	args := []any{loanID}
	if update.Status != nil {
		args = append(args, *update.Status)
		set = append(set, fmt.Sprintf("status = $%d", len(args)))
	}
	if update.GatewayPaymentID != nil {
		args = append(args, *update.GatewayPaymentID)
		set = append(set, fmt.Sprintf("gateway_payment_id = $%d", len(args)))
	}
	if update.BlockchainTxHash != nil {
		args = append(args, *update.BlockchainTxHash)
		set = append(set, fmt.Sprintf("blockchain_tx_hash = $%d", len(args)))
	}
	if update.DisbursedAt != nil {
		args = append(args, *update.DisbursedAt)
		set = append(set, fmt.Sprintf("disbursed_at = $%d", len(args)))
	}
	if update.CompletedAt != nil {
		args = append(args, *update.CompletedAt)
		set = append(set, fmt.Sprintf("completed_at = $%d", len(args)))
	}
	if len(set) == 0 {
		return nil
	}

	result, err := s.db.ExecContext(ctx, "UPDATE loans SET "+joinSet(set)+" WHERE id = $1", args...)
	if err != nil {
		return wrapErr("update loan", err)
	}
	return checkAffected("update loan", result)
}

func (s *Store) CreateLoanVote(ctx context.Context, v *models.LoanVote) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO loan_votes (loan_id, voter_id, approve, tokens_spent)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		v.LoanID, v.VoterID, v.Approve, v.TokensSpent).Scan(&v.CreatedAt)
	return wrapErr("create loan vote", err)
}

func (s *Store) GetLoanVotes(ctx context.Context, loanID string) ([]models.LoanVote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT loan_id, voter_id, approve, tokens_spent, created_at
		 FROM loan_votes WHERE loan_id = $1 ORDER BY created_at`, loanID)
	if err != nil {
		return nil, wrapErr("get loan votes", err)
	}
	defer rows.Close()

	var votes []models.LoanVote
	for rows.Next() {
		var v models.LoanVote
		if err := rows.Scan(&v.LoanID, &v.VoterID, &v.Approve, &v.TokensSpent, &v.CreatedAt); err != nil {
			return nil, wrapErr("get loan votes", err)
		}
		votes = append(votes, v)
	}
	return votes, wrapErr("get loan votes", rows.Err())
}

func (s *Store) CreateRepayment(ctx context.Context, r *models.Repayment) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO repayments (loan_id, amount, gateway_payment_id, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		r.LoanID, r.Amount, r.GatewayPaymentID, r.Status).Scan(&r.ID, &r.CreatedAt)
	return wrapErr("create repayment", err)
}

func (s *Store) GetLoanRepayments(ctx context.Context, loanID string) ([]models.Repayment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, loan_id, amount, gateway_payment_id, status, blockchain_tx_hash, created_at
		 FROM repayments WHERE loan_id = $1 ORDER BY created_at`, loanID)
	if err != nil {
		return nil, wrapErr("get loan repayments", err)
	}
	defer rows.Close()

	var repayments []models.Repayment
	for rows.Next() {
		var r models.Repayment
		if err := rows.Scan(&r.ID, &r.LoanID, &r.Amount, &r.GatewayPaymentID, &r.Status, &r.BlockchainTxHash, &r.CreatedAt); err != nil {
			return nil, wrapErr("get loan repayments", err)
		}
		repayments = append(repayments, r)
	}
	return repayments, wrapErr("get loan repayments", rows.Err())
}

func (s *Store) GetRepaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.Repayment, error) {
	var r models.Repayment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, loan_id, amount, gateway_payment_id, status, blockchain_tx_hash, created_at
		 FROM repayments WHERE gateway_payment_id = $1`, gatewayPaymentID).
		Scan(&r.ID, &r.LoanID, &r.Amount, &r.GatewayPaymentID, &r.Status, &r.BlockchainTxHash, &r.CreatedAt)
	if err != nil {
		return nil, wrapErr("get repayment by gateway id", err)
	}
	return &r, nil
}

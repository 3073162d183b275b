package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/orchestrator"
	"github.com/kredefy/backend/pkg/resilience"
	"github.com/kredefy/backend/pkg/voting"
)

// stubPipeline returns a scripted decision.
type stubPipeline struct {
	decision *orchestrator.LoanDecision
}

func (s *stubPipeline) ProcessLoanRequest(context.Context, string, float64, string, string) (*orchestrator.LoanDecision, error) {
	return s.decision, nil
}

func newLoanFixture(decision *orchestrator.LoanDecision) (*LoanService, *memStore, *fakeChain, *resilience.TaskManager) {
	store := newMemStore()
	store.profiles["borrower"] = &models.Profile{ID: "borrower", FullName: "Ravi", Phone: "+919800000001", Language: "hi", TrustScore: 75, WalletAddress: "0xravi"}
	store.profiles["voter-1"] = &models.Profile{ID: "voter-1", TrustScore: 85}
	store.profiles["voter-2"] = &models.Profile{ID: "voter-2", TrustScore: 65}
	store.profiles["voter-3"] = &models.Profile{ID: "voter-3", TrustScore: 45}

	chain := &fakeChain{}
	tasks := resilience.NewTaskManager()
	svc := NewLoanService(store, &stubPipeline{decision: decision}, &fakePayments{}, chain, &fakeMessaging{}, tasks, voting.DefaultConfig)
	return svc, store, chain, tasks
}

func approvedDecision(amount float64) *orchestrator.LoanDecision {
	return &orchestrator.LoanDecision{Approved: true, ApprovedAmount: amount, RiskCategory: "MODERATE_RISK", FraudVerdict: "CLEAR"}
}

func TestRequestLoanValidatesInput(t *testing.T) {
	svc, _, _, tasks := newLoanFixture(approvedDecision(15000))
	defer drain(tasks)

	_, err := svc.RequestLoan(context.Background(), "borrower", "", 15000, "shop", 70)
	assert.True(t, IsValidationError(err))

	_, err = svc.RequestLoan(context.Background(), "borrower", "c1", 0, "shop", 70)
	assert.True(t, IsValidationError(err))

	_, err = svc.RequestLoan(context.Background(), "borrower", "c1", 15000, "shop", 3)
	assert.True(t, IsValidationError(err))
}

func TestRequestLoanOpensVotingOnApproval(t *testing.T) {
	svc, store, chain, tasks := newLoanFixture(approvedDecision(15000))

	result, err := svc.RequestLoan(context.Background(), "borrower", "c1", 15000, "shop", 70)
	require.NoError(t, err)
	drain(tasks)

	require.True(t, result.Success)
	require.NotNil(t, result.Loan)
	assert.Equal(t, models.LoanStatusVoting, result.Loan.Status)
	assert.Equal(t, float64(15000), result.Loan.Amount)
	assert.InDelta(t, 1500, result.Loan.EMIAmount, 0.001, "15000 over 10 weeks")

	assert.True(t, chain.calledWith("record_loan"))
	assert.Equal(t, "0xrecord_loan", store.loans[result.Loan.ID].BlockchainTxHash)
}

func TestRequestLoanReturnsDeclineWithoutCreating(t *testing.T) {
	decline := &orchestrator.LoanDecision{Approved: false, Reason: "trust_too_low", SuggestedAction: "get_vouches"}
	svc, store, _, tasks := newLoanFixture(decline)
	defer drain(tasks)

	result, err := svc.RequestLoan(context.Background(), "borrower", "c1", 15000, "shop", 70)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Nil(t, result.Loan)
	assert.Equal(t, "trust_too_low", result.Decision.Reason)
	assert.Empty(t, store.loans)
}

func voteFixtureLoan(t *testing.T, svc *LoanService, store *memStore) *models.Loan {
	t.Helper()
	result, err := svc.RequestLoan(context.Background(), "borrower", "c1", 15000, "shop", 70)
	require.NoError(t, err)
	return result.Loan
}

func TestVoteOnLoanSettlesAtQuorum(t *testing.T) {
	svc, store, _, tasks := newLoanFixture(approvedDecision(15000))
	defer drain(tasks)
	loan := voteFixtureLoan(t, svc, store)

	outcome, err := svc.VoteOnLoan(context.Background(), loan.ID, "voter-1", true, 100)
	require.NoError(t, err)
	assert.False(t, outcome.Tally.QuorumMet)
	assert.Equal(t, models.LoanStatusVoting, outcome.Status)

	_, err = svc.VoteOnLoan(context.Background(), loan.ID, "voter-2", true, 25)
	require.NoError(t, err)

	outcome, err = svc.VoteOnLoan(context.Background(), loan.ID, "voter-3", false, 25)
	require.NoError(t, err)
	require.True(t, outcome.Tally.QuorumMet)
	// for_power = 10+5 = 15, against_power = 5: 75% approval.
	assert.Equal(t, models.LoanStatusApproved, outcome.Status)
	assert.Equal(t, models.LoanStatusApproved, store.loans[loan.ID].Status)
}

func TestVoteOnLoanRejectsOwnLoanAndDuplicates(t *testing.T) {
	svc, store, _, tasks := newLoanFixture(approvedDecision(15000))
	defer drain(tasks)
	loan := voteFixtureLoan(t, svc, store)

	_, err := svc.VoteOnLoan(context.Background(), loan.ID, "borrower", true, 10)
	assert.True(t, IsValidationError(err))

	_, err = svc.VoteOnLoan(context.Background(), loan.ID, "voter-1", true, 10)
	require.NoError(t, err)
	_, err = svc.VoteOnLoan(context.Background(), loan.ID, "voter-1", false, 10)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
}

func TestVoteOnLoanCapsTokensByTrust(t *testing.T) {
	svc, store, _, tasks := newLoanFixture(approvedDecision(15000))
	defer drain(tasks)
	loan := voteFixtureLoan(t, svc, store)

	// voter-3 has trust 45, capped at 25 tokens.
	_, err := svc.VoteOnLoan(context.Background(), loan.ID, "voter-3", true, 100)
	assert.True(t, IsValidationError(err))
}

func TestVoteOnLoanRequiresVotingStatus(t *testing.T) {
	svc, store, _, tasks := newLoanFixture(approvedDecision(15000))
	defer drain(tasks)
	loan := voteFixtureLoan(t, svc, store)
	store.loans[loan.ID].Status = models.LoanStatusDisbursed

	_, err := svc.VoteOnLoan(context.Background(), loan.ID, "voter-1", true, 10)
	assert.ErrorIs(t, err, ErrLoanNotVotable)
}

func TestDisbursePaysOutApprovedLoan(t *testing.T) {
	svc, store, _, tasks := newLoanFixture(approvedDecision(15000))
	loan := voteFixtureLoan(t, svc, store)
	store.loans[loan.ID].Status = models.LoanStatusApproved

	disbursed, err := svc.Disburse(context.Background(), loan.ID, "ravi@upi")
	require.NoError(t, err)
	drain(tasks)

	assert.Equal(t, models.LoanStatusDisbursed, disbursed.Status)
	assert.Equal(t, "po_1", disbursed.GatewayPaymentID)
	assert.NotNil(t, disbursed.DisbursedAt)
}

func TestDisburseRequiresApprovedStatus(t *testing.T) {
	svc, store, _, tasks := newLoanFixture(approvedDecision(15000))
	defer drain(tasks)
	loan := voteFixtureLoan(t, svc, store)

	_, err := svc.Disburse(context.Background(), loan.ID, "ravi@upi")
	assert.ErrorIs(t, err, ErrLoanNotDisbursable)
}

package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/resilience"
)

var errStoreDown = ports.NewDependencyError("store", errors.New("connection refused"))

// fakeChain records notarization calls and returns canned hashes.
type fakeChain struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeChain) record(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return "0x" + name, nil
}

func (f *fakeChain) calledWith(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (f *fakeChain) RecordLoan(context.Context, string, string, float64, int) (string, error) {
	return f.record("record_loan")
}

func (f *fakeChain) RecordRepayment(context.Context, string, float64) (string, error) {
	return f.record("record_repayment")
}

func (f *fakeChain) StakeForVouch(context.Context, string, string, float64) (string, error) {
	return f.record("stake_vouch")
}

func (f *fakeChain) ReleaseVouchStake(context.Context, string) (string, error) {
	return f.record("release_stake")
}

func (f *fakeChain) UpdateTrustScore(context.Context, string, int) (string, error) {
	return f.record("update_trust")
}

func (f *fakeChain) MarkLoanCompleted(context.Context, string) (string, error) {
	return f.record("complete_loan")
}

// fakePayments returns canned payouts.
type fakePayments struct {
	payoutErr error
}

func (f *fakePayments) CreateCheckoutSession(context.Context, ports.CheckoutParams) (*ports.CheckoutSession, error) {
	return &ports.CheckoutSession{ID: "cs_1", PaymentURL: "https://pay.example/cs_1"}, nil
}

func (f *fakePayments) CreatePayout(context.Context, ports.PayoutParams) (*ports.Payout, error) {
	if f.payoutErr != nil {
		return nil, f.payoutErr
	}
	return &ports.Payout{ID: "po_1", Status: "processing"}, nil
}

func (f *fakePayments) VerifyWebhookSignature([]byte, string) bool { return true }

// fakeMessaging records sends.
type fakeMessaging struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMessaging) SendTemplated(_ context.Context, _, _, template, _ string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, template)
	return nil
}

// drain waits for background tasks so assertions can see their effects.
func drain(tasks *resilience.TaskManager) {
	tasks.Shutdown(2 * time.Second)
}

package services

import (
	"context"
	"sync"

	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/ports"
)

// memStore is a mutable in-memory ports.Store for service tests.
type memStore struct {
	mu           sync.Mutex
	profiles     map[string]*models.Profile
	loans        map[string]*models.Loan
	vouches      map[string]*models.Vouch
	votes        map[string][]models.LoanVote
	repayments   map[string]*models.Repayment
	transactions []models.SaathiTransaction
	trustEvents  []models.TrustEvent

	failCreateVouch bool
}

func newMemStore() *memStore {
	return &memStore{
		profiles:   make(map[string]*models.Profile),
		loans:      make(map[string]*models.Loan),
		vouches:    make(map[string]*models.Vouch),
		votes:      make(map[string][]models.LoanVote),
		repayments: make(map[string]*models.Repayment),
	}
}

func (m *memStore) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memStore) GetProfileByPhone(context.Context, string) (*models.Profile, error) {
	return nil, ports.ErrNotFound
}

func (m *memStore) CreateProfile(_ context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
	return nil
}

func (m *memStore) UpdateProfile(_ context.Context, userID string, update ports.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return ports.ErrNotFound
	}
	if update.SaathiBalance != nil {
		p.SaathiBalance = *update.SaathiBalance
	}
	if update.IsVerified != nil {
		p.IsVerified = *update.IsVerified
	}
	if update.Metadata != nil {
		p.Metadata = *update.Metadata
	}
	return nil
}

func (m *memStore) AdjustSaathiBalance(_ context.Context, userID string, delta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return 0, ports.ErrNotFound
	}
	p.SaathiBalance += delta
	return p.SaathiBalance, nil
}

func (m *memStore) AdjustTrustScore(_ context.Context, userID string, delta int, reason string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return 0, ports.ErrNotFound
	}
	p.TrustScore += delta
	m.trustEvents = append(m.trustEvents, models.TrustEvent{UserID: userID, Delta: delta, Score: p.TrustScore, Reason: reason})
	return p.TrustScore, nil
}

func (m *memStore) GetUserStats(context.Context, string) (*models.UserStats, error) {
	return &models.UserStats{}, nil
}

func (m *memStore) GetLoan(_ context.Context, loanID string) (*models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[loanID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (m *memStore) GetUserLoans(_ context.Context, userID string) ([]models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Loan
	for _, l := range m.loans {
		if l.BorrowerID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memStore) CreateLoan(_ context.Context, l *models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[l.ID] = l
	return nil
}

func (m *memStore) UpdateLoan(_ context.Context, loanID string, update ports.LoanUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[loanID]
	if !ok {
		return ports.ErrNotFound
	}
	if update.Status != nil {
		l.Status = *update.Status
	}
	if update.GatewayPaymentID != nil {
		l.GatewayPaymentID = *update.GatewayPaymentID
	}
	if update.BlockchainTxHash != nil {
		l.BlockchainTxHash = *update.BlockchainTxHash
	}
	if update.DisbursedAt != nil {
		l.DisbursedAt = update.DisbursedAt
	}
	if update.CompletedAt != nil {
		l.CompletedAt = update.CompletedAt
	}
	return nil
}

func (m *memStore) CreateLoanVote(_ context.Context, v *models.LoanVote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.votes[v.LoanID] {
		if existing.VoterID == v.VoterID {
			return ports.ErrConflict
		}
	}
	m.votes[v.LoanID] = append(m.votes[v.LoanID], *v)
	return nil
}

func (m *memStore) GetLoanVotes(_ context.Context, loanID string) ([]models.LoanVote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LoanVote(nil), m.votes[loanID]...), nil
}

func (m *memStore) CreateRepayment(_ context.Context, r *models.Repayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.repayments {
		if existing.GatewayPaymentID == r.GatewayPaymentID {
			return ports.ErrConflict
		}
	}
	m.repayments[r.ID] = r
	return nil
}

func (m *memStore) GetLoanRepayments(_ context.Context, loanID string) ([]models.Repayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Repayment
	for _, r := range m.repayments {
		if r.LoanID == loanID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) GetRepaymentByGatewayID(_ context.Context, gatewayPaymentID string) (*models.Repayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.repayments {
		if r.GatewayPaymentID == gatewayPaymentID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (m *memStore) CreateVouch(_ context.Context, v *models.Vouch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateVouch {
		return errStoreDown
	}
	m.vouches[v.ID] = v
	return nil
}

func (m *memStore) GetVouch(_ context.Context, vouchID string) (*models.Vouch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouches[vouchID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := *v
	return &copied, nil
}

func (m *memStore) GetVouchesGiven(_ context.Context, userID string) ([]models.Vouch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Vouch
	for _, v := range m.vouches {
		if v.VoucherID == userID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *memStore) GetVouchesReceived(_ context.Context, userID string) ([]models.Vouch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Vouch
	for _, v := range m.vouches {
		if v.VoucheeID == userID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *memStore) UpdateVouchStatus(_ context.Context, vouchID string, status models.VouchStatus, txHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouches[vouchID]
	if !ok {
		return ports.ErrNotFound
	}
	v.Status = status
	if txHash != "" {
		v.BlockchainTxHash = txHash
	}
	return nil
}

func (m *memStore) GetUserCircles(context.Context, string) ([]models.Circle, error) { return nil, nil }

func (m *memStore) GetCircleMembers(context.Context, string) ([]string, error) { return nil, nil }

func (m *memStore) GetDiaryEntries(context.Context, string, int) ([]models.DiaryEntry, error) {
	return nil, nil
}

func (m *memStore) CreateSaathiTransaction(_ context.Context, tx *models.SaathiTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, *tx)
	return nil
}

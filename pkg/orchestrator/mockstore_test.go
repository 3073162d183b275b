package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/ports"
)

// mockStore is an in-memory ports.Store for pipeline tests.
type mockStore struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
	loans    map[string][]models.Loan
	vouches  map[string][]models.Vouch
	circles  map[string][]models.Circle
	diary    map[string][]models.DiaryEntry

	failProfile bool
	failLoans   bool
}

func newMockStore() *mockStore {
	return &mockStore{
		profiles: make(map[string]*models.Profile),
		loans:    make(map[string][]models.Loan),
		vouches:  make(map[string][]models.Vouch),
		circles:  make(map[string][]models.Circle),
		diary:    make(map[string][]models.DiaryEntry),
	}
}

var errStoreDown = ports.NewDependencyError("store", errors.New("connection refused"))

func (m *mockStore) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failProfile {
		return nil, errStoreDown
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) GetProfileByPhone(context.Context, string) (*models.Profile, error) {
	return nil, ports.ErrNotFound
}

func (m *mockStore) CreateProfile(context.Context, *models.Profile) error { return nil }

func (m *mockStore) UpdateProfile(context.Context, string, ports.ProfileUpdate) error { return nil }

func (m *mockStore) AdjustSaathiBalance(context.Context, string, float64) (float64, error) {
	return 0, nil
}

func (m *mockStore) AdjustTrustScore(context.Context, string, int, string) (int, error) {
	return 0, nil
}

func (m *mockStore) GetUserStats(context.Context, string) (*models.UserStats, error) {
	return &models.UserStats{}, nil
}

func (m *mockStore) GetLoan(context.Context, string) (*models.Loan, error) {
	return nil, ports.ErrNotFound
}

func (m *mockStore) GetUserLoans(_ context.Context, userID string) ([]models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoans {
		return nil, errStoreDown
	}
	return m.loans[userID], nil
}

func (m *mockStore) CreateLoan(context.Context, *models.Loan) error { return nil }

func (m *mockStore) UpdateLoan(context.Context, string, ports.LoanUpdate) error { return nil }

func (m *mockStore) CreateLoanVote(context.Context, *models.LoanVote) error { return nil }

func (m *mockStore) GetLoanVotes(context.Context, string) ([]models.LoanVote, error) {
	return nil, nil
}

func (m *mockStore) CreateRepayment(context.Context, *models.Repayment) error { return nil }

func (m *mockStore) GetLoanRepayments(context.Context, string) ([]models.Repayment, error) {
	return nil, nil
}

func (m *mockStore) GetRepaymentByGatewayID(context.Context, string) (*models.Repayment, error) {
	return nil, ports.ErrNotFound
}

func (m *mockStore) CreateVouch(context.Context, *models.Vouch) error { return nil }

func (m *mockStore) GetVouch(context.Context, string) (*models.Vouch, error) {
	return nil, ports.ErrNotFound
}

func (m *mockStore) GetVouchesGiven(context.Context, string) ([]models.Vouch, error) {
	return nil, nil
}

func (m *mockStore) GetVouchesReceived(_ context.Context, userID string) ([]models.Vouch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vouches[userID], nil
}

func (m *mockStore) UpdateVouchStatus(context.Context, string, models.VouchStatus, string) error {
	return nil
}

func (m *mockStore) GetUserCircles(_ context.Context, userID string) ([]models.Circle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.circles[userID], nil
}

func (m *mockStore) GetCircleMembers(context.Context, string) ([]string, error) { return nil, nil }

func (m *mockStore) GetDiaryEntries(_ context.Context, userID string, _ int) ([]models.DiaryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.diary[userID], nil
}

func (m *mockStore) CreateSaathiTransaction(context.Context, *models.SaathiTransaction) error {
	return nil
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kredefy/backend/pkg/config"
	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/resilience"
)

func newVouchingFixture() (*VouchingService, *memStore, *fakeChain, *resilience.TaskManager) {
	store := newMemStore()
	store.profiles["voucher"] = &models.Profile{ID: "voucher", FullName: "Meera", Phone: "+919800000001", Language: "hi", SaathiBalance: 500, TrustScore: 60, WalletAddress: "0xmeera"}
	store.profiles["vouchee"] = &models.Profile{ID: "vouchee", FullName: "Ravi", Phone: "+919800000002", Language: "hi", TrustScore: 30, WalletAddress: "0xravi"}

	chain := &fakeChain{}
	tasks := resilience.NewTaskManager()
	svc := NewVouchingService(store, chain, &fakeMessaging{}, tasks, config.DefaultTunables().VouchLevels)
	return svc, store, chain, tasks
}

func TestCreateVouchRejectsUnknownLevel(t *testing.T) {
	svc, _, _, tasks := newVouchingFixture()
	defer drain(tasks)

	_, err := svc.CreateVouch(context.Background(), "voucher", "vouchee", "c1", "platinum", 100)
	assert.True(t, IsValidationError(err))
}

func TestCreateVouchEnforcesStakeBounds(t *testing.T) {
	svc, _, _, tasks := newVouchingFixture()
	defer drain(tasks)

	_, err := svc.CreateVouch(context.Background(), "voucher", "vouchee", "c1", models.VouchLevelStrong, 20)
	require.True(t, IsValidationError(err), "stake below the strong minimum")

	_, err = svc.CreateVouch(context.Background(), "voucher", "vouchee", "c1", models.VouchLevelBasic, 500)
	assert.True(t, IsValidationError(err), "stake above the basic maximum")
}

func TestCreateVouchRejectsSelfVouch(t *testing.T) {
	svc, _, _, tasks := newVouchingFixture()
	defer drain(tasks)

	_, err := svc.CreateVouch(context.Background(), "voucher", "voucher", "c1", models.VouchLevelBasic, 25)
	assert.True(t, IsValidationError(err))
}

func TestCreateVouchRequiresBalance(t *testing.T) {
	svc, store, _, tasks := newVouchingFixture()
	defer drain(tasks)
	store.profiles["voucher"].SaathiBalance = 50

	_, err := svc.CreateVouch(context.Background(), "voucher", "vouchee", "c1", models.VouchLevelStrong, 150)
	assert.True(t, IsValidationError(err))
}

func TestCreateVouchDebitsStakeAndBumpsTrust(t *testing.T) {
	svc, store, chain, tasks := newVouchingFixture()

	vouch, err := svc.CreateVouch(context.Background(), "voucher", "vouchee", "c1", models.VouchLevelStrong, 150)
	require.NoError(t, err)
	drain(tasks)

	assert.Equal(t, models.VouchStatusActive, vouch.Status)
	assert.Equal(t, float64(350), store.profiles["voucher"].SaathiBalance)
	assert.Equal(t, 40, store.profiles["vouchee"].TrustScore, "strong vouch adds 10 trust")

	require.Len(t, store.transactions, 1)
	assert.Equal(t, "stake", store.transactions[0].Type)
	assert.Equal(t, float64(150), store.transactions[0].Amount)

	assert.True(t, chain.calledWith("stake_vouch"))
	assert.Equal(t, "0xstake_vouch", store.vouches[vouch.ID].BlockchainTxHash)
}

func TestCreateVouchRejectsDuplicateActive(t *testing.T) {
	svc, _, _, tasks := newVouchingFixture()
	defer drain(tasks)

	_, err := svc.CreateVouch(context.Background(), "voucher", "vouchee", "c1", models.VouchLevelBasic, 25)
	require.NoError(t, err)

	_, err = svc.CreateVouch(context.Background(), "voucher", "vouchee", "c1", models.VouchLevelBasic, 25)
	assert.ErrorIs(t, err, ErrAlreadyVouched)
}

func TestCreateVouchCompensatesFailedWrite(t *testing.T) {
	svc, store, _, tasks := newVouchingFixture()
	defer drain(tasks)
	store.failCreateVouch = true

	_, err := svc.CreateVouch(context.Background(), "voucher", "vouchee", "c1", models.VouchLevelBasic, 25)
	require.Error(t, err)
	assert.Equal(t, float64(500), store.profiles["voucher"].SaathiBalance, "debit must be credited back")
	assert.Equal(t, 30, store.profiles["vouchee"].TrustScore, "no trust bump on failure")
}

func TestSlashVouchBurnsHalfAndPenalizesVoucher(t *testing.T) {
	svc, store, _, tasks := newVouchingFixture()

	vouch, err := svc.CreateVouch(context.Background(), "voucher", "vouchee", "c1", models.VouchLevelMaximum, 300)
	require.NoError(t, err)
	drain(tasks)

	require.NoError(t, svc.SlashVouch(context.Background(), vouch.ID))

	assert.Equal(t, models.VouchStatusSlashed, store.vouches[vouch.ID].Status)
	assert.Equal(t, 60-15, store.profiles["voucher"].TrustScore)

	var slash *models.SaathiTransaction
	for i := range store.transactions {
		if store.transactions[i].Type == "slash" {
			slash = &store.transactions[i]
		}
	}
	require.NotNil(t, slash)
	assert.Equal(t, float64(150), slash.Amount)
}

func TestSlashRequiresActiveVouch(t *testing.T) {
	svc, store, _, tasks := newVouchingFixture()

	vouch, err := svc.CreateVouch(context.Background(), "voucher", "vouchee", "c1", models.VouchLevelBasic, 25)
	require.NoError(t, err)
	drain(tasks)

	store.vouches[vouch.ID].Status = models.VouchStatusReturned
	assert.True(t, IsValidationError(svc.SlashVouch(context.Background(), vouch.ID)))
}

func TestReleaseVouchReturnsStake(t *testing.T) {
	svc, store, chain, _ := newVouchingFixture()
	tasks := resilience.NewTaskManager()
	svc.tasks = tasks

	vouch, err := svc.CreateVouch(context.Background(), "voucher", "vouchee", "c1", models.VouchLevelStrong, 150)
	require.NoError(t, err)

	current, err := store.GetVouch(context.Background(), vouch.ID)
	require.NoError(t, err)
	require.NoError(t, svc.ReleaseVouch(context.Background(), current))
	drain(tasks)

	assert.Equal(t, models.VouchStatusReturned, store.vouches[vouch.ID].Status)
	assert.Equal(t, float64(500), store.profiles["voucher"].SaathiBalance)
	assert.True(t, chain.calledWith("release_stake"))
}

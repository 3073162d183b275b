// Package services implements the domain operations behind the HTTP
// surface: vouching, loan lifecycle and repayment processing. Services
// validate business invariants, coordinate store writes and hand
// notarization off to background tasks.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kredefy/backend/pkg/config"
	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/resilience"
)

const (
	slashTrustPenalty = 15
	slashBurnFraction = 0.5
)

// VouchingService manages staked trust endorsements.
type VouchingService struct {
	store     ports.Store
	chain     ports.Blockchain
	messaging ports.Messaging
	tasks     *resilience.TaskManager
	levels    map[string]config.VouchLevelRule
}

// NewVouchingService creates a new VouchingService. messaging may be nil
// when notifications are disabled.
func NewVouchingService(store ports.Store, chain ports.Blockchain, messaging ports.Messaging, tasks *resilience.TaskManager, levels map[string]config.VouchLevelRule) *VouchingService {
	return &VouchingService{store: store, chain: chain, messaging: messaging, tasks: tasks, levels: levels}
}

// CreateVouch stakes SAATHI from the voucher against the vouchee. The debit
// and the vouch row are not one transaction at the port, so any failure
// after the debit triggers a compensating credit.
func (s *VouchingService) CreateVouch(ctx context.Context, voucherID, voucheeID, circleID string, level models.VouchLevel, stake float64) (*models.Vouch, error) {
	rule, ok := s.levels[string(level)]
	if !ok {
		return nil, NewValidationError("vouch_level", fmt.Sprintf("unknown level %q", level))
	}
	if stake < rule.MinStake || stake > rule.MaxStake {
		return nil, NewValidationError("saathi_staked", fmt.Sprintf("level %s requires a stake between %.0f and %.0f", level, rule.MinStake, rule.MaxStake))
	}
	if voucherID == voucheeID {
		return nil, NewValidationError("vouchee_id", "cannot vouch for yourself")
	}

	voucher, err := s.store.GetProfile(ctx, voucherID)
	if err != nil {
		return nil, fmt.Errorf("loading voucher profile: %w", err)
	}
	if voucher.SaathiBalance < stake {
		return nil, NewValidationError("saathi_staked", "insufficient SAATHI balance")
	}

	given, err := s.store.GetVouchesGiven(ctx, voucherID)
	if err != nil {
		return nil, fmt.Errorf("checking existing vouches: %w", err)
	}
	for _, v := range given {
		if v.VoucheeID == voucheeID && v.Status == models.VouchStatusActive {
			return nil, ErrAlreadyVouched
		}
	}

	if _, err := s.store.AdjustSaathiBalance(ctx, voucherID, -stake); err != nil {
		return nil, fmt.Errorf("debiting stake: %w", err)
	}

	vouch := &models.Vouch{
		ID:           uuid.NewString(),
		VoucherID:    voucherID,
		VoucheeID:    voucheeID,
		CircleID:     circleID,
		Level:        level,
		SaathiStaked: stake,
		Status:       models.VouchStatusActive,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateVouch(ctx, vouch); err != nil {
		s.compensateDebit(ctx, voucherID, stake, "create_vouch", err)
		return nil, fmt.Errorf("creating vouch: %w", err)
	}

	if _, err := s.store.AdjustTrustScore(ctx, voucheeID, rule.TrustImpact, "vouch_received"); err != nil {
		// The vouch row exists; losing the trust bump is recoverable from
		// history, losing the stake is not. Keep going but log loudly.
		slog.Error("trust bump failed after vouch creation",
			"vouch_id", vouch.ID, "vouchee_id", voucheeID, "error", err)
	}

	if err := s.store.CreateSaathiTransaction(ctx, &models.SaathiTransaction{
		ID:          uuid.NewString(),
		UserID:      voucherID,
		Type:        "stake",
		Amount:      stake,
		ReferenceID: vouch.ID,
		Description: fmt.Sprintf("Staked for vouch on %s", voucheeID),
		CreatedAt:   time.Now(),
	}); err != nil {
		slog.Error("stake transaction record failed", "vouch_id", vouch.ID, "error", err)
	}

	s.stakeOnChain(vouch, voucher.WalletAddress)
	s.notifyVouchee(ctx, voucher, voucheeID, stake)

	return vouch, nil
}

// SlashVouch burns half the stake and penalizes the voucher's trust after
// the vouchee defaults.
func (s *VouchingService) SlashVouch(ctx context.Context, vouchID string) error {
	vouch, err := s.store.GetVouch(ctx, vouchID)
	if err != nil {
		return fmt.Errorf("loading vouch: %w", err)
	}
	if vouch.Status != models.VouchStatusActive {
		return NewValidationError("status", fmt.Sprintf("vouch is %s, only active vouches can be slashed", vouch.Status))
	}

	if err := s.store.UpdateVouchStatus(ctx, vouchID, models.VouchStatusSlashed, ""); err != nil {
		return fmt.Errorf("marking vouch slashed: %w", err)
	}

	if err := s.store.CreateSaathiTransaction(ctx, &models.SaathiTransaction{
		ID:          uuid.NewString(),
		UserID:      vouch.VoucherID,
		Type:        "slash",
		Amount:      vouch.SaathiStaked * slashBurnFraction,
		ReferenceID: vouchID,
		Description: "Vouch slashed after default",
		CreatedAt:   time.Now(),
	}); err != nil {
		slog.Error("slash transaction record failed", "vouch_id", vouchID, "error", err)
	}

	if _, err := s.store.AdjustTrustScore(ctx, vouch.VoucherID, -slashTrustPenalty, "vouch_slashed"); err != nil {
		slog.Error("slash trust penalty failed", "vouch_id", vouchID, "voucher_id", vouch.VoucherID, "error", err)
	}

	slog.Info("vouch slashed", "vouch_id", vouchID, "voucher_id", vouch.VoucherID, "stake", vouch.SaathiStaked)
	return nil
}

// ReleaseVouch returns the stake to the voucher after the backed loan
// completes.
func (s *VouchingService) ReleaseVouch(ctx context.Context, vouch *models.Vouch) error {
	if vouch.Status != models.VouchStatusActive {
		return NewValidationError("status", fmt.Sprintf("vouch is %s, only active vouches can be released", vouch.Status))
	}

	if err := s.store.UpdateVouchStatus(ctx, vouch.ID, models.VouchStatusReturned, ""); err != nil {
		return fmt.Errorf("marking vouch returned: %w", err)
	}
	if _, err := s.store.AdjustSaathiBalance(ctx, vouch.VoucherID, vouch.SaathiStaked); err != nil {
		return fmt.Errorf("returning stake: %w", err)
	}
	if err := s.store.CreateSaathiTransaction(ctx, &models.SaathiTransaction{
		ID:          uuid.NewString(),
		UserID:      vouch.VoucherID,
		Type:        "unstake",
		Amount:      vouch.SaathiStaked,
		ReferenceID: vouch.ID,
		Description: "Vouch stake returned",
		CreatedAt:   time.Now(),
	}); err != nil {
		slog.Error("unstake transaction record failed", "vouch_id", vouch.ID, "error", err)
	}

	vouchID := vouch.ID
	s.tasks.Go("chain.release_stake", func(ctx context.Context) error {
		txHash, err := s.chain.ReleaseVouchStake(ctx, vouchID)
		if err != nil {
			return err
		}
		return s.store.UpdateVouchStatus(ctx, vouchID, models.VouchStatusReturned, txHash)
	})
	return nil
}

// compensateDebit credits back a stake whose vouch never materialized and
// leaves a reconciliation trail.
func (s *VouchingService) compensateDebit(ctx context.Context, voucherID string, stake float64, stage string, cause error) {
	if _, err := s.store.AdjustSaathiBalance(ctx, voucherID, stake); err != nil {
		slog.Error("reconciliation required: compensating credit failed",
			"user_id", voucherID, "amount", stake, "failed_stage", stage,
			"cause", cause, "credit_error", err)
		return
	}
	slog.Warn("stake debit compensated",
		"user_id", voucherID, "amount", stake, "failed_stage", stage, "cause", cause)
}

func (s *VouchingService) stakeOnChain(vouch *models.Vouch, voucherWallet string) {
	vouchID := vouch.ID
	voucheeID := vouch.VoucheeID
	stake := vouch.SaathiStaked
	s.tasks.Go("chain.stake_vouch", func(ctx context.Context) error {
		vouchee, err := s.store.GetProfile(ctx, voucheeID)
		if err != nil {
			return fmt.Errorf("loading vouchee wallet: %w", err)
		}
		txHash, err := s.chain.StakeForVouch(ctx, voucherWallet, vouchee.WalletAddress, stake)
		if err != nil {
			return err
		}
		return s.store.UpdateVouchStatus(ctx, vouchID, models.VouchStatusActive, txHash)
	})
}

func (s *VouchingService) notifyVouchee(ctx context.Context, voucher *models.Profile, voucheeID string, stake float64) {
	if s.messaging == nil {
		return
	}
	vouchee, err := s.store.GetProfile(ctx, voucheeID)
	if err != nil {
		slog.Warn("skipping vouch notification", "vouchee_id", voucheeID, "error", err)
		return
	}
	phone := vouchee.Phone
	language := vouchee.Language
	name := voucher.FullName
	s.tasks.Go("messaging.vouch_received", func(ctx context.Context) error {
		return s.messaging.SendTemplated(ctx, "whatsapp", phone, "vouch_received", language, map[string]string{
			"voucher": name,
			"stake":   fmt.Sprintf("%.0f", stake),
		})
	})
}

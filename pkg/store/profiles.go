package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/ports"
)

const profileColumns = `id, phone, full_name, language, wallet_address, trust_score, saathi_balance, is_verified, metadata, created_at`

func scanProfile(row interface{ Scan(...any) error }) (*models.Profile, error) {
	var p models.Profile
	var metadata []byte
	err := row.Scan(&p.ID, &p.Phone, &p.FullName, &p.Language, &p.WalletAddress,
		&p.TrustScore, &p.SaathiBalance, &p.IsVerified, &metadata, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("decoding profile metadata: %w", err)
		}
	}
	return &p, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID)
	p, err := scanProfile(row)
	if err != nil {
		return nil, wrapErr("get profile", err)
	}
	return p, nil
}

func (s *Store) GetProfileByPhone(ctx context.Context, phone string) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE phone = $1`, phone)
	p, err := scanProfile(row)
	if err != nil {
		return nil, wrapErr("get profile by phone", err)
	}
	return p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p *models.Profile) error {
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("encoding profile metadata: %w", err)
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO profiles (phone, full_name, language, wallet_address, trust_score, saathi_balance, is_verified, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		p.Phone, p.FullName, p.Language, p.WalletAddress, p.TrustScore, p.SaathiBalance, p.IsVerified, metadata)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return wrapErr("create profile", err)
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, update ports.ProfileUpdate) error {
	set := make([]string, 0, 3)
	args := []any{userID}
	if update.SaathiBalance != nil {
		args = append(args, *update.SaathiBalance)
		set = append(set, fmt.Sprintf("saathi_balance = $%d", len(args)))
	}
	if update.IsVerified != nil {
		args = append(args, *update.IsVerified)
		set = append(set, fmt.Sprintf("is_verified = $%d", len(args)))
	}
	if update.Metadata != nil {
		metadata, err := json.Marshal(update.Metadata)
		if err != nil {
			return fmt.Errorf("encoding profile metadata: %w", err)
		}
		args = append(args, metadata)
		set = append(set, fmt.Sprintf("metadata = $%d", len(args)))
	}
	if len(set) == 0 {
		return nil
	}

	query := "UPDATE profiles SET " + joinSet(set) + " WHERE id = $1"
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapErr("update profile", err)
	}
	return checkAffected("update profile", result)
}

func (s *Store) AdjustSaathiBalance(ctx context.Context, userID string, delta float64) (float64, error) {
	var balance float64
	err := s.db.QueryRowContext(ctx,
		`UPDATE profiles SET saathi_balance = saathi_balance + $2 WHERE id = $1 RETURNING saathi_balance`,
		userID, delta).Scan(&balance)
	if err != nil {
		return 0, wrapErr("adjust saathi balance", err)
	}
	return balance, nil
}

func (s *Store) AdjustTrustScore(ctx context.Context, userID string, delta int, reason string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapErr("adjust trust score", err)
	}
	defer tx.Rollback()

	var score int
	err = tx.QueryRowContext(ctx,
		`UPDATE profiles SET trust_score = LEAST(100, GREATEST(0, trust_score + $2)) WHERE id = $1 RETURNING trust_score`,
		userID, delta).Scan(&score)
	if err != nil {
		return 0, wrapErr("adjust trust score", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trust_score_history (user_id, delta, score, reason) VALUES ($1, $2, $3, $4)`,
		userID, delta, score, reason)
	if err != nil {
		return 0, wrapErr("record trust event", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapErr("adjust trust score", err)
	}
	return score, nil
}

package store

import (
	"context"

	"github.com/kredefy/backend/pkg/models"
)

const vouchColumns = `id, voucher_id, vouchee_id, circle_id, vouch_level, saathi_staked, status, blockchain_tx_hash, created_at`

func scanVouch(row interface{ Scan(...any) error }) (*models.Vouch, error) {
	var v models.Vouch
	err := row.Scan(&v.ID, &v.VoucherID, &v.VoucheeID, &v.CircleID, &v.Level,
		&v.SaathiStaked, &v.Status, &v.BlockchainTxHash, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) CreateVouch(ctx context.Context, v *models.Vouch) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO vouches (voucher_id, vouchee_id, circle_id, vouch_level, saathi_staked, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		v.VoucherID, v.VoucheeID, v.CircleID, v.Level, v.SaathiStaked, v.Status).
		Scan(&v.ID, &v.CreatedAt)
	return wrapErr("create vouch", err)
}

func (s *Store) GetVouch(ctx context.Context, vouchID string) (*models.Vouch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vouchColumns+` FROM vouches WHERE id = $1`, vouchID)
	v, err := scanVouch(row)
	if err != nil {
		return nil, wrapErr("get vouch", err)
	}
	return v, nil
}

func (s *Store) GetVouchesGiven(ctx context.Context, userID string) ([]models.Vouch, error) {
	return s.listVouches(ctx, "get vouches given", "voucher_id", userID)
}

func (s *Store) GetVouchesReceived(ctx context.Context, userID string) ([]models.Vouch, error) {
	return s.listVouches(ctx, "get vouches received", "vouchee_id", userID)
}

func (s *Store) listVouches(ctx context.Context, op, column, userID string) ([]models.Vouch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+vouchColumns+` FROM vouches WHERE `+column+` = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	var vouches []models.Vouch
	for rows.Next() {
		v, err := scanVouch(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		vouches = append(vouches, *v)
	}
	return vouches, wrapErr(op, rows.Err())
}

func (s *Store) UpdateVouchStatus(ctx context.Context, vouchID string, status models.VouchStatus, txHash string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE vouches SET status = $2, blockchain_tx_hash = CASE WHEN $3 = '' THEN blockchain_tx_hash ELSE $3 END
		 WHERE id = $1`,
		vouchID, status, txHash)
	if err != nil {
		return wrapErr("update vouch status", err)
	}
	return checkAffected("update vouch status", result)
}

package store

import (
	"context"

	"github.com/kredefy/backend/pkg/models"
)

func (s *Store) GetDiaryEntries(ctx context.Context, userID string, limit int) ([]models.DiaryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, entry_type, amount, category, recorded_at
		 FROM diary_entries WHERE user_id = $1
		 ORDER BY recorded_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, wrapErr("get diary entries", err)
	}
	defer rows.Close()

	var entries []models.DiaryEntry
	for rows.Next() {
		var e models.DiaryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.EntryType, &e.Amount, &e.Category, &e.RecordedAt); err != nil {
			return nil, wrapErr("get diary entries", err)
		}
		entries = append(entries, e)
	}
	return entries, wrapErr("get diary entries", rows.Err())
}

func (s *Store) CreateSaathiTransaction(ctx context.Context, tx *models.SaathiTransaction) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO saathi_transactions (user_id, type, amount, reference_id, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		tx.UserID, tx.Type, tx.Amount, tx.ReferenceID, tx.Description).
		Scan(&tx.ID, &tx.CreatedAt)
	return wrapErr("create saathi transaction", err)
}

// GetUserStats aggregates the counters the gamification engine and badge
// predicates read.
func (s *Store) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats := &models.UserStats{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM vouches v WHERE v.voucher_id = $1 AND v.status = 'returned'),
		    (SELECT COUNT(*) FROM loans l WHERE l.borrower_id = $1 AND l.status = 'completed'),
		    (SELECT COUNT(*) FROM loans l WHERE l.borrower_id = $1 AND l.status = 'defaulted'),
		    (SELECT COUNT(*) FROM trust_score_history h WHERE h.user_id = $1 AND h.reason = 'default_recovered'),
		    (SELECT COUNT(*) FROM vouches v WHERE v.voucher_id = $1
		       AND NOT EXISTS (SELECT 1 FROM loans l WHERE l.borrower_id = v.vouchee_id AND l.created_at < v.created_at)),
		    (SELECT trust_score FROM profiles p WHERE p.id = $1)`,
		userID).
		Scan(&stats.SuccessfulVouches, &stats.CompletedLoans, &stats.DefaultedLoans,
			&stats.RecoveredDefaults, &stats.EarlyVouches, &stats.TrustScore)
	if err != nil {
		return nil, wrapErr("get user stats", err)
	}
	return stats, nil
}

package store

import (
	"context"

	"github.com/kredefy/backend/pkg/models"
)

func (s *Store) GetUserCircles(ctx context.Context, userID string) ([]models.Circle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.invite_code, c.emergency_fund, c.created_at,
		        (SELECT COUNT(*) FROM circle_members m2 WHERE m2.circle_id = c.id) AS member_count
		 FROM circles c
		 JOIN circle_members m ON m.circle_id = c.id
		 WHERE m.user_id = $1
		 ORDER BY m.joined_at`, userID)
	if err != nil {
		return nil, wrapErr("get user circles", err)
	}
	defer rows.Close()

	var circles []models.Circle
	for rows.Next() {
		var c models.Circle
		if err := rows.Scan(&c.ID, &c.Name, &c.InviteCode, &c.EmergencyFund, &c.CreatedAt, &c.MemberCount); err != nil {
			return nil, wrapErr("get user circles", err)
		}
		circles = append(circles, c)
	}
	return circles, wrapErr("get user circles", rows.Err())
}

func (s *Store) GetCircleMembers(ctx context.Context, circleID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM circle_members WHERE circle_id = $1 ORDER BY joined_at`, circleID)
	if err != nil {
		return nil, wrapErr("get circle members", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("get circle members", err)
		}
		members = append(members, id)
	}
	return members, wrapErr("get circle members", rows.Err())
}

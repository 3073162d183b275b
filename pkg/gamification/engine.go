// Package gamification maintains activity streaks, badges and XP on member
// profiles and computes per-circle leaderboard rankings.
package gamification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kredefy/backend/pkg/config"
	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/ports"
)

// Event is an activity kind that earns XP.
type Event string

const (
	EventLogin     Event = "login"
	EventRepayment Event = "repayment"
	EventVouch     Event = "vouch"
)

var eventXP = map[Event]int{
	EventLogin:     10,
	EventRepayment: 100,
	EventVouch:     50,
}

const dateLayout = "2006-01-02"

// Progress reports what one recorded event changed on the profile.
type Progress struct {
	StreakDays int      `json:"streak_days"`
	XPAwarded  int      `json:"xp_awarded"`
	TotalXP    int      `json:"total_xp"`
	NewBadges  []string `json:"new_badges,omitempty"`
}

// Engine applies gamification rules on top of the store.
type Engine struct {
	store  ports.Store
	badges []config.BadgeRule
	now    func() time.Time
}

// NewEngine creates an engine using the badge catalog from tunables.
func NewEngine(store ports.Store, badges []config.BadgeRule) *Engine {
	return &Engine{store: store, badges: badges, now: time.Now}
}

// RecordEvent updates the member's streak, awards event XP and appends any
// newly earned badges.
func (e *Engine) RecordEvent(ctx context.Context, userID string, event Event) (*Progress, error) {
	xp, ok := eventXP[event]
	if !ok {
		return nil, fmt.Errorf("unknown gamification event %q", event)
	}

	profile, err := e.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	meta := profile.Metadata
	today := e.now().Format(dateLayout)
	meta.StreakDays = nextStreak(meta.StreakDays, meta.LastActiveDate, today)
	meta.LastActiveDate = today
	meta.XP += xp

	newBadges, badgeXP, err := e.earnedBadges(ctx, userID, meta.Badges)
	if err != nil {
		// Badge evaluation failing must not lose the streak and XP update.
		slog.Warn("badge evaluation failed", "user_id", userID, "error", err)
	}
	meta.Badges = append(meta.Badges, newBadges...)
	meta.XP += badgeXP

	if err := e.store.UpdateProfile(ctx, userID, ports.ProfileUpdate{Metadata: &meta}); err != nil {
		return nil, fmt.Errorf("saving profile metadata: %w", err)
	}

	return &Progress{
		StreakDays: meta.StreakDays,
		XPAwarded:  xp + badgeXP,
		TotalXP:    meta.XP,
		NewBadges:  newBadges,
	}, nil
}

// nextStreak continues the streak only across consecutive days; a same-day
// repeat keeps it, anything older resets to 1.
func nextStreak(current int, lastActive, today string) int {
	if lastActive == today {
		if current < 1 {
			return 1
		}
		return current
	}
	t, err := time.Parse(dateLayout, today)
	if err == nil && lastActive == t.AddDate(0, 0, -1).Format(dateLayout) {
		return current + 1
	}
	return 1
}

func (e *Engine) earnedBadges(ctx context.Context, userID string, owned []string) ([]string, int, error) {
	stats, err := e.store.GetUserStats(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("loading user stats: %w", err)
	}

	ownedSet := make(map[string]bool, len(owned))
	for _, id := range owned {
		ownedSet[id] = true
	}

	var earned []string
	var xp int
	for _, badge := range e.badges {
		if ownedSet[badge.ID] {
			continue
		}
		if statValue(stats, badge.Requirement) >= badge.Threshold {
			earned = append(earned, badge.ID)
			xp += badge.XP
		}
	}
	return earned, xp, nil
}

func statValue(stats *models.UserStats, requirement string) int {
	switch requirement {
	case "successful_vouches":
		return stats.SuccessfulVouches
	case "completed_loans":
		return stats.CompletedLoans
	case "recovered_defaults":
		return stats.RecoveredDefaults
	case "early_vouches":
		return stats.EarlyVouches
	case "trust_score":
		return stats.TrustScore
	default:
		return 0
	}
}

// MemberStanding is one member's aggregate used for ranking.
type MemberStanding struct {
	UserID        string
	RepaymentRate float64 // completed / (completed + defaulted), 0 with no loans
	VouchActivity int
	Defaults      int
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank   int     `json:"rank"`
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

// RankCircle orders members by reliability: repayment record dominates,
// vouching activity breaks near-ties, defaults are heavily penalized.
func RankCircle(members []MemberStanding) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(members))
	for _, m := range members {
		entries = append(entries, LeaderboardEntry{
			UserID: m.UserID,
			Score:  m.RepaymentRate*100 + float64(m.VouchActivity)*10 - float64(m.Defaults)*500,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

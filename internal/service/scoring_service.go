package service

import (
	"context"
	"fmt"
	"sort"

	"lookaway/internal/models"
)

// PenaltyFactor is the number of seconds one look-away costs.
const PenaltyFactor = 5

// Points scores a total time against its look-aways.
func Points(totalTime float64, lookAways int) float64 {
	return totalTime - PenaltyFactor*float64(lookAways)
}

type UserLister interface {
	GetAllUsers(ctx context.Context) ([]models.User, error)
}

type ProgressLister interface {
	ListProgressByUser(ctx context.Context, userID int64) ([]models.Progress, error)
}

// ScoringService ranks users by their accumulated progress.
type ScoringService struct {
	users    UserLister
	progress ProgressLister
}

func NewScoringService(users UserLister, progress ProgressLister) *ScoringService {
	return &ScoringService{users: users, progress: progress}
}

// Leaderboard returns one entry per user, highest points first. Ties keep
// the store's user order (ascending id); no further ordering is promised.
func (s *ScoringService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	users, err := s.users.GetAllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		summary, err := s.Summary(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.LeaderboardEntry{
			UserID:         u.ID,
			Username:       u.Username,
			TotalTime:      summary.TotalTime,
			TotalLookAways: summary.TotalLookAways,
			Points:         summary.Points,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	return entries, nil
}

// Summary aggregates one user's records. A user without records scores zero.
func (s *ScoringService) Summary(ctx context.Context, userID int64) (models.ProgressSummary, error) {
	records, err := s.progress.ListProgressByUser(ctx, userID)
	if err != nil {
		return models.ProgressSummary{}, fmt.Errorf("failed to list progress for user %d: %w", userID, err)
	}

	var summary models.ProgressSummary
	for _, p := range records {
		summary.TotalTime += p.SessionTime
		summary.TotalLookAways += p.LookAwayCount
	}
	summary.Sessions = len(records)
	summary.Points = Points(summary.TotalTime, summary.TotalLookAways)
	return summary, nil
}

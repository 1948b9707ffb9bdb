package service

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/talentbridge/talentbridge-api/internal/dto"
	"github.com/talentbridge/talentbridge-api/internal/repository"
)

const leaderboardKey = "bridge:leaderboard:points"

// LeaderboardService serves the points leaderboard built from completed
// submissions. Standings live in a Redis sorted set and are rebuilt lazily
// from the store after invalidation or TTL expiry.
type LeaderboardService interface {
	LeaderboardInvalidator
	Top(ctx context.Context, limit int) ([]dto.LeaderboardEntryResponse, error)
}

type leaderboardService struct {
	submissions repository.SubmissionRepository
	cache       *redis.Client
	ttl         time.Duration
	logger      zerolog.Logger
}

// NewLeaderboardService constructs the leaderboard aggregator.
func NewLeaderboardService(submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) LeaderboardService {
	return &leaderboardService{
		submissions: submissions,
		cache:       cache,
		ttl:         ttl,
		logger:      logger.With().Str("component", "leaderboard_service").Logger(),
	}
}

func (s *leaderboardService) Top(ctx context.Context, limit int) ([]dto.LeaderboardEntryResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	if s.cache != nil {
		entries, err := s.readCache(ctx, limit)
		if err == nil && entries != nil {
			return entries, nil
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read leaderboard cache")
		}
	}

	rows, err := s.submissions.PointsByStudent(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.rebuildCache(ctx, rows)
	}

	entries := make([]dto.LeaderboardEntryResponse, 0, limit)
	for rank, row := range rows {
		if rank >= limit {
			break
		}
		entries = append(entries, dto.LeaderboardEntryResponse{
			Rank:      rank + 1,
			StudentID: row.StudentID,
			Points:    row.Points,
		})
	}
	return entries, nil
}

// InvalidateLeaderboard drops cached standings; the next read rebuilds them.
func (s *leaderboardService) InvalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, leaderboardKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate leaderboard cache")
	}
}

func (s *leaderboardService) readCache(ctx context.Context, limit int) ([]dto.LeaderboardEntryResponse, error) {
	results, err := s.cache.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	entries := make([]dto.LeaderboardEntryResponse, 0, len(results))
	for rank, result := range results {
		member, ok := result.Member.(string)
		if !ok {
			continue
		}
		studentID, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, dto.LeaderboardEntryResponse{
			Rank:      rank + 1,
			StudentID: uint(studentID),
			Points:    int64(result.Score),
		})
	}
	return entries, nil
}

func (s *leaderboardService) rebuildCache(ctx context.Context, rows []repository.StudentPoints) {
	if len(rows) == 0 {
		return
	}

	members := make([]redis.Z, 0, len(rows))
	for _, row := range rows {
		members = append(members, redis.Z{
			Score:  float64(row.Points),
			Member: strconv.FormatUint(uint64(row.StudentID), 10),
		})
	}

	pipe := s.cache.Pipeline()
	pipe.Del(ctx, leaderboardKey)
	pipe.ZAdd(ctx, leaderboardKey, members...)
	if s.ttl > 0 {
		pipe.Expire(ctx, leaderboardKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to rebuild leaderboard cache")
	}
}

package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/talentbridge/talentbridge-api/internal/repository"
)

func newLeaderboardFixture(t *testing.T, points []repository.StudentPoints) (LeaderboardService, *miniredis.Miniredis, *fakeSubmissionRepo) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	submissions := newFakeSubmissionRepo()
	submissions.points = points

	svc := NewLeaderboardService(submissions, client, time.Minute, zerolog.New(io.Discard))
	return svc, server, submissions
}

func TestLeaderboardTopBuildsCacheLazily(t *testing.T) {
	svc, server, _ := newLeaderboardFixture(t, []repository.StudentPoints{
		{StudentID: 3, Points: 400},
		{StudentID: 1, Points: 250},
		{StudentID: 2, Points: 100},
	})
	ctx := context.Background()

	entries, err := svc.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint(3), entries[0].StudentID)
	require.Equal(t, int64(400), entries[0].Points)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, uint(1), entries[1].StudentID)

	require.True(t, server.Exists("bridge:leaderboard:points"))

	// Second read must come from the sorted set.
	entries, err = svc.Top(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, uint(2), entries[2].StudentID)
	require.Equal(t, 3, entries[2].Rank)
}

func TestLeaderboardInvalidateDropsCache(t *testing.T) {
	svc, server, submissions := newLeaderboardFixture(t, []repository.StudentPoints{
		{StudentID: 1, Points: 250},
	})
	ctx := context.Background()

	_, err := svc.Top(ctx, 10)
	require.NoError(t, err)
	require.True(t, server.Exists("bridge:leaderboard:points"))

	svc.InvalidateLeaderboard(ctx)
	require.False(t, server.Exists("bridge:leaderboard:points"))

	// The next read rebuilds from the store with fresh standings.
	submissions.points = []repository.StudentPoints{
		{StudentID: 2, Points: 500},
		{StudentID: 1, Points: 250},
	}
	entries, err := svc.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint(2), entries[0].StudentID)
}

func TestLeaderboardTopClampsLimit(t *testing.T) {
	svc, _, _ := newLeaderboardFixture(t, []repository.StudentPoints{
		{StudentID: 1, Points: 250},
	})

	entries, err := svc.Top(context.Background(), -5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

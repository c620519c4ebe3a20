package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knowd-io/knowd/internal/model"
	"github.com/knowd-io/knowd/internal/repo"
	"github.com/knowd-io/knowd/test/testutil"
)

func insertLog(t *testing.T, logs *repo.QueryLogRepo, ts int64, userID, channel, query, answer, status string) {
	t.Helper()
	require.NoError(t, logs.Insert(context.Background(), &model.QueryLog{
		Timestamp:      ts,
		UserQuery:      query,
		AgentResponse:  answer,
		DetectedIntent: "general",
		SourceDocs:     "[]",
		ResponseStatus: status,
		Channel:        channel,
		UserID:         userID,
	}))
}

func TestRecentTurnsIncludesFallbackExchanges(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	logs := repo.NewQueryLogRepo(db)
	insertLog(t, logs, 100, "u1", "telegram", "first question", "no idea", model.QueryStatusFallback)
	insertLog(t, logs, 200, "u1", "telegram", "second question", "an answer", model.QueryStatusSuccess)

	turns, err := logs.RecentTurns(context.Background(), "u1", "telegram", 5)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	// oldest first, fallback turn included
	require.Equal(t, "first question", turns[0].Query)
	require.Equal(t, "no idea", turns[0].Answer)
	require.Equal(t, "second question", turns[1].Query)
}

func TestRecentTurnsScopedAndLimited(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	logs := repo.NewQueryLogRepo(db)
	for i := int64(0); i < 4; i++ {
		insertLog(t, logs, 100+i, "u2", "api", "q", "a", model.QueryStatusSuccess)
	}
	insertLog(t, logs, 300, "u2", "web", "other channel", "a", model.QueryStatusSuccess)
	insertLog(t, logs, 300, "u3", "api", "other user", "a", model.QueryStatusSuccess)

	turns, err := logs.RecentTurns(context.Background(), "u2", "api", 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	for _, turn := range turns {
		require.Equal(t, "q", turn.Query)
	}

	turns, err = logs.RecentTurns(context.Background(), "", "api", 3)
	require.NoError(t, err)
	require.Empty(t, turns)
}

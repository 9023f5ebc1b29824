package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttleague/ladder-system/models"
)

func intPtr(v int) *int { return &v }

func TestStartMatchSnapshotsBonuses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ranking := env.seedRanking(t, "Erwachsene", models.SortByPosition)
	bob := env.seedPlayer(t, "bob")
	alice := env.seedPlayer(t, "alice")
	env.seedStanding(t, alice.ID, ranking.ID, 1, 0)
	env.seedStanding(t, bob.ID, ranking.ID, 2, 0)

	// Bob earns +3 when facing an opponent ranked 1 or 2.
	require.NoError(t, env.bonuses.Upsert(ctx, nil, &models.BonusRule{
		PlayerID: bob.ID, Amount: 3, Operator: models.OpLessOrEqual, ThresholdPosition: 2,
	}))

	match, err := env.matchService.Start(ctx, bob.ID, alice.ID, ranking.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, match.ChallengerBonus)
	assert.Equal(t, 0, match.DefenderBonus)
	assert.Equal(t, "bob", match.Challenger)
	assert.Equal(t, "alice", match.Defender)
	assert.True(t, match.StartedAt.Equal(testEpoch))

	// Later standing changes do not recompute the snapshot.
	standing, err := env.standings.GetByPlayerAndRanking(ctx, nil, alice.ID, ranking.ID)
	require.NoError(t, err)
	standing.Position = 9
	require.NoError(t, env.standings.Update(ctx, nil, standing))

	stored, err := env.ongoing.GetByID(ctx, nil, match.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.ChallengerBonus)
}

func TestStartMatchRejectsSamePlayer(t *testing.T) {
	env := newTestEnv(t)
	ranking := env.seedRanking(t, "Erwachsene", models.SortByPosition)
	p := env.seedPlayer(t, "p")

	_, err := env.matchService.Start(context.Background(), p.ID, p.ID, ranking.ID)
	assert.ErrorIs(t, err, ErrSamePlayer)
}

func TestStartMatchUnknownPlayerOrRanking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ranking := env.seedRanking(t, "Erwachsene", models.SortByPosition)
	p := env.seedPlayer(t, "p")

	_, err := env.matchService.Start(ctx, p.ID, 999, ranking.ID)
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	q := env.seedPlayer(t, "q")
	_, err = env.matchService.Start(ctx, p.ID, q.ID, 999)
	assert.ErrorIs(t, err, ErrRankingNotFound)
}

func TestFinishMatchWinnerForm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ranking := env.seedRanking(t, "Junior", models.SortByPosition)
	alice := env.seedPlayer(t, "Alice")
	bob := env.seedPlayer(t, "Bob")
	env.seedStanding(t, alice.ID, ranking.ID, 1, 0)
	env.seedStanding(t, bob.ID, ranking.ID, 2, 0)

	match, err := env.matchService.Start(ctx, bob.ID, alice.ID, ranking.ID)
	require.NoError(t, err)

	env.fakeClock.Advance(30 * time.Minute)

	finished, err := env.matchService.Finish(ctx, match.ID, MatchOutcome{WinnerID: intPtr(bob.ID)})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, finished.WinnerID)
	assert.Equal(t, "Bob", finished.Winner)
	assert.True(t, finished.FinishedAt.After(finished.StartedAt))

	// Bob took Alice's slot, Alice moved down.
	bobStanding, err := env.standings.GetByPlayerAndRanking(ctx, nil, bob.ID, ranking.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, bobStanding.Position)
	assert.Equal(t, 2, bobStanding.Points)

	aliceStanding, err := env.standings.GetByPlayerAndRanking(ctx, nil, alice.ID, ranking.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, aliceStanding.Position)
	assert.Equal(t, 1, aliceStanding.Points)

	bobAfter, err := env.players.GetByID(ctx, nil, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, bobAfter.Wins)
	assert.Equal(t, 0, bobAfter.Losses)

	aliceAfter, err := env.players.GetByID(ctx, nil, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, aliceAfter.Losses)

	// The ongoing row is gone and the archive holds exactly one match.
	_, err = env.ongoing.GetByID(ctx, nil, match.ID)
	assert.Error(t, err)
	archive, err := env.finished.ListByRanking(ctx, nil, ranking.ID)
	require.NoError(t, err)
	assert.Len(t, archive, 1)

	assert.Equal(t, []int{ranking.ID}, env.publisher.changed)
}

func TestFinishMatchScoreForm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ranking := env.seedRanking(t, "Erwachsene", models.SortByPosition)
	a := env.seedPlayer(t, "a")
	b := env.seedPlayer(t, "b")
	env.seedStanding(t, a.ID, ranking.ID, 1, 0)
	env.seedStanding(t, b.ID, ranking.ID, 2, 0)

	match, err := env.matchService.Start(ctx, b.ID, a.ID, ranking.ID)
	require.NoError(t, err)

	finished, err := env.matchService.Finish(ctx, match.ID, MatchOutcome{
		ChallengerScore: intPtr(3),
		DefenderScore:   intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, b.ID, finished.WinnerID)
	require.NotNil(t, finished.ChallengerScore)
	assert.Equal(t, 3, *finished.ChallengerScore)

	bAfter, err := env.players.GetByID(ctx, nil, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, bAfter.SetsWon)
	assert.Equal(t, 1, bAfter.SetsLost)

	aAfter, err := env.players.GetByID(ctx, nil, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, aAfter.SetsWon)
	assert.Equal(t, 3, aAfter.SetsLost)
}

func TestFinishMatchDrawLeavesMatchOngoing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ranking := env.seedRanking(t, "Erwachsene", models.SortByPosition)
	a := env.seedPlayer(t, "a")
	b := env.seedPlayer(t, "b")
	env.seedStanding(t, a.ID, ranking.ID, 1, 0)
	env.seedStanding(t, b.ID, ranking.ID, 2, 0)

	match, err := env.matchService.Start(ctx, b.ID, a.ID, ranking.ID)
	require.NoError(t, err)

	_, err = env.matchService.Finish(ctx, match.ID, MatchOutcome{
		ChallengerScore: intPtr(2),
		DefenderScore:   intPtr(2),
	})
	assert.ErrorIs(t, err, ErrDrawNotSupported)

	// Nothing was settled.
	_, err = env.ongoing.GetByID(ctx, nil, match.ID)
	assert.NoError(t, err)
	s, err := env.standings.GetByPlayerAndRanking(ctx, nil, b.ID, ranking.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Position)
	assert.Zero(t, s.Points)
	assert.Empty(t, env.publisher.changed)
}

func TestFinishMatchRejectsForeignWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ranking := env.seedRanking(t, "Erwachsene", models.SortByPosition)
	a := env.seedPlayer(t, "a")
	b := env.seedPlayer(t, "b")
	outsider := env.seedPlayer(t, "outsider")
	env.seedStanding(t, a.ID, ranking.ID, 1, 0)
	env.seedStanding(t, b.ID, ranking.ID, 2, 0)

	match, err := env.matchService.Start(ctx, b.ID, a.ID, ranking.ID)
	require.NoError(t, err)

	_, err = env.matchService.Finish(ctx, match.ID, MatchOutcome{WinnerID: intPtr(outsider.ID)})
	assert.ErrorIs(t, err, ErrWinnerUnresolvable)
}

func TestFinishMatchRequiresAnOutcome(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ranking := env.seedRanking(t, "Erwachsene", models.SortByPosition)
	a := env.seedPlayer(t, "a")
	b := env.seedPlayer(t, "b")
	env.seedStanding(t, a.ID, ranking.ID, 1, 0)
	env.seedStanding(t, b.ID, ranking.ID, 2, 0)

	match, err := env.matchService.Start(ctx, b.ID, a.ID, ranking.ID)
	require.NoError(t, err)

	// Only one score is not an outcome.
	_, err = env.matchService.Finish(ctx, match.ID, MatchOutcome{ChallengerScore: intPtr(3)})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestFinishMatchAddsSnapshottedBonuses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ranking := env.seedRanking(t, "Erwachsene", models.SortByPosition)
	alice := env.seedPlayer(t, "alice")
	bob := env.seedPlayer(t, "bob")
	env.seedStanding(t, alice.ID, ranking.ID, 1, 0)
	env.seedStanding(t, bob.ID, ranking.ID, 2, 0)

	require.NoError(t, env.bonuses.Upsert(ctx, nil, &models.BonusRule{
		PlayerID: bob.ID, Amount: 3, Operator: models.OpEqual, ThresholdPosition: 1,
	}))

	match, err := env.matchService.Start(ctx, bob.ID, alice.ID, ranking.ID)
	require.NoError(t, err)
	require.Equal(t, 3, match.ChallengerBonus)

	_, err = env.matchService.Finish(ctx, match.ID, MatchOutcome{WinnerID: intPtr(bob.ID)})
	require.NoError(t, err)

	bobStanding, err := env.standings.GetByPlayerAndRanking(ctx, nil, bob.ID, ranking.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, bobStanding.Points, "2 for the win plus the snapshotted 3")

	aliceStanding, err := env.standings.GetByPlayerAndRanking(ctx, nil, alice.ID, ranking.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, aliceStanding.Points)
}

func TestFinishMatchOnEndedRankingRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ranking := env.seedRanking(t, "Erwachsene", models.SortByPosition)
	a := env.seedPlayer(t, "a")
	b := env.seedPlayer(t, "b")
	env.seedStanding(t, a.ID, ranking.ID, 1, 0)
	env.seedStanding(t, b.ID, ranking.ID, 2, 0)

	match, err := env.matchService.Start(ctx, b.ID, a.ID, ranking.ID)
	require.NoError(t, err)

	require.NoError(t, env.rankings.MarkEnded(ctx, nil, ranking.ID))

	_, err = env.matchService.Finish(ctx, match.ID, MatchOutcome{WinnerID: intPtr(b.ID)})
	assert.ErrorIs(t, err, ErrRankingEnded)

	_, err = env.ongoing.GetByID(ctx, nil, match.ID)
	assert.NoError(t, err, "the match survives for the record")
}

func TestFinishMatchUnknownMatch(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.matchService.Finish(context.Background(), 42, MatchOutcome{WinnerID: intPtr(1)})
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestConcurrentFinishesKeepPositionsDense(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ranking := env.seedRanking(t, "Erwachsene", models.SortByPosition)
	players := make([]*models.Player, 6)
	for i := range players {
		players[i] = env.seedPlayer(t, "p"+string(rune('a'+i)))
		env.seedStanding(t, players[i].ID, ranking.ID, i+1, 0)
	}

	// Every lower neighbor challenges the player directly above.
	matchIDs := make([]int, 0, len(players)-1)
	for i := 1; i < len(players); i++ {
		match, err := env.matchService.Start(ctx, players[i].ID, players[i-1].ID, ranking.ID)
		require.NoError(t, err)
		matchIDs = append(matchIDs, match.ID)
	}

	var wg sync.WaitGroup
	for i, matchID := range matchIDs {
		wg.Add(1)
		go func(matchID, winnerID int) {
			defer wg.Done()
			_, err := env.matchService.Finish(ctx, matchID, MatchOutcome{WinnerID: intPtr(winnerID)})
			assert.NoError(t, err)
		}(matchID, players[i+1].ID)
	}
	wg.Wait()

	// Whatever the interleaving, the ladder stays a dense 1..N permutation.
	standings, err := env.standings.ListByRanking(ctx, nil, ranking.ID)
	require.NoError(t, err)
	require.Len(t, standings, len(players))
	for i, s := range standings {
		assert.Equal(t, i+1, s.Position)
	}

	archive, err := env.finished.ListByRanking(ctx, nil, ranking.ID)
	require.NoError(t, err)
	assert.Len(t, archive, len(matchIDs))
}

func TestFinishMatchPointsModeSkipsPromotion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ranking := env.seedRanking(t, "Punkterunde", models.SortByPoints)
	a := env.seedPlayer(t, "a")
	b := env.seedPlayer(t, "b")
	env.seedStanding(t, a.ID, ranking.ID, 1, 10)
	env.seedStanding(t, b.ID, ranking.ID, 2, 4)

	match, err := env.matchService.Start(ctx, b.ID, a.ID, ranking.ID)
	require.NoError(t, err)

	_, err = env.matchService.Finish(ctx, match.ID, MatchOutcome{WinnerID: intPtr(b.ID)})
	require.NoError(t, err)

	s, err := env.standings.GetByPlayerAndRanking(ctx, nil, b.ID, ranking.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Position, "positions do not move in points mode")
	assert.Equal(t, 6, s.Points)
}

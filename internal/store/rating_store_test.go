package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingRecords(t *testing.T) {
	database := setupTestDB(t)
	tournaments := NewTournamentStore(database)
	ratings := NewRatingStore(database)
	ctx := context.Background()

	first := createTestTournament(t, database, tournaments, bracket.SingleElimination, bracket.TournamentCompleted)
	second := createTestTournament(t, database, tournaments, bracket.SingleElimination, bracket.TournamentCompleted)
	p1 := createTestParticipants(t, database, tournaments, first.ID, 2)
	p2 := createTestParticipants(t, database, tournaments, second.ID, 1)
	userID := p1[0].UserID

	record := func(tournamentID, participantID uuid.UUID, user uuid.UUID, placement, after int, at time.Time) bracket.RatingRecord {
		return bracket.RatingRecord{
			ID: uuid.New(), TournamentID: tournamentID, ParticipantID: participantID, UserID: user,
			Placement: placement, RatingBefore: 1000, RatingAfter: after, Delta: after - 1000, RankCode: "K", AppliedAt: at,
		}
	}

	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		return ratings.CreateRatingRecords(ctx, tx, []bracket.RatingRecord{
			record(first.ID, p1[0].ID, userID, 1, 1016, testNow),
			record(first.ID, p1[1].ID, p1[1].UserID, 2, 984, testNow),
		})
	}))
	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		return ratings.CreateRatingRecords(ctx, tx, []bracket.RatingRecord{
			record(second.ID, p2[0].ID, userID, 1, 1030, testNow.Add(time.Hour)),
		})
	}))

	t.Run("Duplicate record is rejected", func(t *testing.T) {
		err := inTx(t, database, func(tx *sqlx.Tx) error {
			return ratings.CreateRatingRecords(ctx, tx, []bracket.RatingRecord{
				record(first.ID, p1[0].ID, userID, 1, 1016, testNow),
			})
		})
		assert.Error(t, err)
	})

	t.Run("Records by tournament", func(t *testing.T) {
		records, err := ratings.GetRatingRecords(ctx, first.ID)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, 1, records[0].Placement)
		assert.Equal(t, 16, records[0].Delta)
	})

	t.Run("Latest rating wins", func(t *testing.T) {
		stranger := uuid.New()
		var latest map[uuid.UUID]int
		require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
			var err error
			latest, err = ratings.LatestRatingsTx(ctx, tx, []uuid.UUID{userID, p1[1].UserID, stranger})
			return err
		}))
		assert.Equal(t, map[uuid.UUID]int{userID: 1030, p1[1].UserID: 984}, latest)
	})

	t.Run("History is newest first", func(t *testing.T) {
		history, err := ratings.GetRatingHistory(ctx, userID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, second.ID, history[0].TournamentID)
	})
}

func TestRewardGrants(t *testing.T) {
	database := setupTestDB(t)
	tournaments := NewTournamentStore(database)
	ratings := NewRatingStore(database)
	ctx := context.Background()

	tournament := createTestTournament(t, database, tournaments, bracket.SingleElimination, bracket.TournamentCompleted)
	participants := createTestParticipants(t, database, tournaments, tournament.ID, 2)

	grants := []bracket.RewardGrant{
		{ID: uuid.New(), TournamentID: tournament.ID, ParticipantID: participants[1].ID, UserID: participants[1].UserID, Placement: 2, Points: 700, Payout: 30000, GrantedAt: testNow},
		{ID: uuid.New(), TournamentID: tournament.ID, ParticipantID: participants[0].ID, UserID: participants[0].UserID, Placement: 1, Points: 1000, Payout: 70000, GrantedAt: testNow},
	}
	require.NoError(t, inTx(t, database, func(tx *sqlx.Tx) error {
		return ratings.CreateRewardGrants(ctx, tx, grants)
	}))

	fetched, err := ratings.GetRewardGrants(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, participants[0].ID, fetched[0].ParticipantID)
	assert.Equal(t, int64(70000), fetched[0].Payout)
}

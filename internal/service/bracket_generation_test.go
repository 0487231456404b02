package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBracketSingleElimFive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tournament, _ := h.openTournament(t, bracket.SingleElimination, 5, 0)

	matches, err := h.bracketService.GenerateBracket(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 7)

	byes := 0
	for _, m := range matches {
		if m.IsBye {
			byes++
			assert.Equal(t, bracket.MatchCompleted, m.Status)
		}
	}
	assert.Equal(t, 3, byes)

	assert.Equal(t, bracket.MatchReady, h.matchByCode(t, tournament.ID, "W1.2").Status)
	assert.Equal(t, bracket.MatchReady, h.matchByCode(t, tournament.ID, "W2.2").Status)
	assert.Equal(t, bracket.MatchPending, h.matchByCode(t, tournament.ID, "W2.1").Status)
	assert.Len(t, h.notifier.ready, 2)

	stored, err := h.tournaments.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentInProgress, stored.Status)

	participants, err := h.tournaments.GetParticipants(ctx, tournament.ID)
	require.NoError(t, err)
	for i, p := range participants {
		require.NotNil(t, p.Seed)
		assert.Equal(t, i+1, *p.Seed)
	}

	_, err = h.bracketService.GenerateBracket(ctx, tournament.ID)
	assert.True(t, bracket.IsStateConflict(err), "a second generation must be rejected")
}

func TestGenerateBracketRejectsWrongSize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tournament, _ := h.openTournament(t, bracket.DoubleElim16, 15, 0)

	_, err := h.bracketService.GenerateBracket(ctx, tournament.ID)
	require.Error(t, err)
	assert.True(t, bracket.IsValidation(err))

	stored, err := h.tournaments.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentOpen, stored.Status)

	matches, err := h.tournaments.GetMatches(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)

	participants, err := h.tournaments.GetParticipants(ctx, tournament.ID)
	require.NoError(t, err)
	for _, p := range participants {
		assert.Nil(t, p.Seed, "seeds must roll back with the failed generation")
	}
}

func TestGenerateBracketSkipsUnpaidParticipants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tournament, paid := h.openTournament(t, bracket.SingleElimination, 3, 20000)
	require.Len(t, paid, 3)

	unpaid, err := h.tournamentService.RegisterParticipant(ctx, tournament.ID, RegisterInput{UserID: uuid.New(), DisplayName: "Late Payer"})
	require.Error(t, err, "a three player tournament is full")
	assert.Nil(t, unpaid)

	_, err = h.tournamentService.RefundParticipant(ctx, tournament.ID, paid[2].UserID)
	require.NoError(t, err)
	unpaid, err = h.tournamentService.RegisterParticipant(ctx, tournament.ID, RegisterInput{UserID: uuid.New(), DisplayName: "Late Payer"})
	require.NoError(t, err)
	assert.Equal(t, bracket.PaymentPending, unpaid.PaymentStatus)

	matches, err := h.bracketService.GenerateBracket(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	final := matches[0]
	assert.True(t, final.HasParticipant(paid[0].ID))
	assert.True(t, final.HasParticipant(paid[1].ID))
	assert.False(t, final.HasParticipant(unpaid.ID))
}

func TestGenerateBracketSeedsByRating(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	veteran := uuid.New()
	old, _ := h.openTournament(t, bracket.SingleElimination, 0, 0)
	oldEntry := h.register(t, old.ID, 1, veteran)[0]
	require.NoError(t, h.inTx(t, func(tx *sqlx.Tx) error {
		return h.ratings.CreateRatingRecords(ctx, tx, []bracket.RatingRecord{{
			ID: uuid.New(), TournamentID: old.ID, ParticipantID: oldEntry.ID, UserID: veteran,
			Placement: 1, RatingBefore: 1000, RatingAfter: 1250, Delta: 250, RankCode: "H", AppliedAt: utcNow(),
		}})
	}))

	tournament, err := h.tournamentService.CreateTournament(ctx, CreateTournamentInput{
		Name: "Rated Cup", Format: "SE", MaxParticipants: 4,
	})
	require.NoError(t, err)
	require.NoError(t, h.tournamentService.OpenTournament(ctx, tournament.ID))
	newcomers := h.register(t, tournament.ID, 3)
	// Registered last but rated highest.
	rated := h.register(t, tournament.ID, 1, veteran)[0]

	_, err = h.bracketService.GenerateBracket(ctx, tournament.ID)
	require.NoError(t, err)

	participants, err := h.tournaments.GetParticipants(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, participants, 4)
	assert.Equal(t, rated.ID, participants[0].ID)
	for i, p := range newcomers {
		assert.Equal(t, p.ID, participants[i+1].ID, "equal ratings keep registration order")
	}
}

func (h *harness) inTx(t *testing.T, fn func(tx *sqlx.Tx) error) error {
	t.Helper()
	tx, err := h.db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

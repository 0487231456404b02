package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/longsangsabo2025/sabo-arena/internal/cache"
	"github.com/longsangsabo2025/sabo-arena/internal/middleware"
	users "github.com/longsangsabo2025/sabo-arena/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournament(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	testCases := []struct {
		name     string
		input    CreateTournamentInput
		wantErr  bool
		wantSize int
	}{
		{name: "DE16 fills in its size", input: CreateTournamentInput{Name: "Spring Open", Format: "sabo_de16"}, wantSize: 16},
		{name: "DE24 with matching size", input: CreateTournamentInput{Name: "Cup", Format: "DE24", MaxParticipants: 24}, wantSize: 24},
		{name: "SE defaults to 16", input: CreateTournamentInput{Name: "Weekly", Format: "SE"}, wantSize: 16},
		{name: "SE with custom size", input: CreateTournamentInput{Name: "Weekly", Format: "single", MaxParticipants: 5}, wantSize: 5},
		{name: "DE32 with wrong size", input: CreateTournamentInput{Name: "Cup", Format: "DE32", MaxParticipants: 30}, wantErr: true},
		{name: "Missing name", input: CreateTournamentInput{Name: "  ", Format: "SE"}, wantErr: true},
		{name: "Unknown format", input: CreateTournamentInput{Name: "Cup", Format: "round_robin"}, wantErr: true},
		{name: "Negative fee", input: CreateTournamentInput{Name: "Cup", Format: "SE", EntryFee: -1}, wantErr: true},
		{name: "SE with one seat", input: CreateTournamentInput{Name: "Cup", Format: "SE", MaxParticipants: 1}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tournament, err := h.tournamentService.CreateTournament(ctx, tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, bracket.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantSize, tournament.MaxParticipants)
			assert.Equal(t, bracket.TournamentDraft, tournament.Status)
			assert.Equal(t, users.SystemOperatorID, tournament.OwnerID)
		})
	}
}

func TestGetTournamentsForUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.WithValue(context.Background(), middleware.UserIDKey, users.SystemOperatorID)

	_, err := h.tournamentService.CreateTournament(ctx, CreateTournamentInput{Name: "Mine", Format: "SE"})
	require.NoError(t, err)

	owned, err := h.tournamentService.GetTournamentsForUser(ctx)
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	_, err = h.tournamentService.GetTournamentsForUser(context.Background())
	assert.Error(t, err)
}

func TestRegistration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tournament, err := h.tournamentService.CreateTournament(ctx, CreateTournamentInput{Name: "Paid Cup", Format: "SE", MaxParticipants: 2, EntryFee: 30000})
	require.NoError(t, err)

	_, err = h.tournamentService.RegisterParticipant(ctx, tournament.ID, RegisterInput{UserID: uuid.New(), DisplayName: "Early"})
	assert.True(t, bracket.IsStateConflict(err), "draft tournaments do not take registrations")

	require.NoError(t, h.tournamentService.OpenTournament(ctx, tournament.ID))
	assert.True(t, bracket.IsStateConflict(h.tournamentService.OpenTournament(ctx, tournament.ID)))

	userID := uuid.New()
	p, err := h.tournamentService.RegisterParticipant(ctx, tournament.ID, RegisterInput{UserID: userID, DisplayName: " Minh "})
	require.NoError(t, err)
	assert.Equal(t, "Minh", p.DisplayName)
	assert.Equal(t, bracket.PaymentPending, p.PaymentStatus)

	t.Run("Duplicate user", func(t *testing.T) {
		_, err := h.tournamentService.RegisterParticipant(ctx, tournament.ID, RegisterInput{UserID: userID, DisplayName: "Minh"})
		assert.True(t, bracket.IsStateConflict(err))
	})

	t.Run("Missing display name", func(t *testing.T) {
		_, err := h.tournamentService.RegisterParticipant(ctx, tournament.ID, RegisterInput{UserID: uuid.New()})
		assert.True(t, bracket.IsValidation(err))
	})

	t.Run("Confirm is idempotent", func(t *testing.T) {
		confirmed, err := h.tournamentService.ConfirmPayment(ctx, tournament.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, bracket.PaymentConfirmed, confirmed.PaymentStatus)

		again, err := h.tournamentService.ConfirmPayment(ctx, tournament.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, bracket.PaymentConfirmed, again.PaymentStatus)
	})

	t.Run("Refunded participant cannot be confirmed", func(t *testing.T) {
		_, err := h.tournamentService.RefundParticipant(ctx, tournament.ID, userID)
		require.NoError(t, err)
		_, err = h.tournamentService.RefundParticipant(ctx, tournament.ID, userID)
		require.NoError(t, err)

		_, err = h.tournamentService.ConfirmPayment(ctx, tournament.ID, userID)
		assert.True(t, bracket.IsStateConflict(err))
	})

	t.Run("Unknown participant", func(t *testing.T) {
		_, err := h.tournamentService.ConfirmPayment(ctx, tournament.ID, uuid.New())
		assert.True(t, IsNotFound(err))
	})
}

func TestImportRoster(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tournament, _ := h.openTournament(t, bracket.SingleElimination, 0, 0)

	known := uuid.New()
	roster := strings.Join([]string{
		known.String() + ", Lan Anh",
		"",
		"not-a-uuid, Somebody",
		uuid.New().String() + ",Bao",
		known.String() + ",Lan Anh again",
	}, "\n")

	result, err := h.tournamentService.ImportRoster(ctx, tournament.ID, roster)
	require.NoError(t, err)
	require.Len(t, result.Registered, 2)
	assert.Equal(t, "Lan Anh", result.Registered[0].DisplayName)
	assert.Equal(t, bracket.PaymentConfirmed, result.Registered[0].PaymentStatus, "free tournaments confirm on registration")
	assert.Len(t, result.Skipped, 2)

	_, err = h.tournamentService.ImportRoster(ctx, tournament.ID, uuid.New().String()+",Third")
	assert.True(t, bracket.IsStateConflict(err), "the tournament only has two seats")
}

func TestSnapshotCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	snapshots, err := cache.NewSnapshotStore(filepath.Join(t.TempDir(), "snapshots.db"), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { snapshots.Close() })
	h.tournamentService.WithCache(snapshots)
	h.bracketService.WithCache(snapshots)
	h.matchService.WithCache(snapshots)
	h.settlement.WithCache(snapshots)

	tournament, _ := h.openTournament(t, bracket.SingleElimination, 2, 0)

	before, err := h.tournamentService.Snapshot(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, before.Matches)
	_, found, err := snapshots.Get(tournament.ID.String())
	require.NoError(t, err)
	assert.True(t, found)

	_, err = h.bracketService.GenerateBracket(ctx, tournament.ID)
	require.NoError(t, err)

	after, err := h.tournamentService.Snapshot(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, after.Matches, 1)
	assert.Equal(t, bracket.TournamentInProgress, after.Tournament.Status)
	require.NotNil(t, after.NextMatchID)
	assert.Equal(t, after.Matches[0].ID, *after.NextMatchID)

	h.playToEnd(t, tournament.ID)
	done, err := h.tournamentService.Snapshot(ctx, tournament.ID)
	require.NoError(t, err)
	require.NotNil(t, done.ChampionID)
	assert.Nil(t, done.NextMatchID)
	assert.NotNil(t, done.Tournament.SettledAt)
}

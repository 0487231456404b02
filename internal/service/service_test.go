package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/longsangsabo2025/sabo-arena/internal/db"
	"github.com/longsangsabo2025/sabo-arena/internal/metrics"
	"github.com/longsangsabo2025/sabo-arena/internal/rating"
	"github.com/longsangsabo2025/sabo-arena/internal/store"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.InitMemoryDB()
	require.NoError(t, err, "Failed to set up in-memory DB")
	t.Cleanup(func() { database.Close() })
	return database
}

type recordingNotifier struct {
	mu        sync.Mutex
	ready     []bracket.Match
	completed []bracket.Match
	finished  []uuid.UUID
}

func (n *recordingNotifier) MatchReady(_ context.Context, m bracket.Match) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ready = append(n.ready, m)
}

func (n *recordingNotifier) MatchCompleted(_ context.Context, m bracket.Match) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, m)
}

func (n *recordingNotifier) TournamentCompleted(_ context.Context, t bracket.Tournament, _ *uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, t.ID)
}

func (n *recordingNotifier) finishedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.finished)
}

type harness struct {
	db          *sqlx.DB
	tournaments *store.TournamentStore
	ratings     *store.RatingStore
	notifier    *recordingNotifier

	tournamentService *TournamentService
	bracketService    *BracketGeneration
	matchService      *MatchService
	settlement        *SettlementService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	database := setupTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	rules := rating.DefaultRules()
	locks := NewLocks()

	h := &harness{
		db:          database,
		tournaments: store.NewTournamentStore(database),
		ratings:     store.NewRatingStore(database),
		notifier:    &recordingNotifier{},
	}
	h.tournamentService = NewTournamentService(database, h.tournaments, locks, logger, m)
	h.bracketService = NewBracketService(database, h.tournaments, h.ratings, rules.InitialRating, locks, h.notifier, logger, m)
	h.settlement = NewSettlementService(database, h.tournaments, h.ratings, rules, locks, logger, m)
	h.matchService = NewMatchService(database, h.tournaments, locks, h.notifier, h.settlement, logger, m)
	return h
}

// openTournament creates an open tournament and registers n players, each
// with payment confirmed.
func (h *harness) openTournament(t *testing.T, format bracket.Format, n int, fee int64) (*bracket.Tournament, []bracket.Participant) {
	t.Helper()
	ctx := context.Background()

	size := max(n, 2)
	if format.RequiredSize() > 0 {
		size = 0
	}
	tournament, err := h.tournamentService.CreateTournament(ctx, CreateTournamentInput{
		Name:            gofakeit.Company() + " Open",
		Format:          string(format),
		MaxParticipants: size,
		EntryFee:        fee,
	})
	require.NoError(t, err)
	require.NoError(t, h.tournamentService.OpenTournament(ctx, tournament.ID))
	tournament.Status = bracket.TournamentOpen

	return tournament, h.register(t, tournament.ID, n)
}

func (h *harness) register(t *testing.T, tournamentID uuid.UUID, n int, userIDs ...uuid.UUID) []bracket.Participant {
	t.Helper()
	ctx := context.Background()
	participants := make([]bracket.Participant, n)
	for i := range participants {
		userID := uuid.New()
		if i < len(userIDs) {
			userID = userIDs[i]
		}
		p, err := h.tournamentService.RegisterParticipant(ctx, tournamentID, RegisterInput{UserID: userID, DisplayName: gofakeit.Name()})
		require.NoError(t, err)
		if p.PaymentStatus == bracket.PaymentPending {
			p, err = h.tournamentService.ConfirmPayment(ctx, tournamentID, userID)
			require.NoError(t, err)
		}
		participants[i] = *p
	}
	return participants
}

func (h *harness) matchByCode(t *testing.T, tournamentID uuid.UUID, code string) bracket.Match {
	t.Helper()
	matches, err := h.tournaments.GetMatches(context.Background(), tournamentID)
	require.NoError(t, err)
	for _, m := range matches {
		if m.Code == code {
			return m
		}
	}
	t.Fatalf("match %s not found", code)
	return bracket.Match{}
}

// playToEnd submits 3-1 for slot 1 on every ready match until none is left.
func (h *harness) playToEnd(t *testing.T, tournamentID uuid.UUID) int {
	t.Helper()
	ctx := context.Background()
	played := 0
	for {
		matches, err := h.tournaments.GetMatches(ctx, tournamentID)
		require.NoError(t, err)

		var next *bracket.Match
		for i := range matches {
			if matches[i].Status == bracket.MatchReady {
				next = &matches[i]
				break
			}
		}
		if next == nil {
			return played
		}
		_, err = h.matchService.SubmitScore(ctx, next.ID, 3, 1)
		require.NoError(t, err, "submitting %s", next.Code)
		played++
	}
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/longsangsabo2025/sabo-arena/internal/metrics"
	"github.com/longsangsabo2025/sabo-arena/internal/store"
	"github.com/longsangsabo2025/sabo-arena/internal/utils"
)

type BracketGeneration struct {
	db            *sqlx.DB
	store         *store.TournamentStore
	ratings       *store.RatingStore
	initialRating int
	locks         *Locks
	notifier      Notifier
	cache         SnapshotCache
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

func NewBracketService(db *sqlx.DB, store *store.TournamentStore, ratings *store.RatingStore, initialRating int, locks *Locks, notifier Notifier, logger *slog.Logger, m *metrics.Metrics) *BracketGeneration {
	return &BracketGeneration{
		db:            db,
		store:         store,
		ratings:       ratings,
		initialRating: initialRating,
		locks:         locks,
		notifier:      notifier,
		logger:        logger,
		metrics:       m,
	}
}

func (s *BracketGeneration) WithCache(c SnapshotCache) *BracketGeneration {
	s.cache = c
	return s
}

// GenerateBracket seeds the eligible participants of an open tournament,
// persists the full match graph and moves the tournament to in_progress.
// Nothing is written when any step fails.
func (s *BracketGeneration) GenerateBracket(ctx context.Context, tournamentID uuid.UUID) (matches []bracket.Match, err error) {
	ctx, span := startSpan(ctx, "BracketGeneration.GenerateBracket", tournamentID)
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("generate", start, err)
		endSpan(span, err)
	}()

	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != bracket.TournamentOpen {
		return nil, bracket.Conflictf("bracket can only be generated for an open tournament, this one is %s", tournament.Status)
	}

	participants, err := s.store.GetParticipantsTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	var eligible []bracket.Participant
	for _, p := range participants {
		if p.Eligible(tournament.EntryFee) {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) > tournament.MaxParticipants {
		return nil, bracket.Validationf("%d eligible participants exceed the limit of %d", len(eligible), tournament.MaxParticipants)
	}

	if err := s.seed(ctx, tx, eligible); err != nil {
		return nil, err
	}

	matches, err = bracket.Generate(tournamentID, eligible, tournament.Format, utcNow())
	if err != nil {
		return nil, err
	}

	if err := s.store.SetSeedsTx(ctx, tx, eligible); err != nil {
		return nil, fmt.Errorf("failed to save seeds: %w", err)
	}
	if err := s.store.CreateMatches(ctx, tx, matches); err != nil {
		return nil, fmt.Errorf("failed to create matches: %w", err)
	}
	if err := s.store.UpdateTournamentStatusTx(ctx, tx, tournamentID, bracket.TournamentOpen, bracket.TournamentInProgress); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, s.logger, tournamentID)
	s.metrics.TournamentTransition(bracket.TournamentInProgress)
	for _, m := range matches {
		if m.IsBye {
			s.metrics.MatchCompleted(m)
		}
		if m.Status == bracket.MatchReady {
			s.notifier.MatchReady(ctx, m)
		}
	}

	s.logger.InfoContext(ctx, "Bracket generated",
		slog.String("tournament_id", tournamentID.String()),
		slog.String("format", string(tournament.Format)),
		slog.Int("participants", len(eligible)),
		slog.Int("matches", len(matches)),
	)
	return matches, nil
}

// seed orders participants by current rating (highest first), then
// registration time, then id, and numbers them from 1.
func (s *BracketGeneration) seed(ctx context.Context, tx *sqlx.Tx, participants []bracket.Participant) error {
	userIDs := make([]uuid.UUID, len(participants))
	for i, p := range participants {
		userIDs[i] = p.UserID
	}
	latest, err := s.ratings.LatestRatingsTx(ctx, tx, userIDs)
	if err != nil {
		return fmt.Errorf("failed to get ratings: %w", err)
	}

	rating := func(p bracket.Participant) int {
		if r, ok := latest[p.UserID]; ok {
			return r
		}
		return s.initialRating
	}

	sort.SliceStable(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if ra, rb := rating(a), rating(b); ra != rb {
			return ra > rb
		}
		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			return a.RegisteredAt.Before(b.RegisteredAt)
		}
		return a.ID.String() < b.ID.String()
	})
	for i := range participants {
		participants[i].Seed = utils.Ptr(i + 1)
	}
	return nil
}

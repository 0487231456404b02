package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/longsangsabo2025/sabo-arena/internal/metrics"
	"github.com/longsangsabo2025/sabo-arena/internal/store"
	"github.com/longsangsabo2025/sabo-arena/internal/utils"
)

// Settler is run after a tournament completes.
type Settler interface {
	Settle(ctx context.Context, tournamentID uuid.UUID) ([]bracket.RatingRecord, error)
}

type MatchService struct {
	db       *sqlx.DB
	store    *store.TournamentStore
	locks    *Locks
	notifier Notifier
	settler  Settler
	cache    SnapshotCache
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewMatchService(db *sqlx.DB, store *store.TournamentStore, locks *Locks, notifier Notifier, settler Settler, logger *slog.Logger, m *metrics.Metrics) *MatchService {
	return &MatchService{
		db:       db,
		store:    store,
		locks:    locks,
		notifier: notifier,
		settler:  settler,
		logger:   logger,
		metrics:  m,
	}
}

func (s *MatchService) WithCache(c SnapshotCache) *MatchService {
	s.cache = c
	return s
}

type MatchData struct {
	Match        *bracket.Match       `json:"match"`
	Participant1 *bracket.Participant `json:"participant_1,omitempty"`
	Participant2 *bracket.Participant `json:"participant_2,omitempty"`
}

func (s *MatchService) GetMatchViewData(ctx context.Context, matchID uuid.UUID) (*MatchData, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	participants, err := s.store.GetParticipants(ctx, match.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	data := &MatchData{Match: match}
	for i := range participants {
		p := &participants[i]
		if utils.Is(match.Participant1ID, p.ID) {
			data.Participant1 = p
		}
		if utils.Is(match.Participant2ID, p.ID) {
			data.Participant2 = p
		}
	}
	return data, nil
}

func (s *MatchService) StartMatch(ctx context.Context, matchID uuid.UUID) (*bracket.Match, error) {
	return s.mutate(ctx, "start", matchID, func(a *bracket.Arena, _ time.Time) error {
		return a.Start(matchID)
	})
}

// SubmitScore records the final score of a ready or running match and
// advances both entrants.
func (s *MatchService) SubmitScore(ctx context.Context, matchID uuid.UUID, score1, score2 int) (*bracket.Match, error) {
	return s.mutate(ctx, "submit", matchID, func(a *bracket.Arena, at time.Time) error {
		return a.Submit(matchID, score1, score2, at)
	})
}

func (s *MatchService) ForceWalkover(ctx context.Context, matchID uuid.UUID, winnerSlot int) (*bracket.Match, error) {
	return s.mutate(ctx, "walkover", matchID, func(a *bracket.Arena, at time.Time) error {
		return a.Walkover(matchID, winnerSlot, at)
	})
}

func (s *MatchService) CorrectScore(ctx context.Context, matchID uuid.UUID, score1, score2 int) (*bracket.Match, error) {
	return s.mutate(ctx, "correct", matchID, func(a *bracket.Arena, _ time.Time) error {
		return a.Correct(matchID, score1, score2)
	})
}

// mutate runs one engine operation against the whole bracket of the match's
// tournament: load, apply, write back every touched match with a status
// compare-and-set, and complete the tournament when the final is decided.
// Events go out only after commit.
func (s *MatchService) mutate(ctx context.Context, op string, matchID uuid.UUID, apply func(a *bracket.Arena, at time.Time) error) (result *bracket.Match, err error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	tournamentID := match.TournamentID

	ctx, span := startSpan(ctx, "MatchService."+op, tournamentID)
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation(op, start, err)
		endSpan(span, err)
	}()

	unlock := s.locks.Lock(tournamentID)
	arena, tournament, completed, err := s.apply(ctx, op, match, apply)
	unlock()
	if err != nil {
		if bracket.IsCorrectionConflict(err) {
			s.logger.WarnContext(ctx, "Score correction needs an operator",
				slog.String("tournament_id", tournamentID.String()),
				slog.String("match_id", matchID.String()),
				slog.Any("error", err),
			)
		}
		return nil, err
	}

	invalidate(ctx, s.cache, s.logger, tournamentID)
	for _, e := range arena.Events() {
		switch e.Kind {
		case bracket.EventMatchReady:
			s.notifier.MatchReady(ctx, e.Match)
		case bracket.EventMatchCompleted:
			s.metrics.MatchCompleted(e.Match)
			s.notifier.MatchCompleted(ctx, e.Match)
		}
	}

	if completed {
		s.metrics.TournamentTransition(bracket.TournamentCompleted)
		s.notifier.TournamentCompleted(ctx, *tournament, arena.Champion())
		s.logger.InfoContext(ctx, "Tournament completed", slog.String("tournament_id", tournamentID.String()))
		if _, err := s.settler.Settle(ctx, tournamentID); err != nil {
			// The result stands; settlement is retried from the CLI or scheduler.
			s.logger.ErrorContext(ctx, "Settlement failed",
				slog.String("tournament_id", tournamentID.String()),
				slog.Any("error", err),
			)
		}
	}

	updated, _ := arena.Match(matchID)
	return &updated, nil
}

func (s *MatchService) apply(ctx context.Context, op string, match *bracket.Match, apply func(a *bracket.Arena, at time.Time) error) (*bracket.Arena, *bracket.Tournament, bool, error) {
	tournamentID := match.TournamentID
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, false, err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, nil, false, err
	}
	if tournament.Status != bracket.TournamentInProgress {
		if op == "correct" && tournament.Status == bracket.TournamentCompleted {
			return nil, nil, false, &bracket.CorrectionConflictError{MatchID: match.ID, Reason: "tournament is already completed"}
		}
		return nil, nil, false, bracket.Conflictf("tournament is %s, matches cannot change", tournament.Status)
	}

	matches, err := s.store.GetMatchesTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to get matches: %w", err)
	}

	at := utcNow()
	arena := bracket.NewArena(matches)
	if err := apply(arena, at); err != nil {
		return nil, nil, false, err
	}

	for _, c := range arena.Changes() {
		if err := s.store.UpdateMatchTx(ctx, tx, c.Match, c.PrevStatus); err != nil {
			return nil, nil, false, err
		}
	}

	completed := false
	if arena.Decided() {
		if err := s.store.CompleteTournamentTx(ctx, tx, tournamentID, at); err != nil {
			return nil, nil, false, err
		}
		tournament.Status = bracket.TournamentCompleted
		tournament.CompletedAt = &at
		completed = true
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, false, err
	}
	return arena, tournament, completed, nil
}

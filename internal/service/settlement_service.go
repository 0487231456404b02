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
	"github.com/longsangsabo2025/sabo-arena/internal/rating"
	"github.com/longsangsabo2025/sabo-arena/internal/store"
)

type SettlementService struct {
	db          *sqlx.DB
	tournaments *store.TournamentStore
	ratings     *store.RatingStore
	rules       *rating.Rules
	locks       *Locks
	cache       SnapshotCache
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewSettlementService(db *sqlx.DB, tournaments *store.TournamentStore, ratings *store.RatingStore, rules *rating.Rules, locks *Locks, logger *slog.Logger, m *metrics.Metrics) *SettlementService {
	return &SettlementService{
		db:          db,
		tournaments: tournaments,
		ratings:     ratings,
		rules:       rules,
		locks:       locks,
		logger:      logger,
		metrics:     m,
	}
}

func (s *SettlementService) WithCache(c SnapshotCache) *SettlementService {
	s.cache = c
	return s
}

// Settle writes rating records and reward grants for a completed tournament
// and marks it settled, all in one transaction. A settled tournament returns
// its stored records without writing anything.
func (s *SettlementService) Settle(ctx context.Context, tournamentID uuid.UUID) (records []bracket.RatingRecord, err error) {
	ctx, span := startSpan(ctx, "SettlementService.Settle", tournamentID)
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("settle", start, err)
		endSpan(span, err)
	}()

	unlock := s.locks.Lock(tournamentID)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.tournaments.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.IsSettled() {
		s.metrics.Settlement("already_settled")
		return s.ratings.GetRatingRecordsTx(ctx, tx, tournamentID)
	}
	if tournament.Status != bracket.TournamentCompleted {
		return nil, bracket.Conflictf("tournament is %s, only completed tournaments can be settled", tournament.Status)
	}

	participants, err := s.tournaments.GetParticipantsTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	matches, err := s.tournaments.GetMatchesTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}

	var seeded []bracket.Participant
	var confirmed int64
	userIDs := make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		if p.PaymentStatus == bracket.PaymentConfirmed {
			confirmed++
		}
		if p.Seed != nil {
			seeded = append(seeded, p)
			userIDs = append(userIDs, p.UserID)
		}
	}

	latest, err := s.ratings.LatestRatingsTx(ctx, tx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get ratings: %w", err)
	}
	before := make(map[uuid.UUID]int, len(seeded))
	for _, p := range seeded {
		if r, ok := latest[p.UserID]; ok {
			before[p.ID] = r
		}
	}

	results, err := s.rules.Compute(rating.Input{
		Format:       tournament.Format,
		Participants: seeded,
		Matches:      matches,
		Before:       before,
		PrizePool:    tournament.EntryFee * confirmed,
	})
	if err != nil {
		return nil, err
	}

	at := utcNow()
	records = make([]bracket.RatingRecord, len(results))
	grants := make([]bracket.RewardGrant, len(results))
	for i, r := range results {
		records[i] = bracket.RatingRecord{
			ID:            uuid.New(),
			TournamentID:  tournamentID,
			ParticipantID: r.ParticipantID,
			UserID:        r.UserID,
			Placement:     r.Placement,
			RatingBefore:  r.RatingBefore,
			RatingAfter:   r.RatingAfter,
			Delta:         r.Delta,
			RankCode:      r.RankCode,
			AppliedAt:     at,
		}
		grants[i] = bracket.RewardGrant{
			ID:            uuid.New(),
			TournamentID:  tournamentID,
			ParticipantID: r.ParticipantID,
			UserID:        r.UserID,
			Placement:     r.Placement,
			Points:        r.Points,
			Payout:        r.Payout,
			GrantedAt:     at,
		}
	}

	if err := s.ratings.CreateRatingRecords(ctx, tx, records); err != nil {
		return nil, fmt.Errorf("failed to create rating records: %w", err)
	}
	if err := s.ratings.CreateRewardGrants(ctx, tx, grants); err != nil {
		return nil, fmt.Errorf("failed to create reward grants: %w", err)
	}
	if err := s.tournaments.MarkSettledTx(ctx, tx, tournamentID, at); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, s.logger, tournamentID)
	s.metrics.Settlement("settled")
	s.logger.InfoContext(ctx, "Tournament settled",
		slog.String("tournament_id", tournamentID.String()),
		slog.Int("records", len(records)),
		slog.Int64("prize_pool", tournament.EntryFee*confirmed),
	)
	return s.ratings.GetRatingRecords(ctx, tournamentID)
}

// SettlePending retries every completed tournament that is not settled yet.
// It returns how many were settled and the first error it met.
func (s *SettlementService) SettlePending(ctx context.Context) (int, error) {
	pending, err := s.tournaments.GetUnsettledTournaments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get unsettled tournaments: %w", err)
	}

	settled := 0
	var firstErr error
	for _, t := range pending {
		if _, err := s.Settle(ctx, t.ID); err != nil {
			s.metrics.Settlement("failed")
			s.logger.ErrorContext(ctx, "Settlement retry failed",
				slog.String("tournament_id", t.ID.String()),
				slog.Any("error", err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		settled++
	}
	return settled, firstErr
}

type TournamentResults struct {
	Tournament *bracket.Tournament
	Records    []bracket.RatingRecord
	Grants     []bracket.RewardGrant
	Names      map[uuid.UUID]string
}

// GetResults returns what settlement wrote, keyed for display.
func (s *SettlementService) GetResults(ctx context.Context, tournamentID uuid.UUID) (*TournamentResults, error) {
	tournament, err := s.tournaments.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !tournament.IsSettled() {
		return nil, bracket.Conflictf("tournament has not been settled")
	}

	records, err := s.ratings.GetRatingRecords(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rating records: %w", err)
	}
	grants, err := s.ratings.GetRewardGrants(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward grants: %w", err)
	}
	participants, err := s.tournaments.GetParticipants(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	names := make(map[uuid.UUID]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.DisplayName
	}
	return &TournamentResults{Tournament: tournament, Records: records, Grants: grants, Names: names}, nil
}

func (s *SettlementService) GetRatingHistory(ctx context.Context, userID uuid.UUID) ([]bracket.RatingRecord, error) {
	return s.ratings.GetRatingHistory(ctx, userID)
}

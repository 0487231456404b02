package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/longsangsabo2025/sabo-arena/internal/metrics"
	"github.com/longsangsabo2025/sabo-arena/internal/middleware"
	"github.com/longsangsabo2025/sabo-arena/internal/store"
	users "github.com/longsangsabo2025/sabo-arena/internal/user"
)

const (
	maxNameLength         = 120
	defaultSingleElimSize = 16
	maxSingleElimSize     = 128
)

type TournamentService struct {
	db      *sqlx.DB
	store   *store.TournamentStore
	locks   *Locks
	cache   SnapshotCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, locks *Locks, logger *slog.Logger, m *metrics.Metrics) *TournamentService {
	return &TournamentService{db: db, store: store, locks: locks, logger: logger, metrics: m}
}

// WithCache enables snapshot caching for Snapshot reads.
func (s *TournamentService) WithCache(c SnapshotCache) *TournamentService {
	s.cache = c
	return s
}

type CreateTournamentInput struct {
	Name            string `json:"name"`
	Format          string `json:"format"`
	MaxParticipants int    `json:"max_participants"`
	EntryFee        int64  `json:"entry_fee"`
}

type RegisterInput struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
}

type TournamentData struct {
	Tournament   *bracket.Tournament   `json:"tournament"`
	Participants []bracket.Participant `json:"participants"`
	Matches      []bracket.Match       `json:"matches"`
	ChampionID   *uuid.UUID            `json:"champion_id,omitempty"`
	NextMatchID  *uuid.UUID            `json:"next_match_id,omitempty"`
	GeneratedAt  time.Time             `json:"generated_at"`
}

func (in CreateTournamentInput) validate() (bracket.Format, int, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", 0, bracket.Validationf("tournament name is required")
	}
	if len(name) > maxNameLength {
		return "", 0, bracket.Validationf("tournament name is longer than %d characters", maxNameLength)
	}
	if in.EntryFee < 0 {
		return "", 0, bracket.Validationf("entry fee cannot be negative")
	}

	format, err := bracket.ParseFormat(in.Format)
	if err != nil {
		return "", 0, err
	}

	size := in.MaxParticipants
	if required := format.RequiredSize(); required > 0 {
		if size != 0 && size != required {
			return "", 0, bracket.Validationf("%s takes exactly %d participants", format, required)
		}
		return format, required, nil
	}
	if size == 0 {
		size = defaultSingleElimSize
	}
	if size < 2 || size > maxSingleElimSize {
		return "", 0, bracket.Validationf("max participants must be between 2 and %d", maxSingleElimSize)
	}
	return format, size, nil
}

func (s *TournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*bracket.Tournament, error) {
	format, size, err := input.validate()
	if err != nil {
		return nil, err
	}

	ownerID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		ownerID = users.SystemOperatorID
	}

	tournament := &bracket.Tournament{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Name:            strings.TrimSpace(input.Name),
		Format:          format,
		MaxParticipants: size,
		EntryFee:        input.EntryFee,
		Status:          bracket.TournamentDraft,
		CreatedAt:       utcNow(),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.store.CreateTournament(ctx, tx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.metrics.TournamentTransition(bracket.TournamentDraft)
	s.logger.InfoContext(ctx, "Tournament created",
		slog.String("tournament_id", tournament.ID.String()),
		slog.String("format", string(format)),
		slog.Int("max_participants", size),
	)
	return tournament, nil
}

// OpenTournament starts registration.
func (s *TournamentService) OpenTournament(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, bracket.TournamentOpen)
}

// CancelTournament stops a tournament that has not completed. Matches keep
// whatever state they had.
func (s *TournamentService) CancelTournament(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, bracket.TournamentCancelled)
}

func (s *TournamentService) transition(ctx context.Context, id uuid.UUID, to bracket.TournamentStatus) (err error) {
	ctx, span := startSpan(ctx, "TournamentService.Transition", id)
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if !tournament.Status.CanTransition(to) {
		return bracket.Conflictf("tournament is %s and cannot become %s", tournament.Status, to)
	}
	if err := s.store.UpdateTournamentStatusTx(ctx, tx, id, tournament.Status, to); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	invalidate(ctx, s.cache, s.logger, id)
	s.metrics.TournamentTransition(to)
	s.logger.InfoContext(ctx, "Tournament status changed",
		slog.String("tournament_id", id.String()),
		slog.String("from", string(tournament.Status)),
		slog.String("to", string(to)),
	)
	return nil
}

func (s *TournamentService) RegisterParticipant(ctx context.Context, tournamentID uuid.UUID, input RegisterInput) (*bracket.Participant, error) {
	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		return nil, bracket.Validationf("display name is required")
	}
	if input.UserID == uuid.Nil {
		return nil, bracket.Validationf("user id is required")
	}

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
		return nil, bracket.Conflictf("registration is closed, tournament is %s", tournament.Status)
	}

	participants, err := s.store.GetParticipantsTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	active := 0
	for _, p := range participants {
		if p.UserID == input.UserID {
			return nil, bracket.Conflictf("user %s is already registered", input.UserID)
		}
		if p.PaymentStatus != bracket.PaymentRefunded {
			active++
		}
	}
	if active >= tournament.MaxParticipants {
		return nil, bracket.Conflictf("tournament is full")
	}

	participant := &bracket.Participant{
		ID:            uuid.New(),
		TournamentID:  tournamentID,
		UserID:        input.UserID,
		DisplayName:   name,
		PaymentStatus: bracket.PaymentPending,
		RegisteredAt:  utcNow(),
	}
	if tournament.EntryFee == 0 {
		participant.PaymentStatus = bracket.PaymentConfirmed
	}

	if err := s.store.CreateParticipant(ctx, tx, participant); err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, s.logger, tournamentID)
	return participant, nil
}

// ConfirmPayment records a payment reported by the registration
// collaborator. Confirming twice is a no-op.
func (s *TournamentService) ConfirmPayment(ctx context.Context, tournamentID, userID uuid.UUID) (*bracket.Participant, error) {
	return s.setPayment(ctx, tournamentID, userID, bracket.PaymentConfirmed, func(status bracket.TournamentStatus) bool {
		return status == bracket.TournamentDraft || status == bracket.TournamentOpen
	})
}

// RefundParticipant withdraws a participant before the bracket exists, or
// after the tournament was cancelled. Refunding twice is a no-op.
func (s *TournamentService) RefundParticipant(ctx context.Context, tournamentID, userID uuid.UUID) (*bracket.Participant, error) {
	return s.setPayment(ctx, tournamentID, userID, bracket.PaymentRefunded, func(status bracket.TournamentStatus) bool {
		return status == bracket.TournamentDraft || status == bracket.TournamentOpen || status == bracket.TournamentCancelled
	})
}

func (s *TournamentService) setPayment(ctx context.Context, tournamentID, userID uuid.UUID, to bracket.PaymentStatus, allowed func(bracket.TournamentStatus) bool) (*bracket.Participant, error) {
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
	participant, err := s.store.GetParticipantByUserTx(ctx, tx, tournamentID, userID)
	if err != nil {
		return nil, err
	}
	if participant.PaymentStatus == to {
		return participant, nil
	}
	if !allowed(tournament.Status) {
		return nil, bracket.Conflictf("cannot set payment to %s while tournament is %s", to, tournament.Status)
	}
	if participant.PaymentStatus == bracket.PaymentRefunded {
		return nil, bracket.Conflictf("participant was refunded")
	}

	if err := s.store.UpdatePaymentStatusTx(ctx, tx, participant.ID, participant.PaymentStatus, to); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Payment status changed",
		slog.String("tournament_id", tournamentID.String()),
		slog.String("participant_id", participant.ID.String()),
		slog.String("from", string(participant.PaymentStatus)),
		slog.String("to", string(to)),
	)
	participant.PaymentStatus = to
	invalidate(ctx, s.cache, s.logger, tournamentID)
	return participant, nil
}

func (s *TournamentService) GetTournamentData(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	tournament, err := s.store.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	participants, err := s.store.GetParticipants(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	matches, err := s.store.GetMatches(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}

	data := &TournamentData{
		Tournament:   tournament,
		Participants: participants,
		Matches:      matches,
		GeneratedAt:  utcNow(),
	}
	if len(matches) > 0 {
		arena := bracket.NewArena(matches)
		data.ChampionID = arena.Champion()
	}
	for _, m := range matches {
		if m.Status == bracket.MatchReady || m.Status == bracket.MatchInProgress {
			id := m.ID
			data.NextMatchID = &id
			break
		}
	}
	return data, nil
}

// Snapshot is GetTournamentData served through the snapshot cache when one
// is configured.
func (s *TournamentService) Snapshot(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	if s.cache == nil {
		return s.GetTournamentData(ctx, id)
	}

	key := id.String()
	raw, found, err := s.cache.Get(key)
	if err != nil {
		s.logger.WarnContext(ctx, "Snapshot cache read failed", slog.String("tournament_id", key), slog.Any("error", err))
	}
	s.metrics.CacheLookup(found)
	if found {
		var data TournamentData
		if err := json.Unmarshal(raw, &data); err == nil {
			return &data, nil
		}
	}

	data, err := s.GetTournamentData(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(data); err == nil {
		if err := s.cache.Set(key, raw); err != nil {
			s.logger.WarnContext(ctx, "Snapshot cache write failed", slog.String("tournament_id", key), slog.Any("error", err))
		}
	}
	return data, nil
}

func (s *TournamentService) GetTournamentsForUser(ctx context.Context) ([]bracket.Tournament, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("user ID not found in the context")
	}
	return s.store.GetTournamentsByOwner(ctx, userID)
}

func invalidate(ctx context.Context, cache SnapshotCache, logger *slog.Logger, tournamentID uuid.UUID) {
	if cache == nil {
		return
	}
	if err := cache.Delete(tournamentID.String()); err != nil {
		logger.WarnContext(ctx, "Snapshot cache invalidation failed",
			slog.String("tournament_id", tournamentID.String()),
			slog.Any("error", err),
		)
	}
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, owner_id, name, format, max_participants, entry_fee, status, created_at)
        VALUES (:id, :owner_id, :name, :format, :max_participants, :entry_fee, :status, :created_at)`, tournament)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	return getTournament(ctx, s.db, id)
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Tournament, error) {
	return getTournament(ctx, tx, id)
}

func getTournament(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	if err := sqlx.GetContext(ctx, q, &tournament, "SELECT * FROM tournaments WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) GetTournamentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := s.db.SelectContext(ctx, &tournaments, "SELECT * FROM tournaments WHERE owner_id = ? ORDER BY created_at DESC", ownerID)
	return tournaments, err
}

// GetUnsettledTournaments lists completed tournaments whose rewards were
// never applied.
func (s *TournamentStore) GetUnsettledTournaments(ctx context.Context) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := s.db.SelectContext(ctx, &tournaments,
		"SELECT * FROM tournaments WHERE status = ? AND settled_at IS NULL ORDER BY completed_at ASC", bracket.TournamentCompleted)
	return tournaments, err
}

// UpdateTournamentStatusTx moves a tournament from one status to another and
// fails with a state conflict if someone else moved it first.
func (s *TournamentStore) UpdateTournamentStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to bracket.TournamentStatus) error {
	res, err := tx.ExecContext(ctx, "UPDATE tournaments SET status = ? WHERE id = ? AND status = ?", to, id, from)
	if err != nil {
		return err
	}
	return expectOneRow(res, "tournament %s is no longer %s", id, from)
}

func (s *TournamentStore) CompleteTournamentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error {
	res, err := tx.ExecContext(ctx, "UPDATE tournaments SET status = ?, completed_at = ? WHERE id = ? AND status = ?",
		bracket.TournamentCompleted, at, id, bracket.TournamentInProgress)
	if err != nil {
		return err
	}
	return expectOneRow(res, "tournament %s is no longer in progress", id)
}

// MarkSettledTx sets the settled flag exactly once.
func (s *TournamentStore) MarkSettledTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error {
	res, err := tx.ExecContext(ctx, "UPDATE tournaments SET settled_at = ? WHERE id = ? AND status = ? AND settled_at IS NULL",
		at, id, bracket.TournamentCompleted)
	if err != nil {
		return err
	}
	return expectOneRow(res, "tournament %s was already settled", id)
}

func (s *TournamentStore) CreateParticipant(ctx context.Context, tx *sqlx.Tx, participant *bracket.Participant) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO participants (id, tournament_id, user_id, display_name, payment_status, seed, registered_at)
        VALUES (:id, :tournament_id, :user_id, :display_name, :payment_status, :seed, :registered_at)`, participant)
	return err
}

func (s *TournamentStore) GetParticipants(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	return getParticipants(ctx, s.db, tournamentID)
}

func (s *TournamentStore) GetParticipantsTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	return getParticipants(ctx, tx, tournamentID)
}

func getParticipants(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	var participants []bracket.Participant
	err := sqlx.SelectContext(ctx, q, &participants,
		"SELECT * FROM participants WHERE tournament_id = ? ORDER BY seed IS NULL, seed ASC, registered_at ASC, id ASC", tournamentID)
	return participants, err
}

func (s *TournamentStore) GetParticipantByUserTx(ctx context.Context, tx *sqlx.Tx, tournamentID, userID uuid.UUID) (*bracket.Participant, error) {
	var participant bracket.Participant
	err := tx.GetContext(ctx, &participant, "SELECT * FROM participants WHERE tournament_id = ? AND user_id = ?", tournamentID, userID)
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (s *TournamentStore) UpdatePaymentStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to bracket.PaymentStatus) error {
	res, err := tx.ExecContext(ctx, "UPDATE participants SET payment_status = ? WHERE id = ? AND payment_status = ?", to, id, from)
	if err != nil {
		return err
	}
	return expectOneRow(res, "participant %s is no longer %s", id, from)
}

func (s *TournamentStore) SetSeedsTx(ctx context.Context, tx *sqlx.Tx, participants []bracket.Participant) error {
	for _, p := range participants {
		if _, err := tx.ExecContext(ctx, "UPDATE participants SET seed = ? WHERE id = ?", p.Seed, p.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *TournamentStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO matches (id, tournament_id, code, bracket_side, bracket_group, round_number, match_order, stage,
            participant_1_id, participant_2_id, slot_1_bye, slot_2_bye, score_1, score_2, status, winner_slot, is_bye,
            winner_next_match_id, winner_next_slot, loser_next_match_id, loser_next_slot, completed_at, created_at)
		VALUES (:id, :tournament_id, :code, :bracket_side, :bracket_group, :round_number, :match_order, :stage,
            :participant_1_id, :participant_2_id, :slot_1_bye, :slot_2_bye, :score_1, :score_2, :status, :winner_slot, :is_bye,
            :winner_next_match_id, :winner_next_slot, :loser_next_match_id, :loser_next_slot, :completed_at, :created_at)`, matches)
	return err
}

func (s *TournamentStore) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	if err := s.db.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) GetMatches(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	return getMatches(ctx, s.db, tournamentID)
}

func (s *TournamentStore) GetMatchesTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.Match, error) {
	return getMatches(ctx, tx, tournamentID)
}

func getMatches(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, q, &matches,
		`SELECT * FROM matches WHERE tournament_id = ?
        ORDER BY CASE bracket_side WHEN 'winners' THEN 0 WHEN 'losers' THEN 1 ELSE 2 END, bracket_group, round_number, match_order`, tournamentID)
	return matches, err
}

type matchUpdate struct {
	bracket.Match
	PrevStatus bracket.MatchStatus `db:"prev_status"`
}

// UpdateMatchTx writes every mutable column of a match, guarded by the
// status it had when it was read.
func (s *TournamentStore) UpdateMatchTx(ctx context.Context, tx *sqlx.Tx, match bracket.Match, prevStatus bracket.MatchStatus) error {
	res, err := tx.NamedExecContext(ctx, `UPDATE matches SET
        participant_1_id = :participant_1_id,
        participant_2_id = :participant_2_id,
        slot_1_bye = :slot_1_bye,
        slot_2_bye = :slot_2_bye,
        score_1 = :score_1,
        score_2 = :score_2,
        status = :status,
        winner_slot = :winner_slot,
        is_bye = :is_bye,
        completed_at = :completed_at
        WHERE id = :id AND status = :prev_status`, matchUpdate{Match: match, PrevStatus: prevStatus})
	if err != nil {
		return err
	}
	return expectOneRow(res, "match %s changed underneath this update", match.Code)
}

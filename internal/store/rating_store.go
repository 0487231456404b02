package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
)

type RatingStore struct {
	db *sqlx.DB
}

func NewRatingStore(db *sqlx.DB) *RatingStore {
	return &RatingStore{db: db}
}

func (s *RatingStore) CreateRatingRecords(ctx context.Context, tx *sqlx.Tx, records []bracket.RatingRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO rating_records (id, tournament_id, participant_id, user_id, placement, rating_before, rating_after, delta, rank_code, applied_at)
        VALUES (:id, :tournament_id, :participant_id, :user_id, :placement, :rating_before, :rating_after, :delta, :rank_code, :applied_at)`, records)
	return err
}

func (s *RatingStore) CreateRewardGrants(ctx context.Context, tx *sqlx.Tx, grants []bracket.RewardGrant) error {
	if len(grants) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO reward_grants (id, tournament_id, participant_id, user_id, placement, points, payout, granted_at)
        VALUES (:id, :tournament_id, :participant_id, :user_id, :placement, :points, :payout, :granted_at)`, grants)
	return err
}

func (s *RatingStore) GetRatingRecords(ctx context.Context, tournamentID uuid.UUID) ([]bracket.RatingRecord, error) {
	return getRatingRecords(ctx, s.db, tournamentID)
}

func (s *RatingStore) GetRatingRecordsTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.RatingRecord, error) {
	return getRatingRecords(ctx, tx, tournamentID)
}

func getRatingRecords(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.RatingRecord, error) {
	var records []bracket.RatingRecord
	err := sqlx.SelectContext(ctx, q, &records, "SELECT * FROM rating_records WHERE tournament_id = ? ORDER BY placement ASC", tournamentID)
	return records, err
}

func (s *RatingStore) GetRewardGrants(ctx context.Context, tournamentID uuid.UUID) ([]bracket.RewardGrant, error) {
	var grants []bracket.RewardGrant
	err := s.db.SelectContext(ctx, &grants, "SELECT * FROM reward_grants WHERE tournament_id = ? ORDER BY placement ASC", tournamentID)
	return grants, err
}

// GetRatingHistory returns a user's records, newest first.
func (s *RatingStore) GetRatingHistory(ctx context.Context, userID uuid.UUID) ([]bracket.RatingRecord, error) {
	var records []bracket.RatingRecord
	err := s.db.SelectContext(ctx, &records, "SELECT * FROM rating_records WHERE user_id = ? ORDER BY applied_at DESC", userID)
	return records, err
}

// LatestRatingsTx returns the most recent rating of each user that has one.
func (s *RatingStore) LatestRatingsTx(ctx context.Context, tx *sqlx.Tx, userIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	ratings := make(map[uuid.UUID]int, len(userIDs))
	if len(userIDs) == 0 {
		return ratings, nil
	}

	query, args, err := sqlx.In(`SELECT user_id, rating_after FROM rating_records
        WHERE user_id IN (?) ORDER BY applied_at ASC, rowid ASC`, userIDs)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		UserID      uuid.UUID `db:"user_id"`
		RatingAfter int       `db:"rating_after"`
	}
	if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, r := range rows {
		ratings[r.UserID] = r.RatingAfter
	}
	return ratings, nil
}

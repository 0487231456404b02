package bracket

import (
	"time"

	"github.com/google/uuid"
)

// RatingRecord is written once per participant when a tournament settles and
// is never updated afterwards.
type RatingRecord struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TournamentID  uuid.UUID `db:"tournament_id" json:"tournament_id"`
	ParticipantID uuid.UUID `db:"participant_id" json:"participant_id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	Placement     int       `db:"placement" json:"placement"`
	RatingBefore  int       `db:"rating_before" json:"rating_before"`
	RatingAfter   int       `db:"rating_after" json:"rating_after"`
	Delta         int       `db:"delta" json:"delta"`
	RankCode      string    `db:"rank_code" json:"rank_code"`
	AppliedAt     time.Time `db:"applied_at" json:"applied_at"`
}

type RewardGrant struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TournamentID  uuid.UUID `db:"tournament_id" json:"tournament_id"`
	ParticipantID uuid.UUID `db:"participant_id" json:"participant_id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	Placement     int       `db:"placement" json:"placement"`
	Points        int       `db:"points" json:"points"`
	Payout        int64     `db:"payout" json:"payout"`
	GrantedAt     time.Time `db:"granted_at" json:"granted_at"`
}

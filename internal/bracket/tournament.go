package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentDraft      TournamentStatus = "draft"
	TournamentOpen       TournamentStatus = "open"
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentCompleted  TournamentStatus = "completed"
	TournamentCancelled  TournamentStatus = "cancelled"
)

var statusOrder = map[TournamentStatus]int{
	TournamentDraft:      0,
	TournamentOpen:       1,
	TournamentInProgress: 2,
	TournamentCompleted:  3,
}

// CanTransition reports whether a tournament may move from s to next.
// Statuses only move forward one step at a time; cancellation is allowed
// from anything that has not completed yet.
func (s TournamentStatus) CanTransition(next TournamentStatus) bool {
	if s == TournamentCancelled || s == TournamentCompleted {
		return false
	}
	if next == TournamentCancelled {
		return true
	}
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	to, ok := statusOrder[next]
	return ok && to == from+1
}

type Tournament struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	OwnerID         uuid.UUID        `db:"owner_id" json:"owner_id"`
	Name            string           `db:"name" json:"name"`
	Format          Format           `db:"format" json:"format"`
	MaxParticipants int              `db:"max_participants" json:"max_participants"`
	EntryFee        int64            `db:"entry_fee" json:"entry_fee"`
	Status          TournamentStatus `db:"status" json:"status"`
	CompletedAt     *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	SettledAt       *time.Time       `db:"settled_at" json:"settled_at,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

func (t *Tournament) IsSettled() bool {
	return t.SettledAt != nil
}

package bracket

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type Participant struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	TournamentID  uuid.UUID     `db:"tournament_id" json:"tournament_id"`
	UserID        uuid.UUID     `db:"user_id" json:"user_id"`
	DisplayName   string        `db:"display_name" json:"display_name"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	Seed          *int          `db:"seed" json:"seed,omitempty"`
	RegisteredAt  time.Time     `db:"registered_at" json:"registered_at"`
}

// Eligible reports whether the participant may be placed in a bracket for a
// tournament charging entryFee.
func (p *Participant) Eligible(entryFee int64) bool {
	switch p.PaymentStatus {
	case PaymentConfirmed:
		return true
	case PaymentPending:
		return entryFee == 0
	default:
		return false
	}
}

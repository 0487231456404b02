package rating

import (
	"math"

	"github.com/google/uuid"
)

type Reward struct {
	ParticipantID uuid.UUID
	Placement     int
	Points        int
	Payout        int64
}

// Rewards hands out points by placement and splits the prize pool by the
// payout percentages. Whatever is left after the table, from rounding or from
// places nobody filled, goes to first place.
func Rewards(fr FormatRules, standings []Standing, pool int64) []Reward {
	out := make([]Reward, len(standings))
	var paid int64
	for i, s := range standings {
		points, ok := fr.Points[s.Placement]
		if !ok {
			points = fr.DefaultPoints
		}
		var payout int64
		if pct, ok := fr.Payouts[s.Placement]; ok && pool > 0 {
			payout = int64(math.Floor(float64(pool) * pct / 100))
		}
		paid += payout
		out[i] = Reward{ParticipantID: s.ParticipantID, Placement: s.Placement, Points: points, Payout: payout}
	}

	if len(out) > 0 && len(fr.Payouts) > 0 && pool > 0 {
		out[0].Payout += pool - paid
	}
	return out
}

package rating

import (
	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
)

type Input struct {
	Format       bracket.Format
	Participants []bracket.Participant
	Matches      []bracket.Match
	// Before holds each participant's rating going into the tournament.
	// Missing entries start at the initial rating.
	Before    map[uuid.UUID]int
	PrizePool int64
}

type Result struct {
	Standing
	RatingBefore int
	RatingAfter  int
	Delta        int
	RankCode     string
	Points       int
	Payout       int64
}

// Compute works out placements, rating changes and rewards for a finished
// bracket. It has no side effects.
func (r *Rules) Compute(in Input) ([]Result, error) {
	standings, err := Standings(in.Participants, in.Matches)
	if err != nil {
		return nil, err
	}

	fr := r.For(in.Format)
	before := make(map[uuid.UUID]int, len(standings))
	order := make([]uuid.UUID, len(standings))
	for i, s := range standings {
		rating, ok := in.Before[s.ParticipantID]
		if !ok {
			rating = r.InitialRating
		}
		before[s.ParticipantID] = rating
		order[i] = s.ParticipantID
	}

	var after map[uuid.UUID]int
	switch fr.RatingMode {
	case ModePerMatch:
		after = PerMatch(before, in.Matches, fr.KFactor)
	default:
		after = Placement(before, order, fr.KFactor)
	}

	rewards := Rewards(fr, standings, in.PrizePool)
	results := make([]Result, len(standings))
	for i, s := range standings {
		b, a := before[s.ParticipantID], after[s.ParticipantID]
		results[i] = Result{
			Standing:     s,
			RatingBefore: b,
			RatingAfter:  a,
			Delta:        a - b,
			RankCode:     r.RankCode(a),
			Points:       rewards[i].Points,
			Payout:       rewards[i].Payout,
		}
	}
	return results, nil
}

package rating

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/longsangsabo2025/sabo-arena/internal/utils"
)

type Standing struct {
	ParticipantID uuid.UUID
	UserID        uuid.UUID
	Placement     int
	Seed          int
	// Stage and EliminatedAt describe the match that ended the run. Both are
	// zero for the champion.
	Stage        int
	EliminatedAt *time.Time
}

// Standings orders the seeded participants of a finished bracket: champion
// first, then by how deep they got, then by who went out later, then by seed.
func Standings(participants []bracket.Participant, matches []bracket.Match) ([]Standing, error) {
	var champion *uuid.UUID
	eliminated := make(map[uuid.UUID]*bracket.Match)
	for i := range matches {
		m := &matches[i]
		if m.IsTerminal() {
			if !m.IsDecided() {
				return nil, bracket.Conflictf("final match %s has not been decided", m.Code)
			}
			champion = m.WinnerID()
		}
		if !m.IsDecided() || m.LoserNextMatchID != nil {
			continue
		}
		if loser := m.LoserID(); loser != nil {
			eliminated[*loser] = m
		}
	}
	if champion == nil {
		return nil, bracket.Conflictf("bracket has no champion")
	}

	standings := make([]Standing, 0, len(participants))
	for _, p := range participants {
		if p.Seed == nil {
			continue
		}
		s := Standing{ParticipantID: p.ID, UserID: p.UserID, Seed: *p.Seed}
		if p.ID != *champion {
			m, ok := eliminated[p.ID]
			if !ok {
				return nil, bracket.Conflictf("participant %s was never eliminated", p.DisplayName)
			}
			s.Stage = m.Stage
			s.EliminatedAt = m.CompletedAt
		}
		standings = append(standings, s)
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.ParticipantID == *champion || b.ParticipantID == *champion {
			return a.ParticipantID == *champion
		}
		if a.Stage != b.Stage {
			return a.Stage > b.Stage
		}
		at, bt := utils.OrZero(a.EliminatedAt), utils.OrZero(b.EliminatedAt)
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return a.Seed < b.Seed
	})
	for i := range standings {
		standings[i].Placement = i + 1
	}
	return standings, nil
}

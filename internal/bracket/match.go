package bracket

import (
	"time"

	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/utils"
)

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchReady      MatchStatus = "ready"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchWalkover   MatchStatus = "walkover"
)

type BracketSide string

const (
	WinnersSide BracketSide = "winners"
	LosersSide  BracketSide = "losers"
	FinalsSide  BracketSide = "finals"
)

type Match struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	Code         string    `db:"code" json:"code"`

	// Position in the tournament for reconstructing the view
	BracketSide BracketSide `db:"bracket_side" json:"bracket_side"`
	Group       string      `db:"bracket_group" json:"group,omitempty"`
	RoundNumber int         `db:"round_number" json:"round_number"`
	MatchOrder  int         `db:"match_order" json:"match_order"`
	Stage       int         `db:"stage" json:"stage"`

	Participant1ID *uuid.UUID `db:"participant_1_id" json:"participant_1_id,omitempty"`
	Participant2ID *uuid.UUID `db:"participant_2_id" json:"participant_2_id,omitempty"`
	Slot1Bye       bool       `db:"slot_1_bye" json:"slot_1_bye"`
	Slot2Bye       bool       `db:"slot_2_bye" json:"slot_2_bye"`

	Score1 *int        `db:"score_1" json:"score_1,omitempty"`
	Score2 *int        `db:"score_2" json:"score_2,omitempty"`
	Status MatchStatus `db:"status" json:"status"`

	WinnerSlot *int `db:"winner_slot" json:"winner_slot,omitempty"`
	IsBye      bool `db:"is_bye" json:"is_bye"`

	WinnerNextMatchID *uuid.UUID `db:"winner_next_match_id" json:"winner_next_match_id,omitempty"`
	WinnerNextSlot    *int       `db:"winner_next_slot" json:"winner_next_slot,omitempty"`

	LoserNextMatchID *uuid.UUID `db:"loser_next_match_id" json:"loser_next_match_id,omitempty"`
	LoserNextSlot    *int       `db:"loser_next_slot" json:"loser_next_slot,omitempty"`

	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Entrant is whatever occupies a match slot: a participant or a bye.
type Entrant struct {
	ParticipantID *uuid.UUID
	Bye           bool
}

func (e Entrant) Empty() bool {
	return e.ParticipantID == nil && !e.Bye
}

func (m *Match) IsDecided() bool {
	return m.Status == MatchCompleted || m.Status == MatchWalkover
}

// IsTerminal reports whether the match feeds nothing further.
func (m *Match) IsTerminal() bool {
	return m.WinnerNextMatchID == nil
}

func (m *Match) IsWinner(slot int) bool {
	return m.IsDecided() && utils.Is(m.WinnerSlot, slot)
}

func (m *Match) IsLoser(slot int) bool {
	return m.IsDecided() && m.WinnerSlot != nil && *m.WinnerSlot != slot
}

func (m *Match) Entrant(slot int) Entrant {
	if slot == 1 {
		return Entrant{ParticipantID: m.Participant1ID, Bye: m.Slot1Bye}
	}
	return Entrant{ParticipantID: m.Participant2ID, Bye: m.Slot2Bye}
}

func (m *Match) SlotFilled(slot int) bool {
	return !m.Entrant(slot).Empty()
}

func (m *Match) setEntrant(slot int, e Entrant) {
	var id *uuid.UUID
	if e.ParticipantID != nil {
		v := *e.ParticipantID
		id = &v
	}
	if slot == 1 {
		m.Participant1ID = id
		m.Slot1Bye = e.Bye
		return
	}
	m.Participant2ID = id
	m.Slot2Bye = e.Bye
}

// WinnerID returns the winning participant, or nil for undecided and
// double-bye matches.
func (m *Match) WinnerID() *uuid.UUID {
	if !m.IsDecided() || m.WinnerSlot == nil {
		return nil
	}
	return m.Entrant(*m.WinnerSlot).ParticipantID
}

func (m *Match) LoserID() *uuid.UUID {
	if !m.IsDecided() || m.WinnerSlot == nil {
		return nil
	}
	return m.Entrant(otherSlot(*m.WinnerSlot)).ParticipantID
}

// HasParticipant reports whether id occupies either slot.
func (m *Match) HasParticipant(id uuid.UUID) bool {
	return utils.Is(m.Participant1ID, id) || utils.Is(m.Participant2ID, id)
}

func otherSlot(slot int) int {
	if slot == 1 {
		return 2
	}
	return 1
}

// winnerByScore applies the comparison rule: the strictly higher score wins.
func winnerByScore(score1, score2 int) (int, error) {
	if score1 < 0 || score2 < 0 {
		return 0, Validationf("scores must not be negative (got %d-%d)", score1, score2)
	}
	if score1 == score2 {
		return 0, Validationf("tied score %d-%d is not a valid result", score1, score2)
	}
	if score1 > score2 {
		return 1, nil
	}
	return 2, nil
}

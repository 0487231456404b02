package bracket

import (
	"time"

	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/utils"
)

type EventKind string

const (
	EventMatchReady     EventKind = "match.ready"
	EventMatchCompleted EventKind = "match.completed"
)

// Event is a snapshot of a match taken when it became ready or was decided.
type Event struct {
	Kind  EventKind
	Match Match
}

// Change pairs a modified match with the status it had when loaded, which the
// store uses as its compare-and-set guard.
type Change struct {
	Match      Match
	PrevStatus MatchStatus
}

// Arena holds one tournament's matches in memory and applies results to
// them. It is the only code that moves entrants between matches. An Arena is
// not safe for concurrent use; callers serialise per tournament.
type Arena struct {
	order   []*Match
	byID    map[uuid.UUID]*Match
	prev    map[uuid.UUID]MatchStatus
	touched []uuid.UUID
	events  []Event
}

func NewArena(matches []Match) *Arena {
	a := &Arena{
		order: make([]*Match, 0, len(matches)),
		byID:  make(map[uuid.UUID]*Match, len(matches)),
		prev:  make(map[uuid.UUID]MatchStatus),
	}
	for i := range matches {
		m := matches[i]
		a.order = append(a.order, &m)
		a.byID[m.ID] = &m
	}
	return a
}

func (a *Arena) Match(id uuid.UUID) (Match, bool) {
	m, ok := a.byID[id]
	if !ok {
		return Match{}, false
	}
	return *m, true
}

// Matches returns a copy of every match in load order.
func (a *Arena) Matches() []Match {
	out := make([]Match, 0, len(a.order))
	for _, m := range a.order {
		out = append(out, *m)
	}
	return out
}

func (a *Arena) Changes() []Change {
	out := make([]Change, 0, len(a.touched))
	for _, id := range a.touched {
		out = append(out, Change{Match: *a.byID[id], PrevStatus: a.prev[id]})
	}
	return out
}

func (a *Arena) Events() []Event {
	return append([]Event(nil), a.events...)
}

// Decided reports whether every terminal match has a result.
func (a *Arena) Decided() bool {
	found := false
	for _, m := range a.order {
		if !m.IsTerminal() {
			continue
		}
		found = true
		if !m.IsDecided() {
			return false
		}
	}
	return found
}

// Champion is the winner of the terminal match once the bracket is decided.
func (a *Arena) Champion() *uuid.UUID {
	for _, m := range a.order {
		if m.IsTerminal() {
			return m.WinnerID()
		}
	}
	return nil
}

func (a *Arena) lookup(id uuid.UUID) (*Match, error) {
	m, ok := a.byID[id]
	if !ok {
		return nil, Validationf("match %s is not part of this bracket", id)
	}
	return m, nil
}

func (a *Arena) touch(m *Match) {
	if _, seen := a.prev[m.ID]; seen {
		return
	}
	a.prev[m.ID] = m.Status
	a.touched = append(a.touched, m.ID)
}

func (a *Arena) emit(kind EventKind, m *Match) {
	a.events = append(a.events, Event{Kind: kind, Match: *m})
}

func (a *Arena) Start(id uuid.UUID) error {
	m, err := a.lookup(id)
	if err != nil {
		return err
	}
	if m.Status != MatchReady {
		return Conflictf("match %s is %s, only ready matches can start", m.Code, m.Status)
	}
	a.touch(m)
	m.Status = MatchInProgress
	return nil
}

func playable(m *Match) error {
	if m.Status != MatchReady && m.Status != MatchInProgress {
		return Conflictf("match %s is %s and cannot take a result", m.Code, m.Status)
	}
	return nil
}

// Submit records a final score. The higher score wins; a tie leaves the
// match untouched.
func (a *Arena) Submit(id uuid.UUID, score1, score2 int, at time.Time) error {
	m, err := a.lookup(id)
	if err != nil {
		return err
	}
	if err := playable(m); err != nil {
		return err
	}
	slot, err := winnerByScore(score1, score2)
	if err != nil {
		return err
	}
	a.touch(m)
	m.Score1 = &score1
	m.Score2 = &score2
	return a.complete(m, slot, MatchCompleted, at)
}

func (a *Arena) Walkover(id uuid.UUID, winnerSlot int, at time.Time) error {
	if winnerSlot != 1 && winnerSlot != 2 {
		return Validationf("winner slot must be 1 or 2, got %d", winnerSlot)
	}
	m, err := a.lookup(id)
	if err != nil {
		return err
	}
	if err := playable(m); err != nil {
		return err
	}
	a.touch(m)
	return a.complete(m, winnerSlot, MatchWalkover, at)
}

// Correct replaces the score of a decided match. When the winner flips, both
// entrants are swapped in the matches they were sent to, which is only
// possible while those matches have not been played. A destination decided
// by a bye has not been played: the entrant is swapped there and along
// wherever that bye forwarded it.
func (a *Arena) Correct(id uuid.UUID, score1, score2 int) error {
	m, err := a.lookup(id)
	if err != nil {
		return err
	}
	if !m.IsDecided() {
		return Conflictf("match %s is %s, only decided matches can be corrected", m.Code, m.Status)
	}
	if m.IsBye {
		return Conflictf("match %s was decided by a bye", m.Code)
	}
	slot, err := winnerByScore(score1, score2)
	if err != nil {
		return err
	}

	if slot != *m.WinnerSlot {
		type route struct {
			path    []hop
			entrant Entrant
		}
		var routes []route
		sends := []struct {
			id      *uuid.UUID
			slot    *int
			entrant Entrant
		}{
			{m.WinnerNextMatchID, m.WinnerNextSlot, m.Entrant(slot)},
			{m.LoserNextMatchID, m.LoserNextSlot, m.Entrant(otherSlot(slot))},
		}
		for _, s := range sends {
			if s.id == nil {
				continue
			}
			path, err := a.forwardPath(m, *s.id, *s.slot)
			if err != nil {
				return err
			}
			routes = append(routes, route{path: path, entrant: s.entrant})
		}

		for _, r := range routes {
			for _, h := range r.path {
				a.touch(h.match)
				h.match.setEntrant(h.slot, r.entrant)
			}
			if last := r.path[len(r.path)-1].match; last.Status == MatchReady {
				a.emit(EventMatchReady, last)
			}
		}
	}

	a.touch(m)
	m.Score1 = &score1
	m.Score2 = &score2
	m.WinnerSlot = &slot
	m.Status = MatchCompleted
	a.emit(EventMatchCompleted, m)
	return nil
}

type hop struct {
	match *Match
	slot  int
}

// forwardPath lists the slots an entrant placed at (id, slot) occupies: the
// slot itself plus, for each bye that passed the entrant on, the slot it was
// forwarded to. It fails when the entrant has already played from any of
// them, which leaves corrected an operator problem.
func (a *Arena) forwardPath(corrected *Match, id uuid.UUID, slot int) ([]hop, error) {
	var path []hop
	for {
		next, ok := a.byID[id]
		if !ok {
			return nil, Structuralf("destination match %s does not exist", id)
		}
		path = append(path, hop{match: next, slot: slot})

		if next.IsBye && next.IsDecided() {
			if !utils.Is(next.WinnerSlot, slot) || next.WinnerNextMatchID == nil {
				return nil, Structuralf("bye match %s did not forward slot %d", next.Code, slot)
			}
			id, slot = *next.WinnerNextMatchID, *next.WinnerNextSlot
			continue
		}
		if next.Status != MatchPending && next.Status != MatchReady {
			return nil, &CorrectionConflictError{
				MatchID: corrected.ID,
				Reason:  "downstream match " + next.Code + " is already " + string(next.Status),
			}
		}
		return path, nil
	}
}

// ResolveByes settles every match whose slots are both filled but which has
// not been looked at yet. Generation calls it once after seeding.
func (a *Arena) ResolveByes(at time.Time) error {
	for _, m := range a.order {
		if m.Status == MatchPending && m.SlotFilled(1) && m.SlotFilled(2) {
			if err := a.settle(m, at); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Arena) complete(m *Match, winnerSlot int, status MatchStatus, at time.Time) error {
	m.Status = status
	m.WinnerSlot = &winnerSlot
	m.CompletedAt = &at
	if !m.IsBye {
		a.emit(EventMatchCompleted, m)
	}

	winner, loser := m.Entrant(winnerSlot), m.Entrant(otherSlot(winnerSlot))
	if m.WinnerNextMatchID != nil {
		if err := a.place(*m.WinnerNextMatchID, *m.WinnerNextSlot, winner, at); err != nil {
			return err
		}
	}
	if m.LoserNextMatchID != nil {
		if err := a.place(*m.LoserNextMatchID, *m.LoserNextSlot, loser, at); err != nil {
			return err
		}
	}
	return nil
}

func (a *Arena) place(id uuid.UUID, slot int, e Entrant, at time.Time) error {
	next, ok := a.byID[id]
	if !ok {
		return Structuralf("destination match %s does not exist", id)
	}
	if next.SlotFilled(slot) {
		return Structuralf("slot %d of %s is already filled", slot, next.Code)
	}
	a.touch(next)
	next.setEntrant(slot, e)
	return a.settle(next, at)
}

// settle promotes a pending match once both slots are known. A match with a
// bye on either side is decided on the spot and its result forwarded.
func (a *Arena) settle(m *Match, at time.Time) error {
	if m.Status != MatchPending || !m.SlotFilled(1) || !m.SlotFilled(2) {
		return nil
	}
	a.touch(m)
	switch {
	case m.Slot1Bye && m.Slot2Bye:
		m.IsBye = true
		return a.complete(m, 1, MatchCompleted, at)
	case m.Slot2Bye:
		m.IsBye = true
		return a.complete(m, 1, MatchCompleted, at)
	case m.Slot1Bye:
		m.IsBye = true
		return a.complete(m, 2, MatchCompleted, at)
	}
	m.Status = MatchReady
	a.emit(EventMatchReady, m)
	return nil
}

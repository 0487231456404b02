package bracket

import (
	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/utils"
)

type slotRef struct {
	match uuid.UUID
	slot  int
}

// Validate checks the graph invariants every bracket must satisfy before it
// is stored. Slots are judged as they are before any bye is resolved: each
// one is either seeded or fed by exactly one edge.
func Validate(matches []Match, format Format) error {
	byID := make(map[uuid.UUID]*Match, len(matches))
	codes := make(map[string]bool, len(matches))
	for i := range matches {
		m := &matches[i]
		if _, dup := byID[m.ID]; dup {
			return Structuralf("duplicate match id %s", m.ID)
		}
		if codes[m.Code] {
			return Structuralf("duplicate match code %s", m.Code)
		}
		byID[m.ID] = m
		codes[m.Code] = true
	}

	incoming := make(map[slotRef]string)
	edge := func(from *Match, next *uuid.UUID, slot *int, kind string) error {
		if next == nil {
			if slot != nil {
				return Structuralf("%s has a %s slot but no %s destination", from.Code, kind, kind)
			}
			return nil
		}
		if _, ok := byID[*next]; !ok {
			return Structuralf("%s %s destination %s does not exist", from.Code, kind, *next)
		}
		if slot == nil || (*slot != 1 && *slot != 2) {
			return Structuralf("%s has an invalid %s slot", from.Code, kind)
		}
		ref := slotRef{match: *next, slot: *slot}
		if prev, taken := incoming[ref]; taken {
			return Structuralf("%s and %s both feed slot %d of %s", prev, from.Code, *slot, byID[*next].Code)
		}
		incoming[ref] = from.Code
		return nil
	}

	terminals := 0
	for i := range matches {
		m := &matches[i]
		if err := edge(m, m.WinnerNextMatchID, m.WinnerNextSlot, "winner"); err != nil {
			return err
		}
		if err := edge(m, m.LoserNextMatchID, m.LoserNextSlot, "loser"); err != nil {
			return err
		}
		if utils.Same(m.WinnerNextMatchID, m.LoserNextMatchID) {
			return Structuralf("%s sends winner and loser to the same match", m.Code)
		}
		if m.IsTerminal() {
			terminals++
		}
		if format.IsDouble() && m.BracketSide == WinnersSide && m.LoserNextMatchID == nil {
			return Structuralf("winners side match %s has no loser destination", m.Code)
		}
	}
	if terminals != 1 {
		return Structuralf("bracket has %d terminal matches, want 1", terminals)
	}

	seeded := make(map[uuid.UUID]string)
	for i := range matches {
		m := &matches[i]
		for slot := 1; slot <= 2; slot++ {
			_, fed := incoming[slotRef{match: m.ID, slot: slot}]
			filled := m.SlotFilled(slot)
			switch {
			case fed && filled:
				return Structuralf("slot %d of %s is both seeded and fed", slot, m.Code)
			case !fed && !filled:
				return Structuralf("slot %d of %s is never filled", slot, m.Code)
			}
			if id := m.Entrant(slot).ParticipantID; id != nil {
				if where, dup := seeded[*id]; dup {
					return Structuralf("participant %s seeded in both %s and %s", *id, where, m.Code)
				}
				seeded[*id] = m.Code
			}
		}
		if utils.Same(m.Participant1ID, m.Participant2ID) {
			return Structuralf("participant %s faces themselves in %s", *m.Participant1ID, m.Code)
		}
	}

	_, err := topoOrder(matches)
	return err
}

// topoOrder returns match indexes so every match comes after all matches
// that feed it. It fails on a cycle.
func topoOrder(matches []Match) ([]int, error) {
	index := make(map[uuid.UUID]int, len(matches))
	for i := range matches {
		index[matches[i].ID] = i
	}

	indegree := make([]int, len(matches))
	for i := range matches {
		for _, next := range []*uuid.UUID{matches[i].WinnerNextMatchID, matches[i].LoserNextMatchID} {
			if next == nil {
				continue
			}
			j, ok := index[*next]
			if !ok {
				return nil, Structuralf("%s points at unknown match %s", matches[i].Code, *next)
			}
			indegree[j]++
		}
	}

	queue := make([]int, 0, len(matches))
	for i, d := range indegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	order := make([]int, 0, len(matches))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		for _, next := range []*uuid.UUID{matches[i].WinnerNextMatchID, matches[i].LoserNextMatchID} {
			if next == nil {
				continue
			}
			j := index[*next]
			indegree[j]--
			if indegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	if len(order) != len(matches) {
		return nil, Structuralf("bracket contains a cycle")
	}
	return order, nil
}

package rating

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
)

func expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/400))
}

// PerMatch applies ELO updates one match at a time in completion order, so
// later matches see the ratings earlier ones produced. Byes and walkovers do
// not count.
func PerMatch(before map[uuid.UUID]int, matches []bracket.Match, k float64) map[uuid.UUID]int {
	current := make(map[uuid.UUID]float64, len(before))
	for id, r := range before {
		current[id] = float64(r)
	}

	played := make([]bracket.Match, 0, len(matches))
	for _, m := range matches {
		if m.Status == bracket.MatchCompleted && !m.IsBye && m.WinnerID() != nil && m.LoserID() != nil {
			played = append(played, m)
		}
	}
	sort.SliceStable(played, func(i, j int) bool {
		a, b := played[i], played[j]
		if !a.CompletedAt.Equal(*b.CompletedAt) {
			return a.CompletedAt.Before(*b.CompletedAt)
		}
		if a.Stage != b.Stage {
			return a.Stage < b.Stage
		}
		return a.Code < b.Code
	})

	for _, m := range played {
		w, l := *m.WinnerID(), *m.LoserID()
		rw, rl := current[w], current[l]
		current[w] = rw + k*(1-expected(rw, rl))
		current[l] = rl + k*(0-expected(rl, rw))
	}

	after := make(map[uuid.UUID]int, len(current))
	for id, r := range current {
		after[id] = int(math.Round(r))
	}
	return after
}

// Placement treats the final order as a round robin where everyone beat
// everyone placed below them. All comparisons use the ratings from before
// the tournament, and k is spread over the n-1 opponents.
func Placement(before map[uuid.UUID]int, order []uuid.UUID, k float64) map[uuid.UUID]int {
	n := len(order)
	after := make(map[uuid.UUID]int, n)
	if n < 2 {
		for _, id := range order {
			after[id] = before[id]
		}
		return after
	}

	scaled := k / float64(n-1)
	for i, a := range order {
		ra := float64(before[a])
		delta := 0.0
		for j, b := range order {
			if i == j {
				continue
			}
			score := 0.0
			if i < j {
				score = 1
			}
			delta += scaled * (score - expected(ra, float64(before[b])))
		}
		after[a] = int(math.Round(ra + delta))
	}
	return after
}

package views

import (
	"sort"

	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
)

type Round struct {
	Number  int
	Matches []bracket.Match
}

// Section is one column group on the bracket page, e.g. the losers bracket
// of group B.
type Section struct {
	Title  string
	Side   bracket.BracketSide
	Group  string
	Rounds []Round
}

type BracketData struct {
	Sections       []Section
	ParticipantMap map[uuid.UUID]bracket.Participant
}

var sideOrder = map[bracket.BracketSide]int{
	bracket.WinnersSide: 0,
	bracket.LosersSide:  1,
	bracket.FinalsSide:  2,
}

var sideTitles = map[bracket.BracketSide]string{
	bracket.WinnersSide: "Winners Bracket",
	bracket.LosersSide:  "Losers Bracket",
	bracket.FinalsSide:  "Finals",
}

func PrepareBracketData(participants []bracket.Participant, matches []bracket.Match) BracketData {
	participantMap := make(map[uuid.UUID]bracket.Participant, len(participants))
	for _, p := range participants {
		participantMap[p.ID] = p
	}

	type key struct {
		group string
		side  bracket.BracketSide
	}
	rounds := make(map[key]map[int][]bracket.Match)
	var keys []key

	for _, m := range matches {
		k := key{group: m.Group, side: m.BracketSide}
		if _, exists := rounds[k]; !exists {
			rounds[k] = make(map[int][]bracket.Match)
			keys = append(keys, k)
		}
		rounds[k][m.RoundNumber] = append(rounds[k][m.RoundNumber], m)
	}

	// Finals come after every group; within a group winners precede losers.
	sort.Slice(keys, func(i, j int) bool {
		fi, fj := keys[i].side == bracket.FinalsSide, keys[j].side == bracket.FinalsSide
		if fi != fj {
			return fj
		}
		if keys[i].group != keys[j].group {
			return keys[i].group < keys[j].group
		}
		return sideOrder[keys[i].side] < sideOrder[keys[j].side]
	})

	sections := make([]Section, 0, len(keys))
	for _, k := range keys {
		title := sideTitles[k.side]
		if k.group != "" {
			title += " " + k.group
		}
		sections = append(sections, Section{
			Title:  title,
			Side:   k.side,
			Group:  k.group,
			Rounds: sortRounds(rounds[k]),
		})
	}

	return BracketData{Sections: sections, ParticipantMap: participantMap}
}

func sortRounds(byNumber map[int][]bracket.Match) []Round {
	roundNums := make([]int, 0, len(byNumber))
	for n := range byNumber {
		roundNums = append(roundNums, n)
	}
	sort.Ints(roundNums)

	rounds := make([]Round, 0, len(roundNums))
	for _, n := range roundNums {
		ms := byNumber[n]
		sort.Slice(ms, func(i, j int) bool {
			return ms[i].MatchOrder < ms[j].MatchOrder
		})
		rounds = append(rounds, Round{Number: n, Matches: ms})
	}
	return rounds
}

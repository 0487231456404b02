package bracket

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/google/uuid"
)

// wiring lays out every match of a format and connects their edges. It
// returns the codes of the first round matches in seeding order.
type wiring func(b *builder, slots int) []string

var wirings = map[Format]wiring{
	SingleElimination: wireSingle,
	DoubleElim16:      wireDouble,
	DoubleElim24:      wireCrossFinals,
	DoubleElim32:      wireCrossFinals,
}

// Generate builds the full match graph for participants, who must already be
// ordered by seed. Byes are resolved before it returns, so the result is the
// exact state to persist.
func Generate(tournamentID uuid.UUID, participants []Participant, format Format, at time.Time) ([]Match, error) {
	wire, ok := wirings[format]
	if !ok {
		return nil, Validationf("unknown format %q", format)
	}

	n := len(participants)
	if size := format.RequiredSize(); size > 0 && n != size {
		return nil, Validationf("format %s needs exactly %d participants, got %d", format, size, n)
	}
	if n < 2 {
		return nil, Validationf("at least 2 participants are required, got %d", n)
	}

	seenIDs := make(map[uuid.UUID]bool, n)
	seenUsers := make(map[uuid.UUID]bool, n)
	for _, p := range participants {
		if seenIDs[p.ID] || seenUsers[p.UserID] {
			return nil, Validationf("participant %s is listed more than once", p.DisplayName)
		}
		seenIDs[p.ID] = true
		seenUsers[p.UserID] = true
	}

	slots := format.SlotCount(n)
	b := newBuilder(tournamentID, at)
	firstRound := wire(b, slots)

	pairs := generateRound1Pairs(slots)
	if len(pairs) != len(firstRound) {
		return nil, Structuralf("%s layout has %d opening matches for %d pairs", format, len(firstRound), len(pairs))
	}
	for i, pair := range pairs {
		m := b.get(firstRound[i])
		m.setEntrant(1, seatFor(participants, pair[0]))
		m.setEntrant(2, seatFor(participants, pair[1]))
	}

	if err := assignStages(b.matches); err != nil {
		return nil, err
	}
	if err := Validate(b.matches, format); err != nil {
		return nil, err
	}

	arena := NewArena(b.matches)
	if err := arena.ResolveByes(at); err != nil {
		return nil, err
	}
	return arena.Matches(), nil
}

func seatFor(participants []Participant, seedIndex int) Entrant {
	if seedIndex >= len(participants) {
		return Entrant{Bye: true}
	}
	id := participants[seedIndex].ID
	return Entrant{ParticipantID: &id}
}

// generateRound1Pairs returns seed index pairs for the opening round in
// bracket order: 1 v N, then each half recursively, so the top two seeds can
// only meet in the final.
func generateRound1Pairs(bracketSize int) [][2]int {
	if bracketSize == 0 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		pairs = append(pairs, [2]int{rounds[i], rounds[i+1]})
	}
	return pairs
}

// matchID is stable for a given tournament and code so regenerating the same
// input yields identical rows.
func matchID(tournamentID uuid.UUID, code string) uuid.UUID {
	return uuid.NewSHA1(tournamentID, []byte(code))
}

type builder struct {
	tournamentID uuid.UUID
	at           time.Time
	matches      []Match
	byCode       map[string]int
}

func newBuilder(tournamentID uuid.UUID, at time.Time) *builder {
	return &builder{tournamentID: tournamentID, at: at, byCode: make(map[string]int)}
}

func (b *builder) add(code string, side BracketSide, group string, round, order int) {
	b.byCode[code] = len(b.matches)
	b.matches = append(b.matches, Match{
		ID:           matchID(b.tournamentID, code),
		TournamentID: b.tournamentID,
		Code:         code,
		BracketSide:  side,
		Group:        group,
		RoundNumber:  round,
		MatchOrder:   order,
		Status:       MatchPending,
		CreatedAt:    b.at,
	})
}

// get must not be held across add, which may reallocate.
func (b *builder) get(code string) *Match {
	return &b.matches[b.byCode[code]]
}

func (b *builder) winnerTo(from, to string, slot int) {
	id := b.get(to).ID
	m := b.get(from)
	m.WinnerNextMatchID = &id
	m.WinnerNextSlot = &slot
}

func (b *builder) loserTo(from, to string, slot int) {
	id := b.get(to).ID
	m := b.get(from)
	m.LoserNextMatchID = &id
	m.LoserNextSlot = &slot
}

func wbCode(group string, round, order int) string {
	return fmt.Sprintf("%sW%d.%d", group, round, order)
}

func lbCode(group string, round, order int) string {
	return fmt.Sprintf("%sL%d.%d", group, round, order)
}

// feedSlot maps the nth match of a round onto a slot of the next one.
func feedSlot(order int) int {
	return 2 - order%2
}

func log2(n int) int {
	return bits.Len(uint(n)) - 1
}

// addWinnersBracket lays out a plain knockout tree and returns its first
// round and the code of its final.
func addWinnersBracket(b *builder, group string, slots int) ([]string, string) {
	rounds := log2(slots)
	for r := 1; r <= rounds; r++ {
		for m := 1; m <= slots>>r; m++ {
			b.add(wbCode(group, r, m), WinnersSide, group, r, m)
		}
	}
	for r := 1; r < rounds; r++ {
		for m := 1; m <= slots>>r; m++ {
			b.winnerTo(wbCode(group, r, m), wbCode(group, r+1, (m+1)/2), feedSlot(m))
		}
	}

	first := make([]string, 0, slots/2)
	for m := 1; m <= slots/2; m++ {
		first = append(first, wbCode(group, 1, m))
	}
	return first, wbCode(group, rounds, 1)
}

func wireSingle(b *builder, slots int) []string {
	first, _ := addWinnersBracket(b, "", slots)
	return first
}

// addDoubleGroup lays out a winners bracket plus its losers bracket. The
// losers bracket opens by pairing first round losers, then alternates a
// drop-in round (survivors meet the next batch of winners side losers) with
// a reduction round. Drop-ins are mirrored on odd rounds so players who met
// early do not meet again straight away. The last losers round takes the
// winners final loser.
func addDoubleGroup(b *builder, group string, slots int) (first []string, wbFinal, lbFinal string) {
	first, wbFinal = addWinnersBracket(b, group, slots)
	k := log2(slots)

	lbRounds := 2 * (k - 1)
	lbCount := func(r int) int {
		if r == 1 {
			return slots / 4
		}
		i := r / 2
		if r%2 == 0 {
			return slots >> (i + 1)
		}
		return slots >> (i + 2)
	}
	for r := 1; r <= lbRounds; r++ {
		for m := 1; m <= lbCount(r); m++ {
			b.add(lbCode(group, r, m), LosersSide, group, r, m)
		}
	}

	for m := 1; m <= slots/2; m++ {
		b.loserTo(wbCode(group, 1, m), lbCode(group, 1, (m+1)/2), feedSlot(m))
	}

	for i := 1; i <= k-1; i++ {
		dropIn := 2 * i
		count := lbCount(dropIn)
		for j := 1; j <= count; j++ {
			b.winnerTo(lbCode(group, dropIn-1, j), lbCode(group, dropIn, j), 1)
		}
		for m := 1; m <= count; m++ {
			target := m
			if i%2 == 1 {
				target = count + 1 - m
			}
			b.loserTo(wbCode(group, i+1, m), lbCode(group, dropIn, target), 2)
		}
		if dropIn < lbRounds {
			for j := 1; j <= count; j++ {
				b.winnerTo(lbCode(group, dropIn, j), lbCode(group, dropIn+1, (j+1)/2), feedSlot(j))
			}
		}
	}

	return first, wbFinal, lbCode(group, lbRounds, 1)
}

func wireDouble(b *builder, slots int) []string {
	first, wbFinal, lbFinal := addDoubleGroup(b, "", slots)
	b.add("GF", FinalsSide, "", 1, 1)
	b.winnerTo(wbFinal, "GF", 1)
	b.winnerTo(lbFinal, "GF", 2)
	return first
}

// wireCrossFinals splits the field into two double elimination groups and
// joins them: the winners side champions meet in WF, the losers side
// champions meet in LX, the WF loser gets a second life against the LX
// winner in LF, and GF decides the title between WF and LF winners.
func wireCrossFinals(b *builder, slots int) []string {
	firstA, wbA, lbA := addDoubleGroup(b, "A", slots/2)
	firstB, wbB, lbB := addDoubleGroup(b, "B", slots/2)

	b.add("WF", FinalsSide, "", 1, 1)
	b.add("LX", FinalsSide, "", 1, 2)
	b.add("LF", FinalsSide, "", 2, 1)
	b.add("GF", FinalsSide, "", 3, 1)

	b.winnerTo(wbA, "WF", 1)
	b.winnerTo(wbB, "WF", 2)
	b.winnerTo(lbA, "LX", 1)
	b.winnerTo(lbB, "LX", 2)
	b.winnerTo("LX", "LF", 1)
	b.loserTo("WF", "LF", 2)
	b.winnerTo("WF", "GF", 1)
	b.winnerTo("LF", "GF", 2)

	return append(firstA, firstB...)
}

// assignStages sets each match's stage to its longest path distance from an
// opening match, counting from 1.
func assignStages(matches []Match) error {
	order, err := topoOrder(matches)
	if err != nil {
		return err
	}
	index := make(map[uuid.UUID]int, len(matches))
	for i := range matches {
		index[matches[i].ID] = i
		matches[i].Stage = 1
	}
	for _, i := range order {
		m := &matches[i]
		for _, next := range []*uuid.UUID{m.WinnerNextMatchID, m.LoserNextMatchID} {
			if next == nil {
				continue
			}
			d := &matches[index[*next]]
			if d.Stage < m.Stage+1 {
				d.Stage = m.Stage + 1
			}
		}
	}
	return nil
}

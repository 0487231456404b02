package bracket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArena(t *testing.T, format Format, n int) (*Arena, []Participant) {
	t.Helper()
	tournamentID := uuid.New()
	participants := makeParticipants(tournamentID, n)
	matches, err := Generate(tournamentID, participants, format, testNow)
	require.NoError(t, err)
	return NewArena(matches), participants
}

func findByCode(t *testing.T, a *Arena, code string) Match {
	t.Helper()
	for _, m := range a.Matches() {
		if m.Code == code {
			return m
		}
	}
	t.Fatalf("no match with code %s", code)
	return Match{}
}

// playOut submits a 3-1 result for slot 1 in every ready match until none
// remain and returns how many were played.
func playOut(t *testing.T, a *Arena) int {
	t.Helper()
	played := 0
	for {
		progressed := false
		for _, m := range a.Matches() {
			if m.Status != MatchReady {
				continue
			}
			require.NoError(t, a.Submit(m.ID, 3, 1, testNow))
			played++
			progressed = true
		}
		if !progressed {
			return played
		}
	}
}

// eliminations counts, per participant, the losses that ended their run.
func eliminations(a *Arena) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for _, m := range a.Matches() {
		if m.LoserNextMatchID != nil {
			continue
		}
		if id := m.LoserID(); id != nil {
			out[*id]++
		}
	}
	return out
}

func TestArenaPlaysEveryFormatToCompletion(t *testing.T) {
	testCases := []struct {
		name         string
		format       Format
		participants int
		played       int
	}{
		{name: "SE with 5", format: SingleElimination, participants: 5, played: 4},
		{name: "SE with 16", format: SingleElimination, participants: 16, played: 15},
		{name: "DE16", format: DoubleElim16, participants: 16, played: 30},
		{name: "DE24", format: DoubleElim24, participants: 24, played: 46},
		{name: "DE32", format: DoubleElim32, participants: 32, played: 62},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, participants := newTestArena(t, tc.format, tc.participants)
			assert.False(t, a.Decided())

			assert.Equal(t, tc.played, playOut(t, a))
			assert.True(t, a.Decided())

			champion := a.Champion()
			require.NotNil(t, champion)
			assert.Equal(t, participants[0].ID, *champion)

			out := eliminations(a)
			assert.Len(t, out, tc.participants-1)
			assert.NotContains(t, out, *champion)
			for id, n := range out {
				assert.Equal(t, 1, n, "participant %s eliminated %d times", id, n)
			}
		})
	}
}

func TestArenaSubmitScore(t *testing.T) {
	a, participants := newTestArena(t, SingleElimination, 4)
	first := findByCode(t, a, "W1.1")
	final := findByCode(t, a, "W2.1")

	t.Run("Tie is rejected", func(t *testing.T) {
		err := a.Submit(first.ID, 2, 2, testNow)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Equal(t, MatchReady, findByCode(t, a, "W1.1").Status)
		assert.Empty(t, a.Changes())
	})

	t.Run("Negative score is rejected", func(t *testing.T) {
		err := a.Submit(first.ID, -1, 2, testNow)
		assert.True(t, IsValidation(err))
	})

	t.Run("Pending match cannot take a result", func(t *testing.T) {
		err := a.Submit(final.ID, 2, 1, testNow)
		assert.True(t, IsStateConflict(err))
	})

	t.Run("Unknown match", func(t *testing.T) {
		err := a.Submit(uuid.New(), 2, 1, testNow)
		assert.True(t, IsValidation(err))
	})

	t.Run("Lower slot wins on score", func(t *testing.T) {
		require.NoError(t, a.Submit(first.ID, 1, 4, testNow))

		got := findByCode(t, a, "W1.1")
		assert.Equal(t, MatchCompleted, got.Status)
		assert.Equal(t, 2, *got.WinnerSlot)
		assert.Equal(t, participants[3].ID, *got.WinnerID())

		next := findByCode(t, a, "W2.1")
		assert.Equal(t, participants[3].ID, *next.Participant1ID)
		assert.Equal(t, MatchPending, next.Status)

		changes := a.Changes()
		require.Len(t, changes, 2)
		assert.Equal(t, MatchReady, changes[0].PrevStatus)
		assert.Equal(t, MatchPending, changes[1].PrevStatus)

		events := a.Events()
		require.Len(t, events, 1)
		assert.Equal(t, EventMatchCompleted, events[0].Kind)
	})

	t.Run("Decided match cannot be resubmitted", func(t *testing.T) {
		err := a.Submit(first.ID, 4, 1, testNow)
		assert.True(t, IsStateConflict(err))
	})

	t.Run("Next match becomes ready", func(t *testing.T) {
		second := findByCode(t, a, "W1.2")
		require.NoError(t, a.Submit(second.ID, 5, 0, testNow))
		assert.Equal(t, MatchReady, findByCode(t, a, "W2.1").Status)

		events := a.Events()
		assert.Equal(t, EventMatchReady, events[len(events)-1].Kind)
		assert.False(t, a.Decided())
	})
}

func TestArenaStartAndWalkover(t *testing.T) {
	a, participants := newTestArena(t, SingleElimination, 4)
	m := findByCode(t, a, "W1.1")

	require.NoError(t, a.Start(m.ID))
	assert.Equal(t, MatchInProgress, findByCode(t, a, "W1.1").Status)

	err := a.Start(m.ID)
	assert.True(t, IsStateConflict(err))

	assert.True(t, IsValidation(a.Walkover(m.ID, 3, testNow)))

	require.NoError(t, a.Walkover(m.ID, 2, testNow))
	got := findByCode(t, a, "W1.1")
	assert.Equal(t, MatchWalkover, got.Status)
	assert.Nil(t, got.Score1)
	assert.Equal(t, participants[3].ID, *got.WinnerID())
	assert.Equal(t, participants[3].ID, *findByCode(t, a, "W2.1").Participant1ID)
}

func TestArenaCorrect(t *testing.T) {
	t.Run("Same winner only changes the score", func(t *testing.T) {
		a, _ := newTestArena(t, SingleElimination, 4)
		m := findByCode(t, a, "W1.1")
		require.NoError(t, a.Submit(m.ID, 3, 1, testNow))

		require.NoError(t, a.Correct(m.ID, 3, 2))
		got := findByCode(t, a, "W1.1")
		assert.Equal(t, 2, *got.Score2)
		assert.Equal(t, 1, *got.WinnerSlot)
	})

	t.Run("Flipped winner is swapped downstream", func(t *testing.T) {
		a, participants := newTestArena(t, DoubleElim16, 16)
		m := findByCode(t, a, "W1.1")
		require.NoError(t, a.Submit(m.ID, 3, 1, testNow))

		require.NoError(t, a.Correct(m.ID, 1, 3))

		got := findByCode(t, a, "W1.1")
		assert.Equal(t, 2, *got.WinnerSlot)
		assert.Equal(t, participants[15].ID, *findByCode(t, a, "W2.1").Participant1ID)
		assert.Equal(t, participants[0].ID, *findByCode(t, a, "L1.1").Participant1ID)
	})

	t.Run("Played downstream match blocks a flip", func(t *testing.T) {
		a, _ := newTestArena(t, SingleElimination, 4)
		m1 := findByCode(t, a, "W1.1")
		m2 := findByCode(t, a, "W1.2")
		require.NoError(t, a.Submit(m1.ID, 3, 1, testNow))
		require.NoError(t, a.Submit(m2.ID, 3, 1, testNow))
		require.NoError(t, a.Start(findByCode(t, a, "W2.1").ID))

		err := a.Correct(m1.ID, 0, 3)
		require.Error(t, err)
		assert.True(t, IsCorrectionConflict(err))

		assert.NoError(t, a.Correct(m1.ID, 4, 1))
	})

	t.Run("Undecided and bye matches cannot be corrected", func(t *testing.T) {
		a, _ := newTestArena(t, SingleElimination, 3)
		assert.True(t, IsStateConflict(a.Correct(findByCode(t, a, "W1.1").ID, 1, 0)))
		assert.True(t, IsStateConflict(a.Correct(findByCode(t, a, "W1.2").ID, 1, 0)))
	})
}

func TestArenaCorrectThroughLosersBye(t *testing.T) {
	a, _ := newTestArena(t, DoubleElim24, 24)
	opening := findByCode(t, a, "AW1.2")
	require.Equal(t, MatchReady, opening.Status)
	first, second := *opening.Participant1ID, *opening.Participant2ID

	require.NoError(t, a.Submit(opening.ID, 3, 1, testNow))

	dropped := a.byID[*opening.LoserNextMatchID]
	require.True(t, dropped.IsBye, "%s should be decided by a bye", dropped.Code)
	require.Equal(t, MatchCompleted, dropped.Status)
	forwarded := a.byID[*dropped.WinnerNextMatchID]
	require.True(t, forwarded.HasParticipant(second))
	advanced := a.byID[*opening.WinnerNextMatchID]
	require.True(t, advanced.HasParticipant(first))

	t.Run("Flip moves both entrants through the bye", func(t *testing.T) {
		require.NoError(t, a.Correct(opening.ID, 1, 3))

		assert.True(t, advanced.HasParticipant(second))
		assert.False(t, advanced.HasParticipant(first))

		assert.True(t, dropped.HasParticipant(first))
		assert.Equal(t, MatchCompleted, dropped.Status)
		assert.Equal(t, first, *dropped.WinnerID())

		assert.True(t, forwarded.HasParticipant(first))
		assert.False(t, forwarded.HasParticipant(second))

		changed := make(map[uuid.UUID]bool)
		for _, c := range a.Changes() {
			changed[c.Match.ID] = true
		}
		assert.True(t, changed[dropped.ID])
		assert.True(t, changed[forwarded.ID])
	})

	t.Run("Played winners match still blocks a flip", func(t *testing.T) {
		require.Equal(t, MatchReady, advanced.Status)
		require.NoError(t, a.Submit(advanced.ID, 3, 0, testNow))

		err := a.Correct(opening.ID, 3, 1)
		var conflict *CorrectionConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, opening.ID, conflict.MatchID)
		assert.True(t, forwarded.HasParticipant(first), "a rejected correction moves nobody")
	})
}

func TestArenaRejectsFilledSlot(t *testing.T) {
	a, _ := newTestArena(t, SingleElimination, 4)
	m := findByCode(t, a, "W1.1")
	final := a.byID[findByCode(t, a, "W2.1").ID]
	intruder := uuid.New()
	final.Participant1ID = &intruder

	err := a.Submit(m.ID, 3, 1, testNow)
	require.Error(t, err)
	assert.True(t, IsStructural(err))
}

func TestArenaDoubleByeForwardsByes(t *testing.T) {
	tournamentID := uuid.New()
	b := newBuilder(tournamentID, testNow)
	first, _ := addWinnersBracket(b, "", 4)
	p := uuid.New()
	b.get(first[0]).setEntrant(1, Entrant{Bye: true})
	b.get(first[0]).setEntrant(2, Entrant{Bye: true})
	b.get(first[1]).setEntrant(1, Entrant{ParticipantID: &p})
	b.get(first[1]).setEntrant(2, Entrant{Bye: true})

	a := NewArena(b.matches)
	require.NoError(t, a.ResolveByes(testNow))

	final := findByCode(t, a, "W2.1")
	assert.True(t, final.IsBye)
	assert.Equal(t, MatchCompleted, final.Status)
	assert.Equal(t, p, *final.WinnerID())
	assert.True(t, a.Decided())
	assert.Empty(t, a.Events())
}

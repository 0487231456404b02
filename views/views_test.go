package views

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/longsangsabo2025/sabo-arena/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeParticipants(tournamentID uuid.UUID, n int) []bracket.Participant {
	participants := make([]bracket.Participant, n)
	for i := range participants {
		seed := i + 1
		participants[i] = bracket.Participant{
			ID:            uuid.New(),
			TournamentID:  tournamentID,
			UserID:        uuid.New(),
			DisplayName:   fmt.Sprintf("Player %d", seed),
			PaymentStatus: bracket.PaymentConfirmed,
			Seed:          &seed,
		}
	}
	return participants
}

func TestPrepareBracketData(t *testing.T) {
	testCases := []struct {
		format bracket.Format
		n      int
		titles []string
	}{
		{format: bracket.SingleElimination, n: 5, titles: []string{"Winners Bracket"}},
		{format: bracket.DoubleElim16, n: 16, titles: []string{"Winners Bracket", "Losers Bracket", "Finals"}},
		{format: bracket.DoubleElim32, n: 32, titles: []string{"Winners Bracket A", "Losers Bracket A", "Winners Bracket B", "Losers Bracket B", "Finals"}},
	}

	for _, tc := range testCases {
		t.Run(string(tc.format), func(t *testing.T) {
			tournamentID := uuid.New()
			participants := makeParticipants(tournamentID, tc.n)
			matches, err := bracket.Generate(tournamentID, participants, tc.format, time.Now())
			require.NoError(t, err)

			data := PrepareBracketData(participants, matches)
			var titles []string
			total := 0
			for _, s := range data.Sections {
				titles = append(titles, s.Title)
				for i, r := range s.Rounds {
					if i > 0 {
						assert.Greater(t, r.Number, s.Rounds[i-1].Number)
					}
					for j := 1; j < len(r.Matches); j++ {
						assert.Less(t, r.Matches[j-1].MatchOrder, r.Matches[j].MatchOrder)
					}
					total += len(r.Matches)
				}
			}
			assert.Equal(t, tc.titles, titles)
			assert.Equal(t, len(matches), total)
			assert.Len(t, data.ParticipantMap, tc.n)
		})
	}
}

func TestTournamentViewRenders(t *testing.T) {
	tournamentID := uuid.New()
	participants := makeParticipants(tournamentID, 5)
	participants[0].DisplayName = "<script>alert(1)</script>"
	matches, err := bracket.Generate(tournamentID, participants, bracket.SingleElimination, time.Now())
	require.NoError(t, err)

	data := &service.TournamentData{
		Tournament:   &bracket.Tournament{ID: tournamentID, Name: "Friday Nine-Ball", Format: bracket.SingleElimination, Status: bracket.TournamentInProgress},
		Participants: participants,
		Matches:      matches,
	}

	var buf bytes.Buffer
	require.NoError(t, TournamentView(data).Render(context.Background(), &buf))
	html := buf.String()

	assert.Contains(t, html, "Friday Nine-Ball")
	assert.Contains(t, html, "BYE")
	assert.Contains(t, html, "(2) Player 2")
	assert.NotContains(t, html, "<script>alert(1)</script>")
}

func TestLoginPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, LoginPage([]string{"discord"}, false).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), `href="/auth/discord"`)
	assert.NotContains(t, buf.String(), "/auth/guest")
}

func TestResultsViewRenders(t *testing.T) {
	tournamentID := uuid.New()
	first, second := uuid.New(), uuid.New()
	results := &service.TournamentResults{
		Tournament: &bracket.Tournament{ID: tournamentID, Name: "Sunday <b>Open</b>"},
		Records: []bracket.RatingRecord{
			{ID: uuid.New(), ParticipantID: first, Placement: 1, RatingBefore: 1000, RatingAfter: 1075, Delta: 75, RankCode: "H"},
			{ID: uuid.New(), ParticipantID: second, Placement: 2, RatingBefore: 1000, RatingAfter: 1050, Delta: 50, RankCode: "I"},
		},
		Grants: []bracket.RewardGrant{
			{ID: uuid.New(), ParticipantID: first, Placement: 1, Points: 1000, Payout: 70000},
		},
		Names: map[uuid.UUID]string{first: "Alice", second: "Bob"},
	}

	var buf bytes.Buffer
	require.NoError(t, ResultsView(results).Render(context.Background(), &buf))
	html := buf.String()

	assert.Contains(t, html, "<td>Alice</td><td>1000</td><td>1075</td><td>75</td><td>H</td>")
	assert.Contains(t, html, "<td>Bob</td>")
	assert.Contains(t, html, "<td>70000 VND</td>")
	assert.Contains(t, html, `href="/api/tournaments/`+tournamentID.String()+`/results.xlsx"`)
	assert.Contains(t, html, "Sunday &lt;b&gt;Open&lt;/b&gt;")
	assert.NotContains(t, html, "<b>Open</b>")
}

func TestLoginPageWithGuest(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, LoginPage([]string{`"><x`}, true).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), `action="/auth/guest"`)
	assert.NotContains(t, buf.String(), `"><x`)
}

func TestIndexEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Index(nil).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "No tournaments yet.")
}

package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/longsangsabo2025/sabo-arena/internal/service"
)

// html collects markup for a page and keeps the first write error.
type html struct {
	w   io.Writer
	err error
}

// raw writes trusted markup as is.
func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// text writes a value as escaped text or attribute content.
func (h *html) text(v any) {
	h.raw(templ.EscapeString(fmt.Sprint(v)))
}

func (h *html) href(url string) {
	h.raw(` href="`)
	h.text(string(templ.URL(url)))
	h.raw(`"`)
}

func layout(title string, content func(h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
		h.text(title)
		h.raw(`</title><link rel="stylesheet" href="/static/style.css"></head><body><main>`)
		content(h)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

func LoginPage(providers []string, allowGuest bool) templ.Component {
	return layout("Sign in · SABO Arena", func(h *html) {
		h.raw(`<h1>Sign in</h1>`)
		for _, p := range providers {
			h.raw(`<p><a`)
			h.href("/auth/" + p)
			h.raw(`>Continue with `)
			h.text(p)
			h.raw(`</a></p>`)
		}
		if allowGuest {
			h.raw(`<form method="post" action="/auth/guest"><button type="submit">Continue as operator</button></form>`)
		}
	})
}

func Index(tournaments []bracket.Tournament) templ.Component {
	return layout("SABO Arena", func(h *html) {
		h.raw(`<h1>Your tournaments</h1>`)
		if len(tournaments) == 0 {
			h.raw(`<p>No tournaments yet.</p>`)
		}
		h.raw(`<ul>`)
		for _, t := range tournaments {
			h.raw(`<li><a`)
			h.href("/tournaments/" + t.ID.String())
			h.raw(`>`)
			h.text(t.Name)
			h.raw(`</a> · `)
			h.text(t.Format)
			h.raw(` · `)
			h.text(t.Status)
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)
	})
}

func TournamentView(data *service.TournamentData) templ.Component {
	t := data.Tournament
	b := PrepareBracketData(data.Participants, data.Matches)
	return layout(t.Name+" · SABO Arena", func(h *html) {
		h.raw(`<h1>`)
		h.text(t.Name)
		h.raw(`</h1><p>`)
		h.text(t.Format)
		h.raw(` · `)
		h.text(t.Status)
		h.raw(` · entry `)
		h.text(FormatMoney(t.EntryFee))
		h.raw(`</p>`)
		if data.ChampionID != nil {
			h.raw(`<p class="champion">Champion: `)
			h.text(b.ParticipantMap[*data.ChampionID].DisplayName)
			h.raw(`</p>`)
		}
		for _, s := range b.Sections {
			h.raw(`<section class="bracket `)
			h.text(s.Side)
			h.raw(`"><h2>`)
			h.text(s.Title)
			h.raw(`</h2>`)
			for _, r := range s.Rounds {
				h.raw(`<div class="round"><h3>Round `)
				h.text(r.Number)
				h.raw(`</h3>`)
				for _, m := range r.Matches {
					matchCell(h, m, b.ParticipantMap)
				}
				h.raw(`</div>`)
			}
			h.raw(`</section>`)
		}
		if t.IsSettled() {
			h.raw(`<p><a`)
			h.href("/tournaments/" + t.ID.String() + "/results")
			h.raw(`>Results</a></p>`)
		}
	})
}

func matchCell(h *html, m bracket.Match, participants map[uuid.UUID]bracket.Participant) {
	h.raw(`<div class="match `)
	h.text(m.Status)
	h.raw(`" id="match-`)
	h.text(m.ID)
	h.raw(`"><span class="code">`)
	h.text(m.Code)
	h.raw(`</span>`)
	slotRow(h, m, 1, m.Score1, participants)
	slotRow(h, m, 2, m.Score2, participants)
	h.raw(`</div>`)
}

func slotRow(h *html, m bracket.Match, slot int, score *int, participants map[uuid.UUID]bracket.Participant) {
	h.raw(`<div class="slot`)
	if m.IsWinner(slot) {
		h.raw(` winner`)
	}
	h.raw(`">`)
	h.text(SlotLabel(m, slot, participants))
	h.raw(` <b>`)
	h.text(ScoreLabel(score))
	h.raw(`</b></div>`)
}

func ResultsView(results *service.TournamentResults) templ.Component {
	t := results.Tournament
	return layout("Results · "+t.Name, func(h *html) {
		h.raw(`<h1>`)
		h.text(t.Name)
		h.raw(` results</h1><table><thead><tr><th>#</th><th>Player</th><th>Before</th><th>After</th><th>Delta</th><th>Rank</th></tr></thead><tbody>`)
		for _, r := range results.Records {
			h.raw(`<tr>`)
			for _, cell := range []any{r.Placement, results.Names[r.ParticipantID], r.RatingBefore, r.RatingAfter, r.Delta, r.RankCode} {
				h.raw(`<td>`)
				h.text(cell)
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table><h2>Rewards</h2><table><thead><tr><th>#</th><th>Player</th><th>Points</th><th>Payout</th></tr></thead><tbody>`)
		for _, g := range results.Grants {
			h.raw(`<tr>`)
			for _, cell := range []any{g.Placement, results.Names[g.ParticipantID], g.Points, FormatMoney(g.Payout)} {
				h.raw(`<td>`)
				h.text(cell)
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table><p><a`)
		h.href("/api/tournaments/" + t.ID.String() + "/results.xlsx")
		h.raw(`>Download workbook</a></p>`)
	})
}

package views

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/longsangsabo2025/sabo-arena/internal/middleware"
	users "github.com/longsangsabo2025/sabo-arena/internal/user"
)

func GetUser(ctx context.Context) *users.User {
	return middleware.GetAuthenticatedUser(ctx)
}

// SlotLabel is what a bracket cell shows for one side of a match.
func SlotLabel(m bracket.Match, slot int, participants map[uuid.UUID]bracket.Participant) string {
	e := m.Entrant(slot)
	switch {
	case e.Bye:
		return "BYE"
	case e.ParticipantID == nil:
		return "TBD"
	}
	p, ok := participants[*e.ParticipantID]
	if !ok {
		return "Unknown"
	}
	if p.Seed != nil {
		return fmt.Sprintf("(%d) %s", *p.Seed, p.DisplayName)
	}
	return p.DisplayName
}

func ScoreLabel(score *int) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprint(*score)
}

func FormatMoney(amount int64) string {
	return fmt.Sprintf("%d VND", amount)
}

package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
)

type RosterResult struct {
	Registered []bracket.Participant `json:"registered"`
	// Skipped holds the lines that were not registered, each with the reason.
	Skipped []string `json:"skipped"`
}

// ImportRoster registers one participant per line of "user_id,display name".
// Blank lines are ignored and bad lines are reported rather than failing the
// whole import. State conflicts such as a closed or full tournament stop it.
func (s *TournamentService) ImportRoster(ctx context.Context, tournamentID uuid.UUID, roster string) (*RosterResult, error) {
	result := &RosterResult{}
	for _, line := range strings.Split(roster, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		input, err := parseRosterLine(line)
		if err != nil {
			result.Skipped = append(result.Skipped, line+": "+err.Error())
			continue
		}

		p, err := s.RegisterParticipant(ctx, tournamentID, input)
		switch {
		case err == nil:
			result.Registered = append(result.Registered, *p)
		case bracket.IsStateConflict(err) && strings.Contains(err.Error(), "already registered"):
			result.Skipped = append(result.Skipped, line+": already registered")
		default:
			return result, err
		}
	}
	return result, nil
}

func parseRosterLine(line string) (RegisterInput, error) {
	idPart, name, ok := strings.Cut(line, ",")
	if !ok {
		return RegisterInput{}, bracket.Validationf("expected user_id,display name")
	}
	userID, err := uuid.Parse(strings.TrimSpace(idPart))
	if err != nil {
		return RegisterInput{}, bracket.Validationf("invalid user id")
	}
	return RegisterInput{UserID: userID, DisplayName: strings.TrimSpace(name)}, nil
}

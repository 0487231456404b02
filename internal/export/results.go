package export

import (
	"fmt"
	"io"

	"github.com/longsangsabo2025/sabo-arena/internal/service"
	"github.com/xuri/excelize/v2"
)

const (
	StandingsSheet = "Standings"
	RewardsSheet   = "Rewards"
)

var (
	standingsHeader = []any{"Placement", "Player", "Rating Before", "Rating After", "Delta", "Rank"}
	rewardsHeader   = []any{"Placement", "Player", "Points", "Payout"}
)

// WriteResults renders a settled tournament as an xlsx workbook with one
// sheet for rating changes and one for rewards.
func WriteResults(w io.Writer, results *service.TournamentResults) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), StandingsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(RewardsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	standings := [][]any{standingsHeader}
	for _, r := range results.Records {
		standings = append(standings, []any{r.Placement, results.Names[r.ParticipantID], r.RatingBefore, r.RatingAfter, r.Delta, r.RankCode})
	}
	if err := writeRows(f, StandingsSheet, standings); err != nil {
		return err
	}

	rewards := [][]any{rewardsHeader}
	for _, g := range results.Grants {
		rewards = append(rewards, []any{g.Placement, results.Names[g.ParticipantID], g.Points, g.Payout})
	}
	if err := writeRows(f, RewardsSheet, rewards); err != nil {
		return err
	}

	if err := f.SetDocProps(&excelize.DocProperties{Title: results.Tournament.Name}); err != nil {
		return fmt.Errorf("set properties: %w", err)
	}
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for idx, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, idx+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, idx+1, err)
		}
	}
	return nil
}

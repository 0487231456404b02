package rating

import (
	"fmt"
	"sort"

	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
)

type Mode string

const (
	// ModePerMatch replays every played match in completion order.
	ModePerMatch Mode = "per_match"
	// ModePlacement compares final placements pairwise.
	ModePlacement Mode = "placement"
)

type RankBand struct {
	Code      string `yaml:"code"`
	MinRating int    `yaml:"min_rating"`
}

type FormatRules struct {
	RatingMode    Mode            `yaml:"rating_mode"`
	KFactor       float64         `yaml:"k_factor"`
	Points        map[int]int     `yaml:"points"`
	DefaultPoints int             `yaml:"default_points"`
	Payouts       map[int]float64 `yaml:"payouts"`
}

type Rules struct {
	InitialRating int                            `yaml:"initial_rating"`
	Formats       map[bracket.Format]FormatRules `yaml:"formats"`
	Ranks         []RankBand                     `yaml:"ranks"`
}

var defaultRanks = []RankBand{
	{Code: "K", MinRating: 1000},
	{Code: "I", MinRating: 1100},
	{Code: "H", MinRating: 1200},
	{Code: "H+", MinRating: 1300},
	{Code: "G", MinRating: 1400},
	{Code: "G+", MinRating: 1500},
	{Code: "F", MinRating: 1600},
	{Code: "E", MinRating: 1700},
	{Code: "D", MinRating: 1800},
	{Code: "C", MinRating: 1900},
}

func defaultFormatRules(format bracket.Format) FormatRules {
	fr := FormatRules{
		RatingMode:    ModePlacement,
		KFactor:       32,
		Points:        map[int]int{1: 1000, 2: 700, 3: 500, 4: 400},
		DefaultPoints: 100,
		Payouts:       map[int]float64{1: 50, 2: 30, 3: 20},
	}
	if format.IsDouble() {
		fr.RatingMode = ModePerMatch
		fr.KFactor = 24
		fr.Points = map[int]int{1: 1500, 2: 1000, 3: 700, 4: 500}
		fr.DefaultPoints = 200
		fr.Payouts = map[int]float64{1: 40, 2: 25, 3: 15, 4: 10, 5: 5, 6: 5}
	}
	return fr
}

// DefaultRules returns the built-in rating and reward rules for every format.
func DefaultRules() *Rules {
	r := &Rules{
		InitialRating: 1000,
		Formats:       make(map[bracket.Format]FormatRules),
		Ranks:         append([]RankBand(nil), defaultRanks...),
	}
	for _, f := range bracket.Formats() {
		r.Formats[f] = defaultFormatRules(f)
	}
	return r
}

// Fill replaces zero values left by a partial rules file with the defaults.
func (r *Rules) Fill() {
	if r.InitialRating == 0 {
		r.InitialRating = 1000
	}
	if len(r.Ranks) == 0 {
		r.Ranks = append([]RankBand(nil), defaultRanks...)
	}
	if r.Formats == nil {
		r.Formats = make(map[bracket.Format]FormatRules)
	}
	for _, f := range bracket.Formats() {
		fr, def := r.Formats[f], defaultFormatRules(f)
		if fr.RatingMode == "" {
			fr.RatingMode = def.RatingMode
		}
		if fr.KFactor == 0 {
			fr.KFactor = def.KFactor
		}
		if fr.Points == nil {
			fr.Points = def.Points
		}
		if fr.DefaultPoints == 0 {
			fr.DefaultPoints = def.DefaultPoints
		}
		if fr.Payouts == nil {
			fr.Payouts = def.Payouts
		}
		r.Formats[f] = fr
	}
	sort.Slice(r.Ranks, func(i, j int) bool { return r.Ranks[i].MinRating < r.Ranks[j].MinRating })
}

func (r *Rules) Validate() error {
	for f, fr := range r.Formats {
		if !f.Valid() {
			return fmt.Errorf("rules for unknown format %q", f)
		}
		if fr.RatingMode != ModePerMatch && fr.RatingMode != ModePlacement {
			return fmt.Errorf("format %s: unknown rating mode %q", f, fr.RatingMode)
		}
		if fr.KFactor <= 0 {
			return fmt.Errorf("format %s: k_factor must be positive", f)
		}
		total := 0.0
		for place, pct := range fr.Payouts {
			if place < 1 || pct < 0 {
				return fmt.Errorf("format %s: invalid payout %v for place %d", f, pct, place)
			}
			total += pct
		}
		if total > 100 {
			return fmt.Errorf("format %s: payouts add up to %.1f%%", f, total)
		}
	}
	return nil
}

func (r *Rules) For(format bracket.Format) FormatRules {
	if fr, ok := r.Formats[format]; ok {
		return fr
	}
	return defaultFormatRules(format)
}

// RankCode maps a rating onto its band. Ratings below the lowest band get
// the lowest code.
func (r *Rules) RankCode(rating int) string {
	if len(r.Ranks) == 0 {
		return ""
	}
	code := r.Ranks[0].Code
	for _, band := range r.Ranks {
		if rating >= band.MinRating {
			code = band.Code
		}
	}
	return code
}

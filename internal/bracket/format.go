package bracket

import "strings"

type Format string

const (
	SingleElimination Format = "SE"
	DoubleElim16      Format = "DE16"
	DoubleElim24      Format = "DE24"
	DoubleElim32      Format = "DE32"
)

var knownFormats = []Format{SingleElimination, DoubleElim16, DoubleElim24, DoubleElim32}

func Formats() []Format {
	out := make([]Format, len(knownFormats))
	copy(out, knownFormats)
	return out
}

// ParseFormat accepts the canonical codes case-insensitively along with a few
// long-form aliases used by older clients.
func ParseFormat(s string) (Format, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SE", "SINGLE", "SINGLE_ELIMINATION":
		return SingleElimination, nil
	case "DE16", "SABO_DE16":
		return DoubleElim16, nil
	case "DE24", "SABO_DE24":
		return DoubleElim24, nil
	case "DE32", "SABO_DE32":
		return DoubleElim32, nil
	}
	return "", Validationf("unknown format %q", s)
}

func (f Format) Valid() bool {
	for _, k := range knownFormats {
		if f == k {
			return true
		}
	}
	return false
}

func (f Format) IsDouble() bool {
	return f == DoubleElim16 || f == DoubleElim24 || f == DoubleElim32
}

// RequiredSize is the exact participant count a fixed-size format needs.
// Zero means any count of two or more.
func (f Format) RequiredSize() int {
	switch f {
	case DoubleElim16:
		return 16
	case DoubleElim24:
		return 24
	case DoubleElim32:
		return 32
	}
	return 0
}

// SlotCount is the number of first round seeding positions for n entrants.
func (f Format) SlotCount(n int) int {
	switch f {
	case DoubleElim16:
		return 16
	case DoubleElim24, DoubleElim32:
		return 32
	}
	return calcBracketSize(n)
}

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}
	size := 1
	for size < count {
		size <<= 1
	}
	return size
}

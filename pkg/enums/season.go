package enums

import "fmt"

// Season tags products for seasonal storefront theming.
type Season string

const (
	SeasonValentines Season = "San Valentín"
	SeasonMothersDay Season = "Día de las Madres"
	SeasonRegular    Season = "Temporada Regular"
)

// DefaultSeason applies when a product or the store has no season set.
const DefaultSeason = SeasonRegular

var validSeasons = []Season{
	SeasonValentines,
	SeasonMothersDay,
	SeasonRegular,
}

// Seasons returns the closed season set in display order.
func Seasons() []Season {
	out := make([]Season, len(validSeasons))
	copy(out, validSeasons)
	return out
}

// String implements fmt.Stringer.
func (s Season) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Season.
func (s Season) IsValid() bool {
	for _, candidate := range validSeasons {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSeason converts raw input into a Season.
func ParseSeason(value string) (Season, error) {
	for _, candidate := range validSeasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid season %q", value)
}

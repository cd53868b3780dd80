package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema is returned when no city summary has the required number of dates.
	// Aggregation cannot run without a shared column set.
	ErrSchema = errors.New("no city summary with the required number of dates")

	// ErrRating is returned when a report row pair cannot be scored.
	ErrRating = errors.New("invalid report row for rating")
)

// City is a forecast target. Name doubles as the record key in the store and
// the label in the report.
type City struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// Condition is a forecast weather-condition tag such as "clear" or "rain".
type Condition string

// Known condition tags. The source may send others; they are kept verbatim.
const (
	ConditionClear        Condition = "clear"
	ConditionPartlyCloudy Condition = "partly-cloudy"
	ConditionCloudy       Condition = "cloudy"
	ConditionOvercast     Condition = "overcast"
	ConditionDrizzle      Condition = "drizzle"
	ConditionLightRain    Condition = "light-rain"
	ConditionRain         Condition = "rain"
	ConditionSnow         Condition = "snow"
	ConditionThunderstorm Condition = "thunderstorm"
)

// ConditionSet is a set of condition tags counted as good weather.
type ConditionSet map[Condition]struct{}

// NewConditionSet builds a set from tags, lowercasing and trimming each one.
func NewConditionSet(tags ...string) ConditionSet {
	set := make(ConditionSet, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		set[Condition(tag)] = struct{}{}
	}
	return set
}

// Contains reports whether c is in the set.
func (s ConditionSet) Contains(c Condition) bool {
	_, ok := s[c]
	return ok
}

// DefaultSuitableConditions returns the conditions counted as good weather by default.
func DefaultSuitableConditions() ConditionSet {
	return NewConditionSet(
		string(ConditionClear),
		string(ConditionPartlyCloudy),
		string(ConditionCloudy),
		string(ConditionOvercast),
	)
}

// DaytimeWindow is the hour-of-day range [Start, End) used to filter samples.
type DaytimeWindow struct {
	Start int
	End   int
}

// Contains reports whether hour falls in [Start, End).
func (w DaytimeWindow) Contains(hour int) bool {
	return hour >= w.Start && hour < w.End
}

// Validate checks that the window is a non-empty range of hours of the day.
func (w DaytimeWindow) Validate() error {
	if w.Start < 0 || w.End > 24 || w.Start >= w.End {
		return fmt.Errorf("invalid daytime window [%d,%d)", w.Start, w.End)
	}
	return nil
}

// SummaryRules holds the parameters of the per-day reduction.
type SummaryRules struct {
	Window   DaytimeWindow
	Suitable ConditionSet
}

// DefaultSummaryRules returns the [9,19) window with the default suitable conditions.
func DefaultSummaryRules() SummaryRules {
	return SummaryRules{
		Window:   DaytimeWindow{Start: 9, End: 19},
		Suitable: DefaultSuitableConditions(),
	}
}

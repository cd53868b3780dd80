package domain

import (
	"math"
	"sort"
	"time"
)

// DaySummary is the daytime reduction of one calendar date. Nil fields mean the
// date had no in-window samples.
type DaySummary struct {
	Date          string   `json:"date"`
	TempAvg       *float64 `json:"temp_avg,omitempty"`
	SuitableHours *int     `json:"relevant_cond_hours,omitempty"`
}

// CitySummary holds one DaySummary per date, in chronological order.
type CitySummary struct {
	City        string       `json:"city"`
	Days        []DaySummary `json:"days"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Dates returns the summary's dates in order.
func (s CitySummary) Dates() []string {
	dates := make([]string, len(s.Days))
	for i, d := range s.Days {
		dates[i] = d.Date
	}
	return dates
}

// Summarize reduces forecast days to per-date daytime statistics. Samples of a
// date that appears more than once are merged, and the result is sorted by date.
func Summarize(city string, days []DayForecast, rules SummaryRules) CitySummary {
	byDate := make(map[string][]HourSample, len(days))
	order := make([]string, 0, len(days))
	for _, d := range days {
		if _, seen := byDate[d.Date]; !seen {
			order = append(order, d.Date)
		}
		byDate[d.Date] = append(byDate[d.Date], d.Hours...)
	}
	// YYYY-MM-DD sorts lexically.
	sort.Strings(order)

	summary := CitySummary{
		City:        city,
		Days:        make([]DaySummary, 0, len(order)),
		GeneratedAt: clock.Now().UTC(),
	}
	for _, date := range order {
		summary.Days = append(summary.Days, summarizeDay(date, byDate[date], rules))
	}
	return summary
}

func summarizeDay(date string, hours []HourSample, rules SummaryRules) DaySummary {
	var (
		sum      float64
		count    int
		suitable int
	)
	for _, h := range hours {
		if !rules.Window.Contains(h.Hour) {
			continue
		}
		sum += h.Temp
		count++
		if rules.Suitable.Contains(h.Condition) {
			suitable++
		}
	}

	day := DaySummary{Date: date}
	if count == 0 {
		return day
	}
	avg := round1(sum / float64(count))
	day.TempAvg = &avg
	day.SuitableHours = &suitable
	return day
}

// round1 rounds half away from zero to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayout is the calendar date format used by the source and the report.
const dateLayout = "2006-01-02"

// ErrEmptyForecast is returned for a payload that carries no forecast days.
var ErrEmptyForecast = errors.New("forecast has no days")

// HourSample is a single hourly forecast point.
type HourSample struct {
	Hour      int
	Temp      float64
	Condition Condition
}

// DayForecast groups the hourly samples of one calendar date.
type DayForecast struct {
	Date  string
	Hours []HourSample
}

// rawForecast mirrors the subset of the source document we read.
type rawForecast struct {
	Forecasts []rawDay `json:"forecasts"`
}

type rawDay struct {
	Date  string    `json:"date"`
	Hours []rawHour `json:"hours"`
}

type rawHour struct {
	Hour      flexInt  `json:"hour"`
	Temp      *float64 `json:"temp"`
	Condition string   `json:"condition"`
}

// flexInt decodes an hour sent either as a JSON number or as a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("invalid hour %q", string(b))
	}
	*f = flexInt(n)
	return nil
}

// ParseForecast decodes a raw forecast payload into per-date samples.
// Hours without a temperature are dropped. Dates must be YYYY-MM-DD.
func ParseForecast(raw []byte) ([]DayForecast, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyForecast
	}

	var doc rawForecast
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse forecast: %w", err)
	}
	if len(doc.Forecasts) == 0 {
		return nil, ErrEmptyForecast
	}

	days := make([]DayForecast, 0, len(doc.Forecasts))
	for _, d := range doc.Forecasts {
		if _, err := time.Parse(dateLayout, d.Date); err != nil {
			return nil, fmt.Errorf("parse forecast: invalid date %q", d.Date)
		}

		hours := make([]HourSample, 0, len(d.Hours))
		for _, h := range d.Hours {
			if h.Temp == nil {
				continue
			}
			hours = append(hours, HourSample{
				Hour:      int(h.Hour),
				Temp:      *h.Temp,
				Condition: Condition(strings.ToLower(strings.TrimSpace(h.Condition))),
			})
		}
		days = append(days, DayForecast{Date: d.Date, Hours: hours})
	}
	return days, nil
}

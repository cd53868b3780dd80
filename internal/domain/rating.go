package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MissingAveragePolicy decides how rating treats an empty or non-numeric average.
type MissingAveragePolicy string

const (
	// MissingAverageZero scores a missing average as 0.
	MissingAverageZero MissingAveragePolicy = "zero"
	// MissingAverageReject fails the rating with ErrRating.
	MissingAverageReject MissingAveragePolicy = "reject"
)

// ParseMissingAveragePolicy validates a policy name.
func ParseMissingAveragePolicy(s string) (MissingAveragePolicy, error) {
	switch p := MissingAveragePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MissingAverageZero, MissingAverageReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown missing-average policy %q", s)
	}
}

// CityRating is the score and rank of one city.
type CityRating struct {
	City         string    `json:"city"`
	AvgTemp      float64   `json:"avg_temp"`
	AvgGoodHours float64   `json:"avg_good_hours"`
	Score        float64   `json:"score"`
	Rank         int       `json:"rank"`
	RatedAt      time.Time `json:"rated_at"`

	// Row is the index of the city's first report row.
	Row int `json:"-"`
	// Defaulted is set when a missing average was scored as 0.
	Defaulted bool `json:"-"`
}

// ScorePairs reads report rows as (temperature, suitable-hours) pairs and scores
// each city. The result keeps report order and has no ranks yet.
func ScorePairs(rows []ReportRow, policy MissingAveragePolicy) ([]CityRating, error) {
	ratings := make([]CityRating, 0, (len(rows)+1)/2)
	now := clock.Now().UTC()

	for i := 0; i < len(rows); i += 2 {
		temp := rows[i]
		var hours ReportRow
		if i+1 < len(rows) {
			hours = rows[i+1]
		}

		city := temp[ColumnCity]
		if city == "" {
			return nil, fmt.Errorf("%w: row %d has no city", ErrRating, i)
		}

		r := CityRating{City: city, Row: i, RatedAt: now}
		var ok bool
		if r.AvgTemp, ok = parseAverage(temp); !ok {
			if policy != MissingAverageZero {
				return nil, fmt.Errorf("%w: city %s: temperature average %q", ErrRating, city, temp[ColumnAverage])
			}
			r.Defaulted = true
		}
		if r.AvgGoodHours, ok = parseAverage(hours); !ok {
			if policy != MissingAverageZero {
				return nil, fmt.Errorf("%w: city %s: suitable-hours average %q", ErrRating, city, hours[ColumnAverage])
			}
			r.Defaulted = true
		}
		r.Score = round1(r.AvgTemp + r.AvgGoodHours)
		ratings = append(ratings, r)
	}
	return ratings, nil
}

func parseAverage(row ReportRow) (float64, bool) {
	if row == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[ColumnAverage]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// RankCities orders ratings by descending score and assigns 1-based ranks.
// Ties keep their input order. The input slice is not modified.
func RankCities(ratings []CityRating) []CityRating {
	ranked := make([]CityRating, len(ratings))
	copy(ranked, ratings)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// ApplyRanks writes each rating's rank into the first row of its pair and
// clears the rank of the second row.
func ApplyRanks(rows []ReportRow, ranked []CityRating) {
	for _, r := range ranked {
		if r.Row < 0 || r.Row >= len(rows) {
			continue
		}
		rows[r.Row][ColumnRank] = strconv.Itoa(r.Rank)
		if r.Row+1 < len(rows) {
			rows[r.Row+1][ColumnRank] = ""
		}
	}
}

// TopN returns at most n leading entries of ranked.
func TopN(ranked []CityRating, n int) []CityRating {
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

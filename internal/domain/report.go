package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Fixed report columns.
const (
	ColumnCity    = "city"
	ColumnMetric  = "metric"
	ColumnAverage = "average"
	ColumnRank    = "rank"
)

// Metric labels of the two rows written per city.
const (
	MetricTemperature   = "Temperature, average"
	MetricSuitableHours = "No precipitation, hours"
)

// ErrNoDays is returned by BuildRows for a summary without any day.
var ErrNoDays = errors.New("city summary has no days")

// ReportSchema describes the report columns: city, metric, the discovered dates,
// average and rank.
type ReportSchema struct {
	Dates []string
}

// Columns returns the ordered column identifiers, which double as the CSV header.
func (s ReportSchema) Columns() []string {
	cols := make([]string, 0, len(s.Dates)+4)
	cols = append(cols, ColumnCity, ColumnMetric)
	cols = append(cols, s.Dates...)
	return append(cols, ColumnAverage, ColumnRank)
}

// SchemaFromHeader rebuilds a schema from a report header.
func SchemaFromHeader(header []string) (ReportSchema, error) {
	n := len(header)
	if n < 4 ||
		header[0] != ColumnCity || header[1] != ColumnMetric ||
		header[n-2] != ColumnAverage || header[n-1] != ColumnRank {
		return ReportSchema{}, fmt.Errorf("unexpected report header %q", header)
	}
	dates := make([]string, n-4)
	copy(dates, header[2:n-2])
	return ReportSchema{Dates: dates}, nil
}

// ReportRow maps column identifiers to cell values. Missing keys render empty.
type ReportRow map[string]string

// Record renders row as a CSV record in column order.
func (s ReportSchema) Record(row ReportRow) []string {
	cols := s.Columns()
	rec := make([]string, len(cols))
	for i, c := range cols {
		rec[i] = row[c]
	}
	return rec
}

// Row maps a CSV record back to a ReportRow. The record must have one field per column.
func (s ReportSchema) Row(record []string) (ReportRow, error) {
	cols := s.Columns()
	if len(record) != len(cols) {
		return nil, fmt.Errorf("report row has %d fields, want %d", len(record), len(cols))
	}
	row := make(ReportRow, len(cols))
	for i, c := range cols {
		row[c] = record[i]
	}
	return row, nil
}

// SelectSchema returns the dates of the first summary with exactly required days.
// Summaries are scanned in the given order.
func SelectSchema(summaries []CitySummary, required int) (ReportSchema, error) {
	for _, s := range summaries {
		if len(s.Days) == required {
			return ReportSchema{Dates: s.Dates()}, nil
		}
	}
	return ReportSchema{}, fmt.Errorf("%w: need %d", ErrSchema, required)
}

// AggregateAvgTemp averages the present daily temperatures, rounded to 0.1.
// Returns 0 when no day has a temperature.
func AggregateAvgTemp(days []DaySummary) float64 {
	var sum float64
	var n int
	for _, d := range days {
		if d.TempAvg == nil {
			continue
		}
		sum += *d.TempAvg
		n++
	}
	if n == 0 {
		return 0
	}
	return round1(sum / float64(n))
}

// AggregateGoodWeatherHours averages the present daily suitable-hour counts,
// rounded to 0.1. Returns 0 when no day has a count.
func AggregateGoodWeatherHours(days []DaySummary) float64 {
	var sum, n int
	for _, d := range days {
		if d.SuitableHours == nil {
			continue
		}
		sum += *d.SuitableHours
		n++
	}
	if n == 0 {
		return 0
	}
	return round1(float64(sum) / float64(n))
}

// BuildRows renders the temperature row and the suitable-hours row of a city.
// Dates outside the schema get no cell; absent values render as empty cells.
// Averages cover every day of the summary.
func BuildRows(summary CitySummary, schema ReportSchema) (temp, hours ReportRow, err error) {
	if len(summary.Days) == 0 {
		return nil, nil, ErrNoDays
	}

	inSchema := make(map[string]bool, len(schema.Dates))
	for _, d := range schema.Dates {
		inSchema[d] = true
	}

	temp = ReportRow{
		ColumnCity:   summary.City,
		ColumnMetric: MetricTemperature,
		ColumnRank:   "",
	}
	hours = ReportRow{
		ColumnCity:   "",
		ColumnMetric: MetricSuitableHours,
		ColumnRank:   "",
	}
	for _, d := range summary.Days {
		if !inSchema[d.Date] {
			continue
		}
		temp[d.Date] = ""
		hours[d.Date] = ""
		if d.TempAvg != nil {
			temp[d.Date] = FormatNumber(*d.TempAvg)
		}
		if d.SuitableHours != nil {
			hours[d.Date] = strconv.Itoa(*d.SuitableHours)
		}
	}
	temp[ColumnAverage] = FormatNumber(AggregateAvgTemp(summary.Days))
	hours[ColumnAverage] = FormatNumber(AggregateGoodWeatherHours(summary.Days))
	return temp, hours, nil
}

// FormatNumber renders v with the fewest digits that round-trip, so 15 prints
// as "15" and 15.25 as "15.25".
func FormatNumber(v float64) string {
	if v == 0 || math.IsNaN(v) {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package csvreport

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-weather-rating/internal/domain"
)

var testSchema = domain.ReportSchema{Dates: []string{"2022-05-26", "2022-05-27"}}

func pair(city, value string) (domain.ReportRow, domain.ReportRow) {
	temp := domain.ReportRow{
		domain.ColumnCity:    city,
		domain.ColumnMetric:  domain.MetricTemperature,
		"2022-05-26":         value,
		domain.ColumnAverage: value,
	}
	hours := domain.ReportRow{
		domain.ColumnMetric:  domain.MetricSuitableHours,
		"2022-05-26":         value,
		domain.ColumnAverage: value,
	}
	return temp, hours
}

func newReport(t *testing.T) *Report {
	t.Helper()
	r := New(filepath.Join(t.TempDir(), "report.csv"))
	require.NoError(t, r.Create(testSchema))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestReport_CreateWritesHeader(t *testing.T) {
	r := newReport(t)
	require.NoError(t, r.Close())

	data, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	assert.Equal(t, "city,metric,2022-05-26,2022-05-27,average,rank\n", string(data))
}

func TestReport_CreateTruncatesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale\ncontent\n"), 0o600))

	r := New(path)
	require.NoError(t, r.Create(testSchema))
	require.NoError(t, r.Close())

	_, rows, err := r.Read()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReport_AppendPairAndRead(t *testing.T) {
	r := newReport(t)
	temp, hours := pair("MOSCOW", "17.5")
	require.NoError(t, r.AppendPair(temp, hours))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `MOSCOW,"Temperature, average",17.5,,17.5,`, lines[1])
	assert.Equal(t, `,"No precipitation, hours",17.5,,17.5,`, lines[2])

	schema, rows, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, testSchema, schema)
	require.Len(t, rows, 2)
	assert.Equal(t, "MOSCOW", rows[0][domain.ColumnCity])
	assert.Equal(t, "", rows[0]["2022-05-27"])
	assert.Equal(t, domain.MetricSuitableHours, rows[1][domain.ColumnMetric])
}

func TestReport_AppendBeforeCreate(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "report.csv"))
	temp, hours := pair("PARIS", "1")
	require.ErrorIs(t, r.AppendPair(temp, hours), ErrNotCreated)
}

func TestReport_ConcurrentPairsStayAdjacent(t *testing.T) {
	r := newReport(t)

	const cities = 64
	var wg sync.WaitGroup
	for i := 0; i < cities; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			temp, hours := pair("CITY"+strconv.Itoa(i), strconv.Itoa(i))
			assert.NoError(t, r.AppendPair(temp, hours))
		}(i)
	}
	wg.Wait()

	_, rows, err := r.Read()
	require.NoError(t, err)
	require.Len(t, rows, 2*cities)

	seen := make(map[string]bool, cities)
	for k := 0; k < len(rows); k += 2 {
		first, second := rows[k], rows[k+1]
		city := first[domain.ColumnCity]
		require.NotEmpty(t, city, "row %d", k)
		assert.Empty(t, second[domain.ColumnCity], "row %d", k+1)
		assert.Equal(t, domain.MetricTemperature, first[domain.ColumnMetric])
		assert.Equal(t, domain.MetricSuitableHours, second[domain.ColumnMetric])
		assert.Equal(t, "CITY"+first[domain.ColumnAverage], city)
		assert.Equal(t, first[domain.ColumnAverage], second[domain.ColumnAverage], "pair of %s interleaved", city)
		assert.False(t, seen[city], "duplicate %s", city)
		seen[city] = true
	}
	assert.Len(t, seen, cities)
}

func TestReport_RewriteReplacesContent(t *testing.T) {
	r := newReport(t)
	temp, hours := pair("ROMA", "3")
	require.NoError(t, r.AppendPair(temp, hours))

	schema, rows, err := r.Read()
	require.NoError(t, err)
	rows[0][domain.ColumnRank] = "1"
	require.NoError(t, r.Rewrite(schema, rows))

	_, got, err := r.Read()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0][domain.ColumnRank])
	assert.Equal(t, "", got[1][domain.ColumnRank])

	entries, err := os.ReadDir(filepath.Dir(r.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	assert.ErrorIs(t, r.AppendPair(temp, hours), ErrNotCreated)
}

func TestReport_ReadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, _, err := New(filepath.Join(dir, "missing.csv")).Read()
		require.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		path := filepath.Join(dir, "empty.csv")
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		_, _, err := New(path).Read()
		require.Error(t, err)
	})

	t.Run("bad header", func(t *testing.T) {
		path := filepath.Join(dir, "header.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b,c\n"), 0o600))
		_, _, err := New(path).Read()
		require.Error(t, err)
	})

	t.Run("short row", func(t *testing.T) {
		path := filepath.Join(dir, "short.csv")
		require.NoError(t, os.WriteFile(path, []byte("city,metric,average,rank\nMOSCOW,x\n"), 0o600))
		_, _, err := New(path).Read()
		require.Error(t, err)
	})
}

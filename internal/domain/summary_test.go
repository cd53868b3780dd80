package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

func TestSummarize(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2022, time.May, 26, 6, 0, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	days := []DayForecast{
		{Date: "2022-05-27", Hours: []HourSample{
			{Hour: 8, Temp: 30, Condition: ConditionClear},
			{Hour: 9, Temp: 10, Condition: ConditionRain},
			{Hour: 12, Temp: 11, Condition: ConditionClear},
			{Hour: 18, Temp: 12, Condition: ConditionOvercast},
			{Hour: 19, Temp: 40, Condition: ConditionClear},
		}},
		{Date: "2022-05-26", Hours: []HourSample{
			{Hour: 10, Temp: 20, Condition: ConditionCloudy},
			{Hour: 11, Temp: 21, Condition: ConditionPartlyCloudy},
		}},
		{Date: "2022-05-28", Hours: []HourSample{
			{Hour: 0, Temp: 5, Condition: ConditionClear},
			{Hour: 23, Temp: 6, Condition: ConditionClear},
		}},
	}

	got := Summarize("MOSCOW", days, DefaultSummaryRules())

	want := CitySummary{
		City: "MOSCOW",
		Days: []DaySummary{
			{Date: "2022-05-26", TempAvg: ptrFloat(20.5), SuitableHours: ptrInt(2)},
			{Date: "2022-05-27", TempAvg: ptrFloat(11), SuitableHours: ptrInt(2)},
			{Date: "2022-05-28"},
		},
		GeneratedAt: fakeClock.Now(),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize_RoundsToOneDecimal(t *testing.T) {
	days := []DayForecast{{Date: "2022-05-26", Hours: []HourSample{
		{Hour: 9, Temp: 10},
		{Hour: 10, Temp: 10},
		{Hour: 11, Temp: 11},
	}}}

	got := Summarize("PARIS", days, DefaultSummaryRules())

	require.NotNil(t, got.Days[0].TempAvg)
	assert.Equal(t, 10.3, *got.Days[0].TempAvg)
	require.NotNil(t, got.Days[0].SuitableHours)
	assert.Equal(t, 0, *got.Days[0].SuitableHours, "a present zero is not absent")
}

func TestSummarize_MergesDuplicateDates(t *testing.T) {
	days := []DayForecast{
		{Date: "2022-05-26", Hours: []HourSample{{Hour: 9, Temp: 10, Condition: ConditionClear}}},
		{Date: "2022-05-26", Hours: []HourSample{{Hour: 10, Temp: 20, Condition: ConditionRain}}},
	}

	got := Summarize("BERLIN", days, DefaultSummaryRules())

	require.Len(t, got.Days, 1)
	assert.Equal(t, 15.0, *got.Days[0].TempAvg)
	assert.Equal(t, 1, *got.Days[0].SuitableHours)
}

func TestSummarize_CustomRules(t *testing.T) {
	rules := SummaryRules{
		Window:   DaytimeWindow{Start: 0, End: 24},
		Suitable: NewConditionSet("rain"),
	}
	days := []DayForecast{{Date: "2022-05-26", Hours: []HourSample{
		{Hour: 0, Temp: 1, Condition: ConditionRain},
		{Hour: 23, Temp: 3, Condition: ConditionClear},
	}}}

	got := Summarize("LONDON", days, rules)

	assert.Equal(t, 2.0, *got.Days[0].TempAvg)
	assert.Equal(t, 1, *got.Days[0].SuitableHours)
}

func TestSummarize_NoDays(t *testing.T) {
	got := Summarize("CAIRO", nil, DefaultSummaryRules())
	assert.Equal(t, "CAIRO", got.City)
	assert.Empty(t, got.Days)
	assert.Empty(t, got.Dates())
}

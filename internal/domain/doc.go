// Package domain models per-city weather forecasts and the comfort report built
// from them.
//
// # Data Source
//
// Each city resolves to a URL serving a Yandex-style forecast document:
//
//	{"forecasts": [{"date": "2022-05-26", "hours": [{"hour": "9", "temp": 17, "condition": "clear"}, ...]}, ...]}
//
// The hour is usually a string but plain integers are accepted as well. Only the
// date, hour, temp and condition fields are read; everything else is ignored.
//
// # Daily Summary
//
// Samples are filtered to the daytime window [start, end), 9 to 19 by default:
//
//	temp_avg        arithmetic mean of in-window temperatures, rounded to 0.1
//	suitable_hours  count of in-window samples whose condition is suitable
//
// Suitable conditions default to clear, partly-cloudy, cloudy and overcast. A day
// without in-window samples keeps both values absent (nil) so report averages
// skip it instead of counting a zero.
//
// # Report
//
// The report is a CSV table with the columns
//
//	city, metric, <date 1> ... <date N>, average, rank
//
// and exactly two rows per city: the temperature row (carrying the city name)
// followed by the suitable-hours row. The date columns come from the first city
// summary that has exactly N days. See [ReportSchema] and [BuildRows].
//
// # Rating
//
// A city's score is the temperature average plus the suitable-hours average,
// rounded to one decimal.
// The units are not normalized. Ranks are 1-based and stable with respect to
// report order on ties. See [RankCities].
package domain

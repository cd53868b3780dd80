// Command genmock writes synthetic forecast documents for every default city,
// plus a cities file pointing at them, so the rating command can run without
// the remote source. Each fixture is parsed and summarized with the domain
// package before it is written, and the expected averages are printed.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -serve :8080
//	CITIES_FILE=data/mock/cities.yaml go run ./cmd/rating
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/city-weather-rating/internal/config"
	"github.com/couchcryptid/city-weather-rating/internal/domain"
)

// conditions are drawn with the given weights.
var conditions = []struct {
	tag    domain.Condition
	weight int
}{
	{domain.ConditionClear, 30},
	{domain.ConditionPartlyCloudy, 20},
	{domain.ConditionCloudy, 15},
	{domain.ConditionOvercast, 10},
	{domain.ConditionDrizzle, 8},
	{domain.ConditionLightRain, 8},
	{domain.ConditionRain, 6},
	{domain.ConditionThunderstorm, 3},
}

type fixtureHour struct {
	Hour      string  `json:"hour"`
	Temp      float64 `json:"temp"`
	Condition string  `json:"condition"`
}

type fixtureDay struct {
	Date  string        `json:"date"`
	Hours []fixtureHour `json:"hours"`
}

type fixture struct {
	Forecasts []fixtureDay `json:"forecasts"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock", "output directory for fixtures and cities.yaml")
	days := flag.Int("days", 5, "forecast days per city")
	start := flag.String("start", "2022-05-26", "first forecast date (YYYY-MM-DD)")
	seed := flag.Uint64("seed", 1, "random seed")
	short := flag.String("short", "", "comma-separated cities that get one day fewer")
	baseURL := flag.String("base-url", "http://localhost:8080", "URL prefix written to cities.yaml")
	serve := flag.String("serve", "", "serve the fixtures on this address after writing them")
	flag.Parse()

	if *days < 1 {
		return errors.New("-days must be at least 1")
	}
	first, err := time.Parse("2006-01-02", *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}

	cities, err := config.DefaultCities()
	if err != nil {
		return err
	}
	shortSet := map[string]bool{}
	for _, c := range strings.Split(*short, ",") {
		if c = strings.TrimSpace(c); c != "" {
			shortSet[c] = true
		}
	}

	// Fixed clock for reproducible summaries.
	domain.SetClock(clockwork.NewFakeClockAt(first))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	listed := make([]domain.City, 0, len(cities))
	summaries := make([]domain.CitySummary, 0, len(cities))
	for i, city := range cities {
		n := *days
		if shortSet[city.Name] {
			n--
		}
		doc := generate(rng, first, n, 8+float64(i%8)*3)
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", city.Name, err)
		}

		parsed, err := domain.ParseForecast(data)
		if err != nil && !errors.Is(err, domain.ErrEmptyForecast) {
			return fmt.Errorf("generated fixture for %s does not parse: %w", city.Name, err)
		}
		summaries = append(summaries, domain.Summarize(city.Name, parsed, domain.DefaultSummaryRules()))

		file := strings.ToLower(city.Name) + "-response.json"
		if err := os.WriteFile(filepath.Join(*out, file), append(data, '\n'), 0o600); err != nil {
			return err
		}
		listed = append(listed, domain.City{Name: city.Name, URL: strings.TrimRight(*baseURL, "/") + "/" + file})
	}

	if err := writeCities(filepath.Join(*out, "cities.yaml"), listed); err != nil {
		return err
	}
	log.Printf("wrote %d fixtures to %s", len(listed), *out)
	printExpected(summaries)

	if *serve == "" {
		return nil
	}
	log.Printf("serving %s on %s", *out, *serve)
	srv := &http.Server{
		Addr:              *serve,
		Handler:           http.FileServer(http.Dir(*out)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

// generate produces n days of 24 hourly samples around base degrees.
func generate(rng *rand.Rand, first time.Time, n int, base float64) fixture {
	doc := fixture{Forecasts: make([]fixtureDay, 0, n)}
	for d := 0; d < n; d++ {
		date := first.AddDate(0, 0, d).Format("2006-01-02")
		dayShift := rng.NormFloat64() * 2
		hours := make([]fixtureHour, 0, 24)
		for h := 0; h < 24; h++ {
			// Daily curve peaking mid-afternoon.
			diurnal := 6 * math.Sin(float64(h-9)*math.Pi/12)
			temp := math.Round(base + dayShift + diurnal + rng.NormFloat64())
			hours = append(hours, fixtureHour{
				Hour:      strconv.Itoa(h),
				Temp:      temp,
				Condition: string(pickCondition(rng)),
			})
		}
		doc.Forecasts = append(doc.Forecasts, fixtureDay{Date: date, Hours: hours})
	}
	return doc
}

func pickCondition(rng *rand.Rand) domain.Condition {
	total := 0
	for _, c := range conditions {
		total += c.weight
	}
	n := rng.IntN(total)
	for _, c := range conditions {
		if n < c.weight {
			return c.tag
		}
		n -= c.weight
	}
	return domain.ConditionClear
}

func writeCities(path string, cities []domain.City) error {
	data, err := yaml.Marshal(struct {
		Cities []domain.City `yaml:"cities"`
	}{Cities: cities})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printExpected(summaries []domain.CitySummary) {
	fmt.Println("\n=== Expected averages ===")
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CITY\tDAYS\tAVG TEMP\tGOOD HOURS\tSCORE")
	for _, s := range summaries {
		temp := domain.AggregateAvgTemp(s.Days)
		hours := domain.AggregateGoodWeatherHours(s.Days)
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", s.City, len(s.Days),
			domain.FormatNumber(temp), domain.FormatNumber(hours),
			domain.FormatNumber(math.Round((temp+hours)*10)/10))
	}
	tw.Flush()
}

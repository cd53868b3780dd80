package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/city-weather-rating/internal/domain"
)

const (
	rawDirName     = "responses"
	summaryDirName = "outputs"
	recordExt      = ".json"
)

// ErrNotFound is returned when a city has no record of the requested kind.
var ErrNotFound = errors.New("record not found")

// Store keeps per-city raw forecasts and summaries as JSON files under a data
// directory. Each record is written to a temp file and renamed into place, so a
// listed record is always complete.
type Store struct {
	rawDir     string
	summaryDir string
}

// New creates a Store rooted at dataDir. Call Reset before the first write.
func New(dataDir string) *Store {
	return &Store{
		rawDir:     filepath.Join(dataDir, rawDirName),
		summaryDir: filepath.Join(dataDir, summaryDirName),
	}
}

// Reset removes records left by a previous run and recreates both directories.
func (s *Store) Reset() error {
	for _, dir := range []string{s.rawDir, s.summaryDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("reset %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// SaveRaw persists the raw forecast payload of city.
func (s *Store) SaveRaw(city string, data []byte) error {
	return writeAtomic(s.rawDir, city, data)
}

// LoadRaw returns the raw forecast payload of city.
func (s *Store) LoadRaw(city string) ([]byte, error) {
	return readRecord(s.rawDir, city)
}

// ListRaw returns the cities that have a raw forecast, sorted by name.
func (s *Store) ListRaw() ([]string, error) {
	return listRecords(s.rawDir)
}

// SaveSummary persists a city summary keyed by its city name.
func (s *Store) SaveSummary(summary domain.CitySummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary %s: %w", summary.City, err)
	}
	return writeAtomic(s.summaryDir, summary.City, data)
}

// LoadSummary returns the stored summary of city.
func (s *Store) LoadSummary(city string) (domain.CitySummary, error) {
	data, err := readRecord(s.summaryDir, city)
	if err != nil {
		return domain.CitySummary{}, err
	}
	var summary domain.CitySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return domain.CitySummary{}, fmt.Errorf("decode summary %s: %w", city, err)
	}
	return summary, nil
}

// ListSummaries returns the cities that have a summary, sorted by name.
func (s *Store) ListSummaries() ([]string, error) {
	return listRecords(s.summaryDir)
}

func recordPath(dir, city string) (string, error) {
	if city == "" || strings.ContainsAny(city, `/\`) || city == "." || city == ".." {
		return "", fmt.Errorf("invalid city key %q", city)
	}
	return filepath.Join(dir, city+recordExt), nil
}

func writeAtomic(dir, city string, data []byte) error {
	path, err := recordPath(dir, city)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+city+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", city, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", city, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", city, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit %s: %w", city, err)
	}
	return nil
}

func readRecord(dir, city string) ([]byte, error) {
	path, err := recordPath(dir, city)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", city, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", city, err)
	}
	return data, nil
}

func listRecords(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var cities []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		cities = append(cities, strings.TrimSuffix(name, recordExt))
	}
	sort.Strings(cities)
	return cities, nil
}

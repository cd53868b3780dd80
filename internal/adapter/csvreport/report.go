package csvreport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/city-weather-rating/internal/domain"
)

// ErrNotCreated is returned when rows are appended before Create.
var ErrNotCreated = errors.New("report not created")

// Report is the shared CSV report. Concurrent AppendPair calls are serialized
// by one mutex so a city's two rows are always adjacent.
type Report struct {
	path string

	mu     sync.Mutex
	file   *os.File
	schema domain.ReportSchema
}

// New returns a report bound to path. Nothing is written until Create.
func New(path string) *Report {
	return &Report{path: path}
}

// Path returns the report file location.
func (r *Report) Path() string {
	return r.path
}

// Create truncates the report, writes the header of schema and keeps the file
// open for appends.
func (r *Report) Create(schema domain.ReportSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	header, err := encode(schema.Columns())
	if err != nil {
		_ = f.Close()
		return err
	}
	if _, err := f.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report header: %w", err)
	}

	r.file = f
	r.schema = schema
	return nil
}

// AppendPair writes the temperature row and the suitable-hours row of one city
// as a single write. Both rows are encoded before the lock is taken.
func (r *Report) AppendPair(temp, hours domain.ReportRow) error {
	r.mu.Lock()
	schema := r.schema
	created := r.file != nil
	r.mu.Unlock()
	if !created {
		return ErrNotCreated
	}

	buf, err := encode(schema.Record(temp), schema.Record(hours))
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return ErrNotCreated
	}
	if _, err := r.file.Write(buf); err != nil {
		return fmt.Errorf("append report rows: %w", err)
	}
	return nil
}

// Read parses the report file into its schema and rows.
func (r *Report) Read() (domain.ReportSchema, []domain.ReportRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		return domain.ReportSchema{}, nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.ReportSchema{}, nil, errors.New("report is empty")
	}
	if err != nil {
		return domain.ReportSchema{}, nil, fmt.Errorf("read report header: %w", err)
	}
	schema, err := domain.SchemaFromHeader(header)
	if err != nil {
		return domain.ReportSchema{}, nil, err
	}

	var rows []domain.ReportRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.ReportSchema{}, nil, fmt.Errorf("read report line %d: %w", line, err)
		}
		row, err := schema.Row(rec)
		if err != nil {
			return domain.ReportSchema{}, nil, fmt.Errorf("report line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return schema, rows, nil
}

// Rewrite replaces the whole report with schema and rows. The new content is
// written to a temp file and renamed over the report, and the append handle
// is released.
func (r *Report) Rewrite(schema domain.ReportSchema, rows []domain.ReportRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, schema.Columns())
	for _, row := range rows {
		records = append(records, schema.Record(row))
	}
	buf, err := encode(records...)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return fmt.Errorf("close report: %w", err)
		}
		r.file = nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("create report temp: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report temp: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod report: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}
	r.schema = schema
	return nil
}

// Close releases the append handle, if any.
func (r *Report) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func encode(records ...[]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("encode report rows: %w", err)
	}
	return buf.Bytes(), nil
}

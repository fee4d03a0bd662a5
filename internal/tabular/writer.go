// Package tabular persists listings into append-only CSV stores and
// maintains the merged, deduplicated store consumed by analysis tooling.
package tabular

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"jobmate/ingest-service/internal/model"
)

const (
	RunFile    = "output_data.csv"
	WholeFile  = "output_whole.csv"
	MergedFile = "output_merged.csv"
)

// Header is the fixed column order of the run-scoped and cumulative stores.
var Header = []string{
	"TITLE", "REQUIRED_SKILLS", "ADDITIONAL_SKILLS", "WORKPLACE_TYPE", "REMOTE_INTERVIEW",
	"URL", "PAYMENT_FROM", "PAYMENT_TO", "LOCATION", "COMPANY", "DATE",
}

// MergedHeader is Header plus the job type column.
var MergedHeader = append(append([]string(nil), Header...), "JOB_TYPE")

// Writer appends listings to the run-scoped and the cumulative store.
type Writer struct {
	mu        sync.Mutex
	RunPath   string
	WholePath string
}

// NewWriter returns a Writer for the stores under base.
func NewWriter(base string) *Writer {
	return &Writer{
		RunPath:   filepath.Join(base, RunFile),
		WholePath: filepath.Join(base, WholeFile),
	}
}

// Reset removes the run-scoped store. A missing file is not an error.
func (w *Writer) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := os.Remove(w.RunPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reset %s: %w", w.RunPath, err)
	}
	return nil
}

// Append writes records to both stores in the given order. Each file gets a
// header only when it is absent or empty. The cumulative store is written
// first so a failed run-store write never leaves rows missing from it.
func (w *Writer) Append(records []model.Listing) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]string, len(records))
	for i, l := range records {
		rows[i] = Row(l)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := appendRows(w.WholePath, Header, rows); err != nil {
		return err
	}
	if err := appendRows(w.RunPath, Header, rows); err != nil {
		log.Printf("[tabular] %d row(s) reached %s but not %s: %v", len(rows), w.WholePath, w.RunPath, err)
		return err
	}
	return nil
}

func appendRows(path string, header []string, rows [][]string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat %s: %w", path, err)
	}

	cw := csv.NewWriter(f)
	if fi.Size() == 0 {
		cw.Write(header)
	}
	cw.WriteAll(rows)
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// Row renders l in Header order.
func Row(l model.Listing) []string {
	return []string{
		l.Title,
		skills(l.RequiredSkills),
		skills(l.AdditionalSkills),
		l.WorkplaceType,
		strconv.FormatBool(l.RemoteInterview),
		l.URL,
		payment(l.PaymentFrom),
		payment(l.PaymentTo),
		l.Location,
		l.Company,
		l.DateString(),
	}
}

// MergedRow renders l in MergedHeader order.
func MergedRow(l model.Listing) []string {
	return append(Row(l), l.JobType)
}

// skills encodes a list as a JSON array so it is never re-parsed as text.
func skills(s []string) string {
	if s == nil {
		s = []string{}
	}
	b, _ := json.Marshal(s)
	return string(b)
}

func payment(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

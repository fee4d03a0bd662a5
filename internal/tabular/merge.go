package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"jobmate/ingest-service/internal/model"
)

// dedupColumns identify one offer across runs and categories.
var dedupColumns = []string{"TITLE", "PAYMENT_FROM", "PAYMENT_TO"}

// Merge folds records into the merged store at path and returns its row
// count. Existing rows come first and win over later duplicates. Columns
// missing from an older file are back-filled empty and unknown columns are
// dropped. The file is replaced atomically. No records leaves it untouched.
func (w *Writer) Merge(path string, records []model.Listing) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	rows, err := readProjected(path, MergedHeader)
	if err != nil {
		return 0, err
	}
	for _, l := range records {
		rows = append(rows, MergedRow(l))
	}
	rows = dedup(rows, MergedHeader, dedupColumns)

	if err := writeAtomic(path, MergedHeader, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// readProjected reads a CSV file with a header row and projects every row
// onto header. A missing file yields no rows.
func readProjected(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	source := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		source[name] = i
	}
	rows := make([][]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		row := make([]string, len(header))
		for i, name := range header {
			if j, ok := source[name]; ok && j < len(rec) {
				row[i] = rec[j]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func dedup(rows [][]string, header, key []string) [][]string {
	idx := make([]int, len(key))
	for i, k := range key {
		for j, name := range header {
			if name == k {
				idx[i] = j
			}
		}
	}
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0]
	parts := make([]string, len(idx))
	for _, row := range rows {
		for i, j := range idx {
			parts[i] = row[j]
		}
		k := strings.Join(parts, "\x1f")
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	return out
}

func writeAtomic(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".merge-*.csv")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	cw.Write(header)
	cw.WriteAll(rows)
	if err := cw.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

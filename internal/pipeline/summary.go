package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobmate/ingest-service/internal/model"
	"jobmate/ingest-service/internal/scraper"
)

// SummaryFile is the per-run skill coverage report.
const SummaryFile = "summary.txt"

// Summary describes one completed run.
type Summary struct {
	RunID         uuid.UUID         `json:"runId"`
	StartedAt     time.Time         `json:"startedAt"`
	FinishedAt    time.Time         `json:"finishedAt"`
	Processed     int               `json:"processed"`
	Skipped       int               `json:"skipped"`
	FailedSources map[string]string `json:"failedSources"`
	NewListings   int               `json:"newListings"` // -1 without a registry
	MergedRows    int               `json:"mergedRows"`
	Records       []model.Listing   `json:"records,omitempty"`
}

// WriteSummary writes one block per record with its skill match against
// skills and the required skills that are missing.
func WriteSummary(path string, records []model.Listing, skills []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, l := range records {
		fmt.Fprintf(w, "%s\n", l.Title)
		fmt.Fprintf(w, "Skill match: %.1f%%\n", scraper.MatchPercentage(l.RequiredSkills, skills))
		fmt.Fprintf(w, "Missing skills: %s\n", strings.Join(scraper.MissingSkills(l.RequiredSkills, skills), ", "))
		fmt.Fprintf(w, "URL: %s\n", l.URL)
		fmt.Fprintln(w, "----------------")
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

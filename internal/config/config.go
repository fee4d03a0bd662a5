// Package config loads and validates environment variables at startup.
// Fail-fast: if a variable is malformed, the process exits.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"jobmate/ingest-service/internal/model"
)

const (
	DefaultSourceBaseURL = "https://justjoin.it/all-locations"
	DefaultDetailBaseURL = "https://justjoin.it/offers"
)

// Category is one entry of the listing-search catalogue.
type Category struct {
	Name string // job type recorded in the merged store
	Path string // path segment under SourceBaseURL
}

// Catalogue lists every category the board exposes, in display order.
var Catalogue = []Category{
	{"JavaScript", "javascript"},
	{"HTML", "html"},
	{"PHP", "php"},
	{"Ruby", "ruby"},
	{"Python", "python"},
	{"Java", "java"},
	{".NET", "net"},
	{"Scala", "scala"},
	{"C", "c"},
	{"Mobile", "mobile"},
	{"Testing", "testing"},
	{"DevOps", "devops"},
	{"Admin", "admin"},
	{"UX", "ux"},
	{"PM", "pm"},
	{"Game", "game"},
	{"Analytics", "analytics"},
	{"Security", "security"},
	{"Data", "data"},
	{"Go", "go"},
	{"Support", "support"},
	{"ERP", "erp"},
	{"Architecture", "architecture"},
	{"Other", "other"},
}

// Config holds all runtime configuration for the ingest service.
type Config struct {
	WorkDir         string
	JobTypes        []string // catalogue names; empty means all
	ExperienceLevel string   // e.g. "junior", "mid", "senior"
	RemoteOnly      bool
	SourceBaseURL   string
	DetailBaseURL   string

	Skills        []string
	SoftSkills    []string
	Hobbies       []string
	ApplicantName string

	TemplateDocx        string
	CertsFile           string
	LinksFile           string
	DescriptionSelector string

	HTTPTimeout  time.Duration
	FetchRetries int
	Workers      int
	UserAgent    string

	MergeOutput  bool
	MergedFile   string
	WriteSummary bool

	ScrapeIntervalHours int // 0 runs once and exits
	Port                string

	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	NATSSubject        string
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
}

// Load reads an optional .env file, then environment variables, and returns
// a validated Config. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		WorkDir:             getenv("WORK_DIR", "."),
		JobTypes:            splitList(os.Getenv("JOB_TYPES")),
		ExperienceLevel:     strings.TrimSpace(os.Getenv("EXPERIENCE_LEVEL")),
		SourceBaseURL:       strings.TrimRight(getenv("SOURCE_BASE_URL", DefaultSourceBaseURL), "/"),
		DetailBaseURL:       strings.TrimRight(getenv("DETAIL_BASE_URL", DefaultDetailBaseURL), "/"),
		Skills:              splitList(os.Getenv("SKILLS")),
		SoftSkills:          splitList(os.Getenv("SOFT_SKILLS")),
		Hobbies:             splitList(os.Getenv("HOBBIES")),
		ApplicantName:       os.Getenv("APPLICANT_NAME"),
		TemplateDocx:        getenv("TEMPLATE_DOCX", "template.docx"),
		CertsFile:           getenv("CERTS_FILE", "certs.txt"),
		LinksFile:           getenv("LINKS_FILE", "github.txt"),
		DescriptionSelector: os.Getenv("DESCRIPTION_SELECTOR"),
		UserAgent:           os.Getenv("USER_AGENT"),
		MergedFile:          os.Getenv("MERGED_FILE"),
		Port:                getenv("DISCOVERY_PORT", "8081"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		NATSURL:             os.Getenv("NATS_URL"),
		NATSSubject:         os.Getenv("NATS_SUBJECT"),
		ClickHouseAddr:      os.Getenv("CLICKHOUSE_ADDR"),
		ClickHouseDatabase:  getenv("CLICKHOUSE_DATABASE", "default"),
		ClickHouseUser:      getenv("CLICKHOUSE_USER", "default"),
		ClickHousePassword:  os.Getenv("CLICKHOUSE_PASSWORD"),
	}

	var err error
	if cfg.RemoteOnly, err = boolEnv("REMOTE_ONLY", false); err != nil {
		return nil, err
	}
	if cfg.MergeOutput, err = boolEnv("MERGE_OUTPUT", true); err != nil {
		return nil, err
	}
	if cfg.WriteSummary, err = boolEnv("WRITE_SUMMARY", true); err != nil {
		return nil, err
	}
	if cfg.FetchRetries, err = intEnv("FETCH_RETRIES", 3, 1); err != nil {
		return nil, err
	}
	if cfg.Workers, err = intEnv("WORKERS", 1, 1); err != nil {
		return nil, err
	}
	if cfg.ScrapeIntervalHours, err = intEnv("SCRAPE_INTERVAL_HOURS", 0, 0); err != nil {
		return nil, err
	}

	cfg.HTTPTimeout = 15 * time.Second
	if s := os.Getenv("HTTP_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("HTTP_TIMEOUT must be a positive duration, got %q", s)
		}
		cfg.HTTPTimeout = d
	}

	if _, err := cfg.Sources(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Sources expands the selected job types into search-page URLs of the form
// {SourceBaseURL}/{path}[/experience-level_{level}][/remote_yes]. Job types
// match a catalogue name or path, case-insensitively.
func (c *Config) Sources() ([]model.Source, error) {
	selected := Catalogue
	if len(c.JobTypes) > 0 {
		selected = make([]Category, 0, len(c.JobTypes))
		for _, jt := range c.JobTypes {
			cat, ok := lookup(jt)
			if !ok {
				return nil, fmt.Errorf("JOB_TYPES: unknown job type %q", jt)
			}
			selected = append(selected, cat)
		}
	}

	sources := make([]model.Source, 0, len(selected))
	for _, cat := range selected {
		url := c.SourceBaseURL + "/" + cat.Path
		if c.ExperienceLevel != "" {
			url += "/experience-level_" + c.ExperienceLevel
		}
		if c.RemoteOnly {
			url += "/remote_yes"
		}
		sources = append(sources, model.Source{JobType: cat.Name, URL: url})
	}
	return sources, nil
}

func lookup(jobType string) (Category, bool) {
	for _, cat := range Catalogue {
		if strings.EqualFold(jobType, cat.Name) || strings.EqualFold(jobType, cat.Path) {
			return cat, true
		}
	}
	return Category{}, false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitList parses a comma-separated value, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func boolEnv(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, s)
	}
	return v, nil
}

func intEnv(key string, def, min int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < min {
		return 0, fmt.Errorf("%s must be an integer >= %d, got %q", key, min, s)
	}
	return v, nil
}

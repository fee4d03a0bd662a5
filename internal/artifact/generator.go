// Package artifact produces the per-listing files written into a workspace:
// the job description, a tailored application document and a cover letter.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"jobmate/ingest-service/internal/model"
)

const (
	DescriptionFile = "job_description.txt"
	DefaultTemplate = "template.docx"
	DefaultName     = "Applicant"
)

// Step names one of the independent generation steps.
type Step string

const (
	StepDescription Step = "description"
	StepApplication Step = "application-document"
	StepCoverLetter Step = "cover-letter"
)

// Error reports a failed generation step. Other steps of the same listing
// are unaffected.
type Error struct {
	Step Step
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("artifact %s for %s: %v", e.Step, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrTemplateMissing is logged when the application template is absent.
var ErrTemplateMissing = errors.New("application template not found")

// Describer returns the plain-text description behind a listing URL.
type Describer interface {
	Describe(ctx context.Context, url string) (string, error)
}

// Profile is the applicant data rendered into documents.
type Profile struct {
	Name       string
	SoftSkills []string
	Hobbies    []string
}

// Options configures a Generator. Relative file names resolve against BaseDir.
type Options struct {
	BaseDir   string
	Template  string
	CertsFile string
	LinksFile string
	Profile   Profile
	Now       func() time.Time
}

// Generator writes the artifacts of one listing into its workspace.
type Generator struct {
	describer Describer
	opts      Options
}

// NewGenerator constructs a Generator.
func NewGenerator(d Describer, opts Options) *Generator {
	if opts.Template == "" {
		opts.Template = DefaultTemplate
	}
	if opts.Profile.Name == "" {
		opts.Profile.Name = DefaultName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{describer: d, opts: opts}
}

// Result lists what Generate wrote and which steps failed or were skipped.
type Result struct {
	Files   []string
	Skipped []Step
	Errors  []*Error
}

// Err joins the step errors, or returns nil when every step succeeded.
func (r Result) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Generate runs the description, application document and cover letter
// steps for l inside dir. Failures are collected per step and logged; they
// never stop the remaining steps.
func (g *Generator) Generate(ctx context.Context, l model.Listing, dir string, skills []string) Result {
	var res Result
	record := func(step Step, path string, err error) {
		switch {
		case err == nil:
			res.Files = append(res.Files, path)
		case errors.Is(err, ErrTemplateMissing):
			log.Printf("[artifact] %s: %v — skipping %s", l.URL, err, step)
			res.Skipped = append(res.Skipped, step)
		default:
			aErr := &Error{Step: step, URL: l.URL, Err: err}
			log.Printf("[artifact] %v", aErr)
			res.Errors = append(res.Errors, aErr)
		}
	}

	path, err := g.writeDescription(ctx, l, dir)
	record(StepDescription, path, err)

	path, err = g.writeApplication(l, dir, skills)
	record(StepApplication, path, err)

	path, err = g.writeCoverLetter(l, dir)
	record(StepCoverLetter, path, err)

	return res
}

func (g *Generator) writeDescription(ctx context.Context, l model.Listing, dir string) (string, error) {
	text, err := g.describer.Describe(ctx, l.URL)
	if err != nil {
		return "", fmt.Errorf("describe: %w", err)
	}
	path := filepath.Join(dir, DescriptionFile)
	content := "Job URL: " + l.URL + "\n\n" + text + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	return path, nil
}

func (g *Generator) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(g.opts.BaseDir, name)
}

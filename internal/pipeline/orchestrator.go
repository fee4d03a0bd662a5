// Package pipeline runs the ingestion cycle: fetch each configured source,
// extract its listings, generate per-listing artifacts, then persist the
// processed records and fan them out to the sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"jobmate/ingest-service/internal/artifact"
	"jobmate/ingest-service/internal/model"
	"jobmate/ingest-service/internal/sink"
)

// ErrRunInProgress is returned when a run is requested while another one
// has not finished.
var ErrRunInProgress = errors.New("run already in progress")

// FetcherPort reads a listing-search page.
type FetcherPort interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ExtractorPort turns a listing-search page into listings.
type ExtractorPort interface {
	Extract(body string) ([]model.Listing, error)
}

// AllocatorPort hands out per-listing workspace directories.
type AllocatorPort interface {
	Allocate(name string) (string, error)
}

// GeneratorPort writes the artifacts of one listing.
type GeneratorPort interface {
	Generate(ctx context.Context, l model.Listing, dir string, skills []string) artifact.Result
}

// StorePort is the durable tabular store.
type StorePort interface {
	Reset() error
	Append(records []model.Listing) error
	Merge(path string, records []model.Listing) (int, error)
}

// Ports groups the collaborators of an Orchestrator. Sinks and Registry are
// optional.
type Ports struct {
	Fetcher   FetcherPort
	Extractor ExtractorPort
	Allocator AllocatorPort
	Generator GeneratorPort
	Store     StorePort
	Skills    artifact.SkillProvider
	Sinks     []sink.Sink
	Registry  sink.Registry
}

// Options tunes a run.
type Options struct {
	Workers     int    // concurrent listings per source; 1 is sequential
	MergedPath  string // empty disables the merge step
	SummaryPath string // empty disables summary.txt
	Now         func() time.Time
}

// Orchestrator sequences a run over the configured sources. At most one run
// is active at a time.
type Orchestrator struct {
	sources []model.Source
	p       Ports
	opts    Options

	running atomic.Bool
	active  sync.WaitGroup
	mu      sync.Mutex
	last    *Summary
}

// New constructs an Orchestrator.
func New(sources []model.Source, p Ports, opts Options) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{sources: sources, p: p, opts: opts}
}

// Run executes one run synchronously. Failures isolated to a source or a
// listing are recorded in the summary; the returned error is reserved for
// problems that prevent the run from starting.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return Summary{}, ErrRunInProgress
	}
	o.active.Add(1)
	defer o.active.Done()
	defer o.running.Store(false)
	return o.run(ctx)
}

// Start begins a run in the background and returns immediately.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	o.active.Add(1)
	go func() {
		defer o.active.Done()
		defer o.running.Store(false)
		if _, err := o.run(ctx); err != nil {
			log.Printf("[orchestrator] run failed: %v", err)
		}
	}()
	return nil
}

// Wait blocks until the active run, if any, has persisted its records and
// returned.
func (o *Orchestrator) Wait() { o.active.Wait() }

// Running reports whether a run is active.
func (o *Orchestrator) Running() bool { return o.running.Load() }

// LastSummary returns the summary of the most recent completed run.
func (o *Orchestrator) LastSummary() (Summary, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return Summary{}, false
	}
	return *o.last, true
}

func (o *Orchestrator) run(ctx context.Context) (Summary, error) {
	sum := Summary{
		RunID:         uuid.New(),
		StartedAt:     o.opts.Now(),
		FailedSources: make(map[string]string),
		NewListings:   -1,
	}
	if o.p.Registry != nil {
		sum.NewListings = 0
	}
	log.Printf("[orchestrator] Run %s started: %d source(s), workers=%d", sum.RunID, len(o.sources), o.opts.Workers)

	if err := o.p.Store.Reset(); err != nil {
		return sum, fmt.Errorf("reset run store: %w", err)
	}
	skills, err := o.p.Skills.Skills(ctx)
	if err != nil {
		return sum, fmt.Errorf("load skills: %w", err)
	}

	for _, src := range o.sources {
		if ctx.Err() != nil {
			log.Printf("[orchestrator] Stop requested, not starting %s", src.JobType)
			break
		}
		res, err := o.runSource(ctx, src, skills)
		sum.Processed += len(res.processed)
		sum.Skipped += res.skipped
		sum.Records = append(sum.Records, res.processed...)
		if res.newListings > 0 {
			sum.NewListings += res.newListings
		}
		if err != nil {
			log.Printf("[orchestrator] Source %s (%s): %v — continuing", src.JobType, src.URL, err)
			sum.FailedSources[src.JobType] = err.Error()
		}
	}

	o.finish(&sum, skills)
	sum.FinishedAt = o.opts.Now()
	log.Printf("[orchestrator] Run %s done: processed=%d skipped=%d failedSources=%d",
		sum.RunID, sum.Processed, sum.Skipped, len(sum.FailedSources))

	o.mu.Lock()
	last := sum
	o.last = &last
	o.mu.Unlock()
	return sum, nil
}

type sourceResult struct {
	processed   []model.Listing
	skipped     int
	newListings int
}

func (o *Orchestrator) runSource(ctx context.Context, src model.Source, skills []string) (sourceResult, error) {
	var res sourceResult

	body, err := o.p.Fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return res, fmt.Errorf("fetch: %w", err)
	}
	listings, err := o.p.Extractor.Extract(body)
	if err != nil {
		return res, fmt.Errorf("extract: %w", err)
	}
	listings = model.TagJobType(listings, src.JobType)
	log.Printf("[orchestrator] Source %s: %d listing(s)", src.JobType, len(listings))

	done := make([]bool, len(listings))
	var g errgroup.Group
	g.SetLimit(o.opts.Workers)
	for i := range listings {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			done[i] = o.processListing(ctx, listings[i], skills)
			return nil
		})
	}
	g.Wait()

	for i, ok := range done {
		if ok {
			res.processed = append(res.processed, listings[i])
		}
	}
	res.skipped = len(listings) - len(res.processed)
	if len(res.processed) == 0 {
		return res, nil
	}

	// Processed listings are persisted even when a stop was requested.
	persistCtx := context.WithoutCancel(ctx)
	if err := o.p.Store.Append(res.processed); err != nil {
		res.skipped = len(listings)
		res.processed = nil
		return res, fmt.Errorf("append: %w", err)
	}
	if o.p.Registry != nil {
		n, err := o.p.Registry.MarkSeen(persistCtx, res.processed)
		if err != nil {
			slog.Warn("mark listings seen failed", "jobType", src.JobType, "err", err)
		}
		res.newListings = n
	}
	sink.PublishAll(persistCtx, o.p.Sinks, res.processed)
	return res, nil
}

// processListing reports whether the listing got a workspace and went
// through artifact generation. Artifact failures are logged, not fatal.
func (o *Orchestrator) processListing(ctx context.Context, l model.Listing, skills []string) bool {
	if ctx.Err() != nil {
		return false
	}
	dir, err := o.p.Allocator.Allocate(l.Slug)
	if err != nil {
		log.Printf("[orchestrator] %s: workspace: %v — skipping listing", l.URL, err)
		return false
	}
	res := o.p.Generator.Generate(ctx, l, dir, skills)
	if len(res.Errors) > 0 {
		log.Printf("[orchestrator] %s: %d artifact step(s) failed", l.URL, len(res.Errors))
	}
	log.Printf("[orchestrator] Processed: %s", l.Title)
	return true
}

// finish runs the post-source steps. Their failures are logged only.
func (o *Orchestrator) finish(sum *Summary, skills []string) {
	if o.opts.MergedPath != "" && len(sum.Records) > 0 {
		n, err := o.p.Store.Merge(o.opts.MergedPath, sum.Records)
		if err != nil {
			log.Printf("[orchestrator] Merge into %s failed: %v", o.opts.MergedPath, err)
		} else {
			sum.MergedRows = n
		}
	}
	if o.opts.SummaryPath != "" && len(sum.Records) > 0 {
		if err := WriteSummary(o.opts.SummaryPath, sum.Records, skills); err != nil {
			log.Printf("[orchestrator] Summary %s failed: %v", o.opts.SummaryPath, err)
		}
	}
}

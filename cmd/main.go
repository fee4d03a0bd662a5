// jobmate-ingest-service
//
// Ingests justjoin.it listing-search pages:
//   - extracts every listing embedded in the page payload
//   - writes a per-listing workspace with the job description, a tailored
//     application document and a cover letter
//   - appends the records to the run and cumulative CSV stores and merges
//     them into a deduplicated view
//   - fans the batch out to the optional PostgreSQL, ClickHouse, NATS and
//     Redis sinks
//
// With SCRAPE_INTERVAL_HOURS=0 it runs once and exits. Otherwise it runs on
// a cron schedule and serves /health, /runs/last and POST /runs.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"jobmate/ingest-service/internal/artifact"
	"jobmate/ingest-service/internal/config"
	"jobmate/ingest-service/internal/db"
	"jobmate/ingest-service/internal/pipeline"
	"jobmate/ingest-service/internal/scheduler"
	"jobmate/ingest-service/internal/scraper"
	"jobmate/ingest-service/internal/server"
	"jobmate/ingest-service/internal/sink"
	"jobmate/ingest-service/internal/tabular"
	"jobmate/ingest-service/internal/workspace"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ingest-service] Config error: %v", err)
	}
	sources, err := cfg.Sources()
	if err != nil {
		log.Fatalf("[ingest-service] Config error: %v", err)
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		log.Fatalf("[ingest-service] WORK_DIR: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Sinks ────────────────────────────────────────────────────────────────
	sinks, registry := connectSinks(ctx, cfg)
	defer func() {
		if err := sink.CloseAll(sinks); err != nil {
			log.Printf("[ingest-service] Closing sinks: %v", err)
		}
	}()

	// ── Pipeline ─────────────────────────────────────────────────────────────
	fetcher := scraper.NewFetcher(cfg.HTTPTimeout, cfg.FetchRetries, cfg.UserAgent)
	generator := artifact.NewGenerator(
		scraper.NewDescriptionFetcher(fetcher, cfg.DescriptionSelector),
		artifact.Options{
			BaseDir:   cfg.WorkDir,
			Template:  cfg.TemplateDocx,
			CertsFile: cfg.CertsFile,
			LinksFile: cfg.LinksFile,
			Profile: artifact.Profile{
				Name:       cfg.ApplicantName,
				SoftSkills: cfg.SoftSkills,
				Hobbies:    cfg.Hobbies,
			},
		},
	)

	opts := pipeline.Options{Workers: cfg.Workers}
	if cfg.MergeOutput {
		opts.MergedPath = cfg.MergedFile
		if opts.MergedPath == "" {
			opts.MergedPath = filepath.Join(cfg.WorkDir, tabular.MergedFile)
		}
	}
	if cfg.WriteSummary {
		opts.SummaryPath = filepath.Join(cfg.WorkDir, pipeline.SummaryFile)
	}

	ports := pipeline.Ports{
		Fetcher:   fetcher,
		Extractor: scraper.NewExtractor(cfg.DetailBaseURL, nil),
		Allocator: workspace.NewAllocator(cfg.WorkDir, nil),
		Generator: generator,
		Store:     tabular.NewWriter(cfg.WorkDir),
		Skills:    artifact.StaticSkills(cfg.Skills),
		Sinks:     sinks,
	}
	if registry != nil {
		ports.Registry = registry
	}
	orch := pipeline.New(sources, ports, opts)

	// ── One-shot ─────────────────────────────────────────────────────────────
	if cfg.ScrapeIntervalHours == 0 {
		log.Printf("[ingest-service] v%s one-shot run over %d sources", version, len(sources))
		sum, err := orch.Run(ctx)
		if err != nil {
			log.Fatalf("[ingest-service] Run failed: %v", err)
		}
		log.Printf("[ingest-service] Run %s done: processed=%d skipped=%d failedSources=%d",
			sum.RunID, sum.Processed, sum.Skipped, len(sum.FailedSources))
		return
	}

	// ── Daemon ───────────────────────────────────────────────────────────────
	sched := scheduler.New(orch, cfg.ScrapeIntervalHours)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[ingest-service] Scheduler: %v", err)
	}

	srv := server.New(orch, version)
	if err := srv.ListenAndServe(ctx, fmt.Sprintf(":%s", cfg.Port)); err != nil {
		log.Printf("[ingest-service] HTTP server error: %v", err)
		stop()
	}

	log.Println("[ingest-service] Shutting down…")
	sched.Stop()
	orch.Wait()
	log.Println("[ingest-service] Stopped.")
}

// connectSinks dials every configured sink. A sink that cannot be reached is
// logged and left out; the CSV stores remain the system of record.
func connectSinks(ctx context.Context, cfg *config.Config) ([]sink.Sink, *sink.Redis) {
	var (
		sinks    []sink.Sink
		registry *sink.Redis
	)

	if cfg.DatabaseURL != "" {
		log.Println("[ingest-service] Connecting to PostgreSQL…")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL, int32(cfg.Workers)+2)
		if err != nil {
			log.Printf("[ingest-service] PostgreSQL: %v — continuing without it", err)
		} else if pg, err := sink.NewPostgres(ctx, pool); err != nil {
			pool.Close()
			log.Printf("[ingest-service] PostgreSQL schema: %v — continuing without it", err)
		} else {
			sinks = append(sinks, pg)
			log.Println("[ingest-service] PostgreSQL connected ✓")
		}
	}

	if cfg.ClickHouseAddr != "" {
		log.Println("[ingest-service] Connecting to ClickHouse…")
		conn, err := db.NewClickHouseConn(ctx, db.ClickHouseOptions{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		})
		if err != nil {
			log.Printf("[ingest-service] ClickHouse: %v — continuing without it", err)
		} else if ch, err := sink.NewClickHouse(ctx, conn); err != nil {
			conn.Close()
			log.Printf("[ingest-service] ClickHouse schema: %v — continuing without it", err)
		} else {
			sinks = append(sinks, ch)
			log.Println("[ingest-service] ClickHouse connected ✓")
		}
	}

	if cfg.NATSURL != "" {
		log.Println("[ingest-service] Connecting to NATS…")
		nc, err := db.NewNATSConn(cfg.NATSURL, "ingest-service")
		if err != nil {
			log.Printf("[ingest-service] NATS: %v — continuing without it", err)
		} else {
			sinks = append(sinks, sink.NewNATS(nc, cfg.NATSSubject))
			log.Println("[ingest-service] NATS connected ✓")
		}
	}

	if cfg.RedisURL != "" {
		log.Println("[ingest-service] Connecting to Redis…")
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, "ingest-service")
		if err != nil {
			log.Printf("[ingest-service] Redis: %v — continuing without it", err)
		} else {
			registry = sink.NewRedis(rdb)
			sinks = append(sinks, registry)
			log.Println("[ingest-service] Redis connected ✓")
		}
	}

	return sinks, registry
}

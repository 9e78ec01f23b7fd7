package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/patchgest/internal/fetch"
	"github.com/dgallion1/patchgest/internal/parser"
	"github.com/dgallion1/patchgest/internal/patchdoc"
	"github.com/dgallion1/patchgest/internal/store"
)

// Outcome is what happened to one version.
type Outcome string

const (
	OutcomeAdded    Outcome = "added"
	OutcomeUpdated  Outcome = "updated"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeNotFound Outcome = "not_found"
	OutcomeTooShort Outcome = "too_short"
	OutcomeFailed   Outcome = "failed"
)

// Result reports the processing of one version.
type Result struct {
	Version  string  `json:"version"`
	Outcome  Outcome `json:"outcome"`
	URL      string  `json:"url,omitempty"`
	Sections int     `json:"sections"`
	Err      error   `json:"-"`
}

// PageFetcher downloads the announcement page for a version.
type PageFetcher interface {
	FetchPage(ctx context.Context, v fetch.Version) (*fetch.Page, error)
}

// PatchStore persists a patch together with its sections.
type PatchStore interface {
	SavePatch(ctx context.Context, p store.Patch, blocks []patchdoc.Block) (store.Outcome, error)
}

// Mirror copies parsed sections to a secondary store.
type Mirror interface {
	PutBlocks(ctx context.Context, version, sourceURL string, blocks []patchdoc.Block) error
}

// Worker fetches, parses and stores patch versions.
type Worker struct {
	fetcher PageFetcher
	store   PatchStore
	mirror  Mirror
	log     *slog.Logger

	minContentChars int
	backoff         func(int) time.Duration
}

// NewWorker creates a worker. mirror may be nil.
func NewWorker(f PageFetcher, s PatchStore, mirror Mirror, log *slog.Logger, minContentChars int) *Worker {
	return &Worker{
		fetcher:         f,
		store:           s,
		mirror:          mirror,
		log:             log,
		minContentChars: minContentChars,
		backoff:         Backoff,
	}
}

// Run processes versions in order and returns one result per version. It
// stops early only when ctx is cancelled.
func (w *Worker) Run(ctx context.Context, versions []fetch.Version) ([]Result, error) {
	results := make([]Result, 0, len(versions))
	for _, v := range versions {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, w.ProcessVersion(ctx, v, nil))
	}
	return results, nil
}

// Process runs a queued job to completion.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	log.Info("job started", "versions", len(job.Versions))

	for _, raw := range job.Versions {
		if ctx.Err() != nil {
			job.AddError("cancelled")
			break
		}
		v, err := fetch.ParseVersion(raw)
		if err != nil {
			job.AddError(err.Error())
			job.Record(Result{Version: raw, Outcome: OutcomeFailed, Err: err})
			continue
		}
		job.SetCurrent(v.String())
		r := w.ProcessVersion(ctx, v, job)
		if r.Err != nil {
			job.AddError(fmt.Sprintf("%s: %s", r.Version, r.Err))
		}
		job.Record(r)
	}

	job.SetCurrent("")
	job.Finish()
	snap := job.Snapshot()
	log.Info("job finished",
		"status", snap.Status,
		"added", snap.Progress.Added,
		"updated", snap.Progress.Updated,
		"skipped", snap.Progress.Skipped,
		"not_found", snap.Progress.NotFound,
		"sections", snap.Progress.Sections,
	)
}

// ProcessVersion handles one version end to end. job may be nil.
func (w *Worker) ProcessVersion(ctx context.Context, v fetch.Version, job *Job) Result {
	version := v.String()
	log := w.log.With("version", version)
	res := Result{Version: version}
	setStatus := func(s JobStatus) {
		if job != nil {
			job.SetStatus(s, string(s)+" "+version)
		}
	}

	setStatus(StatusFetching)
	page, err := withRetry(ctx, w.backoff, func(attempt int, err error) {
		log.Warn("retryable fetch error", "attempt", attempt, "error", err)
	}, func() (*fetch.Page, error) {
		return w.fetcher.FetchPage(ctx, v)
	})
	if errors.Is(err, fetch.ErrNotFound) {
		log.Info("patch page not found")
		res.Outcome = OutcomeNotFound
		return res
	}
	if err != nil {
		log.Error("fetch failed", "error", err)
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	res.URL = page.URL

	content, err := fetch.Isolate(page.Body)
	if err != nil {
		log.Error("isolate failed", "url", page.URL, "error", err)
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	if len([]rune(strings.TrimSpace(content.RawText))) < w.minContentChars {
		log.Warn("content too short", "url", page.URL, "chars", len([]rune(content.RawText)))
		res.Outcome = OutcomeTooShort
		return res
	}

	setStatus(StatusParsing)
	result := parser.Parse(content.RawHTML, content.RawText)

	setStatus(StatusStoring)
	outcome, err := w.store.SavePatch(ctx, store.Patch{
		Version:     version,
		SourceURL:   page.URL,
		SourceSlug:  fetch.SlugFromURL(page.URL),
		RawText:     content.RawText,
		RawHTML:     content.RawHTML,
		ContentHash: fetch.ContentHash(content.RawText, content.RawHTML),
	}, result.Blocks)
	if err != nil {
		log.Error("save failed", "error", err)
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	switch outcome {
	case store.OutcomeUnchanged:
		log.Info("patch unchanged", "url", page.URL)
		res.Outcome = OutcomeSkipped
		return res
	case store.OutcomeAdded:
		res.Outcome = OutcomeAdded
	default:
		res.Outcome = OutcomeUpdated
	}
	res.Sections = len(result.Blocks)
	if res.Sections == 0 {
		log.Warn("no blocks parsed", "url", page.URL)
		if job != nil {
			job.AddError(version + ": no blocks parsed")
		}
	}

	// The mirror follows sqlite even when nothing was parsed, so stale
	// sections do not outlive a page change.
	if w.mirror != nil {
		if err := w.mirror.PutBlocks(ctx, version, page.URL, result.Blocks); err != nil {
			// The sqlite copy is authoritative; a mirror failure is reported
			// but does not fail the version.
			log.Warn("mirror write failed", "error", err)
			if job != nil {
				job.AddError(version + ": mirror: " + err.Error())
			}
		}
	}
	log.Info("patch stored", "outcome", res.Outcome, "url", page.URL, "sections", res.Sections)
	return res
}

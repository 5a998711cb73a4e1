// Package sweep drives retention runs: listing, classification, policy
// computation, and bounded-parallel deletion with per-item outcomes.
package sweep

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ghcr-tools/pkgsweep/internal/core"
)

const defaultConcurrency = 2

// Phase is the stage a run has reached.
type Phase string

const (
	PhaseListing        Phase = "listing"
	PhaseClassifying    Phase = "classifying"
	PhasePolicyComputed Phase = "policy_computed"
	PhaseDeleting       Phase = "deleting"
	PhaseReported       Phase = "reported"
)

// Options configures one retention run.
type Options struct {
	Owner     string
	Package   string
	KeepCount int
	DryRun    bool

	// Concurrency bounds outstanding delete requests. Defaults to 2; the
	// registry rate-limits, so keep it small.
	Concurrency int

	// Timeout is an optional overall run deadline. Zero means none; per-call
	// retry bounds still apply.
	Timeout time.Duration
}

// Outcome records the result of one attempted deletion.
type Outcome struct {
	ID  string
	Err error
}

func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Report describes one retention run. Aborted runs carry the phase they
// failed in and an empty outcome list: no deletions were attempted.
type Report struct {
	Owner     string
	Package   string
	KeepCount int
	DryRun    bool
	Phase     Phase

	Total    int // versions seen
	Untagged int
	Retained int

	Selected []core.Version
	Outcomes []Outcome

	// Truncated is set when cancellation stopped dispatch before every
	// selected version was attempted.
	Truncated bool
}

// Attempted returns the number of deletions attempted.
func (r *Report) Attempted() int {
	return len(r.Outcomes)
}

// Succeeded returns the number of successful deletions.
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the number of failed deletions.
func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Executor runs retention sweeps against one registry backend.
type Executor struct {
	reg core.Registry
	log zerolog.Logger
}

// New creates an Executor.
func New(reg core.Registry, log zerolog.Logger) *Executor {
	return &Executor{reg: reg, log: log}
}

// Run executes one retention sweep. It lists every version of the package,
// classifies them, computes the deletion set, and unless DryRun is set
// deletes each selected version, recording an outcome per id.
//
// A listing, classification, or policy failure aborts the run before any
// deletion. A failed deletion is recorded and does not stop the others.
// Cancellation stops dispatching new deletions; the truncated report still
// covers everything attempted, returned alongside the context error.
func (e *Executor) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{
		Owner:     opts.Owner,
		Package:   opts.Package,
		KeepCount: opts.KeepCount,
		DryRun:    opts.DryRun,
	}

	policy := core.RetentionPolicy{Owner: opts.Owner, Package: opts.Package, KeepCount: opts.KeepCount}
	if err := policy.Validate(); err != nil {
		return report, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	report.Phase = PhaseListing
	e.log.Info().Str("owner", opts.Owner).Str("package", opts.Package).Msg("listing versions")
	records, err := e.reg.ListVersions(ctx, opts.Owner, opts.Package)
	if err != nil {
		return report, err
	}

	report.Phase = PhaseClassifying
	versions, err := core.Classify(records)
	if err != nil {
		return report, err
	}
	report.Total = len(versions)
	for _, v := range versions {
		if v.Untagged() {
			report.Untagged++
		}
	}

	selected, err := core.SelectForDeletion(versions, opts.KeepCount)
	if err != nil {
		return report, err
	}
	report.Phase = PhasePolicyComputed
	report.Selected = selected
	report.Retained = report.Untagged - len(selected)

	e.log.Info().
		Int("total", report.Total).
		Int("untagged", report.Untagged).
		Int("retained", report.Retained).
		Int("selected", len(selected)).
		Bool("dry_run", opts.DryRun).
		Msg("deletion set computed")

	if opts.DryRun {
		report.Phase = PhaseReported
		return report, nil
	}

	report.Phase = PhaseDeleting
	e.deleteAll(ctx, opts, report)
	report.Phase = PhaseReported

	if report.Truncated {
		return report, ctx.Err()
	}
	return report, nil
}

func (e *Executor) deleteAll(ctx context.Context, opts Options, report *Report) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, v := range report.Selected {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				report.Truncated = true
				mu.Unlock()
				return
			}

			// The select can win the semaphore after cancellation; never
			// issue a deletion once the run is canceled.
			if ctx.Err() != nil {
				mu.Lock()
				report.Truncated = true
				mu.Unlock()
				return
			}

			err := e.reg.DeleteVersion(ctx, opts.Owner, opts.Package, id)
			mu.Lock()
			report.Outcomes = append(report.Outcomes, Outcome{ID: id, Err: err})
			mu.Unlock()

			if err != nil {
				e.log.Error().Str("id", id).Err(err).Msg("delete failed")
			} else {
				e.log.Debug().Str("id", id).Msg("deleted")
			}
		}(v.ID)
	}
	wg.Wait()

	// Stable report order regardless of worker scheduling
	sort.Slice(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].ID < report.Outcomes[j].ID
	})
}

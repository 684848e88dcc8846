package application

import (
	"context"
	"strings"
	"time"

	"github.com/deploykit/dpm-cli/internal/domain"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Verdict is the terminal outcome of one pipeline phase.
type Verdict int

const (
	VerdictSucceeded Verdict = iota
	VerdictFailed
	VerdictNoChange
)

const defaultInterval = 2 * time.Second

// Tracker watches a deployment through repeated project snapshots until
// every pipeline phase (commit, rollout start, builds, stage convergence,
// routes) reaches a terminal state. Polling is observation-only: it never
// mutates the remote project and is safe to interrupt at any time.
type Tracker struct {
	gw       domain.Gateway
	out      domain.Narrator
	sleep    domain.Sleeper
	log      *zap.Logger
	interval time.Duration
	settle   time.Duration
	now      func() time.Time
}

// NewTracker builds a tracker polling on the given interval. A zero
// interval falls back to the default; a zero settle falls back to six
// intervals, the time image builds take to register remotely.
func NewTracker(gw domain.Gateway, out domain.Narrator, sleep domain.Sleeper, log *zap.Logger, interval, settle time.Duration) *Tracker {
	if interval <= 0 {
		interval = defaultInterval
	}
	if settle <= 0 {
		settle = 6 * interval
	}
	return &Tracker{
		gw: gw, out: out, sleep: sleep, log: log,
		interval: interval,
		settle:   settle,
		now:      time.Now,
	}
}

// WaitForDeployment runs the phases in pipeline order and reports whether
// the deployment went through. A no-change revision or a commit failure
// stops the pipeline immediately; a build failure stops it before stage
// convergence. Rollout-start and convergence verdicts never gate
// progression, and the route check is diagnostic only.
func (t *Tracker) WaitForDeployment(ctx context.Context, ref domain.ProjectRef) bool {
	start := t.now()

	switch t.waitCommit(ctx, ref) {
	case VerdictNoChange, VerdictFailed:
		return false
	}

	t.waitRolloutStart(ctx, ref)
	if t.waitBuilds(ctx, ref) == VerdictFailed {
		return false
	}
	t.waitConvergence(ctx, ref)
	t.checkRoutes(ctx, ref)

	t.out.Finished("Deployment finished in %s.", strings.TrimSpace(humanize.RelTime(start, t.now(), "", "")))
	return true
}

// waitCommit polls until the last revision leaves the transient "created"
// state. A missing revision or a failed fetch is conservatively terminal.
func (t *Tracker) waitCommit(ctx context.Context, ref domain.ProjectRef) Verdict {
	for {
		p, err := t.gw.GetProject(ctx, ref)
		if err != nil || p.LastRevision == nil {
			if err != nil {
				t.log.Warn("snapshot fetch failed", zap.String("project", ref.Name), zap.Error(err))
			}
			t.out.Failure("No project revision found, exiting...")
			return VerdictFailed
		}

		rev := p.LastRevision
		switch rev.Status {
		case domain.RevisionNoChange:
			t.out.Warn("No changes to commit, exiting...")
			return VerdictNoChange
		case domain.RevisionFailed:
			t.out.Failure("Revision #%d failed to commit, exiting...", rev.Number)
			return VerdictFailed
		case domain.RevisionCommitted:
			t.out.Success("Revision #%d committed successfully", rev.Number)
			return VerdictSucceeded
		default:
			// created, or a status this client does not know yet
			t.out.Progress("Waiting for Revision #%d to be committed...", rev.Number)
			if t.sleep.Sleep(ctx, t.interval) != nil {
				return VerdictFailed
			}
		}
	}
}

// waitRolloutStart polls until some stage starts updating, or until every
// stage has already settled after a minimum of six attempts. The second
// exit tolerates the race where the remote pipeline outruns the polling
// interval and the rollout is over before it is ever observed starting.
func (t *Tracker) waitRolloutStart(ctx context.Context, ref domain.ProjectRef) Verdict {
	attempts := 0
	for {
		p, err := t.gw.GetProject(ctx, ref)
		if err != nil {
			t.log.Warn("snapshot fetch failed", zap.String("project", ref.Name), zap.Error(err))
			t.out.Failure("Failed to get project details!")
			return VerdictFailed
		}

		updating := false
		settled := true
		for _, s := range p.Stages {
			switch s.Status {
			case domain.StageUpdating, domain.StageDegraded:
				updating = true
			}
			switch s.Status {
			case domain.StageReady, domain.StageError:
			default:
				settled = false
			}
		}

		if updating || (attempts > 5 && settled) {
			return VerdictSucceeded
		}

		t.out.Progress("Waiting for project to start updating...")
		if t.sleep.Sleep(ctx, t.interval) != nil {
			return VerdictFailed
		}
		attempts++
	}
}

// waitBuilds is a no-op unless the current revision's spec requests image
// builds. It fails fast on the first errored build rather than waiting for
// the rest to finish.
func (t *Tracker) waitBuilds(ctx context.Context, ref domain.ProjectRef) Verdict {
	p, err := t.gw.GetProject(ctx, ref)
	if err != nil {
		t.log.Warn("snapshot fetch failed", zap.String("project", ref.Name), zap.Error(err))
		t.out.Failure("Failed to get project details!")
		return VerdictFailed
	}
	if !p.LastRevision.WantsBuilds() {
		return VerdictSucceeded
	}

	t.out.Progress("Revision expects one or more images to be built, this can take several minutes...")
	if t.sleep.Sleep(ctx, t.settle) != nil {
		return VerdictFailed
	}

	messaged := false
	for {
		p, err := t.gw.GetProject(ctx, ref)
		if err != nil {
			t.log.Warn("snapshot fetch failed", zap.String("project", ref.Name), zap.Error(err))
			t.out.Failure("Failed to get project details!")
			return VerdictFailed
		}

		var updating, ready, failed int
		for _, b := range p.Builds {
			switch b.Status {
			case domain.BuildError:
				t.out.Failure("Build '%s' operation failed!", b.Name)
				failed++
				ready++ // errored builds are terminal, so they count as finished
			case domain.BuildSuccess:
				t.out.Success("Build '%s' operation succeeded!", b.Name)
				ready++
			default:
				// pending, updating, or unrecognized
				updating++
			}
		}

		if failed > 0 {
			t.out.Warn("Project '%s' failed to build images! Exiting...", p.Name)
			return VerdictFailed
		}
		if updating > 0 && !messaged {
			t.out.Plain("Waiting for image-builds to finish, this can take several minutes...")
			messaged = true
			continue
		}
		if ready == len(p.Builds) {
			t.out.Success("All builds are finished!")
			return VerdictSucceeded
		}
		if t.sleep.Sleep(ctx, t.interval) != nil {
			return VerdictFailed
		}
	}
}

// waitConvergence polls until no stage is building and every stage has
// reached healthy or error. A stage ending in error counts as converged
// here; failure surfacing is left to the per-route check.
func (t *Tracker) waitConvergence(ctx context.Context, ref domain.ProjectRef) Verdict {
	t.out.Progress("Waiting for all stages to finish updating...")
	for {
		p, err := t.gw.GetProject(ctx, ref)
		if err != nil {
			t.log.Warn("snapshot fetch failed", zap.String("project", ref.Name), zap.Error(err))
			t.out.Failure("Failed to get project details!")
			return VerdictFailed
		}

		building := false
		finished := true
		for _, s := range p.Stages {
			if s.Status == domain.StageBuilding {
				building = true
			}
			switch s.Status {
			case domain.StageHealthy, domain.StageError:
			default:
				finished = false
			}
		}

		if !building && finished {
			t.out.Success("Project '%s' finished being updated!", p.Name)
			return VerdictSucceeded
		}
		if t.sleep.Sleep(ctx, t.interval) != nil {
			return VerdictFailed
		}
	}
}

// checkRoutes reports route reachability from a single snapshot. It never
// polls and its outcome never feeds back into the pipeline verdict.
func (t *Tracker) checkRoutes(ctx context.Context, ref domain.ProjectRef) {
	p, err := t.gw.GetProject(ctx, ref)
	if err != nil {
		t.log.Warn("snapshot fetch failed", zap.String("project", ref.Name), zap.Error(err))
		t.out.Failure("Failed to get project details!")
		return
	}

	for _, r := range p.Routes {
		if r.Status == domain.RouteError {
			t.out.Failure("Route '%s' at stage '%s' failed to start!", r.Name, r.Stage)
			t.out.Plain("Status is %s, inspect deployment with 'dpm describe project %s'!",
				strings.ToUpper(string(r.Status)), p.Name)
			continue
		}

		urls := r.CandidateURLs()
		plural := ""
		if len(urls) > 1 {
			plural = "s"
		}
		t.out.Success("Route '%s' is %s and available at URL%s:", r.Name, strings.ToUpper(string(r.Status)), plural)
		for _, u := range urls {
			t.out.URL(u)
		}
	}
}

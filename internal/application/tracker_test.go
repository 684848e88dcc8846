package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/deploykit/dpm-cli/internal/domain"
	"go.uber.org/zap"
)

const testInterval = 2 * time.Second

func newTestTracker(gw *domain.MockGateway) (*Tracker, *domain.MockNarrator, *domain.MockSleeper) {
	out := &domain.MockNarrator{}
	sleep := &domain.MockSleeper{}
	return NewTracker(gw, out, sleep, zap.NewNop(), testInterval, 0), out, sleep
}

func snapWithRevision(status domain.RevisionStatus) domain.Project {
	return domain.Project{
		Name:         "test-project",
		LastRevision: &domain.Revision{Number: 1, Status: status},
	}
}

func snapWithStages(statuses ...domain.StageStatus) domain.Project {
	p := domain.Project{Name: "test-project"}
	for i, s := range statuses {
		p.Stages = append(p.Stages, domain.Stage{Name: string(rune('a' + i)), Status: s})
	}
	return p
}

func specWithBuilds() *domain.ProjectSpec {
	return &domain.ProjectSpec{
		Name: "test-project",
		Resources: &domain.ResourcesSpec{
			Builds: []domain.BuildSpec{{Name: "img", Stage: "prod"}},
		},
	}
}

func snapWithBuilds(spec *domain.ProjectSpec, statuses ...domain.BuildStatus) domain.Project {
	p := domain.Project{
		Name:         "test-project",
		LastRevision: &domain.Revision{Number: 1, Status: domain.RevisionCommitted, Spec: spec},
	}
	for i, s := range statuses {
		p.Builds = append(p.Builds, domain.Build{Name: "build-" + string(rune('a'+i)), Status: s})
	}
	return p
}

func countLines(lines []string, substr string) int {
	n := 0
	for _, l := range lines {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

func lineIndex(lines []string, substr string) int {
	for i, l := range lines {
		if strings.Contains(l, substr) {
			return i
		}
	}
	return -1
}

func TestWaitCommit_StatusVerdicts(t *testing.T) {
	cases := []struct {
		status domain.RevisionStatus
		want   Verdict
	}{
		{domain.RevisionNoChange, VerdictNoChange},
		{domain.RevisionFailed, VerdictFailed},
		{domain.RevisionCommitted, VerdictSucceeded},
	}

	for _, tc := range cases {
		gw := &domain.MockGateway{Snapshots: []domain.Project{snapWithRevision(tc.status)}}
		tr, _, sleep := newTestTracker(gw)

		got := tr.waitCommit(context.Background(), domain.ProjectRef{Name: "test-project"})
		if got != tc.want {
			t.Errorf("status %s: verdict = %v, want %v", tc.status, got, tc.want)
		}
		if len(sleep.Slept) != 0 {
			t.Errorf("status %s: expected no sleeps, got %d", tc.status, len(sleep.Slept))
		}
	}
}

func TestWaitCommit_PollsWhileCreated(t *testing.T) {
	gw := &domain.MockGateway{Snapshots: []domain.Project{
		snapWithRevision(domain.RevisionCreated),
		snapWithRevision(domain.RevisionCreated),
		snapWithRevision(domain.RevisionCommitted),
	}}
	tr, out, sleep := newTestTracker(gw)

	got := tr.waitCommit(context.Background(), domain.ProjectRef{Name: "test-project"})
	if got != VerdictSucceeded {
		t.Fatalf("verdict = %v, want VerdictSucceeded", got)
	}
	if gw.Calls != 3 {
		t.Errorf("expected 3 snapshot fetches, got %d", gw.Calls)
	}
	if len(sleep.Slept) != 2 {
		t.Errorf("expected 2 sleeps, got %d", len(sleep.Slept))
	}
	if n := countLines(out.Lines, "Waiting for Revision #1 to be committed"); n != 2 {
		t.Errorf("expected 2 waiting lines, got %d (%v)", n, out.Lines)
	}
	wait := lineIndex(out.Lines, "Waiting for Revision #1")
	done := lineIndex(out.Lines, "committed successfully")
	if done == -1 || wait == -1 || wait > done {
		t.Errorf("waiting narration must precede committed narration: %v", out.Lines)
	}
}

func TestWaitCommit_UnknownStatusKeepsPolling(t *testing.T) {
	gw := &domain.MockGateway{Snapshots: []domain.Project{
		snapWithRevision(domain.RevisionUnknown),
		snapWithRevision(domain.RevisionCommitted),
	}}
	tr, _, sleep := newTestTracker(gw)

	if got := tr.waitCommit(context.Background(), domain.ProjectRef{Name: "test-project"}); got != VerdictSucceeded {
		t.Fatalf("verdict = %v, want VerdictSucceeded", got)
	}
	if len(sleep.Slept) != 1 {
		t.Errorf("unknown status should poll again, got %d sleeps", len(sleep.Slept))
	}
}

func TestWaitCommit_NoRevision(t *testing.T) {
	gw := &domain.MockGateway{Snapshots: []domain.Project{{Name: "test-project"}}}
	tr, out, sleep := newTestTracker(gw)

	if got := tr.waitCommit(context.Background(), domain.ProjectRef{Name: "test-project"}); got != VerdictFailed {
		t.Fatalf("verdict = %v, want VerdictFailed", got)
	}
	if gw.Calls != 1 || len(sleep.Slept) != 0 {
		t.Errorf("expected a single fetch and no polling, got %d calls, %d sleeps", gw.Calls, len(sleep.Slept))
	}
	if countLines(out.Lines, "No project revision found") != 1 {
		t.Errorf("missing no-revision narration: %v", out.Lines)
	}
}

func TestWaitCommit_FetchError(t *testing.T) {
	gw := &domain.MockGateway{Err: &domain.APIError{Status: 500, Detail: "boom"}}
	tr, _, _ := newTestTracker(gw)

	if got := tr.waitCommit(context.Background(), domain.ProjectRef{Name: "test-project"}); got != VerdictFailed {
		t.Fatalf("verdict = %v, want VerdictFailed", got)
	}
}

func TestWaitRolloutStart_UpdatingStage(t *testing.T) {
	gw := &domain.MockGateway{Snapshots: []domain.Project{
		snapWithStages(domain.StageUpdating, domain.StageReady),
	}}
	tr, _, sleep := newTestTracker(gw)

	if got := tr.waitRolloutStart(context.Background(), domain.ProjectRef{Name: "test-project"}); got != VerdictSucceeded {
		t.Fatalf("verdict = %v, want VerdictSucceeded", got)
	}
	if len(sleep.Slept) != 0 {
		t.Errorf("expected no sleeps, got %d", len(sleep.Slept))
	}
}

func TestWaitRolloutStart_ToleratesMissedRollout(t *testing.T) {
	// Every snapshot shows stages already settled: the rollout finished
	// before it was ever observed starting.
	gw := &domain.MockGateway{Snapshots: []domain.Project{
		snapWithStages(domain.StageReady, domain.StageError),
	}}
	tr, _, sleep := newTestTracker(gw)

	if got := tr.waitRolloutStart(context.Background(), domain.ProjectRef{Name: "test-project"}); got != VerdictSucceeded {
		t.Fatalf("verdict = %v, want VerdictSucceeded", got)
	}
	if len(sleep.Slept) != 6 {
		t.Errorf("expected 6 polling attempts before the settled exit, got %d sleeps", len(sleep.Slept))
	}
}

func TestWaitRolloutStart_FetchError(t *testing.T) {
	gw := &domain.MockGateway{Err: &domain.APIError{Status: 502, Detail: "bad gateway"}}
	tr, _, _ := newTestTracker(gw)

	if got := tr.waitRolloutStart(context.Background(), domain.ProjectRef{Name: "test-project"}); got != VerdictFailed {
		t.Fatalf("verdict = %v, want VerdictFailed", got)
	}
}

func TestWaitBuilds_NoBuildResources(t *testing.T) {
	spec := &domain.ProjectSpec{Name: "test-project"}
	gw := &domain.MockGateway{Snapshots: []domain.Project{snapWithBuilds(spec)}}
	tr, _, sleep := newTestTracker(gw)

	if got := tr.waitBuilds(context.Background(), domain.ProjectRef{Name: "test-project"}); got != VerdictSucceeded {
		t.Fatalf("verdict = %v, want VerdictSucceeded", got)
	}
	if gw.Calls != 1 {
		t.Errorf("no-op phase must make exactly one fetch, got %d", gw.Calls)
	}
	if len(sleep.Slept) != 0 {
		t.Errorf("no-op phase must not sleep, got %d", len(sleep.Slept))
	}
}

func TestWaitBuilds_FailFast(t *testing.T) {
	spec := specWithBuilds()
	gw := &domain.MockGateway{Snapshots: []domain.Project{
		snapWithBuilds(spec, domain.BuildUpdating, domain.BuildUpdating),
		snapWithBuilds(spec, domain.BuildError, domain.BuildUpdating),
	}}
	tr, out, _ := newTestTracker(gw)

	if got := tr.waitBuilds(context.Background(), domain.ProjectRef{Name: "test-project"}); got != VerdictFailed {
		t.Fatalf("verdict = %v, want VerdictFailed", got)
	}
	if countLines(out.Lines, "failed to build images") != 1 {
		t.Errorf("missing fail-fast narration: %v", out.Lines)
	}
}

func TestWaitBuilds_SucceedsWhenAllReady(t *testing.T) {
	spec := specWithBuilds()
	gw := &domain.MockGateway{Snapshots: []domain.Project{
		snapWithBuilds(spec, domain.BuildSuccess, domain.BuildUpdating),
		snapWithBuilds(spec, domain.BuildSuccess, domain.BuildSuccess),
	}}
	tr, out, _ := newTestTracker(gw)

	if got := tr.waitBuilds(context.Background(), domain.ProjectRef{Name: "test-project"}); got != VerdictSucceeded {
		t.Fatalf("verdict = %v, want VerdictSucceeded", got)
	}
	if countLines(out.Lines, "All builds are finished!") != 1 {
		t.Errorf("missing completion narration: %v", out.Lines)
	}
}

func TestWaitBuilds_NarratesWaitExactlyOnce(t *testing.T) {
	spec := specWithBuilds()
	gw := &domain.MockGateway{Snapshots: []domain.Project{
		snapWithBuilds(spec, domain.BuildPending),
		snapWithBuilds(spec, domain.BuildPending),
		snapWithBuilds(spec, domain.BuildSuccess),
	}}
	tr, out, sleep := newTestTracker(gw)

	if got := tr.waitBuilds(context.Background(), domain.ProjectRef{Name: "test-project"}); got != VerdictSucceeded {
		t.Fatalf("verdict = %v, want VerdictSucceeded", got)
	}
	if n := countLines(out.Lines, "Waiting for image-builds to finish"); n != 1 {
		t.Errorf("waiting message must appear exactly once, got %d (%v)", n, out.Lines)
	}
	if countLines(out.Lines, "All builds are finished!") != 1 {
		t.Errorf("missing completion narration: %v", out.Lines)
	}
	if len(sleep.Slept) == 0 || sleep.Slept[0] != 6*testInterval {
		t.Errorf("expected the settle pause of %v first, got %v", 6*testInterval, sleep.Slept)
	}
}

func TestWaitConvergence_WaitsForAllStages(t *testing.T) {
	gw := &domain.MockGateway{Snapshots: []domain.Project{
		snapWithStages(domain.StageBuilding, domain.StageHealthy),
		snapWithStages(domain.StageUpdating, domain.StageHealthy),
		snapWithStages(domain.StageHealthy, domain.StageHealthy),
	}}
	tr, out, sleep := newTestTracker(gw)

	if got := tr.waitConvergence(context.Background(), domain.ProjectRef{Name: "test-project"}); got != VerdictSucceeded {
		t.Fatalf("verdict = %v, want VerdictSucceeded", got)
	}
	if len(sleep.Slept) != 2 {
		t.Errorf("expected 2 sleeps, got %d", len(sleep.Slept))
	}
	if countLines(out.Lines, "finished being updated") != 1 {
		t.Errorf("missing convergence narration: %v", out.Lines)
	}
}

func TestWaitConvergence_ErrorStageCountsAsConverged(t *testing.T) {
	gw := &domain.MockGateway{Snapshots: []domain.Project{
		snapWithStages(domain.StageHealthy, domain.StageError),
	}}
	tr, _, _ := newTestTracker(gw)

	if got := tr.waitConvergence(context.Background(), domain.ProjectRef{Name: "test-project"}); got != VerdictSucceeded {
		t.Fatalf("an errored stage still counts as converged, got %v", got)
	}
}

func TestCheckRoutes_ErrorRoute(t *testing.T) {
	gw := &domain.MockGateway{Snapshots: []domain.Project{{
		Name: "test-project",
		Routes: []domain.Route{{
			Name:          "web",
			Stage:         "prod",
			Status:        domain.RouteError,
			URL:           "https://web.example.com",
			CustomDomains: []string{"a.example.com", "b.example.com"},
		}},
	}}}
	tr, out, _ := newTestTracker(gw)

	tr.checkRoutes(context.Background(), domain.ProjectRef{Name: "test-project"})

	if n := countLines(out.Lines, "Route 'web' at stage 'prod' failed to start!"); n != 1 {
		t.Errorf("expected exactly one failure line, got %d (%v)", n, out.Lines)
	}
	if countLines(out.Lines, "url|") != 0 {
		t.Errorf("failed route must not list candidate URLs: %v", out.Lines)
	}
}

func TestCheckRoutes_OnlineRoute(t *testing.T) {
	gw := &domain.MockGateway{Snapshots: []domain.Project{{
		Name: "test-project",
		Routes: []domain.Route{{
			Name:          "web",
			Stage:         "prod",
			Status:        domain.RouteOnline,
			URL:           "http://x",
			CustomDomains: []string{"web.example.com"},
		}},
	}}}
	tr, out, _ := newTestTracker(gw)

	tr.checkRoutes(context.Background(), domain.ProjectRef{Name: "test-project"})

	if n := countLines(out.Lines, "url|"); n != 2 {
		t.Fatalf("expected 2 reachable URLs, got %d (%v)", n, out.Lines)
	}
	custom := lineIndex(out.Lines, "https://web.example.com/")
	primary := lineIndex(out.Lines, "http://x")
	if custom == -1 || primary == -1 || custom > primary {
		t.Errorf("custom-domain URL must precede the primary URL: %v", out.Lines)
	}
	if countLines(out.Lines, "Route 'web' is ONLINE") != 1 {
		t.Errorf("missing online narration: %v", out.Lines)
	}
}

func TestWaitForDeployment_NoChangeShortCircuits(t *testing.T) {
	gw := &domain.MockGateway{Snapshots: []domain.Project{snapWithRevision(domain.RevisionNoChange)}}
	tr, _, _ := newTestTracker(gw)

	if tr.WaitForDeployment(context.Background(), domain.ProjectRef{Name: "test-project"}) {
		t.Fatal("no-change revision must not report a completed deployment")
	}
	if gw.Calls != 1 {
		t.Errorf("phases 2-5 must not fetch after no-change, got %d calls", gw.Calls)
	}
}

func TestWaitForDeployment_CommitFailureShortCircuits(t *testing.T) {
	gw := &domain.MockGateway{Snapshots: []domain.Project{snapWithRevision(domain.RevisionFailed)}}
	tr, _, _ := newTestTracker(gw)

	if tr.WaitForDeployment(context.Background(), domain.ProjectRef{Name: "test-project"}) {
		t.Fatal("failed commit must not report a completed deployment")
	}
	if gw.Calls != 1 {
		t.Errorf("phases 2-5 must not fetch after a failed commit, got %d calls", gw.Calls)
	}
}

func TestWaitForDeployment_BuildFailureStopsPipeline(t *testing.T) {
	spec := specWithBuilds()
	gw := &domain.MockGateway{Snapshots: []domain.Project{
		snapWithRevision(domain.RevisionCommitted),
		snapWithStages(domain.StageUpdating),
		snapWithBuilds(spec, domain.BuildUpdating),
		snapWithBuilds(spec, domain.BuildError),
	}}
	tr, out, _ := newTestTracker(gw)

	if tr.WaitForDeployment(context.Background(), domain.ProjectRef{Name: "test-project"}) {
		t.Fatal("build failure must not report a completed deployment")
	}
	if countLines(out.Lines, "finished being updated") != 0 {
		t.Errorf("stage convergence must not run after a build failure: %v", out.Lines)
	}
	if countLines(out.Lines, "Deployment finished") != 0 {
		t.Errorf("elapsed-time narration must not run after a build failure: %v", out.Lines)
	}
}

func TestWaitForDeployment_EndToEnd(t *testing.T) {
	online := domain.Project{
		Name: "test-project",
		Routes: []domain.Route{{
			Name: "web", Stage: "prod", Status: domain.RouteOnline, URL: "https://web.example.com",
		}},
	}
	gw := &domain.MockGateway{Snapshots: []domain.Project{
		snapWithRevision(domain.RevisionCreated),
		snapWithRevision(domain.RevisionCommitted),
		snapWithStages(domain.StageUpdating),
		snapWithRevision(domain.RevisionCommitted), // no build resources
		snapWithStages(domain.StageHealthy),
		online,
	}}
	tr, out, _ := newTestTracker(gw)

	if !tr.WaitForDeployment(context.Background(), domain.ProjectRef{Name: "test-project"}) {
		t.Fatalf("expected a completed deployment, narration: %v", out.Lines)
	}

	waiting := lineIndex(out.Lines, "Waiting for Revision #1 to be committed")
	committed := lineIndex(out.Lines, "committed successfully")
	converged := lineIndex(out.Lines, "finished being updated")
	route := lineIndex(out.Lines, "Route 'web' is ONLINE")
	finished := lineIndex(out.Lines, "Deployment finished in")

	for name, idx := range map[string]int{
		"waiting": waiting, "committed": committed, "converged": converged,
		"route": route, "finished": finished,
	} {
		if idx == -1 {
			t.Fatalf("missing %s narration: %v", name, out.Lines)
		}
	}
	if !(waiting < committed && committed < converged && converged < route && route < finished) {
		t.Errorf("narration out of phase order: %v", out.Lines)
	}
}

func TestWaitForDeployment_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := &domain.MockGateway{Snapshots: []domain.Project{snapWithRevision(domain.RevisionCreated)}}
	tr, _, _ := newTestTracker(gw)

	if tr.WaitForDeployment(ctx, domain.ProjectRef{Name: "test-project"}) {
		t.Fatal("cancelled context must abandon the poll loop")
	}
}

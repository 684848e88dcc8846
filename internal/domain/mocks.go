package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MockGateway replays a scripted snapshot sequence; the last snapshot
// repeats once the script is exhausted. Errs, when set for a call index,
// wins over the snapshot at that index.
type MockGateway struct {
	Snapshots []Project
	Errs      []error
	Err       error
	Calls     int

	Deployed     []ProjectSpec
	DeployResult Project
	DeployErr    error
}

func (m *MockGateway) GetProject(ctx context.Context, ref ProjectRef) (Project, error) {
	i := m.Calls
	m.Calls++
	if m.Err != nil {
		return Project{}, m.Err
	}
	if i < len(m.Errs) && m.Errs[i] != nil {
		return Project{}, m.Errs[i]
	}
	if len(m.Snapshots) == 0 {
		return Project{}, errors.New("mock: no snapshots scripted")
	}
	if i >= len(m.Snapshots) {
		i = len(m.Snapshots) - 1
	}
	return m.Snapshots[i], nil
}

func (m *MockGateway) DeployProject(ctx context.Context, spec ProjectSpec) (Project, error) {
	m.Deployed = append(m.Deployed, spec)
	if m.DeployErr != nil {
		return Project{}, m.DeployErr
	}
	return m.DeployResult, nil
}

// MockNarrator records every line tagged with its kind, so tests can
// assert on both content and ordering.
type MockNarrator struct {
	Lines []string
}

func (n *MockNarrator) add(kind, format string, args ...any) {
	n.Lines = append(n.Lines, kind+"|"+fmt.Sprintf(format, args...))
}

func (n *MockNarrator) Progress(format string, args ...any) { n.add("spin", format, args...) }
func (n *MockNarrator) Success(format string, args ...any)  { n.add("chk", format, args...) }
func (n *MockNarrator) Failure(format string, args ...any)  { n.add("err", format, args...) }
func (n *MockNarrator) Warn(format string, args ...any)     { n.add("wrn", format, args...) }
func (n *MockNarrator) Plain(format string, args ...any)    { n.add("plain", format, args...) }
func (n *MockNarrator) URL(url string)                      { n.add("url", "%s", url) }
func (n *MockNarrator) Finished(format string, args ...any) { n.add("watch", format, args...) }

// MockSleeper records requested sleep durations and returns immediately.
type MockSleeper struct {
	Slept []time.Duration
}

func (s *MockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Slept = append(s.Slept, d)
	return nil
}

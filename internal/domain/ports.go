package domain

import (
	"context"
	"time"
)

// Gateway is the snapshot-fetch side of the Deploy Manager API. Repeated
// calls carry no ordering guarantee beyond "most recent known state".
type Gateway interface {
	GetProject(ctx context.Context, ref ProjectRef) (Project, error)
}

// DeployGateway adds the one mutating call the deploy flow needs.
type DeployGateway interface {
	Gateway
	DeployProject(ctx context.Context, spec ProjectSpec) (Project, error)
}

// Narrator receives human-readable progress lines. One line per state
// transition or notable wait; ordering is part of the observable contract.
type Narrator interface {
	Progress(format string, args ...any)
	Success(format string, args ...any)
	Failure(format string, args ...any)
	Warn(format string, args ...any)
	Plain(format string, args ...any)
	URL(url string)
	Finished(format string, args ...any)
}

// Sleeper suspends between polls. Injectable so tests can drive the poll
// loops without wall-clock delay.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

package application

import (
	"context"
	"time"

	"github.com/deploykit/dpm-cli/internal/domain"
)

// SystemSleeper blocks on the wall clock, waking early on cancellation.
var SystemSleeper domain.Sleeper = systemSleeper{}

type systemSleeper struct{}

func (systemSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

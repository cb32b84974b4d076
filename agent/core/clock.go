package core

import (
	"context"
	"time"
)

//go:generate mockgen -destination=../clockmocks_test.go -package=agent_test github.com/kardolus/minebot/agent/core Clock
//go:generate mockgen -destination=../cycle/clockmocks_test.go -package=cycle_test github.com/kardolus/minebot/agent/core Clock
//go:generate mockgen -destination=../memory/clockmocks_test.go -package=memory_test github.com/kardolus/minebot/agent/core Clock
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type RealClock struct{}

func NewRealClock() *RealClock { return &RealClock{} }

func (c *RealClock) Now() time.Time { return time.Now() }

// Sleep blocks for d or until ctx is done, whichever comes first.
func (c *RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

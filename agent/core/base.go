package core

import (
	"time"

	"go.uber.org/zap"
)

// Base carries what every long-running component needs: a clock, a
// human-facing logger and a debug logger.
type Base struct {
	Clock Clock

	Out   *zap.SugaredLogger
	Debug *zap.SugaredLogger

	SyncOut   func()
	SyncDebug func()
}

type BaseOption func(*Base)

func WithHumanLogger(l *zap.SugaredLogger, sync func()) BaseOption {
	return func(b *Base) {
		if l != nil {
			b.Out = l
		}
		if sync != nil {
			b.SyncOut = sync
		}
	}
}

func WithDebugLogger(l *zap.SugaredLogger, sync func()) BaseOption {
	return func(b *Base) {
		if l != nil {
			b.Debug = l
		}
		if sync != nil {
			b.SyncDebug = sync
		}
	}
}

func NewBase(clock Clock, opts ...BaseOption) Base {
	b := Base{
		Clock: clock,
		Out:   zap.NewNop().Sugar(),
		Debug: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *Base) LogGoal(goal string) {
	b.Out.Infof("Goal: %s", goal)
	b.Debug.Infow("goal", "goal", goal)
}

func (b *Base) StartTimer() time.Time {
	return b.Clock.Now()
}

func (b *Base) FinishTimer(label string, start time.Time) {
	dur := b.Clock.Now().Sub(start)
	b.Debug.Infof("%s took %s", label, dur)
}

func (b *Base) Sync() {
	if b.SyncOut != nil {
		b.SyncOut()
	}
	if b.SyncDebug != nil {
		b.SyncDebug()
	}
}

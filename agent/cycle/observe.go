package cycle

import (
	"context"
	"sort"

	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/world"
	"go.uber.org/zap"
)

const (
	DefaultObserveRadius = 5
	DefaultEntityRadius  = 10
	DefaultSpatialRadius = 12
)

type Observer struct {
	world  world.World
	memory MemoryRecorder
	logger *zap.SugaredLogger

	observeRadius int
	entityRadius  float64
	spatialRadius int
}

type ObserverOption func(*Observer)

func WithObserverLogger(l *zap.SugaredLogger) ObserverOption {
	return func(o *Observer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRadii sets the block neighbourhood, entity and spatial-memory radii.
// Non-positive values keep the defaults.
func WithRadii(observe, entity, spatial int) ObserverOption {
	return func(o *Observer) {
		if observe > 0 {
			o.observeRadius = observe
		}
		if entity > 0 {
			o.entityRadius = float64(entity)
		}
		if spatial > 0 {
			o.spatialRadius = spatial
		}
	}
}

func NewObserver(w world.World, mem MemoryRecorder, opts ...ObserverOption) *Observer {
	o := &Observer{
		world:         w,
		memory:        mem,
		logger:        zap.NewNop().Sugar(),
		observeRadius: DefaultObserveRadius,
		entityRadius:  DefaultEntityRadius,
		spatialRadius: DefaultSpatialRadius,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Observe refreshes inventory and surroundings from the live world. When
// the world fails, the previous surroundings are kept.
func (o *Observer) Observe(ctx context.Context, state types.State) types.Update {
	inventory, sur, err := o.perceive(ctx)
	if err != nil {
		o.logger.Warnf("observe: %v", err)
		prev := state.Surroundings
		return types.Update{Surroundings: &prev}
	}

	if o.memory != nil {
		if blocks, err := o.world.ScanBlocks(ctx, sur.Position, o.spatialRadius); err != nil {
			o.logger.Warnf("observe: spatial scan: %v", err)
		} else {
			o.memory.RecordBlocks(solid(blocks))
		}
	}

	return types.Update{Inventory: inventory, Surroundings: &sur}
}

func (o *Observer) perceive(ctx context.Context) (map[string]int, types.Surroundings, error) {
	var sur types.Surroundings

	stacks, err := o.world.Inventory(ctx)
	if err != nil {
		return nil, sur, err
	}
	self, err := o.world.Self(ctx)
	if err != nil {
		return nil, sur, err
	}
	blocks, err := o.world.ScanBlocks(ctx, self.Position, o.observeRadius)
	if err != nil {
		return nil, sur, err
	}
	entities, err := o.world.Entities(ctx)
	if err != nil {
		return nil, sur, err
	}
	tick, err := o.world.TimeOfDay(ctx)
	if err != nil {
		return nil, sur, err
	}
	biome, err := o.world.Biome(ctx, self.Position)
	if err != nil {
		return nil, sur, err
	}

	sur = types.Surroundings{
		Blocks:    blockNames(blocks),
		Entities:  nearbyEntities(self, entities, o.entityRadius),
		Position:  self.Position,
		Health:    self.Health,
		Food:      self.Food,
		TimeOfDay: tick,
		IsDay:     world.IsDay(tick),
		Biome:     biome,
		Sleeping:  self.Sleeping,
	}
	return world.Totals(stacks), sur, nil
}

func solid(blocks []world.Block) []world.Block {
	out := make([]world.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Name != "" && b.Name != world.AirBlock {
			out = append(out, b)
		}
	}
	return out
}

// blockNames reduces the neighbourhood to a sorted set of names.
func blockNames(blocks []world.Block) []string {
	set := map[string]struct{}{}
	for _, b := range solid(blocks) {
		set[b.Name] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func nearbyEntities(self world.Entity, entities []world.Entity, radius float64) []string {
	out := []string{}
	for _, e := range entities {
		if e.ID == self.ID || e.Position.DistanceTo(self.Position) > radius {
			continue
		}
		name := e.Name
		if name == "" {
			name = e.Type
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

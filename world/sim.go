package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Sim is an in-memory world. It has no pathfinder unless enabled, which makes
// movement-dependent actions fall back to simulated results.
type Sim struct {
	mu sync.Mutex

	connected   bool
	pathfinding bool
	queryErr    error

	self      Entity
	blocks    map[string]Block
	entities  map[string]Entity
	inventory map[string]int
	tick      int64
	biome     string

	said   []string
	events chan ChatMessage
}

type SimOption func(*Sim)

func WithPathfinding(v bool) SimOption {
	return func(s *Sim) { s.pathfinding = v }
}

func WithPosition(p Vec3) SimOption {
	return func(s *Sim) { s.self.Position = p }
}

func WithBiome(b string) SimOption {
	return func(s *Sim) { s.biome = b }
}

func WithTimeOfDay(tick int64) SimOption {
	return func(s *Sim) { s.tick = tick }
}

func NewSim(opts ...SimOption) *Sim {
	s := &Sim{
		self: Entity{
			ID:     "self",
			Name:   "minebot",
			Type:   "player",
			Health: 20,
			Food:   20,
		},
		blocks:    make(map[string]Block),
		entities:  make(map[string]Entity),
		inventory: make(map[string]int),
		tick:      1000,
		biome:     "plains",
		events:    make(chan ChatMessage, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ World = (*Sim)(nil)

func (s *Sim) Connect(_ context.Context, cfg ConnectConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	if cfg.Username != "" {
		s.self.Name = cfg.Username
	}
	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *Sim) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// SetBlock places a block at pos. An air block removes whatever was there.
func (s *Sim) SetBlock(name string, pos Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos = pos.Floored()
	if name == AirBlock {
		delete(s.blocks, pos.Key())
		return
	}
	s.blocks[pos.Key()] = Block{Name: name, Position: pos}
}

func (s *Sim) AddEntity(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.ID] = e
}

func (s *Sim) Give(item string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[item] += count
}

func (s *Sim) SetTimeOfDay(tick int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = tick
}

func (s *Sim) SetHealth(health, food float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.self.Health = health
	s.self.Food = food
}

// FailQueries makes every read query return err until called with nil.
func (s *Sim) FailQueries(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr = err
}

// InjectChat delivers a chat message as if a player had typed it.
func (s *Sim) InjectChat(username, message string) {
	s.events <- ChatMessage{Username: username, Message: message}
}

// Said returns every chat line the bot has sent.
func (s *Sim) Said() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.said...)
}

func (s *Sim) Self(_ context.Context) (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return Entity{}, s.queryErr
	}
	return s.self, nil
}

func (s *Sim) Entities(_ context.Context) ([]Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	out := make([]Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Sim) Inventory(_ context.Context) ([]ItemStack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	names := make([]string, 0, len(s.inventory))
	for name, n := range s.inventory {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]ItemStack, 0, len(names))
	for i, name := range names {
		out = append(out, ItemStack{Name: name, Count: s.inventory[name], Slot: i})
	}
	return out, nil
}

func (s *Sim) FindBlock(_ context.Context, match BlockMatcher, maxDistance float64) (*Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}

	var (
		best     *Block
		bestDist = math.MaxFloat64
	)
	for _, b := range s.blocks {
		if !match(b) {
			continue
		}
		d := b.Position.DistanceTo(s.self.Position)
		if d > maxDistance {
			continue
		}
		if best == nil || d < bestDist || (d == bestDist && b.Position.Key() < best.Position.Key()) {
			found := b
			best = &found
			bestDist = d
		}
	}
	return best, nil
}

func (s *Sim) BlockAt(_ context.Context, pos Vec3) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return Block{}, s.queryErr
	}
	pos = pos.Floored()
	if b, ok := s.blocks[pos.Key()]; ok {
		return b, nil
	}
	return Block{Name: AirBlock, Position: pos}, nil
}

func (s *Sim) ScanBlocks(_ context.Context, center Vec3, radius int) ([]Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	c := center.Floored()
	r := float64(radius)

	var out []Block
	for _, b := range s.blocks {
		if math.Abs(b.Position.X-c.X) <= r && math.Abs(b.Position.Y-c.Y) <= r && math.Abs(b.Position.Z-c.Z) <= r {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position.Key() < out[j].Position.Key() })
	return out, nil
}

func (s *Sim) TimeOfDay(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return 0, s.queryErr
	}
	return s.tick, nil
}

func (s *Sim) Biome(_ context.Context, _ Vec3) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return "", s.queryErr
	}
	return s.biome, nil
}

func (s *Sim) MoveTo(_ context.Context, goal Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pathfinding {
		return errors.New("no pathfinder available")
	}
	s.self.Position = goal.Position
	return nil
}

func (s *Sim) Dig(_ context.Context, block Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := block.Position.Floored().Key()
	b, ok := s.blocks[key]
	if !ok {
		return fmt.Errorf("no block to dig at %s", block.Position)
	}
	delete(s.blocks, key)
	s.inventory[b.Name]++
	return nil
}

func (s *Sim) Equip(_ context.Context, item, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inventory[item] <= 0 {
		return fmt.Errorf("%s is not in the inventory", item)
	}
	return nil
}

func (s *Sim) PlaceBlock(_ context.Context, reference Block, face Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[reference.Position.Floored().Key()]; !ok {
		return errors.New("reference block is air")
	}
	// The placed item is whatever was equipped last; the sim places the
	// first block-like stack it holds.
	target := reference.Position.Floored().Add(face)
	if _, taken := s.blocks[target.Key()]; taken {
		return fmt.Errorf("position %s is occupied", target)
	}
	for _, name := range sortedKeys(s.inventory) {
		if s.inventory[name] > 0 {
			s.inventory[name]--
			s.blocks[target.Key()] = Block{Name: name, Position: target}
			return nil
		}
	}
	return errors.New("nothing to place")
}

func (s *Sim) Attack(_ context.Context, entity Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[entity.ID]
	if !ok {
		return fmt.Errorf("entity %s is gone", entity.ID)
	}
	e.Health -= 4
	if e.Health <= 0 {
		delete(s.entities, e.ID)
		return nil
	}
	s.entities[e.ID] = e
	return nil
}

func (s *Sim) Sleep(_ context.Context, _ Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if IsDay(s.tick) {
		return errors.New("you can only sleep at night")
	}
	s.self.Sleeping = true
	return nil
}

func (s *Sim) Wake(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.self.Sleeping {
		return errors.New("not sleeping")
	}
	s.self.Sleeping = false
	return nil
}

func (s *Sim) Toss(_ context.Context, item string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inventory[item] < count {
		return fmt.Errorf("only %d %s held", s.inventory[item], item)
	}
	s.inventory[item] -= count
	return nil
}

func (s *Sim) Craft(_ context.Context, item string, count int, _ *Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[item] += count
	return nil
}

func (s *Sim) Chat(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.said = append(s.said, text)
	return nil
}

func (s *Sim) ChatEvents() <-chan ChatMessage { return s.events }

func (s *Sim) Capabilities() Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Capabilities{Pathfinding: s.pathfinding}
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

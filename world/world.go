// Package world describes the game-world connection the agent drives. Every
// call may block on the network and may fail; callers turn failures into
// descriptive results rather than propagating them.
package world

import (
	"context"
	"fmt"
	"math"
)

const AirBlock = "air"

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }

func (v Vec3) DistanceTo(o Vec3) float64 {
	d := v.Sub(o)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// Floored rounds every component down, which is how block coordinates are
// derived from entity positions.
func (v Vec3) Floored() Vec3 {
	return Vec3{X: math.Floor(v.X), Y: math.Floor(v.Y), Z: math.Floor(v.Z)}
}

// Key is the rounded integer coordinate used by spatial memory.
func (v Vec3) Key() string {
	return fmt.Sprintf("%d,%d,%d", int(math.Round(v.X)), int(math.Round(v.Y)), int(math.Round(v.Z)))
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", v.X, v.Y, v.Z)
}

type Block struct {
	Name     string `json:"name"`
	Position Vec3   `json:"position"`
}

type Entity struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Position Vec3    `json:"position"`
	Yaw      float64 `json:"yaw"`
	Pitch    float64 `json:"pitch"`
	Health   float64 `json:"health"`
	Food     float64 `json:"food"`
	Sleeping bool    `json:"sleeping"`
}

type ItemStack struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Slot  int    `json:"slot"`
}

// Goal is a movement target. The mover stops once it is within Range of
// Position.
type Goal struct {
	Position Vec3    `json:"position"`
	Range    float64 `json:"range"`
}

type ChatMessage struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type ConnectConfig struct {
	Host     string
	Port     int
	Username string
	URL      string
}

type Capabilities struct {
	Pathfinding bool
}

type BlockMatcher func(Block) bool

// NamedBlock matches blocks whose name is one of names.
func NamedBlock(names ...string) BlockMatcher {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(b Block) bool {
		_, ok := set[b.Name]
		return ok
	}
}

type World interface {
	Connect(ctx context.Context, cfg ConnectConfig) error
	Close() error

	Self(ctx context.Context) (Entity, error)
	Entities(ctx context.Context) ([]Entity, error)
	Inventory(ctx context.Context) ([]ItemStack, error)
	FindBlock(ctx context.Context, match BlockMatcher, maxDistance float64) (*Block, error)
	BlockAt(ctx context.Context, pos Vec3) (Block, error)
	ScanBlocks(ctx context.Context, center Vec3, radius int) ([]Block, error)
	TimeOfDay(ctx context.Context) (int64, error)
	Biome(ctx context.Context, pos Vec3) (string, error)

	MoveTo(ctx context.Context, goal Goal) error
	Dig(ctx context.Context, block Block) error
	Equip(ctx context.Context, item, slot string) error
	PlaceBlock(ctx context.Context, reference Block, face Vec3) error
	Attack(ctx context.Context, entity Entity) error
	Sleep(ctx context.Context, bed Block) error
	Wake(ctx context.Context) error
	Toss(ctx context.Context, item string, count int) error
	Craft(ctx context.Context, item string, count int, table *Block) error
	Chat(ctx context.Context, text string) error

	ChatEvents() <-chan ChatMessage
	Capabilities() Capabilities
}

// IsDay classifies a raw day tick (0..23999). Night runs from dusk at 13000
// until dawn at 23000.
func IsDay(tick int64) bool {
	t := tick % 24000
	if t < 0 {
		t += 24000
	}
	return t < 13000 || t >= 23000
}

// Totals sums stack counts by item name.
func Totals(stacks []ItemStack) map[string]int {
	out := make(map[string]int, len(stacks))
	for _, s := range stacks {
		if s.Count > 0 {
			out[s.Name] += s.Count
		}
	}
	return out
}

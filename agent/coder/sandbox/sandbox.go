// Package sandbox is the only surface generated procedures can touch. It
// observes the world and chats; it never digs, places, attacks, equips or
// moves.
package sandbox

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/kardolus/minebot/world"
	"github.com/traefik/yaegi/interp"
)

// ImportPath is the path generated code imports the proxy under.
const ImportPath = "minebot/sandbox"

// ErrInterrupted is the panic value Checkpoint unwinds a procedure with.
var ErrInterrupted = errors.New("procedure interrupted")

const (
	maxChatLength = 256
	commandPrefix = "/"
)

type (
	Vec3      = world.Vec3
	Block     = world.Block
	Entity    = world.Entity
	ItemStack = world.ItemStack
)

// RestrictedWorld lists every capability a generated procedure gets.
type RestrictedWorld interface {
	Entity() Entity
	Position() Vec3
	Chat(message string)
	Inventory() []ItemStack
	Count(item string) int
	FindBlock(name string, maxDistance float64) (Block, bool)
	BlockAt(x, y, z float64) Block
	NearbyEntities(maxDistance float64) []Entity
	TimeOfDay() int64
	Interrupted() bool
	Checkpoint()
}

// Bot adapts a world.World to RestrictedWorld. World errors do not reach
// generated code; the first one is kept and reported through Err.
type Bot struct {
	ctx         context.Context
	w           world.World
	interrupted func() bool

	mu  sync.Mutex
	err error
}

var _ RestrictedWorld = (*Bot)(nil)

func NewBot(ctx context.Context, w world.World, interrupted func() bool) *Bot {
	if interrupted == nil {
		interrupted = func() bool { return false }
	}
	return &Bot{ctx: ctx, w: w, interrupted: interrupted}
}

func (b *Bot) Entity() Entity {
	e, err := b.w.Self(b.ctx)
	b.record(err)
	return e
}

func (b *Bot) Position() Vec3 {
	return b.Entity().Position
}

// Chat drops empty and command-prefixed messages and truncates long ones.
func (b *Bot) Chat(message string) {
	message = strings.TrimSpace(message)
	if message == "" || strings.HasPrefix(message, commandPrefix) {
		return
	}
	if len(message) > maxChatLength {
		message = message[:maxChatLength]
	}
	b.record(b.w.Chat(b.ctx, message))
}

func (b *Bot) Inventory() []ItemStack {
	items, err := b.w.Inventory(b.ctx)
	b.record(err)
	return items
}

func (b *Bot) Count(item string) int {
	return world.Totals(b.Inventory())[item]
}

func (b *Bot) FindBlock(name string, maxDistance float64) (Block, bool) {
	found, err := b.w.FindBlock(b.ctx, world.NamedBlock(name), maxDistance)
	b.record(err)
	if found == nil {
		return Block{}, false
	}
	return *found, true
}

func (b *Bot) BlockAt(x, y, z float64) Block {
	blk, err := b.w.BlockAt(b.ctx, Vec3{X: x, Y: y, Z: z})
	b.record(err)
	return blk
}

// NearbyEntities returns entities other than the bot, nearest first.
func (b *Bot) NearbyEntities(maxDistance float64) []Entity {
	self := b.Entity()
	all, err := b.w.Entities(b.ctx)
	b.record(err)

	var out []Entity
	for _, e := range all {
		if e.ID != self.ID && e.Position.DistanceTo(self.Position) <= maxDistance {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position.DistanceTo(self.Position) < out[j].Position.DistanceTo(self.Position)
	})
	return out
}

func (b *Bot) TimeOfDay() int64 {
	t, err := b.w.TimeOfDay(b.ctx)
	b.record(err)
	return t
}

func (b *Bot) Interrupted() bool {
	return b.interrupted() || b.ctx.Err() != nil
}

// Checkpoint panics with ErrInterrupted when an interruption is pending.
func (b *Bot) Checkpoint() {
	if b.Interrupted() {
		panic(ErrInterrupted)
	}
}

func (b *Bot) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Bot) record(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
}

// VecMath is the vector helper handed to procedures.
type VecMath struct{}

func (VecMath) New(x, y, z float64) Vec3     { return Vec3{X: x, Y: y, Z: z} }
func (VecMath) Add(a, b Vec3) Vec3           { return a.Add(b) }
func (VecMath) Sub(a, b Vec3) Vec3           { return a.Sub(b) }
func (VecMath) Scale(v Vec3, f float64) Vec3 { return Vec3{X: v.X * f, Y: v.Y * f, Z: v.Z * f} }
func (VecMath) Distance(a, b Vec3) float64   { return a.DistanceTo(b) }
func (VecMath) Length(v Vec3) float64        { return v.DistanceTo(Vec3{}) }
func (VecMath) Floor(v Vec3) Vec3            { return v.Floored() }

func (m VecMath) Normalize(v Vec3) Vec3 {
	l := m.Length(v)
	if l == 0 {
		return Vec3{}
	}
	return Vec3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
}

func (VecMath) Offset(v Vec3, dx, dy, dz float64) Vec3 {
	return Vec3{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}
}

func (VecMath) Round(v Vec3) Vec3 {
	return Vec3{X: math.Round(v.X), Y: math.Round(v.Y), Z: math.Round(v.Z)}
}

// Symbols is the interpreter export table for ImportPath.
var Symbols = interp.Exports{
	ImportPath + "/sandbox": {
		"Bot":       reflect.ValueOf((*Bot)(nil)),
		"VecMath":   reflect.ValueOf((*VecMath)(nil)),
		"Vec3":      reflect.ValueOf((*Vec3)(nil)),
		"Block":     reflect.ValueOf((*Block)(nil)),
		"Entity":    reflect.ValueOf((*Entity)(nil)),
		"ItemStack": reflect.ValueOf((*ItemStack)(nil)),
	},
}

// Methods returns the exported method names of the proxy and the vector
// helper, keyed by receiver.
func Methods() map[string][]string {
	return map[string][]string{
		"bot": methodNames(reflect.TypeOf(&Bot{})),
		"vec": methodNames(reflect.TypeOf(&VecMath{})),
	}
}

func methodNames(t reflect.Type) []string {
	out := make([]string, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		out = append(out, t.Method(i).Name)
	}
	sort.Strings(out)
	return out
}

// Describe documents the proxy for the code generation prompt.
const Describe = `bot *sandbox.Bot (read-only view of the world):
  bot.Entity() sandbox.Entity          // ID, Name, Type, Position, Yaw, Pitch, Health, Food, Sleeping
  bot.Position() sandbox.Vec3          // X, Y, Z float64
  bot.Chat(message string)             // empty or "/"-prefixed messages are dropped; max 256 chars
  bot.Inventory() []sandbox.ItemStack  // Name, Count, Slot
  bot.Count(item string) int
  bot.FindBlock(name string, maxDistance float64) (sandbox.Block, bool)  // Name, Position
  bot.BlockAt(x, y, z float64) sandbox.Block
  bot.NearbyEntities(maxDistance float64) []sandbox.Entity
  bot.TimeOfDay() int64
  bot.Interrupted() bool
  bot.Checkpoint()                     // stops the procedure when interrupted; use inside closures
log func(string)                       // progress output
vec *sandbox.VecMath:
  vec.New(x, y, z) Vec3, vec.Add(a, b), vec.Sub(a, b), vec.Scale(v, f), vec.Distance(a, b) float64,
  vec.Length(v) float64, vec.Normalize(v), vec.Floor(v), vec.Round(v), vec.Offset(v, dx, dy, dz)
Packages: fmt (Sprint, Sprintf, Sprintln, Errorf), strings, strconv, math, sort.`

package actions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/world"
)

const (
	searchDistance = 32
	reach          = 4
)

func collectBlock() Action {
	return leaf{
		name:      "collectBlock",
		signature: "collectBlock <blockName> [count]",
		desc:      "find, walk to and mine the nearest blocks of a type",
		verb:      "collect",
		run: func(ctx context.Context, w world.World, data *GameData, args []string, _ types.State) (string, error) {
			if len(args) == 0 {
				return "Invalid arguments: collectBlock needs a block name", nil
			}
			name := args[0]
			count, err := optionalCount(args, 1)
			if err != nil {
				return fmt.Sprintf("Invalid count for collectBlock: %v", err), nil
			}

			if !w.Capabilities().Pathfinding {
				return fmt.Sprintf("Simulated: collected %d %s (no pathfinder available)", count, name), nil
			}

			if inv, err := liveInventory(ctx, w); err == nil {
				if tool, ok := data.BestTool(name, inv); ok {
					_ = w.Equip(ctx, tool, "hand")
				}
			}

			collected := 0
			for collected < count {
				if err := ctx.Err(); err != nil {
					return "", err
				}
				b, err := w.FindBlock(ctx, world.NamedBlock(name), searchDistance)
				if err != nil {
					return "", err
				}
				if b == nil {
					break
				}
				if err := w.MoveTo(ctx, world.Goal{Position: b.Position, Range: 2}); err != nil {
					return "", fmt.Errorf("could not reach %s at %s: %w", name, b.Position, err)
				}
				if err := w.Dig(ctx, *b); err != nil {
					return "", err
				}
				collected++
			}

			switch {
			case collected == 0:
				return fmt.Sprintf("Block %s not found nearby", name), nil
			case collected < count:
				return fmt.Sprintf("Collected %d of %d %s; no more nearby", collected, count, name), nil
			}
			return fmt.Sprintf("Collected %d %s", collected, name), nil
		},
	}
}

func moveToPosition() Action {
	return leaf{
		name:      "moveToPosition",
		signature: "moveToPosition <x> <y> <z>",
		desc:      "walk to the given coordinates",
		verb:      "move",
		run: func(ctx context.Context, w world.World, _ *GameData, args []string, _ types.State) (string, error) {
			pos, err := parsePosition(args)
			if err != nil {
				return fmt.Sprintf("Invalid coordinates for moveToPosition: %v", err), nil
			}
			if !w.Capabilities().Pathfinding {
				return fmt.Sprintf("Simulated: moved to %s (no pathfinder available)", pos), nil
			}
			if err := w.MoveTo(ctx, world.Goal{Position: pos, Range: 1}); err != nil {
				return "", fmt.Errorf("could not reach %s: %w", pos, err)
			}
			return fmt.Sprintf("Moved to %s", pos), nil
		},
	}
}

func attackEntity() Action {
	return leaf{
		name:      "attackEntity",
		signature: "attackEntity <entityName>",
		desc:      "attack the nearest entity with that name or type",
		verb:      "attack",
		run: func(ctx context.Context, w world.World, _ *GameData, args []string, _ types.State) (string, error) {
			if len(args) == 0 {
				return "Invalid arguments: attackEntity needs an entity name", nil
			}
			target := strings.ToLower(args[0])

			self, err := w.Self(ctx)
			if err != nil {
				return "", err
			}
			entities, err := w.Entities(ctx)
			if err != nil {
				return "", err
			}

			var (
				found *world.Entity
				dist  = math.MaxFloat64
			)
			for i := range entities {
				e := entities[i]
				if e.ID == self.ID {
					continue
				}
				if !strings.EqualFold(e.Name, target) && !strings.EqualFold(e.Type, target) && e.ID != args[0] {
					continue
				}
				if d := e.Position.DistanceTo(self.Position); d < dist {
					found, dist = &e, d
				}
			}
			if found == nil || dist > searchDistance {
				return fmt.Sprintf("Entity %s not found nearby", args[0]), nil
			}

			if dist > reach {
				if !w.Capabilities().Pathfinding {
					return fmt.Sprintf("Entity %s is too far away (%.1f blocks)", args[0], dist), nil
				}
				if err := w.MoveTo(ctx, world.Goal{Position: found.Position, Range: 2}); err != nil {
					return "", fmt.Errorf("could not reach %s: %w", args[0], err)
				}
			}
			if err := w.Attack(ctx, *found); err != nil {
				return "", err
			}
			return fmt.Sprintf("Attacked %s", found.Name), nil
		},
	}
}

func optionalCount(args []string, def int) (int, error) {
	if len(args) < 2 {
		return def, nil
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("count must be positive, got %d", n)
	}
	return n, nil
}

func parsePosition(args []string) (world.Vec3, error) {
	if len(args) < 3 {
		return world.Vec3{}, errors.New("expected x y z")
	}
	var v [3]float64
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(strings.TrimSuffix(args[i], ","), 64)
		if err != nil {
			return world.Vec3{}, err
		}
		v[i] = f
	}
	return world.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

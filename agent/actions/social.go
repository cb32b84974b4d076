package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/world"
)

const lookRadius = 8

func sleepInBed() Action {
	return leaf{
		name:      "sleep",
		signature: "sleep",
		desc:      "sleep in the nearest bed (night only)",
		verb:      "sleep",
		run: func(ctx context.Context, w world.World, _ *GameData, _ []string, _ types.State) (string, error) {
			bed, err := w.FindBlock(ctx, func(b world.Block) bool {
				return strings.HasSuffix(b.Name, "_bed")
			}, searchDistance)
			if err != nil {
				return "", err
			}
			if bed == nil {
				return "Cannot sleep: bed not found nearby", nil
			}
			if w.Capabilities().Pathfinding {
				if err := w.MoveTo(ctx, world.Goal{Position: bed.Position, Range: 2}); err != nil {
					return "", fmt.Errorf("could not reach the bed: %w", err)
				}
			}
			if err := w.Sleep(ctx, *bed); err != nil {
				return "", err
			}
			return fmt.Sprintf("Sleeping in %s at %s", bed.Name, bed.Position), nil
		},
	}
}

func wake() Action {
	return leaf{
		name:      "wake",
		signature: "wake",
		desc:      "get out of bed",
		verb:      "wake up",
		run: func(ctx context.Context, w world.World, _ *GameData, _ []string, _ types.State) (string, error) {
			if err := w.Wake(ctx); err != nil {
				return "", err
			}
			return "Woke up", nil
		},
	}
}

func askForHelp() Action {
	return leaf{
		name:      "askForHelp",
		signature: `askForHelp "<message>"`,
		desc:      "ask nearby players for help or instructions in chat",
		verb:      "ask for help",
		run: func(ctx context.Context, w world.World, _ *GameData, args []string, _ types.State) (string, error) {
			msg := strings.TrimSpace(strings.Join(args, " "))
			if msg == "" {
				msg = "What should I do next?"
			}
			if err := w.Chat(ctx, msg); err != nil {
				return "", err
			}
			return "Asked players for help", nil
		},
	}
}

func lookAround() Action {
	return leaf{
		name:      "lookAround",
		signature: "lookAround",
		desc:      "refresh perception of nearby blocks and entities",
		verb:      "look around",
		run: func(ctx context.Context, w world.World, _ *GameData, _ []string, _ types.State) (string, error) {
			self, err := w.Self(ctx)
			if err != nil {
				return "", err
			}
			blocks, err := w.ScanBlocks(ctx, self.Position, lookRadius)
			if err != nil {
				return "", err
			}
			entities, err := w.Entities(ctx)
			if err != nil {
				return "", err
			}

			seen := map[string]int{}
			for _, b := range blocks {
				if b.Name != world.AirBlock {
					seen[b.Name]++
				}
			}
			var names []string
			for _, e := range entities {
				if e.ID != self.ID && e.Position.DistanceTo(self.Position) <= 2*lookRadius {
					names = append(names, e.Name)
				}
			}
			sort.Strings(names)

			return fmt.Sprintf("Looked around at %s. Blocks: %s. Entities: %s.",
				self.Position, countList(seen), listOrNone(names)), nil
		},
	}
}

func countList(m map[string]int) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s x%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

package actions

import (
	"context"
	"fmt"

	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/world"
)

func craftItem() Action {
	return leaf{
		name:      "craftItem",
		signature: "craftItem <itemName> [count]",
		desc:      "craft an item from held ingredients, using a nearby crafting table when required",
		verb:      "craft",
		run: func(ctx context.Context, w world.World, data *GameData, args []string, _ types.State) (string, error) {
			if len(args) == 0 {
				return "Invalid arguments: craftItem needs an item name", nil
			}
			item := args[0]
			count, err := optionalCount(args, 1)
			if err != nil {
				return fmt.Sprintf("Invalid count for craftItem: %v", err), nil
			}

			recipe, ok := data.Recipe(item)
			if !ok {
				return fmt.Sprintf("No recipe for %s", item), nil
			}

			inv, err := liveInventory(ctx, w)
			if err != nil {
				return "", err
			}
			crafts := recipe.Crafts(count)
			for _, ing := range recipe.IngredientNames() {
				need := recipe.Ingredients[ing] * crafts
				if inv[ing] < need {
					return fmt.Sprintf("Not enough %s to craft %s. Need %d %s.", ing, item, need, ing), nil
				}
			}

			var table *world.Block
			if recipe.NeedsTable {
				table, err = w.FindBlock(ctx, world.NamedBlock("crafting_table"), searchDistance)
				if err != nil {
					return "", err
				}
				if table == nil {
					return fmt.Sprintf("Cannot craft %s: crafting_table not found nearby", item), nil
				}
			}

			made := crafts * recipe.Yield
			if err := w.Craft(ctx, item, made, table); err != nil {
				return "", err
			}
			return fmt.Sprintf("Crafted %d %s", made, item), nil
		},
	}
}

func placeBlock() Action {
	return leaf{
		name:      "placeBlock",
		signature: "placeBlock <blockName> [x y z]",
		desc:      "place a held block at the coordinates, or next to the bot",
		verb:      "place",
		run: func(ctx context.Context, w world.World, _ *GameData, args []string, _ types.State) (string, error) {
			if len(args) == 0 {
				return "Invalid arguments: placeBlock needs a block name", nil
			}
			name := args[0]

			inv, err := liveInventory(ctx, w)
			if err != nil {
				return "", err
			}
			if inv[name] <= 0 {
				return fmt.Sprintf("Cannot place %s: not found in inventory", name), nil
			}

			var target world.Vec3
			if len(args) >= 4 {
				target, err = parsePosition(args[1:])
				if err != nil {
					return fmt.Sprintf("Invalid coordinates for placeBlock: %v", err), nil
				}
			} else {
				self, err := w.Self(ctx)
				if err != nil {
					return "", err
				}
				target = self.Position.Floored().Add(world.Vec3{X: 1})
			}
			target = target.Floored()

			below := target.Sub(world.Vec3{Y: 1})
			ref, err := w.BlockAt(ctx, below)
			if err != nil {
				return "", err
			}
			if ref.Name == world.AirBlock {
				return fmt.Sprintf("Cannot place %s at %s: no supporting block", name, target), nil
			}

			if err := w.Equip(ctx, name, "hand"); err != nil {
				return "", err
			}
			if err := w.PlaceBlock(ctx, ref, world.Vec3{Y: 1}); err != nil {
				return "", err
			}
			return fmt.Sprintf("Placed %s at %s", name, target), nil
		},
	}
}

func dropItem() Action {
	return leaf{
		name:      "dropItem",
		signature: "dropItem <itemName> [count]",
		desc:      "toss items from the inventory",
		verb:      "drop",
		run: func(ctx context.Context, w world.World, _ *GameData, args []string, _ types.State) (string, error) {
			if len(args) == 0 {
				return "Invalid arguments: dropItem needs an item name", nil
			}
			count, err := optionalCount(args, 1)
			if err != nil {
				return fmt.Sprintf("Invalid count for dropItem: %v", err), nil
			}
			if err := w.Toss(ctx, args[0], count); err != nil {
				return "", err
			}
			return fmt.Sprintf("Dropped %d %s", count, args[0]), nil
		},
	}
}

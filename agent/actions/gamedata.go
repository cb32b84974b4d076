package actions

import (
	"sort"
	"strings"
)

type Recipe struct {
	Item        string
	Yield       int
	Ingredients map[string]int
	NeedsTable  bool
}

// Crafts returns how many times the recipe must run to produce count items.
func (r Recipe) Crafts(count int) int {
	if count <= 0 {
		count = 1
	}
	y := r.Yield
	if y <= 0 {
		y = 1
	}
	return (count + y - 1) / y
}

// IngredientNames returns the ingredient names sorted.
func (r Recipe) IngredientNames() []string {
	out := make([]string, 0, len(r.Ingredients))
	for name := range r.Ingredients {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GameData is static game knowledge the actions consult.
type GameData struct {
	Recipes map[string]Recipe
	// Tools lists tool names per tool kind, best first.
	Tools map[string][]string
}

func DefaultGameData() *GameData {
	recipes := []Recipe{
		{Item: "oak_planks", Yield: 4, Ingredients: map[string]int{"oak_log": 1}},
		{Item: "birch_planks", Yield: 4, Ingredients: map[string]int{"birch_log": 1}},
		{Item: "spruce_planks", Yield: 4, Ingredients: map[string]int{"spruce_log": 1}},
		{Item: "stick", Yield: 4, Ingredients: map[string]int{"oak_planks": 2}},
		{Item: "crafting_table", Yield: 1, Ingredients: map[string]int{"oak_planks": 4}},
		{Item: "wooden_pickaxe", Yield: 1, Ingredients: map[string]int{"oak_planks": 3, "stick": 2}, NeedsTable: true},
		{Item: "wooden_axe", Yield: 1, Ingredients: map[string]int{"oak_planks": 3, "stick": 2}, NeedsTable: true},
		{Item: "wooden_shovel", Yield: 1, Ingredients: map[string]int{"oak_planks": 1, "stick": 2}, NeedsTable: true},
		{Item: "wooden_sword", Yield: 1, Ingredients: map[string]int{"oak_planks": 2, "stick": 1}, NeedsTable: true},
		{Item: "stone_pickaxe", Yield: 1, Ingredients: map[string]int{"cobblestone": 3, "stick": 2}, NeedsTable: true},
		{Item: "stone_axe", Yield: 1, Ingredients: map[string]int{"cobblestone": 3, "stick": 2}, NeedsTable: true},
		{Item: "stone_shovel", Yield: 1, Ingredients: map[string]int{"cobblestone": 1, "stick": 2}, NeedsTable: true},
		{Item: "stone_sword", Yield: 1, Ingredients: map[string]int{"cobblestone": 2, "stick": 1}, NeedsTable: true},
		{Item: "iron_pickaxe", Yield: 1, Ingredients: map[string]int{"iron_ingot": 3, "stick": 2}, NeedsTable: true},
		{Item: "iron_sword", Yield: 1, Ingredients: map[string]int{"iron_ingot": 2, "stick": 1}, NeedsTable: true},
		{Item: "furnace", Yield: 1, Ingredients: map[string]int{"cobblestone": 8}, NeedsTable: true},
		{Item: "torch", Yield: 4, Ingredients: map[string]int{"coal": 1, "stick": 1}},
		{Item: "chest", Yield: 1, Ingredients: map[string]int{"oak_planks": 8}, NeedsTable: true},
	}

	g := &GameData{
		Recipes: make(map[string]Recipe, len(recipes)),
		Tools: map[string][]string{
			"axe":     {"iron_axe", "stone_axe", "wooden_axe"},
			"pickaxe": {"iron_pickaxe", "stone_pickaxe", "wooden_pickaxe"},
			"shovel":  {"iron_shovel", "stone_shovel", "wooden_shovel"},
		},
	}
	for _, r := range recipes {
		g.Recipes[r.Item] = r
	}
	return g
}

func (g *GameData) Recipe(item string) (Recipe, bool) {
	r, ok := g.Recipes[item]
	return r, ok
}

// ToolKind returns the tool kind that breaks block fastest, or "" when
// bare hands are fine.
func ToolKind(block string) string {
	switch {
	case strings.HasSuffix(block, "_log"), strings.HasSuffix(block, "_planks"),
		strings.HasSuffix(block, "_wood"), block == "crafting_table", block == "chest":
		return "axe"
	case strings.Contains(block, "stone"), strings.HasSuffix(block, "_ore"),
		block == "furnace", block == "obsidian":
		return "pickaxe"
	case block == "dirt", block == "grass_block", block == "sand", block == "gravel",
		block == "clay", block == "snow_block":
		return "shovel"
	}
	return ""
}

// BestTool picks the best held tool for block.
func (g *GameData) BestTool(block string, inventory map[string]int) (string, bool) {
	for _, tool := range g.Tools[ToolKind(block)] {
		if inventory[tool] > 0 {
			return tool, true
		}
	}
	return "", false
}

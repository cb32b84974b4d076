package main

import "github.com/kardolus/minebot/world"

// seededSim returns an offline world with a small grove and a crafting
// table, enough to exercise gathering and crafting goals.
func seededSim() *world.Sim {
	sim := world.NewSim(world.WithBiome("forest"), world.WithTimeOfDay(1000))

	for _, x := range []int{3, 4, 6, -5} {
		for y := 0; y < 4; y++ {
			sim.SetBlock("oak_log", world.Vec3{X: float64(x), Y: float64(y), Z: 2})
		}
	}
	sim.SetBlock("crafting_table", world.Vec3{X: -2, Z: -2})
	sim.SetBlock("stone", world.Vec3{X: 1, Y: -1, Z: 7})
	sim.SetBlock("iron_ore", world.Vec3{X: 2, Y: -3, Z: 8})
	return sim
}

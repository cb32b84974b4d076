package cycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/kardolus/minebot/agent/cycle"
	"github.com/kardolus/minebot/agent/memory"
	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/store"
	"github.com/kardolus/minebot/world"
	. "github.com/onsi/gomega"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"
)

func TestUnitObserve(t *testing.T) {
	spec.Run(t, "Testing the observe stage", testObserve, spec.Report(report.Terminal{}))
}

func testObserve(t *testing.T, when spec.G, it spec.S) {
	var (
		mockCtrl  *gomock.Controller
		mockClock *MockClock
		ctx       context.Context
		sim       *world.Sim
		mem       *memory.Store
		subject   *cycle.Observer
	)

	it.Before(func() {
		RegisterTestingT(t)
		mockCtrl = gomock.NewController(t)
		mockClock = NewMockClock(mockCtrl)
		mockClock.EXPECT().Now().Return(time.Unix(1700000000, 0)).AnyTimes()

		ctx = context.Background()
		sim = world.NewSim(world.WithBiome("forest"), world.WithTimeOfDay(14000))
		mem = memory.NewStore(store.NewFileStore(t.TempDir()), mockClock)
		subject = cycle.NewObserver(sim, mem)
	})

	it.After(func() {
		mockCtrl.Finish()
	})

	when("the world answers", func() {
		it.Before(func() {
			sim.Give("oak_log", 2)
			sim.Give("oak_log", 1)
			sim.Give("stick", 4)
			sim.SetBlock("stone", world.Vec3{X: 1, Y: -1, Z: 0})
			sim.SetBlock("oak_log", world.Vec3{X: 2, Y: 0, Z: 1})
			sim.SetBlock("oak_log", world.Vec3{X: 2, Y: 1, Z: 1})
			sim.SetBlock("crafting_table", world.Vec3{X: 10, Y: 0, Z: 0})
			sim.AddEntity(world.Entity{ID: "z1", Type: "zombie", Position: world.Vec3{X: 3}})
			sim.AddEntity(world.Entity{ID: "p1", Name: "steve", Type: "player", Position: world.Vec3{Z: 4}})
			sim.AddEntity(world.Entity{ID: "c1", Type: "cow", Position: world.Vec3{X: 40}})
		})

		it("returns the summed inventory and the surroundings", func() {
			u := subject.Observe(ctx, types.NewState())

			Expect(u.Inventory).To(Equal(map[string]int{"oak_log": 3, "stick": 4}))
			Expect(u.Surroundings).NotTo(BeNil())
			Expect(u.Surroundings.Blocks).To(Equal([]string{"oak_log", "stone"}))
			Expect(u.Surroundings.Entities).To(Equal([]string{"steve", "zombie"}))
			Expect(u.Surroundings.Biome).To(Equal("forest"))
			Expect(u.Surroundings.TimeOfDay).To(Equal(int64(14000)))
			Expect(u.Surroundings.IsDay).To(BeFalse())
			Expect(u.Surroundings.Health).To(Equal(20.0))
		})

		it("touches nothing but inventory and surroundings", func() {
			u := subject.Observe(ctx, types.NewState())

			Expect(u.Memory).To(BeNil())
			Expect(u.CurrentGoal).To(BeNil())
			Expect(u.CurrentPlan).To(BeNil())
			Expect(u.LastAction).To(BeNil())
			Expect(u.LastActionResult).To(BeNil())
		})

		it("is idempotent while the world does not change", func() {
			first := subject.Observe(ctx, types.NewState())
			second := subject.Observe(ctx, types.NewState().Merge(first))

			Expect(second.Inventory).To(Equal(first.Inventory))
			Expect(*second.Surroundings).To(Equal(*first.Surroundings))
		})

		it("writes the wider scan into spatial memory", func() {
			subject.Observe(ctx, types.NewState())

			snap := mem.Snapshot()
			Expect(snap.Spatial).To(HaveKey(world.Vec3{X: 10}.Key()))
			Expect(snap.Spatial[world.Vec3{X: 10}.Key()].Name).To(Equal("crafting_table"))
			Expect(snap.LongTerm.KnowledgeBase.Locations).To(HaveKey("crafting_table"))
		})

		it("honours custom radii", func() {
			subject = cycle.NewObserver(sim, mem, cycle.WithRadii(1, 2, 1))

			u := subject.Observe(ctx, types.NewState())
			Expect(u.Surroundings.Blocks).To(Equal([]string{"stone"}))
			Expect(u.Surroundings.Entities).To(BeEmpty())
		})
	})

	when("the world fails", func() {
		it("keeps the previous surroundings", func() {
			state := types.NewState()
			state.Surroundings = types.Surroundings{Biome: "desert", Blocks: []string{"sand"}}
			state.Inventory = map[string]int{"dirt": 1}
			sim.FailQueries(errors.New("bridge down"))

			u := subject.Observe(ctx, state)

			Expect(u.Inventory).To(BeNil())
			Expect(u.Surroundings).NotTo(BeNil())
			Expect(*u.Surroundings).To(Equal(state.Surroundings))
			Expect(state.Merge(u).Inventory).To(Equal(map[string]int{"dirt": 1}))
		})
	})
}

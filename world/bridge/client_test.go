package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kardolus/minebot/world"
	"github.com/kardolus/minebot/world/bridge"
	. "github.com/onsi/gomega"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"
)

func TestUnitBridgeClient(t *testing.T) {
	spec.Run(t, "Testing the bridge client", testBridgeClient, spec.Report(report.Terminal{}))
}

type wireRequest struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// fakeBridge answers every request through handler and remembers the calls.
type fakeBridge struct {
	mu      sync.Mutex
	calls   []wireRequest
	conn    *websocket.Conn
	repeat  int
	handler func(req wireRequest) (any, *bridge.RPCError)
}

func (f *fakeBridge) serve(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	for {
		var req wireRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		f.mu.Lock()
		f.calls = append(f.calls, req)
		f.mu.Unlock()

		result, rpcErr := f.handler(req)
		if result == nil && rpcErr == nil {
			continue
		}
		resp := map[string]any{"id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		f.mu.Lock()
		for i := 0; i <= f.repeat; i++ {
			if err = conn.WriteJSON(resp); err != nil {
				break
			}
		}
		f.mu.Unlock()
		if err != nil {
			return
		}
	}
}

func (f *fakeBridge) push(v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	Expect(f.conn.WriteJSON(v)).To(Succeed())
}

func (f *fakeBridge) drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.conn.Close()
}

func (f *fakeBridge) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.Method)
	}
	return out
}

func testBridgeClient(t *testing.T, when spec.G, it spec.S) {
	var (
		ctx     context.Context
		fake    *fakeBridge
		server  *httptest.Server
		subject *bridge.Client
	)

	it.Before(func() {
		RegisterTestingT(t)
		ctx = context.Background()
		fake = &fakeBridge{
			handler: func(req wireRequest) (any, *bridge.RPCError) {
				switch req.Method {
				case "connect":
					return map[string]any{"pathfinding": true}, nil
				case "self":
					return world.Entity{ID: "1", Name: "minebot", Position: world.Vec3{X: 0, Y: 64, Z: 0}, Health: 20, Food: 18}, nil
				case "inventory":
					return []world.ItemStack{{Name: "oak_log", Count: 3}}, nil
				case "scanBlocks":
					return []world.Block{
						{Name: "stone", Position: world.Vec3{X: 1, Y: 63, Z: 0}},
						{Name: "oak_log", Position: world.Vec3{X: 4, Y: 64, Z: 0}},
						{Name: "oak_log", Position: world.Vec3{X: 2, Y: 64, Z: 0}},
					}, nil
				case "timeOfDay":
					return map[string]any{"tick": 18000}, nil
				case "dig":
					return nil, &bridge.RPCError{Code: 3, Message: "block out of reach"}
				case "chat":
					return map[string]any{}, nil
				case "moveTo":
					// never answered
					return nil, nil
				}
				return nil, &bridge.RPCError{Code: 1, Message: "unknown method"}
			},
		}
		server = httptest.NewServer(http.HandlerFunc(fake.serve))
		subject = bridge.New(bridge.Config{URL: "ws" + strings.TrimPrefix(server.URL, "http"), CallTimeout: 2 * time.Second})
		Expect(subject.Connect(ctx, world.ConnectConfig{Username: "minebot"})).To(Succeed())
	})

	it.After(func() {
		_ = subject.Close()
		server.Close()
	})

	when("Connect()", func() {
		it("negotiates capabilities with the bridge", func() {
			Expect(subject.Capabilities().Pathfinding).To(BeTrue())
			Expect(fake.methods()).To(Equal([]string{"connect"}))
		})

		it("fails without a url", func() {
			other := bridge.New(bridge.Config{})
			Expect(other.Connect(ctx, world.ConnectConfig{})).To(MatchError(ContainSubstring("no url")))
		})
	})

	when("queries", func() {
		it("decodes typed results", func() {
			self, err := subject.Self(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(self.Food).To(Equal(18.0))

			inv, err := subject.Inventory(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(inv).To(Equal([]world.ItemStack{{Name: "oak_log", Count: 3}}))

			tick, err := subject.TimeOfDay(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(tick).To(Equal(int64(18000)))
		})

		it("filters scanned blocks locally for FindBlock and picks the closest", func() {
			b, err := subject.FindBlock(ctx, world.NamedBlock("oak_log"), 16)
			Expect(err).NotTo(HaveOccurred())
			Expect(b).NotTo(BeNil())
			Expect(b.Position.X).To(Equal(2.0))
		})

		it("returns nil from FindBlock when the closest match is out of range", func() {
			b, err := subject.FindBlock(ctx, world.NamedBlock("oak_log"), 1.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(b).To(BeNil())
		})
	})

	when("the bridge rejects a call", func() {
		it("surfaces a typed RPCError", func() {
			err := subject.Dig(ctx, world.Block{Name: "stone"})

			var rpcErr *bridge.RPCError
			Expect(errors.As(err, &rpcErr)).To(BeTrue())
			Expect(rpcErr.Message).To(Equal("block out of reach"))
		})
	})

	when("the bridge answers a call more than once", func() {
		it("drops the extra answers and keeps reading", func() {
			fake.mu.Lock()
			fake.repeat = 5
			fake.mu.Unlock()

			for i := 0; i < 10; i++ {
				Expect(subject.Chat(ctx, "hi")).To(Succeed())
			}

			fake.mu.Lock()
			fake.repeat = 0
			fake.mu.Unlock()

			self, err := subject.Self(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(self.Name).To(Equal("minebot"))
		})
	})

	when("the context is cancelled", func() {
		it("abandons the pending call", func() {
			cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()

			err := subject.MoveTo(cctx, world.Goal{Position: world.Vec3{X: 10}})
			Expect(err).To(MatchError(context.DeadlineExceeded))
		})
	})

	when("the bridge pushes a chat event", func() {
		it("delivers it on ChatEvents()", func() {
			fake.push(map[string]any{"event": "chat", "data": map[string]any{"username": "alex", "message": "goal mine"}})

			Eventually(subject.ChatEvents()).Should(Receive(Equal(world.ChatMessage{Username: "alex", Message: "goal mine"})))
		})
	})

	when("the connection drops", func() {
		it("fails subsequent calls with ErrClosed", func() {
			fake.drop()

			Eventually(func() error {
				return subject.Chat(ctx, "hi")
			}).Should(MatchError(bridge.ErrClosed))
		})
	})
}

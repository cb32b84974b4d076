// Package bridge talks to an external game bridge process over a WebSocket
// using a small JSON-RPC dialect. The bridge owns the game protocol and the
// pathfinder; this client only forwards calls and chat events.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kardolus/minebot/world"
	"go.uber.org/zap"
)

const (
	defaultHandshakeTimeout = 5 * time.Second
	defaultCallTimeout      = 60 * time.Second
	writeTimeout            = 5 * time.Second
	chatBuffer              = 32
)

var ErrClosed = errors.New("bridge: connection closed")

type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	CallTimeout      time.Duration
}

type Client struct {
	cfg    Config
	logger *zap.SugaredLogger

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan envelope
	caps    world.Capabilities
	done    chan struct{}
	readErr error

	writeMu   sync.Mutex
	closeOnce sync.Once

	events chan world.ChatMessage
}

type Option func(*Client)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	c := &Client{
		cfg:     cfg,
		logger:  zap.NewNop().Sugar(),
		pending: make(map[string]chan envelope),
		done:    make(chan struct{}),
		events:  make(chan world.ChatMessage, chatBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ world.World = (*Client)(nil)

func (c *Client) Connect(ctx context.Context, cfg world.ConnectConfig) error {
	url := c.cfg.URL
	if cfg.URL != "" {
		url = cfg.URL
	}
	if url == "" {
		return errors.New("bridge: no url configured")
	}

	d := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, resp, err := d.DialContext(ctx, url, http.Header{})
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)

	var res connectResult
	if err := c.call(ctx, methodConnect, connectParams{Host: cfg.Host, Port: cfg.Port, Username: cfg.Username}, &res); err != nil {
		_ = c.Close()
		return err
	}

	c.mu.Lock()
	c.caps = world.Capabilities{Pathfinding: res.Pathfinding}
	c.mu.Unlock()

	c.logger.Debugf("bridge connected to %s (pathfinding=%t)", url, res.Pathfinding)
	return nil
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

func (c *Client) Self(ctx context.Context) (world.Entity, error) {
	var e world.Entity
	err := c.call(ctx, methodSelf, nil, &e)
	return e, err
}

func (c *Client) Entities(ctx context.Context) ([]world.Entity, error) {
	var out []world.Entity
	err := c.call(ctx, methodEntities, nil, &out)
	return out, err
}

func (c *Client) Inventory(ctx context.Context) ([]world.ItemStack, error) {
	var out []world.ItemStack
	err := c.call(ctx, methodInventory, nil, &out)
	return out, err
}

// FindBlock scans the cube around the bot and applies match locally; the
// matcher never crosses the wire.
func (c *Client) FindBlock(ctx context.Context, match world.BlockMatcher, maxDistance float64) (*world.Block, error) {
	self, err := c.Self(ctx)
	if err != nil {
		return nil, err
	}
	blocks, err := c.ScanBlocks(ctx, self.Position, int(math.Ceil(maxDistance)))
	if err != nil {
		return nil, err
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Position.DistanceTo(self.Position) < blocks[j].Position.DistanceTo(self.Position)
	})
	for _, b := range blocks {
		if b.Position.DistanceTo(self.Position) > maxDistance {
			break
		}
		if match(b) {
			found := b
			return &found, nil
		}
	}
	return nil, nil
}

func (c *Client) BlockAt(ctx context.Context, pos world.Vec3) (world.Block, error) {
	var b world.Block
	err := c.call(ctx, methodBlockAt, pos, &b)
	return b, err
}

func (c *Client) ScanBlocks(ctx context.Context, center world.Vec3, radius int) ([]world.Block, error) {
	var out []world.Block
	err := c.call(ctx, methodScanBlocks, scanParams{Center: center, Radius: radius}, &out)
	return out, err
}

func (c *Client) TimeOfDay(ctx context.Context) (int64, error) {
	var res timeResult
	err := c.call(ctx, methodTimeOfDay, nil, &res)
	return res.Tick, err
}

func (c *Client) Biome(ctx context.Context, pos world.Vec3) (string, error) {
	var res biomeResult
	err := c.call(ctx, methodBiome, pos, &res)
	return res.Biome, err
}

func (c *Client) MoveTo(ctx context.Context, goal world.Goal) error {
	return c.call(ctx, methodMoveTo, goalParams{X: goal.Position.X, Y: goal.Position.Y, Z: goal.Position.Z, Range: goal.Range}, nil)
}

func (c *Client) Dig(ctx context.Context, block world.Block) error {
	return c.call(ctx, methodDig, block, nil)
}

func (c *Client) Equip(ctx context.Context, item, slot string) error {
	return c.call(ctx, methodEquip, equipParams{Item: item, Slot: slot}, nil)
}

func (c *Client) PlaceBlock(ctx context.Context, reference world.Block, face world.Vec3) error {
	return c.call(ctx, methodPlaceBlock, placeParams{Reference: reference, Face: face}, nil)
}

func (c *Client) Attack(ctx context.Context, entity world.Entity) error {
	return c.call(ctx, methodAttack, entity, nil)
}

func (c *Client) Sleep(ctx context.Context, bed world.Block) error {
	return c.call(ctx, methodSleep, bed, nil)
}

func (c *Client) Wake(ctx context.Context) error {
	return c.call(ctx, methodWake, nil, nil)
}

func (c *Client) Toss(ctx context.Context, item string, count int) error {
	return c.call(ctx, methodToss, itemParams{Item: item, Count: count}, nil)
}

func (c *Client) Craft(ctx context.Context, item string, count int, table *world.Block) error {
	p := itemParams{Item: item, Count: count}
	if table != nil {
		p.Table = table
	}
	return c.call(ctx, methodCraft, p, nil)
}

func (c *Client) Chat(ctx context.Context, text string) error {
	return c.call(ctx, methodChat, chatParams{Message: text}, nil)
}

func (c *Client) ChatEvents() <-chan world.ChatMessage { return c.events }

func (c *Client) Capabilities() world.Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return errors.New("bridge: not connected")
	}
	select {
	case <-c.done:
		err := c.readErr
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrClosed, err)
	default:
	}
	id := uuid.NewString()
	ch := make(chan envelope, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteJSON(request{ID: id, Method: method, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("bridge %s: %w", method, err)
	}

	timer := time.NewTimer(c.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("bridge %s: timed out after %s", method, c.cfg.CallTimeout)
	case <-c.done:
		return fmt.Errorf("bridge %s: %w", method, ErrClosed)
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("bridge %s: decode result: %w", method, err)
		}
		return nil
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer close(c.done)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			c.logger.Debugf("bridge read loop stopped: %v", err)
			return
		}

		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			c.logger.Warnf("bridge sent an undecodable message: %v", err)
			continue
		}

		if env.Event != "" {
			c.dispatchEvent(env)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		c.mu.Unlock()
		if !ok {
			c.logger.Debugf("bridge response for unknown call %q", env.ID)
			continue
		}
		select {
		case ch <- env:
		default:
			c.logger.Warnf("dropping duplicate bridge response for %q", env.ID)
		}
	}
}

func (c *Client) dispatchEvent(env envelope) {
	if env.Event != eventChat {
		return
	}
	var m world.ChatMessage
	if err := json.Unmarshal(env.Data, &m); err != nil {
		c.logger.Warnf("bridge chat event: %v", err)
		return
	}
	select {
	case c.events <- m:
	default:
		c.logger.Warnf("dropping chat from %s, queue full", m.Username)
	}
}

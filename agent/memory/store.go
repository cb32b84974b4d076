package memory

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/kardolus/minebot/agent/command"
	"github.com/kardolus/minebot/agent/core"
	"github.com/kardolus/minebot/store"
	"github.com/kardolus/minebot/world"
	"go.uber.org/zap"
)

const (
	DefaultKey          = "memory.json"
	DefaultShortTermMax = 10
	DefaultSpatialMax   = 50_000
)

// notable blocks are remembered as named locations when observed.
var notable = map[string]bool{
	"crafting_table": true,
	"furnace":        true,
	"chest":          true,
}

// Store owns the StructuredMemory. Every mutation is persisted before the
// method returns; persistence failures are logged and swallowed.
type Store struct {
	mu sync.Mutex

	files  store.Store
	clock  core.Clock
	logger *zap.SugaredLogger

	key          string
	shortTermMax int
	spatialMax   int

	mem StructuredMemory
}

type Option func(*Store)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithShortTermSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.shortTermMax = n
		}
	}
}

func WithSpatialLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.spatialMax = n
		}
	}
}

func WithKey(key string) Option {
	return func(s *Store) {
		if strings.TrimSpace(key) != "" {
			s.key = key
		}
	}
}

func NewStore(files store.Store, clock core.Clock, opts ...Option) *Store {
	s := &Store{
		files:        files,
		clock:        clock,
		logger:       zap.NewNop().Sugar(),
		key:          DefaultKey,
		shortTermMax: DefaultShortTermMax,
		spatialMax:   DefaultSpatialMax,
		mem:          New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the durable record. A missing file starts fresh; an unreadable
// one is reported and also starts fresh.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.files.Get(s.key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mem = New()
			return nil
		}
		return err
	}

	var m StructuredMemory
	if err := json.Unmarshal(data, &m); err != nil {
		s.mem = New()
		return err
	}
	m.normalize()
	s.mem = m
	return nil
}

func (s *Store) Snapshot() StructuredMemory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.Clone()
}

// RecordAction appends to the short-term log, consolidating the oldest
// entries into the knowledge base once the log is over capacity.
func (s *Store) RecordAction(action, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem.ShortTerm.RecentActions = append(s.mem.ShortTerm.RecentActions, ActionRecord{
		Timestamp: s.clock.Now(),
		Action:    action,
		Result:    result,
	})

	for len(s.mem.ShortTerm.RecentActions) > s.shortTermMax {
		oldest := s.mem.ShortTerm.RecentActions[0]
		s.mem.ShortTerm.RecentActions = s.mem.ShortTerm.RecentActions[1:]
		s.consolidate(oldest)
	}

	s.saveLocked()
}

// RecordBlocks writes block observations into spatial memory. Newer
// observations replace older ones at the same coordinate.
func (s *Store) RecordBlocks(blocks []world.Block) {
	if len(blocks) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for _, b := range blocks {
		if b.Name == "" || b.Name == world.AirBlock {
			continue
		}
		s.mem.Spatial[b.Position.Key()] = BlockObservation{Name: b.Name, Timestamp: now}
		if notable[b.Name] || strings.HasSuffix(b.Name, "_bed") {
			s.mem.LongTerm.KnowledgeBase.Locations[b.Name] = Location{Position: b.Position, Timestamp: now}
		}
	}
	s.evictSpatialLocked()

	s.saveLocked()
}

func (s *Store) RememberLocation(name string, pos world.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem.LongTerm.KnowledgeBase.Locations[name] = Location{Position: pos, Timestamp: s.clock.Now()}
	s.saveLocked()
}

func (s *Store) CompleteGoal(goal string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kb := &s.mem.LongTerm.KnowledgeBase
	kb.CompletedGoals = append(kb.CompletedGoals, CompletedGoal{Goal: goal, Timestamp: s.clock.Now()})
	s.saveLocked()
}

func (s *Store) consolidate(r ActionRecord) {
	kb := &s.mem.LongTerm.KnowledgeBase
	cmd := command.Parse(r.Action)
	if cmd.Name == "" {
		return
	}

	if command.IsFailure(r.Result) {
		key := cmd.Name + ":" + command.FailureReason(r.Result)
		p := kb.FailurePatterns[key]
		p.Count++
		p.LastTimestamp = r.Timestamp
		kb.FailurePatterns[key] = p
		return
	}

	switch cmd.Name {
	case command.CraftItem:
		if len(cmd.Args) > 0 {
			k := kb.Recipes[cmd.Args[0]]
			k.Crafted++
			k.LastCrafted = r.Timestamp
			kb.Recipes[cmd.Args[0]] = k
		}
	case command.AttackEntity:
		if len(cmd.Args) > 0 {
			e := kb.Entities[cmd.Args[0]]
			e.Attacks++
			e.LastSeen = r.Timestamp
			kb.Entities[cmd.Args[0]] = e
		}
	}
}

func (s *Store) evictSpatialLocked() {
	over := len(s.mem.Spatial) - s.spatialMax
	if over <= 0 {
		return
	}

	type entry struct {
		key string
		obs BlockObservation
	}
	entries := make([]entry, 0, len(s.mem.Spatial))
	for k, v := range s.mem.Spatial {
		entries = append(entries, entry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].obs.Timestamp.Equal(entries[j].obs.Timestamp) {
			return entries[i].key < entries[j].key
		}
		return entries[i].obs.Timestamp.Before(entries[j].obs.Timestamp)
	})
	for _, e := range entries[:over] {
		delete(s.mem.Spatial, e.key)
	}
}

func (s *Store) saveLocked() {
	data, err := json.MarshalIndent(s.mem, "", "  ")
	if err != nil {
		s.logger.Warnf("memory: encode failed: %v", err)
		return
	}
	if err := s.files.Set(s.key, data); err != nil {
		s.logger.Warnf("memory: save failed, continuing in memory: %v", err)
	}
}

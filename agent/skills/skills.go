package skills

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/kardolus/minebot/store"
	"go.uber.org/zap"
)

const DefaultKey = "skills.json"

type Skill struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
	Code        string   `json:"code"`
}

// Signature renders the skill the way plan steps invoke it.
func (s Skill) Signature() string {
	var b strings.Builder
	b.WriteString("executeSkill ")
	b.WriteString(s.Name)
	for _, p := range s.Parameters {
		fmt.Fprintf(&b, " <%s>", p)
	}
	return b.String()
}

// Bind maps positional args onto the declared parameter names. Missing args
// bind to the empty string and extra args are ignored.
func (s Skill) Bind(args []string) map[string]string {
	out := make(map[string]string, len(s.Parameters))
	for i, p := range s.Parameters {
		if i < len(args) {
			out[p] = args[i]
			continue
		}
		out[p] = ""
	}
	return out
}

// Repository is the durable skill catalog. Add and Remove persist
// immediately; persistence failures are logged and swallowed.
type Repository struct {
	mu     sync.RWMutex
	files  store.Store
	key    string
	logger *zap.SugaredLogger
	skills map[string]Skill
}

type Option func(*Repository)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRepository(files store.Store, opts ...Option) *Repository {
	r := &Repository{
		files:  files,
		key:    DefaultKey,
		logger: zap.NewNop().Sugar(),
		skills: make(map[string]Skill),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.files.Get(r.key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var list []Skill
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("decode %s: %w", r.key, err)
	}

	r.skills = make(map[string]Skill, len(list))
	for _, s := range list {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		r.skills[s.Name] = s
	}
	return nil
}

func (r *Repository) Get(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

// List returns all skills sorted by name.
func (r *Repository) List() []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Add inserts or replaces a skill by name.
func (r *Repository) Add(s Skill) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return errors.New("skill name is required")
	}
	if strings.ContainsAny(s.Name, " \t\n\"") {
		return fmt.Errorf("skill name %q must be a single token", s.Name)
	}
	if strings.TrimSpace(s.Code) == "" {
		return fmt.Errorf("skill %q has no code", s.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[s.Name] = s
	r.saveLocked()
	return nil
}

// Remove reports whether a skill was removed.
func (r *Repository) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.skills[name]; !ok {
		return false
	}
	delete(r.skills, name)
	r.saveLocked()
	return true
}

func (r *Repository) saveLocked() {
	list := make([]Skill, 0, len(r.skills))
	for _, s := range r.skills {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		r.logger.Warnf("skills: encode failed: %v", err)
		return
	}
	if err := r.files.Set(r.key, data); err != nil {
		r.logger.Warnf("skills: save failed, continuing in memory: %v", err)
	}
}

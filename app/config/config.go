// Package config loads the task configuration from a YAML file, validates it and
// watches the file for changes.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/umputun/flipper/app/enums"
	"github.com/umputun/flipper/app/render"
	"github.com/umputun/flipper/app/rotation"
)

// Config is the widget configuration
type Config struct {
	Tasks          []rotation.Task   `yaml:"tasks" json:"tasks" jsonschema:"description=chores with people in rotation order"`
	DefaultColor   string            `yaml:"default_color,omitempty" json:"default_color,omitempty" jsonschema:"description=color used when a task has no color for the person,default=#4CAF50"`
	AnimationSpeed int               `yaml:"animation_speed,omitempty" json:"animation_speed,omitempty" jsonschema:"description=flip animation duration in milliseconds,minimum=0,default=1000"`
	ShowLastFlip   *bool             `yaml:"show_last_flip,omitempty" json:"show_last_flip,omitempty" jsonschema:"description=show who did the task last and when,default=true"`
	Display        enums.DisplayMode `yaml:"display,omitempty" json:"display,omitempty" jsonschema:"type=string,enum=plain,enum=flip,description=card rendering strategy,default=plain"`
}

// LastFlipVisible returns show_last_flip with its default applied
func (c Config) LastFlipVisible() bool {
	return c.ShowLastFlip == nil || *c.ShowLastFlip
}

// Animation returns the animation speed as a duration
func (c Config) Animation() time.Duration {
	return time.Duration(c.AnimationSpeed) * time.Millisecond
}

// Task returns the configured task by name
func (c Config) Task(name string) (rotation.Task, bool) {
	for _, t := range c.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return rotation.Task{}, false
}

// Default returns the built-in sample configuration
func Default() Config {
	return withDefaults(Config{
		Tasks: []rotation.Task{
			{Name: "Dishes", People: []string{"Alice", "Bob", "Charlie"}, Colors: []string{"#FF6B6B", "#4ECDC4", "#45B7D1"}},
			{Name: "Litter Box", People: []string{"Alice", "Bob"}, Colors: []string{"#FF6B6B", "#4ECDC4"}},
			{Name: "Garbage", People: []string{"Charlie", "Bob", "Alice"}, Colors: []string{"#45B7D1", "#4ECDC4", "#FF6B6B"}},
		},
	})
}

func withDefaults(c Config) Config {
	if c.DefaultColor == "" {
		c.DefaultColor = render.DefaultColor
	}
	if c.AnimationSpeed == 0 {
		c.AnimationSpeed = 1000
	}
	if c.Display.String() == "" {
		c.Display = enums.DisplayModePlain
	}
	return c
}

var reColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate checks task names are unique and non-empty, every task has people,
// and colors are hex colors not exceeding the number of people.
func Validate(c Config) error {
	seen := map[string]bool{}
	for i, t := range c.Tasks {
		if t.Name == "" {
			return fmt.Errorf("task %d: name is required", i+1)
		}
		if seen[t.Name] {
			return fmt.Errorf("task %q: duplicate name", t.Name)
		}
		seen[t.Name] = true
		if len(t.People) == 0 {
			return fmt.Errorf("task %q: at least one person is required", t.Name)
		}
		for j, p := range t.People {
			if p == "" {
				return fmt.Errorf("task %q: person %d is empty", t.Name, j+1)
			}
		}
		if len(t.Colors) > len(t.People) {
			return fmt.Errorf("task %q: %d colors for %d people", t.Name, len(t.Colors), len(t.People))
		}
		for _, clr := range t.Colors {
			if clr != "" && !reColor.MatchString(clr) {
				return fmt.Errorf("task %q: invalid color %q", t.Name, clr)
			}
		}
	}
	if c.DefaultColor != "" && !reColor.MatchString(c.DefaultColor) {
		return fmt.Errorf("invalid default color %q", c.DefaultColor)
	}
	if c.AnimationSpeed < 0 {
		return fmt.Errorf("animation speed must not be negative, got %d", c.AnimationSpeed)
	}
	return nil
}

// GenerateSchema returns JSON schema of the YAML config
func GenerateSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{FieldNameTag: "yaml", DoNotReference: true}
	return r.Reflect(&Config{})
}

// File loads config from a YAML file, thread safe
type File struct {
	path        string
	updInterval time.Duration
}

// New makes File for path, but not loading yet
func New(path string, updInterval time.Duration) *File {
	log.Printf("[INFO] config file %s, check for updates every %v", path, updInterval)
	return &File{path: path, updInterval: updInterval}
}

// Load reads, parses and validates the config file
func (f *File) Load() (Config, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return Config{}, fmt.Errorf("can't read config %s: %w", f.path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("can't parse config %s: %w", f.path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", f.path, err)
	}
	return withDefaults(cfg), nil
}

// LoadOrDefault loads the config, falling back to Default if the file doesn't exist
func (f *File) LoadOrDefault() (Config, error) {
	cfg, err := f.Load()
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("[INFO] config file %s not found, using built-in sample tasks", f.path)
		return Default(), nil
	}
	return cfg, err
}

func (f *File) String() string {
	return f.path
}

// Changes returns a channel getting a fresh config each time the file modification time changes.
// Changes are checked periodically, invalid configs are logged and skipped.
func (f *File) Changes(ctx context.Context) (<-chan Config, error) {
	mtime := func() (time.Time, error) {
		st, err := os.Stat(f.path)
		if err != nil {
			return time.Time{}, fmt.Errorf("can't stat config %s: %w", f.path, err)
		}
		return st.ModTime(), nil
	}

	lastMtime, err := mtime()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	ch := make(chan Config)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(f.updInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m, err := mtime()
				if err != nil {
					log.Printf("[DEBUG] can't check %s, %v", f.path, err)
					continue
				}
				if m.Equal(lastMtime) {
					continue
				}
				lastMtime = m
				cfg, err := f.Load()
				if err != nil {
					log.Printf("[WARN] config update ignored, %v", err)
					continue
				}
				log.Printf("[INFO] config %s updated, %d tasks", f.path, len(cfg.Tasks))
				select {
				case ch <- cfg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

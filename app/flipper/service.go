// Package flipper provides the live rotation board. Service owns the state mapping, runs one-shot
// loading of persisted states, serializes flips and hands every mutation to a background saver.
package flipper

import (
	"context"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"

	"github.com/umputun/flipper/app/config"
	"github.com/umputun/flipper/app/notify"
	"github.com/umputun/flipper/app/rotation"
)

//go:generate moq -out mocks/store.go -pkg mocks -skip-ensure -fmt goimports . Store
//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports . Notifier
//go:generate moq -out mocks/repeater.go -pkg mocks -skip-ensure -fmt goimports . Repeater
//go:generate moq -out mocks/config_watcher.go -pkg mocks -skip-ensure -fmt goimports . ConfigWatcher

// Store is a persistence gateway, save always gets the whole mapping
type Store interface {
	Load(ctx context.Context) (rotation.States, error)
	Save(ctx context.Context, states rotation.States) error
}

// Notifier delivers flip messages
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Repeater repeats failed function
type Repeater interface {
	Do(ctx context.Context, fun func() error, errors ...error) (err error)
}

// ConfigWatcher provides updated configs
type ConfigWatcher interface {
	Changes(ctx context.Context) (<-chan config.Config, error)
}

// Params for NewService, only Config and Store are required
type Params struct {
	Config       config.Config
	Store        Store
	Notifier     Notifier      // optional, no notifications if nil
	Repeater     Repeater      // optional, single attempt if nil
	Watcher      ConfigWatcher // optional, no config reload if nil
	QueueSize    int           // pending saves, default 64
	DrainTimeout time.Duration // time to flush pending saves on shutdown, default 5s
	Now          func() time.Time
}

// Service is a flipper widget instance
type Service struct {
	store        Store
	notifier     Notifier
	repeater     Repeater
	watcher      ConfigWatcher
	drainTimeout time.Duration
	now          func() time.Time

	saves      chan rotation.States
	loaded     chan struct{}
	loadedOnce sync.Once

	mu      sync.RWMutex
	cfg     config.Config
	states  rotation.States
	version int64
}

// FlipResult is the outcome of a successful flip
type FlipResult struct {
	Task    rotation.Task
	State   *rotation.TaskState // copy, safe to use without lock
	Version int64               // board version after the flip
}

// Snapshot is a consistent copy of the board state
type Snapshot struct {
	Version int64
	Config  config.Config
	States  rotation.States
}

// NewService makes flipper service with default states for all configured tasks.
// Persisted states are applied later, by Run.
func NewService(p Params) *Service {
	res := &Service{
		store:        p.Store,
		notifier:     p.Notifier,
		repeater:     p.Repeater,
		watcher:      p.Watcher,
		drainTimeout: p.DrainTimeout,
		now:          p.Now,
		cfg:          p.Config,
		states:       rotation.Initialize(p.Config.Tasks, nil),
		version:      1,
		loaded:       make(chan struct{}),
	}
	if res.repeater == nil {
		res.repeater = repeater.New(&strategy.Once{})
	}
	if res.drainTimeout <= 0 {
		res.drainTimeout = 5 * time.Second
	}
	if res.now == nil {
		res.now = time.Now
	}
	queueSize := p.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	res.saves = make(chan rotation.States, queueSize)
	return res
}

// Run loads persisted states, watches config updates and saves states till ctx canceled.
// Blocking, pending saves are flushed on exit.
func (s *Service) Run(ctx context.Context) {
	go s.load(ctx)

	if s.watcher != nil {
		ch, err := s.watcher.Changes(ctx)
		if err != nil {
			log.Printf("[WARN] can't watch config changes, %v", err)
		} else {
			go s.reload(ctx, ch)
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.drain(nil)
			log.Print("[DEBUG] flipper terminated")
			return
		case states := <-s.saves:
			if ctx.Err() != nil {
				s.drain(states)
				log.Print("[DEBUG] flipper terminated")
				return
			}
			s.save(ctx, states)
		}
	}
}

// Loaded returns a channel closed when persisted states were applied (or failed to load)
func (s *Service) Loaded() <-chan struct{} {
	return s.loaded
}

// Flip advances the task to the next person. Returns false for unknown task.
func (s *Service) Flip(name string) (FlipResult, bool) {
	s.mu.Lock()
	task, ok := s.cfg.Task(name)
	if !ok {
		s.mu.Unlock()
		log.Printf("[DEBUG] flip ignored, unknown task %q", name)
		return FlipResult{}, false
	}
	st, ok := rotation.Advance(s.states, name, s.now())
	if !ok {
		s.mu.Unlock()
		log.Printf("[WARN] flip ignored, no valid state for %q", name)
		return FlipResult{}, false
	}
	s.version++
	res := FlipResult{Task: task, State: st.Clone(), Version: s.version}
	snapshot := s.states.Clone()
	s.mu.Unlock()

	log.Printf("[INFO] flipped %q, %s -> %s", name, *res.State.LastPerson, res.State.Current())
	s.enqueueSave(snapshot)
	s.notify(res)
	return res, true
}

// Snapshot returns a copy of current config and states
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Version: s.version, Config: s.cfg, States: s.states.Clone()}
}

// Version returns current board version, changed on every flip, load and config update
func (s *Service) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// UpdateConfig replaces the config and re-merges states. New tasks get default states,
// removed tasks dropped, existing states kept as is.
func (s *Service) UpdateConfig(cfg config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.states = rotation.Initialize(cfg.Tasks, s.states)
	s.version++
	snapshot := s.states.Clone()
	s.mu.Unlock()
	log.Printf("[INFO] config updated, %d tasks", len(cfg.Tasks))
	s.enqueueSave(snapshot)
}

func (s *Service) load(ctx context.Context) {
	defer s.loadedOnce.Do(func() { close(s.loaded) })

	persisted, err := s.store.Load(ctx)
	if err != nil {
		log.Printf("[WARN] can't load task states, starting with defaults, %v", err)
		return
	}
	if len(persisted) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// persisted entries win, tasks without persisted entry keep what they have now
	merged := make(rotation.States, len(s.states)+len(persisted))
	for name, st := range s.states {
		merged[name] = st
	}
	for name, st := range persisted {
		if !st.Valid() {
			log.Printf("[WARN] invalid persisted state for %q ignored", name)
			continue
		}
		merged[name] = st
	}
	s.states = rotation.Initialize(s.cfg.Tasks, merged)
	s.version++
	log.Printf("[INFO] loaded %d task states", len(persisted))
}

func (s *Service) reload(ctx context.Context, ch <-chan config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-ch:
			if !ok {
				return
			}
			s.UpdateConfig(cfg)
		}
	}
}

func (s *Service) enqueueSave(states rotation.States) {
	select {
	case s.saves <- states:
	default:
		log.Printf("[WARN] save queue full, dropping save request")
	}
}

func (s *Service) save(ctx context.Context, states rotation.States) {
	err := s.repeater.Do(ctx, func() error { return s.store.Save(ctx, states) })
	if err != nil {
		log.Printf("[WARN] can't save task states, %v", err)
	}
}

// drain saves the latest pending snapshot, older ones are overwritten by it anyway
func (s *Service) drain(last rotation.States) {
	for drained := false; !drained; {
		select {
		case states := <-s.saves:
			last = states
		default:
			drained = true
		}
	}
	if last == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()
	if err := s.store.Save(ctx, last); err != nil {
		log.Printf("[WARN] can't save task states on shutdown, %v", err)
	}
}

func (s *Service) notify(res FlipResult) {
	if s.notifier == nil {
		return
	}
	msg := notify.FlipMessage(res.Task.Name, *res.State.LastPerson, res.State.Current())
	go func() {
		if err := s.notifier.Send(context.Background(), msg); err != nil {
			log.Printf("[WARN] can't send flip notification, %v", err)
		}
	}()
}

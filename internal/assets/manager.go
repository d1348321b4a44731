package assets

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/cases"

	"github.com/Compy/mpf-mc/internal/boot"
	"github.com/Compy/mpf-mc/internal/events"
)

// EventLoadingAssets is posted on the bus for every completion batch
// and every remote progress update, with total, loaded, remaining, and
// percent fields.
const EventLoadingAssets = "loading_assets"

// BootHold is the boot gate hold the manager releases once all
// startup assets are in.
const BootHold = "assets"

// KeyPreload is the load key for assets loaded during boot.
const KeyPreload = "preload"

// Loadable is the shared lifecycle surface of assets and groups.
type Loadable interface {
	Name() string
	Loaded() bool
	Load(cb LoadCallback)
	Unload() error
}

// Options configures a Manager.
type Options struct {
	Logger *slog.Logger
	Bus    *events.Bus
	Gate   *boot.Gate

	// PollInterval is the cadence of the automatic result poll that
	// runs while loads are outstanding. Zero disables the automatic
	// poll; callers then drive Poll themselves.
	PollInterval time.Duration
}

// ProgressSnapshot is a point-in-time view of loading progress, local
// and remote combined.
type ProgressSnapshot struct {
	Total        int
	Loaded       int
	Remaining    int
	Percent      int
	RemoteTotal  int
	RemoteLoaded int
}

// Info is a read-only summary of a single registered asset.
type Info struct {
	Name     string
	Kind     string
	File     string
	State    string
	LoadKey  string
	Priority int
}

// ClassSummary aggregates per-class registry counts.
type ClassSummary struct {
	Attribute string
	Assets    int
	Groups    int
	Loaded    int
}

type classEntry struct {
	class  *Class
	assets map[string]*Asset
	groups map[string]*Group
}

// Manager owns the asset registry, the background loader, and the
// progress counters. All methods are safe for concurrent use.
type Manager struct {
	logger       *slog.Logger
	bus          *events.Bus
	gate         *boot.Gate
	pollInterval time.Duration

	queue   *loadQueue
	results *resultQueue
	loader  *loader
	crash   chan error

	nextID atomic.Uint64

	mu           sync.Mutex
	classes      map[string]*classEntry
	pending      int
	loadedCount  int
	remoteTotal  int
	remoteLoaded int
	bootCleared  bool
	shutdown     bool

	pollMu   sync.Mutex
	pollStop chan struct{}
}

// NewManager builds a manager and starts its loader goroutine. The
// manager registers the "assets" hold on the gate when one is given.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Manager{
		logger:       logger,
		bus:          opts.Bus,
		gate:         opts.Gate,
		pollInterval: opts.PollInterval,
		queue:        newLoadQueue(),
		results:      &resultQueue{},
		crash:        make(chan error, 1),
		classes:      make(map[string]*classEntry),
	}
	if m.gate != nil {
		m.gate.RegisterHold(BootHold)
	}
	m.loader = startLoader(m.queue, m.results, m.crash, logger)
	return m
}

// Crashed returns the channel carrying a fatal loader error. At most
// one error is ever delivered; after that the loader is gone.
func (m *Manager) Crashed() <-chan error {
	return m.crash
}

// RegisterClass adds an asset class to the registry. Registering the
// same attribute twice is a configuration error.
func (m *Manager) RegisterClass(class *Class) error {
	if class == nil || class.Attribute == "" {
		return fmt.Errorf("%w: class requires an attribute", ErrConfiguration)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.classes[class.Attribute]; dup {
		return fmt.Errorf("%w: asset class %q registered twice", ErrConfiguration, class.Attribute)
	}
	m.classes[class.Attribute] = &classEntry{
		class:  class,
		assets: make(map[string]*Asset),
		groups: make(map[string]*Group),
	}
	m.logger.Debug("asset class registered", "attribute", class.Attribute, "extensions", class.Extensions)
	return nil
}

// Classes returns the registered classes ordered by descending class
// priority, ties broken by attribute name.
func (m *Manager) Classes() []*Class {
	m.mu.Lock()
	out := make([]*Class, 0, len(m.classes))
	for _, entry := range m.classes {
		out = append(out, entry.class)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Attribute < out[j].Attribute
	})
	return out
}

// CreateAsset builds the payload for one file and registers the asset
// under the class attribute. Asset names are case-insensitive; a
// repeat name replaces the earlier registration.
func (m *Manager) CreateAsset(attribute, name, file string, cfg Config) (*Asset, error) {
	m.mu.Lock()
	entry, ok := m.classes[attribute]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no asset class %q", ErrNotFound, attribute)
	}
	if cfg == nil {
		cfg = Config{}
	}

	payload, err := entry.class.New(name, file, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", ErrConfiguration, attribute, name, err)
	}

	a := &Asset{
		name:       name,
		file:       file,
		class:      entry.class,
		config:     cfg,
		payload:    payload,
		creationID: m.nextID.Add(1),
		mgr:        m,
		priority:   cfg.Int("priority", 0),
		loadKey:    cfg.String("load", "on_demand"),
	}

	m.mu.Lock()
	entry.assets[foldName(name)] = a
	m.mu.Unlock()
	return a, nil
}

// Asset looks up a registered asset by class attribute and
// case-insensitive name.
func (m *Manager) Asset(attribute, name string) (*Asset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.classes[attribute]
	if !ok {
		return nil, false
	}
	a, ok := entry.assets[foldName(name)]
	return a, ok
}

// AssetByFile finds the registered asset backed by the given file
// path, if any.
func (m *Manager) AssetByFile(path string) (*Asset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.classes {
		for _, a := range entry.assets {
			if a.file == path {
				return a, true
			}
		}
	}
	return nil, false
}

// Group looks up a registered group by class attribute and
// case-insensitive name.
func (m *Manager) Group(attribute, name string) (*Group, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.classes[attribute]
	if !ok {
		return nil, false
	}
	g, ok := entry.groups[foldName(name)]
	return g, ok
}

// LoadByKey triggers a load for every asset and group whose load key
// matches, and returns what it triggered so the caller can unload the
// same set later.
func (m *Manager) LoadByKey(key string) []Loadable {
	m.mu.Lock()
	var targets []Loadable
	for _, entry := range m.classes {
		for _, a := range entry.assets {
			if a.loadKey == key {
				targets = append(targets, a)
			}
		}
		for _, g := range entry.groups {
			if g.loadKey == key {
				targets = append(targets, g)
			}
		}
	}
	m.mu.Unlock()

	sort.Slice(targets, func(i, j int) bool { return targets[i].Name() < targets[j].Name() })
	for _, target := range targets {
		target.Load(nil)
	}
	if len(targets) > 0 {
		m.logger.Info("load key triggered", "key", key, "count", len(targets))
	}
	return targets
}

// UnloadAssets unloads every loadable in the set, collecting errors.
func (m *Manager) UnloadAssets(targets []Loadable) error {
	var errs []error
	for _, target := range targets {
		if err := target.Unload(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Preload triggers every "preload" keyed asset and emits an initial
// progress notification. When nothing needs loading, that notification
// immediately releases the boot gate.
func (m *Manager) Preload() {
	m.LoadByKey(KeyPreload)
	m.postProgress()
}

// enqueue registers one unit of pending work and hands the asset to
// the loader. Called from Asset.loadAs, which rolls the asset's state
// back when the manager is already shut down.
func (m *Manager) enqueue(a *Asset, priority int) error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		m.logger.Warn("load rejected, manager is shut down", "kind", a.Kind(), "name", a.Name())
		return fmt.Errorf("%w: %s %q", ErrShutdown, a.Kind(), a.Name())
	}
	m.pending++
	m.mu.Unlock()
	m.queue.push(a, priority)
	m.armPoll()
	return nil
}

// Poll drains the loader's finished queue, promotes each asset to
// loaded, fires callbacks, and advances the progress counters. When
// everything outstanding has landed, both local counters reset to zero
// and the automatic poll stops.
func (m *Manager) Poll() {
	finished := m.results.takeAll()
	for _, a := range finished {
		a.markLoaded()
		m.mu.Lock()
		m.loadedCount++
		m.mu.Unlock()
	}
	if len(finished) > 0 {
		m.postProgress()
	}

	m.mu.Lock()
	if m.loadedCount == m.pending {
		m.loadedCount = 0
		m.pending = 0
	}
	m.mu.Unlock()
	m.disarmPollIfIdle()
}

// ReportRemoteProgress ingests loading progress self-reported by an
// external process and re-emits a merged progress notification.
func (m *Manager) ReportRemoteProgress(total, remaining int) {
	if remaining < 0 || total < remaining {
		m.logger.Warn("ignoring inconsistent remote progress", "total", total, "remaining", remaining)
		return
	}
	m.mu.Lock()
	m.remoteTotal = total
	m.remoteLoaded = total - remaining
	m.mu.Unlock()
	m.postProgress()
}

// Progress returns a snapshot of the merged local and remote counters.
func (m *Manager) Progress() ProgressSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progressLocked()
}

func (m *Manager) progressLocked() ProgressSnapshot {
	total := m.pending + m.remoteTotal
	loaded := m.loadedCount + m.remoteLoaded
	percent := 100
	if total > 0 {
		percent = int(math.Round(float64(loaded) / float64(total) * 100))
	}
	return ProgressSnapshot{
		Total:        total,
		Loaded:       loaded,
		Remaining:    total - loaded,
		Percent:      percent,
		RemoteTotal:  m.remoteTotal,
		RemoteLoaded: m.remoteLoaded,
	}
}

// postProgress emits a progress event and, the first time combined
// remaining reaches zero, releases the boot gate.
func (m *Manager) postProgress() {
	m.mu.Lock()
	snap := m.progressLocked()
	clearGate := snap.Remaining == 0 && !m.bootCleared
	if clearGate {
		m.bootCleared = true
	}
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Post(EventLoadingAssets, events.Payload{
			"total":     snap.Total,
			"loaded":    snap.Loaded,
			"remaining": snap.Remaining,
			"percent":   snap.Percent,
		})
	}
	if clearGate && m.gate != nil {
		m.logger.Info("startup assets loaded")
		m.gate.ClearHold(BootHold)
	}
}

// armPoll starts the periodic poll if it is not already running.
func (m *Manager) armPoll() {
	if m.pollInterval <= 0 {
		return
	}
	m.pollMu.Lock()
	defer m.pollMu.Unlock()
	if m.pollStop != nil {
		return
	}
	stop := make(chan struct{})
	m.pollStop = stop
	go func() {
		ticker := time.NewTicker(m.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.Poll()
			}
		}
	}()
}

// disarmPollIfIdle stops the periodic poll only when nothing is
// outstanding. The work re-check runs under pollMu: a load admitted
// after the caller's idle decision either keeps the ticker alive here
// or, if it closed first, finds pollStop nil and re-arms. Enqueue
// increments pending before calling armPoll, so the two orderings are
// exhaustive.
func (m *Manager) disarmPollIfIdle() {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()
	if m.pollStop == nil {
		return
	}
	m.mu.Lock()
	busy := m.pending != 0 || m.loadedCount != 0
	m.mu.Unlock()
	if busy || !m.results.empty() {
		return
	}
	close(m.pollStop)
	m.pollStop = nil
}

// disarmPoll stops the periodic poll unconditionally. Shutdown only.
func (m *Manager) disarmPoll() {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()
	if m.pollStop != nil {
		close(m.pollStop)
		m.pollStop = nil
	}
}

// ListAssets returns summaries of registered assets, optionally
// filtered by class attribute, sorted by kind then name.
func (m *Manager) ListAssets(attribute string) []Info {
	m.mu.Lock()
	var out []Info
	for attr, entry := range m.classes {
		if attribute != "" && attr != attribute {
			continue
		}
		for _, a := range entry.assets {
			out = append(out, Info{
				Name:     a.Name(),
				Kind:     attr,
				File:     a.File(),
				State:    a.State(),
				LoadKey:  a.LoadKey(),
				Priority: a.Priority(),
			})
		}
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Summaries returns per-class registry counts sorted by attribute.
func (m *Manager) Summaries() []ClassSummary {
	m.mu.Lock()
	out := make([]ClassSummary, 0, len(m.classes))
	for attr, entry := range m.classes {
		summary := ClassSummary{Attribute: attr, Assets: len(entry.assets), Groups: len(entry.groups)}
		for _, a := range entry.assets {
			if a.Loaded() {
				summary.Loaded++
			}
		}
		out = append(out, summary)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Attribute < out[j].Attribute })
	return out
}

// Shutdown stops the automatic poll and the loader goroutine. Pending
// queue entries are discarded; loaded assets stay loaded.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	m.shutdown = true
	m.mu.Unlock()

	m.disarmPoll()
	m.loader.Stop()
}

// foldName is the case-insensitive key used for asset and group
// lookups, Unicode case folding included.
func foldName(name string) string {
	return cases.Fold().String(name)
}

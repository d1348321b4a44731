package assets

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"sync"
)

// Selection policies for picking a member out of a group.
const (
	SelectSequence        = "sequence"
	SelectRandom          = "random"
	SelectRandomForceNext = "random_force_next"
	SelectRandomForceAll  = "random_force_all"
)

type member struct {
	asset  *Asset
	weight int
}

// Group is a named, weighted collection of assets of one class. Next
// returns one member per the configured selection policy; Load and
// Unload fan out to every member.
type Group struct {
	name      string
	class     *Class
	selection string
	loadKey   string
	logger    *slog.Logger

	mu        sync.Mutex
	members   []member
	total     int
	sequence  []*Asset
	seqPos    int
	last      *Asset
	sent      map[*Asset]struct{}
	loading   map[*Asset]struct{}
	callbacks map[any]LoadCallback
}

// groupMemberKey dedups the per-member completion callback a group
// registers on its assets, so two groups sharing a member do not
// clobber each other.
type groupMemberKey struct {
	group *Group
	asset *Asset
}

// CreateGroup parses a group config entry, resolves its members
// against the registry, and registers the group under the class
// attribute. Members are listed under the class config section as
// "name" or "name|weight"; names that match no registered asset are
// logged and skipped.
func (m *Manager) CreateGroup(attribute, name string, cfg Config) (*Group, error) {
	m.mu.Lock()
	entry, ok := m.classes[attribute]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no asset class %q", ErrNotFound, attribute)
	}
	if entry.class.GroupSection == "" {
		return nil, fmt.Errorf("%w: asset class %q does not support groups", ErrConfiguration, attribute)
	}
	if cfg == nil {
		cfg = Config{}
	}

	rawMembers := cfg.StringSlice(entry.class.ConfigSection)
	if len(rawMembers) == 0 {
		return nil, fmt.Errorf("%w: group %q has no %s entry", ErrConfiguration, name, entry.class.ConfigSection)
	}

	selection := cfg.String("type", SelectSequence)
	switch selection {
	case SelectSequence, SelectRandom, SelectRandomForceNext, SelectRandomForceAll:
	default:
		return nil, fmt.Errorf("%w: group %q has unknown type %q", ErrConfiguration, name, selection)
	}

	g := &Group{
		name:      name,
		class:     entry.class,
		selection: selection,
		loadKey:   cfg.String("load", "on_demand"),
		logger:    m.logger,
		seqPos:    -1,
		sent:      make(map[*Asset]struct{}),
		loading:   make(map[*Asset]struct{}),
	}

	for _, raw := range rawMembers {
		memberName, weight, err := parseMember(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: group %q: %v", ErrConfiguration, name, err)
		}
		asset, ok := m.Asset(attribute, memberName)
		if !ok {
			m.logger.Warn("group member not found, skipping",
				"group", name, "kind", attribute, "member", memberName)
			continue
		}
		g.members = append(g.members, member{asset: asset, weight: weight})
		g.total += weight
	}
	g.rebuildSequence()

	m.mu.Lock()
	entry.groups[foldName(name)] = g
	m.mu.Unlock()
	return g, nil
}

func parseMember(raw string) (string, int, error) {
	name, weightPart, found := strings.Cut(raw, "|")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", 0, fmt.Errorf("empty member name in %q", raw)
	}
	if !found {
		return name, 1, nil
	}
	weight, err := strconv.Atoi(strings.TrimSpace(weightPart))
	if err != nil || weight <= 0 {
		return "", 0, fmt.Errorf("member %q needs a positive integer weight", raw)
	}
	return name, weight, nil
}

// rebuildSequence expands the weighted membership into the rotating
// buffer the sequence policy walks: each member appears weight times
// in original order.
func (g *Group) rebuildSequence() {
	g.sequence = g.sequence[:0]
	for _, mem := range g.members {
		for i := 0; i < mem.weight; i++ {
			g.sequence = append(g.sequence, mem.asset)
		}
	}
	g.seqPos = -1
}

// Name returns the group's registry name.
func (g *Group) Name() string { return g.name }

// Kind returns the class attribute the group belongs to.
func (g *Group) Kind() string { return g.class.Attribute }

// Selection returns the configured selection policy.
func (g *Group) Selection() string { return g.selection }

// Members returns the group's member assets in configuration order.
func (g *Group) Members() []*Asset {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Asset, len(g.members))
	for i, mem := range g.members {
		out[i] = mem.asset
	}
	return out
}

// Loaded reports whether every member is loaded. An empty group counts
// as loaded.
func (g *Group) Loaded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, mem := range g.members {
		if !mem.asset.Loaded() {
			return false
		}
	}
	return true
}

// Next picks one member per the selection policy. It returns nil for a
// group whose members all failed to resolve.
func (g *Group) Next() *Asset {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.members) == 0 {
		return nil
	}
	switch g.selection {
	case SelectSequence:
		g.seqPos = (g.seqPos + 1) % len(g.sequence)
		return g.sequence[g.seqPos]
	case SelectRandomForceNext:
		pick := g.pickWeighted(g.last)
		g.last = pick
		return pick
	case SelectRandomForceAll:
		if len(g.sent) >= len(g.members) {
			clear(g.sent)
		}
		pick := g.pickAmongUnsent()
		g.sent[pick] = struct{}{}
		return pick
	default:
		return g.pickWeighted(nil)
	}
}

// pickWeighted draws a member with probability proportional to weight,
// excluding one asset. With a single member the exclusion is ignored.
func (g *Group) pickWeighted(exclude *Asset) *Asset {
	if len(g.members) == 1 {
		return g.members[0].asset
	}
	total := g.total
	if exclude != nil {
		for _, mem := range g.members {
			if mem.asset == exclude {
				total -= mem.weight
				break
			}
		}
	}
	value := rand.Intn(total) + 1
	cumulative := 0
	for _, mem := range g.members {
		if mem.asset == exclude {
			continue
		}
		cumulative += mem.weight
		if value <= cumulative {
			return mem.asset
		}
	}
	return g.members[len(g.members)-1].asset
}

func (g *Group) pickAmongUnsent() *Asset {
	total := 0
	for _, mem := range g.members {
		if _, sent := g.sent[mem.asset]; sent {
			continue
		}
		total += mem.weight
	}
	value := rand.Intn(total) + 1
	cumulative := 0
	for _, mem := range g.members {
		if _, sent := g.sent[mem.asset]; sent {
			continue
		}
		cumulative += mem.weight
		if value <= cumulative {
			return mem.asset
		}
	}
	return g.members[len(g.members)-1].asset
}

// Load requests a load of every member that is not already loaded, at
// each member's own priority. The callback fires once, after the last
// outstanding member lands; if nothing needs loading it fires
// immediately.
func (g *Group) Load(cb LoadCallback) {
	g.load(cb, func(a *Asset) int { return a.Priority() })
}

// LoadWithPriority is Load with every member enqueued at the given
// priority instead of its own.
func (g *Group) LoadWithPriority(cb LoadCallback, priority int) {
	g.load(cb, func(*Asset) int { return priority })
}

func (g *Group) load(cb LoadCallback, priorityOf func(*Asset) int) {
	g.mu.Lock()
	var pending []*Asset
	for _, mem := range g.members {
		if !mem.asset.Loaded() {
			pending = append(pending, mem.asset)
		}
	}
	if len(pending) == 0 {
		g.mu.Unlock()
		if cb != nil {
			cb()
		}
		return
	}
	if cb != nil {
		if g.callbacks == nil {
			g.callbacks = make(map[any]LoadCallback)
		}
		g.callbacks[callbackKey(cb)] = cb
	}
	for _, a := range pending {
		g.loading[a] = struct{}{}
	}
	g.mu.Unlock()

	for _, a := range pending {
		target := a
		target.loadAs(groupMemberKey{group: g, asset: target}, func() {
			g.memberDone(target)
		}, priorityOf(target))
	}
}

func (g *Group) memberDone(a *Asset) {
	g.mu.Lock()
	delete(g.loading, a)
	if len(g.loading) > 0 {
		g.mu.Unlock()
		return
	}
	cbs := make([]LoadCallback, 0, len(g.callbacks))
	for _, cb := range g.callbacks {
		cbs = append(cbs, cb)
	}
	g.callbacks = nil
	g.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
}

// Unload unloads every loaded member.
func (g *Group) Unload() error {
	var errs []error
	for _, a := range g.Members() {
		if !a.Loaded() {
			continue
		}
		if err := a.Unload(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package assets

import (
	"fmt"
	"reflect"
	"sync"
)

// Payload holds the decodable content behind an asset. Load runs on the
// loader goroutine and may block on disk or subprocess work; Unload
// runs on the caller's goroutine and must release decoded resources.
type Payload interface {
	Load() error
	Unload() error
}

// LoadCallback is invoked once a load request completes. Callbacks
// fire on the poll goroutine and are cleared after firing.
type LoadCallback func()

// Asset is a single named, disk-backed resource tracked by the
// manager. Loading is asynchronous: Load enqueues the asset for the
// background loader and returns immediately.
type Asset struct {
	name       string
	file       string
	class      *Class
	config     Config
	payload    Payload
	creationID uint64
	mgr        *Manager

	mu        sync.Mutex
	priority  int
	loadKey   string
	loading   bool
	loaded    bool
	unloading bool
	decoded   bool
	callbacks map[any]LoadCallback

	// decodeMu serializes the payload decode against a concurrent
	// unload of the same payload.
	decodeMu sync.Mutex
}

// Name returns the asset's registry name.
func (a *Asset) Name() string { return a.name }

// File returns the absolute path of the backing file.
func (a *Asset) File() string { return a.file }

// Kind returns the registry attribute of the asset's class, such as
// "images" or "sounds".
func (a *Asset) Kind() string { return a.class.Attribute }

// Config returns the merged configuration the asset was created with.
func (a *Asset) Config() Config { return a.config }

// Payload returns the asset's payload. Decoded content is only valid
// while Loaded reports true.
func (a *Asset) Payload() Payload { return a.payload }

// LoadKey returns the trigger key that batch-loads this asset.
func (a *Asset) LoadKey() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loadKey
}

// Priority returns the asset's current load priority.
func (a *Asset) Priority() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.priority
}

// SetPriority overrides the load priority. Entries already sitting in
// the load queue keep the priority they were enqueued with.
func (a *Asset) SetPriority(priority int) {
	a.mu.Lock()
	a.priority = priority
	a.mu.Unlock()
}

// Loaded reports whether the payload is decoded and usable.
func (a *Asset) Loaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}

// Loading reports whether the asset is queued or being decoded.
func (a *Asset) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// State returns a human-readable lifecycle state.
func (a *Asset) State() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.loaded:
		return "loaded"
	case a.loading:
		return "loading"
	case a.unloading:
		return "unloading"
	default:
		return "unloaded"
	}
}

// Load requests an asynchronous load at the asset's current priority.
// If the asset is already loaded the callback fires immediately on the
// calling goroutine. A nil callback is allowed. Re-registering the same
// callback while a load is pending is a no-op.
func (a *Asset) Load(cb LoadCallback) {
	a.LoadWithPriority(cb, a.Priority())
}

// LoadWithPriority requests an asynchronous load, overriding the
// asset's priority for this and future queue entries.
func (a *Asset) LoadWithPriority(cb LoadCallback, priority int) {
	a.loadAs(callbackKey(cb), cb, priority)
}

// loadAs registers cb under an explicit dedup key and enqueues the
// asset. Group loads pass the group as key so two groups sharing a
// member each keep their own callback.
func (a *Asset) loadAs(key any, cb LoadCallback, priority int) {
	a.mu.Lock()
	if a.loaded {
		a.mu.Unlock()
		if cb != nil {
			cb()
		}
		return
	}
	if cb != nil {
		if a.callbacks == nil {
			a.callbacks = make(map[any]LoadCallback)
		}
		a.callbacks[key] = cb
	}
	a.priority = priority
	a.loading = true
	a.mu.Unlock()

	// Enqueuing an already queued asset is legal. The loader re-checks
	// the loaded flag before decoding, so the duplicate entry only
	// costs a queue round trip.
	if err := a.mgr.enqueue(a, priority); err != nil {
		a.mu.Lock()
		a.loading = false
		if cb != nil {
			delete(a.callbacks, key)
		}
		a.mu.Unlock()
	}
}

// Unload releases the decoded payload. Unloading an asset that is
// still loading is a hard error; unloading an unloaded asset is a
// no-op.
func (a *Asset) Unload() error {
	a.mu.Lock()
	if a.loading {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s %q", ErrUnloadWhileLoading, a.class.Attribute, a.name)
	}
	if !a.loaded {
		a.mu.Unlock()
		return nil
	}
	a.unloading = true
	a.loaded = false
	a.mu.Unlock()

	a.decodeMu.Lock()
	err := a.payload.Unload()
	a.decodeMu.Unlock()

	a.mu.Lock()
	a.unloading = false
	a.decoded = false
	a.mu.Unlock()

	if err != nil {
		return fmt.Errorf("unload %s %q: %w", a.class.Attribute, a.name, err)
	}
	return nil
}

// claimDecode reports whether the loader should decode this queue
// entry. Duplicate entries for an already decoded asset skip the
// decode but still round-trip through the results queue.
func (a *Asset) claimDecode() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.decoded {
		return false
	}
	a.decoded = true
	return true
}

// markLoaded flips the asset to loaded and fires all pending callbacks
// outside the asset lock. Called by the manager's poll for every queue
// round trip, so repeat calls for already loaded assets are harmless.
func (a *Asset) markLoaded() {
	a.mu.Lock()
	a.loaded = true
	a.loading = false
	cbs := make([]LoadCallback, 0, len(a.callbacks))
	for _, cb := range a.callbacks {
		cbs = append(cbs, cb)
	}
	a.callbacks = nil
	a.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
}

// callbackKey derives a dedup key for a plain callback. Two closures
// created from the same function literal share a key, which matches
// the intent that re-registering "the same" callback is idempotent.
func callbackKey(cb LoadCallback) any {
	if cb == nil {
		return nil
	}
	return reflect.ValueOf(cb).Pointer()
}

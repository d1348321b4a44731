// Package assets implements the asynchronous asset loading pipeline:
// a registry of asset classes, the priority queue feeding a single
// background loader goroutine, and the progress accounting that gates
// controller startup.
//
// Lifecycle: an Asset starts unloaded, Load enqueues it, the loader
// decodes its payload, and the next Poll promotes it to loaded and
// fires callbacks. Unload is synchronous on the caller's goroutine.
// Decode failures are fatal and surface on the manager's crash
// channel; nothing is retried.
//
// Ordering: the load queue ranks entries by descending priority, then
// by ascending creation order. The priority is captured at enqueue
// time, so SetPriority only affects future loads.
package assets

// Package events provides the in-process event bus the media controller
// uses to announce lifecycle milestones such as asset loading progress.
//
// Dispatch is synchronous: Post invokes handlers on the calling goroutine
// in subscription order. Components that need asynchrony should hand the
// payload off to their own goroutine inside the handler.
package events

// Package notifications delivers controller events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Startup and error events can be toggled independently so a
// production cabinet can alert on load failures without chatting about every
// boot.
//
// Extend this package if you need alternative transports; all controller code
// depends only on the simple Service interface.
package notifications

// Package boot coordinates startup readiness via named holds.
package boot

// Package probe shells out to ffprobe and parses its JSON output into
// the stream and container facts video assets need.
package probe

// Package probecache persists ffprobe results in SQLite so video
// discovery does not re-probe unchanged files across restarts. Entries
// are invalidated by file size and modification time.
package probecache

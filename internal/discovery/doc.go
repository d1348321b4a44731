// Package discovery builds the asset registry from the machine
// directory tree.
//
// For every registered asset class it scans the class folder under the
// machine directory and under each mode directory, then overlays the
// YAML config sections: assets.<kind> supplies per-subfolder default
// settings, the <kind> section supplies explicit per-asset entries,
// and <kind>_groups defines groups. In a mode tree the special load
// value "mode_start" resolves to "<mode>_start".
package discovery

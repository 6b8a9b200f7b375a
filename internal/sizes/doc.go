// Package sizes measures gzipped asset sizes under an output directory and
// reports how they changed between two measurements.
package sizes

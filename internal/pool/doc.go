// Package pool runs a fixed number of workers over an indexed batch of work.
//
// It backs both export passes: rendering every route and, in inline script
// mode, patching every written page. At most limit units are in flight at
// once; a new unit is admitted as soon as a worker frees up.
//
// The first error returned by a unit cancels the shared context and is the
// error reported by [Run]. Panics inside a unit are recovered, logged with a
// correlation id, and reported as errors.
package pool

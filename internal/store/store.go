package store

// Outcome represents the stored result of rendering one route.
//
// Outcome is decoupled from the public prerender types so the two can evolve
// independently.
type Outcome struct {
	// Pathname is the normalized route.
	Pathname string

	// HTMLFile is the path of the written index.html.
	// Empty if the page was never written (for example on timeout).
	HTMLFile string

	// HasData reports whether page-data.json was written.
	HasData bool

	// Err is the page-level error, if the render reported one.
	Err error
}

// Store defines how outcomes are collected during an export.
//
// Implementations must be safe for concurrent use: every render worker
// writes its own slot while others are still running.
type Store interface {
	// Set records the outcome for the route at position i.
	// Setting the same position twice replaces the earlier outcome.
	Set(i int, outcome Outcome)

	// Get returns the outcome at position i and whether it has been set.
	Get(i int) (Outcome, bool)

	// All returns every outcome in position order.
	// Unset positions are returned as zero values.
	All() []Outcome

	// Pending returns the positions that have not been set yet.
	Pending() []int
}

package prerender

import (
	"github.com/jpalmerr/prerender/internal/sizes"
	"github.com/jpalmerr/prerender/internal/store"
)

// RenderOutcome is the result of exporting one route.
type RenderOutcome struct {
	// Pathname is the normalized route.
	Pathname string

	// HTMLFile is the path of the written index.html, joined onto the
	// configured public dir. Empty when the page was never written.
	HTMLFile string

	// HasData reports whether page-data.json was written for this route.
	HasData bool

	// Err is the page-level error reported by the render callback, or
	// [ErrRenderTimeout]. It never aborts the export.
	Err error
}

// Result summarizes a finished export.
type Result struct {
	// Outcomes holds one entry per route, in route order.
	Outcomes []RenderOutcome

	// Routes lists every exported route, in order.
	Routes []string

	// DataRoutes lists the routes that carry page data, in route order.
	DataRoutes []string

	// Script is the routes script injected into the export.
	Script string

	// Stats holds gzipped asset sizes in the public dir after the export.
	Stats sizes.Snapshot

	// Previous holds the sizes measured before the export began.
	Previous sizes.Snapshot
}

// Failed returns the outcomes that carry a page-level error.
func (r *Result) Failed() []RenderOutcome {
	var failed []RenderOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// outcomeToStore converts an outcome to its storage form.
func outcomeToStore(o RenderOutcome) store.Outcome {
	return store.Outcome{
		Pathname: o.Pathname,
		HTMLFile: o.HTMLFile,
		HasData:  o.HasData,
		Err:      o.Err,
	}
}

// outcomeFromStore converts a stored outcome to the public type.
func outcomeFromStore(o store.Outcome) RenderOutcome {
	return RenderOutcome{
		Pathname: o.Pathname,
		HTMLFile: o.HTMLFile,
		HasData:  o.HasData,
		Err:      o.Err,
	}
}

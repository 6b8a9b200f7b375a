package prerender

import (
	"context"
	"errors"
	"strings"
)

// RoutesProvider supplies the routes to export.
//
// Two forms are built in: [StaticRoutes] for a fixed list and [RoutesFunc]
// for routes computed on demand (for example from a CMS or the filesystem).
type RoutesProvider interface {
	Routes(ctx context.Context) ([]string, error)
}

// StaticRoutes is a fixed, ordered list of routes.
type StaticRoutes []string

// Routes returns a copy of the list.
func (s StaticRoutes) Routes(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

// RoutesFunc computes the route list when called.
type RoutesFunc func(ctx context.Context) ([]string, error)

// Routes calls f.
func (f RoutesFunc) Routes(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// NormalizeRoute strips a single leading and a single trailing "/" from r.
//
//	NormalizeRoute("/a/")    // "a"
//	NormalizeRoute("//a//")  // "/a/"
//	NormalizeRoute("/")      // ""
func NormalizeRoute(r string) string {
	r = strings.TrimPrefix(r, "/")
	return strings.TrimSuffix(r, "/")
}

// ResolveRoutes obtains the routes from p and normalizes each of them.
// Order and duplicates are preserved.
func ResolveRoutes(ctx context.Context, p RoutesProvider) ([]string, error) {
	if p == nil {
		return nil, errors.New("routes provider is nil")
	}

	routes, err := p.Routes(ctx)
	if err != nil {
		return nil, err
	}

	normalized := make([]string, len(routes))
	for i, r := range routes {
		normalized[i] = NormalizeRoute(r)
	}
	return normalized, nil
}

// Package fetch provides the pooled HTTP client used to talk to a running
// render server.
//
// Users of the prerender library should not need this package directly;
// it is wired through the httpbundle package.
package fetch

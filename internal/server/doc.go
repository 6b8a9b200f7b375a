// Package server provides the HTTP server behind `prerender preview`.
//
// It serves an exported public directory the way a static host would:
//
//   - "/about/" serves about/index.html; "/about" redirects to "/about/"
//   - responses are gzip-compressed when the client accepts it
//   - unknown paths get 404.html from the public dir when one exists
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server

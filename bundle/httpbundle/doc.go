// Package httpbundle exposes a running render server as a
// [prerender.Bundle].
//
// The server implements two endpoints, named after the bundle exports:
//
//	GET  <base>/<routes export>   -> ["/", "/about/"]
//	POST <base>/<render export>   {"url": "about"} -> {"html": "...", "data": {...}, "error": null}
//
// error may be a string or an object with a message field. A 404 from
// either endpoint means the export does not exist.
package httpbundle

package prerender

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Script injection defaults.
const (
	// DefaultScriptMarker is the placeholder pages carry where the routes
	// script should go.
	DefaultScriptMarker = `<!-- razzle_static_js -->`

	DefaultRoutesVariable     = "RAZZLE_STATIC_ROUTES"
	DefaultDataRoutesVariable = "RAZZLE_STATIC_DATA_ROUTES"

	// RoutesScriptName is the file name of the external routes script.
	RoutesScriptName = "static_routes.js"
)

var (
	defaultMarkerPattern = regexp.MustCompile(regexp.QuoteMeta(DefaultScriptMarker))

	// jsIdentifier matches names usable as window.<name>.
	jsIdentifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// BuildScript returns the client script declaring every exported route and
// the routes that carry page data:
//
//	window.RAZZLE_STATIC_ROUTES = ["a","b"];
//	window.RAZZLE_STATIC_DATA_ROUTES = ["b"];
func BuildScript(routesVar, dataRoutesVar string, routes, dataRoutes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "window.%s = %s;\n", routesVar, jsonList(routes))
	fmt.Fprintf(&b, "window.%s = %s;\n", dataRoutesVar, jsonList(dataRoutes))
	return b.String()
}

// jsonList encodes a string list, using [] rather than null when empty.
// HTML-sensitive characters stay escaped so the payload is safe inline.
func jsonList(list []string) string {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list) // []string always encodes
	return string(b)
}

// ScriptTag returns the tag that loads the external routes script.
// publicPath defaults to "/".
func ScriptTag(publicPath, scriptPath string) string {
	if publicPath == "" {
		publicPath = "/"
	}
	return fmt.Sprintf(`<script src="%s%s" defer crossorigin></script>`, publicPath, scriptPath)
}

// InlineScriptTag wraps script in a script element.
func InlineScriptTag(script string) string {
	return "<script>" + script + "</script>"
}

// ReplaceMarker replaces the first match of re in html with replacement.
// replacement is inserted literally; "$" has no special meaning.
func ReplaceMarker(re *regexp.Regexp, html, replacement string) string {
	loc := re.FindStringIndex(html)
	if loc == nil {
		return html
	}
	return html[:loc[0]] + replacement + html[loc[1]:]
}

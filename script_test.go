package prerender

import (
	"regexp"
	"testing"
)

func TestBuildScript(t *testing.T) {
	got := BuildScript(DefaultRoutesVariable, DefaultDataRoutesVariable, []string{"a", "b"}, []string{"b"})
	want := "window.RAZZLE_STATIC_ROUTES = [\"a\",\"b\"];\n" +
		"window.RAZZLE_STATIC_DATA_ROUTES = [\"b\"];\n"
	if got != want {
		t.Errorf("BuildScript() = %q, want %q", got, want)
	}
}

func TestBuildScript_EmptyLists(t *testing.T) {
	got := BuildScript("R", "D", nil, nil)
	want := "window.R = [];\nwindow.D = [];\n"
	if got != want {
		t.Errorf("BuildScript() = %q, want %q", got, want)
	}
}

func TestBuildScript_EscapesClosingTag(t *testing.T) {
	got := BuildScript("R", "D", []string{"</script>"}, nil)
	if regexp.MustCompile(`</script>`).MatchString(got) {
		t.Errorf("BuildScript() = %q, closing tag must be escaped", got)
	}
}

func TestScriptTag(t *testing.T) {
	tests := []struct {
		name       string
		publicPath string
		want       string
	}{
		{"default", "", `<script src="/static_routes.js" defer crossorigin></script>`},
		{"cdn", "https://cdn.example.com/", `<script src="https://cdn.example.com/static_routes.js" defer crossorigin></script>`},
		{"prefix", "/app/", `<script src="/app/static_routes.js" defer crossorigin></script>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScriptTag(tt.publicPath, RoutesScriptName); got != tt.want {
				t.Errorf("ScriptTag() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplaceMarker(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		html        string
		replacement string
		want        string
	}{
		{
			name:        "default marker",
			pattern:     regexp.QuoteMeta(DefaultScriptMarker),
			html:        "<html><!-- razzle_static_js --></html>",
			replacement: "<script></script>",
			want:        "<html><script></script></html>",
		},
		{
			name:        "first match only",
			pattern:     "MARK",
			html:        "MARK MARK",
			replacement: "x",
			want:        "x MARK",
		},
		{
			name:        "no match leaves html alone",
			pattern:     "MARK",
			html:        "<html></html>",
			replacement: "x",
			want:        "<html></html>",
		},
		{
			name:        "dollar is literal",
			pattern:     "MARK",
			html:        "MARK",
			replacement: "$1 ${x}",
			want:        "$1 ${x}",
		},
		{
			name:        "custom regex",
			pattern:     `<!--\s*routes\s*-->`,
			html:        "<body><!--  routes --></body>",
			replacement: "S",
			want:        "<body>S</body>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReplaceMarker(regexp.MustCompile(tt.pattern), tt.html, tt.replacement)
			if got != tt.want {
				t.Errorf("ReplaceMarker() = %q, want %q", got, tt.want)
			}
		})
	}
}

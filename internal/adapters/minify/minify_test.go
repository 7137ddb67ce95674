package minify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/adapters/minify"
	"go.trai.ch/weave/internal/core/domain"
)

func TestMinifier_Minify(t *testing.T) {
	m := minify.New()

	tests := []struct {
		name string
		kind domain.NodeType
		in   string
		want string
	}{
		{name: "css", kind: domain.NodeCSS, in: "body {\n  color: red;\n}\n", want: "body{color:red}"},
		{name: "js", kind: domain.NodeJS, in: "var answer = 42 ;\n", want: "var answer=42"},
		{name: "image passes through", kind: domain.NodeImage, in: "  raw  ", want: "  raw  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Minify(tt.kind, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinifier_MinifyPage(t *testing.T) {
	m := minify.New()

	got, err := m.Minify(domain.NodePage, "<html>\n  <head><title>Hi</title></head>\n  <body>\n    <p class=\"a\">x</p>\n  </body>\n</html>")
	require.NoError(t, err)
	assert.Contains(t, got, "<html>")
	assert.Contains(t, got, "</body>")
	assert.Contains(t, got, `class="a"`)
	assert.NotContains(t, got, "\n")
}

func TestPurger_Purge(t *testing.T) {
	corpus := []string{
		`<html><body><div id="main" class="card is-active"><p>x</p></div></body></html>`,
	}
	stylesheet := `
/* comment */
body { margin: 0 }
.card { padding: 1rem }
.unused { color: red }
.card .missing, #main > p { color: blue }
.card:hover { color: green }
#sidebar { width: 10rem }
.open { display: block }
@media screen {
  .unused { color: red }
  .is-active { font-weight: bold }
}
@keyframes spin { from { opacity: 0 } to { opacity: 1 } }
`

	got, err := minify.NewPurger([]string{"open"}).Purge(stylesheet, corpus)
	require.NoError(t, err)

	assert.Contains(t, got, "body{margin:0;}")
	assert.Contains(t, got, ".card{padding:1rem;}")
	assert.Contains(t, got, "#main>p{color:blue;}")
	assert.NotContains(t, got, ".missing")
	assert.Contains(t, got, ".card:hover{")
	assert.Contains(t, got, ".open{")
	assert.Contains(t, got, ".is-active{font-weight:bold;}")
	assert.Contains(t, got, "from{opacity:0;}")
	assert.NotContains(t, got, ".unused")
	assert.NotContains(t, got, "#sidebar")
	assert.NotContains(t, got, "comment")
}

func TestPurger_EmptyCorpusKeepsTypeSelectors(t *testing.T) {
	got, err := minify.NewPurger(nil).Purge("h1 { font-size: 2rem } .x { color: red }", nil)
	require.NoError(t, err)
	assert.Equal(t, "h1{font-size:2rem;}", got)
}

package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lookupOf(bodies map[string]string) lookupFunc {
	return func(name string) (string, bool) {
		body, ok := bodies[name]
		return body, ok
	}
}

func TestExpansion_Expand(t *testing.T) {
	bodies := map[string]string{
		"card":  `<div class="card"><h2>{{title}}</h2>{{ children }}{{extra}}</div>`,
		"badge": `<i>b</i>`,
		"box":   `[{{children}}]`,
	}

	tests := []struct {
		name        string
		src         string
		keepUnknown bool
		want        string
		used        []string
		missing     []string
	}{
		{
			name: "attributes are escaped and children are raw",
			src:  `<p><include-card title="A &amp; B">body <b>bold</b></include-card></p>`,
			want: `<p><div class="card"><h2>A &amp; B</h2>body <b>bold</b></div></p>`,
			used: []string{"card"},
		},
		{
			name:        "unknown placeholders survive template expansion",
			src:         `<include-card title="x"></include-card>`,
			keepUnknown: true,
			want:        `<div class="card"><h2>x</h2>{{extra}}</div>`,
			used:        []string{"card"},
		},
		{
			name: "children are expanded first",
			src:  `<include-card title="x"><include-badge/></include-card>`,
			want: `<div class="card"><h2>x</h2><i>b</i></div>`,
			used: []string{"badge", "card"},
		},
		{
			name: "same tag nested in children",
			src:  `<include-box><include-box>in</include-box></include-box>`,
			want: `[[in]]`,
			used: []string{"box"},
		},
		{
			name: "tag names are case-insensitive",
			src:  `<Include-Badge></Include-Badge>`,
			want: `<i>b</i>`,
			used: []string{"badge"},
		},
		{
			name:    "unknown templates are left in place",
			src:     `<include-ghost a="1">x <include-badge/></include-ghost>`,
			want:    `<include-ghost a="1">x <i>b</i></include-ghost>`,
			used:    []string{"badge"},
			missing: []string{"ghost"},
		},
		{
			name: "markup without includes is untouched",
			src:  `<p>{{title}}</p>`,
			want: `<p>{{title}}</p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newExpansion(lookupOf(bodies), tt.keepUnknown)
			assert.Equal(t, tt.want, e.expand(tt.src))
			assert.Equal(t, tt.used, nilIfEmpty(e.Used()))
			assert.Equal(t, tt.missing, nilIfEmpty(e.Missing()))
		})
	}
}

func TestSubstitute_SinglePass(t *testing.T) {
	out := substitute(`<a title="{{label}}">{{children}}</a>`, map[string]string{"label": "{{children}}"}, "{{label}}", false)
	assert.Equal(t, `<a title="{{children}}">{{label}}</a>`, out)
}

func TestNestedTemplates(t *testing.T) {
	names := nestedTemplates(`<include-b/><div><include-a></include-a></div><include-b></include-b>`)
	assert.Equal(t, []string{"a", "b"}, names)
	assert.Empty(t, nestedTemplates(`<div>plain</div>`))
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

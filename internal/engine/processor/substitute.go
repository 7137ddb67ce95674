package processor

import (
	"regexp"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

const (
	includePrefix   = "include-"
	childrenKey     = "children"
	placeholderExpr = `\{\{\s*([A-Za-z0-9_-]+)\s*\}\}`
)

var placeholderPattern = regexp.MustCompile(placeholderExpr)

// lookupFunc returns the flattened body of a template.
type lookupFunc func(name string) (string, bool)

// expansion replaces <include-x> elements in markup with the body of template x.
// Attributes of the include tag fill {{attr}} placeholders, the element's inner markup
// fills {{children}}.
type expansion struct {
	lookup lookupFunc
	// keepUnknown leaves placeholders without a matching attribute in place so an
	// enclosing include can still fill them.
	keepUnknown bool
	used        map[string]struct{}
	missing     map[string]struct{}
}

func newExpansion(lookup lookupFunc, keepUnknown bool) *expansion {
	return &expansion{
		lookup:      lookup,
		keepUnknown: keepUnknown,
		used:        make(map[string]struct{}),
		missing:     make(map[string]struct{}),
	}
}

// Used returns the names of the templates that were substituted, sorted.
func (e *expansion) Used() []string {
	return sortedNames(e.used)
}

// Missing returns the names of referenced templates that could not be resolved, sorted.
func (e *expansion) Missing() []string {
	return sortedNames(e.missing)
}

func (e *expansion) expand(src string) string {
	if !strings.Contains(strings.ToLower(src), "<"+includePrefix) {
		return src
	}

	z := html.NewTokenizer(strings.NewReader(src))
	var out strings.Builder
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out.String()
		}
		raw := string(z.Raw())

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.WriteString(raw)
			continue
		}
		tagName, hasAttr := z.TagName()
		tag := string(tagName)
		if !strings.HasPrefix(tag, includePrefix) {
			out.WriteString(raw)
			continue
		}

		attrs := readAttrs(z, hasAttr)
		var inner, closing string
		if tt == html.StartTagToken {
			inner, closing = collectInner(z, tag)
		}
		children := e.expand(inner)

		name := strings.TrimPrefix(tag, includePrefix)
		body, ok := e.lookup(name)
		if !ok {
			e.missing[name] = struct{}{}
			out.WriteString(raw)
			out.WriteString(children)
			out.WriteString(closing)
			continue
		}
		e.used[name] = struct{}{}
		out.WriteString(substitute(body, attrs, children, e.keepUnknown))
	}
}

func readAttrs(z *html.Tokenizer, hasAttr bool) map[string]string {
	attrs := make(map[string]string)
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		attrs[string(key)] = string(val)
	}
	return attrs
}

// collectInner consumes tokens up to the end tag matching tag and returns the raw
// markup in between together with the raw end tag. Unclosed elements run to the end.
func collectInner(z *html.Tokenizer, tag string) (string, string) {
	var inner strings.Builder
	depth := 1
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return inner.String(), ""
		}
		raw := string(z.Raw())

		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == tag {
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == tag {
				depth--
				if depth == 0 {
					return inner.String(), raw
				}
			}
		}
		inner.WriteString(raw)
	}
}

// substitute fills placeholders in a single pass, so substituted values are never
// scanned again.
func substitute(body string, attrs map[string]string, children string, keepUnknown bool) string {
	return placeholderPattern.ReplaceAllStringFunc(body, func(match string) string {
		key := strings.ToLower(placeholderPattern.FindStringSubmatch(match)[1])
		if key == childrenKey {
			return children
		}
		if val, ok := attrs[key]; ok {
			return html.EscapeString(val)
		}
		if keepUnknown {
			return match
		}
		return ""
	})
}

// nestedTemplates returns the distinct template names referenced by include tags in
// markup, sorted.
func nestedTemplates(markup string) []string {
	names := make(map[string]struct{})
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sortedNames(names)
		case html.StartTagToken, html.SelfClosingTagToken:
			tagName, _ := z.TagName()
			if tag := string(tagName); strings.HasPrefix(tag, includePrefix) {
				names[strings.TrimPrefix(tag, includePrefix)] = struct{}{}
			}
		}
	}
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

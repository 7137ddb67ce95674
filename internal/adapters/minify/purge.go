package minify

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/net/html"
)

var _ ports.Purger = (*Purger)(nil)

// Purger drops style rules whose class and id selectors match nothing in the page corpus.
// Type, universal and attribute selectors are always kept.
type Purger struct {
	safelist []string
}

// NewPurger creates a Purger. Names in safelist count as used even when no page
// mentions them. A bare name covers both the class and the id.
func NewPurger(safelist []string) *Purger {
	return &Purger{safelist: safelist}
}

// Purge returns css without the rules no page in corpus can match.
//
//nolint:cyclop // grammar dispatch
func (p *Purger) Purge(stylesheet string, corpus []string) (string, error) {
	used := p.usedNames(corpus)

	parser := css.NewParser(parse.NewInputString(stylesheet), false)
	var out strings.Builder
	var keyframes []bool
	skipping := false

	for {
		gt, _, data := parser.Next()

		if skipping {
			if gt == css.EndRulesetGrammar {
				skipping = false
			}
			if gt != css.ErrorGrammar {
				continue
			}
		}

		switch gt {
		case css.ErrorGrammar:
			if parser.HasParseError() {
				continue
			}
			if err := parser.Err(); !errors.Is(err, io.EOF) {
				return "", zerr.Wrap(err, domain.ErrPurgeFailed.Error())
			}
			return out.String(), nil
		case css.CommentGrammar:
		case css.AtRuleGrammar:
			out.Write(data)
			writeTokens(&out, parser.Values())
			out.WriteByte(';')
		case css.BeginAtRuleGrammar:
			keyframes = append(keyframes, isKeyframes(data))
			out.Write(data)
			writeTokens(&out, parser.Values())
			out.WriteByte('{')
		case css.EndAtRuleGrammar:
			if len(keyframes) > 0 {
				keyframes = keyframes[:len(keyframes)-1]
			}
			out.WriteByte('}')
		case css.BeginRulesetGrammar:
			if len(keyframes) > 0 && keyframes[len(keyframes)-1] {
				writeTokens(&out, parser.Values())
				out.WriteByte('{')
				continue
			}
			kept := keepSelectors(parser.Values(), used)
			if len(kept) == 0 {
				skipping = true
				continue
			}
			out.WriteString(strings.Join(kept, ","))
			out.WriteByte('{')
		case css.EndRulesetGrammar:
			out.WriteByte('}')
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			out.Write(data)
			out.WriteByte(':')
			writeTokens(&out, parser.Values())
			out.WriteByte(';')
		default:
			out.Write(data)
		}
	}
}

func (p *Purger) usedNames(corpus []string) map[string]struct{} {
	used := make(map[string]struct{})
	for _, name := range p.safelist {
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "#") {
			used[name] = struct{}{}
			continue
		}
		used["."+name] = struct{}{}
		used["#"+name] = struct{}{}
	}
	for _, doc := range corpus {
		collectNames(doc, used)
	}
	return used
}

// collectNames records every class and id mentioned in markup.
func collectNames(markup string, used map[string]struct{}) {
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			_, hasAttr := z.TagName()
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				switch string(key) {
				case "class":
					for _, class := range strings.Fields(string(val)) {
						used["."+class] = struct{}{}
					}
				case "id":
					if id := strings.TrimSpace(string(val)); id != "" {
						used["#"+id] = struct{}{}
					}
				}
			}
		}
	}
}

// keepSelectors splits a selector list and returns the selectors whose class and id
// parts all appear in used.
func keepSelectors(tokens []css.Token, used map[string]struct{}) []string {
	var kept []string
	depth := 0
	start := 0
	for i, tok := range tokens {
		switch tok.TokenType {
		case css.LeftParenthesisToken, css.LeftBracketToken, css.FunctionToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				if sel := tokens[start:i]; matches(sel, used) {
					kept = append(kept, joinTokens(sel))
				}
				start = i + 1
			}
		}
	}
	if sel := tokens[start:]; matches(sel, used) {
		kept = append(kept, joinTokens(sel))
	}
	return kept
}

func matches(selector []css.Token, used map[string]struct{}) bool {
	depth := 0
	for i, tok := range selector {
		switch tok.TokenType {
		case css.LeftParenthesisToken, css.LeftBracketToken, css.FunctionToken:
			depth++
			continue
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
			continue
		}
		if depth > 0 {
			continue
		}

		var name string
		switch {
		case tok.TokenType == css.HashToken:
			name = string(tok.Data)
		case tok.TokenType == css.DelimToken && bytes.Equal(tok.Data, []byte{'.'}) &&
			i+1 < len(selector) && selector[i+1].TokenType == css.IdentToken:
			name = "." + string(selector[i+1].Data)
		default:
			continue
		}
		if _, ok := used[name]; !ok {
			return false
		}
	}
	return true
}

func isKeyframes(atKeyword []byte) bool {
	return bytes.HasSuffix(bytes.ToLower(atKeyword), []byte("keyframes"))
}

func joinTokens(tokens []css.Token) string {
	var b strings.Builder
	writeTokens(&b, tokens)
	return strings.TrimSpace(b.String())
}

func writeTokens(b *strings.Builder, tokens []css.Token) {
	for _, tok := range tokens {
		b.Write(tok.Data)
	}
}

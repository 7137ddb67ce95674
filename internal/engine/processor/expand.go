package processor

import (
	"strings"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/zerr"
)

// expandAll flattens every template with Kahn's algorithm: a template is rendered once
// all templates it includes are rendered. Templates left over when the queue drains sit
// on or behind an inclusion cycle. Must be called with mu held.
func (p *TemplateProcessor) expandAll(pc *Context) error {
	inDegree := make(map[string]int, len(p.states))
	var queue []string
	for _, name := range p.names() {
		st := p.states[name]
		st.status = statusIndexed
		st.rendered = ""
		inDegree[name] = st.inDegree
		if st.inDegree == 0 {
			queue = append(queue, name)
		}
	}

	p.drain(pc, queue, inDegree)
	return p.markCyclic(inDegree)
}

// expandFrom re-expands the seeds and every template that transitively includes one of
// them. Templates outside that set keep their rendered bodies; an outside dependency
// that is not expanded can never resolve. Must be called with mu held.
func (p *TemplateProcessor) expandFrom(pc *Context, seeds ...string) error {
	scope := make(map[string]struct{})
	stack := p.knownTemplates(templateIDs(seeds))
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := scope[name]; seen {
			continue
		}
		scope[name] = struct{}{}
		stack = append(stack, p.knownDependents(pc, name)...)
	}

	inDegree := make(map[string]int, len(scope))
	var queue []string
	for _, name := range sortedNames(scope) {
		st := p.states[name]
		st.status = statusIndexed
		st.rendered = ""

		deps := p.knownDeps(pc, name)
		st.inDegree = len(deps)
		pending := 0
		for _, dep := range deps {
			if _, inScope := scope[dep]; inScope || p.states[dep].status != statusExpanded {
				pending++
			}
		}
		inDegree[name] = pending
		if pending == 0 {
			queue = append(queue, name)
		}
	}

	p.drain(pc, queue, inDegree)
	return p.markCyclic(inDegree)
}

// drain renders queued templates and releases the templates that include them.
// Rendered templates are removed from inDegree.
func (p *TemplateProcessor) drain(pc *Context, queue []string, inDegree map[string]int) {
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		p.render(name)
		delete(inDegree, name)

		for _, parent := range p.knownDependents(pc, name) {
			if _, pending := inDegree[parent]; !pending {
				continue
			}
			inDegree[parent]--
			if inDegree[parent] == 0 {
				queue = append(queue, parent)
			}
		}
	}
}

// render flattens one template whose included templates are all rendered.
func (p *TemplateProcessor) render(name string) {
	st := p.states[name]
	exp := newExpansion(p.renderedLocked, true)
	st.rendered = exp.expand(st.source)
	st.status = statusExpanded
}

// markCyclic flags every template left in inDegree and reports them together.
func (p *TemplateProcessor) markCyclic(inDegree map[string]int) error {
	if len(inDegree) == 0 {
		return nil
	}
	names := make(map[string]struct{}, len(inDegree))
	for name := range inDegree {
		st := p.states[name]
		st.status = statusCyclic
		st.rendered = ""
		names[name] = struct{}{}
	}
	cyclic := sortedNames(names)
	err := zerr.Wrap(domain.ErrTemplateCycle, "cannot expand templates "+strings.Join(cyclic, ", "))
	return zerr.With(err, "templates", cyclic)
}

func templateIDs(names []string) []string {
	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = domain.NodeID(domain.NodeTemplate, name)
	}
	return ids
}

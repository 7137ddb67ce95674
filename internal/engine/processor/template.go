package processor

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/zerr"
)

type templateStatus int

const (
	statusIndexed templateStatus = iota
	statusExpanded
	statusCyclic
)

// templateState is the expansion state of one template.
type templateState struct {
	node     *domain.AssetNode
	source   string
	rendered string
	// inDegree counts the distinct known templates this one includes.
	inDegree int
	status   templateStatus
}

// remoteTemplate is one entry of a remote template listing.
type remoteTemplate struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TemplateProcessor discovers templates and flattens nested inclusion so pages can
// substitute a template in one step.
type TemplateProcessor struct {
	env *Env

	mu     sync.RWMutex
	states map[string]*templateState
}

var _ Processor = (*TemplateProcessor)(nil)

// NewTemplateProcessor creates a TemplateProcessor.
func NewTemplateProcessor(env *Env) *TemplateProcessor {
	return &TemplateProcessor{env: env, states: make(map[string]*templateState)}
}

// Type implements Processor.
func (p *TemplateProcessor) Type() domain.NodeType { return domain.NodeTemplate }

// Claims implements Processor.
func (p *TemplateProcessor) Claims(absPath string, inTemplates bool) bool {
	return inTemplates && hasExtension(absPath, htmlExtensions)
}

// Init registers local and remote templates and expands all of them. Local templates
// win over remote ones with the same name.
func (p *TemplateProcessor) Init(ctx context.Context, pc *Context, paths []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.states = make(map[string]*templateState)
	for _, path := range paths {
		name := domain.TemplateName(path)
		if p.clashes(name, path) {
			continue
		}
		source, err := readSource(path)
		if err != nil {
			return err
		}
		p.register(pc, domain.NewAssetNode(domain.NodeTemplate, name, path), source)
	}

	if err := p.loadRemote(ctx, pc); err != nil {
		return err
	}

	for _, name := range p.names() {
		p.index(pc, name)
	}

	err := p.expandAll(pc)
	if err != nil && p.env.Config.Cycles == domain.CycleWarn {
		p.env.Logger.Warn(err.Error())
		return nil
	}
	return err
}

// PatchNode implements Processor. A returned ErrTemplateCycle comes with the patched
// node; the caller decides whether the cycle is fatal. Events for a file whose name is
// already taken by another local template are ignored.
func (p *TemplateProcessor) PatchNode(
	_ context.Context, pc *Context, absPath string, kind domain.EventKind,
) (*domain.AssetNode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := domain.TemplateName(absPath)
	id := domain.NodeID(domain.NodeTemplate, name)

	if kind == domain.EventUnlink {
		node := pc.Unregister(id)
		if node == nil || node.AbsPath != absPath {
			if node != nil {
				pc.AddNode(node)
			}
			return nil, nil
		}
		pc.ClearDependencies(id)
		delete(p.states, name)
		return node, p.expandFrom(pc, p.knownDependents(pc, name)...)
	}

	if p.clashes(name, absPath) {
		return nil, nil
	}

	source, err := readSource(absPath)
	if err != nil {
		return nil, err
	}
	node := domain.NewAssetNode(domain.NodeTemplate, name, absPath)
	p.register(pc, node, source)
	p.index(pc, name)
	return node, p.expandFrom(pc, name)
}

// Rendered returns the flattened body of an expanded template.
func (p *TemplateProcessor) Rendered(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.renderedLocked(name)
}

// Cyclic returns the names of templates that could not be expanded, sorted.
func (p *TemplateProcessor) Cyclic() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var names []string
	for name, st := range p.states {
		if st.status == statusCyclic {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// InDegree returns the number of distinct known templates name includes.
func (p *TemplateProcessor) InDegree(name string) (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.states[name]
	if !ok {
		return 0, false
	}
	return st.inDegree, true
}

func (p *TemplateProcessor) renderedLocked(name string) (string, bool) {
	st, ok := p.states[name]
	if !ok || st.status != statusExpanded {
		return "", false
	}
	return st.rendered, true
}

// clashes reports whether name already belongs to a local template at another path.
// The registered one is kept, remote templates never are. Must be called with mu held.
func (p *TemplateProcessor) clashes(name, absPath string) bool {
	st, ok := p.states[name]
	if !ok || st.node.AbsPath == absPath || IsRemote(st.node.AbsPath) {
		return false
	}
	p.env.Logger.Warn(fmt.Sprintf("template %q is defined by both %s and %s, ignoring %s",
		name, st.node.AbsPath, absPath, absPath))
	return true
}

// register must be called with mu held.
func (p *TemplateProcessor) register(pc *Context, node *domain.AssetNode, source string) {
	pc.AddNode(node)
	p.states[node.Name] = &templateState{node: node, source: source}
}

// index replaces the template's outgoing edges with its current include references.
// References to unknown templates are kept as edges so the template is found as a
// dependent once the missing one appears. Must be called with mu held.
func (p *TemplateProcessor) index(pc *Context, name string) {
	id := domain.NodeID(domain.NodeTemplate, name)
	pc.ClearDependencies(id)
	for _, ref := range nestedTemplates(p.states[name].source) {
		pc.AddDependency(id, domain.NodeID(domain.NodeTemplate, ref))
	}
	st := p.states[name]
	st.inDegree = len(p.knownDeps(pc, name))
	st.status = statusIndexed
}

func (p *TemplateProcessor) loadRemote(ctx context.Context, pc *Context) error {
	for _, endpoint := range p.env.Config.TemplateEndpoints {
		body, err := fetchRemote(ctx, p.env.Fetcher, endpoint)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrTemplateListingFailed.Error()), "endpoint", endpoint)
		}

		var listing []remoteTemplate
		if err := json.Unmarshal(body, &listing); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrTemplateListingFailed, err.Error()), "endpoint", endpoint)
		}

		for _, entry := range listing {
			name := strings.ToLower(entry.Name)
			if _, exists := p.states[name]; exists {
				p.env.Logger.Debug(fmt.Sprintf("remote template %s shadowed by local template", name))
				continue
			}
			source, err := fetchRemote(ctx, p.env.Fetcher, entry.URL)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to load remote template"), "template", name)
			}
			p.register(pc, domain.NewAssetNode(domain.NodeTemplate, name, entry.URL), string(source))
		}
	}
	return nil
}

// names returns the known template names, sorted. Must be called with mu held.
func (p *TemplateProcessor) names() []string {
	names := make([]string, 0, len(p.states))
	for name := range p.states {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// knownDeps returns the known templates name includes. Must be called with mu held.
func (p *TemplateProcessor) knownDeps(pc *Context, name string) []string {
	return p.knownTemplates(pc.Dependencies(domain.NodeID(domain.NodeTemplate, name)))
}

// knownDependents returns the known templates that include name. Must be called with mu held.
func (p *TemplateProcessor) knownDependents(pc *Context, name string) []string {
	return p.knownTemplates(pc.Dependents(domain.NodeID(domain.NodeTemplate, name)))
}

func (p *TemplateProcessor) knownTemplates(ids []string) []string {
	var names []string
	for _, id := range ids {
		t, name, ok := domain.ParseNodeID(id)
		if !ok || t != domain.NodeTemplate {
			continue
		}
		if _, known := p.states[name]; known {
			names = append(names, name)
		}
	}
	return names
}

func readSource(path string) (string, error) {
	// #nosec G304 -- path comes from the source tree walk or a watcher event
	data, err := os.ReadFile(path)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", path)
	}
	return string(data), nil
}

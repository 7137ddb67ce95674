package builder

import (
	"slices"
	"sync"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/engine/processor"
)

// Session holds the page results of the current build. They feed the purge corpus and
// the shared resource lists of later incremental bundle rebuilds.
type Session struct {
	mu    sync.RWMutex
	pages map[string]*processor.PageResult
}

// NewSession creates an empty Session.
func NewSession() *Session {
	return &Session{pages: make(map[string]*processor.PageResult)}
}

// Reset forgets every page.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = make(map[string]*processor.PageResult)
}

// Put records the latest result of a page.
func (s *Session) Put(res *processor.PageResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[res.URL] = res
}

// Remove forgets the page with the given output URL.
func (s *Session) Remove(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, url)
}

// Page returns the result of the page with the given output URL.
func (s *Session) Page(url string) (*processor.PageResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.pages[url]
	return res, ok
}

// URLs returns the output URLs of all pages, sorted.
func (s *Session) URLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.urls()
}

// Corpus returns the markup of every page in URL order.
func (s *Session) Corpus() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	corpus := make([]string, 0, len(s.pages))
	for _, url := range s.urls() {
		corpus = append(corpus, s.pages[url].HTML)
	}
	return corpus
}

// Shared returns the distinct shared-domain resources of type t referenced by any page,
// in URL order and then document order.
func (s *Session) Shared(t domain.NodeType) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var shared []string
	for _, url := range s.urls() {
		res := s.pages[url]
		var uris []string
		switch t {
		case domain.NodeCSS:
			uris = res.SharedCSS
		case domain.NodeJS:
			uris = res.SharedJS
		case domain.NodeImage:
			uris = res.SharedImages
		}
		for _, uri := range uris {
			if !slices.Contains(shared, uri) {
				shared = append(shared, uri)
			}
		}
	}
	return shared
}

func (s *Session) urls() []string {
	urls := make([]string, 0, len(s.pages))
	for url := range s.pages {
		urls = append(urls, url)
	}
	slices.Sort(urls)
	return urls
}

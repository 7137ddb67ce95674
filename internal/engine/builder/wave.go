package builder

import (
	"context"
	"errors"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/zerr"
)

type waveResult struct {
	page string
	err  error
}

// wave builds pages with bounded parallelism in the given order. After the first
// failure no new page is started; pages already running are allowed to finish.
type wave struct {
	ctx         context.Context
	ready       []*domain.AssetNode
	active      int
	parallelism int
	results     chan waveResult
	errs        error
}

func newWave(ctx context.Context, pages []*domain.AssetNode, parallelism int) *wave {
	parallelism = max(parallelism, 1)
	return &wave{
		ctx:         ctx,
		ready:       pages,
		parallelism: parallelism,
		results:     make(chan waveResult, parallelism),
	}
}

func (w *wave) run(build func(context.Context, *domain.AssetNode) error) error {
	for w.schedule(build); w.active > 0; w.schedule(build) {
		w.handle(<-w.results)
	}
	if err := w.ctx.Err(); err != nil {
		w.errs = errors.Join(w.errs, err)
	}
	return w.errs
}

func (w *wave) schedule(build func(context.Context, *domain.AssetNode) error) {
	for len(w.ready) > 0 && w.active < w.parallelism && w.errs == nil && w.ctx.Err() == nil {
		page := w.ready[0]
		w.ready = w.ready[1:]

		w.active++
		go func() {
			w.results <- waveResult{page: page.Name, err: build(w.ctx, page)}
		}()
	}
}

func (w *wave) handle(res waveResult) {
	w.active--
	if res.err != nil {
		err := zerr.With(zerr.Wrap(res.err, domain.ErrPageBuildFailed.Error()), "page", res.page)
		w.errs = errors.Join(w.errs, err)
	}
}

package ports

import (
	"time"

	"go.trai.ch/weave/internal/core/domain"
)

// Metrics records build observations.
type Metrics interface {
	PageBuilt()
	ObserveBundle(kind domain.NodeType, d time.Duration)
	TransformCache(cache string, hit bool)
	HTTPFetch(result string)
	ObserveBuild(kind string, d time.Duration)
}

package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/weave/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/metrics"   //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/minify"    //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			logger.NodeID,
			cas.HasherNodeID,
			fs.WalkerNodeID,
			minify.NodeID,
			telemetry.TracerNodeID,
			metrics.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	hasher, err := graft.Dep[ports.Hasher](ctx)
	if err != nil {
		return nil, err
	}

	walker, err := graft.Dep[ports.SourceWalker](ctx)
	if err != nil {
		return nil, err
	}

	minifier, err := graft.Dep[ports.Minifier](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	recorder, err := graft.Dep[*metrics.Recorder](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, log, hasher, walker, minifier, tracer, recorder), nil
}

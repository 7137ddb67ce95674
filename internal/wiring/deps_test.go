package wiring_test

import (
	"testing"

	"github.com/grindlemire/graft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/app"
	_ "go.trai.ch/weave/internal/wiring"
)

// TestGraftResolvesComponents builds the whole node graph the way the binary does.
// graft.AssertDepsValid infers dependency IDs from the package of the type passed to
// Dep[T], which cannot tell apart the many nodes that provide ports interfaces, so the
// graph is resolved instead.
func TestGraftResolvesComponents(t *testing.T) {
	components, _, err := graft.ExecuteFor[*app.Components](t.Context())
	require.NoError(t, err)

	assert.NotNil(t, components.App)
	assert.NotNil(t, components.Logger)
}

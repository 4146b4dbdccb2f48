package dependency

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-sync/internal/quadlet"
)

func TestBuildUnitGraph(t *testing.T) {
	// db <- webapp <- proxy
	quadlets := []quadlet.Quadlet{
		{Path: "/q/proxy.container", Service: "proxy.service", Requires: []string{"webapp.service"}},
		{Path: "/q/webapp.container", Service: "webapp.service", Requires: []string{"db.service", "db.service"}},
		{Path: "/q/db.container", Service: "db.service"},
	}

	ug, err := BuildUnitGraph(quadlets)
	require.NoError(t, err)

	deps, err := ug.Dependencies("db.service")
	require.NoError(t, err)
	assert.Empty(t, deps)

	dependents, err := ug.Dependents("db.service")
	require.NoError(t, err)
	assert.Equal(t, []string{"webapp.service"}, dependents)

	deps, err = ug.Dependencies("webapp.service")
	require.NoError(t, err)
	assert.Equal(t, []string{"db.service"}, deps)

	dependents, err = ug.Dependents("proxy.service")
	require.NoError(t, err)
	assert.Empty(t, dependents)

	order, err := ug.StartOrder()
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"db.service", "webapp.service", "proxy.service"}, order); diff != "" {
		t.Errorf("StartOrder() mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, ug.HasCycles())
}

func TestBuildUnitGraph_ExternalRequirement(t *testing.T) {
	quadlets := []quadlet.Quadlet{
		{Path: "/q/app.container", Service: "app.service", Requires: []string{"network-online.target"}},
	}

	ug, err := BuildUnitGraph(quadlets)
	require.NoError(t, err)

	assert.True(t, ug.External("network-online.target"))
	assert.False(t, ug.External("app.service"))
	assert.Equal(t, []string{"app.service", "network-online.target"}, ug.Units())
}

func TestBuildUnitGraph_NodeWithoutService(t *testing.T) {
	quadlets := []quadlet.Quadlet{
		{Path: "/q/broken.container", State: quadlet.StateError},
	}

	ug, err := BuildUnitGraph(quadlets)
	require.NoError(t, err)
	assert.Equal(t, []string{"broken.container"}, ug.Units())
}

func TestUnitGraph_Cycle(t *testing.T) {
	ug := NewUnitGraph()
	require.NoError(t, ug.AddDependency("a.service", "b.service"))
	require.NoError(t, ug.AddDependency("b.service", "a.service"))

	_, err := ug.StartOrder()
	assert.ErrorIs(t, err, ErrCycle)
	assert.True(t, ug.HasCycles())
}

func TestUnitGraph_Errors(t *testing.T) {
	ug := NewUnitGraph()

	assert.Error(t, ug.AddUnit(""))
	assert.Error(t, ug.AddDependency("a.service", ""))
	assert.Error(t, ug.AddDependency("a.service", "a.service"))

	_, err := ug.Dependencies("missing.service")
	assert.Error(t, err)
	_, err = ug.Dependents("missing.service")
	assert.Error(t, err)
}

func TestUnitGraph_AddUnitClaimsExternal(t *testing.T) {
	ug := NewUnitGraph()
	require.NoError(t, ug.AddDependency("web.service", "db.service"))
	assert.True(t, ug.External("db.service"))

	require.NoError(t, ug.AddUnit("db.service"))
	assert.False(t, ug.External("db.service"))
}

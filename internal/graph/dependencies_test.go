package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magerisk/pkg/models"
)

func TestAddDependency_AcyclicChain(t *testing.T) {
	g := NewDependencyGraph()

	require.NoError(t, g.AddDependency("web", "app"))
	require.NoError(t, g.AddDependency("app", "db"))
	require.NoError(t, g.AddDependency("app", "cache"))

	assert.Equal(t, []string{"app"}, g.Dependencies("web"))
	assert.Equal(t, []string{"cache", "db"}, g.Dependencies("app"))
	assert.Equal(t, []string{"app"}, g.Dependents("db"))
}

func TestAddDependency_SelfLoopConflicts(t *testing.T) {
	g := NewDependencyGraph()

	err := g.AddDependency("db", "db")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConflict))
}

func TestAddDependency_CycleRejectedAndRolledBack(t *testing.T) {
	g := NewDependencyGraph()
	require.NoError(t, g.AddDependency("web", "app"))
	require.NoError(t, g.AddDependency("app", "db"))

	err := g.AddDependency("db", "web")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConflict))
	assert.Contains(t, err.Error(), "db -> web")

	// The rejected edge must not linger.
	assert.Empty(t, g.Dependencies("db"))
	require.NoError(t, g.AddDependency("db", "storage"))
}

func TestAddDependency_TwoNodeCycle(t *testing.T) {
	g := NewDependencyGraph()
	require.NoError(t, g.AddDependency("a", "b"))

	err := g.AddDependency("b", "a")
	assert.True(t, errors.Is(err, models.ErrConflict))
}

func TestAddDependency_DiamondIsNotACycle(t *testing.T) {
	g := NewDependencyGraph()
	require.NoError(t, g.AddDependency("web", "app"))
	require.NoError(t, g.AddDependency("web", "cdn"))
	require.NoError(t, g.AddDependency("app", "db"))
	require.NoError(t, g.AddDependency("cdn", "db"))
}

func TestRemoveAsset_DetachesWithoutCascade(t *testing.T) {
	g := NewDependencyGraph()
	require.NoError(t, g.AddDependency("web", "app"))
	require.NoError(t, g.AddDependency("app", "db"))

	g.RemoveAsset("app")

	assert.Empty(t, g.Dependencies("web"))
	assert.Empty(t, g.Dependents("db"))
	// The surviving ends of the removed edges remain addressable.
	require.NoError(t, g.AddDependency("web", "db"))
}

func TestTransitiveDependencies(t *testing.T) {
	g := NewDependencyGraph()
	require.NoError(t, g.AddDependency("web", "app"))
	require.NoError(t, g.AddDependency("app", "db"))
	require.NoError(t, g.AddDependency("app", "cache"))
	require.NoError(t, g.AddDependency("db", "storage"))

	assert.Equal(t, []string{"app", "cache", "db", "storage"}, g.TransitiveDependencies("web"))
	assert.Equal(t, []string{"storage"}, g.TransitiveDependencies("db"))
	assert.Empty(t, g.TransitiveDependencies("storage"))
}

func TestFromAssets(t *testing.T) {
	assets := []models.Asset{
		{ID: "a-1", Dependencies: []string{"a-2", "a-3"}},
		{ID: "a-2", Dependencies: []string{"a-3"}},
	}

	g := FromAssets(assets)

	assert.Equal(t, []string{"a-2", "a-3"}, g.Dependencies("a-1"))
	assert.Equal(t, []string{"a-1", "a-2"}, g.Dependents("a-3"))
}

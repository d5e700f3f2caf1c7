package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_AllHealthy(t *testing.T) {
	checker := NewChecker()
	checker.Register("graph", func(context.Context) error { return nil })
	checker.Register("kafka", func(context.Context) error { return nil })

	results := checker.Check(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, StatusHealthy, results["graph"].Status)
	assert.Equal(t, StatusHealthy, Overall(results))
}

func TestCheck_FailingProbeDoesNotHideOthers(t *testing.T) {
	checker := NewChecker()
	checker.Register("graph", func(context.Context) error { return errors.New("connection refused") })
	checker.Register("kafka", func(context.Context) error { return nil })

	results := checker.Check(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, StatusUnhealthy, results["graph"].Status)
	assert.Contains(t, results["graph"].Message, "connection refused")
	assert.Equal(t, StatusHealthy, results["kafka"].Status)
	assert.Equal(t, StatusDegraded, Overall(results))
}

func TestCheck_NoProbes(t *testing.T) {
	checker := NewChecker()
	results := checker.Check(context.Background())
	assert.Empty(t, results)
	assert.Equal(t, StatusHealthy, Overall(results))
}

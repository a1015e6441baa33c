package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-ai/quarry/internal/config"
	"github.com/quarry-ai/quarry/internal/log"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), config.TracingConfig{}, log.NewNop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_WithEndpoint(t *testing.T) {
	t.Parallel()

	cfg := config.TracingConfig{
		Endpoint:    "localhost:4318",
		ServiceName: "quarry-test",
		Environment: "test",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg, log.NewNop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Shutdown flushes; with no collector listening the batch exporter drops
	// spans without surfacing an error at this layer.
	_ = shutdown(ctx)
}

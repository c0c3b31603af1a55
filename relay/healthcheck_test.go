package relay

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestHealthcheckThresholds(t *testing.T) {
	var status atomic.Int32
	status.Store(fasthttp.StatusOK)

	sidecar := startSidecar(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(int(status.Load()))
	})

	h, err := newHealthcheck("test",
		fmt.Sprintf("http://127.0.0.1:%d/v1.0/healthz", sidecar.port),
		time.Second, 2, 3,
	)
	require.NoError(t, err)
	t.Cleanup(h.stop)

	ctx := context.Background()

	h.check(ctx)
	assert.True(t, h.IsHealthy())

	status.Store(fasthttp.StatusInternalServerError)
	h.check(ctx)
	h.check(ctx)
	assert.True(t, h.IsHealthy(), "two failures are below the unhealthy threshold")
	h.check(ctx)
	assert.False(t, h.IsHealthy())

	status.Store(fasthttp.StatusNoContent)
	h.check(ctx)
	assert.False(t, h.IsHealthy(), "one success is below the healthy threshold")
	h.check(ctx)
	assert.True(t, h.IsHealthy())

	calls := sidecar.Calls()
	require.Len(t, calls, 6)
	assert.Equal(t, "/v1.0/healthz", calls[0].uri)
}

func TestHealthcheckUnreachable(t *testing.T) {
	h, err := newHealthcheck("test",
		fmt.Sprintf("http://127.0.0.1:%d/v1.0/healthz", unusedPort(t)),
		time.Second, 1, 1,
	)
	require.NoError(t, err)
	t.Cleanup(h.stop)

	h.check(context.Background())
	assert.False(t, h.IsHealthy())
}

func TestHealthcheckStopped(t *testing.T) {
	sidecar := startSidecar(t, func(ctx *fasthttp.RequestCtx) {})

	h, err := newHealthcheck("test",
		fmt.Sprintf("http://127.0.0.1:%d/v1.0/healthz", sidecar.port),
		time.Second, 1, 1,
	)
	require.NoError(t, err)

	h.run(context.Background())
	h.stop()

	h.check(context.Background())
	assert.True(t, h.IsHealthy())
	assert.Empty(t, sidecar.Calls())
}

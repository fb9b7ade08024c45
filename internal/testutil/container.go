// Package testutil starts throwaway backing services for integration tests.
package testutil

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

const (
	startupBudget   = 2 * time.Minute
	teardownTimeout = 30 * time.Second
)

// startContainer runs req, registers its termination with t.Cleanup and
// returns the host:port that port is published on.
func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), startupBudget)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start %s", req.Image)
	t.Cleanup(func() {
		stopCtx, stop := context.WithTimeout(context.Background(), teardownTimeout)
		defer stop()
		if err := c.Terminate(stopCtx); err != nil {
			t.Logf("terminate %s: %v", req.Image, err)
		}
	})

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)

	return net.JoinHostPort(host, mapped.Port())
}

package testutil

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// StartRabbitMQ launches a broker and returns an open connection to it along
// with its URL. The connection is closed before the container stops.
func StartRabbitMQ(t *testing.T) (*amqp.Connection, string) {
	t.Helper()

	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
	}, "5672/tcp")
	url := "amqp://guest:guest@" + addr + "/"

	// the listener can accept before the default vhost is ready
	var conn *amqp.Connection
	require.Eventually(t, func() bool {
		c, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
		if err != nil {
			t.Logf("dial broker: %v", err)
			return false
		}
		conn = c
		return true
	}, 30*time.Second, 500*time.Millisecond)
	t.Cleanup(func() { _ = conn.Close() })

	return conn, url
}

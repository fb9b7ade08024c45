package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
)

const storefrontDB = "storefront"

// StartPostgres launches Postgres with the storefront schema migrated and
// returns its DSN.
func StartPostgres(t *testing.T) string {
	t.Helper()

	addr := startContainer(t, testcontainers.ContainerRequest{
		Image: "postgres:16-alpine",
		Env: map[string]string{
			"POSTGRES_USER":     storefrontDB,
			"POSTGRES_PASSWORD": storefrontDB,
			"POSTGRES_DB":       storefrontDB,
		},
		ExposedPorts: []string{"5432/tcp"},
		// the init scripts restart the server once, so the first ready line is not final
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}, "5432/tcp")

	dsn := fmt.Sprintf("postgres://%[1]s:%[1]s@%[2]s/%[1]s?sslmode=disable", storefrontDB, addr)
	require.NoError(t, db.RunMigrations(dsn, zap.NewNop()))
	return dsn
}

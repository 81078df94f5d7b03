//go:build integration

// Package testdb starts a throwaway Postgres for repository tests.
package testdb

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"bookex/util/database"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const image = "postgres:16-alpine"

func dockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "info").Run() == nil
}

// Start runs a migrated Postgres for the lifetime of t. The test is skipped
// when Docker is not reachable.
func Start(t *testing.T) *database.DB {
	t.Helper()
	if !dockerAvailable() {
		t.Skip("Skipping test: Docker not available")
	}
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "bookex",
				"POSTGRES_PASSWORD": "bookex",
				"POSTGRES_DB":       "bookex",
			},
			// the server restarts once after init, so wait for the second line
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://bookex:bookex@%s:%s/bookex?sslmode=disable", host, port.Port())
	db, err := database.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, database.Migrate(ctx, db.SQL))
	return db
}

// Exec runs seed statements and fails the test on error.
func Exec(t *testing.T, db *database.DB, query string, args ...any) {
	t.Helper()
	_, err := db.SQL.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

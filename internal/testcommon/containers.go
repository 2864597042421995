// Package testcommon provides shared container-backed test infrastructure.
// Containers start once per test binary and are shared by every test in it.
package testcommon

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DockerEnvVar enables container-backed tests when set to "true".
const DockerEnvVar = "TREASURY_TEST_DOCKER"

// RequireDocker skips the test unless container tests are enabled.
func RequireDocker(t *testing.T) {
	t.Helper()
	if os.Getenv(DockerEnvVar) != "true" {
		t.Skipf("Docker tests disabled (set %s=true to enable)", DockerEnvVar)
	}
}

// Container is a started test container with one mapped port.
type Container struct {
	container testcontainers.Container
	Host      string
	Port      string
}

// Cleanup terminates the container. Call from TestMain if needed.
func (c *Container) Cleanup() {
	if c != nil && c.container != nil {
		c.container.Terminate(context.Background())
	}
}

func startContainer(req testcontainers.ContainerRequest, port nat.Port) (*Container, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start %s container: %w", req.Image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get %s host: %w", req.Image, err)
	}

	mappedPort, err := container.MappedPort(ctx, port)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get %s port: %w", req.Image, err)
	}

	return &Container{container: container, Host: host, Port: mappedPort.Port()}, nil
}

var (
	surrealOnce      sync.Once
	surrealContainer *Container
	surrealError     error
)

// StartSurrealDB starts a shared SurrealDB container (root/root credentials).
func StartSurrealDB(t *testing.T) *Container {
	t.Helper()
	RequireDocker(t)

	surrealOnce.Do(func() {
		surrealContainer, surrealError = startContainer(testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", "root", "--pass", "root"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		}, "8000/tcp")
	})

	if surrealError != nil {
		t.Fatalf("SurrealDB container failed: %v", surrealError)
	}
	return surrealContainer
}

// SurrealAddress returns the WebSocket RPC address for a SurrealDB container.
func (c *Container) SurrealAddress() string {
	return fmt.Sprintf("ws://%s:%s/rpc", c.Host, c.Port)
}

// Postgres test credentials.
const (
	PostgresUser     = "treasury"
	PostgresPassword = "treasury"
	PostgresDB       = "treasury_test"
)

var (
	postgresOnce      sync.Once
	postgresContainer *Container
	postgresError     error
)

// StartPostgres starts a shared Postgres container.
func StartPostgres(t *testing.T) *Container {
	t.Helper()
	RequireDocker(t)

	postgresOnce.Do(func() {
		postgresContainer, postgresError = startContainer(testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     PostgresUser,
				"POSTGRES_PASSWORD": PostgresPassword,
				"POSTGRES_DB":       PostgresDB,
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(60 * time.Second),
		}, "5432/tcp")
	})

	if postgresError != nil {
		t.Fatalf("Postgres container failed: %v", postgresError)
	}
	return postgresContainer
}

//go:build integration

// Package integration verifies the PostgreSQL and Redis infrastructure
// against real servers started with testcontainers. Run with:
//
//	go test -tags integration ./test/integration/...
package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/infrastructure/database/postgres"
	"github.com/medimatch/medimatch/internal/infrastructure/database/redis"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
)

const (
	postgresImage = "postgres:16-alpine"
	redisImage    = "redis:7-alpine"

	dbUser = "medimatch"
	dbPass = "medimatch"
	dbName = "medimatch_test"

	setupTimeout = 120 * time.Second
)

var (
	pgOnce  sync.Once
	pgConn  *postgres.Connection
	pgErr   error
	rdOnce  sync.Once
	rdCli   *redis.Client
	rdErr   error
	nopLog  = logging.NewNopLogger()
	rootCtx = context.Background()
)

// postgresConn starts one PostgreSQL container per test binary, runs the
// migrations, and returns a shared connection pool.
func postgresConn(t *testing.T) *postgres.Connection {
	t.Helper()
	pgOnce.Do(func() {
		pgConn, pgErr = startPostgres()
	})
	if pgErr != nil {
		t.Fatalf("postgres container: %v", pgErr)
	}
	return pgConn
}

func startPostgres() (*postgres.Connection, error) {
	ctx, cancel := context.WithTimeout(rootCtx, setupTimeout)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     dbUser,
				"POSTGRES_PASSWORD": dbPass,
				"POSTGRES_DB":       dbName,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(setupTimeout),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := ctr.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("mapped port: %w", err)
	}

	cfg := config.DatabaseConfig{
		Host:          host,
		Port:          port.Int(),
		User:          dbUser,
		Password:      dbPass,
		DBName:        dbName,
		SSLMode:       "disable",
		MaxConns:      5,
		MigrationPath: "file://../../internal/infrastructure/database/postgres/migrations",
	}
	if err := postgres.RunMigrations(cfg); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return postgres.Connect(ctx, cfg, nopLog)
}

// redisClient starts one Redis container per test binary and returns a
// shared client.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	rdOnce.Do(func() {
		rdCli, rdErr = startRedis()
	})
	if rdErr != nil {
		t.Fatalf("redis container: %v", rdErr)
	}
	return rdCli
}

func startRedis() (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(rootCtx, setupTimeout)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(setupTimeout),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := ctr.MappedPort(ctx, "6379")
	if err != nil {
		return nil, fmt.Errorf("mapped port: %w", err)
	}

	return redis.NewClient(config.RedisConfig{
		Addr:      fmt.Sprintf("%s:%d", host, port.Int()),
		KeyPrefix: "it:",
	}, nopLog)
}

// testCtx returns a context bounded to the test's lifetime.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(rootCtx, 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

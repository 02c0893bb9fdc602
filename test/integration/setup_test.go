//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/acolhida/acolhida/internal/platform/db"
	"github.com/acolhida/acolhida/migrations"
)

// suite holds the containers shared by every test in the package.
type suite struct {
	DatabaseURL string
	Admin       *pgxpool.Pool
	Redis       *redis.Client
}

var shared *suite

func TestMain(m *testing.M) {
	ctx := context.Background()

	s, cleanup, err := startContainers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start containers: %v\n", err)
		os.Exit(1)
	}
	shared = s
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func startContainers(ctx context.Context) (*suite, func(), error) {
	pg, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("acolhida"),
		tcpostgres.WithUsername("acolhida"),
		tcpostgres.WithPassword("acolhida"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres: %w", err)
	}
	terminate := []testcontainers.Container{pg}
	cleanup := func() {
		for _, c := range terminate {
			_ = c.Terminate(context.Background())
		}
	}

	url, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("postgres connection string: %w", err)
	}
	admin, err := db.NewPool(ctx, db.PoolConfig{URL: url, MaxConns: 4})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	rc, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		admin.Close()
		cleanup()
		return nil, nil, fmt.Errorf("start redis: %w", err)
	}
	terminate = append(terminate, rc)
	redisURL, err := rc.ConnectionString(ctx)
	if err != nil {
		admin.Close()
		cleanup()
		return nil, nil, fmt.Errorf("redis connection string: %w", err)
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		admin.Close()
		cleanup()
		return nil, nil, err
	}
	client := redis.NewClient(opts)

	return &suite{DatabaseURL: url, Admin: admin, Redis: client}, func() {
		client.Close()
		admin.Close()
		cleanup()
	}, nil
}

// env is one isolated schema with every migration applied.
type env struct {
	Schema string
	Pool   *pgxpool.Pool
	Tx     *db.TxRunner
	Probe  *db.SchemaProbe
}

// newEnv creates a fresh schema, migrates it and returns a pool whose
// search_path points at it. The schema is dropped when the test ends.
func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	schema := "it_" + strings.ReplaceAll(uuid.NewString()[:13], "-", "")

	if _, err := shared.Admin.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		shared.Admin.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
	})

	if _, err := db.NewMigrator(shared.Admin, migrations.FS, schema).Up(ctx); err != nil {
		t.Fatalf("migrate %s: %v", schema, err)
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: shared.DatabaseURL, MaxConns: 10, Schema: schema})
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return &env{
		Schema: schema,
		Pool:   pool,
		Tx:     db.NewTxRunner(pool, 10*time.Second),
		Probe:  db.NewSchemaProbe(pool, schema),
	}
}

func (e *env) exec(t *testing.T, sql string, args ...interface{}) {
	t.Helper()
	if _, err := e.Pool.Exec(context.Background(), sql, args...); err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}

func (e *env) insertPatient(t *testing.T, status string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	e.exec(t, `INSERT INTO assistidos (id, nome, status_jornada) VALUES ($1, $2, $3)`, id, "Assistido "+id.String()[:8], status)
	return id
}

func (e *env) insertUser(t *testing.T, email string) int64 {
	t.Helper()
	var id int64
	var mail *string
	if email != "" {
		mail = &email
	}
	err := e.Pool.QueryRow(context.Background(),
		`INSERT INTO users (nome, email) VALUES ($1, $2) RETURNING id`, "Usuario", mail).Scan(&id)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

func (e *env) insertProfessional(t *testing.T, email string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	var mail *string
	if email != "" {
		mail = &email
	}
	e.exec(t, `INSERT INTO professionals (id, nome, email) VALUES ($1, $2, $3)`, id, "Profissional", mail)
	return id
}

func (e *env) count(t *testing.T, sql string, args ...interface{}) int {
	t.Helper()
	var n int
	if err := e.Pool.QueryRow(context.Background(), sql, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", sql, err)
	}
	return n
}

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/storage/storagetest"
	"github.com/bobmcallan/treasury/internal/testcommon"
)

// testPool connects to the shared Postgres container and isolates each test
// in its own schema via search_path.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pc := testcommon.StartPostgres(t)
	ctx := context.Background()

	var port int
	fmt.Sscanf(pc.Port, "%d", &port)
	cfg := common.PostgresConfig{
		Host:     pc.Host,
		Port:     port,
		Name:     testcommon.PostgresDB,
		User:     testcommon.PostgresUser,
		Password: testcommon.PostgresPassword,
		SSLMode:  "disable",
		MaxConns: 2,
	}

	admin, err := Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("connect admin pool: %v", err)
	}
	schemaName := fmt.Sprintf("t_%d", time.Now().UnixNano())
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schemaName); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	admin.Close()

	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	poolCfg.ConnConfig.RuntimeParams["search_path"] = schemaName
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

func TestCompanyStore(t *testing.T) {
	storagetest.RunCompanyStoreTests(t, func(t *testing.T) interfaces.CompanyStore {
		return NewCompanyStore(testPool(t), common.NewSilentLogger())
	})
}

func TestPriceStore(t *testing.T) {
	storagetest.RunPriceStoreTests(t, func(t *testing.T) interfaces.PriceStore {
		return NewPriceStore(testPool(t), common.NewSilentLogger())
	})
}

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/services/scheduler"
)

func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "treasury.toml")
	content := `
environment = "test"

[storage]
backend = "memory"

[scheduler]
enabled = false
startup_refresh = false

[logging]
level = "error"
outputs = []
` + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestNewApp_InitializesAllServices verifies that NewApp wires every
// service against the configured backend.
func TestNewApp_InitializesAllServices(t *testing.T) {
	t.Setenv("TREASURY_STORAGE_BACKEND", "")
	a, err := NewApp(context.Background(), writeTestConfig(t, ""))
	require.NoError(t, err)
	defer a.Close(context.Background())

	if a.Config == nil {
		t.Error("Config is nil")
	}
	if a.Logger == nil {
		t.Error("Logger is nil")
	}
	if a.Storage == nil {
		t.Error("Storage is nil")
	}
	if a.BitcoinService == nil {
		t.Error("BitcoinService is nil")
	}
	if a.StockService == nil {
		t.Error("StockService is nil")
	}
	if a.CompanyService == nil {
		t.Error("CompanyService is nil")
	}
	if a.TreasuryService == nil {
		t.Error("TreasuryService is nil")
	}
	if a.Market == nil {
		t.Error("Market is nil")
	}
	if a.Hub == nil || a.Scheduler == nil {
		t.Error("scheduler components are nil")
	}
	if a.StartupTime.IsZero() {
		t.Error("StartupTime is zero")
	}
	assert.Equal(t, common.BackendMemory, a.Storage.Backend())
}

func TestApp_SeedOnlyWhenEmpty(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = common.BackendMemory
	a, err := New(context.Background(), cfg, common.NewSilentLogger())
	require.NoError(t, err)
	defer a.Close(context.Background())

	ctx := context.Background()
	require.NoError(t, a.Seed(ctx))
	companies, err := a.CompanyService.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 10)

	require.NoError(t, a.Seed(ctx))
	companies, err = a.CompanyService.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 10, "second seed is a no-op")
}

func TestApp_CSVHoldingsSource(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "treasuries.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"Rank,Flag,Company,Holdings,Value\n"+
			"1,🇺🇸,\"Strategy, Inc.MSTR\",\"₿597,325\",$60B\n"+
			"2,🇨🇦,Galaxy Digital HoldingsGLXY.TO,\"₿15,449.5\",$1B\n"), 0o644))

	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = common.BackendMemory
	cfg.Clients.Treasuries.CSVPath = csvPath
	a, err := New(context.Background(), cfg, common.NewSilentLogger())
	require.NoError(t, err)
	defer a.Close(context.Background())

	ctx := context.Background()
	result, err := a.CompanyService.RefreshHoldings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)

	c, err := a.CompanyService.GetCompany(ctx, "GLXY.TO")
	require.NoError(t, err)
	assert.Equal(t, 15449.5, c.BTCHoldings)
	assert.Equal(t, "CA", c.CountryCode)
}

func TestApp_StartSchedulerRespectsEnabledFlag(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = common.BackendMemory
	cfg.Scheduler.Enabled = false
	cfg.Scheduler.StartupRefresh = false
	a, err := New(context.Background(), cfg, common.NewSilentLogger())
	require.NoError(t, err)

	a.StartScheduler()
	assert.Equal(t, scheduler.StateStopped, a.Scheduler.State())

	a.Config.Scheduler.Enabled = true
	a.StartScheduler()
	assert.Equal(t, scheduler.StateRunning, a.Scheduler.State())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Close(ctx)
	assert.Equal(t, scheduler.StateStopped, a.Scheduler.State())
	assert.Nil(t, a.Storage)
}

func TestResolveConfigPath(t *testing.T) {
	assert.Equal(t, "explicit.toml", ResolveConfigPath("explicit.toml"))

	t.Setenv("TREASURY_CONFIG", "/etc/treasury.toml")
	assert.Equal(t, "/etc/treasury.toml", ResolveConfigPath(""))
}

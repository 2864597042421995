// Package scheduler drives the three refresh cycles (Bitcoin price, stock
// prices, company holdings) and the startup refresh burst.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
)

// Scheduler states
const (
	StateStopped = "stopped"
	StateRunning = "running"
)

// Broadcaster receives refresh events; *RefreshHub implements it.
type Broadcaster interface {
	Broadcast(event models.RefreshEvent)
}

// Config holds the cycle cadence.
type Config struct {
	BitcoinInterval  time.Duration
	StockInterval    time.Duration
	HoldingsInterval time.Duration
	StartupRefresh   bool

	// GateStocksOnMarketHours halves the stock cadence while the market is
	// closed by skipping every second off-hours tick.
	GateStocksOnMarketHours bool
}

// ConfigFrom converts the [scheduler] config section.
func ConfigFrom(c common.SchedulerConfig) Config {
	return Config{
		BitcoinInterval:         c.GetBitcoinInterval(),
		StockInterval:           c.GetStockInterval(),
		HoldingsInterval:        c.GetHoldingsInterval(),
		StartupRefresh:          c.StartupRefresh,
		GateStocksOnMarketHours: c.GateStocksOnMarketHours,
	}
}

// CycleStatus records the outcome of a cycle's most recent run.
type CycleStatus struct {
	Interval    time.Duration `json:"interval_ns"`
	LastRun     *time.Time    `json:"last_run,omitempty"`
	LastSuccess *time.Time    `json:"last_success,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
	NextRun     *time.Time    `json:"next_run,omitempty"`
}

// Status is a snapshot of the scheduler.
type Status struct {
	State     string                 `json:"state"`
	StartedAt *time.Time             `json:"started_at,omitempty"`
	Cycles    map[string]CycleStatus `json:"cycles"`
}

// Scheduler owns the refresh cycles. Start and Stop may be called repeatedly;
// the Refresh* operations may be called at any time, concurrently with the
// cycles, for manual refreshes.
type Scheduler struct {
	bitcoin   interfaces.BitcoinPriceService
	stocks    interfaces.StockPriceService
	companies interfaces.CompanyService
	market    interfaces.MarketClock
	events    Broadcaster
	logger    *common.Logger
	config    Config
	now       func() time.Time // injectable clock for testing

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	wg        *sync.WaitGroup // replaced on each Start
	startedAt time.Time

	statusMu sync.RWMutex
	cycles   map[string]*CycleStatus
}

// New creates a stopped scheduler. events may be nil.
func New(
	bitcoin interfaces.BitcoinPriceService,
	stocks interfaces.StockPriceService,
	companies interfaces.CompanyService,
	market interfaces.MarketClock,
	events Broadcaster,
	logger *common.Logger,
	config Config,
) *Scheduler {
	s := &Scheduler{
		bitcoin:   bitcoin,
		stocks:    stocks,
		companies: companies,
		market:    market,
		events:    events,
		logger:    logger,
		config:    config,
		now:       time.Now,
		cycles: map[string]*CycleStatus{
			models.CycleBitcoin:  {Interval: config.BitcoinInterval},
			models.CycleStocks:   {Interval: config.StockInterval},
			models.CycleHoldings: {Interval: config.HoldingsInterval},
		},
	}
	return s
}

// safeGo launches a goroutine with panic recovery and logging.
func (s *Scheduler) safeGo(name string, fn func()) {
	wg := s.wg
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.recoverPanic(name)
		fn()
	}()
}

func (s *Scheduler) recoverPanic(name string) {
	if r := recover(); r != nil {
		s.logger.Error().
			Str("goroutine", name).
			Str("panic", fmt.Sprintf("%v", r)).
			Str("stack", string(debug.Stack())).
			Msg("Recovered from panic in scheduler")
	}
}

// guard runs one refresh, containing any panic so the cycle keeps ticking.
func (s *Scheduler) guard(name string, fn func()) {
	defer s.recoverPanic(name)
	fn()
}

// Start registers the three cycles and, when configured, runs the startup
// burst. Calling Start on a running scheduler restarts it.
func (s *Scheduler) Start() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.cancel != nil {
		s.stopLocked(context.Background())
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg = &sync.WaitGroup{}
	s.startedAt = s.now()

	s.setNextRun(models.CycleBitcoin, s.startedAt.Add(s.config.BitcoinInterval))
	s.setNextRun(models.CycleStocks, s.startedAt.Add(s.config.StockInterval))
	s.setNextRun(models.CycleHoldings, s.startedAt.Add(s.config.HoldingsInterval))

	if s.config.StartupRefresh {
		s.safeGo("startup", func() { s.startupBurst(ctx) })
	}

	s.safeGo(models.CycleBitcoin, func() {
		s.loop(ctx, models.CycleBitcoin, s.config.BitcoinInterval, func(opCtx context.Context) {
			s.RefreshBitcoin(opCtx, models.TriggerSchedule)
		})
	})

	gate := &stockGate{enabled: s.config.GateStocksOnMarketHours, market: s.market}
	s.safeGo(models.CycleStocks, func() {
		s.loop(ctx, models.CycleStocks, s.config.StockInterval, func(opCtx context.Context) {
			if !gate.allow() {
				s.logger.Debug().Msg("Market closed, skipping stock refresh tick")
				return
			}
			s.RefreshStocks(opCtx, models.TriggerSchedule)
		})
	})

	s.safeGo(models.CycleHoldings, func() {
		s.loop(ctx, models.CycleHoldings, s.config.HoldingsInterval, func(opCtx context.Context) {
			s.RefreshHoldings(opCtx, models.TriggerSchedule)
		})
	})

	s.logger.Info().
		Dur("bitcoin_interval", s.config.BitcoinInterval).
		Dur("stock_interval", s.config.StockInterval).
		Dur("holdings_interval", s.config.HoldingsInterval).
		Bool("startup_refresh", s.config.StartupRefresh).
		Bool("gate_stocks_on_market_hours", s.config.GateStocksOnMarketHours).
		Msg("Scheduler started")
}

// loop runs fn every interval until ctx is cancelled. fn receives a context
// detached from cancellation so an in-flight refresh finishes after Stop.
func (s *Scheduler) loop(ctx context.Context, cycle string, interval time.Duration, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Str("cycle", cycle).Msg("Refresh cycle stopped")
			return
		case tick := <-ticker.C:
			// A tick buffered before Stop can win the select against Done.
			if ctx.Err() != nil {
				return
			}
			s.setNextRun(cycle, tick.Add(interval))
			s.guard(cycle, func() { fn(context.WithoutCancel(ctx)) })
		}
	}
}

// startupBurst refreshes holdings, then the Bitcoin price, then stock prices.
// Each step tolerates the previous one failing.
func (s *Scheduler) startupBurst(ctx context.Context) {
	start := time.Now()
	opCtx := context.WithoutCancel(ctx)
	steps := []struct {
		cycle string
		run   func()
	}{
		{models.CycleHoldings, func() { s.RefreshHoldings(opCtx, models.TriggerStartup) }},
		{models.CycleBitcoin, func() { s.RefreshBitcoin(opCtx, models.TriggerStartup) }},
		{models.CycleStocks, func() { s.RefreshStocks(opCtx, models.TriggerStartup) }},
	}

	for _, step := range steps {
		if ctx.Err() != nil {
			s.logger.Info().Str("next", step.cycle).Msg("Startup refresh abandoned, scheduler stopped")
			return
		}
		s.guard("startup-"+step.cycle, step.run)
	}

	s.logger.Info().Dur("elapsed", time.Since(start)).Msg("Startup refresh complete")
}

// Stop cancels all future ticks and waits for in-flight refreshes to finish
// or ctx to expire. In-flight refreshes are never aborted.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.stopLocked(ctx)
}

func (s *Scheduler) stopLocked(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.cancel = nil

	wg := s.wg
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.clearNextRuns()
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.clearNextRuns()
		s.logger.Warn().Msg("Scheduler stop timed out waiting for in-flight refreshes")
		return ctx.Err()
	}
}

func (s *Scheduler) clearNextRuns() {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	for _, c := range s.cycles {
		c.NextRun = nil
	}
}

// State returns StateRunning or StateStopped.
func (s *Scheduler) State() string {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.cancel != nil {
		return StateRunning
	}
	return StateStopped
}

// Status returns the scheduler state and per-cycle outcomes.
func (s *Scheduler) Status() Status {
	st := Status{State: s.State(), Cycles: make(map[string]CycleStatus, len(s.cycles))}
	if st.State == StateRunning {
		s.lifecycle.Lock()
		started := s.startedAt
		s.lifecycle.Unlock()
		st.StartedAt = &started
	}

	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	for name, c := range s.cycles {
		st.Cycles[name] = *c
	}
	return st
}

// NextRun returns when cycle next ticks, or nil when stopped.
func (s *Scheduler) NextRun(cycle string) *time.Time {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	if c, ok := s.cycles[cycle]; ok && c.NextRun != nil {
		t := *c.NextRun
		return &t
	}
	return nil
}

func (s *Scheduler) setNextRun(cycle string, t time.Time) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if c, ok := s.cycles[cycle]; ok {
		c.NextRun = &t
	}
}

// RefreshBitcoin records a new Bitcoin price point.
func (s *Scheduler) RefreshBitcoin(ctx context.Context, trigger string) (*models.BitcoinPricePoint, error) {
	start := s.begin(models.CycleBitcoin, trigger)
	point, err := s.bitcoin.UpdatePrice(ctx)
	if err != nil {
		s.finish(models.CycleBitcoin, trigger, start, "", err)
		return nil, err
	}
	s.finish(models.CycleBitcoin, trigger, start, fmt.Sprintf("price %.2f %s", point.Price, point.Currency), nil)
	return point, nil
}

// RefreshStocks updates every known ticker. Per-ticker failures are reported
// in the result, never as an error.
func (s *Scheduler) RefreshStocks(ctx context.Context, trigger string) *models.StockBatchResult {
	start := s.begin(models.CycleStocks, trigger)
	result := s.stocks.UpdateAllStockPrices(ctx)
	s.finish(models.CycleStocks, trigger, start,
		fmt.Sprintf("%d/%d tickers updated", result.Updated, result.Attempted), nil)
	return result
}

// RefreshHoldings refreshes the company table from the holdings source.
func (s *Scheduler) RefreshHoldings(ctx context.Context, trigger string) (*models.HoldingsRefreshResult, error) {
	start := s.begin(models.CycleHoldings, trigger)
	result, err := s.companies.RefreshHoldings(ctx)
	if err != nil {
		s.finish(models.CycleHoldings, trigger, start, "", err)
		return nil, err
	}
	s.finish(models.CycleHoldings, trigger, start,
		fmt.Sprintf("%d inserted, %d updated", result.Inserted, result.Updated), nil)
	return result, nil
}

func (s *Scheduler) begin(cycle, trigger string) time.Time {
	start := s.now()
	s.publish(models.RefreshEvent{
		Type:      models.RefreshStarted,
		Cycle:     cycle,
		Trigger:   trigger,
		Timestamp: start.UTC(),
	})
	return start
}

func (s *Scheduler) finish(cycle, trigger string, start time.Time, message string, err error) {
	end := s.now()
	elapsed := end.Sub(start)

	s.statusMu.Lock()
	if c, ok := s.cycles[cycle]; ok {
		c.LastRun = &end
		if err != nil {
			c.LastError = err.Error()
		} else {
			c.LastSuccess = &end
			c.LastError = ""
		}
	}
	s.statusMu.Unlock()

	event := models.RefreshEvent{
		Type:      models.RefreshCompleted,
		Cycle:     cycle,
		Trigger:   trigger,
		Message:   message,
		Duration:  elapsed,
		Timestamp: end.UTC(),
	}
	if err != nil {
		event.Type = models.RefreshFailed
		event.Message = err.Error()
		s.logger.Error().Err(err).Str("cycle", cycle).Str("trigger", trigger).Dur("elapsed", elapsed).Msg("Refresh failed")
	} else {
		s.logger.Info().Str("cycle", cycle).Str("trigger", trigger).Str("result", message).Dur("elapsed", elapsed).Msg("Refresh complete")
	}
	s.publish(event)
}

func (s *Scheduler) publish(event models.RefreshEvent) {
	if s.events != nil {
		s.events.Broadcast(event)
	}
}

// stockGate decides whether a scheduled stock tick runs. With gating off
// every tick runs; with gating on, off-hours ticks alternate run and skip.
type stockGate struct {
	enabled  bool
	market   interfaces.MarketClock
	offHours int
}

func (g *stockGate) allow() bool {
	if !g.enabled || g.market == nil || g.market.IsMarketOpen() {
		return true
	}
	g.offHours++
	return g.offHours%2 == 1
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/treasury/internal/app"
	"github.com/bobmcallan/treasury/internal/models"
)

type refreshCmd struct {
	holdings bool
	bitcoin  bool
	stocks   bool
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "run one refresh pass and exit" }
func (*refreshCmd) Usage() string {
	return `treasury-server refresh [-holdings] [-bitcoin] [-stocks]

  Runs the selected refresh cycles once, in startup order (holdings, Bitcoin,
  stocks). With no flags every cycle runs. Stock prices are refreshed
  regardless of market hours.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.holdings, "holdings", false, "refresh company holdings")
	f.BoolVar(&c.bitcoin, "bitcoin", false, "refresh the Bitcoin price")
	f.BoolVar(&c.stocks, "stocks", false, "refresh every stock price")
}

func (c *refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.holdings && !c.bitcoin && !c.stocks {
		c.holdings, c.bitcoin, c.stocks = true, true, true
	}

	a, err := app.NewApp(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close(ctx)

	if err := a.Seed(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	status := subcommands.ExitSuccess

	if c.holdings {
		result, err := a.Scheduler.RefreshHoldings(ctx, models.TriggerManual)
		if err != nil {
			fmt.Fprintf(os.Stderr, "holdings: %v\n", err)
			status = subcommands.ExitFailure
		} else {
			fmt.Printf("holdings: %d inserted, %d updated, %d skipped\n", result.Inserted, result.Updated, result.Skipped)
		}
	}

	if c.bitcoin {
		point, err := a.Scheduler.RefreshBitcoin(ctx, models.TriggerManual)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bitcoin: %v\n", err)
			status = subcommands.ExitFailure
		} else {
			fmt.Printf("bitcoin: %s\n", formatMoney(point.Price, point.Currency))
		}
	}

	if c.stocks {
		result := a.Scheduler.RefreshStocks(ctx, models.TriggerManual)
		fmt.Printf("stocks: %d/%d updated\n", result.Updated, result.Attempted)
		if len(result.Failed) > 0 {
			fmt.Printf("stocks failed: %v\n", result.Failed)
		}
	}

	return status
}

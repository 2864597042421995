package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"

	"github.com/bobmcallan/treasury/internal/app"
	"github.com/bobmcallan/treasury/internal/models"
)

type companiesCmd struct {
	limit int
}

func (*companiesCmd) Name() string     { return "companies" }
func (*companiesCmd) Synopsis() string { return "print the treasury table" }
func (*companiesCmd) Usage() string {
	return `treasury-server companies [-n <count>]

  Prints every tracked company, largest holdings first, with its latest
  stock price and derived metrics. Prints holdings only until a Bitcoin
  price has been recorded.
`
}

func (c *companiesCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 0, "show only the first n companies (0 = all)")
}

func (c *companiesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := app.NewApp(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close(ctx)

	views, err := a.TreasuryService.Views(ctx)
	if errors.Is(err, models.ErrNoBitcoinPrice) {
		fmt.Fprintln(os.Stderr, "No Bitcoin price recorded yet; metrics unavailable (run `refresh -bitcoin`).")
		views, err = holdingsOnly(ctx, a)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.limit > 0 && c.limit < len(views) {
		views = views[:c.limit]
	}
	if err := writeCompanyTable(os.Stdout, views); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func holdingsOnly(ctx context.Context, a *app.App) ([]*models.TreasuryView, error) {
	companies, err := a.CompanyService.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*models.TreasuryView, len(companies))
	for i, co := range companies {
		views[i] = &models.TreasuryView{Company: *co}
	}
	return views, nil
}

func writeCompanyTable(w io.Writer, views []*models.TreasuryView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tCompany\tTicker\tBTC\tPrice\tMarket Cap\tBTC Value\tNAV\tBTC %\t")

	for i, v := range views {
		price := "N/A"
		if v.StockPrice != nil {
			price = formatMoney(*v.StockPrice, v.StockCurrency)
			if v.PriceStale {
				price += "*"
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			i+1,
			truncate(v.Name, 28),
			v.Ticker,
			strconv.FormatFloat(v.BTCHoldings, 'f', -1, 64),
			price,
			formatCompactUSD(v.MarketCap),
			formatCompactUSD(v.BTCValue),
			formatRatio(v.BTCNavMultiple, "x"),
			formatRatio(v.BTCHoldingsPercentage, "%"),
		)
	}
	return tw.Flush()
}

// formatMoney renders amount in currency (USD when empty) using the
// currency's symbol and fraction digits.
func formatMoney(amount float64, currency string) string {
	if currency == "" {
		currency = money.USD
	}
	return money.NewFromFloat(amount, strings.ToUpper(currency)).Display()
}

// formatCompactUSD renders large USD amounts as $1.23B / $45.6M.
func formatCompactUSD(v *float64) string {
	if v == nil {
		return "N/A"
	}
	abs := math.Abs(*v)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("$%.2fT", *v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", *v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", *v/1e6)
	default:
		return formatMoney(*v, money.USD)
	}
}

func formatRatio(v *float64, suffix string) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + suffix
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

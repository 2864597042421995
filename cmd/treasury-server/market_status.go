package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/treasury/internal/services/market"
)

type marketStatusCmd struct{}

func (*marketStatusCmd) Name() string     { return "market-status" }
func (*marketStatusCmd) Synopsis() string { return "print whether the US stock market is open" }
func (*marketStatusCmd) Usage() string {
	return `treasury-server market-status

  Prints the exchange-local time, whether the market is open and when it
  next opens. Exits 0 when open, 1 when closed.
`
}

func (*marketStatusCmd) SetFlags(*flag.FlagSet) {}

func (*marketStatusCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st := market.NewClock().Status()
	writeMarketStatus(os.Stdout, st)
	if !st.IsOpen {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func writeMarketStatus(w io.Writer, st market.Status) {
	state := "closed"
	if st.IsOpen {
		state = "open"
	}
	fmt.Fprintf(w, "US stock market is %s\n", state)
	fmt.Fprintf(w, "Local time: %s (%s)\n", st.LocalTime, st.Timezone)
	if !st.IsOpen {
		fmt.Fprintf(w, "Next open:  %s\n", st.NextOpen.Format(time.RFC3339))
	}
}
